// Package config loads process configuration from the environment.
//
// A .env file in the working directory is read first when present. It never
// overrides variables that are already set, so real deployment environments
// win over a developer's local file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"

	AuthFirebase = "firebase"
	AuthJWT      = "jwt"

	minJWTSecretLen = 16
)

// Config is the typed view of every setting the server reads.
type Config struct {
	Port            int
	ShutdownTimeout time.Duration

	StoreDriver   string
	MongoURI      string
	MongoDatabase string
	SQLitePath    string

	AuthProvider            string
	FirebaseProjectID       string
	FirebaseCredentialsFile string
	JWTSecret               string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeCurrency      string
	ClientURL           string

	CORSOrigins          []string
	TopContributorsLimit int

	LogLevel  slog.Level
	LogFormat string
}

// PaymentsEnabled reports whether a Stripe key was configured.
func (c *Config) PaymentsEnabled() bool {
	return c.StripeSecretKey != ""
}

// Load reads envFile (if it exists) and then the environment. A missing file
// is not an error; a malformed one is.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: reading %s: %w", envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	var errs []error

	port, err := intVar("PORT", 3000)
	errs = append(errs, err)
	topN, err := intVar("TOP_CONTRIBUTORS_LIMIT", 3)
	errs = append(errs, err)
	shutdown, err := durationVar("SHUTDOWN_TIMEOUT", 30*time.Second)
	errs = append(errs, err)

	cfg := &Config{
		Port:                    port,
		ShutdownTimeout:         shutdown,
		StoreDriver:             strings.ToLower(stringVar("STORE_DRIVER", StoreMongo)),
		MongoURI:                stringVar("MONGODB_URI", ""),
		MongoDatabase:           stringVar("MONGODB_DATABASE", "the-life-journal-db"),
		SQLitePath:              stringVar("SQLITE_PATH", "data/life-journal.db"),
		AuthProvider:            strings.ToLower(stringVar("AUTH_PROVIDER", AuthFirebase)),
		FirebaseProjectID:       stringVar("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: stringVar("FIREBASE_CREDENTIALS_FILE", ""),
		JWTSecret:               stringVar("JWT_SECRET", ""),
		StripeSecretKey:         stringVar("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:     stringVar("STRIPE_WEBHOOK_SECRET", ""),
		StripeCurrency:          strings.ToLower(stringVar("STRIPE_CURRENCY", "usd")),
		ClientURL:               strings.TrimRight(stringVar("CLIENT_URL", "http://localhost:5173"), "/"),
		CORSOrigins:             listVar("CORS_ORIGINS", []string{"*"}),
		TopContributorsLimit:    topN,
		LogFormat:               strings.ToLower(stringVar("LOG_FORMAT", "text")),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(stringVar("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if cfg.StoreDriver == StoreMongo && cfg.MongoURI == "" {
		cfg.MongoURI, err = atlasURI()
		errs = append(errs, err)
	}

	errs = append(errs, cfg.validate())
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.TopContributorsLimit < 1 {
		errs = append(errs, fmt.Errorf("TOP_CONTRIBUTORS_LIMIT must be positive, got %d", c.TopContributorsLimit))
	}

	switch c.StoreDriver {
	case StoreMongo, StoreSQLite:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMongo, StoreSQLite, c.StoreDriver))
	}

	switch c.AuthProvider {
	case AuthFirebase:
		if c.FirebaseProjectID == "" && c.FirebaseCredentialsFile == "" {
			errs = append(errs, errors.New("AUTH_PROVIDER=firebase needs FIREBASE_PROJECT_ID or FIREBASE_CREDENTIALS_FILE"))
		}
	case AuthJWT:
		if len(c.JWTSecret) < minJWTSecretLen {
			errs = append(errs, fmt.Errorf("AUTH_PROVIDER=jwt needs JWT_SECRET of at least %d characters", minJWTSecretLen))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_PROVIDER must be %q or %q, got %q", AuthFirebase, AuthJWT, c.AuthProvider))
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}

	if _, err := url.ParseRequestURI(c.ClientURL); err != nil {
		errs = append(errs, fmt.Errorf("CLIENT_URL: %w", err))
	}

	return errors.Join(errs...)
}

// atlasURI assembles the Atlas SRV string from DB_USER/DB_PASS/DB_CLUSTER.
func atlasURI() (string, error) {
	user, pass := os.Getenv("DB_USER"), os.Getenv("DB_PASS")
	if user == "" || pass == "" {
		return "", errors.New("STORE_DRIVER=mongo needs MONGODB_URI or DB_USER and DB_PASS")
	}
	cluster := stringVar("DB_CLUSTER", "cluster0.lpz93gz.mongodb.net")
	u := url.URL{
		Scheme:   "mongodb+srv",
		User:     url.UserPassword(user, pass),
		Host:     cluster,
		Path:     "/",
		RawQuery: "appName=Cluster0",
	}
	return u.String(), nil
}

func stringVar(key, def string) string {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return def
	}
	return strings.TrimSpace(val)
}

func intVar(key string, def int) (int, error) {
	raw := stringVar(key, "")
	if raw == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("%s must be an integer, got %q", key, raw)
	}
	return val, nil
}

func durationVar(key string, def time.Duration) (time.Duration, error) {
	raw := stringVar(key, "")
	if raw == "" {
		return def, nil
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%s must be a duration like 30s, got %q", key, raw)
	}
	return val, nil
}

// listVar splits a comma separated value, dropping blanks.
func listVar(key string, def []string) []string {
	raw := stringVar(key, "")
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
