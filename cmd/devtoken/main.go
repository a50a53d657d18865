// Command devtoken mints a bearer token for local development with
// AUTH_PROVIDER=jwt.
//
//	JWT_SECRET=... go run ./cmd/devtoken -email ana@example.com
//	curl -H "Authorization: Bearer $(go run ./cmd/devtoken -email ana@example.com)" ...
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/sakif/life-journal/internal/auth"
)

func main() {
	email := flag.String("email", "", "identity to put in the token")
	ttl := flag.Duration("ttl", auth.DefaultTokenTTL, "token lifetime")
	envFile := flag.String("env", ".env", "optional .env file")
	flag.Parse()

	// Missing file is fine; the secret may come from the real environment.
	_ = godotenv.Load(*envFile)

	if *email == "" {
		fmt.Fprintln(os.Stderr, "devtoken: -email is required")
		flag.Usage()
		os.Exit(2)
	}

	tokens, err := auth.NewTokenService(os.Getenv("JWT_SECRET"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "devtoken:", err)
		os.Exit(1)
	}

	token, err := tokens.GenerateWithDuration(*email, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "devtoken:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
