package auth

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/sakif/life-journal/internal/apperror"
)

// idTokenVerifier is the slice of *fbauth.Client the verifier uses.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier checks Firebase ID tokens with the Admin SDK and returns
// the email claim.
type FirebaseVerifier struct {
	client idTokenVerifier
}

var _ Verifier = (*FirebaseVerifier)(nil)

// NewFirebaseVerifier initialises the Admin SDK. With an empty credentialsFile
// the SDK falls back to Application Default Credentials.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("auth: initialising firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: creating firebase auth client: %w", err)
	}

	return &FirebaseVerifier{client: client}, nil
}

// Verify validates the ID token's signature, audience and expiry. Tokens
// without an email claim (anonymous or phone sign-in) are rejected because the
// API has no other notion of identity.
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (string, error) {
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", apperror.Unauthorized("invalid identity token")
	}

	email, _ := tok.Claims["email"].(string)
	email = strings.TrimSpace(email)
	if email == "" {
		return "", apperror.Unauthorized("identity token carries no email")
	}
	return email, nil
}
