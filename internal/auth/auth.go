// Package auth resolves the caller identity of a request.
//
// IDENTITY FLOW:
//  1. The web client signs the user in with Firebase and receives an ID token
//  2. Every protected call sends it as "Authorization: Bearer <token>"
//  3. Authenticate extracts the token and hands it to a Verifier
//  4. The Verifier checks the signature and returns the user's email
//
// The email is the identity everywhere else in the API: lessons name their
// author by email, users are keyed by email, and the guard compares emails.
//
// Handlers call Authenticate themselves and pass the returned email down to
// the service layer as a plain argument. Nothing is stashed in the request
// context.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/life-journal/internal/apperror"
)

// Verifier validates a bearer credential and returns the identity it belongs to.
//
// Implementations must return an error wrapping apperror.ErrUnauthorized for
// any token they reject; other errors are treated as upstream failures.
type Verifier interface {
	Verify(ctx context.Context, token string) (email string, err error)
}

// VerifierFunc adapts an ordinary function to the Verifier interface.
type VerifierFunc func(ctx context.Context, token string) (string, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}

// Authenticate returns the verified identity of the request's bearer token.
// A missing or malformed Authorization header is Unauthorized without ever
// reaching the verifier.
func Authenticate(r *http.Request, v Verifier) (string, error) {
	token, err := BearerToken(r)
	if err != nil {
		return "", err
	}
	return v.Verify(r.Context(), token)
}

// BearerToken extracts the credential from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively as RFC 6750 allows.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", apperror.Unauthorized("missing authorization header")
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", apperror.Unauthorized("authorization header must use the Bearer scheme")
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperror.Unauthorized("empty bearer token")
	}
	return token, nil
}
