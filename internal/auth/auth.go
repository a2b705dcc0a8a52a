// Package auth decides whether a request may mutate tours and legs.
package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

// Checker validates a bearer token.
type Checker interface {
	Check(ctx context.Context, token string) bool
}

// StaticToken accepts exactly one shared secret. An empty secret accepts
// nothing, so a server started without a token is read-only.
type StaticToken string

// Check implements Checker.
func (s StaticToken) Check(_ context.Context, token string) bool {
	if s == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s), []byte(token)) == 1
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, token string) bool

// Check implements Checker.
func (f CheckerFunc) Check(ctx context.Context, token string) bool {
	return f(ctx, token)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// It returns "" when the header is missing or uses another scheme.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
