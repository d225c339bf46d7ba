package main

import (
	"context"
	"net/http"

	"github.com/sushihentaime/bloglist/internal/userservice"
)

type contextKey string

const (
	identityContextKey  = contextKey("identity")
	authErrorContextKey = contextKey("auth_error")
)

func (app *application) contextSetIdentity(r *http.Request, identity *userservice.Identity) *http.Request {
	ctx := context.WithValue(r.Context(), identityContextKey, identity)
	return r.WithContext(ctx)
}

// contextSetAuthError records why a presented token was not accepted.
func (app *application) contextSetAuthError(r *http.Request, err error) *http.Request {
	ctx := context.WithValue(r.Context(), authErrorContextKey, err)
	return r.WithContext(ctx)
}

// contextGetIdentity never returns nil; a request that skipped authenticate
// is anonymous.
func (app *application) contextGetIdentity(r *http.Request) *userservice.Identity {
	identity, ok := r.Context().Value(identityContextKey).(*userservice.Identity)
	if !ok || identity == nil {
		return userservice.Anonymous()
	}
	return identity
}

func (app *application) contextGetAuthError(r *http.Request) error {
	err, _ := r.Context().Value(authErrorContextKey).(error)
	return err
}
