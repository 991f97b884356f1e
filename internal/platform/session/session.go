// Package session holds short-lived per-caller state such as the
// password recovery staging keys.
package session

import (
	"context"
	"errors"
)

const (
	KeyResetEmail  = "reset_email"
	KeyOTPVerified = "otp_verified"
)

var ErrNoSession = errors.New("no session in context")

// Session is a key/value bag bound to one caller.
type Session interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Store opens the session with the given id.
type Store interface {
	Open(id string) Session
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, error) {
	if s, ok := ctx.Value(ctxKey{}).(Session); ok && s != nil {
		return s, nil
	}
	return nil, ErrNoSession
}
