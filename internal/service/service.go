package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"smush/internal/apiclient"
)

// API es el cliente HTTP que usan sesión y caches.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body any, out any) error
	GetWithRetry(ctx context.Context, path string, out any, policy apiclient.RetryPolicy) error
}

// CookieKeeper expone el cookie jar del cliente para persistirlo entre reinicios.
type CookieKeeper interface {
	ExportCookies() []apiclient.Cookie
	ImportCookies(cookies []apiclient.Cookie)
	ClearCookies()
	AccessTokenExpiry() (time.Time, error)
}

// Navigator mueve la superficie activa a otra ruta.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapta una función a Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

type noopNavigator struct{}

func (noopNavigator) Navigate(string) {}

var (
	ErrNotConfigured    = errors.New("service not configured")
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrIncompleteLogin  = errors.New("login response missing user or expirations")
	ErrValidation       = errors.New("validation failed")
	ErrUserCharNotFound = errors.New("user character not found")
	ErrLoadSuperseded   = errors.New("cache reset while loading")
)

// ValidationError agrupa las advertencias que bloquean una acción local.
type ValidationError struct {
	Warnings []string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(e.Warnings, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func newValidationError(warnings []string) error {
	if len(warnings) == 0 {
		return nil
	}
	return &ValidationError{Warnings: warnings}
}
