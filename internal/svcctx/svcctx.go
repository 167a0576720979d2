// Package svcctx provides service context for dependency injection via
// context. Commands attach the services once; pipeline stages extract
// what they need.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/redline/internal/config"
)

// Services holds the core services that flow through context.
type Services struct {
	Logger *slog.Logger
	Config *config.Config
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// ConfigFrom extracts the configuration from context.
func ConfigFrom(ctx context.Context) *config.Config {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}
