// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/corpus-kb/corpus/internal/config"
	"github.com/corpus-kb/corpus/internal/entities"
	"github.com/corpus-kb/corpus/internal/extsvc"
	"github.com/corpus-kb/corpus/internal/home"
	"github.com/corpus-kb/corpus/internal/notify"
	"github.com/corpus-kb/corpus/internal/store"
	"github.com/corpus-kb/corpus/internal/upload"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Store     *store.Store
	Entities  *entities.Service
	Generator extsvc.Generator
	Hub       *notify.Hub
	Uploader  *upload.Service
	Config    *config.Config
	Logger    *slog.Logger
	Home      *home.Dir
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

// StoreFrom extracts the data store from context.
func StoreFrom(ctx context.Context) *store.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// EntitiesFrom extracts the entity service from context.
func EntitiesFrom(ctx context.Context) *entities.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Entities
	}
	return nil
}

// GeneratorFrom extracts the generation service from context.
func GeneratorFrom(ctx context.Context) extsvc.Generator {
	if s := ServicesFrom(ctx); s != nil {
		return s.Generator
	}
	return nil
}

// HubFrom extracts the websocket hub from context.
func HubFrom(ctx context.Context) *notify.Hub {
	if s := ServicesFrom(ctx); s != nil {
		return s.Hub
	}
	return nil
}

// UploaderFrom extracts the upload service from context.
func UploaderFrom(ctx context.Context) *upload.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Uploader
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

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
