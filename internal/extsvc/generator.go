// Package extsvc holds clients for the external compute collaborators:
// the retrieval-augmented generation service and anything else the
// pipeline calls directly rather than through the job queue.
package extsvc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/corpus-kb/corpus/internal/config"
)

// Generator is the retrieval-augmented generation service. Ingest
// feeds a resource's English working content into the index; Answer
// asks a question against it.
type Generator interface {
	// Name identifies the backing implementation.
	Name() string

	// Ingest indexes a resource's content. Called synchronously from
	// the pipeline once English working content exists.
	Ingest(ctx context.Context, resourceID, content string) error

	// Answer responds to a question about a resource.
	Answer(ctx context.Context, resourceID, question string) (string, error)
}

// NewGenerator builds the Generator selected by config.
func NewGenerator(cfg config.RAGCfg, logger *slog.Logger) (Generator, error) {
	switch cfg.Type {
	case "http":
		return NewHTTPGenerator(cfg.URL, logger), nil
	case "openai":
		apiKey := config.ResolveEnvVars(cfg.APIKey)
		if apiKey == "" {
			return nil, fmt.Errorf("openai generator requires an API key")
		}
		return NewOpenAIGenerator(apiKey, cfg.Model, logger), nil
	default:
		return nil, fmt.Errorf("unknown generator type: %s", cfg.Type)
	}
}
