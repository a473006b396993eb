package extsvc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// maxContextChars bounds how much ingested content is kept per
// resource for prompting.
const maxContextChars = 48_000

// OpenAIGenerator answers questions with the OpenAI chat API, using
// ingested content as inline context. Ingest keeps the content
// in-process; restarting the server requires re-ingestion.
type OpenAIGenerator struct {
	client openai.Client
	model  string
	logger *slog.Logger

	mu      sync.RWMutex
	content map[string]string // resourceID -> ingested content
}

// NewOpenAIGenerator creates a Generator backed by the OpenAI API.
func NewOpenAIGenerator(apiKey, model string, logger *slog.Logger) *OpenAIGenerator {
	return &OpenAIGenerator{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		logger:  logger,
		content: make(map[string]string),
	}
}

func (g *OpenAIGenerator) Name() string { return "openai" }

// Ingest stores the resource's content for use as prompt context.
func (g *OpenAIGenerator) Ingest(ctx context.Context, resourceID, content string) error {
	if len(content) > maxContextChars {
		content = content[:maxContextChars]
	}
	g.mu.Lock()
	g.content[resourceID] = content
	g.mu.Unlock()

	g.logger.Debug("content ingested", "resource", resourceID, "chars", len(content))
	return nil
}

// Answer asks the chat model a question grounded on the ingested
// content.
func (g *OpenAIGenerator) Answer(ctx context.Context, resourceID, question string) (string, error) {
	g.mu.RLock()
	content, ok := g.content[resourceID]
	g.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("resource %s has not been ingested", resourceID)
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("Answer questions using only the provided document content.\n\nDocument:\n" + content),
			openai.UserMessage(question),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
