package extsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	retry "github.com/avast/retry-go/v4"
)

// HTTPGenerator talks to a RAG service over its JSON HTTP API.
type HTTPGenerator struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPGenerator creates a Generator backed by an HTTP RAG service.
func NewHTTPGenerator(baseURL string, logger *slog.Logger) *HTTPGenerator {
	return &HTTPGenerator{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // ingest of large documents is slow
		},
		logger: logger,
	}
}

func (g *HTTPGenerator) Name() string { return "http" }

// Ingest posts a resource's content to the service's ingest endpoint.
func (g *HTTPGenerator) Ingest(ctx context.Context, resourceID, content string) error {
	body := map[string]any{
		"resourceId": resourceID,
		"content":    content,
	}
	return g.postJSON(ctx, "/ingest", body, nil)
}

// Answer asks the service a question about a resource.
func (g *HTTPGenerator) Answer(ctx context.Context, resourceID, question string) (string, error) {
	body := map[string]any{
		"resourceId": resourceID,
		"question":   question,
	}
	var result struct {
		Response string `json:"response"`
	}
	if err := g.postJSON(ctx, "/ask", body, &result); err != nil {
		return "", err
	}
	return result.Response, nil
}

// postJSON performs a retried POST with a JSON body, decoding the
// response into result when non-nil.
func (g *HTTPGenerator) postJSON(ctx context.Context, path string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := g.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}
			if resp.StatusCode >= 500 {
				return fmt.Errorf("service error (%d): %s", resp.StatusCode, data)
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("service rejected request (%d): %s", resp.StatusCode, data))
			}

			if result != nil {
				if err := json.Unmarshal(data, result); err != nil {
					return retry.Unrecoverable(fmt.Errorf("failed to decode response: %w", err))
				}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(1*time.Second),
		retry.OnRetry(func(n uint, err error) {
			g.logger.Warn("generator request retrying", "attempt", n+1, "path", path, "error", err)
		}),
	)
}
