package extsvc

import (
	"context"
	"sync"
)

// MockGenerator is an in-memory Generator for tests.
type MockGenerator struct {
	mu        sync.Mutex
	Ingested  map[string]string
	Responses map[string]string // question -> canned answer
	IngestErr error
	AnswerErr error
}

// NewMockGenerator creates an empty mock.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		Ingested:  make(map[string]string),
		Responses: make(map[string]string),
	}
}

func (m *MockGenerator) Name() string { return "mock" }

func (m *MockGenerator) Ingest(ctx context.Context, resourceID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.IngestErr != nil {
		return m.IngestErr
	}
	m.Ingested[resourceID] = content
	return nil
}

func (m *MockGenerator) Answer(ctx context.Context, resourceID, question string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AnswerErr != nil {
		return "", m.AnswerErr
	}
	if resp, ok := m.Responses[question]; ok {
		return resp, nil
	}
	return "no answer configured", nil
}
