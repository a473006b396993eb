package extsvc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestHTTPGenerator_Ingest(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ingest" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL, slog.Default())
	if err := g.Ingest(context.Background(), "r1", "<p>hello</p>"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if gotBody["resourceId"] != "r1" || gotBody["content"] != "<p>hello</p>" {
		t.Errorf("unexpected request body: %v", gotBody)
	}
}

func TestHTTPGenerator_Answer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"response": "42"})
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL, slog.Default())
	got, err := g.Answer(context.Background(), "r1", "meaning of life?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got != "42" {
		t.Errorf("expected 42, got %q", got)
	}
}

func TestHTTPGenerator_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL, slog.Default())
	if err := g.Ingest(context.Background(), "r1", "content"); err != nil {
		t.Fatalf("expected retries to succeed, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestHTTPGenerator_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL, slog.Default())
	if err := g.Ingest(context.Background(), "r1", "content"); err == nil {
		t.Fatal("expected error on 400 response")
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt on client error, got %d", calls.Load())
	}
}
