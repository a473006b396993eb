package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/corpus-kb/corpus/internal/config"
	"github.com/corpus-kb/corpus/internal/home"
)

func freePort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	_, port, err := net.SplitHostPort(l.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	return port
}

func testConfig(t *testing.T) (*config.Config, *home.Dir) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.Port = freePort(t)
	cfg.Database.DSN = ":memory:"
	cfg.Inbox.Enabled = false

	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return cfg, h
}

func TestNew(t *testing.T) {
	cfg, h := testConfig(t)
	s, err := New(cfg, h, slog.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.IsRunning() {
		t.Error("expected server not running before Start")
	}
	if s.Addr() != net.JoinHostPort(cfg.Server.Host, cfg.Server.Port) {
		t.Errorf("unexpected addr %s", s.Addr())
	}
}

func TestRequireInitBeforeStart(t *testing.T) {
	cfg, h := testConfig(t)
	s, err := New(cfg, h, slog.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	t.Run("health responds without init", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("api routes return 503", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/resources", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
	})
}

func TestServerLifecycle(t *testing.T) {
	cfg, h := testConfig(t)
	s, err := New(cfg, h, slog.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	base := fmt.Sprintf("http://%s", s.Addr())
	waitForServer(t, base+"/health")

	t.Run("ready once store is open", func(t *testing.T) {
		resp, err := http.Get(base + "/ready")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		var body map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body["status"] != "ok" || body["database"] != "ok" {
			t.Errorf("unexpected readiness: %v", body)
		}
	})

	t.Run("resources list is empty", func(t *testing.T) {
		resp, err := http.Get(base + "/api/resources")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
	case <-time.After(35 * time.Second):
		t.Fatal("server did not shut down")
	}
	if s.IsRunning() {
		t.Error("expected server stopped after Start returns")
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for server")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
