package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"storyteller/internal/config"
	"storyteller/internal/home"
	"storyteller/internal/ingest"
	"storyteller/internal/server/endpoints"
)

const sampleBook = `Chapter 1: The Letter

Alice opened the envelope slowly.

Chapter 2: The Road

The road out of town was long and empty.
`

func startTestServer(t *testing.T, port string) (string, context.CancelFunc, chan error) {
	t.Helper()

	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}
	cm, err := config.NewManager("")
	if err != nil {
		t.Fatalf("config.NewManager() error = %v", err)
	}

	srv, err := New(Config{
		Host:          "127.0.0.1",
		Port:          port,
		Home:          h,
		ConfigManager: cm,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%s", port)
	if err := waitForServer(baseURL, 10*time.Second); err != nil {
		cancel()
		t.Fatalf("server did not start: %v", err)
	}

	return baseURL, cancel, errCh
}

func waitForServer(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server at %s not ready after %v", baseURL, timeout)
}

func TestServerLifecycle(t *testing.T) {
	baseURL, cancel, errCh := startTestServer(t, "19170")

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/health")
		if err != nil {
			t.Fatalf("health request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var health endpoints.HealthResponse
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if health.Status != "ok" {
			t.Errorf("health.Status = %q, want %q", health.Status, "ok")
		}
	})

	t.Run("ready_degraded_without_engine", func(t *testing.T) {
		// No llama-server is running, so readiness reports degraded.
		resp, err := http.Get(baseURL + "/ready")
		if err != nil {
			t.Fatalf("ready request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("ready status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
		}
	})

	t.Run("status", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/status")
		if err != nil {
			t.Fatalf("status request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var status endpoints.StatusResponse
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if status.Server != "running" {
			t.Errorf("status.Server = %q, want %q", status.Server, "running")
		}
		if len(status.Tasks) != 0 {
			t.Errorf("expected no running tasks, got %d", len(status.Tasks))
		}
	})

	t.Run("ingest_and_query", func(t *testing.T) {
		bookPath := filepath.Join(t.TempDir(), "sample-book.txt")
		if err := os.WriteFile(bookPath, []byte(sampleBook), 0o644); err != nil {
			t.Fatal(err)
		}

		body, _ := json.Marshal(endpoints.IngestRequest{Path: bookPath, Author: "Test Author"})
		resp, err := http.Post(baseURL+"/api/books/ingest", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("ingest request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("ingest status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}
		var res ingest.Result
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if res.BookID == 0 {
			t.Error("ingest returned zero book id")
		}
		if res.Chapters != 2 {
			t.Errorf("Chapters = %d, want 2", res.Chapters)
		}

		listResp, err := http.Get(baseURL + "/api/books")
		if err != nil {
			t.Fatalf("list request failed: %v", err)
		}
		defer listResp.Body.Close()

		var list endpoints.ListBooksResponse
		if err := json.NewDecoder(listResp.Body).Decode(&list); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(list.Books) != 1 {
			t.Fatalf("expected 1 book, got %d", len(list.Books))
		}
		if list.Books[0].Author != "Test Author" {
			t.Errorf("Author = %q, want %q", list.Books[0].Author, "Test Author")
		}

		findingsURL := fmt.Sprintf("%s/api/books/%d/findings", baseURL, res.BookID)
		fResp, err := http.Get(findingsURL)
		if err != nil {
			t.Fatalf("findings request failed: %v", err)
		}
		defer fResp.Body.Close()

		var findings endpoints.FindingsResponse
		if err := json.NewDecoder(fResp.Body).Decode(&findings); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(findings.Characters) != 0 {
			t.Errorf("expected no characters before analysis, got %d", len(findings.Characters))
		}
	})

	t.Run("analyze_validates_kind", func(t *testing.T) {
		body := []byte(`{"kinds": ["nonsense"]}`)
		resp, err := http.Post(baseURL+"/api/books/1/analyze", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("analyze request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("analyze status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})

	t.Run("checkpoints_empty", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/api/checkpoints")
		if err != nil {
			t.Fatalf("checkpoints request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("checkpoints status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("unknown_book_404", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/api/books/9999")
		if err != nil {
			t.Fatalf("get request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("get status = %d, want %d", resp.StatusCode, http.StatusNotFound)
		}
	})

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Error("server did not shut down in time")
	}
}

func TestNewRequiresDeps(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error when home is missing")
	}

	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(Config{Home: h}); err == nil {
		t.Error("expected error when config manager is missing")
	}
}
