package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var _ Engine = (*OllamaEngine)(nil)

// fakeOllama serves /api/tags with the given models and answers pulls with
// a two-line progress stream.
func fakeOllama(t *testing.T, models ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			var resp struct {
				Models []map[string]string `json:"models"`
			}
			for _, m := range models {
				resp.Models = append(resp.Models, map[string]string{"name": m})
			}
			json.NewEncoder(w).Encode(resp)
		case "/api/pull":
			enc := json.NewEncoder(w)
			enc.Encode(PullProgress{Status: "downloading", Total: 4, Completed: 2})
			enc.Encode(PullProgress{Status: "success"})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEnsureReady_AgainstOllama(t *testing.T) {
	srv := fakeOllama(t, "bge-m3:latest")
	var out bytes.Buffer
	if err := EnsureReady(context.Background(), NewOllamaEngine(srv.URL), "bge-m3", &out); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if strings.Contains(out.String(), "pulling") {
		t.Errorf("model present, but output mentions pulling: %q", out.String())
	}
}

func TestEnsureReady_PullsMissingModel(t *testing.T) {
	srv := fakeOllama(t)
	var out bytes.Buffer
	if err := EnsureReady(context.Background(), NewOllamaEngine(srv.URL), "bge-m3", &out); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if !strings.Contains(out.String(), "downloading 50%") {
		t.Errorf("output = %q, want progress line", out.String())
	}
}

func TestEnsureReady_OllamaDown(t *testing.T) {
	srv := fakeOllama(t)
	srv.Close()
	err := EnsureReady(context.Background(), NewOllamaEngine(srv.URL), "bge-m3", io.Discard)
	if err != ErrNotRunning {
		t.Fatalf("err = %v, want ErrNotRunning", err)
	}
}
