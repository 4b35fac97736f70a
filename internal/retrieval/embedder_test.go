package retrieval

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kalambet/askbot/internal/engine"
)

// mockEngine implements engine.Engine for testing.
type mockEngine struct {
	embedFn      func(ctx context.Context, model string, text string) ([]float32, error)
	embedBatchFn func(ctx context.Context, model string, texts []string) ([][]float32, error)
}

func (m *mockEngine) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	return m.embedFn(ctx, model, text)
}
func (m *mockEngine) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if m.embedBatchFn != nil {
		return m.embedBatchFn(ctx, model, texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.embedFn(ctx, model, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
func (m *mockEngine) IsRunning(_ context.Context) bool               { return false }
func (m *mockEngine) ListModels(_ context.Context) ([]string, error) { return nil, nil }
func (m *mockEngine) HasModel(_ context.Context, _ string) bool      { return false }
func (m *mockEngine) PullModel(_ context.Context, _ string, _ func(engine.PullProgress)) error {
	return errors.New("not implemented")
}

func makeVector(dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(i) * 0.001
	}
	return v
}

func TestEmbed_ReturnsDimension(t *testing.T) {
	mock := &mockEngine{
		embedFn: func(_ context.Context, _ string, _ string) ([]float32, error) {
			return makeVector(384), nil
		},
	}
	e := NewEmbedder(mock, "all-minilm")

	vec, err := e.Embed(context.Background(), "bonjour")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 384 {
		t.Errorf("got %d dimensions, want 384", len(vec))
	}
}

func TestEmbed_EngineError(t *testing.T) {
	mock := &mockEngine{
		embedFn: func(_ context.Context, _ string, _ string) ([]float32, error) {
			return nil, errors.New("connection refused")
		},
	}
	e := NewEmbedder(mock, "all-minilm")

	_, err := e.Embed(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("err = %v, want wrapped connection refused", err)
	}
}

func TestEmbed_Timeout(t *testing.T) {
	mock := &mockEngine{
		embedFn: func(ctx context.Context, _ string, _ string) ([]float32, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	e := NewEmbedder(mock, "all-minilm", WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := e.Embed(context.Background(), "slow")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout not applied")
	}
}

func TestEmbedBatch_ChunksPreserveOrder(t *testing.T) {
	var calls atomic.Int32
	mock := &mockEngine{
		embedBatchFn: func(_ context.Context, _ string, texts []string) ([][]float32, error) {
			calls.Add(1)
			out := make([][]float32, len(texts))
			for i, t := range texts {
				out[i] = []float32{float32(len(t))}
			}
			return out, nil
		},
	}
	e := NewEmbedder(mock, "all-minilm", WithBatchSize(2))

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if v[0] != float32(i+1) {
			t.Errorf("vecs[%d] = %v, want [%d]", i, v, i+1)
		}
	}
	if calls.Load() != 3 {
		t.Errorf("engine called %d times, want 3", calls.Load())
	}
}

func TestEmbedBatch_EngineError(t *testing.T) {
	mock := &mockEngine{
		embedBatchFn: func(_ context.Context, _ string, texts []string) ([][]float32, error) {
			return nil, errors.New("embedding failed")
		},
	}
	e := NewEmbedder(mock, "all-minilm")

	_, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err == nil || !strings.Contains(err.Error(), "embedding failed") {
		t.Fatalf("err = %v, want wrapped embedding failed", err)
	}
}

func TestEmbedBatch_ShortResponse(t *testing.T) {
	mock := &mockEngine{
		embedBatchFn: func(_ context.Context, _ string, texts []string) ([][]float32, error) {
			return [][]float32{{1}}, nil
		},
	}
	e := NewEmbedder(mock, "all-minilm")

	if _, err := e.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error for short response")
	}
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	mock := &mockEngine{
		embedBatchFn: func(_ context.Context, _ string, _ []string) ([][]float32, error) {
			t.Fatal("should not be called for empty input")
			return nil, nil
		},
	}
	e := NewEmbedder(mock, "all-minilm")

	vecs, err := e.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if vecs != nil {
		t.Errorf("got %v, want nil", vecs)
	}
}

// memCache is an in-memory VectorCache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]float32
	puts int
}

func (c *memCache) GetMany(_ context.Context, model string, texts []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = c.data[model+"|"+t]
	}
	return out, nil
}

func (c *memCache) PutMany(_ context.Context, model string, texts []string, vecs [][]float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	for i, t := range texts {
		c.data[model+"|"+t] = vecs[i]
	}
	return nil
}

func TestEmbedBatch_UsesCache(t *testing.T) {
	var sent []string
	mock := &mockEngine{
		embedBatchFn: func(_ context.Context, _ string, texts []string) ([][]float32, error) {
			sent = append(sent, texts...)
			out := make([][]float32, len(texts))
			for i := range texts {
				out[i] = []float32{2}
			}
			return out, nil
		},
	}
	cache := &memCache{data: map[string][]float32{"all-minilm|a": {1}}}
	e := NewEmbedder(mock, "all-minilm", WithCache(cache))

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][0] != 2 {
		t.Errorf("vecs = %v, want [[1] [2]]", vecs)
	}
	if len(sent) != 1 || sent[0] != "b" {
		t.Errorf("engine saw %v, want only the cache miss", sent)
	}
	if cache.data["all-minilm|b"] == nil {
		t.Error("miss not written back to cache")
	}

	sent = nil
	if _, err := e.EmbedBatch(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("second EmbedBatch: %v", err)
	}
	if len(sent) != 0 {
		t.Errorf("engine called on fully cached batch with %v", sent)
	}
}
