package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/askbot/internal/engine"
	"golang.org/x/sync/errgroup"
)

const (
	defaultEmbedTimeout = 10 * time.Second
	defaultBatchSize    = 64
)

// Embedder wraps an Engine to generate text embeddings with bounded latency.
type Embedder struct {
	engine    engine.Engine
	model     string
	timeout   time.Duration
	batchSize int
	cache     VectorCache
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithTimeout bounds every call to the engine. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Embedder) { e.timeout = d }
}

// WithBatchSize sets how many texts go into one engine call.
func WithBatchSize(n int) Option {
	return func(e *Embedder) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithCache makes EmbedBatch consult and fill a persistent vector cache.
func WithCache(c VectorCache) Option {
	return func(e *Embedder) { e.cache = c }
}

// NewEmbedder creates an Embedder using the given Engine and model name.
func NewEmbedder(e engine.Engine, model string, opts ...Option) *Embedder {
	em := &Embedder{
		engine:    e,
		model:     model,
		timeout:   defaultEmbedTimeout,
		batchSize: defaultBatchSize,
	}
	for _, o := range opts {
		o(em)
	}
	return em
}

// Model returns the embedding model name.
func (e *Embedder) Model() string { return e.model }

func (e *Embedder) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

// Embed returns the embedding vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := e.bounded(ctx)
	defer cancel()

	vec, err := e.engine.Embed(ctx, e.model, text)
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	return vec, nil
}

// EmbedBatch returns embedding vectors for multiple texts in input order.
// Texts found in the cache are not sent to the engine; the rest are split
// into chunks embedded concurrently. Returns nil (not error) for empty/nil input.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	if e.cache != nil {
		cached, err := e.cache.GetMany(ctx, e.model, texts)
		if err != nil {
			slog.Warn("embedding cache lookup failed", "model", e.model, "error", err)
		} else {
			copy(results, cached)
		}
	}

	var missing []int
	for i := range texts {
		if results[i] == nil {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return results, nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4) // Bound concurrency to avoid overwhelming the engine.

	for start := 0; start < len(missing); start += e.batchSize {
		chunk := missing[start:min(start+e.batchSize, len(missing))]
		g.Go(func() error {
			batch := make([]string, len(chunk))
			for j, i := range chunk {
				batch[j] = texts[i]
			}

			cctx, cancel := e.bounded(gCtx)
			defer cancel()
			vecs, err := e.engine.EmbedBatch(cctx, e.model, batch)
			if err != nil {
				return fmt.Errorf("embedding texts %d..%d: %w", chunk[0], chunk[len(chunk)-1], err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("embedding texts: got %d vectors for %d texts", len(vecs), len(batch))
			}
			for j, i := range chunk {
				results[i] = vecs[j]
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if e.cache != nil {
		fresh := make([]string, len(missing))
		vecs := make([][]float32, len(missing))
		for j, i := range missing {
			fresh[j] = texts[i]
			vecs[j] = results[i]
		}
		if err := e.cache.PutMany(ctx, e.model, fresh, vecs); err != nil {
			slog.Warn("embedding cache write failed", "model", e.model, "error", err)
		}
	}
	return results, nil
}
