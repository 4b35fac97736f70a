// Package engine abstracts the embedding backend behind an interface so the
// retrieval layer and its tests do not depend on a live Ollama.
package engine

import (
	"context"

	"github.com/kalambet/askbot/internal/ollama"
)

// PullProgress reports download progress for a model pull.
type PullProgress = ollama.PullProgress

type Engine interface {
	// Embed returns the embedding of text under model.
	Embed(ctx context.Context, model string, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error)

	IsRunning(ctx context.Context) bool
	ListModels(ctx context.Context) ([]string, error)
	HasModel(ctx context.Context, name string) bool

	// PullModel downloads a model. onProgress may be nil.
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}
