package intent

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/kalambet/askbot/internal/lang"
	"github.com/kalambet/askbot/internal/retrieval"
)

// noResponse is returned for an intent that has no replies in any language.
const noResponse = "..."

// Embedder produces embeddings for intent patterns and utterances.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Index ranks utterances against every intent pattern. It is read-only
// after construction and safe for concurrent use.
type Index struct {
	byTag    map[string]Intent
	patterns *retrieval.Index[string]
	embedder Embedder
	intn     func(n int) int
}

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithRand replaces the source used to pick among candidate replies.
// intn must return a value in [0, n).
func WithRand(intn func(n int) int) IndexOption {
	return func(x *Index) { x.intn = intn }
}

// NewIndex embeds every non-empty pattern once, remembering its tag.
func NewIndex(ctx context.Context, intents []Intent, e Embedder, opts ...IndexOption) (*Index, error) {
	x := &Index{
		byTag:    make(map[string]Intent, len(intents)),
		embedder: e,
		intn:     rand.IntN,
	}
	for _, o := range opts {
		o(x)
	}

	var tags, texts []string
	for _, in := range intents {
		x.byTag[in.Tag] = in
		for _, p := range in.Patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			tags = append(tags, in.Tag)
			texts = append(texts, p)
		}
	}

	vecs, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding intent patterns: %w", err)
	}
	if vecs == nil {
		vecs = [][]float32{}
	}
	idx, err := retrieval.NewIndex(tags, texts, vecs)
	if err != nil {
		return nil, err
	}
	x.patterns = idx

	slog.Debug("intent index built", "intents", len(intents), "patterns", idx.Len())
	return x, nil
}

// Len returns the number of indexed patterns.
func (x *Index) Len() int { return x.patterns.Len() }

// Rank returns the tag of the pattern most similar to vec. ok is false
// when no patterns are indexed.
func (x *Index) Rank(vec []float32) (tag string, score float64, ok bool) {
	i, score, ok := x.patterns.Best(vec)
	if !ok {
		return "", 0, false
	}
	return x.patterns.Item(i), score, true
}

// Best embeds utterance and ranks it. Thresholds are left to the caller.
func (x *Index) Best(ctx context.Context, utterance string) (tag string, score float64, ok bool, err error) {
	if x.patterns.Len() == 0 {
		return "", 0, false, nil
	}
	vec, err := x.embedder.Embed(ctx, utterance)
	if err != nil {
		return "", 0, false, fmt.Errorf("embedding utterance: %w", err)
	}
	tag, score, ok = x.Rank(vec)
	return tag, score, ok, nil
}

// SelectResponse picks a reply for tag: from the l list when it has
// entries, else from the French list, else from every list combined.
func (x *Index) SelectResponse(tag string, l lang.Code) string {
	in, ok := x.byTag[tag]
	if !ok {
		return noResponse
	}
	if rs := in.Responses[l]; len(rs) > 0 {
		return rs[x.intn(len(rs))]
	}
	if rs := in.Responses[lang.FR]; len(rs) > 0 {
		return rs[x.intn(len(rs))]
	}

	keys := make([]lang.Code, 0, len(in.Responses))
	for k := range in.Responses {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var all []string
	for _, k := range keys {
		all = append(all, in.Responses[k]...)
	}
	if len(all) == 0 {
		return noResponse
	}
	return all[x.intn(len(all))]
}
