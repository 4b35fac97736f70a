// Package content keeps per-language vector indexes over the authored
// categories and text responses.
package content

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kalambet/askbot/internal/lang"
	"github.com/kalambet/askbot/internal/normalize"
	"github.com/kalambet/askbot/internal/retrieval"
	"github.com/kalambet/askbot/internal/storage"
)

// Source lists the content the cache indexes.
type Source interface {
	ListVisibleCategories(ctx context.Context) ([]storage.Category, error)
	ListTextResponses(ctx context.Context) ([]storage.Response, error)
}

// Embedder produces vectors for cleaned texts.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Observer is notified of cache builds. It may be nil.
type Observer interface {
	CacheBuilt(l lang.Code, categories, responses int, d time.Duration)
	CacheBuildFailed(l lang.Code)
}

// Entry is the published index pair for one language.
type Entry struct {
	Categories *retrieval.Index[storage.Category]
	Responses  *retrieval.Index[storage.Response]

	// every visible category, including those left out of the index
	categoryByID map[int64]storage.Category
}

// Category returns a visible category by id.
func (e *Entry) Category(id int64) (storage.Category, bool) {
	c, ok := e.categoryByID[id]
	return c, ok
}

// Cache lazily builds one Entry per language and keeps it for the life of
// the process. Content edited after a build is not reflected until restart.
type Cache struct {
	source   Source
	embedder Embedder
	observer Observer

	group   singleflight.Group
	mu      sync.RWMutex
	entries map[lang.Code]*Entry
}

// New creates an empty Cache.
func New(source Source, embedder Embedder, observer Observer) *Cache {
	return &Cache{
		source:   source,
		embedder: embedder,
		observer: observer,
		entries:  make(map[lang.Code]*Entry),
	}
}

// Entry returns the published entry for l, if any.
func (c *Cache) Entry(l lang.Code) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[l]
	return e, ok
}

// Languages returns the languages with a published entry.
func (c *Cache) Languages() []lang.Code {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []lang.Code
	for _, l := range lang.All {
		if _, ok := c.entries[l]; ok {
			out = append(out, l)
		}
	}
	return out
}

// EnsureLoaded builds the entry for l unless one is already published.
// Concurrent callers for the same language share a single build. A
// language with no content is left absent and is not an error; such a
// language is rebuilt on the next call.
func (c *Cache) EnsureLoaded(ctx context.Context, l lang.Code) error {
	if _, ok := c.Entry(l); ok {
		return nil
	}
	_, err, _ := c.group.Do(string(l), func() (any, error) {
		if _, ok := c.Entry(l); ok {
			return nil, nil
		}
		// The build outlives a cancelled caller; other waiters still need it.
		return nil, c.build(context.WithoutCancel(ctx), l)
	})
	return err
}

func (c *Cache) build(ctx context.Context, l lang.Code) error {
	start := time.Now()

	cats, err := c.source.ListVisibleCategories(ctx)
	if err != nil {
		c.failed(l)
		return fmt.Errorf("loading categories: %w", err)
	}
	resps, err := c.source.ListTextResponses(ctx)
	if err != nil {
		c.failed(l)
		return fmt.Errorf("loading responses: %w", err)
	}

	catIdx, err := buildIndex(ctx, c.embedder, cats, func(cat storage.Category) string {
		return normalize.Normalize(cat.Names.Get(l), l)
	})
	if err != nil {
		c.failed(l)
		return fmt.Errorf("indexing %s categories: %w", l, err)
	}
	respIdx, err := buildIndex(ctx, c.embedder, resps, func(r storage.Response) string {
		return normalize.Normalize(r.Answers.Get(l), l)
	})
	if err != nil {
		c.failed(l)
		return fmt.Errorf("indexing %s responses: %w", l, err)
	}

	if catIdx.Len() == 0 && respIdx.Len() == 0 {
		slog.Debug("no content for language, cache entry left absent", "lang", l)
		return nil
	}

	byID := make(map[int64]storage.Category, len(cats))
	for _, cat := range cats {
		byID[cat.ID] = cat
	}

	c.mu.Lock()
	c.entries[l] = &Entry{Categories: catIdx, Responses: respIdx, categoryByID: byID}
	c.mu.Unlock()

	d := time.Since(start)
	slog.Info("content cache built", "lang", l, "categories", catIdx.Len(), "responses", respIdx.Len(), "duration", d)
	if c.observer != nil {
		c.observer.CacheBuilt(l, catIdx.Len(), respIdx.Len(), d)
	}
	return nil
}

func (c *Cache) failed(l lang.Code) {
	if c.observer != nil {
		c.observer.CacheBuildFailed(l)
	}
}

// buildIndex cleans every item's text and embeds the non-empty ones in one
// batch. Items whose cleaned text is empty are left out so the three
// sequences stay aligned.
func buildIndex[T any](ctx context.Context, e Embedder, items []T, clean func(T) string) (*retrieval.Index[T], error) {
	var kept []T
	var texts []string
	for _, it := range items {
		t := clean(it)
		if t == "" {
			continue
		}
		kept = append(kept, it)
		texts = append(texts, t)
	}
	if len(texts) == 0 {
		return retrieval.NewIndex[T](nil, nil, nil)
	}
	vecs, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	return retrieval.NewIndex(kept, texts, vecs)
}

// Match is a scored hit in one of the indexes.
type Match[T any] struct {
	Position int
	Item     T
	Score    float64
}

// Query is an embedded, cleaned utterance ready to be matched against one
// language's entry. Reusing it avoids embedding the utterance twice.
type Query struct {
	entry *Entry
	vec   []float32
}

// Prepare embeds cleaned for matching against l. ok is false when there
// are no candidates, in which case no embedding call is made.
func (c *Cache) Prepare(ctx context.Context, l lang.Code, cleaned string) (Query, bool, error) {
	e, ok := c.Entry(l)
	if !ok || cleaned == "" {
		return Query{}, false, nil
	}
	vec, err := c.embedder.Embed(ctx, cleaned)
	if err != nil {
		return Query{}, false, fmt.Errorf("embedding query: %w", err)
	}
	return Query{entry: e, vec: vec}, true, nil
}

// Category returns a visible category by id.
func (q Query) Category(id int64) (storage.Category, bool) {
	return q.entry.Category(id)
}

// BestCategory returns the nearest category.
func (q Query) BestCategory() (Match[storage.Category], bool) {
	return best(q.entry.Categories, q.vec)
}

// BestResponse returns the nearest text response.
func (q Query) BestResponse() (Match[storage.Response], bool) {
	return best(q.entry.Responses, q.vec)
}

// NearTies returns every response scoring at least floor and within margin
// of the best response score, in index order.
func (q Query) NearTies(floor, margin float64) []Match[storage.Response] {
	idx := q.entry.Responses
	scores := idx.Scores(q.vec)
	var out []Match[storage.Response]
	for _, i := range idx.NearTies(q.vec, floor, margin) {
		out = append(out, Match[storage.Response]{Position: i, Item: idx.Item(i), Score: scores[i]})
	}
	return out
}

func best[T any](idx *retrieval.Index[T], vec []float32) (Match[T], bool) {
	i, score, ok := idx.Best(vec)
	if !ok {
		return Match[T]{}, false
	}
	return Match[T]{Position: i, Item: idx.Item(i), Score: score}, true
}

// BestCategory returns the nearest category for an already-cleaned query.
func (c *Cache) BestCategory(ctx context.Context, l lang.Code, cleaned string) (Match[storage.Category], bool, error) {
	q, ok, err := c.Prepare(ctx, l, cleaned)
	if !ok || err != nil {
		return Match[storage.Category]{}, false, err
	}
	m, ok := q.BestCategory()
	return m, ok, nil
}

// BestResponse returns the nearest text response for an already-cleaned query.
func (c *Cache) BestResponse(ctx context.Context, l lang.Code, cleaned string) (Match[storage.Response], bool, error) {
	q, ok, err := c.Prepare(ctx, l, cleaned)
	if !ok || err != nil {
		return Match[storage.Response]{}, false, err
	}
	m, ok := q.BestResponse()
	return m, ok, nil
}

// NearTies returns the near-tied responses for an already-cleaned query.
func (c *Cache) NearTies(ctx context.Context, l lang.Code, cleaned string, floor, margin float64) ([]Match[storage.Response], error) {
	q, ok, err := c.Prepare(ctx, l, cleaned)
	if !ok || err != nil {
		return nil, err
	}
	return q.NearTies(floor, margin), nil
}
