// Package cascade answers an utterance by trying, in order, a conversation
// follow-up, the intents, the category names and the response texts, and
// falling back to a canned reply.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/askbot/internal/content"
	"github.com/kalambet/askbot/internal/convo"
	"github.com/kalambet/askbot/internal/lang"
	"github.com/kalambet/askbot/internal/metrics"
	"github.com/kalambet/askbot/internal/storage"
)

// ErrEmptyInput is returned for an utterance with no visible characters.
var ErrEmptyInput = errors.New("empty input")

// Identifier picks the language of an utterance. It never fails.
type Identifier interface {
	Identify(text string) lang.Code
}

// Intents ranks raw utterances against the conversational intents.
type Intents interface {
	Best(ctx context.Context, utterance string) (tag string, score float64, ok bool, err error)
	SelectResponse(tag string, l lang.Code) string
}

// CategoryResponses lists the responses of one category.
type CategoryResponses interface {
	ListResponsesForCategory(ctx context.Context, categoryID int64, excludeType storage.ResponseType) ([]storage.Response, error)
}

// Thresholds are the similarity cut-offs of the cascade. Scores equal to a
// threshold are accepted.
type Thresholds struct {
	Intent    float64
	Content   float64
	TieMargin float64
}

// DefaultThresholds returns the stock cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{Intent: 0.6, Content: 0.3, TieMargin: 0.05}
}

// Engine runs the cascade. It is safe for concurrent use; turns of the same
// session must be serialized by the caller.
type Engine struct {
	identifier Identifier
	intents    Intents
	cache      *content.Cache
	store      CategoryResponses
	thresholds Thresholds
	metrics    *metrics.Metrics
	stages     []stage
}

// Option configures an Engine.
type Option func(*Engine)

// WithThresholds overrides the default cut-offs.
func WithThresholds(t Thresholds) Option {
	return func(e *Engine) { e.thresholds = t }
}

// WithMetrics records every turn.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine.
func New(identifier Identifier, intents Intents, cache *content.Cache, store CategoryResponses, opts ...Option) *Engine {
	e := &Engine{
		identifier: identifier,
		intents:    intents,
		cache:      cache,
		store:      store,
		thresholds: DefaultThresholds(),
	}
	for _, o := range opts {
		o(e)
	}
	e.stages = []stage{
		{"prepare", e.prepare},
		{"follow_up", e.followUp},
		{"intent", e.matchIntent},
		{"category", e.matchCategory},
		{"content", e.matchContent},
		{"default", e.fallback},
	}
	return e
}

// Thresholds returns the cut-offs in use.
func (e *Engine) Thresholds() Thresholds { return e.thresholds }

// Answer runs one turn for utterance within session s.
func (e *Engine) Answer(ctx context.Context, utterance string, s convo.Session) (Result, error) {
	start := time.Now()
	t := &turn{utterance: utterance, session: s}

	for _, st := range e.stages {
		res, err := st.run(ctx, t)
		if err != nil {
			e.metrics.ObserveError(st.name)
			if errors.Is(err, ErrEmptyInput) {
				return Result{}, err
			}
			return Result{}, fmt.Errorf("%s stage: %w", st.name, err)
		}
		if res == nil {
			continue
		}
		// A follow-up is in the language it was asked for.
		if res.Lang == "" {
			res.Lang = t.lang
		}
		slog.Debug("turn answered", "stage", st.name, "kind", res.Kind, "lang", res.Lang, "score", res.Score)
		e.metrics.ObserveAnswer(string(res.Kind), res.Lang, time.Since(start))
		return *res, nil
	}
	// The default stage always answers.
	return Result{}, errors.New("no stage produced a result")
}

// stage either answers the turn or defers to the next one by returning a
// nil Result.
type stage struct {
	name string
	run  func(ctx context.Context, t *turn) (*Result, error)
}

// turn carries what earlier stages learned about the utterance.
type turn struct {
	utterance string
	session   convo.Session
	lang      lang.Code
	cleaned   string

	intentDone  bool
	intentTag   string
	intentScore float64
	intentOK    bool

	queryDone bool
	query     content.Query
	queryOK   bool
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
