// Package preload warms the content cache in the background so the first
// question in each language does not pay for the index build.
package preload

import (
	"context"
	"log/slog"
	"time"

	"github.com/kalambet/askbot/internal/lang"
)

// Loader builds the content indexes of one language.
type Loader interface {
	EnsureLoaded(ctx context.Context, l lang.Code) error
}

// Worker loads every language once, retrying failed ones until ctx is
// cancelled.
type Worker struct {
	loader Loader
	langs  []lang.Code
	retry  time.Duration
	logger *slog.Logger
}

// NewWorker creates a Worker for langs. If retry is <= 0, it defaults to 30s.
func NewWorker(loader Loader, langs []lang.Code, retry time.Duration) *Worker {
	if retry <= 0 {
		retry = 30 * time.Second
	}
	return &Worker{
		loader: loader,
		langs:  langs,
		retry:  retry,
		logger: slog.Default(),
	}
}

// Run loads until every language succeeded or ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	pending := w.langs
	for {
		if ctx.Err() != nil {
			return
		}

		pending = w.RunOnce(ctx, pending)
		if len(pending) == 0 {
			w.logger.Info("content preloaded", "languages", len(w.langs))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retry):
		}
	}
}

// RunOnce tries each language in langs and returns those that failed.
func (w *Worker) RunOnce(ctx context.Context, langs []lang.Code) []lang.Code {
	var failed []lang.Code
	for _, l := range langs {
		if ctx.Err() != nil {
			return append(failed, l)
		}
		start := time.Now()
		if err := w.loader.EnsureLoaded(ctx, l); err != nil {
			w.logger.Warn("preloading content failed", "lang", l, "error", err)
			failed = append(failed, l)
			continue
		}
		w.logger.Debug("content loaded", "lang", l, "duration", time.Since(start))
	}
	return failed
}
