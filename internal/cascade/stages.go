package cascade

import (
	"context"
	"log/slog"

	"github.com/kalambet/askbot/internal/convo"
	"github.com/kalambet/askbot/internal/intent"
	"github.com/kalambet/askbot/internal/lang"
	"github.com/kalambet/askbot/internal/normalize"
	"github.com/kalambet/askbot/internal/storage"
)

func (e *Engine) prepare(_ context.Context, t *turn) (*Result, error) {
	if blank(t.utterance) {
		return nil, ErrEmptyInput
	}
	t.lang = e.identifier.Identify(t.utterance)
	t.cleaned = normalize.Normalize(t.utterance, t.lang)
	return nil, nil
}

// rankIntent ranks the raw utterance once per turn.
func (e *Engine) rankIntent(ctx context.Context, t *turn) error {
	if t.intentDone {
		return nil
	}
	tag, score, ok, err := e.intents.Best(ctx, t.utterance)
	if err != nil {
		return err
	}
	t.intentDone = true
	t.intentTag, t.intentScore, t.intentOK = tag, score, ok
	return nil
}

func (e *Engine) intentAccepted(t *turn) bool {
	return t.intentOK && t.intentScore >= e.thresholds.Intent
}

func (e *Engine) followUp(ctx context.Context, t *turn) (*Result, error) {
	if t.session == nil {
		return nil, nil
	}
	last, ok, err := convo.Load(ctx, t.session)
	if err != nil {
		slog.Warn("ignoring unreadable conversation context", "error", err)
		return nil, nil
	}
	if !ok {
		return nil, nil
	}

	if err := e.rankIntent(ctx, t); err != nil {
		return nil, err
	}
	target, found := lang.Code(""), false
	if e.intentAccepted(t) {
		target, found = intent.TranslateTarget(t.intentTag)
	}
	if !found {
		target, found = convo.KeywordTarget(t.utterance)
	}
	if !found {
		return nil, nil
	}

	return &Result{
		Kind:         Kind(last.Kind),
		Lang:         target,
		Text:         last.Texts.Get(target),
		ResponseType: last.ResponseType,
		Category:     last.Category,
		ResponseID:   last.ResponseID,
		FileURL:      last.FileURL,
		FollowUp:     true,
	}, nil
}

// matchIntent answers greetings and other small talk. It does not touch the
// conversation context, so a follow-up still refers to the last real answer.
func (e *Engine) matchIntent(ctx context.Context, t *turn) (*Result, error) {
	if err := e.rankIntent(ctx, t); err != nil {
		return nil, err
	}
	if !e.intentAccepted(t) {
		return nil, nil
	}
	return &Result{
		Kind:         KindIntent,
		Text:         e.intents.SelectResponse(t.intentTag, t.lang),
		ResponseType: string(KindIntent),
		Intent:       t.intentTag,
		Score:        t.intentScore,
	}, nil
}

// prepareQuery loads the language's content and embeds the cleaned
// utterance once per turn.
func (e *Engine) prepareQuery(ctx context.Context, t *turn) error {
	if t.queryDone {
		return nil
	}
	if err := e.cache.EnsureLoaded(ctx, t.lang); err != nil {
		return err
	}
	q, ok, err := e.cache.Prepare(ctx, t.lang, t.cleaned)
	if err != nil {
		return err
	}
	t.queryDone = true
	t.query, t.queryOK = q, ok
	return nil
}

func (e *Engine) matchCategory(ctx context.Context, t *turn) (*Result, error) {
	if err := e.prepareQuery(ctx, t); err != nil {
		return nil, err
	}
	if !t.queryOK {
		return nil, nil
	}
	m, ok := t.query.BestCategory()
	if !ok || m.Score < e.thresholds.Content {
		return nil, nil
	}

	resps, err := e.store.ListResponsesForCategory(ctx, m.Item.ID, storage.TypeText)
	if err != nil {
		return nil, err
	}
	if len(resps) == 0 {
		return nil, nil
	}
	r := resps[0]
	res := &Result{
		Kind:         KindCategory,
		Text:         r.Answers.Get(t.lang),
		ResponseType: string(r.Type),
		Category:     m.Item.Label(t.lang),
		ResponseID:   r.ID,
		FileURL:      r.FileURL,
		Score:        m.Score,
	}
	e.remember(ctx, t, res, r.Answers)
	return res, nil
}

func (e *Engine) matchContent(ctx context.Context, t *turn) (*Result, error) {
	if err := e.prepareQuery(ctx, t); err != nil {
		return nil, err
	}
	if !t.queryOK {
		return nil, nil
	}

	if ties := t.query.NearTies(e.thresholds.Content, e.thresholds.TieMargin); len(ties) >= 2 {
		opts := make([]Candidate, len(ties))
		for i, m := range ties {
			opts[i] = Candidate{
				ResponseID: m.Item.ID,
				Category:   e.categoryLabel(t, m.Item.CategoryID),
				Preview:    preview(m.Item.Answers.Get(t.lang)),
			}
		}
		return &Result{
			Kind:         KindClarification,
			ResponseType: string(KindClarification),
			Score:        ties[0].Score,
			Options:      opts,
		}, nil
	}

	m, ok := t.query.BestResponse()
	if !ok || m.Score < e.thresholds.Content {
		return nil, nil
	}
	r := m.Item
	res := &Result{
		Kind:         KindContent,
		Text:         r.Answers.Get(t.lang),
		ResponseType: string(r.Type),
		Category:     e.categoryLabel(t, r.CategoryID),
		ResponseID:   r.ID,
		FileURL:      r.FileURL,
		Score:        m.Score,
	}
	e.remember(ctx, t, res, r.Answers)
	return res, nil
}

func (e *Engine) categoryLabel(t *turn, id int64) string {
	c, ok := t.query.Category(id)
	if !ok {
		return ""
	}
	return c.Label(t.lang)
}

func (e *Engine) fallback(ctx context.Context, t *turn) (*Result, error) {
	res := &Result{
		Kind:         KindNone,
		Text:         noAnswer.GetOr(t.lang, lang.EN),
		ResponseType: string(KindNone),
	}
	e.remember(ctx, t, res, noAnswer)
	return res, nil
}

// remember overwrites the session's conversation context with res. A
// failed write is logged; the answer is still delivered.
func (e *Engine) remember(ctx context.Context, t *turn, res *Result, texts lang.Texts) {
	if t.session == nil {
		return
	}
	entry := convo.Entry{
		Texts:        texts,
		Kind:         string(res.Kind),
		ResponseType: res.ResponseType,
		Category:     res.Category,
		ResponseID:   res.ResponseID,
		FileURL:      res.FileURL,
	}
	if err := convo.Save(ctx, t.session, entry); err != nil {
		slog.Warn("could not save conversation context", "error", err)
	}
}
