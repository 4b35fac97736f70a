// Package convo stores the last delivered answer of a session so the next
// turn can ask for it in another language.
package convo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kalambet/askbot/internal/lang"
)

// LastAnswerKey is the session key holding the Entry. Transports must not
// read or write it.
const LastAnswerKey = "askbot.last_answer"

// Session is a per-conversation key/value store supplied by the transport.
// Get reports ok=false for a missing key.
type Session interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// Entry is the last answer delivered to a session, kept in every language.
type Entry struct {
	Texts        lang.Texts `json:"texts"`
	Kind         string     `json:"kind"`
	ResponseType string     `json:"response_type,omitempty"`
	Category     string     `json:"category,omitempty"`
	ResponseID   int64      `json:"response_id,omitempty"`
	FileURL      string     `json:"file_url,omitempty"`
}

// Load returns the session's entry. ok is false when none was saved.
func Load(ctx context.Context, s Session) (Entry, bool, error) {
	raw, ok, err := s.Get(ctx, LastAnswerKey)
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading last answer: %w", err)
	}
	if !ok || len(raw) == 0 {
		return Entry{}, false, nil
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decoding last answer: %w", err)
	}
	return e, true, nil
}

// Save overwrites the session's entry.
func Save(ctx context.Context, s Session, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := s.Set(ctx, LastAnswerKey, raw); err != nil {
		return fmt.Errorf("writing last answer: %w", err)
	}
	return nil
}
