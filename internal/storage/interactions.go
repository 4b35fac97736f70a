package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const interactionColumns = `id, created_at, session_id, query, lang, kind, response_id, score`

// SaveInteraction appends one answered turn to the interaction log.
func (s *Store) SaveInteraction(ctx context.Context, i Interaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interactions (`+interactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.CreatedAt.UTC().Format(time.RFC3339), i.SessionID, i.Query, i.Lang,
		i.Kind, i.ResponseID, i.Score,
	)
	if err != nil {
		return fmt.Errorf("saving interaction %s: %w", i.ID, err)
	}
	return nil
}

// GetRecentInteractions returns the newest interactions first. A non-empty
// sessionID restricts the result to that session.
func (s *Store) GetRecentInteractions(ctx context.Context, sessionID string, limit int) ([]Interaction, error) {
	var q strings.Builder
	q.WriteString(`SELECT ` + interactionColumns + ` FROM interactions`)
	var args []any
	if sessionID != "" {
		q.WriteString(` WHERE session_id = ?`)
		args = append(args, sessionID)
	}
	q.WriteString(` ORDER BY created_at DESC, rowid DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying interactions: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var (
			i       Interaction
			created string
		)
		if err := rows.Scan(&i.ID, &created, &i.SessionID, &i.Query, &i.Lang, &i.Kind, &i.ResponseID, &i.Score); err != nil {
			return nil, fmt.Errorf("scanning interaction: %w", err)
		}
		if i.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("interaction %s: bad created_at %q: %w", i.ID, created, err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}
