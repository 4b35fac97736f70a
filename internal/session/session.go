// Package session provides the per-conversation key/value stores handed to
// the matching cascade.
package session

import (
	"context"

	"github.com/kalambet/askbot/internal/convo"
)

// Store hands out sessions by id.
type Store interface {
	// Session returns the handle for id. The session springs into existence
	// on first write.
	Session(id string) convo.Session

	// Reset forgets everything stored for id.
	Reset(ctx context.Context, id string) error

	Close() error
}
