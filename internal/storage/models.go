package storage

import (
	"errors"
	"time"

	"github.com/kalambet/askbot/internal/lang"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ResponseType tags how a response is delivered to the user.
type ResponseType string

const (
	TypeText    ResponseType = "text"
	TypeLink    ResponseType = "link"
	TypeContact ResponseType = "contact"
	TypeFile    ResponseType = "file"
	TypeChat    ResponseType = "chat"
)

// Valid reports whether t is a known response type.
func (t ResponseType) Valid() bool {
	switch t {
	case TypeText, TypeLink, TypeContact, TypeFile, TypeChat:
		return true
	}
	return false
}

// Category groups responses. ParentID is 0 for top-level categories.
type Category struct {
	ID         int64
	ParentID   int64
	Names      lang.Texts
	SourceLang lang.Code
	Visible    bool
}

// Label returns the display name in l, falling back to French.
func (c Category) Label(l lang.Code) string {
	return c.Names.GetOr(l, lang.FR)
}

// CategoryNode is a Category with the counts the browse API shows.
type CategoryNode struct {
	Category
	ChildCount    int
	ResponseCount int
}

// Response is a pre-authored answer owned by a category. Its visibility is
// that of its category.
type Response struct {
	ID         int64
	CategoryID int64
	Type       ResponseType
	Answers    lang.Texts
	FileURL    string
	SourceLang lang.Code
}

// Interaction records one answered turn.
type Interaction struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	SessionID  string    `json:"session_id"`
	Query      string    `json:"query"`
	Lang       string    `json:"lang"`
	Kind       string    `json:"kind"`
	ResponseID int64     `json:"response_id,omitempty"`
	Score      float64   `json:"score"`
}
