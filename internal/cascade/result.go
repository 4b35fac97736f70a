package cascade

import "github.com/kalambet/askbot/internal/lang"

// Kind says which stage produced a Result.
type Kind string

const (
	KindIntent        Kind = "intent"
	KindCategory      Kind = "category"
	KindContent       Kind = "content"
	KindClarification Kind = "clarification"
	KindNone          Kind = "none"
)

// Result is the outcome of one turn.
type Result struct {
	Kind Kind      `json:"kind"`
	Lang lang.Code `json:"lang"`

	// Text is the answer shown to the user. Empty for clarifications and
	// for file or link responses without a caption.
	Text         string  `json:"response"`
	ResponseType string  `json:"type"`
	Category     string  `json:"category,omitempty"`
	ResponseID   int64   `json:"response_id,omitempty"`
	FileURL      string  `json:"file_url,omitempty"`
	Intent       string  `json:"intent,omitempty"`
	Score        float64 `json:"score"`

	// FollowUp is set when the turn repeated the previous answer in
	// another language. Kind is then the kind of that previous answer.
	FollowUp bool `json:"follow_up,omitempty"`

	Options []Candidate `json:"clarification_options,omitempty"`
}

// Candidate is one response offered in a clarification.
type Candidate struct {
	ResponseID int64  `json:"response_id"`
	Category   string `json:"category"`
	Preview    string `json:"preview"`
}

// previewLen is the number of runes of an answer shown in a Candidate.
const previewLen = 120

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen]) + "..."
}

// noAnswer is the canned reply when nothing matched.
var noAnswer = lang.Texts{
	FR: "Désolé, je n’ai pas trouvé de réponse à votre question.",
	EN: "Sorry, I couldn't find an answer to your question.",
	AR: "عذرًا، لم أتمكن من العثور على إجابة لسؤالك.",
}
