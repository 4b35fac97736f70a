package lang

import (
	"log/slog"
	"unicode"

	"github.com/RadhiFadlillah/whatlanggo"
)

var detectOptions = whatlanggo.Options{
	Whitelist: map[whatlanggo.Lang]bool{
		whatlanggo.Fra: true,
		whatlanggo.Eng: true,
		whatlanggo.Arb: true,
	},
}

// Identifier detects the language of free text among the supported
// languages. Detection never fails: anything it cannot place resolves to the
// fallback language.
type Identifier struct {
	fallback Code
	detect   func(text string) (guess, bool)
	hint     func(text string) (Code, bool)
}

// guess is a detector's answer. Unreliable guesses are only used when no
// hint settles the question.
type guess struct {
	code     Code
	reliable bool
}

// IdentifierOption configures an Identifier.
type IdentifierOption func(*Identifier)

// WithHints consults hint when statistical detection is not confident, as
// happens for short or formulaic utterances ("hello", "bonjour").
func WithHints(hint func(text string) (Code, bool)) IdentifierOption {
	return func(id *Identifier) { id.hint = hint }
}

// NewIdentifier returns an Identifier that degrades to fallback. An invalid
// fallback is replaced by EN.
func NewIdentifier(fallback Code, opts ...IdentifierOption) *Identifier {
	if !fallback.Valid() {
		fallback = EN
	}
	id := &Identifier{fallback: fallback, detect: detect}
	for _, o := range opts {
		o(id)
	}
	return id
}

// Fallback returns the language used when detection is inconclusive.
func (id *Identifier) Fallback() Code {
	return id.fallback
}

// Identify returns the detected language of text.
func (id *Identifier) Identify(text string) (code Code) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("language detection panicked, using fallback", "fallback", id.fallback, "panic", r)
			code = id.fallback
		}
	}()

	letters, arabic := countLetters(text)
	if letters == 0 {
		return id.fallback
	}
	// Arabic script is unambiguous among the supported languages.
	if arabic*2 > letters {
		return AR
	}

	g, ok := id.detect(text)
	if ok && g.reliable {
		return g.code
	}
	if id.hint != nil {
		if c, ok := id.hint(text); ok {
			return c
		}
	}
	slog.Debug("language detection inconclusive", "guess", g.code, "fallback", id.fallback)
	return id.fallback
}

func detect(text string) (guess, bool) {
	info := whatlanggo.DetectWithOptions(text, detectOptions)
	g := guess{reliable: info.IsReliable()}
	switch info.Lang {
	case whatlanggo.Fra:
		g.code = FR
	case whatlanggo.Eng:
		g.code = EN
	case whatlanggo.Arb:
		g.code = AR
	default:
		return guess{}, false
	}
	return g, true
}

func countLetters(text string) (letters, arabic int) {
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Arabic, r) {
			arabic++
		}
	}
	return letters, arabic
}
