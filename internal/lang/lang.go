// Package lang defines the supported answer languages and language detection.
package lang

import "strings"

// Code is an ISO 639-1 code of a supported language.
type Code string

const (
	FR Code = "fr"
	EN Code = "en"
	AR Code = "ar"
)

// All lists the supported languages in their canonical order.
var All = []Code{FR, EN, AR}

// Parse returns the Code for s, ignoring case and surrounding space.
func Parse(s string) (Code, bool) {
	c := Code(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

// Valid reports whether c is one of the supported languages.
func (c Code) Valid() bool {
	switch c {
	case FR, EN, AR:
		return true
	}
	return false
}

func (c Code) String() string { return string(c) }

// Texts holds one variant of a string per supported language.
type Texts struct {
	FR string `json:"fr" yaml:"fr"`
	EN string `json:"en" yaml:"en"`
	AR string `json:"ar" yaml:"ar"`
}

// Get returns the variant for c, or "" for an unsupported code.
func (t Texts) Get(c Code) string {
	switch c {
	case FR:
		return t.FR
	case EN:
		return t.EN
	case AR:
		return t.AR
	}
	return ""
}

// GetOr returns the variant for c, falling back to the variant for fallback
// when the former is empty.
func (t Texts) GetOr(c, fallback Code) string {
	if v := t.Get(c); v != "" {
		return v
	}
	return t.Get(fallback)
}
