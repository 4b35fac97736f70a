// Package normalize turns raw text into the canonical per-language keys used
// for matching.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kalambet/askbot/internal/lang"
)

// Normalize returns the canonical matching key for text in language l:
// lower-cased, without diacritics, punctuation or digits, single-spaced, and
// with the language's stopwords removed. Arabic letter variants are folded
// before stopword removal. Unsupported languages get no stopword removal.
func Normalize(text string, l lang.Code) string {
	toks := tokens(text)
	if len(toks) == 0 {
		return ""
	}
	if l == lang.AR {
		for i, t := range toks {
			toks[i] = foldArabic(t)
		}
	}

	stop := Stopwords(l)
	kept := toks[:0]
	for _, t := range toks {
		if _, ok := stop[t]; ok {
			continue
		}
		kept = append(kept, t)
	}
	return strings.Join(kept, " ")
}

// Fold applies the language-independent part of Normalize: case, marks,
// punctuation, digits and whitespace. Stopwords are kept.
func Fold(text string) string {
	return strings.Join(tokens(text), " ")
}

func tokens(text string) []string {
	if text == "" {
		return nil
	}
	// Casers and chained transformers carry state, so each call builds its own.
	lowered := cases.Lower(language.Und).String(text)
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), lowered)
	if err != nil {
		stripped = lowered
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case unicode.IsLetter(r), r == '_':
			b.WriteRune(r)
		}
	}
	return strings.Fields(b.String())
}

var arabicFolds = strings.NewReplacer(
	"ى", "ي",
	"ة", "ه",
	"أ", "ا",
	"إ", "ا",
	"آ", "ا",
)

func foldArabic(s string) string {
	return arabicFolds.Replace(s)
}
