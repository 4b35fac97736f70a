package convo

import (
	"strings"

	"github.com/kalambet/askbot/internal/lang"
	"github.com/kalambet/askbot/internal/normalize"
)

// languageNames lists, per target language, the words that name it. They
// are matched against folded tokens, so accents and case do not matter.
var languageNames = []struct {
	code  lang.Code
	words []string
}{
	{lang.AR, []string{"arabic", "arabe", "عربي", "العربية", "بالعربية", "عربية"}},
	{lang.FR, []string{"french", "francais", "français", "فرنسي", "الفرنسية", "بالفرنسية", "فرنسية"}},
	{lang.EN, []string{"english", "anglais", "انجليزي", "الانجليزية", "بالانجليزية", "انجليزية"}},
}

// requestWords may surround a language name in a translation request
// ("translate it into english", "en arabe svp", "ترجم إلى الفرنسية").
var requestWords = []string{
	"in", "into", "to", "the", "it", "that", "this", "please", "translate", "translation", "say", "answer", "reply", "response", "or",
	"en", "vers", "au", "le", "la", "ca", "cela", "moi", "svp", "stp", "traduis", "traduire", "traduction", "version", "reponse", "reponds", "dis", "ou",
	"ترجم", "ترجمة", "الى", "باللغة", "اللغة", "من", "فضلك", "لو", "سمحت",
}

// shortRequest is the token count up to which any utterance naming a
// language is taken as a translation request.
const shortRequest = 3

var (
	keywordIndex = buildKeywordIndex()
	requestIndex = buildRequestIndex()
)

func buildKeywordIndex() map[string]lang.Code {
	idx := make(map[string]lang.Code)
	for _, n := range languageNames {
		for _, w := range n.words {
			idx[normalize.Fold(w)] = n.code
		}
	}
	return idx
}

func buildRequestIndex() map[string]struct{} {
	idx := make(map[string]struct{}, len(requestWords))
	for _, w := range requestWords {
		idx[normalize.Fold(w)] = struct{}{}
	}
	return idx
}

// KeywordTarget finds the language asked for in a translation request. A
// bare two-letter code ("ar", "en", "fr") counts only when it is the whole
// utterance. A language name counts when the utterance is short, or when
// every other word belongs to the request vocabulary; the first name wins.
// A longer question that merely mentions a language is not a request.
func KeywordTarget(utterance string) (lang.Code, bool) {
	folded := normalize.Fold(utterance)
	if folded == "" {
		return "", false
	}
	if c, ok := lang.Parse(folded); ok {
		return c, true
	}

	toks := strings.Fields(folded)
	target, found := lang.Code(""), false
	onlyRequest := true
	for _, tok := range toks {
		if c, ok := keywordIndex[tok]; ok {
			if !found {
				target, found = c, true
			}
			continue
		}
		if _, ok := requestIndex[tok]; !ok {
			onlyRequest = false
		}
	}
	if !found || (len(toks) > shortRequest && !onlyRequest) {
		return "", false
	}
	return target, true
}
