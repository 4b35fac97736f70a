package normalize

import "github.com/kalambet/askbot/internal/lang"

// Conversational words that, with the stopwords, tell French from English in
// utterances too short for statistical detection.
var (
	frenchHintWords = []string{
		"bonjour", "bonsoir", "salut", "merci", "oui", "non", "comment", "je", "j",
		"mon", "ma", "mes", "votre", "vous", "est", "quel", "quelle", "où",
		"pourquoi", "quand", "puis", "peux", "faire", "obtenir", "veux", "il", "c",
	}
	englishHintWords = []string{
		"hello", "hi", "hey", "thanks", "thank", "yes", "how", "do", "does", "i",
		"my", "your", "you", "is", "are", "what", "where", "why", "when", "can",
		"get", "need", "want", "please", "good", "morning",
	}
)

var hintSets = map[lang.Code]map[string]struct{}{
	lang.FR: buildSet(append(append([]string(nil), frenchStopwords...), frenchHintWords...), nil),
	lang.EN: buildSet(append(append([]string(nil), englishStopwords...), englishHintWords...), nil),
}

// Hint picks French or English for text by counting the tokens that are
// stopwords or common conversational words of each. ok is false when
// neither language has more hits.
func Hint(text string) (lang.Code, bool) {
	var fr, en int
	for _, t := range tokens(text) {
		if _, ok := hintSets[lang.FR][t]; ok {
			fr++
		}
		if _, ok := hintSets[lang.EN][t]; ok {
			en++
		}
	}
	switch {
	case fr > en:
		return lang.FR, true
	case en > fr:
		return lang.EN, true
	}
	return "", false
}
