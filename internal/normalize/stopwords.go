package normalize

import "github.com/kalambet/askbot/internal/lang"

var (
	frenchStopwords = []string{
		"les", "des", "aux", "du", "de", "la", "le", "un", "une", "et", "ou",
		"pour", "avec", "sur", "dans", "parmi", "au", "en", "vers",
	}
	englishStopwords = []string{
		"the", "a", "an", "in", "on", "at", "of", "and", "or", "to", "with",
		"for", "by", "from", "about", "as",
	}
	arabicStopwords = []string{
		"من", "عن", "إلى", "في", "على", "مع", "ال", "و", "او", "ما", "هو", "هي",
		"هذا", "هذه", "ذلك", "تلك",
	}
)

var stopwordSets = map[lang.Code]map[string]struct{}{
	lang.FR: buildSet(frenchStopwords, nil),
	lang.EN: buildSet(englishStopwords, nil),
	lang.AR: buildSet(arabicStopwords, foldArabic),
}

// buildSet runs every word through the same pipeline as input text so the
// set matches normalized tokens.
func buildSet(words []string, fold func(string) string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		for _, t := range tokens(w) {
			if fold != nil {
				t = fold(t)
			}
			set[t] = struct{}{}
		}
	}
	return set
}

// Stopwords returns the stopword set for l. Unsupported languages yield an
// empty (nil) set.
func Stopwords(l lang.Code) map[string]struct{} {
	return stopwordSets[l]
}
