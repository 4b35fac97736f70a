// Package intent holds the conversational intents recognised before any
// content lookup, and the index used to rank an utterance against them.
package intent

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kalambet/askbot/internal/lang"
)

//go:embed default_intents.json
var defaultIntents []byte

// TranslatePrefix marks intents that ask to repeat the last answer in
// another language, e.g. "translate_ar".
const TranslatePrefix = "translate_"

// Intent is a tagged group of example utterances with canned replies per
// language.
type Intent struct {
	Tag       string                 `json:"tag"`
	Patterns  []string               `json:"patterns"`
	Responses map[lang.Code][]string `json:"responses"`
}

type intentsFile struct {
	Intents []Intent `json:"intents"`
}

// Parse decodes an intents document of the form {"intents": [...]}.
func Parse(data []byte) ([]Intent, error) {
	var f intentsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding intents: %w", err)
	}
	seen := make(map[string]bool, len(f.Intents))
	for i, in := range f.Intents {
		tag := strings.TrimSpace(in.Tag)
		if tag == "" {
			return nil, fmt.Errorf("intent %d: empty tag", i)
		}
		if seen[tag] {
			return nil, fmt.Errorf("intent %d: duplicate tag %q", i, tag)
		}
		seen[tag] = true
		f.Intents[i].Tag = tag
	}
	return f.Intents, nil
}

// Load reads intents from path, or the built-in set when path is empty.
func Load(path string) ([]Intent, error) {
	if path == "" {
		return Parse(defaultIntents)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading intents file: %w", err)
	}
	return Parse(data)
}

// TranslateTarget returns the language named by a translate_<lang> tag.
func TranslateTarget(tag string) (lang.Code, bool) {
	rest, ok := strings.CutPrefix(tag, TranslatePrefix)
	if !ok {
		return "", false
	}
	return lang.Parse(rest)
}
