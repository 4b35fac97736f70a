package engine

import "github.com/kalambet/askbot/internal/ollama"

// OllamaEngine is the Engine backed by an Ollama server.
type OllamaEngine struct {
	*ollama.Client
}

func NewOllamaEngine(baseURL string) *OllamaEngine {
	return &OllamaEngine{Client: ollama.New(baseURL)}
}
