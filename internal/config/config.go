package config

import (
	"fmt"
	"time"

	"github.com/kalambet/askbot/internal/lang"
)

type Config struct {
	Server  ServerConfig
	Ollama  OllamaConfig
	Storage StorageConfig
	Intents IntentsConfig
	Session SessionConfig
	Lang    LangConfig
	Match   MatchConfig
	Cache   CacheConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
	// AdminToken guards the /admin routes. Empty disables them.
	AdminToken string
}

type OllamaConfig struct {
	BaseURL      string
	EmbedModel   string
	EmbedTimeout string
}

type StorageConfig struct {
	DataDir string
}

type IntentsConfig struct {
	// File is a JSON intent definition file. Empty uses the built-in set.
	File string
}

type SessionConfig struct {
	Backend  string
	RedisURL string
	TTL      string
}

type LangConfig struct {
	Default string
}

type MatchConfig struct {
	IntentThreshold  float64
	ContentThreshold float64
	TieMargin        float64
}

type CacheConfig struct {
	Preload bool
}

type LogConfig struct {
	Level string
}

const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 5000,
		},
		Ollama: OllamaConfig{
			BaseURL:      "http://localhost:11434",
			EmbedModel:   "nomic-embed-text",
			EmbedTimeout: "10s",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Session: SessionConfig{
			Backend: SessionMemory,
			TTL:     "24h",
		},
		Lang: LangConfig{
			Default: string(lang.FR),
		},
		Match: MatchConfig{
			IntentThreshold:  0.6,
			ContentThreshold: 0.3,
			TieMargin:        0.05,
		},
		Cache: CacheConfig{
			Preload: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and
// environment variables.
//
// On macOS the backend is UserDefaults (domain: com.askbot.app).
// On Linux the backend is a YAML file at $XDG_CONFIG_HOME/askbot/config.yaml.
//
// Environment variables (ASKBOT_*) override backend values on all platforms.
// Secrets such as the admin token are read from the environment only.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Session.Backend {
	case SessionMemory:
	case SessionRedis:
		if c.Session.RedisURL == "" {
			return fmt.Errorf("session.backend is %q but session.redis_url is empty", SessionRedis)
		}
	default:
		return fmt.Errorf("invalid session.backend %q: want %q or %q", c.Session.Backend, SessionMemory, SessionRedis)
	}
	if !lang.Code(c.Lang.Default).Valid() {
		return fmt.Errorf("invalid lang.default %q: want fr, en or ar", c.Lang.Default)
	}
	for key, v := range map[string]float64{
		"match.intent_threshold":  c.Match.IntentThreshold,
		"match.content_threshold": c.Match.ContentThreshold,
		"match.tie_margin":        c.Match.TieMargin,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", key, v)
		}
	}
	for key, v := range map[string]string{
		"ollama.embed_timeout": c.Ollama.EmbedTimeout,
		"session.ttl":          c.Session.TTL,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
	}
	return nil
}

// EmbedTimeoutDuration is the per-call embedding deadline.
func (c OllamaConfig) EmbedTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.EmbedTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// TTLDuration is how long an idle session is kept.
func (c SessionConfig) TTLDuration() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// DefaultLang is the fallback language for utterances that cannot be
// identified.
func (c LangConfig) DefaultLang() lang.Code {
	if l := lang.Code(c.Default); l.Valid() {
		return l
	}
	return lang.FR
}
