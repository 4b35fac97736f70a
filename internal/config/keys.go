package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "ASKBOT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.admin_token", typ: kString, env: "ASKBOT_ADMIN_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.AdminToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.AdminToken },
	},
	{
		key: "ollama.base_url", typ: kString, env: "ASKBOT_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.embed_model", typ: kString, env: "ASKBOT_OLLAMA_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.EmbedModel },
	},
	{
		key: "ollama.embed_timeout", typ: kString, env: "ASKBOT_OLLAMA_EMBED_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Ollama.EmbedTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.EmbedTimeout },
	},
	{
		key: "storage.data_dir", typ: kString, env: "ASKBOT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "intents.file", typ: kString, env: "ASKBOT_INTENTS_FILE",
		apply:   func(cfg *Config, v any) { cfg.Intents.File = v.(string) },
		extract: func(cfg Config) any { return cfg.Intents.File },
	},
	{
		key: "session.backend", typ: kString, env: "ASKBOT_SESSION_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Session.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Session.Backend },
	},
	{
		key: "session.redis_url", typ: kString, env: "ASKBOT_SESSION_REDIS_URL",
		apply:   func(cfg *Config, v any) { cfg.Session.RedisURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Session.RedisURL },
	},
	{
		key: "session.ttl", typ: kString, env: "ASKBOT_SESSION_TTL",
		apply:   func(cfg *Config, v any) { cfg.Session.TTL = v.(string) },
		extract: func(cfg Config) any { return cfg.Session.TTL },
	},
	{
		key: "lang.default", typ: kString, env: "ASKBOT_LANG_DEFAULT",
		apply:   func(cfg *Config, v any) { cfg.Lang.Default = v.(string) },
		extract: func(cfg Config) any { return cfg.Lang.Default },
	},
	{
		key: "match.intent_threshold", typ: kFloat, env: "ASKBOT_MATCH_INTENT_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Match.IntentThreshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Match.IntentThreshold },
	},
	{
		key: "match.content_threshold", typ: kFloat, env: "ASKBOT_MATCH_CONTENT_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Match.ContentThreshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Match.ContentThreshold },
	},
	{
		key: "match.tie_margin", typ: kFloat, env: "ASKBOT_MATCH_TIE_MARGIN",
		apply:   func(cfg *Config, v any) { cfg.Match.TieMargin = v.(float64) },
		extract: func(cfg Config) any { return cfg.Match.TieMargin },
	},
	{
		key: "cache.preload", typ: kBool, env: "ASKBOT_CACHE_PRELOAD",
		apply:   func(cfg *Config, v any) { cfg.Cache.Preload = v.(bool) },
		extract: func(cfg Config) any { return cfg.Cache.Preload },
	},
	{
		key: "log.level", typ: kString, env: "ASKBOT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

// parse converts raw into the type s.apply expects.
func (s keySpec) parse(raw string) (any, error) {
	switch s.typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	default:
		return raw, nil
	}
}

func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[WARN] "+format+" Using default value.\n", args...)
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}

		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (raw == "" && s.typ != kString) {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			warnf("could not parse config key %s=%q: %v.", s.key, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if s.env == "" || raw == "" {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			warnf("could not parse env var %s=%q: %v.", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
