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
		key: "server.port", typ: kInt, env: "INSPECTD_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.max_connections", typ: kInt, env: "INSPECTD_SERVER_MAX_CONNECTIONS",
		apply:   func(cfg *Config, v any) { cfg.Server.MaxConnections = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MaxConnections },
	},
	{
		key: "server.max_upload_mb", typ: kInt, env: "INSPECTD_SERVER_MAX_UPLOAD_MB",
		apply:   func(cfg *Config, v any) { cfg.Server.MaxUploadMB = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MaxUploadMB },
	},
	{
		key: "server.rate_limit_rps", typ: kFloat, env: "INSPECTD_SERVER_RATE_LIMIT_RPS",
		apply:   func(cfg *Config, v any) { cfg.Server.RateLimitRPS = v.(float64) },
		extract: func(cfg Config) any { return cfg.Server.RateLimitRPS },
	},
	{
		key: "server.rate_limit_burst", typ: kInt, env: "INSPECTD_SERVER_RATE_LIMIT_BURST",
		apply:   func(cfg *Config, v any) { cfg.Server.RateLimitBurst = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.RateLimitBurst },
	},
	{
		key: "completion.provider", typ: kString, env: "INSPECTD_COMPLETION_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.Completion.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.Provider },
	},
	{
		key: "completion.model", typ: kString, env: "INSPECTD_COMPLETION_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Completion.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.Model },
	},
	{
		key: "completion.anthropic_api_key", typ: kString, env: "INSPECTD_ANTHROPIC_API_KEY",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Completion.AnthropicAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.AnthropicAPIKey },
	},
	{
		key: "completion.openrouter_api_key", typ: kString, env: "INSPECTD_OPENROUTER_API_KEY",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Completion.OpenRouterAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.OpenRouterAPIKey },
	},
	{
		key: "completion.ollama_base_url", typ: kString, env: "INSPECTD_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Completion.OllamaBaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.OllamaBaseURL },
	},
	{
		key: "completion.warranty_timeout", typ: kString, env: "INSPECTD_COMPLETION_WARRANTY_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Completion.WarrantyTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.WarrantyTimeout },
	},
	{
		key: "cache.capacity", typ: kInt, env: "INSPECTD_CACHE_CAPACITY",
		apply:   func(cfg *Config, v any) { cfg.Cache.Capacity = v.(int) },
		extract: func(cfg Config) any { return cfg.Cache.Capacity },
	},
	{
		key: "storage.data_dir", typ: kString, env: "INSPECTD_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.upload_backend", typ: kString, env: "INSPECTD_STORAGE_UPLOAD_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Storage.UploadBackend = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.UploadBackend },
	},
	{
		key: "storage.upload_dir", typ: kString, env: "INSPECTD_STORAGE_UPLOAD_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.UploadDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.UploadDir },
	},
	{
		key: "storage.minio_endpoint", typ: kString, env: "INSPECTD_MINIO_ENDPOINT",
		apply:   func(cfg *Config, v any) { cfg.Storage.MinIOEndpoint = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.MinIOEndpoint },
	},
	{
		key: "storage.minio_access_key", typ: kString, env: "INSPECTD_MINIO_ACCESS_KEY",
		apply:   func(cfg *Config, v any) { cfg.Storage.MinIOAccessKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.MinIOAccessKey },
	},
	{
		key: "storage.minio_secret_key", typ: kString, env: "INSPECTD_MINIO_SECRET_KEY",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Storage.MinIOSecretKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.MinIOSecretKey },
	},
	{
		key: "storage.minio_bucket", typ: kString, env: "INSPECTD_MINIO_BUCKET",
		apply:   func(cfg *Config, v any) { cfg.Storage.MinIOBucket = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.MinIOBucket },
	},
	{
		key: "storage.minio_use_ssl", typ: kBool, env: "INSPECTD_MINIO_USE_SSL",
		apply:   func(cfg *Config, v any) { cfg.Storage.MinIOUseSSL = v.(bool) },
		extract: func(cfg Config) any { return cfg.Storage.MinIOUseSSL },
	},
	{
		key: "mail.host", typ: kString, env: "INSPECTD_MAIL_HOST",
		apply:   func(cfg *Config, v any) { cfg.Mail.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Mail.Host },
	},
	{
		key: "mail.port", typ: kInt, env: "INSPECTD_MAIL_PORT",
		apply:   func(cfg *Config, v any) { cfg.Mail.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Mail.Port },
	},
	{
		key: "mail.username", typ: kString, env: "INSPECTD_MAIL_USERNAME",
		apply:   func(cfg *Config, v any) { cfg.Mail.Username = v.(string) },
		extract: func(cfg Config) any { return cfg.Mail.Username },
	},
	{
		key: "mail.password", typ: kString, env: "INSPECTD_MAIL_PASSWORD",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Mail.Password = v.(string) },
		extract: func(cfg Config) any { return cfg.Mail.Password },
	},
	{
		key: "mail.from", typ: kString, env: "INSPECTD_MAIL_FROM",
		apply:   func(cfg *Config, v any) { cfg.Mail.From = v.(string) },
		extract: func(cfg Config) any { return cfg.Mail.From },
	},
	{
		key: "log.level", typ: kString, env: "INSPECTD_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.file", typ: kString, env: "INSPECTD_LOG_FILE",
		apply:   func(cfg *Config, v any) { cfg.Log.File = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.File },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
