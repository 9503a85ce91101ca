package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Completion CompletionConfig
	Cache      CacheConfig
	Storage    StorageConfig
	Mail       MailConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port           int
	MaxConnections int
	MaxUploadMB    int
	RateLimitRPS   float64
	RateLimitBurst int
}

// CompletionConfig selects the text-completion provider used for summaries,
// report Q&A, punchlists and warranty analysis.
type CompletionConfig struct {
	Provider         string // anthropic | openrouter | ollama
	Model            string
	AnthropicAPIKey  string
	OpenRouterAPIKey string
	OllamaBaseURL    string
	WarrantyTimeout  string
}

type CacheConfig struct {
	Capacity int
}

type StorageConfig struct {
	DataDir        string
	UploadBackend  string // local | minio
	UploadDir      string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type LogConfig struct {
	Level string
	File  string
}

const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:           5000,
			MaxUploadMB:    100,
			RateLimitRPS:   2,
			RateLimitBurst: 10,
		},
		Completion: CompletionConfig{
			Provider:        ProviderAnthropic,
			Model:           "claude-sonnet-4-5-20250929",
			OllamaBaseURL:   "http://localhost:11434",
			WarrantyTimeout: "60s",
		},
		Cache: CacheConfig{
			Capacity: 10,
		},
		Storage: StorageConfig{
			DataDir:       defaultDataDir(),
			UploadBackend: "local",
			MinIOBucket:   "inspection-reports",
		},
		Mail: MailConfig{
			Host: "smtp.gmail.com",
			Port: 587,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.assure.inspectd) and
// secrets fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/inspectd/config.json
// and secrets come from environment variables or the secrets file written by
// `inspectd config set-secret`.
//
// Environment variables (INSPECTD_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	applySecrets(&cfg, kc)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applySecrets fills secret keys that are still empty from the platform
// secret store. The account name is the config key.
func applySecrets(cfg *Config, kc keychain) {
	for _, s := range specs {
		if !s.secret || s.extract(*cfg) != "" {
			continue
		}
		if v, err := kc.Get(keychainService, s.key); err == nil && v != "" {
			s.apply(cfg, v)
		}
	}
}

func validate(cfg Config) error {
	if cfg.Cache.Capacity < 1 {
		return fmt.Errorf("invalid config: cache.capacity must be at least 1, got %d", cfg.Cache.Capacity)
	}
	if _, err := time.ParseDuration(cfg.Completion.WarrantyTimeout); err != nil {
		return fmt.Errorf("invalid config: completion.warranty_timeout: %w", err)
	}

	switch cfg.Completion.Provider {
	case ProviderAnthropic:
		if cfg.Completion.AnthropicAPIKey == "" {
			return missingKeyError("Anthropic", "completion.anthropic_api_key", "INSPECTD_ANTHROPIC_API_KEY")
		}
	case ProviderOpenRouter:
		if cfg.Completion.OpenRouterAPIKey == "" {
			return missingKeyError("OpenRouter", "completion.openrouter_api_key", "INSPECTD_OPENROUTER_API_KEY")
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("invalid config: unknown completion.provider %q", cfg.Completion.Provider)
	}

	switch cfg.Storage.UploadBackend {
	case "local":
	case "minio":
		if cfg.Storage.MinIOEndpoint == "" {
			return fmt.Errorf("invalid config: storage.minio_endpoint is required when storage.upload_backend is minio")
		}
	default:
		return fmt.Errorf("invalid config: unknown storage.upload_backend %q", cfg.Storage.UploadBackend)
	}
	return nil
}

func missingKeyError(name, key, env string) error {
	return fmt.Errorf("missing required config: %s API key. Set it via environment variable %s%s",
		name, env, secretHint(key))
}

// WarrantyTimeoutDuration returns the parsed warranty parsing timeout.
// Load has already validated it.
func (c CompletionConfig) WarrantyTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.WarrantyTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// MailEnabled reports whether SMTP credentials are configured.
func (c MailConfig) MailEnabled() bool {
	return c.Username != "" && c.Password != ""
}

// ResolvedUploadDir is where the local upload backend writes PDFs.
func (c StorageConfig) ResolvedUploadDir() string {
	if c.UploadDir != "" {
		return c.UploadDir
	}
	return filepath.Join(c.DataDir, "uploads")
}

const keychainService = "inspectd"

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
