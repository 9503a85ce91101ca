package config

import (
	"errors"
	"strings"
	"testing"
)

// mockKeychain is a test double for the keychain interface.
type mockKeychain struct {
	values map[string]string
}

func (m mockKeychain) Get(service, account string) (string, error) {
	if v, ok := m.values[account]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

// memBackend is an in-memory ConfigBackend.
type memBackend struct {
	data map[string]string
	ints map[string]int
}

func newMemBackend() *memBackend {
	return &memBackend{data: map[string]string{}, ints: map[string]int{}}
}

func (b *memBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.ints[key]
	return v, ok, nil
}

func (b *memBackend) SetString(key, val string) error {
	b.data[key] = val
	return nil
}

func (b *memBackend) SetInt(key string, val int) error {
	b.ints[key] = val
	return nil
}

func (b *memBackend) Delete(key string) error {
	delete(b.data, key)
	delete(b.ints, key)
	return nil
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied when the backend is empty.
func TestDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("INSPECTD_ANTHROPIC_API_KEY", "test-key")

	cfg, err := loadWith(newMemBackend(), mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Cache.Capacity != 10 {
		t.Errorf("Cache.Capacity = %d, want 10", cfg.Cache.Capacity)
	}
	if cfg.Completion.Provider != ProviderAnthropic {
		t.Errorf("Completion.Provider = %q, want %q", cfg.Completion.Provider, ProviderAnthropic)
	}
	if cfg.Server.MaxUploadMB != 100 {
		t.Errorf("Server.MaxUploadMB = %d, want 100", cfg.Server.MaxUploadMB)
	}
	if cfg.Mail.Port != 587 {
		t.Errorf("Mail.Port = %d, want 587", cfg.Mail.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if got := cfg.Completion.WarrantyTimeoutDuration().String(); got != "1m0s" {
		t.Errorf("WarrantyTimeoutDuration = %s, want 1m0s", got)
	}
}

// TestEnvOverride verifies that environment variables override backend values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	b := newMemBackend()
	b.ints["cache.capacity"] = 4
	b.data["log.level"] = "warn"

	t.Setenv("INSPECTD_ANTHROPIC_API_KEY", "env-key")
	t.Setenv("INSPECTD_CACHE_CAPACITY", "2")
	t.Setenv("INSPECTD_SERVER_RATE_LIMIT_RPS", "0.5")
	t.Setenv("INSPECTD_MINIO_USE_SSL", "true")

	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Completion.AnthropicAPIKey != "env-key" {
		t.Errorf("AnthropicAPIKey = %q, want env-key", cfg.Completion.AnthropicAPIKey)
	}
	if cfg.Cache.Capacity != 2 {
		t.Errorf("Cache.Capacity = %d, want 2 (env wins over backend)", cfg.Cache.Capacity)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn from backend", cfg.Log.Level)
	}
	if cfg.Server.RateLimitRPS != 0.5 {
		t.Errorf("RateLimitRPS = %v, want 0.5", cfg.Server.RateLimitRPS)
	}
	if !cfg.Storage.MinIOUseSSL {
		t.Error("MinIOUseSSL = false, want true")
	}
}

func TestSecretsFromKeychain(t *testing.T) {
	clearEnv(t)
	kc := mockKeychain{values: map[string]string{
		"completion.anthropic_api_key": "kc-key",
		"mail.password":                "smtp-pass",
	}}

	cfg, err := loadWith(newMemBackend(), kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Completion.AnthropicAPIKey != "kc-key" {
		t.Errorf("AnthropicAPIKey = %q, want kc-key", cfg.Completion.AnthropicAPIKey)
	}
	if cfg.Mail.Password != "smtp-pass" {
		t.Errorf("Mail.Password = %q, want smtp-pass", cfg.Mail.Password)
	}
}

func TestEnvSecretBeatsKeychain(t *testing.T) {
	clearEnv(t)
	t.Setenv("INSPECTD_ANTHROPIC_API_KEY", "env-key")
	kc := mockKeychain{values: map[string]string{"completion.anthropic_api_key": "kc-key"}}

	cfg, err := loadWith(newMemBackend(), kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Completion.AnthropicAPIKey != "env-key" {
		t.Errorf("AnthropicAPIKey = %q, want env-key", cfg.Completion.AnthropicAPIKey)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing anthropic key",
			env:     map[string]string{},
			wantErr: "Anthropic API key",
		},
		{
			name: "missing openrouter key",
			env: map[string]string{
				"INSPECTD_COMPLETION_PROVIDER": "openrouter",
			},
			wantErr: "OpenRouter API key",
		},
		{
			name: "ollama needs no key",
			env: map[string]string{
				"INSPECTD_COMPLETION_PROVIDER": "ollama",
			},
		},
		{
			name: "unknown provider",
			env: map[string]string{
				"INSPECTD_COMPLETION_PROVIDER": "bard",
			},
			wantErr: "unknown completion.provider",
		},
		{
			name: "zero capacity",
			env: map[string]string{
				"INSPECTD_COMPLETION_PROVIDER": "ollama",
				"INSPECTD_CACHE_CAPACITY":      "0",
			},
			wantErr: "cache.capacity",
		},
		{
			name: "bad warranty timeout",
			env: map[string]string{
				"INSPECTD_COMPLETION_PROVIDER":         "ollama",
				"INSPECTD_COMPLETION_WARRANTY_TIMEOUT": "soon",
			},
			wantErr: "warranty_timeout",
		},
		{
			name: "minio without endpoint",
			env: map[string]string{
				"INSPECTD_COMPLETION_PROVIDER":   "ollama",
				"INSPECTD_STORAGE_UPLOAD_BACKEND": "minio",
			},
			wantErr: "minio_endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadWith(newMemBackend(), mockKeychain{})
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestShowAllRedactsSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Completion.AnthropicAPIKey = "sk-secret"

	for _, ki := range ShowAll(cfg) {
		if strings.Contains(ki.Value, "sk-secret") {
			t.Errorf("ShowAll leaked secret for %s", ki.Key)
		}
		if ki.Key == "completion.anthropic_api_key" && ki.Value != "********" {
			t.Errorf("redacted value = %q", ki.Value)
		}
		if ki.Key == "completion.openrouter_api_key" && ki.Value != "(not set)" {
			t.Errorf("unset secret value = %q", ki.Value)
		}
	}
}

func TestSetKey(t *testing.T) {
	b := newMemBackend()

	if err := setKeyWith(b, "cache.capacity", "25"); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if b.ints["cache.capacity"] != 25 {
		t.Errorf("cache.capacity = %d, want 25", b.ints["cache.capacity"])
	}
	if err := setKeyWith(b, "storage.minio_use_ssl", "true"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if err := setKeyWith(b, "cache.capacity", "many"); err == nil {
		t.Error("expected error for non-integer value")
	}
	if err := setKeyWith(b, "storage.minio_use_ssl", "maybe"); err == nil {
		t.Error("expected error for non-bool value")
	}
	if err := setKeyWith(b, "mail.password", "x"); err == nil {
		t.Error("expected error setting a secret via SetKey")
	}
	if err := setKeyWith(b, "no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestUnsetKey(t *testing.T) {
	b := newMemBackend()
	b.ints["cache.capacity"] = 25

	if err := unsetKeyWith(b, "cache.capacity"); err != nil {
		t.Fatalf("unset: %v", err)
	}
	if _, ok := b.ints["cache.capacity"]; ok {
		t.Error("cache.capacity still set after unset")
	}
	if err := unsetKeyWith(b, "mail.password"); err == nil {
		t.Error("expected error unsetting a secret")
	}
	if err := unsetKeyWith(b, "no.such.key"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestValidKeysExcludeSecrets(t *testing.T) {
	secrets := map[string]bool{}
	for _, k := range SecretKeys() {
		secrets[k] = true
	}
	if len(secrets) == 0 {
		t.Fatal("expected at least one secret key")
	}
	for _, k := range ValidKeys() {
		if secrets[k] {
			t.Errorf("ValidKeys contains secret %q", k)
		}
	}
}
