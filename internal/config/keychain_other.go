//go:build !darwin

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// secretsFile is the non-macOS secret store written by `inspectd config
// set-secret`: a 0600 JSON object of service -> account -> value.
type secretsFile struct {
	path string
}

func defaultSecretsFile() secretsFile {
	return secretsFile{path: filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), "inspectd", "secrets.json")}
}

// load returns the stored secrets. A missing file is an empty store; a file
// that does not parse is an error so it is never overwritten blindly.
func (f secretsFile) load() (map[string]map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets file %s: %w", f.path, err)
	}
	secrets := map[string]map[string]string{}
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file %s: %w", f.path, err)
	}
	return secrets, nil
}

func (f secretsFile) get(service, account string) (string, error) {
	secrets, err := f.load()
	if err != nil {
		return "", err
	}
	val, ok := secrets[service][account]
	if !ok {
		return "", fmt.Errorf("secret %s/%s not set", service, account)
	}
	return val, nil
}

func (f secretsFile) set(service, account, value string) error {
	secrets, err := f.load()
	if err != nil {
		return err
	}
	if secrets[service] == nil {
		secrets[service] = map[string]string{}
	}
	secrets[service][account] = value

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, out, 0o600)
}

func keychainGet(service, account string) ([]byte, error) {
	v, err := defaultSecretsFile().get(service, account)
	if err != nil {
		return nil, err
	}
	return []byte(v), nil
}

func keychainSet(service, account, value string) error {
	return defaultSecretsFile().set(service, account, value)
}
