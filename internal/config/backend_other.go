//go:build !darwin

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// xdgDir resolves an XDG base directory from env, falling back to
// $HOME/<fallback...> and then to the working directory.
func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

func defaultDataDir() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), "inspectd")
}

func secretHint(key string) string {
	return fmt.Sprintf(" or `inspectd config set-secret %s <value>`", key)
}

// fileBackend keeps non-secret settings as a flat JSON object in
// $XDG_CONFIG_HOME/inspectd/config.json.
type fileBackend struct {
	path    string
	data    map[string]any
	loadErr error
}

func newPlatformBackend() ConfigBackend {
	return openFileBackend(filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "inspectd", "config.json"))
}

// openFileBackend reads path. An unreadable or corrupt file leaves the
// defaults in effect and makes every write fail until it is fixed.
func openFileBackend(path string) *fileBackend {
	b := &fileBackend{path: path, data: make(map[string]any)}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return b
	}
	if err == nil {
		err = json.Unmarshal(data, &b.data)
	}
	if err != nil {
		b.loadErr = fmt.Errorf("config file %s: %w", path, err)
		b.data = make(map[string]any)
		fmt.Fprintf(os.Stderr, "[WARN] %v. Using default values.\n", b.loadErr)
	}
	return b
}

func (b *fileBackend) save() error {
	if b.loadErr != nil {
		return fmt.Errorf("refusing to overwrite unreadable %w", b.loadErr)
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(b.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(b.path, data, 0o600)
}

func (b *fileBackend) GetString(key string) (string, bool, error) {
	switch v := b.data[key].(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true, nil
	default:
		return fmt.Sprintf("%v", v), true, nil
	}
}

func (b *fileBackend) GetInt(key string) (int, bool, error) {
	switch v := b.data[key].(type) {
	case nil:
		return 0, false, nil
	case float64:
		if v < math.MinInt || v > math.MaxInt || v != math.Trunc(v) {
			return 0, true, fmt.Errorf("%s: %v is not an integer", key, v)
		}
		return int(v), true, nil
	case string:
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("%s: unexpected %T in config file", key, v)
	}
}

func (b *fileBackend) SetString(key, val string) error {
	b.data[key] = val
	return b.save()
}

func (b *fileBackend) SetInt(key string, val int) error {
	b.data[key] = val
	return b.save()
}

func (b *fileBackend) Delete(key string) error {
	if _, ok := b.data[key]; !ok {
		return nil
	}
	delete(b.data, key)
	return b.save()
}
