//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.assure.inspectd"

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Library", "Application Support", "inspectd")
	}
	return "inspectd-data"
}

func secretHint(key string) string {
	return fmt.Sprintf(" or `inspectd config set-secret %s <value>` (Keychain service %s)", key, keychainService)
}

// defaultsBackend stores settings in the com.assure.inspectd defaults domain
// through the `defaults` tool.
type defaultsBackend struct {
	domain string
}

func newPlatformBackend() ConfigBackend {
	return &defaultsBackend{domain: defaultsDomain}
}

// run executes `defaults <verb> <domain> args...`. missing reports the exit
// status 1 that `defaults` uses for an absent key.
func (b *defaultsBackend) run(verb string, args ...string) (out string, missing bool, err error) {
	raw, err := exec.Command("defaults", append([]string{verb, b.domain}, args...)...).CombinedOutput()
	out = strings.TrimSpace(string(raw))
	if err == nil {
		return out, false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return out, true, nil
	}
	return out, false, fmt.Errorf("defaults %s %s: %w: %s", verb, strings.Join(args, " "), err, out)
}

func (b *defaultsBackend) GetString(key string) (string, bool, error) {
	out, missing, err := b.run("read", key)
	if err != nil || missing {
		return "", false, err
	}
	return out, true, nil
}

func (b *defaultsBackend) GetInt(key string) (int, bool, error) {
	s, ok, err := b.GetString(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return i, true, nil
}

func (b *defaultsBackend) write(key, typ, val string) error {
	if _, missing, err := b.run("write", key, typ, val); err != nil || missing {
		if err == nil {
			err = fmt.Errorf("defaults write %s failed", key)
		}
		return err
	}
	return nil
}

func (b *defaultsBackend) SetString(key, val string) error {
	return b.write(key, "-string", val)
}

func (b *defaultsBackend) SetInt(key string, val int) error {
	return b.write(key, "-int", strconv.Itoa(val))
}

// Delete removes key; deleting an absent key is not an error.
func (b *defaultsBackend) Delete(key string) error {
	_, _, err := b.run("delete", key)
	return err
}
