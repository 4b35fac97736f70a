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

const defaultsDomain = "com.askbot.app"

func defaultDataDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, "Library", "Application Support", "askbot")
	}
	return "askbot-data"
}

// darwinBackend stores keys in the user defaults database through the
// defaults(1) tool, e.g. "defaults write com.askbot.app server.port -int 5000".
type darwinBackend struct {
	domain string
}

func newPlatformBackend() ConfigBackend {
	return &darwinBackend{domain: defaultsDomain}
}

func (b *darwinBackend) defaults(verb, key string, args ...string) (string, error) {
	argv := append([]string{verb, b.domain, key}, args...)
	out, err := exec.Command("defaults", argv...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

func (b *darwinBackend) GetString(key string) (string, bool, error) {
	s, err := b.defaults("read", key)
	if err != nil {
		// defaults exits 1 when the key does not exist.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("defaults read %s: %w (%s)", key, err, s)
	}
	return s, true, nil
}

func (b *darwinBackend) GetInt(key string) (int, bool, error) {
	s, ok, err := b.GetString(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", key, err)
	}
	return i, true, nil
}

func (b *darwinBackend) write(key string, args ...string) error {
	if out, err := b.defaults("write", key, args...); err != nil {
		return fmt.Errorf("defaults write %s: %w (%s)", key, err, out)
	}
	return nil
}

func (b *darwinBackend) SetString(key, val string) error {
	return b.write(key, "-string", val)
}

func (b *darwinBackend) SetInt(key string, val int) error {
	return b.write(key, "-int", strconv.Itoa(val))
}

func (b *darwinBackend) Delete(key string) error {
	_, err := b.defaults("delete", key)
	return err
}
