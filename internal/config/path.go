package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/home fallback rules for config.toml location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "murmur", "config.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "murmur", "config.toml"), nil
}

// ResolveRecordingsDir yields the artifact directory: the configured value
// when set, otherwise the XDG state fallback.
func (c Config) ResolveRecordingsDir() (string, error) {
	if dir := strings.TrimSpace(c.Recordings.Dir); dir != "" {
		return dir, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "murmur", "recordings"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for recordings fallback")
	}

	return filepath.Join(home, ".local", "state", "murmur", "recordings"), nil
}
