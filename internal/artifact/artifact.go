// Package artifact manages recording files on disk.
package artifact

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// headerSize is a WAV header with zero audio frames. A file at or below this
// size carries no samples and is never surfaced as a usable recording.
const headerSize = 44

// Info is the result of validating one recording file.
type Info struct {
	Valid bool
	Size  int64
}

// Store creates, validates, and discards recording artifacts in one directory.
type Store struct {
	logger *slog.Logger
	dir    string
	now    func() time.Time
}

// NewStore constructs a store rooted at dir.
func NewStore(logger *slog.Logger, dir string) *Store {
	return &Store{logger: logger, dir: dir, now: time.Now}
}

// NewPath ensures the recordings directory exists and returns a fresh
// timestamp-derived output path for the next capture.
func (s *Store) NewPath() (string, error) {
	if strings.TrimSpace(s.dir) == "" {
		return "", errors.New("recordings directory is not configured")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", fmt.Errorf("create recordings dir %q: %w", s.dir, err)
	}

	name := fmt.Sprintf("capture-%s.wav", s.now().Format("20060102-150405.000"))
	return filepath.Join(s.dir, name), nil
}

// Validate stats path and reports whether it holds any audio frames.
// A missing file is reported as invalid with size zero, not as an error,
// so callers branch uniformly.
func (s *Store) Validate(path string) Info {
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}
	}
	return Info{Valid: fi.Size() > headerSize, Size: fi.Size()}
}

// Discard removes path best-effort. The file may already be gone from a
// prior cleanup; that is not a failure.
func (s *Store) Discard(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		if s.logger != nil {
			s.logger.Warn("discard recording failed", "path", path, "error", err.Error())
		}
	}
}
