// Package output applies transcript commit side effects.
package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/atotto/clipboard"
)

// writeFunc matches clipboard.WriteAll and is swapped out in tests.
type writeFunc func(text string) error

// Committer copies the final transcript to the system clipboard. The session
// outcome never depends on it: the owner prints the transcript regardless.
type Committer struct {
	logger  *slog.Logger
	enabled bool
	write   writeFunc
}

// NewCommitter constructs a transcript committer. When enabled is false
// Commit is a no-op.
func NewCommitter(logger *slog.Logger, enabled bool) *Committer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Committer{
		logger:  logger,
		enabled: enabled,
		write:   clipboard.WriteAll,
	}
}

// Commit writes transcript text to the clipboard.
func (c *Committer) Commit(_ context.Context, transcript string) error {
	if !c.enabled || transcript == "" {
		return nil
	}

	if err := c.write(transcript); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	c.logger.Info("transcript copied to clipboard", "length", len(transcript))
	return nil
}
