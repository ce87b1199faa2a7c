// Package mute snapshots and restores the system output mute flag.
package mute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ErrUnavailable indicates the mute toggle mechanism cannot be reached.
// Callers must treat this as non-fatal to the recording workflow.
var ErrUnavailable = errors.New("system mute control unavailable")

// Snapshot records the mute state observed before toggling. Changed means
// the coordinator flipped mute on and owns the obligation to flip it back.
type Snapshot struct {
	OriginallyMuted bool
	Changed         bool
}

// RestoreResult describes the outcome of one restore attempt.
type RestoreResult int

const (
	RestoreNoop RestoreResult = iota
	Restored
	RestoreFailed
)

func (r RestoreResult) String() string {
	switch r {
	case RestoreNoop:
		return "noop"
	case Restored:
		return "restored"
	case RestoreFailed:
		return "failed"
	default:
		return fmt.Sprintf("restore(%d)", int(r))
	}
}

// runner executes one mute-control command and returns its output. The get
// and set calls share no transaction; each one is individually fallible.
type runner func(ctx context.Context, args ...string) (string, error)

// Coordinator toggles the default sink mute flag through pactl.
type Coordinator struct {
	logger *slog.Logger
	sink   string
	run    runner
}

// NewCoordinator constructs a coordinator for the given sink name. An empty
// sink selects the server default.
func NewCoordinator(logger *slog.Logger, sink string) *Coordinator {
	if strings.TrimSpace(sink) == "" {
		sink = "@DEFAULT_SINK@"
	}
	return &Coordinator{logger: logger, sink: sink, run: runPactl}
}

// MuteWithSnapshot reads the current mute state and mutes when needed.
// Already-muted outputs are left untouched and recorded as such.
func (c *Coordinator) MuteWithSnapshot(ctx context.Context) (Snapshot, error) {
	out, err := c.run(ctx, "get-sink-mute", c.sink)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: read mute state: %v", ErrUnavailable, err)
	}

	if parseMuted(out) {
		return Snapshot{OriginallyMuted: true, Changed: false}, nil
	}

	if _, err := c.run(ctx, "set-sink-mute", c.sink, "1"); err != nil {
		return Snapshot{}, fmt.Errorf("%w: set mute: %v", ErrUnavailable, err)
	}
	return Snapshot{OriginallyMuted: false, Changed: true}, nil
}

// RestoreFromSnapshot undoes a mute applied by MuteWithSnapshot. Failures
// are logged and reported, never raised: a stuck restore must not block
// session completion.
func (c *Coordinator) RestoreFromSnapshot(ctx context.Context, snapshot Snapshot) RestoreResult {
	if !snapshot.Changed {
		return RestoreNoop
	}

	if _, err := c.run(ctx, "set-sink-mute", c.sink, "0"); err != nil {
		if c.logger != nil {
			c.logger.Error("mute restore failed; output may remain muted", "sink", c.sink, "error", err.Error())
		}
		return RestoreFailed
	}
	return Restored
}

// runPactl shells out to pactl with a short deadline of its own.
func runPactl(ctx context.Context, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	out, err := exec.CommandContext(runCtx, "pactl", args...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return "", fmt.Errorf("pactl %s: %w", strings.Join(args, " "), err)
		}
		return "", fmt.Errorf("pactl %s: %w (%s)", strings.Join(args, " "), err, trimmed)
	}
	return string(out), nil
}

// parseMuted interprets "Mute: yes" / "Mute: no" pactl output, anchoring on
// the Mute: field so surrounding lines cannot register a false positive.
func parseMuted(out string) bool {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.SplitN(strings.ToLower(strings.TrimSpace(line)), ":", 2)
		if len(fields) != 2 || fields[0] != "mute" {
			continue
		}
		return strings.TrimSpace(fields[1]) == "yes"
	}
	return false
}
