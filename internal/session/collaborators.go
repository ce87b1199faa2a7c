package session

import (
	"context"
	"errors"
	"time"

	"github.com/tgreer/murmur/internal/artifact"
	"github.com/tgreer/murmur/internal/mute"
)

// ErrTranscriberUnavailable indicates runtime transcriber wiring is missing.
var ErrTranscriberUnavailable = errors.New("transcription backend not configured")

// Process is one live capture subprocess observed by the controller.
type Process interface {
	Done() <-chan struct{}
	ExitErr() error
	Stop(ctx context.Context) error
	Kill(ctx context.Context) error
	Shutdown(ctx context.Context, grace time.Duration) error
}

// Recorder spawns capture processes against a computed output path.
type Recorder interface {
	Spawn(ctx context.Context, outputPath string) (Process, error)
}

// Muter snapshots and restores the system mute flag around a capture.
type Muter interface {
	MuteWithSnapshot(ctx context.Context) (mute.Snapshot, error)
	RestoreFromSnapshot(ctx context.Context, snapshot mute.Snapshot) mute.RestoreResult
}

// Artifacts plans, validates, and discards recording files.
type Artifacts interface {
	NewPath() (string, error)
	Validate(path string) artifact.Info
	Discard(path string)
}

// Transcriber converts a finished recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Notifier is the session-facing subset of user notification behavior.
type Notifier interface {
	MuteUnavailable(ctx context.Context)
	SessionFailed(ctx context.Context, message string)
	SessionComplete(ctx context.Context, transcript string)
}

// Committer applies transcript output side effects after success.
type Committer interface {
	Commit(ctx context.Context, transcript string) error
}

// CommitFunc adapts a function to the Committer interface.
type CommitFunc func(context.Context, string) error

func (f CommitFunc) Commit(ctx context.Context, transcript string) error {
	return f(ctx, transcript)
}

// noopNotifier preserves session flow when no notifier is wired.
type noopNotifier struct{}

func (noopNotifier) MuteUnavailable(context.Context)         {}
func (noopNotifier) SessionFailed(context.Context, string)   {}
func (noopNotifier) SessionComplete(context.Context, string) {}

// noopMuter leaves system output untouched. Wired when muting is disabled;
// unlike a failing Coordinator it raises no unavailability notice.
type noopMuter struct{}

func (noopMuter) MuteWithSnapshot(context.Context) (mute.Snapshot, error) {
	return mute.Snapshot{}, nil
}

func (noopMuter) RestoreFromSnapshot(context.Context, mute.Snapshot) mute.RestoreResult {
	return mute.RestoreNoop
}

// PlaceholderTranscriber is the fallback used in tests and partial wiring.
type PlaceholderTranscriber struct{}

func (PlaceholderTranscriber) Transcribe(context.Context, string) (string, error) {
	return "", ErrTranscriberUnavailable
}

// placeholderRecorder fails every spawn so a miswired controller degrades
// into a clean error session instead of a panic.
type placeholderRecorder struct{}

func (placeholderRecorder) Spawn(context.Context, string) (Process, error) {
	return nil, errors.New("audio capture backend not configured")
}
