// Package session owns the capture-and-transcribe lifecycle state machine.
//
// The controller is the only writer of session state. One controller instance
// exists per owner process; at most one session is in flight at any time.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tgreer/murmur/internal/fsm"
	"github.com/tgreer/murmur/internal/ipc"
	"github.com/tgreer/murmur/internal/mute"
)

var (
	// ErrEmptyRecording indicates the artifact held no audio frames.
	ErrEmptyRecording = errors.New("recording captured no audio; check microphone input or mute state")
	// ErrMissingOutputPath indicates no artifact path is known for the session.
	ErrMissingOutputPath = errors.New("recording output path is unknown")
	// ErrProcessExit indicates the capture process died while recording.
	ErrProcessExit = errors.New("capture process exited unexpectedly")
)

const defaultStopGrace = 3 * time.Second

// Snapshot is a point-in-time view of the session aggregate. Err is set only
// in the error status, Transcript only after success.
type Snapshot struct {
	ID         string
	Status     fsm.Status
	Err        string
	Transcript string
	FilePath   string
}

// state is the mutable session aggregate, guarded by Controller.mu.
type state struct {
	id           string
	status       fsm.Status
	errMsg       string
	transcript   string
	filePath     string
	proc         Process
	muteSnap     *mute.Snapshot
	muteNotified bool
	handedOff    bool
	watchStop    chan struct{}
}

// Controller orchestrates capture, mute, validation, and transcription for
// one session at a time.
type Controller struct {
	logger     *slog.Logger
	recorder   Recorder
	muter      Muter
	store      Artifacts
	transcribe Transcriber
	notifier   Notifier
	committer  Committer
	stopGrace  time.Duration

	mu          sync.Mutex
	sess        state
	startFlight *flight
	stopFlight  *flight

	// changed carries a coalesced signal per status transition.
	changed chan struct{}
}

// NewController constructs a session controller with safe default fallbacks
// for any nil collaborator.
func NewController(
	logger *slog.Logger,
	recorder Recorder,
	muter Muter,
	store Artifacts,
	transcriber Transcriber,
	notifier Notifier,
	committer Committer,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if recorder == nil {
		recorder = placeholderRecorder{}
	}
	if muter == nil {
		muter = noopMuter{}
	}
	if transcriber == nil {
		transcriber = PlaceholderTranscriber{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if committer == nil {
		committer = CommitFunc(func(context.Context, string) error { return nil })
	}

	return &Controller{
		logger:     logger,
		recorder:   recorder,
		muter:      muter,
		store:      store,
		transcribe: transcriber,
		notifier:   notifier,
		committer:  committer,
		stopGrace:  defaultStopGrace,
		sess:       state{status: fsm.StatusIdle},
		changed:    make(chan struct{}, 1),
	}
}

// SetStopGrace overrides the graceful-stop window used during Close.
func (c *Controller) SetStopGrace(grace time.Duration) {
	if grace >= 0 {
		c.stopGrace = grace
	}
}

// Status returns the current session status.
func (c *Controller) Status() fsm.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.status
}

// Snapshot returns a copy of the externally visible session fields.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ID:         c.sess.id,
		Status:     c.sess.status,
		Err:        c.sess.errMsg,
		Transcript: c.sess.transcript,
		FilePath:   c.sess.filePath,
	}
}

// RequestStart begins a new session. A no-op outside the idle status; a call
// arriving while a start is already in flight awaits that start's outcome.
func (c *Controller) RequestStart(ctx context.Context) error {
	c.mu.Lock()
	if f := c.startFlight; f != nil {
		c.mu.Unlock()
		return f.wait(ctx)
	}
	if c.sess.status != fsm.StatusIdle {
		c.mu.Unlock()
		return nil
	}

	f := newFlight()
	c.startFlight = f
	c.sess = state{id: uuid.NewString(), status: fsm.StatusIdle}
	c.applyLocked(fsm.EventStart)
	id := c.sess.id
	c.mu.Unlock()

	c.logger.Info("session starting", "session_id", id)
	err := c.start(ctx)

	c.mu.Lock()
	c.startFlight = nil
	c.mu.Unlock()
	f.settle(err)
	return err
}

// start runs the starting sequence: mute best-effort, plan the output path,
// spawn the capture process, attach the exit watcher.
func (c *Controller) start(ctx context.Context) error {
	snapshot, err := c.muter.MuteWithSnapshot(ctx)
	if err != nil {
		// Mute is best-effort: notify once, record without it.
		c.noteMuteUnavailable(ctx, err)
	} else {
		c.mu.Lock()
		c.sess.muteSnap = &snapshot
		c.mu.Unlock()
	}

	path, err := c.store.NewPath()
	if err != nil {
		return c.fail(ctx, fmt.Errorf("plan recording path: %w", err))
	}
	c.mu.Lock()
	c.sess.filePath = path
	c.mu.Unlock()

	proc, err := c.recorder.Spawn(ctx, path)
	if err != nil {
		return c.fail(ctx, err)
	}

	c.mu.Lock()
	c.sess.proc = proc
	watchStop := make(chan struct{})
	c.sess.watchStop = watchStop
	c.applyLocked(fsm.EventLaunched)
	c.mu.Unlock()

	go c.watch(proc, watchStop)
	return nil
}

// watch observes one spawned process and treats a non-zero exit during
// recording as a session failure. A zero exit merely releases the handle: the
// artifact is complete and the session stays in recording until a stop request
// validates and transcribes it. The subscription ends when watchStop closes,
// so a stale watcher never fires against a reassigned handle.
func (c *Controller) watch(proc Process, watchStop <-chan struct{}) {
	select {
	case <-watchStop:
		return
	case <-proc.Done():
	}

	c.mu.Lock()
	if c.sess.proc != proc || c.sess.status != fsm.StatusRecording {
		c.mu.Unlock()
		return
	}
	c.sess.proc = nil
	c.sess.watchStop = nil
	id := c.sess.id
	c.mu.Unlock()

	exitErr := proc.ExitErr()
	if exitErr == nil {
		c.logger.Info("capture process finished before stop", "session_id", id)
		return
	}
	_ = c.fail(context.Background(), fmt.Errorf("%w: %v", ErrProcessExit, exitErr))
}

// RequestStop ends the recording and runs validation plus transcription.
// A no-op outside the recording status; a call arriving while a stop is
// already in flight awaits that stop's outcome.
func (c *Controller) RequestStop(ctx context.Context) error {
	c.mu.Lock()
	if f := c.stopFlight; f != nil {
		c.mu.Unlock()
		return f.wait(ctx)
	}
	if c.sess.status != fsm.StatusRecording {
		c.mu.Unlock()
		return nil
	}

	f := newFlight()
	c.stopFlight = f
	c.applyLocked(fsm.EventStop)
	if ws := c.sess.watchStop; ws != nil {
		close(ws)
		c.sess.watchStop = nil
	}
	proc := c.sess.proc
	path := c.sess.filePath
	c.mu.Unlock()

	err := c.stop(ctx, proc, path)

	c.mu.Lock()
	c.stopFlight = nil
	c.mu.Unlock()
	f.settle(err)
	return err
}

// stop terminates the capture process, restores mute, validates the artifact,
// and hands it to transcription. The process exit event is always observed
// before the artifact is read: the recorder may still be flushing until then.
func (c *Controller) stop(ctx context.Context, proc Process, path string) error {
	if proc != nil {
		if err := proc.Stop(ctx); err != nil {
			return c.fail(ctx, fmt.Errorf("stop capture process: %w", err))
		}
	}

	c.mu.Lock()
	if c.sess.status != fsm.StatusStopping {
		// A cancel superseded this stop while we awaited the exit event.
		c.mu.Unlock()
		return nil
	}
	if c.sess.proc == proc {
		c.sess.proc = nil
	}
	c.mu.Unlock()

	c.restoreMute(ctx)

	if path == "" {
		return c.fail(ctx, ErrMissingOutputPath)
	}
	info := c.store.Validate(path)
	if !info.Valid {
		c.store.Discard(path)
		c.mu.Lock()
		c.sess.filePath = ""
		c.mu.Unlock()
		return c.fail(ctx, fmt.Errorf("%w (%d bytes)", ErrEmptyRecording, info.Size))
	}

	c.mu.Lock()
	if c.sess.status != fsm.StatusStopping {
		c.mu.Unlock()
		return nil
	}
	c.applyLocked(fsm.EventValidated)
	// Ownership of the artifact transfers to transcription from here on;
	// cleanup no longer discards it, keeping retry possible.
	c.sess.handedOff = true
	c.mu.Unlock()

	return c.runTranscription(ctx, path)
}

// runTranscription invokes the transcriber and settles the session outcome.
func (c *Controller) runTranscription(ctx context.Context, path string) error {
	text, err := c.transcribe.Transcribe(ctx, path)
	if err != nil {
		return c.fail(ctx, fmt.Errorf("transcribe recording: %w", err))
	}

	c.mu.Lock()
	c.applyLocked(fsm.EventTranscribed)
	c.sess.transcript = text
	c.sess.errMsg = ""
	id := c.sess.id
	c.mu.Unlock()

	c.logger.Info("session complete", "session_id", id, "transcript_length", len(text))
	c.notifier.SessionComplete(ctx, text)

	if err := c.committer.Commit(ctx, text); err != nil {
		// The transcript is already final; a commit failure only loses the
		// side effect, never the session outcome.
		c.logger.Error("transcript commit failed", "session_id", id, "error", err.Error())
	}
	return nil
}

// RequestRetryTranscription re-invokes transcription against the prior
// artifact without re-capturing audio. A no-op unless the session is in the
// error status with an artifact still known.
func (c *Controller) RequestRetryTranscription(ctx context.Context) error {
	c.mu.Lock()
	if c.sess.status != fsm.StatusError || c.sess.filePath == "" {
		c.mu.Unlock()
		return nil
	}
	c.applyLocked(fsm.EventRetry)
	c.sess.errMsg = ""
	path := c.sess.filePath
	c.mu.Unlock()

	return c.runTranscription(ctx, path)
}

// RequestCancel forcibly ends the live capture and returns the session to
// idle, bypassing the error status. A no-op when no capture is underway.
func (c *Controller) RequestCancel(ctx context.Context) error {
	c.mu.Lock()
	if c.sess.proc == nil && c.sess.status != fsm.StatusRecording {
		c.mu.Unlock()
		return nil
	}
	id := c.sess.id
	// The status flips before the process is killed: a graceful stop blocked
	// on the exit event re-checks the status when it wakes and must already
	// see that this cancel superseded it.
	c.applyLocked(fsm.EventCancel)
	c.sess.errMsg = ""
	c.sess.transcript = ""
	c.sess.handedOff = false
	c.mu.Unlock()

	c.cleanup(ctx, false)

	c.logger.Info("session cancelled", "session_id", id)
	return nil
}

// Reset returns the controller to a fresh idle session. A live capture is
// cancelled first.
func (c *Controller) Reset(ctx context.Context) {
	c.mu.Lock()
	live := c.sess.proc != nil
	c.mu.Unlock()
	if live {
		_ = c.RequestCancel(ctx)
	}

	c.mu.Lock()
	if fsm.Terminal(c.sess.status) {
		c.applyLocked(fsm.EventReset)
	}
	path := c.sess.filePath
	c.sess = state{status: fsm.StatusIdle}
	c.signalLocked()
	c.mu.Unlock()

	if path != "" {
		c.store.Discard(path)
	}
}

// Close releases session resources on owner teardown. Unlike RequestStop it
// bounds the graceful wait and escalates to a forced kill after the grace
// period.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	proc := c.sess.proc
	c.mu.Unlock()
	if proc == nil {
		return nil
	}

	c.restoreMute(ctx)

	if err := proc.Shutdown(ctx, c.stopGrace); err != nil {
		c.logger.Error("capture shutdown failed", "error", err.Error())
	}

	c.mu.Lock()
	if c.sess.proc == proc {
		c.sess.proc = nil
	}
	if ws := c.sess.watchStop; ws != nil {
		close(ws)
		c.sess.watchStop = nil
	}
	path := c.sess.filePath
	handedOff := c.sess.handedOff
	c.applyLocked(fsm.EventCancel)
	c.sess.filePath = ""
	c.mu.Unlock()

	if path != "" && !handedOff {
		c.store.Discard(path)
	}
	return nil
}

// WaitOutcome blocks until the session reaches success, error, or idle
// (post-cancel) and returns the settled snapshot.
func (c *Controller) WaitOutcome(ctx context.Context) (Snapshot, error) {
	for {
		snapshot := c.Snapshot()
		if fsm.Terminal(snapshot.Status) || snapshot.Status == fsm.StatusIdle {
			return snapshot, nil
		}
		select {
		case <-ctx.Done():
			return snapshot, ctx.Err()
		case <-c.changed:
		}
	}
}

// Handle serves IPC commands for the active owner session.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		snapshot := c.Snapshot()
		return ipc.Response{OK: true, State: string(snapshot.Status), SessionID: snapshot.ID, Message: "status"}
	case "toggle", "stop":
		if resp, stale := c.staleAddress(req); stale {
			return resp
		}
		return c.acceptStop(req.Command)
	case "cancel":
		if resp, stale := c.staleAddress(req); stale {
			return resp
		}
		return c.acceptCancel()
	case "retry":
		if resp, stale := c.staleAddress(req); stale {
			return resp
		}
		return c.acceptRetry()
	default:
		return ipc.Response{OK: false, State: string(c.Status()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// staleAddress rejects a mutating command pinned to a session that is no
// longer current. Unaddressed requests always pass.
func (c *Controller) staleAddress(req ipc.Request) (ipc.Response, bool) {
	if req.SessionID == "" {
		return ipc.Response{}, false
	}
	snapshot := c.Snapshot()
	if req.SessionID == snapshot.ID {
		return ipc.Response{}, false
	}
	return ipc.Response{
		OK:        false,
		State:     string(snapshot.Status),
		SessionID: snapshot.ID,
		Error:     fmt.Sprintf("session %s is no longer current", req.SessionID),
	}, true
}

// acceptStop admits a stop request when state permits and runs it async.
func (c *Controller) acceptStop(source string) ipc.Response {
	status := c.Status()
	if status == fsm.StatusTranscribing {
		return ipc.Response{OK: false, State: string(status), Error: "already transcribing"}
	}
	if status != fsm.StatusRecording {
		return ipc.Response{OK: false, State: string(status), Error: fmt.Sprintf("cannot %s from state %s", source, status)}
	}

	go func() { _ = c.RequestStop(context.Background()) }()
	return ipc.Response{OK: true, State: string(status), Message: "stop requested"}
}

// acceptCancel admits a cancel request when a capture is underway.
func (c *Controller) acceptCancel() ipc.Response {
	c.mu.Lock()
	live := c.sess.proc != nil || c.sess.status == fsm.StatusRecording
	status := c.sess.status
	c.mu.Unlock()
	if !live {
		return ipc.Response{OK: false, State: string(status), Error: fmt.Sprintf("cannot cancel from state %s", status)}
	}

	go func() { _ = c.RequestCancel(context.Background()) }()
	return ipc.Response{OK: true, State: string(status), Message: "cancel requested"}
}

// acceptRetry admits a transcription retry for a failed session whose
// artifact survived.
func (c *Controller) acceptRetry() ipc.Response {
	snapshot := c.Snapshot()
	if snapshot.Status != fsm.StatusError || snapshot.FilePath == "" {
		return ipc.Response{OK: false, State: string(snapshot.Status), Error: "nothing to retry"}
	}

	go func() { _ = c.RequestRetryTranscription(context.Background()) }()
	return ipc.Response{OK: true, State: string(snapshot.Status), Message: "retry requested"}
}

// fail routes any step failure through the cleanup protocol and settles the
// session in the error status with the causing message.
func (c *Controller) fail(ctx context.Context, err error) error {
	c.cleanup(ctx, true)

	c.mu.Lock()
	c.applyLocked(fsm.EventFail)
	c.sess.errMsg = err.Error()
	id := c.sess.id
	c.mu.Unlock()

	c.logger.Error("session failed", "session_id", id, "error", err.Error())
	c.notifier.SessionFailed(ctx, err.Error())
	return err
}

// cleanup is the single idempotent release routine shared by every failure
// and cancel path. Mute is restored before the process handle is torn down
// so termination side effects are not audible when avoidable.
func (c *Controller) cleanup(ctx context.Context, keepHandedOff bool) {
	c.restoreMute(ctx)

	c.mu.Lock()
	proc := c.sess.proc
	c.sess.proc = nil
	if ws := c.sess.watchStop; ws != nil {
		close(ws)
		c.sess.watchStop = nil
	}
	path := c.sess.filePath
	handedOff := c.sess.handedOff
	c.mu.Unlock()

	if proc != nil {
		if err := proc.Kill(ctx); err != nil {
			c.logger.Error("force terminate capture failed", "error", err.Error())
		}
	}

	if path != "" && !(keepHandedOff && handedOff) {
		c.store.Discard(path)
		c.mu.Lock()
		c.sess.filePath = ""
		c.mu.Unlock()
	}
}

// restoreMute undoes a pending mute snapshot and clears it regardless of the
// restore outcome. Safe to call repeatedly.
func (c *Controller) restoreMute(ctx context.Context) {
	c.mu.Lock()
	snapshot := c.sess.muteSnap
	c.sess.muteSnap = nil
	c.mu.Unlock()
	if snapshot == nil {
		return
	}

	result := c.muter.RestoreFromSnapshot(ctx, *snapshot)
	if result == mute.RestoreFailed {
		// Accepted risk: the user may be left muted; surfaced in logs only.
		c.logger.Error("mute restore failed after session")
	}
}

// noteMuteUnavailable fires the mute-unavailable notice at most once per
// session and records the condition.
func (c *Controller) noteMuteUnavailable(ctx context.Context, err error) {
	c.mu.Lock()
	notified := c.sess.muteNotified
	c.sess.muteNotified = true
	id := c.sess.id
	c.mu.Unlock()

	c.logger.Warn("mute unavailable; recording without mute", "session_id", id, "error", err.Error())
	if !notified {
		c.notifier.MuteUnavailable(ctx)
	}
}

// applyLocked advances the status machine. Invalid transitions are
// suppressed as no-ops; callers gate on status before raising events.
func (c *Controller) applyLocked(event fsm.Event) {
	next, err := fsm.Transition(c.sess.status, event)
	if err != nil {
		c.logger.Debug("transition suppressed", "status", string(c.sess.status), "event", string(event))
		return
	}
	c.sess.status = next
	c.signalLocked()
}

// signalLocked publishes a coalesced status-change signal.
func (c *Controller) signalLocked() {
	select {
	case c.changed <- struct{}{}:
	default:
	}
}
