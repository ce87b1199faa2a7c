// Package capture spawns and supervises the external recording process.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Fixed capture profile: device-default input, mono, 16 kHz, signed 16-bit
// PCM in a WAV container. The session never negotiates audio formats.
const (
	sampleRate = 16000
	channels   = 1
)

var ErrAlreadyRecording = errors.New("a capture process is already running")

// Manager enforces the one-outstanding-process rule and builds spawn argv.
type Manager struct {
	logger *slog.Logger
	binary string

	mu     sync.Mutex
	active *Process
}

// NewManager constructs a capture manager around the configured binary.
func NewManager(logger *slog.Logger, binary string) *Manager {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &Manager{logger: logger, binary: binary}
}

// Spawn starts the capture process writing to outputPath. At most one process
// may be outstanding; a second spawn fails with ErrAlreadyRecording.
func (m *Manager) Spawn(_ context.Context, outputPath string) (*Process, error) {
	if strings.TrimSpace(outputPath) == "" {
		return nil, errors.New("capture output path is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return nil, ErrAlreadyRecording
	}

	cmd := exec.Command(m.binary, captureArgs(m.binary, outputPath)...)
	p := &Process{done: make(chan struct{})}
	cmd.Stderr = &p.stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start capture process %q: %w", m.binary, err)
	}
	p.cmd = cmd

	go func() {
		p.exitErr = cmd.Wait()
		close(p.done)
		m.release(p)
	}()

	m.active = p
	if m.logger != nil {
		m.logger.Info("capture process started", "binary", m.binary, "pid", cmd.Process.Pid, "output", outputPath)
	}
	return p, nil
}

// release clears the outstanding slot once a process has fully exited.
func (m *Manager) release(p *Process) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == p {
		m.active = nil
	}
}

// captureArgs builds the fixed-profile argv for the known recorder binaries.
func captureArgs(binary string, outputPath string) []string {
	base := binary
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}

	switch base {
	case "arecord":
		return []string{
			"-q",
			"-f", "S16_LE",
			"-r", fmt.Sprintf("%d", sampleRate),
			"-c", fmt.Sprintf("%d", channels),
			"-t", "wav",
			outputPath,
		}
	default:
		// ffmpeg-compatible argv; also covers avconv-style frontends.
		return []string{
			"-hide_banner",
			"-loglevel", "error",
			"-f", "pulse",
			"-i", "default",
			"-ac", fmt.Sprintf("%d", channels),
			"-ar", fmt.Sprintf("%d", sampleRate),
			"-c:a", "pcm_s16le",
			"-y",
			outputPath,
		}
	}
}

// Process is one live capture subprocess and its exit observation.
type Process struct {
	cmd     *exec.Cmd
	done    chan struct{}
	exitErr error
	stderr  bytes.Buffer
}

// Done closes once the process has fully exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// ExitErr returns the process exit result. Only valid after Done closes.
func (p *Process) ExitErr() error {
	select {
	case <-p.done:
	default:
		return nil
	}
	if p.exitErr == nil {
		return nil
	}
	detail := strings.TrimSpace(p.stderr.String())
	if detail == "" {
		return p.exitErr
	}
	return fmt.Errorf("%w: %s", p.exitErr, lastLine(detail))
}

// Stop sends the graceful termination signal and waits for the exit event.
// SIGINT lets the recorder flush and finalize the WAV container before
// exiting; the wait is unbounded unless ctx is cancelled.
func (p *Process) Stop(ctx context.Context) error {
	if err := p.signal(os.Interrupt); err != nil {
		// The process may refuse the signal in a half-dead state; escalate.
		return p.Kill(ctx)
	}
	return p.wait(ctx)
}

// Kill sends the forced termination signal and waits for the exit event.
func (p *Process) Kill(ctx context.Context) error {
	if err := p.signal(os.Kill); err != nil {
		return fmt.Errorf("kill capture process: %w", err)
	}
	return p.wait(ctx)
}

// Shutdown attempts a graceful stop and escalates to a forced kill when the
// process has not exited within grace. Used on teardown paths only.
func (p *Process) Shutdown(ctx context.Context, grace time.Duration) error {
	if err := p.signal(os.Interrupt); err != nil {
		return p.Kill(ctx)
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return p.Kill(ctx)
	}
}

// signal delivers sig, treating an already-exited process as success.
func (p *Process) signal(sig os.Signal) error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Signal(sig)
	if err == nil || errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// wait blocks until the exit event has been observed.
func (p *Process) wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lastLine trims multi-line tool output down to its final line for errors.
func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
			return trimmed
		}
	}
	return s
}
