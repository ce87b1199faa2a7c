package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeRecorderScript builds an executable that ignores its argv, exits
// cleanly on SIGINT/SIGTERM, and otherwise lingers like a real recorder.
func fakeRecorderScript(t *testing.T) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}

	path := filepath.Join(t.TempDir(), "arecord")
	script := "#!/bin/sh\ntrap 'exit 0' INT TERM\n: > \"$0.ready\"\nwhile true; do sleep 0.05; done\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// waitTrapReady blocks until the fake recorder has installed its signal
// trap, so a signal sent right after Spawn cannot outrace it.
func waitTrapReady(t *testing.T, scriptPath string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(scriptPath + ".ready"); err == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("fake recorder never signalled readiness")
}

func TestSpawnRejectsEmptyOutputPath(t *testing.T) {
	m := NewManager(nil, "ffmpeg")
	_, err := m.Spawn(context.Background(), "  ")
	require.Error(t, err)
}

func TestSpawnMissingBinary(t *testing.T) {
	m := NewManager(nil, filepath.Join(t.TempDir(), "no-such-recorder"))
	_, err := m.Spawn(context.Background(), filepath.Join(t.TempDir(), "out.wav"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "start capture process")
}

func TestSpawnEnforcesSingleProcess(t *testing.T) {
	m := NewManager(nil, fakeRecorderScript(t))
	out := filepath.Join(t.TempDir(), "out.wav")

	p, err := m.Spawn(context.Background(), out)
	require.NoError(t, err)

	_, err = m.Spawn(context.Background(), out)
	require.ErrorIs(t, err, ErrAlreadyRecording)

	require.NoError(t, p.Kill(context.Background()))

	// Once the first process has fully exited, the slot frees up.
	waitReleased(t, m)
	p2, err := m.Spawn(context.Background(), out)
	require.NoError(t, err)
	require.NoError(t, p2.Kill(context.Background()))
}

func TestStopWaitsForExit(t *testing.T) {
	script := fakeRecorderScript(t)
	m := NewManager(nil, script)

	p, err := m.Spawn(context.Background(), filepath.Join(t.TempDir(), "out.wav"))
	require.NoError(t, err)
	waitTrapReady(t, script)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))

	select {
	case <-p.Done():
	default:
		t.Fatal("Stop returned before the exit event")
	}
	require.NoError(t, p.ExitErr())
}

func TestKillReportsNonZeroExit(t *testing.T) {
	m := NewManager(nil, fakeRecorderScript(t))

	p, err := m.Spawn(context.Background(), filepath.Join(t.TempDir(), "out.wav"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Kill(ctx))
	require.Error(t, p.ExitErr())
}

func TestShutdownEscalatesAfterGrace(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}

	// This recorder ignores the graceful signal entirely.
	path := filepath.Join(t.TempDir(), "arecord")
	script := "#!/bin/sh\ntrap '' INT TERM\nwhile true; do sleep 0.05; done\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	m := NewManager(nil, path)
	p, err := m.Spawn(context.Background(), filepath.Join(t.TempDir(), "out.wav"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx, 100*time.Millisecond))

	select {
	case <-p.Done():
	default:
		t.Fatal("Shutdown returned with the process still alive")
	}
}

func TestSignalAfterExitIsNoop(t *testing.T) {
	m := NewManager(nil, fakeRecorderScript(t))

	p, err := m.Spawn(context.Background(), filepath.Join(t.TempDir(), "out.wav"))
	require.NoError(t, err)
	require.NoError(t, p.Kill(context.Background()))

	// Repeated termination against a dead handle stays silent.
	require.NoError(t, p.Stop(context.Background()))
	require.NoError(t, p.Kill(context.Background()))
}

func TestCaptureArgs(t *testing.T) {
	ffmpeg := captureArgs("ffmpeg", "/tmp/out.wav")
	require.Contains(t, ffmpeg, "pcm_s16le")
	require.Contains(t, ffmpeg, "16000")
	require.Equal(t, "/tmp/out.wav", ffmpeg[len(ffmpeg)-1])

	arecord := captureArgs("/usr/bin/arecord", "/tmp/out.wav")
	require.Contains(t, arecord, "S16_LE")
	require.Contains(t, arecord, "wav")
	require.Equal(t, "/tmp/out.wav", arecord[len(arecord)-1])
}

// waitReleased polls until the manager slot is free.
func waitReleased(t *testing.T, m *Manager) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		free := m.active == nil
		m.mu.Unlock()
		if free {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for manager slot release")
}
