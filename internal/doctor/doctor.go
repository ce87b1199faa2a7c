// Package doctor runs runtime readiness diagnostics for config, tools, audio,
// and the transcription service.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tgreer/murmur/internal/audio"
	"github.com/tgreer/murmur/internal/config"
	"github.com/tgreer/murmur/internal/transcribe"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	configMsg := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMsg = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMsg})

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "runtime dir available for the control socket", "XDG_RUNTIME_DIR is empty; IPC socket cannot be placed"))

	checks = append(checks, checkBinary(cfg.Config.Capture.Binary, "capture recorder"))
	if cfg.Config.Mute.Enable {
		checks = append(checks, checkBinary("pactl", "output mute toggling"))
	}

	checks = append(checks, checkRecordingsDir(cfg.Config))
	checks = append(checks, checkDefaultSource(ctx))
	checks = append(checks, checkWhisperReady(ctx, cfg.Config))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkRecordingsDir verifies the artifact directory can be created and written.
func checkRecordingsDir(cfg config.Config) Check {
	dir, err := cfg.ResolveRecordingsDir()
	if err != nil {
		return Check{Name: "recordings.dir", Pass: false, Message: err.Error()}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Check{Name: "recordings.dir", Pass: false, Message: fmt.Sprintf("cannot create %q: %v", dir, err)}
	}

	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, nil, 0o600); err != nil {
		return Check{Name: "recordings.dir", Pass: false, Message: fmt.Sprintf("cannot write in %q: %v", dir, err)}
	}
	_ = os.Remove(probe)

	return Check{Name: "recordings.dir", Pass: true, Message: fmt.Sprintf("writable at %q", dir)}
}

// checkDefaultSource confirms a usable default microphone before any capture.
func checkDefaultSource(ctx context.Context) Check {
	dev, err := audio.DefaultSource(ctx)
	if err != nil {
		return Check{Name: "audio.source", Pass: false, Message: err.Error()}
	}
	if !dev.Available {
		return Check{Name: "audio.source", Pass: false, Message: fmt.Sprintf("default source %q is not available", dev.ID)}
	}
	if dev.Muted {
		return Check{Name: "audio.source", Pass: false, Message: fmt.Sprintf("default source %q is muted; captures would be silent", dev.ID)}
	}
	return Check{Name: "audio.source", Pass: true, Message: fmt.Sprintf("default source %q (%s)", dev.ID, dev.State)}
}

// checkWhisperReady probes the transcription service health endpoint.
func checkWhisperReady(ctx context.Context, cfg config.Config) Check {
	client := transcribe.NewClient(transcribe.Options{
		Endpoint: cfg.Whisper.Endpoint,
		Timeout:  2 * time.Second,
	}, nil)

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Healthy(probeCtx); err != nil {
		return Check{Name: "whisper.ready", Pass: false, Message: err.Error()}
	}
	return Check{Name: "whisper.ready", Pass: true, Message: fmt.Sprintf("ready at %s", cfg.Whisper.Endpoint)}
}
