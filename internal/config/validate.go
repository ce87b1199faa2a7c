package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Capture.Binary) == "" {
		return nil, fmt.Errorf("capture.binary must not be empty")
	}
	if cfg.Capture.GraceMS < 0 {
		return nil, fmt.Errorf("capture.grace_ms must be >= 0")
	}
	if cfg.Capture.GraceMS == 0 {
		warnings = append(warnings, Warning{Message: "capture.grace_ms=0 skips the graceful stop window; recordings may lose their trailer"})
	}

	if dir := strings.TrimSpace(cfg.Recordings.Dir); dir != "" && !filepath.IsAbs(dir) {
		return nil, fmt.Errorf("recordings.dir must be an absolute path, got %q", dir)
	}

	if strings.TrimSpace(cfg.Whisper.Endpoint) == "" {
		return nil, fmt.Errorf("whisper.endpoint must not be empty")
	}
	if cfg.Whisper.TimeoutMS <= 0 {
		return nil, fmt.Errorf("whisper.timeout_ms must be > 0")
	}

	if cfg.Mute.Enable && strings.TrimSpace(cfg.Mute.Sink) == "" {
		return nil, fmt.Errorf("mute.sink must not be empty when mute.enable=true")
	}
	if cfg.Notify.Enable && strings.TrimSpace(cfg.Notify.AppName) == "" {
		return nil, fmt.Errorf("notify.app_name must not be empty when notify.enable=true")
	}

	return warnings, nil
}
