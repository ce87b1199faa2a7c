// Package notify sends desktop notifications for session outcomes.
package notify

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/gen2brain/beeep"
)

// sendFunc matches beeep.Notify and is swapped out in tests.
type sendFunc func(title, message string, icon any) error

// Desktop delivers session notices via the desktop notification service.
// Failures are logged and swallowed: a missing notification daemon must
// never break a dictation session.
type Desktop struct {
	logger  *slog.Logger
	appName string
	enabled bool
	send    sendFunc
}

// NewDesktop builds a notifier. When enabled is false every notice is a no-op.
func NewDesktop(logger *slog.Logger, appName string, enabled bool) *Desktop {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if strings.TrimSpace(appName) == "" {
		appName = "murmur"
	}
	return &Desktop{
		logger:  logger,
		appName: appName,
		enabled: enabled,
		send:    beeep.Notify,
	}
}

func (d *Desktop) MuteUnavailable(context.Context) {
	d.deliver("Recording without mute", "Output mute is unavailable; system audio may bleed into the capture.")
}

func (d *Desktop) SessionFailed(_ context.Context, message string) {
	d.deliver("Transcription failed", message)
}

func (d *Desktop) SessionComplete(_ context.Context, transcript string) {
	d.deliver("Transcription ready", preview(transcript))
}

func (d *Desktop) deliver(title, message string) {
	if !d.enabled {
		return
	}
	if err := d.send(d.appName+": "+title, message, ""); err != nil {
		d.logger.Warn("desktop notification failed", "title", title, "error", err.Error())
	}
}

// preview bounds the transcript excerpt shown in the notification body.
func preview(transcript string) string {
	const maxRunes = 120
	transcript = strings.TrimSpace(transcript)
	runes := []rune(transcript)
	if len(runes) <= maxRunes {
		return transcript
	}
	return string(runes[:maxRunes]) + "…"
}
