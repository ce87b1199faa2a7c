// Package config resolves, parses, validates, and defaults murmur configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by murmur.
type Config struct {
	Capture    CaptureConfig    `toml:"capture"`
	Recordings RecordingsConfig `toml:"recordings"`
	Whisper    WhisperConfig    `toml:"whisper"`
	Transcript TranscriptConfig `toml:"transcript"`
	Mute       MuteConfig       `toml:"mute"`
	Notify     NotifyConfig     `toml:"notify"`
	Clipboard  ClipboardConfig  `toml:"clipboard"`
}

// CaptureConfig controls the external recorder subprocess.
type CaptureConfig struct {
	Binary  string `toml:"binary"`
	GraceMS int    `toml:"grace_ms"`
}

// Grace is the graceful-stop window granted to the recorder before a
// forced termination.
func (c CaptureConfig) Grace() time.Duration {
	return time.Duration(c.GraceMS) * time.Millisecond
}

// RecordingsConfig controls where capture artifacts are written.
type RecordingsConfig struct {
	Dir string `toml:"dir"`
}

// WhisperConfig controls the transcription service endpoint and request hints.
type WhisperConfig struct {
	Endpoint  string `toml:"endpoint"`
	Model     string `toml:"model"`
	Language  string `toml:"language"`
	TimeoutMS int    `toml:"timeout_ms"`
}

// Timeout bounds one transcription request.
func (w WhisperConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutMS) * time.Millisecond
}

// TranscriptConfig controls transcript normalization after transcription.
// Abbreviations lists extra tokens whose trailing period does not end a
// sentence, e.g. ["approx", "dept"].
type TranscriptConfig struct {
	CapitalizeSentences bool     `toml:"capitalize_sentences"`
	TrailingSpace       bool     `toml:"trailing_space"`
	Abbreviations       []string `toml:"abbreviations"`
}

// MuteConfig controls output muting around a capture.
type MuteConfig struct {
	Enable bool   `toml:"enable"`
	Sink   string `toml:"sink"`
}

// NotifyConfig controls desktop notifications for session outcomes.
type NotifyConfig struct {
	Enable  bool   `toml:"enable"`
	AppName string `toml:"app_name"`
}

// ClipboardConfig controls transcript commit to the system clipboard.
type ClipboardConfig struct {
	Enable bool `toml:"enable"`
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Message string
}
