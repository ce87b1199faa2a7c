package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Capture: CaptureConfig{
			Binary:  "ffmpeg",
			GraceMS: 3000,
		},
		Recordings: RecordingsConfig{
			Dir: "",
		},
		Whisper: WhisperConfig{
			Endpoint:  "127.0.0.1:8080",
			Model:     "",
			Language:  "",
			TimeoutMS: 60000,
		},
		Transcript: TranscriptConfig{
			CapitalizeSentences: true,
			TrailingSpace:       false,
		},
		Mute: MuteConfig{
			Enable: true,
			Sink:   "@DEFAULT_SINK@",
		},
		Notify: NotifyConfig{
			Enable:  true,
			AppName: "murmur",
		},
		Clipboard: ClipboardConfig{Enable: true},
	}
}
