package config

// DefaultCommand types stdin through ydotool.
const DefaultCommand = "ydotool type --key-delay 1 --file -"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Hotkey: HotkeyConfig{
			Combo:  []string{"CtrlL", "AltL", "1"},
			Source: "evdev",
		},
		Audio: AudioConfig{
			Backend:    "pulse",
			Input:      "default",
			Fallback:   "default",
			SampleRate: 16000,
			Channels:   1,
		},
		Session: SessionConfig{
			MinDurationMS:          200,
			TranscriptionTimeoutMS: 30000,
		},
		ASR: ASRConfig{
			Backend:              "openai",
			Model:                "whisper-1",
			Language:             "en",
			APIKeyEnv:            "OPENAI_API_KEY",
			AutomaticPunctuation: true,
		},
		Transcript: TranscriptConfig{
			TrailingSpace:    true,
			StripAnnotations: true,
		},
		Inject: InjectConfig{
			Backend:           "auto",
			Command:           CommandConfig{Raw: DefaultCommand, Argv: []string{"ydotool", "type", "--key-delay", "1", "--file", "-"}},
			FallbackClipboard: true,
			RestoreClipboard:  true,
			Paste:             "keyboard",
			PasteShortcut:     "CTRL,V",
		},
		Indicator: IndicatorConfig{
			Backend:        "hypr",
			SoundEnable:    true,
			AppName:        "voxtype",
			ErrorTimeoutMS: 1600,
		},
		Vocab: VocabConfig{
			Sets:       map[string]VocabSet{},
			MaxPhrases: 1024,
		},
		Log: LogConfig{Level: "info"},
	}
}
