// Package config resolves, parses, validates, and defaults voxtype configuration.
package config

import (
	"fmt"
	"time"
)

// Config is the fully materialized runtime configuration used by voxtype.
type Config struct {
	Hotkey     HotkeyConfig
	Audio      AudioConfig
	Session    SessionConfig
	ASR        ASRConfig
	Transcript TranscriptConfig
	Inject     InjectConfig
	Indicator  IndicatorConfig
	Vocab      VocabConfig
	Log        LogConfig
}

// HotkeyConfig selects the push-to-talk combo and the key event source.
type HotkeyConfig struct {
	Combo []string
	// Source is "evdev" or "hook".
	Source string
	// Devices lists evdev paths; empty means auto-discover keyboards.
	Devices []string
}

// AudioConfig controls the capture backend and input-source selection.
type AudioConfig struct {
	// Backend is "pulse", "malgo", or "portaudio".
	Backend    string
	Input      string
	Fallback   string
	SampleRate int
	Channels   int
}

// SessionConfig holds the push-to-talk thresholds.
type SessionConfig struct {
	MinDurationMS          int
	TranscriptionTimeoutMS int
}

func (s SessionConfig) MinDuration() time.Duration {
	return time.Duration(s.MinDurationMS) * time.Millisecond
}

func (s SessionConfig) TranscriptionTimeout() time.Duration {
	return time.Duration(s.TranscriptionTimeoutMS) * time.Millisecond
}

// ASRConfig selects and configures the speech-to-text engine.
type ASRConfig struct {
	// Backend is "openai" or "google".
	Backend  string
	Model    string
	Language string
	Prompt   string

	// OpenAI-compatible HTTP API.
	BaseURL   string
	APIKeyEnv string

	// Google Cloud Speech gRPC API.
	Endpoint             string
	Insecure             bool
	CredentialsFile      string
	AutomaticPunctuation bool
}

// TranscriptConfig controls transcript assembly formatting.
type TranscriptConfig struct {
	TrailingSpace    bool
	StripAnnotations bool
}

// InjectConfig controls how text reaches the focused window.
type InjectConfig struct {
	// Backend is "auto", "ydotool", "uinput", "command", or "clipboard".
	Backend           string
	Command           CommandConfig
	YdotoolSocket     string
	FallbackClipboard bool
	RequireFocus      bool
	RestoreClipboard  bool
	// Paste is "keyboard" or "hypr"; it drives the clipboard backend.
	Paste         string
	PasteShortcut string
}

// IndicatorConfig controls notifications and audio cues.
type IndicatorConfig struct {
	// Backend is "hypr", "desktop", or "none".
	Backend        string
	SoundEnable    bool
	AppName        string
	ErrorTimeoutMS int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// VocabConfig controls enabled speech phrase sets and dedupe limits.
type VocabConfig struct {
	GlobalSets []string
	Sets       map[string]VocabSet
	MaxPhrases int
}

// VocabSet is one named phrase group with a shared boost value.
type VocabSet struct {
	Name    string
	Boost   float64
	Phrases []string
}

// LogConfig controls the runtime log level and debug artifacts.
type LogConfig struct {
	Level string
	// AudioDump writes every buffer sent to the engine as a WAV file
	// under the state directory.
	AudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s", w.Line, w.Message)
	}
	return w.Message
}

// SpeechPhrase is the normalized phrase payload sent to ASR adapters.
type SpeechPhrase struct {
	Phrase string
	Boost  float32
}
