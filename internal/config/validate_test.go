package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestBuildSpeechPhrasesSortedAndHighestBoostWins(t *testing.T) {
	cfg := Default()
	cfg.Vocab.GlobalSets = []string{"core", "team"}
	cfg.Vocab.Sets["core"] = VocabSet{Name: "core", Boost: 10, Phrases: []string{"beta", "alpha"}}
	cfg.Vocab.Sets["team"] = VocabSet{Name: "team", Boost: 20, Phrases: []string{"alpha", "gamma"}}

	phrases, warnings, err := BuildSpeechPhrases(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Equal(t, []SpeechPhrase{
		{Phrase: "alpha", Boost: 20},
		{Phrase: "beta", Boost: 10},
		{Phrase: "gamma", Boost: 20},
	}, phrases)
}

func TestBuildSpeechPhrasesEnforcesLimit(t *testing.T) {
	cfg := Default()
	cfg.Vocab.MaxPhrases = 1
	cfg.Vocab.GlobalSets = []string{"core"}
	cfg.Vocab.Sets["core"] = VocabSet{Name: "core", Phrases: []string{"one", "two"}}

	_, _, err := BuildSpeechPhrases(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "exceeds vocab.max_phrases")
}

func TestValidateMissingVocabSetReference(t *testing.T) {
	cfg := Default()
	cfg.Vocab.GlobalSets = []string{"missing"}

	_, err := Validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown set")
}

func TestValidateRejectsInvalidFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty combo", mutate: func(c *Config) { c.Hotkey.Combo = nil }, wantErr: "hotkey.combo"},
		{name: "unknown key source", mutate: func(c *Config) { c.Hotkey.Source = "x11" }, wantErr: "hotkey.source must be one of"},
		{name: "unknown audio backend", mutate: func(c *Config) { c.Audio.Backend = "alsa" }, wantErr: "audio.backend"},
		{name: "sample rate too low", mutate: func(c *Config) { c.Audio.SampleRate = 4000 }, wantErr: "audio.sample_rate"},
		{name: "too many channels", mutate: func(c *Config) { c.Audio.Channels = 6 }, wantErr: "audio.channels"},
		{name: "negative min duration", mutate: func(c *Config) { c.Session.MinDurationMS = -1 }, wantErr: "min_duration_ms"},
		{name: "zero timeout", mutate: func(c *Config) { c.Session.TranscriptionTimeoutMS = 0 }, wantErr: "transcription_timeout_ms"},
		{name: "unknown asr backend", mutate: func(c *Config) { c.ASR.Backend = "riva" }, wantErr: "asr.backend"},
		{name: "empty language", mutate: func(c *Config) { c.ASR.Language = "" }, wantErr: "asr.language"},
		{name: "empty openai model", mutate: func(c *Config) { c.ASR.Model = " " }, wantErr: "asr.model"},
		{name: "no key and no base url", mutate: func(c *Config) { c.ASR.APIKeyEnv = "" }, wantErr: "asr.api_key_env"},
		{name: "insecure google without endpoint", mutate: func(c *Config) {
			c.ASR.Backend = "google"
			c.ASR.Insecure = true
		}, wantErr: "asr.endpoint"},
		{name: "unknown inject backend", mutate: func(c *Config) { c.Inject.Backend = "xdotool" }, wantErr: "inject.backend"},
		{name: "empty ydotool command", mutate: func(c *Config) { c.Inject.Command = CommandConfig{} }, wantErr: "inject.command"},
		{name: "hypr paste without shortcut", mutate: func(c *Config) {
			c.Inject.Paste = "hypr"
			c.Inject.PasteShortcut = ""
		}, wantErr: "inject.paste_shortcut"},
		{name: "unknown indicator backend", mutate: func(c *Config) { c.Indicator.Backend = "dbus" }, wantErr: "indicator.backend"},
		{name: "desktop without app name", mutate: func(c *Config) {
			c.Indicator.Backend = "desktop"
			c.Indicator.AppName = ""
		}, wantErr: "indicator.app_name"},
		{name: "negative error timeout", mutate: func(c *Config) { c.Indicator.ErrorTimeoutMS = -1 }, wantErr: "error_timeout"},
		{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "log.level"},
		{name: "empty log level", mutate: func(c *Config) { c.Log.Level = "" }, wantErr: "log.level must not be empty"},
		{name: "invalid max phrases", mutate: func(c *Config) { c.Vocab.MaxPhrases = 0 }, wantErr: "vocab.max_phrases"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	cfg := Default()
	cfg.Hotkey.Source = "hook"
	cfg.Hotkey.Devices = []string{"/dev/input/event3"}
	cfg.ASR.Backend = "google"
	cfg.ASR.Prompt = "Hyprland"

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	require.Contains(t, warnings[0].Message, "hotkey.devices")
	require.Contains(t, warnings[1].Message, "asr.prompt")
}

func TestValidateAllowsLocalServerWithoutKey(t *testing.T) {
	cfg := Default()
	cfg.ASR.APIKeyEnv = ""
	cfg.ASR.BaseURL = "http://127.0.0.1:8000/v1"

	_, err := Validate(cfg)
	require.NoError(t, err)
}
