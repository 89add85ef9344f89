package config

import (
	"fmt"
	"sort"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if len(cfg.Hotkey.Combo) == 0 {
		return nil, fmt.Errorf("hotkey.combo must name at least one key")
	}
	if err := oneOf("hotkey.source", cfg.Hotkey.Source, "evdev", "hook"); err != nil {
		return nil, err
	}
	if cfg.Hotkey.Source == "hook" && len(cfg.Hotkey.Devices) > 0 {
		warnings = append(warnings, Warning{Message: "hotkey.devices is ignored when hotkey.source=hook"})
	}

	if err := oneOf("audio.backend", cfg.Audio.Backend, "pulse", "malgo", "portaudio"); err != nil {
		return nil, err
	}
	if cfg.Audio.SampleRate < 8000 || cfg.Audio.SampleRate > 48000 {
		return nil, fmt.Errorf("audio.sample_rate must be between 8000 and 48000")
	}
	if cfg.Audio.Channels != 1 && cfg.Audio.Channels != 2 {
		return nil, fmt.Errorf("audio.channels must be 1 or 2")
	}
	if cfg.Audio.Backend != "pulse" && strings.TrimSpace(cfg.Audio.Input) != "default" {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("audio.input is only honoured by the pulse backend; %s records from the system default", cfg.Audio.Backend)})
	}

	if cfg.Session.MinDurationMS < 0 {
		return nil, fmt.Errorf("session.min_duration_ms must be >= 0")
	}
	if cfg.Session.TranscriptionTimeoutMS <= 0 {
		return nil, fmt.Errorf("session.transcription_timeout_ms must be > 0")
	}

	if err := oneOf("asr.backend", cfg.ASR.Backend, "openai", "google"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.ASR.Language) == "" {
		return nil, fmt.Errorf("asr.language must not be empty")
	}
	switch cfg.ASR.Backend {
	case "openai":
		if strings.TrimSpace(cfg.ASR.Model) == "" {
			return nil, fmt.Errorf("asr.model must not be empty when asr.backend=openai")
		}
		if strings.TrimSpace(cfg.ASR.APIKeyEnv) == "" && strings.TrimSpace(cfg.ASR.BaseURL) == "" {
			return nil, fmt.Errorf("asr.api_key_env must be set unless asr.base_url points at a local server")
		}
	case "google":
		if cfg.ASR.Insecure && strings.TrimSpace(cfg.ASR.Endpoint) == "" {
			return nil, fmt.Errorf("asr.endpoint must be set when asr.insecure=true")
		}
		if strings.TrimSpace(cfg.ASR.Prompt) != "" {
			warnings = append(warnings, Warning{Message: "asr.prompt is ignored by the google backend; use vocab sets"})
		}
	}

	if err := oneOf("inject.backend", cfg.Inject.Backend, "auto", "ydotool", "uinput", "command", "clipboard"); err != nil {
		return nil, err
	}
	if (cfg.Inject.Backend == "auto" || cfg.Inject.Backend == "ydotool" || cfg.Inject.Backend == "command") && len(cfg.Inject.Command.Argv) == 0 {
		return nil, fmt.Errorf("inject.command must not be empty when inject.backend=%s", cfg.Inject.Backend)
	}
	if err := oneOf("inject.paste", cfg.Inject.Paste, "keyboard", "hypr"); err != nil {
		return nil, err
	}
	if cfg.Inject.Paste == "hypr" && strings.TrimSpace(cfg.Inject.PasteShortcut) == "" {
		return nil, fmt.Errorf("inject.paste_shortcut must not be empty when inject.paste=hypr")
	}

	if err := oneOf("indicator.backend", cfg.Indicator.Backend, "hypr", "desktop", "none"); err != nil {
		return nil, err
	}
	if cfg.Indicator.Backend == "desktop" && strings.TrimSpace(cfg.Indicator.AppName) == "" {
		return nil, fmt.Errorf("indicator.app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if err := oneOf("log.level", cfg.Log.Level, "debug", "info", "warn", "error"); err != nil {
		return nil, err
	}

	if cfg.Vocab.MaxPhrases <= 0 {
		return nil, fmt.Errorf("vocab.max_phrases must be > 0")
	}
	_, vocabWarnings, err := BuildSpeechPhrases(cfg)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, vocabWarnings...)

	return warnings, nil
}

func oneOf(key string, value string, allowed ...string) error {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	if value == "" {
		return fmt.Errorf("%s must not be empty", key)
	}
	return fmt.Errorf("%s must be one of: %s", key, strings.Join(allowed, ", "))
}

// BuildSpeechPhrases merges enabled vocab sets into deterministic ASR phrase payloads.
func BuildSpeechPhrases(cfg Config) ([]SpeechPhrase, []Warning, error) {
	enabledSets := cfg.Vocab.GlobalSets
	if len(enabledSets) == 0 {
		return nil, nil, nil
	}

	type candidate struct {
		boost float64
		from  string
	}

	warnings := make([]Warning, 0)
	selected := make(map[string]candidate)

	for _, name := range enabledSets {
		set, ok := cfg.Vocab.Sets[name]
		if !ok {
			return nil, nil, fmt.Errorf("vocab.global references unknown set %q", name)
		}
		for _, phrase := range set.Phrases {
			phrase = strings.TrimSpace(phrase)
			if phrase == "" {
				continue
			}
			if existing, exists := selected[phrase]; exists {
				if set.Boost > existing.boost {
					warnings = append(warnings, Warning{Message: fmt.Sprintf("phrase %q present in %q and %q; using higher boost %.2f", phrase, existing.from, name, set.Boost)})
					selected[phrase] = candidate{boost: set.Boost, from: name}
				}
				continue
			}
			selected[phrase] = candidate{boost: set.Boost, from: name}
		}
	}

	if len(selected) > cfg.Vocab.MaxPhrases {
		return nil, nil, fmt.Errorf("vocabulary phrase count %d exceeds vocab.max_phrases=%d", len(selected), cfg.Vocab.MaxPhrases)
	}

	phrases := make([]SpeechPhrase, 0, len(selected))
	for phrase, c := range selected {
		phrases = append(phrases, SpeechPhrase{Phrase: phrase, Boost: float32(c.boost)})
	}

	sort.Slice(phrases, func(i, j int) bool {
		if phrases[i].Phrase == phrases[j].Phrase {
			return phrases[i].Boost < phrases[j].Boost
		}
		return phrases[i].Phrase < phrases[j].Phrase
	})

	return phrases, warnings, nil
}
