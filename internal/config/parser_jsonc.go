package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Hotkey     *jsoncHotkey     `json:"hotkey"`
	Audio      *jsoncAudio      `json:"audio"`
	Session    *jsoncSession    `json:"session"`
	ASR        *jsoncASR        `json:"asr"`
	Transcript *jsoncTranscript `json:"transcript"`
	Inject     *jsoncInject     `json:"inject"`
	Indicator  *jsoncIndicator  `json:"indicator"`
	Vocab      *jsoncVocab      `json:"vocab"`
	Log        *jsoncLog        `json:"log"`
}

type jsoncHotkey struct {
	Combo   *jsoncCombo      `json:"combo"`
	Source  *string          `json:"source"`
	Devices *jsoncStringList `json:"devices"`
}

type jsoncAudio struct {
	Backend    *string `json:"backend"`
	Input      *string `json:"input"`
	Fallback   *string `json:"fallback"`
	SampleRate *int    `json:"sample_rate"`
	Channels   *int    `json:"channels"`
}

type jsoncSession struct {
	MinDurationMS          *int `json:"min_duration_ms"`
	TranscriptionTimeoutMS *int `json:"transcription_timeout_ms"`
}

type jsoncASR struct {
	Backend              *string `json:"backend"`
	Model                *string `json:"model"`
	Language             *string `json:"language"`
	Prompt               *string `json:"prompt"`
	BaseURL              *string `json:"base_url"`
	APIKeyEnv            *string `json:"api_key_env"`
	Endpoint             *string `json:"endpoint"`
	Insecure             *bool   `json:"insecure"`
	CredentialsFile      *string `json:"credentials_file"`
	AutomaticPunctuation *bool   `json:"automatic_punctuation"`
}

type jsoncTranscript struct {
	TrailingSpace    *bool `json:"trailing_space"`
	StripAnnotations *bool `json:"strip_annotations"`
}

type jsoncInject struct {
	Backend           *string `json:"backend"`
	Command           *string `json:"command"`
	YdotoolSocket     *string `json:"ydotool_socket"`
	FallbackClipboard *bool   `json:"fallback_clipboard"`
	RequireFocus      *bool   `json:"require_focus"`
	RestoreClipboard  *bool   `json:"restore_clipboard"`
	Paste             *string `json:"paste"`
	PasteShortcut     *string `json:"paste_shortcut"`
}

type jsoncIndicator struct {
	Backend        *string `json:"backend"`
	SoundEnable    *bool   `json:"sound_enable"`
	AppName        *string `json:"app_name"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms"`
}

type jsoncVocab struct {
	Global     *jsoncStringList         `json:"global"`
	MaxPhrases *int                     `json:"max_phrases"`
	Sets       map[string]jsoncVocabSet `json:"sets"`
}

type jsoncVocabSet struct {
	Boost   *float64 `json:"boost"`
	Phrases []string `json:"phrases"`
}

type jsoncLog struct {
	Level     *string `json:"level"`
	AudioDump *bool   `json:"audio_dump"`
}

// jsoncCombo accepts ["CtrlL", "AltL"] or "ctrl+alt".
type jsoncCombo []string

func (c *jsoncCombo) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*c = trimAll(list)
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*c = trimAll(strings.Split(single, "+"))
		return nil
	}

	return fmt.Errorf("expected string array or '+'-delimited string")
}

type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = trimAll(list)
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = trimAll(strings.Split(single, ","))
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if h := payload.Hotkey; h != nil {
		if h.Combo != nil {
			cfg.Hotkey.Combo = []string(*h.Combo)
		}
		setEnum(&cfg.Hotkey.Source, h.Source)
		if h.Devices != nil {
			cfg.Hotkey.Devices = []string(*h.Devices)
		}
	}

	if a := payload.Audio; a != nil {
		setEnum(&cfg.Audio.Backend, a.Backend)
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
		setInt(&cfg.Audio.SampleRate, a.SampleRate)
		setInt(&cfg.Audio.Channels, a.Channels)
	}

	if s := payload.Session; s != nil {
		setInt(&cfg.Session.MinDurationMS, s.MinDurationMS)
		setInt(&cfg.Session.TranscriptionTimeoutMS, s.TranscriptionTimeoutMS)
	}

	if a := payload.ASR; a != nil {
		setEnum(&cfg.ASR.Backend, a.Backend)
		setString(&cfg.ASR.Model, a.Model)
		setString(&cfg.ASR.Language, a.Language)
		if a.Prompt != nil {
			cfg.ASR.Prompt = *a.Prompt
		}
		setString(&cfg.ASR.BaseURL, a.BaseURL)
		setString(&cfg.ASR.APIKeyEnv, a.APIKeyEnv)
		setString(&cfg.ASR.Endpoint, a.Endpoint)
		setBool(&cfg.ASR.Insecure, a.Insecure)
		setString(&cfg.ASR.CredentialsFile, a.CredentialsFile)
		setBool(&cfg.ASR.AutomaticPunctuation, a.AutomaticPunctuation)
	}

	if t := payload.Transcript; t != nil {
		setBool(&cfg.Transcript.TrailingSpace, t.TrailingSpace)
		setBool(&cfg.Transcript.StripAnnotations, t.StripAnnotations)
	}

	if i := payload.Inject; i != nil {
		setEnum(&cfg.Inject.Backend, i.Backend)
		if i.Command != nil {
			raw := *i.Command
			argv, err := SplitCommand(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid inject.command: %w", err)
			}
			cfg.Inject.Command = CommandConfig{Raw: raw, Argv: argv}
		}
		setString(&cfg.Inject.YdotoolSocket, i.YdotoolSocket)
		setBool(&cfg.Inject.FallbackClipboard, i.FallbackClipboard)
		setBool(&cfg.Inject.RequireFocus, i.RequireFocus)
		setBool(&cfg.Inject.RestoreClipboard, i.RestoreClipboard)
		setEnum(&cfg.Inject.Paste, i.Paste)
		setString(&cfg.Inject.PasteShortcut, i.PasteShortcut)
	}

	if i := payload.Indicator; i != nil {
		setEnum(&cfg.Indicator.Backend, i.Backend)
		setBool(&cfg.Indicator.SoundEnable, i.SoundEnable)
		setString(&cfg.Indicator.AppName, i.AppName)
		setInt(&cfg.Indicator.ErrorTimeoutMS, i.ErrorTimeoutMS)
	}

	if payload.Vocab != nil {
		if payload.Vocab.Global != nil {
			cfg.Vocab.GlobalSets = []string(*payload.Vocab.Global)
		}
		setInt(&cfg.Vocab.MaxPhrases, payload.Vocab.MaxPhrases)
		if payload.Vocab.Sets != nil {
			if cfg.Vocab.Sets == nil {
				cfg.Vocab.Sets = make(map[string]VocabSet)
			}
			for name, set := range payload.Vocab.Sets {
				trimmedName := strings.TrimSpace(name)
				if trimmedName == "" {
					return nil, fmt.Errorf("vocab.sets contains an empty set name")
				}

				entry := VocabSet{Name: trimmedName, Phrases: append([]string(nil), set.Phrases...)}
				if set.Boost != nil {
					entry.Boost = *set.Boost
				}
				cfg.Vocab.Sets[trimmedName] = entry
			}
		}
	}

	if payload.Log != nil {
		setEnum(&cfg.Log.Level, payload.Log.Level)
		setBool(&cfg.Log.AudioDump, payload.Log.AudioDump)
	}

	return warnings, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// setEnum stores a keyword value lower-cased.
func setEnum(dst *string, src *string) {
	if src != nil {
		*dst = strings.ToLower(strings.TrimSpace(*src))
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
