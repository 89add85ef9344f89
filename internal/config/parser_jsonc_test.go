package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeJSONCRemovesCommentsAndTrailingCommas(t *testing.T) {
	input := `
{
  // line comment
  "items": [
    "one", /* block comment */
    "two",
  ],
  "nested": {
    "enabled": true,
  },
}
`

	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.NotContains(t, normalized, "//")
	require.NotContains(t, normalized, "/*")
	require.NotContains(t, normalized, ",]")
	require.NotContains(t, normalized, ",}")
}

func TestNormalizeJSONCRetainsCommentLikeTextInsideStrings(t *testing.T) {
	input := `{"value":"contains // and /* comment-like */ text",}`
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Contains(t, normalized, "// and /* comment-like */")
}

func TestNormalizeJSONCUnterminatedBlockCommentFails(t *testing.T) {
	_, err := normalizeJSONC("{ /* unterminated ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated block comment")
}

func TestEnsureSingleJSONValueRejectsExtraPayload(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(`{"one":1}{"two":2}`))
	var payload map[string]any
	require.NoError(t, decoder.Decode(&payload))

	err := ensureSingleJSONValue(decoder)
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestOffsetToLineCol(t *testing.T) {
	content := "line1\nline2\nline3"
	line, col := offsetToLineCol(content, 1)
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)

	line, col = offsetToLineCol(content, 8) // line2, col2
	require.Equal(t, 2, line)
	require.Equal(t, 2, col)

	line, col = offsetToLineCol(content, 999)
	require.Equal(t, 3, line)
	require.Equal(t, 5, col)
}

func TestJSONCStringListUnmarshal(t *testing.T) {
	var list jsoncStringList
	require.NoError(t, list.UnmarshalJSON([]byte(`["a","b"]`)))
	require.Equal(t, []string{"a", "b"}, []string(list))

	require.NoError(t, list.UnmarshalJSON([]byte(`"a, b, , c"`)))
	require.Equal(t, []string{"a", "b", "c"}, []string(list))

	err := list.UnmarshalJSON([]byte(`123`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected string array")
}

func TestJSONCComboUnmarshal(t *testing.T) {
	var combo jsoncCombo
	require.NoError(t, combo.UnmarshalJSON([]byte(`["CtrlL", " AltL "]`)))
	require.Equal(t, []string{"CtrlL", "AltL"}, []string(combo))

	require.NoError(t, combo.UnmarshalJSON([]byte(`"ctrl + alt + 1"`)))
	require.Equal(t, []string{"ctrl", "alt", "1"}, []string(combo))

	err := combo.UnmarshalJSON([]byte(`{"keys": []}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "'+'-delimited")
}

func TestParseJSONCRejectsInvalidCommandArgv(t *testing.T) {
	_, _, err := parseJSONC(`{"inject":{"command":"unterminated ' quote"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid inject.command")
}

func TestParseJSONCParsesCommandArgv(t *testing.T) {
	cfg, _, err := parseJSONC(`{"inject":{"backend":"command","command":"wtype -d 2 -"}}`, Default())
	require.NoError(t, err)
	require.Equal(t, []string{"wtype", "-d", "2", "-"}, cfg.Inject.Command.Argv)
	require.Equal(t, "wtype -d 2 -", cfg.Inject.Command.Raw)
}

func TestParseJSONCVocabRejectsEmptySetName(t *testing.T) {
	_, _, err := parseJSONC(`{"vocab":{"sets":{" ":{"phrases":["x"]}}}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty set name")
}

func TestParseJSONCTrimsAndLowercasesKeywords(t *testing.T) {
	cfg, _, err := parseJSONC(`{
  "inject": {"paste_shortcut": "  CTRL,V  ", "backend": " UINPUT "},
  "indicator": {
    "backend": " Desktop ",
    "app_name": "  voxtype  "
  }
}`, Default())
	require.NoError(t, err)
	require.Equal(t, "CTRL,V", cfg.Inject.PasteShortcut)
	require.Equal(t, "uinput", cfg.Inject.Backend)
	require.Equal(t, "desktop", cfg.Indicator.Backend)
	require.Equal(t, "voxtype", cfg.Indicator.AppName)
}

func TestParseJSONCKeepsPromptWhitespace(t *testing.T) {
	cfg, _, err := parseJSONC(`{"asr": {"prompt": "  Hyprland, ydotool. "}}`, Default())
	require.NoError(t, err)
	require.Equal(t, "  Hyprland, ydotool. ", cfg.ASR.Prompt)
}

func TestParseJSONCRejectsMultipleTopLevelValues(t *testing.T) {
	_, _, err := parseJSONC(`{"log":{"level":"info"}}{"log":{"level":"debug"}}`, Default())
	require.Error(t, err)
	require.True(
		t,
		strings.Contains(err.Error(), "multiple JSON values") || strings.Contains(err.Error(), "unknown field"),
		"unexpected error: %v",
		err,
	)
}

func TestParseJSONCTypeErrorIncludesLocation(t *testing.T) {
	_, _, err := parseJSONC(`{
  "audio": {"sample_rate": "fast"}
}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line")
	require.Contains(t, err.Error(), "column")
}

func TestParseJSONCDevicesSupportCommaString(t *testing.T) {
	cfg, _, err := parseJSONC(`{
  "hotkey": {"devices": "/dev/input/event3, , /dev/input/event7"}
}`, Default())
	require.NoError(t, err)
	require.Equal(t, []string{"/dev/input/event3", "/dev/input/event7"}, cfg.Hotkey.Devices)
}

func TestParseJSONCAudioDumpDefaultsOff(t *testing.T) {
	require.False(t, Default().Log.AudioDump)

	cfg, _, err := parseJSONC(`{"log": {"audio_dump": true}}`, Default())
	require.NoError(t, err)
	require.True(t, cfg.Log.AudioDump)
	require.Equal(t, "info", cfg.Log.Level)
}
