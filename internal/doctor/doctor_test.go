package doctor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rbright/voxtype/internal/config"
	"github.com/stretchr/testify/require"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_ENV", "wayland")

	check := checkEnv(
		"TEST_DOCTOR_ENV",
		func(v string) bool { return strings.EqualFold(v, "wayland") },
		"looks good",
		"unexpected",
	)

	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "inject.command")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryFound(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCommandUsesBinaryFromPath(t *testing.T) {
	dir := fakeBin(t, "fake-typer")

	check := checkCommand([]string{"fake-typer", "--arg"}, "inject.command")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "inject.command command is available")
	require.Contains(t, check.Message, dir)
}

func TestCheckConfigReportsMissingFileAndWarnings(t *testing.T) {
	check := checkConfig(config.Loaded{
		Path:     "/tmp/voxtype.jsonc",
		Warnings: []config.Warning{{Message: "a"}, {Message: "b"}},
	})
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "not found; using defaults")
	require.Contains(t, check.Message, "(2 warning(s))")
}

func TestCheckCombo(t *testing.T) {
	ok := checkCombo(config.HotkeyConfig{Combo: []string{"ctrl_l", "alt_l"}})
	require.True(t, ok.Pass)

	bad := checkCombo(config.HotkeyConfig{Combo: []string{"ctrl_l", "no-such-key"}})
	require.False(t, bad.Pass)
	require.Equal(t, "hotkey.combo", bad.Name)
}

func TestCheckKeySourceHookNeedsDisplay(t *testing.T) {
	t.Setenv("DISPLAY", "")
	check := checkKeySource(config.HotkeyConfig{Source: "hook"})
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "DISPLAY")

	t.Setenv("DISPLAY", ":0")
	check = checkKeySource(config.HotkeyConfig{Source: "hook"})
	require.True(t, check.Pass)
}

func TestCheckKeySourceEvdevReadableDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event3")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	check := checkKeySource(config.HotkeyConfig{Source: "evdev", Devices: []string{path}})
	require.True(t, check.Pass)
	require.Equal(t, "1 of 1 device(s) readable", check.Message)
}

func TestCheckKeySourceEvdevMissingDevice(t *testing.T) {
	check := checkKeySource(config.HotkeyConfig{
		Source:  "evdev",
		Devices: []string{filepath.Join(t.TempDir(), "missing")},
	})
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "none readable")
}

func TestCheckAudioNonPulseBackendIsInformational(t *testing.T) {
	check := checkAudio(context.Background(), config.AudioConfig{Backend: "malgo"})
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "malgo backend")
}

func TestCheckAudioFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkAudio(context.Background(), config.Default().Audio)
	require.False(t, check.Pass)
	require.Equal(t, "audio.device", check.Name)
}

func TestCheckASROpenAI(t *testing.T) {
	t.Setenv("VOXTYPE_TEST_KEY", "")
	cfg := config.Default().ASR
	cfg.APIKeyEnv = "VOXTYPE_TEST_KEY"

	check := checkASR(cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "VOXTYPE_TEST_KEY is empty")

	t.Setenv("VOXTYPE_TEST_KEY", "sk-test")
	require.True(t, checkASR(cfg).Pass)

	t.Setenv("VOXTYPE_TEST_KEY", "")
	cfg.BaseURL = "http://127.0.0.1:8000/v1"
	check = checkASR(cfg)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "base url")
}

func TestCheckASRGoogle(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	cfg := config.ASRConfig{Backend: "google"}
	require.False(t, checkASR(cfg).Pass)

	cfg.CredentialsFile = filepath.Join(t.TempDir(), "missing.json")
	check := checkASR(cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "credentials file")

	cfg.CredentialsFile = ""
	cfg.Insecure = true
	cfg.Endpoint = "127.0.0.1:50051"
	check = checkASR(cfg)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "127.0.0.1:50051")
}

func TestCheckInjectYdotoolSocket(t *testing.T) {
	fakeBin(t, "ydotool")
	cfg := config.Default().Inject
	cfg.Backend = "ydotool"
	cfg.FallbackClipboard = false
	cfg.YdotoolSocket = filepath.Join(t.TempDir(), "missing.sock")

	checks := checkInject(cfg)
	require.Len(t, checks, 2)
	require.True(t, checks[0].Pass)
	require.Equal(t, "ydotool.socket", checks[1].Name)
	require.False(t, checks[1].Pass)
}

func TestCheckInjectReportsAutoResolution(t *testing.T) {
	t.Setenv("WAYLAND_DISPLAY", "")
	t.Setenv("XDG_SESSION_TYPE", "x11")
	cfg := config.Default().Inject
	cfg.FallbackClipboard = false

	checks := checkInject(cfg)
	require.Len(t, checks, 2)
	require.Equal(t, Check{Name: "inject.backend", Pass: true, Message: "auto resolves to uinput"}, checks[0])
	require.Equal(t, "/dev/uinput", checks[1].Name)

	fakeBin(t, "ydotool")
	t.Setenv("XDG_SESSION_TYPE", "wayland")
	checks = checkInject(cfg)
	require.Equal(t, "auto resolves to ydotool", checks[0].Message)
	require.Equal(t, "ydotool", checks[1].Name)
	require.True(t, checks[1].Pass)
}

func TestCheckInjectHyprPasteUsesHyprctl(t *testing.T) {
	fakeBin(t, "hyprctl")
	cfg := config.Default().Inject
	cfg.Backend = "clipboard"
	cfg.Paste = "hypr"
	cfg.RequireFocus = true

	checks := checkInject(cfg)
	require.Len(t, checks, 1)
	require.Equal(t, "hyprctl", checks[0].Name)
	require.True(t, checks[0].Pass)
}

func TestRunSkipsHyprlandCheckWithoutHyprFeatures(t *testing.T) {
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")
	t.Setenv("DISPLAY", ":0")

	cfg := config.Default()
	cfg.Hotkey.Source = "hook"
	cfg.Audio.Backend = "malgo"
	cfg.Indicator.Backend = "none"
	cfg.Inject.Backend = "command"
	cfg.Inject.FallbackClipboard = false
	cfg.Inject.Command = config.CommandConfig{Raw: "sh", Argv: []string{"sh"}}
	cfg.ASR.BaseURL = "http://127.0.0.1:8000/v1"

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg, Exists: true})
	for _, check := range report.Checks {
		require.NotEqual(t, "HYPRLAND_INSTANCE_SIGNATURE", check.Name)
	}
	require.True(t, report.OK(), report.String())
}

func TestRunChecksHyprlandForHyprIndicator(t *testing.T) {
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: config.Default()})

	var saw bool
	for _, check := range report.Checks {
		if check.Name == "HYPRLAND_INSTANCE_SIGNATURE" {
			saw = true
			require.False(t, check.Pass)
		}
	}
	require.True(t, saw)
	require.False(t, report.OK())
}

func fakeBin(t *testing.T, name string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/usr/bin/env sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
	return dir
}
