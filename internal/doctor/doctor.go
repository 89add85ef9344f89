// Package doctor runs readiness diagnostics for the key source, audio input,
// speech engine, and injection path selected by the loaded config.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/rbright/voxtype/internal/audio"
	"github.com/rbright/voxtype/internal/config"
	"github.com/rbright/voxtype/internal/hotkey"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}

	checks = append(checks, checkCombo(cfg.Hotkey))
	checks = append(checks, checkKeySource(cfg.Hotkey))

	checks = append(checks, Check{
		Name:    "XDG_SESSION_TYPE",
		Pass:    true,
		Message: sessionTypeMessage(os.Getenv("XDG_SESSION_TYPE")),
	})

	if cfg.Indicator.Backend == "hypr" || (cfg.Inject.Backend == "clipboard" && cfg.Inject.Paste == "hypr") || cfg.Inject.RequireFocus {
		checks = append(checks, checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
			return strings.TrimSpace(v) != ""
		}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty"))
	}

	checks = append(checks, checkAudio(ctx, cfg.Audio))
	checks = append(checks, checkInject(cfg.Inject)...)
	checks = append(checks, checkASR(cfg.ASR))

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	return Check{Name: "config", Pass: true, Message: loaded.Summary()}
}

func checkCombo(cfg config.HotkeyConfig) Check {
	combo, err := hotkey.ParseCombo(cfg.Combo)
	if err != nil {
		return Check{Name: "hotkey.combo", Pass: false, Message: err.Error()}
	}
	return Check{Name: "hotkey.combo", Pass: true, Message: combo.String()}
}

func checkKeySource(cfg config.HotkeyConfig) Check {
	if cfg.Source == "hook" {
		return checkEnv("DISPLAY", func(v string) bool {
			return strings.TrimSpace(v) != ""
		}, "X display available for the hook source", "hook source needs DISPLAY (X11 or XWayland)")
	}

	paths := cfg.Devices
	if len(paths) == 0 {
		found, err := hotkey.DiscoverKeyboards()
		if err != nil {
			return Check{Name: "hotkey.evdev", Pass: false, Message: err.Error()}
		}
		paths = found
	}
	if len(paths) == 0 {
		return Check{Name: "hotkey.evdev", Pass: false, Message: "no keyboard event devices found under /dev/input"}
	}

	var readable []string
	for _, path := range paths {
		if unix.Access(path, unix.R_OK) == nil {
			readable = append(readable, path)
		}
	}
	if len(readable) == 0 {
		return Check{
			Name:    "hotkey.evdev",
			Pass:    false,
			Message: fmt.Sprintf("%d device(s) found but none readable; add the user to the input group", len(paths)),
		}
	}
	return Check{Name: "hotkey.evdev", Pass: true, Message: fmt.Sprintf("%d of %d device(s) readable", len(readable), len(paths))}
}

func sessionTypeMessage(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "not set"
	}
	return value
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudio runs live source selection on pulse. Other backends open the
// system default input and have nothing to resolve ahead of time.
func checkAudio(ctx context.Context, cfg config.AudioConfig) Check {
	if cfg.Backend != "pulse" {
		return Check{Name: "audio.device", Pass: true, Message: fmt.Sprintf("%s backend uses the default input", cfg.Backend)}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	selection, err := audio.SelectSource(ctx, cfg.Input, cfg.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Source.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

func checkInject(cfg config.InjectConfig) []Check {
	var checks []Check
	backend := cfg.ResolveBackend()
	if backend != cfg.Backend {
		checks = append(checks, Check{Name: "inject.backend", Pass: true, Message: fmt.Sprintf("%s resolves to %s", cfg.Backend, backend)})
	}
	switch backend {
	case "ydotool":
		checks = append(checks, checkCommand(cfg.Command.Argv, "inject.command"))
		if socket := ydotoolSocket(cfg.YdotoolSocket); socket != "" {
			checks = append(checks, checkSocket("ydotool.socket", socket))
		}
	case "command":
		checks = append(checks, checkCommand(cfg.Command.Argv, "inject.command"))
	case "uinput":
		checks = append(checks, checkWritable("/dev/uinput"))
	}

	if cfg.Backend == "clipboard" || cfg.FallbackClipboard {
		if cfg.Paste == "hypr" {
			checks = append(checks, checkBinary("hyprctl", "clipboard paste uses hyprctl"))
		} else {
			checks = append(checks, checkWritable("/dev/uinput"))
		}
	}
	if cfg.RequireFocus && cfg.Paste != "hypr" {
		checks = append(checks, checkBinary("hyprctl", "focus check uses hyprctl"))
	}
	return dedupe(checks)
}

func ydotoolSocket(configured string) string {
	if s := strings.TrimSpace(configured); s != "" {
		return s
	}
	return strings.TrimSpace(os.Getenv("YDOTOOL_SOCKET"))
}

func checkSocket(name, path string) Check {
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s: %v", path, err)}
	}
	if info.Mode()&os.ModeSocket == 0 {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is not a socket", path)}
	}
	return Check{Name: name, Pass: true, Message: path}
}

func checkWritable(path string) Check {
	if err := unix.Access(path, unix.W_OK); err != nil {
		return Check{Name: path, Pass: false, Message: fmt.Sprintf("not writable: %v", err)}
	}
	return Check{Name: path, Pass: true, Message: "writable"}
}

func checkASR(cfg config.ASRConfig) Check {
	switch cfg.Backend {
	case "google":
		switch {
		case cfg.Insecure:
			return Check{Name: "asr.google", Pass: true, Message: fmt.Sprintf("plaintext endpoint %s", cfg.Endpoint)}
		case cfg.CredentialsFile != "":
			if _, err := os.Stat(cfg.CredentialsFile); err != nil {
				return Check{Name: "asr.google", Pass: false, Message: fmt.Sprintf("credentials file: %v", err)}
			}
			return Check{Name: "asr.google", Pass: true, Message: fmt.Sprintf("credentials from %s", cfg.CredentialsFile)}
		case os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "":
			return Check{Name: "asr.google", Pass: true, Message: "credentials from GOOGLE_APPLICATION_CREDENTIALS"}
		default:
			return Check{Name: "asr.google", Pass: false, Message: "no credentials_file and GOOGLE_APPLICATION_CREDENTIALS is empty"}
		}
	default:
		if cfg.BaseURL != "" {
			return Check{Name: "asr.openai", Pass: true, Message: fmt.Sprintf("base url %s", cfg.BaseURL)}
		}
		if strings.TrimSpace(os.Getenv(cfg.APIKeyEnv)) == "" {
			return Check{Name: "asr.openai", Pass: false, Message: fmt.Sprintf("%s is empty and asr.base_url is unset", cfg.APIKeyEnv)}
		}
		return Check{Name: "asr.openai", Pass: true, Message: fmt.Sprintf("api key from %s", cfg.APIKeyEnv)}
	}
}

func dedupe(checks []Check) []Check {
	seen := map[string]struct{}{}
	out := checks[:0]
	for _, check := range checks {
		if _, ok := seen[check.Name]; ok {
			continue
		}
		seen[check.Name] = struct{}{}
		out = append(out, check)
	}
	return out
}
