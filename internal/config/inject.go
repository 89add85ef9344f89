package config

import (
	"os"
	"os/exec"
	"strings"
)

// ResolveBackend maps inject.backend "auto" to a concrete backend: ydotool
// on a Wayland session when inject.command's program is on PATH, uinput
// otherwise. Any other value is returned unchanged.
func (c InjectConfig) ResolveBackend() string {
	if c.Backend != "auto" {
		return c.Backend
	}
	if !waylandSession() || len(c.Command.Argv) == 0 {
		return "uinput"
	}
	if _, err := exec.LookPath(c.Command.Argv[0]); err != nil {
		return "uinput"
	}
	return "ydotool"
}

func waylandSession() bool {
	return strings.TrimSpace(os.Getenv("WAYLAND_DISPLAY")) != "" ||
		strings.EqualFold(strings.TrimSpace(os.Getenv("XDG_SESSION_TYPE")), "wayland")
}
