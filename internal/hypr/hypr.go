// Package hypr wraps the hyprctl calls used for focus checks, paste, and notifications.
package hypr

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ActiveWindow is the subset of `hyprctl -j activewindow` used for targeting.
type ActiveWindow struct {
	Address string `json:"address"`
	Class   string `json:"class"`
	Title   string `json:"title"`
}

// QueryActiveWindow returns the focused window. An empty address means no
// window has focus and is reported as an error.
func QueryActiveWindow(ctx context.Context) (ActiveWindow, error) {
	out, err := run(ctx, "-j", "activewindow")
	if err != nil {
		return ActiveWindow{}, err
	}

	var window ActiveWindow
	if err := json.Unmarshal(out, &window); err != nil {
		return ActiveWindow{}, fmt.Errorf("decode hyprctl activewindow json: %w", err)
	}
	window.Address = strings.TrimSpace(window.Address)
	window.Class = strings.TrimSpace(window.Class)
	window.Title = strings.TrimSpace(window.Title)
	if window.Address == "" {
		return ActiveWindow{}, fmt.Errorf("hyprctl activewindow returned empty address")
	}
	return window, nil
}

// SendShortcut sends a literal `dispatch sendshortcut` payload.
func SendShortcut(ctx context.Context, shortcut string) error {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		return fmt.Errorf("sendshortcut requires a non-empty payload")
	}
	_, err := run(ctx, "--quiet", "dispatch", "sendshortcut", shortcut)
	return err
}

// Notify shows a Hyprland notification.
func Notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.TrimSpace(color) == "" {
		color = "rgb(89b4fa)"
	}
	_, err := run(ctx, "--quiet", "dispatch", "notify",
		strconv.Itoa(icon), strconv.Itoa(timeoutMS), color, text)
	return err
}

// DismissNotify clears active Hyprland notifications.
func DismissNotify(ctx context.Context) error {
	_, err := run(ctx, "--quiet", "dispatch", "dismissnotify")
	return err
}

func run(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "hyprctl", args...).CombinedOutput()
	if err != nil {
		if trimmed := strings.TrimSpace(string(out)); trimmed != "" {
			return nil, fmt.Errorf("hyprctl %v failed: %w (%s)", args, err, trimmed)
		}
		return nil, fmt.Errorf("hyprctl %v failed: %w", args, err)
	}
	return out, nil
}
