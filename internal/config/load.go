package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/rbright/voxtype/internal/hotkey"
)

// Loaded is the effective configuration for one invocation.
type Loaded struct {
	Path   string
	Exists bool
	Config Config
	// Combo is Config.Hotkey.Combo resolved to canonical keys.
	Combo    hotkey.Combo
	Warnings []Warning
}

// Load reads the file at explicitPath, or the XDG default when empty. A
// missing file means defaults plus a warning. Every command goes through
// Load, so a combo naming an unknown key fails the same way everywhere.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}
	loaded := Loaded{Path: path}

	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		loaded.Exists = true
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = append(loaded.Warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", path),
		})
	default:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), Default())
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	combo, err := hotkey.ParseCombo(cfg.Hotkey.Combo)
	if err != nil {
		return Loaded{}, fmt.Errorf("config %q: hotkey.combo: %w", path, err)
	}

	loaded.Config = cfg
	loaded.Combo = combo
	loaded.Warnings = append(loaded.Warnings, warnings...)
	return loaded, nil
}

// Summary is a one-line description of where the config came from.
func (l Loaded) Summary() string {
	summary := fmt.Sprintf("loaded %q", l.Path)
	if !l.Exists {
		summary = fmt.Sprintf("%q not found; using defaults", l.Path)
	}
	if n := len(l.Warnings); n > 0 {
		summary += fmt.Sprintf(" (%d warning(s))", n)
	}
	return summary
}
