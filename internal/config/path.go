package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigEnv overrides the config location when --config is not given.
const ConfigEnv = "VOXTYPE_CONFIG"

// ResolvePath picks the config file: the explicit path, then $VOXTYPE_CONFIG,
// then $XDG_CONFIG_HOME/voxtype/config.jsonc, then ~/.config.
func ResolvePath(explicit string) (string, error) {
	for _, candidate := range []string{explicit, os.Getenv(ConfigEnv)} {
		if c := strings.TrimSpace(candidate); c != "" {
			return c, nil
		}
	}

	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "voxtype", "config.jsonc"), nil
}
