package main

import (
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const helperArgsEnv = "VOXTYPE_MAIN_ARGS"

// TestMain runs main itself when the test binary is re-executed by
// runVoxtype.
func TestMain(m *testing.M) {
	if raw, ok := os.LookupEnv(helperArgsEnv); ok {
		var args []string
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			panic(err)
		}
		os.Args = append([]string{"voxtype"}, args...)
		main()
		return
	}
	os.Exit(m.Run())
}

func runVoxtype(t *testing.T, env []string, args ...string) (string, int) {
	t.Helper()

	encoded, err := json.Marshal(args)
	require.NoError(t, err)

	cmd := exec.Command(os.Args[0])
	cmd.Env = append(os.Environ(), helperArgsEnv+"="+string(encoded))
	cmd.Env = append(cmd.Env, env...)
	out, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return string(out), 0
	case errors.As(err, &exitErr):
		return string(out), exitErr.ExitCode()
	default:
		t.Fatalf("run voxtype %v: %v", args, err)
		return "", -1
	}
}

func TestKeysListsComboNames(t *testing.T) {
	out, code := runVoxtype(t, nil, "keys")
	require.Equal(t, 0, code, out)
	require.Contains(t, out, "CtrlL\n")
	require.Contains(t, out, "SuperR\n")
}

func TestVersionNamesBinary(t *testing.T) {
	out, code := runVoxtype(t, nil, "version")
	require.Equal(t, 0, code, out)
	require.Regexp(t, `^voxtype \S+ \(commit=`, out)
}

func TestStatusWithoutDaemonExitsOne(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "config.jsonc")
	require.NoError(t, os.WriteFile(config, []byte("{}\n"), 0o600))

	out, code := runVoxtype(t, []string{
		"XDG_RUNTIME_DIR=" + dir,
		"XDG_STATE_HOME=" + dir,
	}, "--config", config, "status")
	require.Equal(t, 1, code, out)
	require.Contains(t, out, "no voxtype daemon listening on "+filepath.Join(dir, "voxtype.sock"))
}

func TestUsageErrorsExitTwo(t *testing.T) {
	out, code := runVoxtype(t, nil, "toggle")
	require.Equal(t, 2, code)
	require.Contains(t, out, "unknown command")
	require.Contains(t, out, "Usage:")
}
