package inject

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultCommand types stdin through the ydotoold daemon.
var DefaultCommand = []string{"ydotool", "type", "--key-delay", "1", "--file", "-"}

// CommandTyper pipes text to an external typing tool.
type CommandTyper struct {
	Argv []string
	// Socket, when set, is exported as YDOTOOL_SOCKET.
	Socket string
	// PerRune extends the base timeout for long transcripts.
	PerRune time.Duration
}

func (c CommandTyper) Name() string {
	if len(c.Argv) == 0 {
		return "command"
	}
	return c.Argv[0]
}

func (c CommandTyper) Type(ctx context.Context, text string) error {
	perRune := c.PerRune
	if perRune <= 0 {
		perRune = 20 * time.Millisecond
	}
	timeout := 5*time.Second + time.Duration(len([]rune(text)))*perRune

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var env []string
	if strings.TrimSpace(c.Socket) != "" {
		env = append(os.Environ(), "YDOTOOL_SOCKET="+c.Socket)
	}
	return runCommandWithInput(runCtx, c.Argv, env, text)
}

// runCommandWithInput executes argv with input on stdin. A nil env keeps the
// parent environment.
func runCommandWithInput(ctx context.Context, argv []string, env []string, input string) error {
	if len(argv) == 0 {
		return errors.New("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = env
	cmd.Stdin = strings.NewReader(input)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%s not installed: %w", argv[0], err)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("run %s: %w (%s)", argv[0], err, msg)
		}
		return fmt.Errorf("run %s: %w", argv[0], err)
	}
	return nil
}
