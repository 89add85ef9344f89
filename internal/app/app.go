// Package app dispatches voxtype commands and wires the dictation daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rbright/voxtype/internal/audio"
	"github.com/rbright/voxtype/internal/cli"
	"github.com/rbright/voxtype/internal/config"
	"github.com/rbright/voxtype/internal/doctor"
	"github.com/rbright/voxtype/internal/hotkey"
	"github.com/rbright/voxtype/internal/ipc"
	"github.com/rbright/voxtype/internal/logging"
	"github.com/rbright/voxtype/internal/version"
)

const forwardTimeout = 220 * time.Millisecond

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("voxtype"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("voxtype"))
		return 0
	}

	if !parsed.Command.NeedsConfig() {
		switch parsed.Command {
		case cli.CommandVersion:
			fmt.Fprintln(r.Stdout, version.String())
			return 0
		case cli.CommandKeys:
			return r.commandKeys()
		}
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	level := cfgLoaded.Config.Log.Level
	if parsed.Debug {
		level = "debug"
	}
	logOpts := logging.Options{Level: level}
	if parsed.Command.Foreground() {
		logOpts.Console = r.Stderr
		logOpts.NoColor = !isTerminal(r.Stderr)
	}
	logRuntime, err := logging.New(logOpts)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		if !parsed.Command.Foreground() {
			fmt.Fprintf(r.Stderr, "warning: %s\n", w)
		}
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Debug("command start",
		"command", string(parsed.Command),
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded, logger)
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandCancel:
		return r.commandCancel(ctx)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandKeys() int {
	for _, key := range hotkey.KnownKeys() {
		fmt.Fprintln(r.Stdout, string(key))
	}
	return 0
}

func (r Runner) commandDevices(ctx context.Context) int {
	sources, err := audio.ListSources(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(sources) == 0 {
		fmt.Fprintln(r.Stdout, "no audio input sources found")
		return 1
	}

	for _, source := range sources {
		defaultMark := " "
		if source.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			source.ID,
			source.Description,
			source.State,
			yesNo(source.Available),
			yesNo(source.Muted),
		)
	}
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	client, err := daemonClient()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, err := client.Status(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprint(r.Stdout, renderStatus(resp))
	return 0
}

func renderStatus(resp ipc.Response) string {
	state := resp.State
	if state == "" {
		state = "idle"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "state: %s\n", state)
	status := resp.Status
	if status == nil {
		return b.String()
	}
	fmt.Fprintf(&b, "pid: %d\n", status.PID)
	if status.Combo != "" {
		fmt.Fprintf(&b, "combo: %s\n", status.Combo)
	}
	fmt.Fprintf(&b, "sessions: %d\n", status.Sessions)

	kinds := make([]string, 0, len(status.Outcomes))
	for kind := range status.Outcomes {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(&b, "  %s: %d\n", kind, status.Outcomes[kind])
	}

	if last := status.Last; last != nil {
		fmt.Fprintf(&b, "last: %s (%s, %dms audio, %s)\n", last.Outcome, last.ID, last.AudioMS, last.FinishedAt)
		if last.Error != "" {
			fmt.Fprintf(&b, "last error: %s\n", last.Error)
		}
	}
	return b.String()
}

func (r Runner) commandCancel(ctx context.Context) int {
	client, err := daemonClient()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, err := client.Cancel(ctx)
	switch {
	case errors.Is(err, ipc.ErrNoDaemon):
		fmt.Fprintln(r.Stderr, "error: voxtype daemon is not running")
		return 1
	case err != nil:
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func daemonClient() (ipc.Client, error) {
	path, err := ipc.RuntimeSocketPath()
	if err != nil {
		return ipc.Client{}, err
	}
	return ipc.Client{Path: path, Timeout: forwardTimeout}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
