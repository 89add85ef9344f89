// Package cli parses voxtype's command line.
package cli

import (
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun     Command = "run"
	CommandStatus  Command = "status"
	CommandCancel  Command = "cancel"
	CommandDevices Command = "devices"
	CommandKeys    Command = "keys"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

type commandEntry struct {
	name    Command
	summary string
	// standalone commands run without loading config or logging.
	standalone bool
}

// commands is listed in help order.
var commands = []commandEntry{
	{name: CommandRun, summary: "Start the push-to-talk daemon in the foreground"},
	{name: CommandStatus, summary: "Print the running daemon's state and last session"},
	{name: CommandCancel, summary: "Discard the recording in progress"},
	{name: CommandDevices, summary: "List available audio input sources"},
	{name: CommandKeys, summary: "Print key names usable in hotkey.combo", standalone: true},
	{name: CommandDoctor, summary: "Run configuration and environment checks"},
	{name: CommandVersion, summary: "Print version information", standalone: true},
	{name: CommandHelp, summary: "Show this help", standalone: true},
}

func lookup(name string) (commandEntry, bool) {
	for _, entry := range commands {
		if string(entry.name) == name {
			return entry, true
		}
	}
	return commandEntry{}, false
}

// NeedsConfig reports whether the command loads config and opens the log.
func (c Command) NeedsConfig() bool {
	entry, ok := lookup(string(c))
	return ok && !entry.standalone
}

// Foreground reports whether the command is the long-running daemon, which
// logs to the console and keeps config warnings out of stderr.
func (c Command) Foreground() bool { return c == CommandRun }

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
	// Debug forces debug-level logging regardless of log.level.
	Debug bool
}

// Parse reads global flags followed by at most one command. Flags after the
// command are rejected so "voxtype run --config x" cannot silently ignore x.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		flag, value, hasValue := strings.Cut(arg, "=")

		switch flag {
		case "-h", "--help":
			parsed.Command, parsed.ShowHelp = CommandHelp, true
			continue
		case "--version":
			parsed.Command, parsed.ShowHelp = CommandVersion, false
			continue
		case "--debug":
			parsed.Debug = true
			continue
		case "--config":
			if !hasValue {
				i++
				if i >= len(args) {
					return Parsed{}, fmt.Errorf("--config requires a path")
				}
				value = args[i]
			}
			if strings.TrimSpace(value) == "" {
				return Parsed{}, fmt.Errorf("--config requires a path")
			}
			parsed.ConfigPath = value
			continue
		}

		if strings.HasPrefix(arg, "-") {
			return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
		}
		entry, ok := lookup(arg)
		if !ok {
			return Parsed{}, fmt.Errorf("unknown command: %s", arg)
		}
		if rest := args[i+1:]; len(rest) > 0 {
			return Parsed{}, fmt.Errorf("unexpected arguments after command %q: %s", arg, strings.Join(rest, " "))
		}
		parsed.Command = entry.name
		parsed.ShowHelp = entry.name == CommandHelp
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage:\n  %s [--config PATH] [--debug] <command>\n\nCommands:\n", binaryName)
	for _, entry := range commands {
		fmt.Fprintf(&b, "  %-9s %s\n", entry.name, entry.summary)
	}
	b.WriteString(`
Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/voxtype/config.jsonc)
  --debug         Log at debug level
  -h, --help      Show help
  --version       Show version
`)
	return b.String()
}
