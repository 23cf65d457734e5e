// Package cli parses the murmur command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandToggle   Command = "toggle"
	CommandStop     Command = "stop"
	CommandCancel   Command = "cancel"
	CommandStatus   Command = "status"
	CommandCommands Command = "commands"
	CommandReset    Command = "reset"
	CommandDevices  Command = "devices"
	CommandDoctor   Command = "doctor"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandToggle:   {},
	CommandStop:     {},
	CommandCancel:   {},
	CommandStatus:   {},
	CommandCommands: {},
	CommandReset:    {},
	CommandDevices:  {},
	CommandDoctor:   {},
	CommandVersion:  {},
	CommandHelp:     {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
}

// Parse reads flags and exactly one trailing command. No arguments means help.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if path, ok := strings.CutPrefix(arg, "--config="); ok {
			if strings.TrimSpace(path) == "" {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = path
			continue
		}

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "-c", "--config":
			i++
			if i >= len(args) || strings.HasPrefix(args[i], "-") {
				return Parsed{}, fmt.Errorf("%s requires a path", arg)
			}
			parsed.ConfigPath = args[i]
		default:
			cmd, err := parseCommand(arg)
			if err != nil {
				return Parsed{}, err
			}
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
		}
	}

	return parsed, nil
}

func parseCommand(arg string) (Command, error) {
	if strings.HasPrefix(arg, "-") {
		return "", fmt.Errorf("unknown flag: %s", arg)
	}
	cmd := Command(arg)
	if _, ok := validCommands[cmd]; !ok {
		return "", fmt.Errorf("unknown command: %s", arg)
	}
	return cmd, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  toggle    Start recording, or stop and dispatch when already recording
  stop      Stop active recording and dispatch the transcript
  cancel    Cancel active recording and discard it
  status    Print state, mode and next language
  commands  Print the effective signal command table as YAML
  reset     Clear the stored mode and pending language
  devices   List available input devices
  doctor    Run configuration, service and environment checks
  version   Print version information
  help      Show this help

Flags:
  -c, --config PATH  Config file path (default: $MURMUR_CONFIG, then
                     $XDG_CONFIG_HOME/murmur/config.jsonc)
  -h, --help         Show help
  --version          Show version
`, binaryName)
}
