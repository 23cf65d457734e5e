package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/murmur.jsonc", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/murmur.jsonc", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  string
		wantCmd  Command
		wantHelp bool
		wantPath string
	}{
		{
			name:     "help short flag",
			args:     []string{"-h"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:     "help long flag",
			args:     []string{"--help"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:     "version flag",
			args:     []string{"--version"},
			wantCmd:  CommandVersion,
			wantHelp: false,
		},
		{
			name:    "config after command",
			args:    []string{"status", "--config", "/tmp/cfg"},
			wantErr: "unexpected arguments after command",
		},
		{
			name:    "missing config path",
			args:    []string{"--config"},
			wantErr: "requires a path",
		},
		{
			name:     "config equals form",
			args:     []string{"--config=/tmp/murmur.jsonc", "status"},
			wantCmd:  CommandStatus,
			wantPath: "/tmp/murmur.jsonc",
		},
		{
			name:     "config short flag",
			args:     []string{"-c", "/tmp/cfg", "toggle"},
			wantCmd:  CommandToggle,
			wantPath: "/tmp/cfg",
		},
		{
			name:    "config flag swallowing a flag",
			args:    []string{"-c", "--help"},
			wantErr: "-c requires a path",
		},
		{
			name:    "empty config equals form",
			args:    []string{"--config=", "status"},
			wantErr: "--config requires a path",
		},
		{
			name:    "unknown flag",
			args:    []string{"--bogus"},
			wantErr: "unknown flag",
		},
		{
			name:    "unknown command",
			args:    []string{"bogus"},
			wantErr: "unknown command",
		},
		{
			name:    "extra args after command",
			args:    []string{"doctor", "extra"},
			wantErr: "unexpected arguments",
		},
		{
			name:     "valid cancel command",
			args:     []string{"cancel"},
			wantCmd:  CommandCancel,
			wantHelp: false,
		},
		{
			name:     "commands table",
			args:     []string{"commands"},
			wantCmd:  CommandCommands,
			wantHelp: false,
		},
		{
			name:     "reset with config",
			args:     []string{"--config", "/tmp/cfg", "reset"},
			wantCmd:  CommandReset,
			wantHelp: false,
			wantPath: "/tmp/cfg",
		},
		{
			name:    "reset takes no arguments",
			args:    []string{"reset", "all"},
			wantErr: "unexpected arguments after command",
		},
		{
			name:     "valid stop with config",
			args:     []string{"--config", "/tmp/cfg", "stop"},
			wantCmd:  CommandStop,
			wantHelp: false,
			wantPath: "/tmp/cfg",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
		})
	}
}

func TestHelpTextIncludesCoreCommands(t *testing.T) {
	text := HelpText("murmur")
	require.Contains(t, text, "murmur [--config PATH] <command>")
	require.Contains(t, text, "toggle")
	require.Contains(t, text, "commands")
	require.Contains(t, text, "reset")
	require.Contains(t, text, "stop")
	require.Contains(t, text, "cancel")
	require.Contains(t, text, "doctor")
	require.Contains(t, text, "--config PATH")
	require.Contains(t, text, "murmur/config.jsonc")
	require.Contains(t, text, "$MURMUR_CONFIG")
}
