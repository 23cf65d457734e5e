package indicator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/session"
	"github.com/stretchr/testify/require"
)

func TestHyprNotifyDispatchAndFocusedMonitorTracking(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
if [[ "${1:-}" == "-j" && "${2:-}" == "monitors" ]]; then
  echo '[{"name":"DP-1","focused":true}]'
  exit 0
fi
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	cfg.SoundEnable = false
	cfg.Enable = true
	cfg.TextRecording = "Recording"
	cfg.TextProcessing = "Transcribing"
	cfg.TextError = "Speech error"

	notify := NewHyprNotify(cfg, nil)
	notify.ShowRecording(context.Background())
	notify.ShowTranscribing(context.Background())
	notify.ShowError(context.Background(), "")
	notify.Hide(context.Background())

	require.Equal(t, "DP-1", notify.FocusedMonitor())

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "--quiet dispatch notify 1 300000 rgb(89b4fa) Recording", lines[0])
	require.Equal(t, "--quiet dispatch notify 1 300000 rgb(cba6f7) Transcribing", lines[1])
	require.Equal(t, "--quiet dispatch notify 3 1600 rgb(f38ba8) Speech error", lines[2])
	require.Equal(t, "--quiet dispatch dismissnotify", lines[3])
}

func TestHyprNotifyShowErrorUsesProvidedTextAndDefaultTimeout(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	cfg.SoundEnable = false
	cfg.ErrorTimeoutMS = 0 // exercises fallback to 1200ms

	notify := NewHyprNotify(cfg, nil)
	notify.ShowError(context.Background(), "custom error")

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Equal(t, "--quiet dispatch notify 3 1200 rgb(f38ba8) custom error\n", string(data))
}

func TestHyprNotifyDisabledSkipsHyprctlDispatch(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	cfg.Enable = false
	cfg.SoundEnable = false

	notify := NewHyprNotify(cfg, nil)
	notify.ShowRecording(context.Background())
	notify.ShowTranscribing(context.Background())
	notify.ShowError(context.Background(), "ignored")
	notify.Hide(context.Background())

	_, err := os.Stat(argsFile)
	require.Error(t, err)
	require.True(t, os.IsNotExist(err))
}

func TestHyprNotifyProcessingAndPastedNotices(t *testing.T) {
	t.Setenv("LANG", "en_US.UTF-8")
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	cfg.SoundEnable = false

	var notify session.Indicator = NewHyprNotify(cfg, nil)
	notify.ShowProcessing(context.Background(), "Asking LLM…")
	notify.ShowProcessing(context.Background(), "  ")
	notify.ShowPasted(context.Background(), "hello world")

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Equal(t, []string{
		"--quiet dispatch notify 1 300000 rgb(f9e2af) Asking LLM…",
		"--quiet dispatch notify 1 300000 rgb(f9e2af) Processing…",
		"--quiet dispatch notify 5 1600 rgb(a6e3a1) Pasted: hello world",
	}, lines)
}

func TestFocusedMonitorStaysEmptyWhenQueryFails(t *testing.T) {
	installHyprctlStub(t, `
exit 1
`)

	cfg := config.Default().Indicator
	cfg.Enable = true
	cfg.SoundEnable = false

	notify := NewHyprNotify(cfg, nil)
	notify.ShowRecording(context.Background())
	require.Empty(t, notify.FocusedMonitor())
}

func TestDesktopBackendReplacesNoticesWithUrgency(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installStub(t, "busctl", `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
echo 'u 42'
`)
	installStub(t, "hyprctl", "exit 1")

	cfg := config.Default().Indicator
	cfg.Enable = true
	cfg.SoundEnable = false
	cfg.Backend = "desktop"
	cfg.DesktopAppName = "murmur-test"
	cfg.ErrorTimeoutMS = 1600

	notify := NewHyprNotify(cfg, nil)
	notify.ShowRecording(context.Background())
	notify.ShowError(context.Background(), "Speech error")
	notify.Hide(context.Background())
	notify.Hide(context.Background())

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "Notify susssasa{sv}i murmur-test 0 ")
	require.True(t, strings.HasSuffix(lines[0], " 0 1 urgency y 0 300000"), lines[0])
	require.Contains(t, lines[1], "murmur-test 42  Speech error ")
	require.True(t, strings.HasSuffix(lines[1], " 0 1 urgency y 2 1600"), lines[1])
	require.True(t, strings.HasSuffix(lines[2], "CloseNotification u 42"), lines[2])
}

func TestParseNotificationID(t *testing.T) {
	id, err := parseNotificationID("u 17")
	require.NoError(t, err)
	require.Equal(t, uint32(17), id)

	_, err = parseNotificationID("s hello")
	require.ErrorContains(t, err, "invalid response")
	_, err = parseNotificationID("u -1")
	require.ErrorContains(t, err, "parse id")
}

func installHyprctlStub(t *testing.T, body string) {
	t.Helper()
	installStub(t, "hyprctl", body)
}

func installStub(t *testing.T, name string, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
