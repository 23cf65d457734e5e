package hypr

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueryActiveWindowAndFocusedMonitor(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
if [[ "${1:-}" == "-j" && "${2:-}" == "activewindow" ]]; then
  echo '{"address":" 0xabc ","class":" brave-browser ","initialClass":" Brave ","title":" Inbox "}'
  exit 0
fi
if [[ "${1:-}" == "-j" && "${2:-}" == "monitors" ]]; then
  echo '[{"name":"HDMI-A-1","focused":false},{"name":" DP-1 ","focused":true}]'
  exit 0
fi
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	window, err := QueryActiveWindow(context.Background())
	require.NoError(t, err)
	require.Equal(t, "0xabc", window.Address)
	require.Equal(t, "brave-browser", window.Class)
	require.Equal(t, "Brave", window.InitialClass)
	require.Equal(t, "Inbox", window.Title)
	require.Equal(t, []string{"brave-browser", "brave"}, window.Classes())

	monitor, err := QueryFocusedMonitor(context.Background())
	require.NoError(t, err)
	require.Equal(t, "DP-1", monitor)
}

func TestQueryActiveWindowRejectsEmptyAddress(t *testing.T) {
	installHyprctlStub(t, `
if [[ "${1:-}" == "-j" && "${2:-}" == "activewindow" ]]; then
  echo '{"address":"","class":"brave"}'
  exit 0
fi
echo '[]'
`)

	_, err := QueryActiveWindow(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty address")
}

func TestActiveWindowClasses(t *testing.T) {
	require.Equal(t, []string{"kitty"}, ActiveWindow{Class: "kitty", InitialClass: "Kitty"}.Classes())
	require.Equal(t, []string{"foot"}, ActiveWindow{InitialClass: " foot "}.Classes())
	require.Empty(t, ActiveWindow{}.Classes())
}

func TestWaitActiveWindow(t *testing.T) {
	countFile := filepath.Join(t.TempDir(), "count")
	t.Setenv("HYPR_COUNT_FILE", countFile)
	installHyprctlStub(t, `
echo x >> "${HYPR_COUNT_FILE}"
if [[ $(wc -l < "${HYPR_COUNT_FILE}") -lt 3 ]]; then
  echo '{"address":""}'
else
  echo '{"address":"0xdef","class":"kitty"}'
fi
`)

	window, err := WaitActiveWindow(context.Background(), 5, time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, "0xdef", window.Address)

	require.NoError(t, os.Remove(countFile))
	_, err = WaitActiveWindow(context.Background(), 2, time.Millisecond)
	require.ErrorContains(t, err, "resolve active window: hyprctl activewindow returned empty address")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, os.Remove(countFile))
	_, err = WaitActiveWindow(ctx, 3, time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPasteToTargetsWindowAddress(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	require.NoError(t, PasteTo(context.Background(), " CTRL SHIFT,V ", ActiveWindow{Address: "0xabc"}))
	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Equal(t, "--quiet dispatch sendshortcut CTRL SHIFT,V,address:0xabc\n", string(data))

	require.ErrorContains(t, PasteTo(context.Background(), "", ActiveWindow{Address: "0xabc"}), "shortcut cannot be empty")
	require.ErrorContains(t, PasteTo(context.Background(), "CTRL,V", ActiveWindow{}), "address is required")
	require.ErrorContains(t, SendShortcut(context.Background(), " "), "non-empty payload")
}

func TestNotifyAndDismissUseHyprctlDispatch(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	err := Notify(context.Background(), Notice{Icon: IconError, Timeout: 1200 * time.Millisecond, Text: "Speech recognition error"})
	require.NoError(t, err)

	err = Notify(context.Background(), Notice{Icon: IconOK, Timeout: time.Second, Color: "rgb(a6e3a1)", Text: "Pasted: hi"})
	require.NoError(t, err)

	err = DismissNotify(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Equal(t, []string{
		"--quiet dispatch notify 3 1200 rgb(89b4fa) Speech recognition error",
		"--quiet dispatch notify 5 1000 rgb(a6e3a1) Pasted: hi",
		"--quiet dispatch dismissnotify",
	}, lines)
}

func TestSendShortcutReturnsCombinedOutputOnFailure(t *testing.T) {
	installHyprctlStub(t, `
echo 'boom from hyprctl' >&2
exit 1
`)

	err := SendShortcut(context.Background(), "CTRL,V,address:0xabc")
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom from hyprctl")
}

func TestQueryVersion(t *testing.T) {
	installHyprctlStub(t, `
if [[ "${1:-}" == "-j" && "${2:-}" == "version" ]]; then
  echo '{"tag":" v0.45.2 ","commit":"a1b2c3","branch":"main"}'
  exit 0
fi
exit 1
`)

	version, err := QueryVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, Version{Tag: "v0.45.2", Commit: "a1b2c3"}, version)
}

func TestQueryVersionFailsWithoutCompositor(t *testing.T) {
	installHyprctlStub(t, `
echo 'HYPRLAND_INSTANCE_SIGNATURE not set' >&2
exit 1
`)

	_, err := QueryVersion(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "HYPRLAND_INSTANCE_SIGNATURE")
}

func installHyprctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "hyprctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
