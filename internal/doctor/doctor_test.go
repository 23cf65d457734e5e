package doctor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rbright/murmur/internal/config"
	"github.com/stretchr/testify/require"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_ENV", "wayland")

	check := checkEnv(
		"TEST_DOCTOR_ENV",
		func(v string) bool { return strings.EqualFold(v, "wayland") },
		"looks good",
		"unexpected",
	)

	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "clipboard_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryFound(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCommandUsesBinaryFromPath(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fake-bin")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/usr/bin/env bash\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	check := checkCommand([]string{"fake-bin", "--arg"}, "clipboard_cmd")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "clipboard_cmd command is available")
}

func TestCheckEndpointReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	t.Cleanup(server.Close)

	check := checkEndpoint(context.Background(), "stt.endpoint", server.URL+"/v1/audio/transcriptions", true)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "HTTP 405")
}

func TestCheckEndpointServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	check := checkEndpoint(context.Background(), "ner.endpoint", strings.TrimPrefix(server.URL, "http://"), false)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "HTTP 503")
}

func TestCheckEndpointEmptyURL(t *testing.T) {
	required := checkEndpoint(context.Background(), "stt.endpoint", " ", true)
	require.False(t, required.Pass)
	require.Contains(t, required.Message, "url is empty")

	optional := checkEndpoint(context.Background(), "tts.endpoint", "", false)
	require.True(t, optional.Pass)
	require.Equal(t, "disabled", optional.Message)
}

func TestCheckEndpointUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	check := checkEndpoint(context.Background(), "tts.endpoint", url, false)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "request failed")
}

func TestCheckLLMProviders(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("MURMUR_GEMINI", "g-key")

	none := checkLLMProviders(config.LLMConfig{Provider: "anthropic"})
	require.False(t, none.Pass)
	require.Contains(t, none.Message, "no provider credentials")

	cfg := config.LLMConfig{Provider: "anthropic", Google: config.LLMProviderConfig{APIKey: "${MURMUR_GEMINI}"}}
	missingDefault := checkLLMProviders(cfg)
	require.False(t, missingDefault.Pass)
	require.Contains(t, missingDefault.Message, `default provider "anthropic"`)

	cfg.Provider = "Google"
	cfg.OpenAI.BaseURL = "http://127.0.0.1:11434/v1"
	ok := checkLLMProviders(cfg)
	require.True(t, ok.Pass)
	require.Equal(t, "available: google, openai", ok.Message)
}

func TestCheckCommandTable(t *testing.T) {
	dir := t.TempDir()

	missing := checkCommandTable(config.CommandsConfig{Path: filepath.Join(dir, "missing.yaml")})
	require.True(t, missing.Pass)
	require.Contains(t, missing.Message, "built-in commands")

	path := filepath.Join(dir, "commands.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`commands:
  - name: shout
    signal_phrase: shout
    match_position: start
    actions: [process_template]
    template: "{text}!"
  - name: broken
`), 0o644))

	loaded := checkCommandTable(config.CommandsConfig{Path: path})
	require.True(t, loaded.Pass)
	require.Contains(t, loaded.Message, "1 commands")
	require.Contains(t, loaded.Message, "(1 skipped)")
}

func TestCheckStateStoreFileAndRedis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	file := checkStateStore(context.Background(), config.StateConfig{Backend: "file", Path: path})
	require.True(t, file.Pass)
	require.Contains(t, file.Message, path)

	unknown := checkStateStore(context.Background(), config.StateConfig{Backend: "etcd"})
	require.False(t, unknown.Pass)

	mr := miniredis.RunT(t)
	redisURL := "redis://" + mr.Addr()
	reachable := checkStateStore(context.Background(), config.StateConfig{Backend: "redis", RedisURL: redisURL})
	require.True(t, reachable.Pass)
	require.Contains(t, reachable.Message, "redis reachable")

	mr.Close()
	down := checkStateStore(context.Background(), config.StateConfig{Backend: "redis", RedisURL: redisURL})
	require.False(t, down.Pass)
}

func TestCheckAudioSelectionFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkAudioSelection(context.Background(), config.Default())
	require.False(t, check.Pass)
	require.Contains(t, check.Name, "audio.device")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestRunUsesPasteCmdOverrideCheck(t *testing.T) {
	binDir := t.TempDir()
	fakePaste := filepath.Join(binDir, "fake-paste")
	require.NoError(t, os.WriteFile(fakePaste, []byte("#!/usr/bin/env sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	t.Setenv("XDG_SESSION_TYPE", "wayland")
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "abc123")

	cfg := config.Default()
	cfg.Paste.Enable = true
	cfg.PasteCmd = config.CommandConfig{Raw: fakePaste, Argv: []string{"fake-paste"}}
	cfg.STT.URL = ""

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg})
	require.NotEmpty(t, report.Checks)

	var sawPasteCmd, sawHypr bool
	for _, check := range report.Checks {
		if check.Name == "fake-paste" {
			sawPasteCmd = true
		}
		if check.Name == "hyprctl" {
			sawHypr = true
		}
	}
	require.True(t, sawPasteCmd)
	require.False(t, sawHypr)
}

func TestRunUsesHyprctlWhenPasteCmdUnset(t *testing.T) {
	binDir := t.TempDir()
	fakeHypr := filepath.Join(binDir, "hyprctl")
	script := "#!/usr/bin/env sh\necho '{\"tag\":\"v0.45.2\",\"commit\":\"a1b2c3\"}'\n"
	require.NoError(t, os.WriteFile(fakeHypr, []byte(script), 0o755))
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	t.Setenv("XDG_SESSION_TYPE", "wayland")
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "abc123")

	cfg := config.Default()
	cfg.Paste.Enable = true
	cfg.PasteCmd = config.CommandConfig{}
	cfg.STT.URL = ""

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg})
	require.NotEmpty(t, report.Checks)

	var hyprCheck *Check
	for i := range report.Checks {
		if report.Checks[i].Name == "hyprctl" {
			hyprCheck = &report.Checks[i]
			break
		}
	}
	require.NotNil(t, hyprCheck)
	require.True(t, hyprCheck.Pass)
	require.Equal(t, "Hyprland v0.45.2 (a1b2c3) accepts shortcuts", hyprCheck.Message)
}

func TestCheckHyprlandFailsWithoutCompositor(t *testing.T) {
	binDir := t.TempDir()
	script := "#!/usr/bin/env sh\necho 'HYPRLAND_INSTANCE_SIGNATURE not set' >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "hyprctl"), []byte(script), 0o755))
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))

	check := checkHyprland(context.Background())
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "default paste path unavailable")
	require.Contains(t, check.Message, "HYPRLAND_INSTANCE_SIGNATURE")
}
