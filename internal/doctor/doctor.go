// Package doctor runs readiness diagnostics for the desktop session, helper
// tools, audio input and the HTTP backends a dictation turn depends on.
package doctor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/command"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/hypr"
	"github.com/rbright/murmur/internal/llm"
	"github.com/rbright/murmur/internal/state"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment, tool, audio and backend checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})

	checks = append(checks, checkEnv("XDG_SESSION_TYPE", func(v string) bool {
		return strings.EqualFold(strings.TrimSpace(v), "wayland")
	}, "session type is wayland", "expected XDG_SESSION_TYPE=wayland"))

	checks = append(checks, checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty"))

	checks = append(checks, checkCommand(cfg.Config.Clipboard.Argv, "clipboard_cmd"))
	checks = append(checks, checkCommand(cfg.Config.ClipboardRead.Argv, "clipboard_read_cmd"))

	if cfg.Config.Paste.Enable {
		if len(cfg.Config.PasteCmd.Argv) > 0 {
			checks = append(checks, checkCommand(cfg.Config.PasteCmd.Argv, "paste_cmd"))
		} else {
			checks = append(checks, checkHyprland(ctx))
		}
	}

	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	checks = append(checks, checkCommandTable(cfg.Config.Commands))
	checks = append(checks, checkStateStore(ctx, cfg.Config.State))
	checks = append(checks, checkEndpoint(ctx, "stt.endpoint", cfg.Config.STT.URL, true))
	checks = append(checks, checkEndpoint(ctx, "ner.endpoint", cfg.Config.NER.URL, false))
	checks = append(checks, checkEndpoint(ctx, "tts.endpoint", cfg.Config.TTS.URL, false))
	checks = append(checks, checkLLMProviders(cfg.Config.LLM))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkHyprland asks the compositor for its version; the default paste path
// sends shortcuts through the same hyprctl socket.
func checkHyprland(ctx context.Context) Check {
	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	version, err := hypr.QueryVersion(queryCtx)
	if err != nil {
		return Check{Name: "hyprctl", Pass: false, Message: fmt.Sprintf("default paste path unavailable: %v", err)}
	}
	return Check{Name: "hyprctl", Pass: true, Message: fmt.Sprintf("Hyprland %s (%s) accepts shortcuts", version.Tag, version.Commit)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkCommandTable loads the signal command file the way a session would.
func checkCommandTable(cfg config.CommandsConfig) Check {
	loaded, err := command.Load(cfg.Path)
	if err != nil {
		return Check{Name: "commands", Pass: false, Message: err.Error()}
	}
	if !loaded.Exists {
		return Check{Name: "commands", Pass: true, Message: fmt.Sprintf("%q not found; %d built-in commands", loaded.Path, len(loaded.Table))}
	}
	message := fmt.Sprintf("%d commands from %q", len(loaded.Table), loaded.Path)
	if len(loaded.Warnings) > 0 {
		message += fmt.Sprintf(" (%d skipped)", len(loaded.Warnings))
	}
	return Check{Name: "commands", Pass: true, Message: message}
}

// checkStateStore opens the session state backend; redis is pinged.
func checkStateStore(ctx context.Context, cfg config.StateConfig) Check {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend != "redis" {
		store, err := state.Open(state.Options{Backend: backend, Path: cfg.Path})
		if err != nil {
			return Check{Name: "state", Pass: false, Message: err.Error()}
		}
		if file, ok := store.(*state.FileStore); ok {
			return Check{Name: "state", Pass: true, Message: fmt.Sprintf("file store at %q", file.Path())}
		}
		return Check{Name: "state", Pass: true, Message: "file store"}
	}

	store, err := state.NewRedisStore(cfg.RedisURL, state.WithKey(cfg.RedisKey))
	if err != nil {
		return Check{Name: "state", Pass: false, Message: err.Error()}
	}
	defer store.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		return Check{Name: "state", Pass: false, Message: err.Error()}
	}
	return Check{Name: "state", Pass: true, Message: fmt.Sprintf("redis reachable at %s", cfg.RedisURL)}
}

// checkEndpoint confirms an HTTP backend answers. Any response below 500
// counts, since transcription and synthesis endpoints only accept POST.
func checkEndpoint(ctx context.Context, name string, rawURL string, required bool) Check {
	endpoint := strings.TrimSpace(rawURL)
	if endpoint == "" {
		if required {
			return Check{Name: name, Pass: false, Message: "url is empty"}
		}
		return Check{Name: name, Pass: true, Message: "disabled"}
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "http://" + endpoint
	}

	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("invalid url: %v", err)}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 256))

	if resp.StatusCode >= http.StatusInternalServerError {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, endpoint)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("reachable at %s (HTTP %d)", endpoint, resp.StatusCode)}
}

// checkLLMProviders reports which providers have credentials and whether the
// default provider is among them.
func checkLLMProviders(cfg config.LLMConfig) Check {
	available := []string{}
	if llm.ResolveKey(cfg.Anthropic.APIKey, "ANTHROPIC_API_KEY") != "" {
		available = append(available, llm.ProviderAnthropic)
	}
	if llm.ResolveKey(cfg.Google.APIKey, "GOOGLE_API_KEY") != "" {
		available = append(available, llm.ProviderGoogle)
	}
	if llm.ResolveKey(cfg.OpenAI.APIKey, "OPENAI_API_KEY") != "" || strings.TrimSpace(cfg.OpenAI.BaseURL) != "" {
		available = append(available, llm.ProviderOpenAI)
	}

	if len(available) == 0 {
		return Check{Name: "llm.providers", Pass: false, Message: "no provider credentials found"}
	}
	def := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if def == "" {
		def = llm.ProviderAnthropic
	}
	for _, name := range available {
		if name == def {
			return Check{Name: "llm.providers", Pass: true, Message: "available: " + strings.Join(available, ", ")}
		}
	}
	return Check{Name: "llm.providers", Pass: false, Message: fmt.Sprintf("default provider %q has no credentials (available: %s)", def, strings.Join(available, ", "))}
}
