// Package app maps parsed CLI commands onto owner sessions, IPC forwarding
// and the one-shot diagnostic commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/cli"
	"github.com/rbright/murmur/internal/command"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/doctor"
	"github.com/rbright/murmur/internal/ipc"
	"github.com/rbright/murmur/internal/logging"
	"github.com/rbright/murmur/internal/session"
	"github.com/rbright/murmur/internal/state"
	"github.com/rbright/murmur/internal/version"
)

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
		fmt.Fprint(r.Stderr, cli.HelpText("murmur"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("murmur"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, cfgErr := config.Load(parsed.ConfigPath)

	logOpts := logging.Options{}
	if cfgErr == nil {
		logOpts = logging.Options{
			Level:      cfgLoaded.Config.Log.Level,
			MaxSizeMB:  cfgLoaded.Config.Log.MaxSizeMB,
			MaxBackups: cfgLoaded.Config.Log.MaxBackups,
		}
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

	if cfgErr != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", cfgErr)
		logger.Error("load config failed", "error", cfgErr.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	if speechPlan, _, err := config.BuildSpeechPhrases(cfgLoaded.Config); err == nil {
		logger.Debug("speech context plan", "phrase_count", len(speechPlan), "phrases", speechPlan)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
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
		return r.commandStatus(ctx, cfgLoaded.Config)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.CommandStop)
	case cli.CommandCancel:
		return r.forwardOrFail(ctx, ipc.CommandCancel)
	case cli.CommandToggle:
		return r.commandToggle(ctx, cfgLoaded.Config, logger)
	case cli.CommandCommands:
		return r.commandCommands(cfgLoaded.Config)
	case cli.CommandReset:
		return r.commandReset(ctx, cfgLoaded.Config)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

// commandStatus reports the owner's state, or idle plus any persisted mode
// and pending language when no owner is running.
func (r Runner) commandStatus(ctx context.Context, cfg config.Config) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err == nil {
		resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
		if handled {
			if err != nil {
				fmt.Fprintf(r.Stderr, "error: %v\n", err)
				return 1
			}
			if resp.State == "" {
				resp.State = "idle"
			}
			fmt.Fprintln(r.Stdout, resp.State+statusDetail(resp.Mode, resp.Language))
			return 0
		}
	}

	detail := ""
	if store, err := openStore(cfg.State); err == nil {
		if snap, err := store.Load(ctx); err == nil {
			detail = statusDetail(snap.Mode, snap.PendingLanguageHint)
		}
		closeStore(store)
	}
	fmt.Fprintln(r.Stdout, "idle"+detail)
	return 0
}

func statusDetail(mode string, language string) string {
	parts := make([]string, 0, 2)
	if mode = strings.TrimSpace(mode); mode != "" {
		parts = append(parts, "mode="+mode)
	}
	if language = strings.TrimSpace(language); language != "" {
		parts = append(parts, "language="+language)
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func (r Runner) commandCommands(cfg config.Config) int {
	loaded, err := command.Load(cfg.Commands.Path)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	for _, w := range loaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w)
	}

	out, err := command.MarshalYAML(loaded.Table)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	_, _ = r.Stdout.Write(out)
	return 0
}

func (r Runner) commandReset(ctx context.Context, cfg config.Config) int {
	store, err := openStore(cfg.State)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer closeStore(store)

	if err := store.Clear(ctx); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, "session state cleared")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active murmur session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) commandToggle(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandToggle)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.Message != "" {
			fmt.Fprintln(r.Stdout, resp.Message)
		}
		return 0
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			resp, _, forwardErr := tryForward(ctx, socketPath, ipc.CommandToggle)
			if forwardErr != nil {
				fmt.Fprintf(r.Stderr, "error: %v\n", forwardErr)
				return 1
			}
			if resp.Message != "" {
				fmt.Fprintln(r.Stdout, resp.Message)
			}
			return 0
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	own, err := newOwner(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer own.Close()

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, own.controller)
	}()

	result := own.controller.Run(ctx)
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logSessionResult(logger, result)
	own.pushMetrics(logger)

	if result.Cancelled {
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	}
	if errors.Is(result.Err, session.ErrRecordingTooShort) {
		fmt.Fprintln(r.Stdout, "recording too short")
		return 0
	}
	if result.Err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	}
	if text := resultText(result); text != "" {
		fmt.Fprintln(r.Stdout, text)
	}

	return 0
}

// resultText is what a turn printed: the produced output, or the raw
// transcript when a pasted dictation carried no separate output.
func resultText(result session.Result) string {
	if text := strings.TrimSpace(result.Output); text != "" {
		return text
	}
	if result.Outcome == session.OutcomePasted {
		return strings.TrimSpace(result.Transcript)
	}
	return ""
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", result.State,
		"outcome", result.Outcome,
		"cancelled", result.Cancelled,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"recording_ms", result.RecordingDuration.Milliseconds(),
		"audio_device", result.AudioDevice,
		"bytes_captured", result.BytesCaptured,
		"transcript_length", len(result.Transcript),
		"output_length", len(result.Output),
		"command", result.Command,
		"language", result.Language,
		"mode", result.Mode,
		"pending_language", result.PendingLanguageHint,
		"pasted", result.Pasted,
		"focused_monitor", result.FocusedMonitor,
	}

	if result.Err != nil {
		if errors.Is(result.Err, session.ErrRecordingTooShort) {
			logger.Info("session skipped", append(fields, "reason", result.Err.Error())...)
			return
		}
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}

func openStore(cfg config.StateConfig) (state.Store, error) {
	return state.Open(state.Options{
		Backend:  cfg.Backend,
		Path:     cfg.Path,
		RedisURL: cfg.RedisURL,
		RedisKey: cfg.RedisKey,
		TTL:      time.Duration(cfg.TTLSeconds) * time.Second,
	})
}

func closeStore(store state.Store) {
	if closer, ok := store.(io.Closer); ok {
		_ = closer.Close()
	}
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	return ipc.Forward(ctx, socketPath, command, 220*time.Millisecond)
}
