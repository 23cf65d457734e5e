// Package indicator shows turn progress through Hyprland or desktop
// notifications and plays the start, stop, complete and cancel cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/hypr"
)

// noticeKind selects how a turn stage is presented.
type noticeKind int

const (
	noticeRecording noticeKind = iota
	noticeTranscribing
	noticeProcessing
	noticePasted
	noticeError
)

type noticeStyle struct {
	icon    hypr.Icon
	color   string
	sticky  bool
	urgency urgency
}

var noticeStyles = map[noticeKind]noticeStyle{
	noticeRecording:    {icon: hypr.IconInfo, color: "rgb(89b4fa)", sticky: true, urgency: urgencyLow},
	noticeTranscribing: {icon: hypr.IconInfo, color: "rgb(cba6f7)", sticky: true, urgency: urgencyLow},
	noticeProcessing:   {icon: hypr.IconInfo, color: "rgb(f9e2af)", sticky: true, urgency: urgencyNormal},
	noticePasted:       {icon: hypr.IconOK, color: "rgb(a6e3a1)", urgency: urgencyNormal},
	noticeError:        {icon: hypr.IconError, color: "rgb(f38ba8)", urgency: urgencyCritical},
}

// stickyTimeout keeps in-progress notices up until they are replaced or
// dismissed.
const stickyTimeout = 5 * time.Minute

// HyprNotify is the concrete indicator implementation used by runtime sessions.
// It can route notifications via Hyprland or desktop DBus based on config backend.
type HyprNotify struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages

	mu                    sync.Mutex
	focusedMonitor        string
	desktopNotificationID uint32
	soundMu               sync.Mutex
}

// NewHyprNotify creates an indicator controller from config.
func NewHyprNotify(cfg config.IndicatorConfig, logger *slog.Logger) *HyprNotify {
	return &HyprNotify{
		cfg:      cfg,
		logger:   logger,
		messages: messagesFor(cfg),
	}
}

// ShowRecording signals recording start and emits the start cue.
func (h *HyprNotify) ShowRecording(ctx context.Context) {
	h.playCue(cueStart)
	if !h.cfg.Enable {
		return
	}
	h.ensureFocusedMonitor(ctx)
	h.run(ctx, func(ctx context.Context) error {
		return h.notify(ctx, noticeRecording, h.messages.recording)
	})
}

// ShowTranscribing signals the post-capture transcription state.
func (h *HyprNotify) ShowTranscribing(ctx context.Context) {
	if !h.cfg.Enable {
		return
	}
	h.run(ctx, func(ctx context.Context) error {
		return h.notify(ctx, noticeTranscribing, h.messages.transcribing)
	})
}

// ShowProcessing replaces the indicator text while a command or mode runs.
func (h *HyprNotify) ShowProcessing(ctx context.Context, message string) {
	if !h.cfg.Enable {
		return
	}
	if strings.TrimSpace(message) == "" {
		message = h.messages.processing
	}
	h.run(ctx, func(ctx context.Context) error {
		return h.notify(ctx, noticeProcessing, message)
	})
}

// ShowPasted briefly confirms the pasted text preview.
func (h *HyprNotify) ShowPasted(ctx context.Context, text string) {
	if !h.cfg.Enable {
		return
	}
	h.run(ctx, func(ctx context.Context) error {
		return h.notify(ctx, noticePasted, h.messages.pastedPrefix+text)
	})
}

// ShowError displays an error-state indicator message.
func (h *HyprNotify) ShowError(ctx context.Context, text string) {
	if !h.cfg.Enable {
		return
	}
	if text == "" {
		text = h.messages.errorText
	}
	h.run(ctx, func(ctx context.Context) error {
		return h.notify(ctx, noticeError, text)
	})
}

// timeout is how long a notice of style stays up.
func (h *HyprNotify) timeout(style noticeStyle) time.Duration {
	switch {
	case style.sticky:
		return stickyTimeout
	case h.cfg.ErrorTimeoutMS <= 0:
		return 1200 * time.Millisecond
	}
	return time.Duration(h.cfg.ErrorTimeoutMS) * time.Millisecond
}

// CueStop emits the stop cue.
func (h *HyprNotify) CueStop(context.Context) {
	h.playCue(cueStop)
}

// CueComplete emits the successful-commit cue.
func (h *HyprNotify) CueComplete(context.Context) {
	h.playCue(cueComplete)
}

// CueCancel emits the cancel cue.
func (h *HyprNotify) CueCancel(context.Context) {
	h.playCue(cueCancel)
}

// Hide dismisses the active indicator surface.
func (h *HyprNotify) Hide(ctx context.Context) {
	if !h.cfg.Enable {
		return
	}
	h.run(ctx, h.dismiss)
}

// FocusedMonitor returns the monitor captured when recording began.
func (h *HyprNotify) FocusedMonitor() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.focusedMonitor
}

// ensureFocusedMonitor resolves and caches the focused monitor once per session.
func (h *HyprNotify) ensureFocusedMonitor(ctx context.Context) {
	h.mu.Lock()
	alreadySet := h.focusedMonitor != ""
	h.mu.Unlock()
	if alreadySet {
		return
	}

	monitor, err := hypr.QueryFocusedMonitor(ctx)
	if err != nil {
		h.log("indicator focused monitor query failed", err)
		return
	}

	h.mu.Lock()
	h.focusedMonitor = monitor
	h.mu.Unlock()
}

// notify dispatches indicator output through the configured backend.
func (h *HyprNotify) notify(ctx context.Context, kind noticeKind, text string) error {
	style := noticeStyles[kind]
	timeout := h.timeout(style)
	if h.desktop() {
		return h.notifyDesktop(ctx, text, style.urgency, int(timeout.Milliseconds()))
	}
	return hypr.Notify(ctx, hypr.Notice{Icon: style.icon, Timeout: timeout, Color: style.color, Text: text})
}

func (h *HyprNotify) desktop() bool {
	return strings.EqualFold(strings.TrimSpace(h.cfg.Backend), "desktop")
}

// dismiss removes indicator output from the configured backend.
func (h *HyprNotify) dismiss(ctx context.Context) error {
	if h.desktop() {
		return h.dismissDesktop(ctx)
	}
	return hypr.DismissNotify(ctx)
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (h *HyprNotify) notifyDesktop(ctx context.Context, text string, level urgency, timeoutMS int) error {
	h.mu.Lock()
	replaceID := h.desktopNotificationID
	h.mu.Unlock()

	appName := strings.TrimSpace(h.cfg.DesktopAppName)
	if appName == "" {
		appName = "murmur-indicator"
	}

	id, err := desktopNotify(ctx, appName, replaceID, text, level, timeoutMS)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.desktopNotificationID = id
	h.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (h *HyprNotify) dismissDesktop(ctx context.Context) error {
	h.mu.Lock()
	id := h.desktopNotificationID
	h.desktopNotificationID = 0
	h.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (h *HyprNotify) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		h.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (h *HyprNotify) playCue(kind cueKind) {
	if !h.cfg.SoundEnable {
		return
	}
	go func() {
		h.soundMu.Lock()
		defer h.soundMu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		if err := emitCue(ctx, kind, h.cfg); err != nil {
			h.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (h *HyprNotify) log(message string, err error) {
	if h.logger == nil || err == nil {
		return
	}
	h.logger.Debug(message, "error", err.Error())
}
