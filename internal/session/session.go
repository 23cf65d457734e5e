// Package session runs one push-to-talk turn: record, transcribe, dispatch
// the transcript to a command or the current mode, then paste.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/murmur/internal/action"
	"github.com/rbright/murmur/internal/command"
	"github.com/rbright/murmur/internal/fsm"
	"github.com/rbright/murmur/internal/ipc"
	"github.com/rbright/murmur/internal/state"
)

type signal int

const (
	signalStop signal = iota + 1
	signalCancel
)

// Session modes. Comparison is case-insensitive.
const (
	ModeNormal   = "normal"
	ModeLLM      = "llm"
	ModeRegional = "de-CH"
)

// Turn outcomes reported in Result.Outcome and to the TurnObserver.
const (
	OutcomePasted    = "pasted"
	OutcomeShown     = "shown"
	OutcomeNoOutput  = "no_output"
	OutcomeEmpty     = "empty"
	OutcomeCancelled = "cancelled"
	OutcomeTooShort  = "too_short"
	OutcomeFailed    = "failed"
)

const (
	defaultOverlayMessage = "Processing command…"
	pastedPreviewRunes    = 50
)

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	State               fsm.State
	Outcome             string
	Transcript          string
	Output              string
	Command             string
	Language            string
	Mode                string
	PendingLanguageHint string
	Pasted              bool
	Cancelled           bool
	Err                 error
	AudioDevice         string
	BytesCaptured       int64
	RecordingDuration   time.Duration
	StartedAt           time.Time
	FinishedAt          time.Time
	FocusedMonitor      string
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowRecording(context.Context)
	ShowTranscribing(context.Context)
	ShowProcessing(context.Context, string)
	ShowPasted(context.Context, string)
	ShowError(context.Context, string)
	CueStop(context.Context)
	CueComplete(context.Context)
	CueCancel(context.Context)
	Hide(context.Context)
	FocusedMonitor() string
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowRecording(context.Context)          {}
func (noopIndicator) ShowTranscribing(context.Context)       {}
func (noopIndicator) ShowProcessing(context.Context, string) {}
func (noopIndicator) ShowPasted(context.Context, string)     {}
func (noopIndicator) ShowError(context.Context, string)      {}
func (noopIndicator) CueStop(context.Context)                {}
func (noopIndicator) CueComplete(context.Context)            {}
func (noopIndicator) CueCancel(context.Context)              {}
func (noopIndicator) Hide(context.Context)                   {}
func (noopIndicator) FocusedMonitor() string                 { return "" }

// Settings carries the language and mode policy of a session.
type Settings struct {
	DefaultLanguage   string
	BaseLanguage      string
	RegionalLanguages []string
	DefaultMode       string
	MinHold           time.Duration
}

// Deps are the collaborators of a Controller. Nil members fall back to
// inert defaults; a nil Store disables persistence.
type Deps struct {
	Recorder    Recorder
	Transcriber Transcriber
	Cleaner     Cleaner
	Matcher     Matcher
	Executor    Executor
	Transformer action.Transformer
	Clipboard   Clipboard
	Committer   Committer
	Indicator   Indicator
	Store       state.Store
	Observer    TurnObserver
}

// Controller orchestrates session state transitions and side effects.
type Controller struct {
	logger      *slog.Logger
	recorder    Recorder
	transcriber Transcriber
	cleaner     Cleaner
	matcher     Matcher
	executor    Executor
	llm         action.Transformer
	clipboard   Clipboard
	commit      Committer
	indicator   Indicator
	store       state.Store
	observer    TurnObserver
	settings    Settings

	mu       sync.RWMutex
	state    fsm.State
	mode     string
	language string

	signals chan signal
	now     func() time.Time
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(logger *slog.Logger, deps Deps, settings Settings) *Controller {
	if deps.Recorder == nil {
		deps.Recorder = PlaceholderRecorder{}
	}
	if deps.Transcriber == nil {
		deps.Transcriber = TranscribeFunc(func(context.Context, Recording, string) (string, error) {
			return "", ErrPipelineUnavailable
		})
	}
	if deps.Cleaner == nil {
		deps.Cleaner = passthroughCleaner{}
	}
	if deps.Matcher == nil {
		deps.Matcher = staticMatcher(command.Default())
	}
	if deps.Executor == nil {
		deps.Executor = action.NewExecutor(logger, action.WithTransformer(deps.Transformer))
	}
	if deps.Clipboard == nil {
		deps.Clipboard = ClipboardFunc(func(context.Context) (string, error) {
			return "", errors.New("clipboard not available")
		})
	}
	if deps.Committer == nil {
		deps.Committer = CommitFunc(func(context.Context, string) error { return nil })
	}
	if deps.Indicator == nil {
		deps.Indicator = noopIndicator{}
	}

	if strings.TrimSpace(settings.DefaultLanguage) == "" {
		settings.DefaultLanguage = "en"
	}
	if strings.TrimSpace(settings.BaseLanguage) == "" {
		settings.BaseLanguage = "en"
	}
	if strings.TrimSpace(settings.DefaultMode) == "" {
		settings.DefaultMode = ModeNormal
	}

	return &Controller{
		logger:      logger,
		recorder:    deps.Recorder,
		transcriber: deps.Transcriber,
		cleaner:     deps.Cleaner,
		matcher:     deps.Matcher,
		executor:    deps.Executor,
		llm:         deps.Transformer,
		clipboard:   deps.Clipboard,
		commit:      deps.Committer,
		indicator:   deps.Indicator,
		store:       deps.Store,
		observer:    deps.Observer,
		settings:    settings,
		state:       fsm.StateIdle,
		signals:     make(chan signal, 1),
		now:         time.Now,
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// transition applies one FSM event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

func (c *Controller) setSession(mode string, language string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
	c.language = language
}

// turn is the per-Run working state.
type turn struct {
	startMode  string
	language   string
	newMode    string
	newHint    string
	command    string
	transcript string
	notice     bool
}

func (t *turn) mode() string {
	if t.newMode != "" {
		return t.newMode
	}
	return t.startMode
}

// Run executes one owner lifecycle from start to stop/cancel/failure completion.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{StartedAt: c.now()}
	t := c.beginTurn(ctx)
	result.Language = t.language
	result.Mode = t.startMode

	if err := c.transition(fsm.EventStart); err != nil {
		result.Err = err
		return c.finish(&result, OutcomeFailed)
	}

	c.indicator.ShowRecording(ctx)

	if err := c.recorder.Start(ctx); err != nil {
		c.indicator.ShowError(ctx, "Unable to start recording")
		c.toErrorAndReset()
		result.Err = err
		return c.finish(&result, OutcomeFailed)
	}

	defer func() {
		if t.notice {
			return
		}
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
		defer cancel()
		c.indicator.Hide(cleanupCtx)
	}()

	select {
	case <-ctx.Done():
		_ = c.recorder.Cancel(context.Background())
		c.indicator.CueCancel(context.Background())
		c.indicator.ShowError(context.Background(), "Cancelled")
		t.notice = true
		c.toErrorAndReset()
		result.Err = ctx.Err()
		return c.finish(&result, OutcomeCancelled)
	case s := <-c.signals:
		switch s {
		case signalCancel:
			_ = c.recorder.Cancel(context.Background())
			c.indicator.CueCancel(context.Background())
			_ = c.transition(fsm.EventCancel)
			result.Cancelled = true
			return c.finish(&result, OutcomeCancelled)
		case signalStop:
			return c.process(ctx, t, &result)
		default:
			c.toErrorAndReset()
			result.Err = fmt.Errorf("unknown signal %d", s)
			return c.finish(&result, OutcomeFailed)
		}
	}
}

// beginTurn loads persisted session state and resolves the turn language.
// A pending hint is used once; persist writes the consumed state back.
func (c *Controller) beginTurn(ctx context.Context) *turn {
	var snap state.Snapshot
	if c.store != nil {
		loaded, err := c.store.Load(ctx)
		if err != nil {
			c.logWarn("load session state failed; using defaults", "error", err.Error())
		} else {
			snap = loaded
		}
	}

	mode := strings.TrimSpace(snap.Mode)
	if mode == "" {
		mode = c.settings.DefaultMode
	}
	language := c.settings.DefaultLanguage
	if hint := strings.TrimSpace(snap.PendingLanguageHint); hint != "" {
		language = hint
	}

	c.setSession(mode, language)
	return &turn{startMode: mode, language: language}
}

// process runs everything after the stop signal.
func (c *Controller) process(ctx context.Context, t *turn, result *Result) Result {
	if err := c.transition(fsm.EventStop); err != nil {
		c.toErrorAndReset()
		result.Err = err
		return c.finish(result, OutcomeFailed)
	}
	c.indicator.ShowTranscribing(ctx)

	rec, err := c.recorder.Stop(ctx)
	c.indicator.CueStop(context.Background())
	result.AudioDevice = rec.AudioDevice
	result.BytesCaptured = rec.BytesCaptured
	result.RecordingDuration = rec.Duration
	if err != nil {
		c.indicator.ShowError(context.Background(), "Recording failed")
		t.notice = true
		c.toErrorAndReset()
		result.Err = err
		return c.finish(result, OutcomeFailed)
	}

	if c.settings.MinHold > 0 && rec.Duration < c.settings.MinHold {
		c.logInfo("recording shorter than minimum hold; discarded",
			"duration_ms", rec.Duration.Milliseconds(),
			"min_hold_ms", c.settings.MinHold.Milliseconds(),
		)
		c.toErrorAndReset()
		result.Err = ErrRecordingTooShort
		return c.finish(result, OutcomeTooShort)
	}

	raw, err := c.transcriber.Transcribe(ctx, rec, t.language)
	if err != nil {
		c.indicator.ShowError(context.Background(), "Speech recognition failed")
		t.notice = true
		c.toErrorAndReset()
		c.persist(ctx, t, result)
		result.Err = err
		return c.finish(result, OutcomeFailed)
	}

	cleaned := strings.TrimSpace(c.cleaner.Clean(raw))
	result.Transcript = cleaned
	if err := c.transition(fsm.EventTranscribed); err != nil {
		c.toErrorAndReset()
		result.Err = err
		return c.finish(result, OutcomeFailed)
	}

	if cleaned == "" {
		c.logInfo("no usable speech after cleanup", "raw_chars", len(raw), "language", t.language, "peak_energy", rec.PeakEnergy)
		_ = c.transition(fsm.EventDone)
		c.persist(ctx, t, result)
		return c.finish(result, OutcomeEmpty)
	}

	out := c.dispatch(ctx, t, rec, cleaned)
	result.Transcript = t.transcript
	result.Command = t.command
	result.Language = t.language
	result.Output = out.Text

	outcome, err := c.deliver(ctx, t, out)
	if err != nil {
		c.persist(ctx, t, result)
		result.Err = err
		return c.finish(result, OutcomeFailed)
	}
	result.Pasted = outcome == OutcomePasted

	if err := c.transition(fsm.EventDone); err != nil {
		c.toErrorAndReset()
		result.Err = err
	}
	c.persist(ctx, t, result)
	return c.finish(result, outcome)
}

// persist applies auto-reset and this turn's deltas, then saves the
// session state. Save failures are logged; the turn result stands.
func (c *Controller) persist(ctx context.Context, t *turn, result *Result) {
	snap := c.settle(t)
	result.Mode = snap.Mode
	result.PendingLanguageHint = snap.PendingLanguageHint
	c.setSession(snap.Mode, t.language)

	if c.store == nil {
		return
	}
	snap.UpdatedAt = c.now()
	if err := c.store.Save(context.WithoutCancel(ctx), snap); err != nil {
		c.logWarn("persist session state failed", "error", err.Error())
	}
}

// settle computes the state the next turn starts from. Regional languages
// are one-shot and de-CH mode reverts to normal; explicit command deltas
// from this turn override both.
func (c *Controller) settle(t *turn) state.Snapshot {
	snap := state.Snapshot{Mode: t.startMode}
	if c.isRegional(t.language) {
		snap.PendingLanguageHint = c.settings.BaseLanguage
	}
	if strings.EqualFold(t.startMode, ModeRegional) {
		snap.Mode = ModeNormal
	}
	if t.newMode != "" {
		snap.Mode = t.newMode
	}
	if t.newHint != "" {
		snap.PendingLanguageHint = t.newHint
	}
	return snap
}

func (c *Controller) isRegional(language string) bool {
	for _, regional := range c.settings.RegionalLanguages {
		if strings.EqualFold(strings.TrimSpace(regional), strings.TrimSpace(language)) {
			return true
		}
	}
	return false
}

// finish stamps the result and reports the turn outcome.
func (c *Controller) finish(result *Result, outcome string) Result {
	result.State = c.State()
	result.Outcome = outcome
	result.FinishedAt = c.now()
	result.FocusedMonitor = c.indicator.FocusedMonitor()
	if c.observer != nil {
		c.observer.ObserveTurn(outcome, result.FinishedAt.Sub(result.StartedAt))
	}
	return *result
}

// Handle serves IPC commands for the active owner session.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		c.mu.RLock()
		defer c.mu.RUnlock()
		return ipc.Response{OK: true, State: string(c.state), Mode: c.mode, Language: c.language, Message: "status"}
	case "toggle":
		return c.requestStop("toggle")
	case "stop":
		return c.requestStop("stop")
	case "cancel":
		return c.requestCancel()
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// requestStop enqueues a stop signal when state permits it.
func (c *Controller) requestStop(source string) ipc.Response {
	state := c.State()
	if state.Busy() {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("already %s", state)}
	}
	if state != fsm.StateRecording {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot %s from state %s", source, state)}
	}

	select {
	case c.signals <- signalStop:
		return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "stop already requested"}
	}
}

// requestCancel enqueues a cancel signal when state permits it.
func (c *Controller) requestCancel() ipc.Response {
	state := c.State()
	if state.Busy() {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot cancel while %s", state)}
	}
	if state != fsm.StateRecording {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot cancel from state %s", state)}
	}

	select {
	case c.signals <- signalCancel:
		return ipc.Response{OK: true, State: string(state), Message: "cancel requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "cancel already requested"}
	}
}

// toErrorAndReset transitions to error and back to idle best-effort.
func (c *Controller) toErrorAndReset() {
	_ = c.transition(fsm.EventFail)
	_ = c.transition(fsm.EventReset)
}

func (c *Controller) logInfo(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Info(msg, args...)
}

func (c *Controller) logWarn(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, args...)
}

// IsPipelineUnavailable reports whether an error represents missing pipeline wiring.
func IsPipelineUnavailable(err error) bool {
	return errors.Is(err, ErrPipelineUnavailable)
}
