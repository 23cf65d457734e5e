package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/rbright/murmur/internal/action"
	"github.com/rbright/murmur/internal/command"
	"github.com/rbright/murmur/internal/fsm"
	"github.com/rbright/murmur/internal/match"
)

// dispatch routes a cleaned transcript to the matched command or to the
// current mode. The table is read once so a reload cannot split a turn.
func (c *Controller) dispatch(ctx context.Context, t *turn, rec Recording, text string) action.Result {
	table := c.matcher.Snapshot()
	t.transcript = text

	m := match.Find(text, table, c.logger)
	if !m.Matched() {
		return c.runMode(ctx, t.startMode, text, table)
	}

	def := *m.Command
	actions := action.Parse(def.Actions, c.logger)
	hint, only := action.LanguageSwitch(actions)
	if !c.shouldRetranscribe(t, hint, only, m.Residual) {
		out := c.runCommand(ctx, t, def, actions, m.Residual)
		t.apply(out)
		return out
	}

	// Output actions wait for the re-derived transcript; only the mode and
	// language deltas of the switching command apply now.
	t.command = def.Name
	_ = c.transition(fsm.EventTransform)
	t.apply(c.executor.Execute(ctx, action.StateActions(actions), action.Context{}, def))

	// The new hint is consumed by this transcription rather than persisted.
	c.logInfo("re-transcribing with new language hint", "command", t.command, "from", t.language, "to", hint)
	_ = c.transition(fsm.EventDispatch)
	c.indicator.ShowTranscribing(ctx)

	raw, err := c.transcriber.Transcribe(ctx, rec, hint)
	t.language = hint
	t.newHint = ""
	if err != nil {
		c.logWarn("re-transcription failed", "language", hint, "error", err.Error())
		return action.Result{}
	}

	text = strings.TrimSpace(c.cleaner.Clean(raw))
	t.transcript = text
	if text == "" {
		return action.Result{}
	}

	m = match.Find(text, table, c.logger)
	if !m.Matched() {
		return c.runMode(ctx, t.mode(), text, table)
	}

	out := c.runCommand(ctx, t, *m.Command, action.Parse(m.Command.Actions, c.logger), m.Residual)
	t.apply(out)
	if strings.EqualFold(t.newHint, t.language) {
		t.newHint = ""
	}
	return out
}

func (t *turn) apply(out action.Result) {
	if out.NewMode != "" {
		t.newMode = out.NewMode
	}
	if out.NewLanguageHint != "" {
		t.newHint = out.NewLanguageHint
	}
}

func (c *Controller) shouldRetranscribe(t *turn, hint string, only bool, residual string) bool {
	if hint == "" || only {
		return false
	}
	if strings.EqualFold(hint, t.language) {
		return false
	}
	return strings.TrimSpace(residual) != ""
}

// runCommand executes one matched definition against the residual text and
// a fresh clipboard snapshot.
func (c *Controller) runCommand(ctx context.Context, t *turn, def command.Definition, actions []action.Parsed, residual string) action.Result {
	t.command = def.Name
	message := strings.TrimSpace(def.OverlayMessage)
	if message == "" {
		message = defaultOverlayMessage
	}
	c.indicator.ShowProcessing(ctx, message)
	_ = c.transition(fsm.EventTransform)

	in := action.Context{Text: residual}
	clip, err := c.clipboard.Read(ctx)
	if err != nil {
		c.logWarn("clipboard read failed", "command", def.Name, "error", err.Error())
		in.ClipboardMissing = true
	} else {
		in.Clipboard = clip
	}

	out := c.executor.Execute(ctx, actions, in, def)
	c.logInfo("command executed",
		"command", def.Name,
		"paste", out.PasteSuccessful,
		"new_mode", out.NewMode,
		"new_language_hint", out.NewLanguageHint,
	)
	return out
}

// runMode handles a transcript that matched no command.
func (c *Controller) runMode(ctx context.Context, mode string, text string, table []command.Definition) action.Result {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeNormal:
		return action.Result{Text: text, PasteSuccessful: true}
	case ModeLLM:
		c.indicator.ShowProcessing(ctx, "Asking LLM…")
		_ = c.transition(fsm.EventTransform)
		return c.transform(ctx, text, "")
	case strings.ToLower(ModeRegional):
		def, ok := command.Lookup(table, command.RegionalModeCommand)
		if !ok || strings.TrimSpace(def.Template) == "" {
			return action.Result{Text: fmt.Sprintf("Error: Config for mode '%s' missing.", mode)}
		}
		prompt, err := action.Render(def.Template, action.Context{Text: text})
		if err != nil {
			return action.Result{Text: "Error: Template formatting failed (" + err.Error() + ")"}
		}
		c.indicator.ShowProcessing(ctx, "Translating…")
		_ = c.transition(fsm.EventTransform)
		return c.transform(ctx, prompt, def.ModelOverride)
	default:
		return action.Result{Text: fmt.Sprintf("Error: Unknown mode '%s'", mode)}
	}
}

func (c *Controller) transform(ctx context.Context, prompt string, model string) action.Result {
	if c.llm == nil {
		c.logWarn("llm mode without llm client")
		return action.Result{}
	}
	text, err := c.llm.Transform(ctx, prompt, model)
	if err != nil {
		c.logWarn("llm transform failed", "model", model, "error", err.Error())
		return action.Result{}
	}
	text = strings.TrimSpace(text)
	return action.Result{Text: text, PasteSuccessful: text != ""}
}
