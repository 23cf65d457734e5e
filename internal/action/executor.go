package action

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rbright/murmur/internal/command"
	"github.com/rbright/murmur/internal/ner"
)

// Transformer sends a prompt to a language model. An empty model selects the
// configured default.
type Transformer interface {
	Transform(ctx context.Context, prompt string, model string) (string, error)
}

// Extractor finds named entities of the given types in text.
type Extractor interface {
	Extract(ctx context.Context, text string, types string, threshold float64) (ner.Result, error)
}

// Speaker reads text aloud in the given language.
type Speaker interface {
	Speak(ctx context.Context, text string, lang string) error
}

// Observer receives one call per executed action.
type Observer interface {
	ObserveAction(kind string, ok bool)
}

// Result accumulates the effects of one command's actions.
type Result struct {
	Text               string
	PasteSuccessful    bool
	NewMode            string
	NewLanguageHint    string
	OnlyLanguageAction bool
}

const defaultNERThreshold = 0.5

// Executor runs parsed actions against a turn's context.
type Executor struct {
	llm      Transformer
	ner      Extractor
	speaker  Speaker
	observer Observer
	logger   *slog.Logger
}

// Option customizes an Executor.
type Option func(*Executor)

// WithTransformer sets the LLM collaborator.
func WithTransformer(t Transformer) Option { return func(e *Executor) { e.llm = t } }

// WithExtractor sets the NER collaborator.
func WithExtractor(x Extractor) Option { return func(e *Executor) { e.ner = x } }

// WithSpeaker sets the text-to-speech collaborator.
func WithSpeaker(s Speaker) Option { return func(e *Executor) { e.speaker = s } }

// WithObserver sets an action observer, typically metrics.
func WithObserver(o Observer) Option { return func(e *Executor) { e.observer = o } }

// NewExecutor builds an executor. Missing collaborators make the matching
// actions fail without pasting.
func NewExecutor(logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type handler func(e *Executor, ctx context.Context, a Parsed, in Context, cmd command.Definition, out *Result)

var handlers = map[Kind]handler{
	KindMode:            (*Executor).runMode,
	KindLanguage:        (*Executor).runLanguage,
	KindLLM:             (*Executor).runLLM,
	KindProcessTemplate: (*Executor).runProcessTemplate,
	KindNERExtract:      (*Executor).runNER,
	KindSpeak:           (*Executor).runSpeak,
}

// Execute applies actions strictly in order. Output-producing actions
// overwrite the text and success flag of earlier ones.
func (e *Executor) Execute(ctx context.Context, actions []Parsed, in Context, cmd command.Definition) Result {
	var out Result
	other := false

	for _, a := range actions {
		kind := a.Kind()
		if kind != KindLanguage {
			other = true
		}

		run, ok := handlers[kind]
		if !ok {
			e.log(slog.LevelWarn, "unknown action type", "command", cmd.Name, "type", a.Type)
			e.observe(a.Type, false)
			continue
		}

		e.log(slog.LevelInfo, "executing action", "command", cmd.Name, "type", kind.String(), "value", a.Value)
		run(e, ctx, a, in, cmd, &out)
		e.observe(kind.String(), out.PasteSuccessful || kind == KindMode || kind == KindLanguage || kind == KindSpeak)
	}

	out.OnlyLanguageAction = out.NewLanguageHint != "" && !other
	return out
}

func (e *Executor) runMode(_ context.Context, a Parsed, _ Context, cmd command.Definition, out *Result) {
	if strings.TrimSpace(a.Value) == "" {
		e.log(slog.LevelError, "mode action needs a value", "command", cmd.Name)
		return
	}
	out.NewMode = strings.TrimSpace(a.Value)
}

func (e *Executor) runLanguage(_ context.Context, a Parsed, _ Context, cmd command.Definition, out *Result) {
	if strings.TrimSpace(a.Value) == "" {
		e.log(slog.LevelError, "language action needs a value", "command", cmd.Name)
		return
	}
	out.NewLanguageHint = strings.TrimSpace(a.Value)
}

func (e *Executor) runLLM(ctx context.Context, a Parsed, in Context, cmd command.Definition, out *Result) {
	prompt := in.Text
	if cmd.Template != "" {
		rendered, err := Render(cmd.Template, in)
		if err != nil {
			e.log(slog.LevelWarn, "llm template error", "command", cmd.Name, "error", err.Error())
			prompt = ""
		} else {
			prompt = rendered
		}
	}
	if strings.TrimSpace(prompt) == "" {
		e.log(slog.LevelWarn, "llm action has no prompt", "command", cmd.Name)
		out.Text = ""
		out.PasteSuccessful = false
		return
	}

	model := a.Params["model"]
	if model == "" {
		model = a.Value
	}
	if model == "" {
		model = cmd.ModelOverride
	}

	if e.llm == nil {
		e.log(slog.LevelError, "llm action without llm client", "command", cmd.Name)
		out.Text = ""
		out.PasteSuccessful = false
		return
	}

	response, err := e.llm.Transform(ctx, prompt, model)
	if err != nil {
		e.log(slog.LevelError, "llm transform failed", "command", cmd.Name, "model", model, "error", err.Error())
		out.Text = ""
		out.PasteSuccessful = false
		return
	}
	out.Text = response
	out.PasteSuccessful = strings.TrimSpace(response) != ""
}

func (e *Executor) runProcessTemplate(_ context.Context, _ Parsed, in Context, cmd command.Definition, out *Result) {
	if cmd.Template == "" {
		e.log(slog.LevelWarn, "process_template needs a template", "command", cmd.Name)
		out.Text = "Error: process_template action missing template."
		out.PasteSuccessful = false
		return
	}

	rendered, err := Render(cmd.Template, in)
	if err != nil {
		e.log(slog.LevelWarn, "template formatting failed", "command", cmd.Name, "error", err.Error())
		out.Text = "Error: Template formatting failed (" + err.Error() + ")"
		out.PasteSuccessful = false
		return
	}
	out.Text = rendered
	out.PasteSuccessful = true
}

func (e *Executor) runNER(ctx context.Context, a Parsed, in Context, cmd command.Definition, out *Result) {
	fail := func(msg string) {
		out.Text = ner.Format(ner.ErrorResult(msg))
		out.PasteSuccessful = false
	}

	var types string
	switch {
	case a.Params["types_source"] == "spoken":
		types = strings.TrimRight(strings.TrimSpace(in.Text), ".,!?;:")
		if types == "" {
			fail("No types after signal.")
			return
		}
	case a.Params["types"] != "":
		types = a.Params["types"]
	default:
		fail("Missing NER types config.")
		return
	}

	var input string
	if cmd.Template != "" {
		rendered, err := Render(cmd.Template, in)
		if err != nil {
			fail("Template error (" + err.Error() + ").")
			return
		}
		input = rendered
	} else {
		if in.ClipboardMissing {
			fail("No clipboard.")
			return
		}
		if strings.TrimSpace(in.Clipboard) == "" {
			fail("Clipboard empty.")
			return
		}
		input = in.Clipboard
	}

	threshold := defaultNERThreshold
	if raw, ok := a.Params["threshold"]; ok {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			threshold = parsed
		} else {
			e.log(slog.LevelWarn, "invalid ner threshold; using default", "command", cmd.Name, "threshold", raw)
		}
	}

	if e.ner == nil {
		fail("NER processing error.")
		return
	}

	result, err := e.ner.Extract(ctx, input, types, threshold)
	if err != nil {
		e.log(slog.LevelError, "ner extract failed", "command", cmd.Name, "error", err.Error())
		fail("NER processing error.")
		return
	}

	text := ner.Format(result)
	if text == "" {
		fail("Unknown NER failure.")
		return
	}
	out.Text = text
	out.PasteSuccessful = !result.HasError()
}

func (e *Executor) runSpeak(ctx context.Context, a Parsed, in Context, cmd command.Definition, out *Result) {
	out.Text = ""
	out.PasteSuccessful = false

	lang := strings.TrimSpace(a.Value)
	if lang == "" {
		lang = "de"
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		text = strings.TrimSpace(in.Clipboard)
	}
	if text == "" {
		e.log(slog.LevelWarn, "speak action has nothing to say", "command", cmd.Name)
		return
	}
	if e.speaker == nil {
		e.log(slog.LevelError, "speak action without speaker", "command", cmd.Name)
		return
	}

	if err := e.speaker.Speak(ctx, text, lang); err != nil && !errors.Is(err, context.Canceled) {
		e.log(slog.LevelError, "speak failed", "command", cmd.Name, "lang", lang, "error", err.Error())
	}
}

func (e *Executor) observe(kind string, ok bool) {
	if e.observer == nil {
		return
	}
	e.observer.ObserveAction(kind, ok)
}

func (e *Executor) log(level slog.Level, msg string, args ...any) {
	if e.logger == nil {
		return
	}
	e.logger.Log(context.Background(), level, msg, args...)
}
