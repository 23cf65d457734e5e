package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbright/murmur/internal/action"
	"github.com/rbright/murmur/internal/command"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/indicator"
	"github.com/rbright/murmur/internal/llm"
	"github.com/rbright/murmur/internal/match"
	"github.com/rbright/murmur/internal/metrics"
	"github.com/rbright/murmur/internal/ner"
	"github.com/rbright/murmur/internal/output"
	"github.com/rbright/murmur/internal/pipeline"
	"github.com/rbright/murmur/internal/session"
	"github.com/rbright/murmur/internal/speak"
	"github.com/rbright/murmur/internal/state"
	"github.com/rbright/murmur/internal/stt"
	"github.com/rbright/murmur/internal/transcript"
)

// owner holds the collaborators of one owner session.
type owner struct {
	controller *session.Controller
	metrics    *metrics.Recorder
	store      state.Store
}

// newOwner wires the recorder, speech, command, LLM, NER, TTS and output
// collaborators into a session controller.
func newOwner(cfg config.Config, logger *slog.Logger) (*owner, error) {
	rec := metrics.New(cfg.Metrics, logger)

	prompt, err := config.SpeechPrompt(cfg)
	if err != nil {
		return nil, fmt.Errorf("build speech prompt: %w", err)
	}
	sttClient := stt.New(stt.Config{
		URL:     cfg.STT.URL,
		Flavor:  cfg.STT.Flavor,
		Model:   cfg.STT.Model,
		Prompt:  prompt,
		Timeout: millis(cfg.STT.TimeoutMS),
	}, logger)

	cleaner, err := transcript.NewCleaner(cfg.Cleanup.Filters)
	if err != nil {
		return nil, fmt.Errorf("build transcript cleaner: %w", err)
	}

	matcher := match.NewMatcher(loadCommandTable(cfg.Commands, logger), logger)
	watchCommandTable(cfg.Commands, matcher, logger)

	transformer := rec.TimeTransformer(llm.NewRouter(llmConfig(cfg.LLM), logger))
	executor := action.NewExecutor(logger,
		action.WithTransformer(transformer),
		action.WithExtractor(rec.TimeExtractor(ner.NewClient(ner.Config{
			URL:       cfg.NER.URL,
			Timeout:   millis(cfg.NER.TimeoutMS),
			CacheSize: cfg.NER.CacheSize,
			CacheTTL:  time.Duration(cfg.NER.CacheTTLSeconds) * time.Second,
		}, logger))),
		action.WithSpeaker(rec.TimeSpeaker(speak.New(speak.Config{
			URL:     cfg.TTS.URL,
			Voices:  cfg.TTS.Voices,
			Timeout: millis(cfg.TTS.TimeoutMS),
		}, logger))),
		action.WithObserver(rec),
	)

	store, err := openStore(cfg.State)
	if err != nil {
		return nil, fmt.Errorf("open session state: %w", err)
	}

	controller := session.NewController(logger, session.Deps{
		Recorder:    pipeline.NewRecorder(cfg, logger),
		Transcriber: rec.TimeTranscriber(pipeline.NewTranscriber(cfg, sttClient, logger)),
		Cleaner:     cleaner,
		Matcher:     matcher,
		Executor:    executor,
		Transformer: transformer,
		Clipboard:   output.NewClipboardReader(cfg),
		Committer:   output.NewCommitter(cfg, logger),
		Indicator:   indicator.NewHyprNotify(cfg.Indicator, logger),
		Store:       store,
		Observer:    rec,
	}, session.Settings{
		DefaultLanguage:   cfg.Session.DefaultLanguage,
		BaseLanguage:      cfg.Session.BaseLanguage,
		RegionalLanguages: cfg.Session.RegionalLanguages,
		DefaultMode:       cfg.Session.DefaultMode,
		MinHold:           millis(cfg.Session.MinHoldMS),
	})

	return &owner{controller: controller, metrics: rec, store: store}, nil
}

// loadCommandTable returns the signal table for this session. An unreadable
// command file disables signal dispatch; the session still dictates in its
// current mode.
func loadCommandTable(cfg config.CommandsConfig, logger *slog.Logger) []command.Definition {
	loaded, err := command.Load(cfg.Path)
	if err != nil {
		logger.Error("load command table failed", "error", err.Error())
		return []command.Definition{}
	}
	for _, w := range loaded.Warnings {
		logger.Warn("command table warning", "message", w)
	}
	logger.Debug("command table loaded", "path", loaded.Path, "commands", len(loaded.Table))
	return loaded.Table
}

// watchCommandTable reloads matcher whenever the command file changes.
func watchCommandTable(cfg config.CommandsConfig, matcher *match.Matcher, logger *slog.Logger) {
	if !cfg.Watch {
		return
	}
	path, err := command.ResolvePath(cfg.Path)
	if err != nil {
		logger.Warn("command table watch disabled", "error", err.Error())
		return
	}
	if err := command.Watch(path, logger, matcher.Reload); err != nil {
		logger.Warn("command table watch disabled", "error", err.Error())
	}
}

func llmConfig(cfg config.LLMConfig) llm.Config {
	return llm.Config{
		Provider:    cfg.Provider,
		Timeout:     millis(cfg.TimeoutMS),
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Anthropic:   llm.ProviderConfig(cfg.Anthropic),
		Google:      llm.ProviderConfig(cfg.Google),
		OpenAI:      llm.ProviderConfig(cfg.OpenAI),
	}
}

// pushMetrics sends this session's series when a Pushgateway is configured.
func (o *owner) pushMetrics(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.metrics.Push(ctx); err != nil {
		logger.Warn("metrics push failed", "error", err.Error())
	}
}

func (o *owner) Close() {
	closeStore(o.store)
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
