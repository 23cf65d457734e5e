// Package llm routes prompts to a hosted or local language model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderOpenAI    = "openai"

	DefaultAnthropicModel = "claude-3-haiku-20240307"
	DefaultGoogleModel    = "gemini-1.5-pro-latest"

	defaultMaxTokens   = 1000
	defaultTemperature = 0.7
)

// ErrEmptyPrompt is returned for blank prompts without calling any provider.
var ErrEmptyPrompt = errors.New("empty prompt")

// ErrNoProvider is returned when no provider is configured.
var ErrNoProvider = errors.New("no llm provider configured")

// ProviderConfig is one backend's endpoint, credentials and default model.
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Config selects the default provider and generation parameters.
type Config struct {
	Provider    string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	Anthropic   ProviderConfig
	Google      ProviderConfig
	OpenAI      ProviderConfig
}

// Provider completes one prompt with one model.
type Provider interface {
	Name() string
	DefaultModel() string
	Complete(ctx context.Context, prompt string, model string) (string, error)
}

// Router picks a provider per request. A model id containing "claude" or
// "gemini" switches to that provider when it is available.
type Router struct {
	providers map[string]Provider
	fallback  string
	logger    *slog.Logger
}

var routingKeywords = []struct {
	provider string
	keyword  string
}{
	{provider: ProviderAnthropic, keyword: "claude"},
	{provider: ProviderGoogle, keyword: "gemini"},
}

// NewRouter builds the providers that have credentials (or, for the
// OpenAI-compatible backend, a base URL).
func NewRouter(cfg Config, logger *slog.Logger) *Router {
	gen := generation{
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
	if gen.maxTokens <= 0 {
		gen.maxTokens = defaultMaxTokens
	}
	if gen.temperature <= 0 {
		gen.temperature = defaultTemperature
	}
	if gen.timeout <= 0 {
		gen.timeout = 60 * time.Second
	}

	providers := map[string]Provider{}
	if key := ResolveKey(cfg.Anthropic.APIKey, "ANTHROPIC_API_KEY"); key != "" {
		providers[ProviderAnthropic] = newAnthropic(cfg.Anthropic, key, gen)
	}
	if key := ResolveKey(cfg.Google.APIKey, "GOOGLE_API_KEY"); key != "" {
		providers[ProviderGoogle] = newGoogle(cfg.Google, key, gen)
	}
	if key := ResolveKey(cfg.OpenAI.APIKey, "OPENAI_API_KEY"); key != "" || strings.TrimSpace(cfg.OpenAI.BaseURL) != "" {
		providers[ProviderOpenAI] = newOpenAI(cfg.OpenAI, key, gen)
	}

	return NewRouterWith(providers, cfg.Provider, logger)
}

// NewRouterWith wires explicit providers.
func NewRouterWith(providers map[string]Provider, fallback string, logger *slog.Logger) *Router {
	fallback = strings.ToLower(strings.TrimSpace(fallback))
	if fallback == "" {
		fallback = ProviderAnthropic
	}
	return &Router{providers: providers, fallback: fallback, logger: logger}
}

// Available lists configured provider names.
func (r *Router) Available() []string {
	out := make([]string, 0, len(r.providers))
	for _, name := range []string{ProviderAnthropic, ProviderGoogle, ProviderOpenAI} {
		if _, ok := r.providers[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Transform sends prompt to the provider selected for model and returns the
// trimmed completion.
func (r *Router) Transform(ctx context.Context, prompt string, model string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	provider, resolvedModel, err := r.resolve(model)
	if err != nil {
		return "", err
	}

	r.info("llm request", "provider", provider.Name(), "model", resolvedModel, "prompt_chars", len(prompt))
	started := time.Now()
	text, err := provider.Complete(ctx, prompt, resolvedModel)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", provider.Name(), resolvedModel, err)
	}
	r.info("llm response", "provider", provider.Name(), "model", resolvedModel, "elapsed_ms", time.Since(started).Milliseconds(), "chars", len(text))
	return strings.TrimSpace(text), nil
}

func (r *Router) resolve(model string) (Provider, string, error) {
	model = strings.TrimSpace(model)
	lower := strings.ToLower(model)

	for _, route := range routingKeywords {
		if model == "" || !strings.Contains(lower, route.keyword) {
			continue
		}
		if p, ok := r.providers[route.provider]; ok {
			return p, model, nil
		}
		r.warn("model names an unavailable provider; using default", "model", model, "provider", route.provider)
		p, err := r.defaultProvider()
		if err != nil {
			return nil, "", err
		}
		return p, p.DefaultModel(), nil
	}

	p, err := r.defaultProvider()
	if err != nil {
		return nil, "", err
	}
	if model == "" {
		model = p.DefaultModel()
	}
	return p, model, nil
}

func (r *Router) defaultProvider() (Provider, error) {
	if p, ok := r.providers[r.fallback]; ok {
		return p, nil
	}
	for _, name := range []string{ProviderAnthropic, ProviderGoogle, ProviderOpenAI} {
		if p, ok := r.providers[name]; ok {
			return p, nil
		}
	}
	return nil, ErrNoProvider
}

// ResolveKey expands a "${VAR}" reference, then falls back to envName.
func ResolveKey(value string, envName string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		value = os.Getenv(value[2 : len(value)-1])
	}
	if value == "" && envName != "" {
		value = os.Getenv(envName)
	}
	return strings.TrimSpace(value)
}

func (r *Router) info(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r *Router) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
