package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type generation struct {
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

func postJSON(ctx context.Context, client *http.Client, endpoint string, headers map[string]string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var errEmptyCompletion = errors.New("empty completion")

// --- Anthropic Messages API ---

type anthropic struct {
	baseURL string
	apiKey  string
	model   string
	gen     generation
	client  *http.Client
}

func newAnthropic(cfg ProviderConfig, key string, gen generation) *anthropic {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.anthropic.com"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &anthropic{baseURL: base, apiKey: key, model: model, gen: gen, client: &http.Client{Timeout: gen.timeout}}
}

func (a *anthropic) Name() string         { return ProviderAnthropic }
func (a *anthropic) DefaultModel() string { return a.model }

func (a *anthropic) Complete(ctx context.Context, prompt string, model string) (string, error) {
	payload := map[string]any{
		"model":       model,
		"max_tokens":  a.gen.maxTokens,
		"temperature": a.gen.temperature,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
	}
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": "2023-06-01",
	}
	if err := postJSON(ctx, a.client, a.baseURL+"/v1/messages", headers, payload, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", errEmptyCompletion
	}
	return sb.String(), nil
}

// --- Google Gemini generateContent ---

type google struct {
	baseURL string
	apiKey  string
	model   string
	gen     generation
	client  *http.Client
}

func newGoogle(cfg ProviderConfig, key string, gen generation) *google {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://generativelanguage.googleapis.com"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultGoogleModel
	}
	return &google{baseURL: base, apiKey: key, model: model, gen: gen, client: &http.Client{Timeout: gen.timeout}}
}

func (g *google) Name() string         { return ProviderGoogle }
func (g *google) DefaultModel() string { return g.model }

func (g *google) Complete(ctx context.Context, prompt string, model string) (string, error) {
	payload := map[string]any{
		"contents": []map[string]any{
			{"role": "user", "parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"maxOutputTokens": g.gen.maxTokens,
			"temperature":     g.gen.temperature,
		},
	}
	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.baseURL, url.PathEscape(model), url.QueryEscape(g.apiKey))
	if err := postJSON(ctx, g.client, endpoint, nil, payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", errEmptyCompletion
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", errEmptyCompletion
	}
	return sb.String(), nil
}

// --- OpenAI-compatible chat completions (OpenAI, Ollama, llama.cpp) ---

type openAI struct {
	baseURL string
	apiKey  string
	model   string
	gen     generation
	client  *http.Client
}

func newOpenAI(cfg ProviderConfig, key string, gen generation) *openAI {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.openai.com"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &openAI{baseURL: base, apiKey: key, model: model, gen: gen, client: &http.Client{Timeout: gen.timeout}}
}

func (o *openAI) Name() string         { return ProviderOpenAI }
func (o *openAI) DefaultModel() string { return o.model }

func (o *openAI) Complete(ctx context.Context, prompt string, model string) (string, error) {
	payload := map[string]any{
		"model":       model,
		"max_tokens":  o.gen.maxTokens,
		"temperature": o.gen.temperature,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
	}
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	var headers map[string]string
	if o.apiKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + o.apiKey}
	}
	if err := postJSON(ctx, o.client, o.baseURL+"/v1/chat/completions", headers, payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
