// Package stt sends recorded audio to a whisper-compatible HTTP server.
//
// Two server flavors are supported:
//   - "openai": OpenAI-compatible /v1/audio/transcriptions (whisper.cpp
//     server, faster-whisper-server, speaches)
//   - "asr": whisper-asr-webservice (POST /asr with query parameters)
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	FlavorOpenAI = "openai"
	FlavorASR    = "asr"
)

// Config describes the STT endpoint.
type Config struct {
	URL     string
	Flavor  string
	Model   string
	Prompt  string
	Timeout time.Duration
}

// Client transcribes WAV payloads.
type Client struct {
	endpoint string
	flavor   string
	model    string
	prompt   string
	http     *http.Client
	logger   *slog.Logger
}

// New builds a client; unknown flavors fall back to "openai".
func New(cfg Config, logger *slog.Logger) *Client {
	flavor := strings.ToLower(strings.TrimSpace(cfg.Flavor))
	if flavor != FlavorASR {
		flavor = FlavorOpenAI
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: strings.TrimSpace(cfg.URL),
		flavor:   flavor,
		model:    strings.TrimSpace(cfg.Model),
		prompt:   strings.TrimSpace(cfg.Prompt),
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Transcribe uploads wav and returns the recognized text. language may be a
// regional tag such as "de-CH"; whisper only receives the base code.
func (c *Client) Transcribe(ctx context.Context, wav []byte, language string) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("stt url is not configured")
	}

	lang := BaseLanguage(language)
	var (
		req *http.Request
		err error
	)
	switch c.flavor {
	case FlavorASR:
		req, err = c.asrRequest(ctx, wav, lang)
	default:
		req, err = c.openAIRequest(ctx, wav, lang)
	}
	if err != nil {
		return "", err
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s transcription request: %w", c.flavor, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%s transcription failed (status %d): %s", c.flavor, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode transcription: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug("stt segment transcribed",
			"flavor", c.flavor,
			"language", lang,
			"bytes", len(wav),
			"elapsed_ms", time.Since(started).Milliseconds(),
			"chars", len(result.Text),
		)
	}
	return strings.TrimSpace(result.Text), nil
}

func (c *Client) openAIRequest(ctx context.Context, wav []byte, lang string) (*http.Request, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return nil, fmt.Errorf("write audio: %w", err)
	}
	if c.model != "" {
		_ = writer.WriteField("model", c.model)
	}
	if lang != "" {
		_ = writer.WriteField("language", lang)
	}
	if c.prompt != "" {
		_ = writer.WriteField("prompt", c.prompt)
	}
	_ = writer.WriteField("response_format", "json")
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}

func (c *Client) asrRequest(ctx context.Context, wav []byte, lang string) (*http.Request, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("audio_file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return nil, fmt.Errorf("write audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	q := make(url.Values)
	q.Set("task", "transcribe")
	q.Set("output", "json")
	q.Set("encode", "true")
	if lang != "" {
		q.Set("language", lang)
	}
	if c.prompt != "" {
		q.Set("initial_prompt", c.prompt)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?"+q.Encode(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}

// BaseLanguage reduces a tag like "de-CH" to "de".
func BaseLanguage(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if base, _, ok := strings.Cut(tag, "-"); ok {
		return base
	}
	if base, _, ok := strings.Cut(tag, "_"); ok {
		return base
	}
	return tag
}
