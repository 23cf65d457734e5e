// Package speak synthesizes speech through an HTTP TTS server and plays it.
package speak

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rbright/murmur/internal/audio"
)

// FallbackLanguage selects the voice used when a language has no mapping.
const FallbackLanguage = "de"

// DefaultVoices maps language codes to TTS model names.
var DefaultVoices = map[string]string{
	"de": "tts_models/de/thorsten/tacotron2-DDC",
	"en": "tts_models/en/ljspeech/tacotron2-DDC",
}

// Config points at a Coqui-style /api/tts endpoint.
type Config struct {
	URL     string
	Voices  map[string]string
	Timeout time.Duration
}

// Player plays decoded audio.
type Player func(ctx context.Context, pcm audio.PCM) error

// Client fetches WAV audio for text and hands it to a Player.
type Client struct {
	endpoint string
	voices   map[string]string
	http     *http.Client
	play     Player
	logger   *slog.Logger
}

// New builds a client that plays through Pulse.
func New(cfg Config, logger *slog.Logger) *Client {
	return NewWithPlayer(cfg, logger, func(ctx context.Context, pcm audio.PCM) error {
		return audio.Play(ctx, pcm.Samples, pcm.SampleRate, "murmur speech")
	})
}

// NewWithPlayer builds a client with an explicit player.
func NewWithPlayer(cfg Config, logger *slog.Logger, play Player) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	voices := make(map[string]string, len(DefaultVoices)+len(cfg.Voices))
	for lang, voice := range DefaultVoices {
		voices[lang] = voice
	}
	for lang, voice := range cfg.Voices {
		voices[strings.ToLower(strings.TrimSpace(lang))] = strings.TrimSpace(voice)
	}

	return &Client{
		endpoint: strings.TrimSpace(cfg.URL),
		voices:   voices,
		http:     &http.Client{Timeout: timeout},
		play:     play,
		logger:   logger,
	}
}

// Voice resolves the model for lang, falling back to the German voice.
func (c *Client) Voice(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if voice, ok := c.voices[lang]; ok && voice != "" {
		return voice
	}
	if base, _, found := strings.Cut(lang, "-"); found {
		if voice, ok := c.voices[base]; ok && voice != "" {
			return voice
		}
	}
	return c.voices[FallbackLanguage]
}

// Speak synthesizes text in lang and blocks until playback finishes.
func (c *Client) Speak(ctx context.Context, text string, lang string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if c.endpoint == "" {
		return errors.New("tts url is not configured")
	}

	voice := c.Voice(lang)
	raw, err := c.synthesize(ctx, text, voice)
	if err != nil {
		return err
	}

	pcm, err := audio.DecodeWAV(raw)
	if err != nil {
		return fmt.Errorf("tts response: %w", err)
	}
	if c.logger != nil {
		c.logger.Info("speaking", "lang", lang, "voice", voice, "samples", len(pcm.Samples), "sample_rate", pcm.SampleRate)
	}
	if c.play == nil {
		return nil
	}
	return c.play(ctx, pcm)
}

func (c *Client) synthesize(ctx context.Context, text string, voice string) ([]byte, error) {
	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse tts url: %w", err)
	}
	q := reqURL.Query()
	q.Set("text", text)
	if voice != "" {
		q.Set("model_name", voice)
	}
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create tts request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("tts failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tts response: %w", err)
	}
	return raw, nil
}
