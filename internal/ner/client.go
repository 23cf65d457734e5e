package ner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Config controls the NER service endpoint and result caching.
type Config struct {
	URL       string
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

// Client queries a GLiNER-style /extract endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	cache    *expirable.LRU[string, Result]
	logger   *slog.Logger
}

// NewClient builds a client; a zero CacheSize disables caching.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		endpoint: strings.TrimSpace(cfg.URL),
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
	if cfg.CacheSize > 0 {
		c.cache = expirable.NewLRU[string, Result](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return c
}

// Extract asks the service for entities of the given types in text.
//
// Service-side failures come back as an error Result; the returned error is
// reserved for requests that could not be built at all.
func (c *Client) Extract(ctx context.Context, text string, types string, threshold float64) (Result, error) {
	if c.endpoint == "" {
		return ErrorResult("NER service URL not configured."), nil
	}

	key := text + "\x00" + types + "\x00" + strconv.FormatFloat(threshold, 'f', -1, 64)
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			c.debug("ner cache hit", "types", types)
			return cached, nil
		}
	}

	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return Result{}, fmt.Errorf("parse NER endpoint: %w", err)
	}
	q := reqURL.Query()
	q.Set("text", text)
	q.Set("types", types)
	q.Set("threshold", strconv.FormatFloat(threshold, 'f', -1, 64))
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("create NER request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.warn("ner request timed out", err)
			return ErrorResult("NER service request timed out."), nil
		}
		c.warn("ner service unreachable", err)
		return ErrorResult("NER service is unavailable or starting up."), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return ErrorResult("Invalid types specified or client request error."), nil
		}
		if payload.Error == "" {
			payload.Error = "Client request error (400)"
		}
		return ErrorResult(payload.Error), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.warn("ner request failed", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
		return ErrorResult(fmt.Sprintf("NER service (/extract) request failed (HTTP %d).", resp.StatusCode)), nil
	}

	var raw any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		c.warn("ner response decode failed", err)
		return ErrorResult("Invalid JSON response from NER service."), nil
	}
	list, ok := raw.([]any)
	if !ok {
		return ErrorResult("Invalid response format from NER service."), nil
	}

	result := Group(decodeEntities(list), types)
	if c.cache != nil && !result.HasError() {
		c.cache.Add(key, result)
	}
	return result, nil
}

// Group folds raw {label,text} mentions into sorted unique entities per label
// plus global hit counts. No usable mentions yields a message result.
func Group(mentions []Mention, types string) Result {
	counts := make(map[string]map[string]int)
	for _, m := range mentions {
		label := m.Label
		text := strings.Join(strings.Fields(m.Text), " ")
		if label == "" || text == "" {
			continue
		}
		if counts[label] == nil {
			counts[label] = make(map[string]int)
		}
		counts[label][text]++
	}

	if len(counts) == 0 {
		return Result{Message: fmt.Sprintf("No entities found for types: '%s'", types)}
	}

	result := Result{
		Entities: make(map[string][]string, len(counts)),
		Hits:     make(map[string]int),
	}
	for label, texts := range counts {
		values := make([]string, 0, len(texts))
		for text, n := range texts {
			values = append(values, text)
			result.Hits[text] += n
		}
		sort.Strings(values)
		result.Entities[label] = values
	}
	return result
}

// Mention is one entity occurrence reported by the service.
type Mention struct {
	Label string
	Text  string
}

func decodeEntities(list []any) []Mention {
	out := make([]Mention, 0, len(list))
	for _, item := range list {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		label, labelOK := fields["label"].(string)
		text, textOK := fields["text"].(string)
		if !labelOK || !textOK {
			continue
		}
		out = append(out, Mention{Label: label, Text: text})
	}
	return out
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) warn(msg string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, "endpoint", c.endpoint, "error", err.Error())
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(msg, args...)
}
