package config

import (
	"fmt"
	"sort"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.Height <= 0 {
		return nil, fmt.Errorf("indicator.height must be > 0")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}
	if cfg.Vocab.MaxPhrases <= 0 {
		return nil, fmt.Errorf("vocab.max_phrases must be > 0")
	}
	if len(cfg.Clipboard.Argv) == 0 {
		return nil, fmt.Errorf("clipboard_cmd must not be empty")
	}
	if len(cfg.ClipboardRead.Argv) == 0 {
		warnings = append(warnings, Warning{Message: "clipboard_read_cmd is empty; {clipboard} templates will report no clipboard"})
	}

	if cfg.Paste.Enable && cfg.PasteCmd.Raw != "" && len(cfg.PasteCmd.Argv) == 0 {
		return nil, fmt.Errorf("paste_cmd is configured but empty")
	}
	if cfg.Paste.Enable && len(cfg.PasteCmd.Argv) == 0 && strings.TrimSpace(cfg.Paste.Shortcut) == "" {
		return nil, fmt.Errorf("paste.shortcut must not be empty when paste.enable=true and paste_cmd is unset")
	}

	if strings.TrimSpace(cfg.STT.URL) == "" {
		return nil, fmt.Errorf("stt.url must not be empty")
	}
	switch strings.ToLower(cfg.STT.Flavor) {
	case "openai", "asr":
	default:
		return nil, fmt.Errorf("stt.flavor must be one of: openai, asr")
	}
	if cfg.STT.Workers <= 0 {
		return nil, fmt.Errorf("stt.workers must be > 0")
	}
	if cfg.STT.TimeoutMS < 0 || cfg.LLM.TimeoutMS < 0 || cfg.NER.TimeoutMS < 0 || cfg.TTS.TimeoutMS < 0 {
		return nil, fmt.Errorf("timeout_ms values must be >= 0")
	}

	if cfg.Segment.SilenceThreshold <= 0 {
		return nil, fmt.Errorf("segment.silence_threshold must be > 0")
	}
	if cfg.Segment.MinSegmentMS < 0 || cfg.Segment.ChunkMS <= 0 {
		return nil, fmt.Errorf("segment.min_segment_ms must be >= 0 and segment.chunk_ms > 0")
	}

	if strings.TrimSpace(cfg.Session.DefaultLanguage) == "" {
		return nil, fmt.Errorf("session.default_language must not be empty")
	}
	if strings.TrimSpace(cfg.Session.BaseLanguage) == "" {
		return nil, fmt.Errorf("session.base_language must not be empty")
	}
	if cfg.Session.MinHoldMS < 0 {
		return nil, fmt.Errorf("session.min_hold_ms must be >= 0")
	}
	switch strings.ToLower(cfg.Session.DefaultMode) {
	case "normal", "llm", "de-ch":
	default:
		warnings = append(warnings, Warning{Message: fmt.Sprintf("session.default_mode %q is not a known mode", cfg.Session.DefaultMode)})
	}

	switch strings.ToLower(cfg.LLM.Provider) {
	case "anthropic", "google", "openai":
	default:
		return nil, fmt.Errorf("llm.provider must be one of: anthropic, google, openai")
	}
	if cfg.LLM.MaxTokens <= 0 {
		return nil, fmt.Errorf("llm.max_tokens must be > 0")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return nil, fmt.Errorf("llm.temperature must be between 0 and 2")
	}

	if cfg.NER.CacheSize < 0 || cfg.NER.CacheTTLSeconds < 0 {
		return nil, fmt.Errorf("ner cache settings must be >= 0")
	}

	switch strings.ToLower(cfg.State.Backend) {
	case "file":
	case "redis":
		if strings.TrimSpace(cfg.State.RedisURL) == "" {
			return nil, fmt.Errorf("state.redis_url must not be empty when state.backend=redis")
		}
	default:
		return nil, fmt.Errorf("state.backend must be one of: file, redis")
	}
	if cfg.State.TTLSeconds < 0 {
		return nil, fmt.Errorf("state.ttl_seconds must be >= 0")
	}

	if cfg.Metrics.PushgatewayURL != "" && !cfg.Metrics.Enable {
		warnings = append(warnings, Warning{Message: "metrics.pushgateway_url is set but metrics.enable=false"})
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	_, vocabWarnings, err := BuildSpeechPhrases(cfg)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, vocabWarnings...)

	return warnings, nil
}

// BuildSpeechPhrases merges enabled vocab sets into a deterministic phrase list.
func BuildSpeechPhrases(cfg Config) ([]SpeechPhrase, []Warning, error) {
	enabledSets := cfg.Vocab.GlobalSets
	if len(enabledSets) == 0 {
		return nil, nil, nil
	}

	type candidate struct {
		boost float64
		from  string
	}

	warnings := make([]Warning, 0)
	selected := make(map[string]candidate)

	for _, name := range enabledSets {
		set, ok := cfg.Vocab.Sets[name]
		if !ok {
			return nil, nil, fmt.Errorf("vocab.global references unknown set %q", name)
		}
		for _, phrase := range set.Phrases {
			phrase = strings.TrimSpace(phrase)
			if phrase == "" {
				continue
			}
			if existing, exists := selected[phrase]; exists {
				if set.Boost > existing.boost {
					warnings = append(warnings, Warning{Message: fmt.Sprintf("phrase %q present in %q and %q; using higher boost %.2f", phrase, existing.from, name, set.Boost)})
					selected[phrase] = candidate{boost: set.Boost, from: name}
				}
				continue
			}
			selected[phrase] = candidate{boost: set.Boost, from: name}
		}
	}

	if len(selected) > cfg.Vocab.MaxPhrases {
		return nil, nil, fmt.Errorf("vocabulary phrase count %d exceeds vocab.max_phrases=%d", len(selected), cfg.Vocab.MaxPhrases)
	}

	phrases := make([]SpeechPhrase, 0, len(selected))
	for phrase, c := range selected {
		phrases = append(phrases, SpeechPhrase{Phrase: phrase, Boost: float32(c.boost)})
	}

	sort.Slice(phrases, func(i, j int) bool {
		if phrases[i].Phrase == phrases[j].Phrase {
			return phrases[i].Boost < phrases[j].Boost
		}
		return phrases[i].Phrase < phrases[j].Phrase
	})

	return phrases, warnings, nil
}

// SpeechPrompt renders enabled vocabulary as whisper biasing text, highest
// boost first.
func SpeechPrompt(cfg Config) (string, error) {
	phrases, _, err := BuildSpeechPhrases(cfg)
	if err != nil {
		return "", err
	}
	if len(phrases) == 0 {
		return "", nil
	}
	sort.SliceStable(phrases, func(i, j int) bool {
		return phrases[i].Boost > phrases[j].Boost
	})
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, p.Phrase)
	}
	return strings.Join(out, ", "), nil
}
