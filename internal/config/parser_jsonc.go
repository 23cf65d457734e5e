package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Audio     *jsoncAudio     `json:"audio"`
	Paste     *jsoncPaste     `json:"paste"`
	Indicator *jsoncIndicator `json:"indicator"`

	ClipboardCmd     *string `json:"clipboard_cmd"`
	ClipboardReadCmd *string `json:"clipboard_read_cmd"`
	PasteCmd         *string `json:"paste_cmd"`

	STT      *jsoncSTT      `json:"stt"`
	Segment  *jsoncSegment  `json:"segment"`
	Cleanup  *jsoncCleanup  `json:"cleanup"`
	Session  *jsoncSession  `json:"session"`
	LLM      *jsoncLLM      `json:"llm"`
	NER      *jsoncNER      `json:"ner"`
	TTS      *jsoncTTS      `json:"tts"`
	Commands *jsoncCommands `json:"commands"`
	State    *jsoncState    `json:"state"`
	Metrics  *jsoncMetrics  `json:"metrics"`
	Log      *jsoncLog      `json:"log"`
	Vocab    *jsoncVocab    `json:"vocab"`
	Debug    *jsoncDebug    `json:"debug"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncPaste struct {
	Enable         *bool              `json:"enable"`
	Shortcut       *string            `json:"shortcut"`
	TrailingSpace  *bool              `json:"trailing_space"`
	ClassShortcuts *map[string]string `json:"class_shortcuts"`
}

type jsoncIndicator struct {
	Enable            *bool   `json:"enable"`
	Backend           *string `json:"backend"`
	DesktopAppName    *string `json:"desktop_app_name"`
	SoundEnable       *bool   `json:"sound_enable"`
	SoundStartFile    *string `json:"sound_start_file"`
	SoundStopFile     *string `json:"sound_stop_file"`
	SoundCompleteFile *string `json:"sound_complete_file"`
	SoundCancelFile   *string `json:"sound_cancel_file"`
	Height            *int    `json:"height"`
	TextRecording     *string `json:"text_recording"`
	TextProcessing    *string `json:"text_processing"`
	TextError         *string `json:"text_error"`
	ErrorTimeoutMS    *int    `json:"error_timeout_ms"`
}

type jsoncSTT struct {
	URL       *string `json:"url"`
	Flavor    *string `json:"flavor"`
	Model     *string `json:"model"`
	TimeoutMS *int    `json:"timeout_ms"`
	Workers   *int    `json:"workers"`
}

type jsoncSegment struct {
	SilenceThreshold *float64 `json:"silence_threshold"`
	MinSegmentMS     *int     `json:"min_segment_ms"`
	ChunkMS          *int     `json:"chunk_ms"`
}

type jsoncCleanup struct {
	Filters *[]string `json:"filters"`
}

type jsoncSession struct {
	DefaultLanguage   *string          `json:"default_language"`
	BaseLanguage      *string          `json:"base_language"`
	RegionalLanguages *jsoncStringList `json:"regional_languages"`
	MinHoldMS         *int             `json:"min_hold_ms"`
	DefaultMode       *string          `json:"default_mode"`
}

type jsoncLLM struct {
	Provider    *string           `json:"provider"`
	TimeoutMS   *int              `json:"timeout_ms"`
	MaxTokens   *int              `json:"max_tokens"`
	Temperature *float64          `json:"temperature"`
	Anthropic   *jsoncLLMProvider `json:"anthropic"`
	Google      *jsoncLLMProvider `json:"google"`
	OpenAI      *jsoncLLMProvider `json:"openai"`
}

type jsoncLLMProvider struct {
	BaseURL *string `json:"base_url"`
	APIKey  *string `json:"api_key"`
	Model   *string `json:"model"`
}

type jsoncNER struct {
	URL             *string `json:"url"`
	TimeoutMS       *int    `json:"timeout_ms"`
	CacheSize       *int    `json:"cache_size"`
	CacheTTLSeconds *int    `json:"cache_ttl_seconds"`
}

type jsoncTTS struct {
	URL       *string           `json:"url"`
	TimeoutMS *int              `json:"timeout_ms"`
	Voices    map[string]string `json:"voices"`
}

type jsoncCommands struct {
	Path  *string `json:"path"`
	Watch *bool   `json:"watch"`
}

type jsoncState struct {
	Backend    *string `json:"backend"`
	Path       *string `json:"path"`
	RedisURL   *string `json:"redis_url"`
	RedisKey   *string `json:"redis_key"`
	TTLSeconds *int    `json:"ttl_seconds"`
}

type jsoncMetrics struct {
	Enable         *bool   `json:"enable"`
	PushgatewayURL *string `json:"pushgateway_url"`
	Job            *string `json:"job"`
}

type jsoncLog struct {
	Level      *string `json:"level"`
	MaxSizeMB  *int    `json:"max_size_mb"`
	MaxBackups *int    `json:"max_backups"`
}

type jsoncVocab struct {
	Global     *jsoncStringList         `json:"global"`
	MaxPhrases *int                     `json:"max_phrases"`
	Sets       map[string]jsoncVocabSet `json:"sets"`
}

type jsoncVocabSet struct {
	Boost   *float64 `json:"boost"`
	Phrases []string `json:"phrases"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
}

type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		parts := strings.Split(single, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, part)
		}
		*l = out
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Audio != nil {
		setString(&cfg.Audio.Input, payload.Audio.Input)
		setString(&cfg.Audio.Fallback, payload.Audio.Fallback)
	}

	if payload.Paste != nil {
		setBool(&cfg.Paste.Enable, payload.Paste.Enable)
		setTrimmed(&cfg.Paste.Shortcut, payload.Paste.Shortcut)
		setBool(&cfg.Paste.TrailingSpace, payload.Paste.TrailingSpace)
		if payload.Paste.ClassShortcuts != nil {
			shortcuts := make(map[string]string, len(*payload.Paste.ClassShortcuts))
			for class, shortcut := range *payload.Paste.ClassShortcuts {
				class = strings.ToLower(strings.TrimSpace(class))
				shortcut = strings.TrimSpace(shortcut)
				if class == "" || shortcut == "" {
					warnings = append(warnings, Warning{Message: fmt.Sprintf("paste.class_shortcuts entry %q has an empty class or shortcut; skipped", class)})
					continue
				}
				shortcuts[class] = shortcut
			}
			cfg.Paste.ClassShortcuts = shortcuts
		}
	}

	if ind := payload.Indicator; ind != nil {
		setBool(&cfg.Indicator.Enable, ind.Enable)
		setTrimmed(&cfg.Indicator.Backend, ind.Backend)
		setTrimmed(&cfg.Indicator.DesktopAppName, ind.DesktopAppName)
		setBool(&cfg.Indicator.SoundEnable, ind.SoundEnable)
		setTrimmed(&cfg.Indicator.SoundStartFile, ind.SoundStartFile)
		setTrimmed(&cfg.Indicator.SoundStopFile, ind.SoundStopFile)
		setTrimmed(&cfg.Indicator.SoundCompleteFile, ind.SoundCompleteFile)
		setTrimmed(&cfg.Indicator.SoundCancelFile, ind.SoundCancelFile)
		setInt(&cfg.Indicator.Height, ind.Height)
		setString(&cfg.Indicator.TextRecording, ind.TextRecording)
		setString(&cfg.Indicator.TextProcessing, ind.TextProcessing)
		setString(&cfg.Indicator.TextError, ind.TextError)
		setInt(&cfg.Indicator.ErrorTimeoutMS, ind.ErrorTimeoutMS)
	}

	for _, cmd := range []struct {
		name string
		raw  *string
		dst  *CommandConfig
	}{
		{name: "clipboard_cmd", raw: payload.ClipboardCmd, dst: &cfg.Clipboard},
		{name: "clipboard_read_cmd", raw: payload.ClipboardReadCmd, dst: &cfg.ClipboardRead},
		{name: "paste_cmd", raw: payload.PasteCmd, dst: &cfg.PasteCmd},
	} {
		if cmd.raw == nil {
			continue
		}
		argv, err := parseArgv(*cmd.raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", cmd.name, err)
		}
		*cmd.dst = CommandConfig{Raw: *cmd.raw, Argv: argv}
	}

	if stt := payload.STT; stt != nil {
		setTrimmed(&cfg.STT.URL, stt.URL)
		setTrimmed(&cfg.STT.Flavor, stt.Flavor)
		setTrimmed(&cfg.STT.Model, stt.Model)
		setInt(&cfg.STT.TimeoutMS, stt.TimeoutMS)
		setInt(&cfg.STT.Workers, stt.Workers)
	}

	if seg := payload.Segment; seg != nil {
		if seg.SilenceThreshold != nil {
			cfg.Segment.SilenceThreshold = *seg.SilenceThreshold
		}
		setInt(&cfg.Segment.MinSegmentMS, seg.MinSegmentMS)
		setInt(&cfg.Segment.ChunkMS, seg.ChunkMS)
	}

	if payload.Cleanup != nil && payload.Cleanup.Filters != nil {
		filters := make([]string, 0, len(*payload.Cleanup.Filters))
		for _, filter := range *payload.Cleanup.Filters {
			if strings.TrimSpace(filter) == "" {
				warnings = append(warnings, Warning{Message: "cleanup.filters contains an empty pattern; skipped"})
				continue
			}
			filters = append(filters, filter)
		}
		cfg.Cleanup.Filters = filters
	}

	if s := payload.Session; s != nil {
		setTrimmed(&cfg.Session.DefaultLanguage, s.DefaultLanguage)
		setTrimmed(&cfg.Session.BaseLanguage, s.BaseLanguage)
		if s.RegionalLanguages != nil {
			cfg.Session.RegionalLanguages = append([]string(nil), (*s.RegionalLanguages)...)
		}
		setInt(&cfg.Session.MinHoldMS, s.MinHoldMS)
		setTrimmed(&cfg.Session.DefaultMode, s.DefaultMode)
	}

	if l := payload.LLM; l != nil {
		setTrimmed(&cfg.LLM.Provider, l.Provider)
		setInt(&cfg.LLM.TimeoutMS, l.TimeoutMS)
		setInt(&cfg.LLM.MaxTokens, l.MaxTokens)
		if l.Temperature != nil {
			cfg.LLM.Temperature = *l.Temperature
		}
		l.Anthropic.applyTo(&cfg.LLM.Anthropic)
		l.Google.applyTo(&cfg.LLM.Google)
		l.OpenAI.applyTo(&cfg.LLM.OpenAI)
	}

	if n := payload.NER; n != nil {
		setTrimmed(&cfg.NER.URL, n.URL)
		setInt(&cfg.NER.TimeoutMS, n.TimeoutMS)
		setInt(&cfg.NER.CacheSize, n.CacheSize)
		setInt(&cfg.NER.CacheTTLSeconds, n.CacheTTLSeconds)
	}

	if tts := payload.TTS; tts != nil {
		setTrimmed(&cfg.TTS.URL, tts.URL)
		setInt(&cfg.TTS.TimeoutMS, tts.TimeoutMS)
		if tts.Voices != nil {
			voices := make(map[string]string, len(tts.Voices))
			for lang, voice := range tts.Voices {
				lang = strings.TrimSpace(lang)
				if lang == "" {
					return nil, fmt.Errorf("tts.voices contains an empty language")
				}
				voices[lang] = strings.TrimSpace(voice)
			}
			cfg.TTS.Voices = voices
		}
	}

	if c := payload.Commands; c != nil {
		setTrimmed(&cfg.Commands.Path, c.Path)
		setBool(&cfg.Commands.Watch, c.Watch)
	}

	if st := payload.State; st != nil {
		setTrimmed(&cfg.State.Backend, st.Backend)
		setTrimmed(&cfg.State.Path, st.Path)
		setTrimmed(&cfg.State.RedisURL, st.RedisURL)
		setTrimmed(&cfg.State.RedisKey, st.RedisKey)
		setInt(&cfg.State.TTLSeconds, st.TTLSeconds)
	}

	if m := payload.Metrics; m != nil {
		setBool(&cfg.Metrics.Enable, m.Enable)
		setTrimmed(&cfg.Metrics.PushgatewayURL, m.PushgatewayURL)
		setTrimmed(&cfg.Metrics.Job, m.Job)
	}

	if lg := payload.Log; lg != nil {
		setTrimmed(&cfg.Log.Level, lg.Level)
		setInt(&cfg.Log.MaxSizeMB, lg.MaxSizeMB)
		setInt(&cfg.Log.MaxBackups, lg.MaxBackups)
	}

	if payload.Vocab != nil {
		if payload.Vocab.Global != nil {
			cfg.Vocab.GlobalSets = cfg.Vocab.GlobalSets[:0]
			for _, name := range *payload.Vocab.Global {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				cfg.Vocab.GlobalSets = append(cfg.Vocab.GlobalSets, name)
			}
		}
		setInt(&cfg.Vocab.MaxPhrases, payload.Vocab.MaxPhrases)
		if payload.Vocab.Sets != nil {
			if cfg.Vocab.Sets == nil {
				cfg.Vocab.Sets = make(map[string]VocabSet)
			}
			for name, set := range payload.Vocab.Sets {
				trimmedName := strings.TrimSpace(name)
				if trimmedName == "" {
					return nil, fmt.Errorf("vocab.sets contains an empty set name")
				}

				phrases := make([]string, 0, len(set.Phrases))
				phrases = append(phrases, set.Phrases...)

				entry := VocabSet{Name: trimmedName, Phrases: phrases}
				if set.Boost != nil {
					entry.Boost = *set.Boost
				}
				cfg.Vocab.Sets[trimmedName] = entry
			}
		}
	}

	if payload.Debug != nil {
		setBool(&cfg.Debug.EnableAudioDump, payload.Debug.AudioDump)
	}

	return warnings, nil
}

func (p *jsoncLLMProvider) applyTo(dst *LLMProviderConfig) {
	if p == nil {
		return
	}
	setTrimmed(&dst.BaseURL, p.BaseURL)
	setTrimmed(&dst.APIKey, p.APIKey)
	setTrimmed(&dst.Model, p.Model)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setTrimmed(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
