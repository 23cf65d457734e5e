// Package config resolves, parses, validates, and defaults murmur configuration.
package config

// Config is the fully materialized runtime configuration used by murmur.
type Config struct {
	Audio         AudioConfig
	Paste         PasteConfig
	Indicator     IndicatorConfig
	Clipboard     CommandConfig
	ClipboardRead CommandConfig
	PasteCmd      CommandConfig
	STT           STTConfig
	Segment       SegmentConfig
	Cleanup       CleanupConfig
	Session       SessionConfig
	LLM           LLMConfig
	NER           NERConfig
	TTS           TTSConfig
	Commands      CommandsConfig
	State         StateConfig
	Metrics       MetricsConfig
	Log           LogConfig
	Vocab         VocabConfig
	Debug         DebugConfig
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// PasteConfig controls post-commit paste behavior.
type PasteConfig struct {
	Enable        bool
	Shortcut      string
	TrailingSpace bool
	// ClassShortcuts overrides Shortcut per window class, keyed lowercase.
	ClassShortcuts map[string]string
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable            bool
	Backend           string
	DesktopAppName    string
	SoundEnable       bool
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundCancelFile   string
	Height            int
	TextRecording     string
	TextProcessing    string
	TextError         string
	ErrorTimeoutMS    int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// STTConfig points at a whisper-compatible transcription server.
type STTConfig struct {
	URL       string
	Flavor    string
	Model     string
	TimeoutMS int
	Workers   int
}

// SegmentConfig tunes silence-based splitting before transcription.
type SegmentConfig struct {
	SilenceThreshold float64
	MinSegmentMS     int
	ChunkMS          int
}

// CleanupConfig lists filter phrases stripped from transcripts.
// Nil selects the built-in filters; an empty list disables cleanup.
type CleanupConfig struct {
	Filters []string
}

// SessionConfig controls mode and language behavior across turns.
type SessionConfig struct {
	DefaultLanguage   string
	BaseLanguage      string
	RegionalLanguages []string
	MinHoldMS         int
	DefaultMode       string
}

// LLMConfig selects and configures text transformation providers.
type LLMConfig struct {
	Provider    string
	TimeoutMS   int
	MaxTokens   int
	Temperature float64
	Anthropic   LLMProviderConfig
	Google      LLMProviderConfig
	OpenAI      LLMProviderConfig
}

// LLMProviderConfig is one provider endpoint. APIKey may hold a ${VAR} reference.
type LLMProviderConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// NERConfig points at the entity extraction service.
type NERConfig struct {
	URL             string
	TimeoutMS       int
	CacheSize       int
	CacheTTLSeconds int
}

// TTSConfig points at the speech synthesis service.
type TTSConfig struct {
	URL       string
	TimeoutMS int
	Voices    map[string]string
}

// CommandsConfig locates the signal command table.
type CommandsConfig struct {
	Path  string
	Watch bool
}

// StateConfig selects where mode and pending language survive between turns.
type StateConfig struct {
	Backend    string
	Path       string
	RedisURL   string
	RedisKey   string
	TTLSeconds int
}

// MetricsConfig controls Prometheus metric collection.
type MetricsConfig struct {
	Enable         bool
	PushgatewayURL string
	Job            string
}

// LogConfig controls runtime log level and rotation.
type LogConfig struct {
	Level      string
	MaxSizeMB  int
	MaxBackups int
}

// VocabConfig controls enabled vocabulary sets and dedupe limits.
type VocabConfig struct {
	GlobalSets []string
	Sets       map[string]VocabSet
	MaxPhrases int
}

// VocabSet is one named phrase group with a shared boost value.
type VocabSet struct {
	Name    string
	Boost   float64
	Phrases []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

// SpeechPhrase is one normalized vocabulary entry.
type SpeechPhrase struct {
	Phrase string
	Boost  float32
}
