package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"
	clipboardRead := "wl-paste --no-newline"

	return Config{
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Paste: PasteConfig{
			Enable:         true,
			Shortcut:       "CTRL,V",
			TrailingSpace:  true,
			ClassShortcuts: defaultTerminalShortcuts(),
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "murmur-indicator",
			SoundEnable:    true,
			Height:         28,
			ErrorTimeoutMS: 1600,
		},
		Clipboard:     CommandConfig{Raw: clipboard, Argv: mustParseArgv(clipboard)},
		ClipboardRead: CommandConfig{Raw: clipboardRead, Argv: mustParseArgv(clipboardRead)},
		STT: STTConfig{
			URL:       "http://127.0.0.1:8080/v1/audio/transcriptions",
			Flavor:    "openai",
			Model:     "whisper-1",
			TimeoutMS: 60000,
			Workers:   12,
		},
		Segment: SegmentConfig{
			SilenceThreshold: 0.01,
			MinSegmentMS:     500,
			ChunkMS:          5000,
		},
		Session: SessionConfig{
			DefaultLanguage:   "en",
			BaseLanguage:      "en",
			RegionalLanguages: []string{"de-DE", "de-CH"},
			MinHoldMS:         1200,
			DefaultMode:       "normal",
		},
		LLM: LLMConfig{
			Provider:    "anthropic",
			TimeoutMS:   30000,
			MaxTokens:   1000,
			Temperature: 0.7,
		},
		NER: NERConfig{
			URL:             "http://127.0.0.1:5001/extract",
			TimeoutMS:       10000,
			CacheSize:       64,
			CacheTTLSeconds: 300,
		},
		TTS: TTSConfig{
			URL:       "http://127.0.0.1:5002/api/tts",
			TimeoutMS: 30000,
			Voices:    map[string]string{},
		},
		Commands: CommandsConfig{Watch: false},
		State:    StateConfig{Backend: "file"},
		Metrics:  MetricsConfig{Job: "murmur"},
		Log:      LogConfig{Level: "info", MaxSizeMB: 10, MaxBackups: 3},
		Vocab: VocabConfig{
			GlobalSets: nil,
			Sets:       map[string]VocabSet{},
			MaxPhrases: 1024,
		},
		Debug: DebugConfig{},
	}
}

// defaultTerminalShortcuts covers terminals that bind paste to CTRL SHIFT,V.
func defaultTerminalShortcuts() map[string]string {
	const shortcut = "CTRL SHIFT,V"
	return map[string]string{
		"kitty":                  shortcut,
		"foot":                   shortcut,
		"alacritty":              shortcut,
		"com.mitchellh.ghostty":  shortcut,
		"org.wezfurlong.wezterm": shortcut,
	}
}
