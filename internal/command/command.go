// Package command defines the signal-phrase command table and its loader.
package command

import "strings"

// MatchPosition controls where a signal phrase must appear in a transcript.
type MatchPosition string

const (
	MatchExact    MatchPosition = "exact"
	MatchStart    MatchPosition = "start"
	MatchEnd      MatchPosition = "end"
	MatchAnywhere MatchPosition = "anywhere"
)

// ParseMatchPosition resolves a configured position; empty means anywhere.
func ParseMatchPosition(raw string) (MatchPosition, bool) {
	switch MatchPosition(strings.ToLower(strings.TrimSpace(raw))) {
	case "", MatchAnywhere:
		return MatchAnywhere, true
	case MatchExact:
		return MatchExact, true
	case MatchStart:
		return MatchStart, true
	case MatchEnd:
		return MatchEnd, true
	default:
		return "", false
	}
}

// Definition is one immutable command table entry.
type Definition struct {
	Name           string
	SignalPhrases  []string
	MatchPosition  MatchPosition
	Actions        []string
	Template       string
	ModelOverride  string
	OverlayMessage string
}

// Lookup returns the first definition with the given name.
func Lookup(table []Definition, name string) (Definition, bool) {
	for _, def := range table {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

// RegionalModeCommand names the entry whose template drives de-CH mode.
const RegionalModeCommand = "mode:de-CH"

const swissTemplate = "Translate the following English text into Central Swiss German (Schweizerdeutsch). Provide only the translation:\n\nEnglish Text: {text}"

// Default returns the built-in table used when no command file exists.
func Default() []Definition {
	return []Definition{
		{
			Name:           "language:de",
			SignalPhrases:  []string{"german", "chairman"},
			MatchPosition:  MatchExact,
			Actions:        []string{"language:de-DE", "mode:normal"},
			OverlayMessage: "Next: German",
		},
		{
			Name:           "language:en",
			SignalPhrases:  []string{"english"},
			MatchPosition:  MatchExact,
			Actions:        []string{"language:en"},
			OverlayMessage: "Next: English",
		},
		{
			Name:           "mode:llm",
			SignalPhrases:  []string{"llm mode", "assistant mode"},
			MatchPosition:  MatchExact,
			Actions:        []string{"mode:llm"},
			OverlayMessage: "Mode: LLM",
		},
		{
			Name:           "mode:normal",
			SignalPhrases:  []string{"normal mode", "dictation mode"},
			MatchPosition:  MatchExact,
			Actions:        []string{"mode:normal"},
			OverlayMessage: "Mode: dictation",
		},
		{
			Name:           RegionalModeCommand,
			SignalPhrases:  []string{"swiss mode"},
			MatchPosition:  MatchExact,
			Actions:        []string{"mode:de-CH"},
			Template:       swissTemplate,
			ModelOverride:  "claude-3-haiku-20240307",
			OverlayMessage: "Mode: Swiss German",
		},
		{
			Name:           "swiss german",
			SignalPhrases:  []string{"swiss german", "swiss chairman"},
			MatchPosition:  MatchStart,
			Actions:        []string{"llm"},
			Template:       swissTemplate,
			ModelOverride:  "claude-3-haiku-20240307",
			OverlayMessage: "Translating to Swiss German…",
		},
		{
			Name:           "short summary",
			SignalPhrases:  []string{"short"},
			MatchPosition:  MatchStart,
			Actions:        []string{"llm"},
			Template:       "Summarize the following text in bullet points using mostly keywords or very short phrases: {clipboard}",
			ModelOverride:  "claude-3-haiku-20240307",
			OverlayMessage: "Summarizing clipboard…",
		},
		{
			Name:           "find entities",
			SignalPhrases:  []string{"find entities", "extract entities"},
			MatchPosition:  MatchStart,
			Actions:        []string{"ner_extract:types_source=spoken,threshold=0.4"},
			OverlayMessage: "Extracting entities…",
		},
		{
			Name:           "read aloud",
			SignalPhrases:  []string{"read aloud"},
			MatchPosition:  MatchStart,
			Actions:        []string{"speak:en"},
			OverlayMessage: "Speaking…",
		},
	}
}
