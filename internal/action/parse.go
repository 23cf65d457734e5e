// Package action parses command action strings and executes them for a turn.
package action

import (
	"log/slog"
	"strings"
)

// Kind identifies a supported action type.
type Kind int

const (
	KindUnknown Kind = iota
	KindMode
	KindLanguage
	KindLLM
	KindProcessTemplate
	KindNERExtract
	KindSpeak
)

var kindNames = map[string]Kind{
	"mode":             KindMode,
	"language":         KindLanguage,
	"stt_language":     KindLanguage,
	"llm":              KindLLM,
	"process_template": KindProcessTemplate,
	"ner_extract":      KindNERExtract,
	"speak":            KindSpeak,
}

// KindOf maps an action type name to its Kind.
func KindOf(name string) Kind {
	if kind, ok := kindNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return kind
	}
	return KindUnknown
}

func (k Kind) String() string {
	switch k {
	case KindMode:
		return "mode"
	case KindLanguage:
		return "language"
	case KindLLM:
		return "llm"
	case KindProcessTemplate:
		return "process_template"
	case KindNERExtract:
		return "ner_extract"
	case KindSpeak:
		return "speak"
	default:
		return "unknown"
	}
}

// Parsed is one structured action. Value and Params are mutually
// exclusive: a non-empty Params always comes with an empty Value.
type Parsed struct {
	Type   string
	Value  string
	Params map[string]string
}

// Kind resolves the action's type name.
func (p Parsed) Kind() Kind {
	return KindOf(p.Type)
}

// Parse expands raw action strings into structured actions, in order.
//
//	"llm"                                  -> {llm, "", {}}
//	"mode:llm"                             -> {mode, "llm", {}}
//	"ner_extract:types_source=spoken,x=1"  -> {ner_extract, "", {types_source: spoken, x: 1}}
//
// Entries with an empty type are skipped. Parameter fragments without "="
// are ignored.
func Parse(raw []string, logger *slog.Logger) []Parsed {
	out := make([]Parsed, 0, len(raw))
	for _, item := range raw {
		parsed, ok := parseOne(item, logger)
		if !ok {
			continue
		}
		out = append(out, parsed)
	}
	return out
}

// LanguageSwitch reports the hint the language actions in actions would set,
// last one winning, and whether they are the only actions in the list.
func LanguageSwitch(actions []Parsed) (hint string, only bool) {
	only = true
	for _, a := range actions {
		if a.Kind() != KindLanguage {
			only = false
			continue
		}
		if value := strings.TrimSpace(a.Value); value != "" {
			hint = value
		}
	}
	return hint, hint != "" && only
}

// StateActions keeps the mode and language actions of actions, in order.
func StateActions(actions []Parsed) []Parsed {
	out := make([]Parsed, 0, len(actions))
	for _, a := range actions {
		switch a.Kind() {
		case KindMode, KindLanguage:
			out = append(out, a)
		}
	}
	return out
}

func parseOne(item string, logger *slog.Logger) (Parsed, bool) {
	parsed := Parsed{Type: strings.TrimSpace(item), Params: map[string]string{}}

	if typ, rest, found := strings.Cut(item, ":"); found {
		parsed.Type = strings.TrimSpace(typ)
		rest = strings.TrimSpace(rest)

		if strings.Contains(rest, "=") {
			for _, fragment := range strings.Split(rest, ",") {
				key, value, ok := strings.Cut(fragment, "=")
				if !ok {
					if strings.TrimSpace(fragment) != "" {
						warn(logger, "ignoring action fragment without '='", "action", item, "fragment", fragment)
					}
					continue
				}
				key = strings.TrimSpace(key)
				if key == "" {
					warn(logger, "ignoring action parameter with empty key", "action", item)
					continue
				}
				parsed.Params[key] = strings.TrimSpace(value)
			}
		} else {
			parsed.Value = rest
		}
	}

	if parsed.Type == "" {
		warn(logger, "ignoring action with empty type", "action", item)
		return Parsed{}, false
	}
	return parsed, true
}

func warn(logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		return
	}
	logger.Warn(msg, args...)
}
