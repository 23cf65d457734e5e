// Package match selects the command whose signal phrase matches a transcript.
package match

import (
	"log/slog"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/rbright/murmur/internal/command"
)

// residualTrim is the set stripped between an anchored phrase and its payload.
const residualTrim = ",.?!;: "

// Result is the matcher outcome; Residual is empty when no payload text remains.
type Result struct {
	Command  *command.Definition
	Residual string
}

// Matched reports whether a command was selected.
func (r Result) Matched() bool {
	return r.Command != nil
}

// Find returns the first command in table order whose phrase matches text.
func Find(text string, table []command.Definition, logger *slog.Logger) Result {
	if strings.TrimSpace(text) == "" {
		return Result{}
	}

	lowered := strings.ToLower(text)
	exactKey := stripPunctuation(lowered)

	for i := range table {
		def := &table[i]
		if !hasUsablePhrase(def.SignalPhrases) {
			warn(logger, "command has no usable signal phrases; skipped", def.Name)
			continue
		}
		if !knownPosition(def.MatchPosition) {
			warn(logger, "command has unknown match position; skipped", def.Name)
			continue
		}

		for _, phrase := range def.SignalPhrases {
			needle := strings.ToLower(strings.TrimSpace(phrase))
			if needle == "" {
				continue
			}

			switch def.MatchPosition {
			case command.MatchExact:
				if exactKey == stripPunctuation(needle) {
					return Result{Command: def}
				}
			case command.MatchStart:
				if end, ok := foldedPrefix(text, needle); ok {
					rest := strings.TrimLeft(text[end:], residualTrim)
					return Result{Command: def, Residual: strings.TrimSpace(rest)}
				}
			case command.MatchEnd:
				if start, ok := foldedSuffix(text, needle); ok {
					rest := strings.TrimRight(text[:start], residualTrim)
					return Result{Command: def, Residual: strings.TrimSpace(rest)}
				}
			default:
				if strings.Contains(lowered, needle) {
					return Result{Command: def, Residual: text}
				}
			}
		}
	}

	return Result{}
}

// Matcher owns an injected command table that can be swapped between turns.
type Matcher struct {
	logger *slog.Logger
	table  atomic.Pointer[[]command.Definition]
}

// NewMatcher copies table into a new matcher.
func NewMatcher(table []command.Definition, logger *slog.Logger) *Matcher {
	m := &Matcher{logger: logger}
	m.Reload(table)
	return m
}

// Reload atomically replaces the whole table.
func (m *Matcher) Reload(table []command.Definition) {
	snapshot := append([]command.Definition(nil), table...)
	m.table.Store(&snapshot)
}

// Snapshot returns the table currently in effect.
func (m *Matcher) Snapshot() []command.Definition {
	if table := m.table.Load(); table != nil {
		return *table
	}
	return nil
}

// Match runs Find against the current snapshot.
func (m *Matcher) Match(text string) Result {
	return Find(text, m.Snapshot(), m.logger)
}

func knownPosition(p command.MatchPosition) bool {
	switch p {
	case command.MatchExact, command.MatchStart, command.MatchEnd, command.MatchAnywhere, "":
		return true
	}
	return false
}

// foldedPrefix reports whether text starts with the lowercase needle and
// returns the byte offset in text just past it. Lowercasing may change a
// rune's width, so offsets are taken from text itself.
func foldedPrefix(text, needle string) (int, bool) {
	i := 0
	for _, want := range needle {
		if i >= len(text) {
			return 0, false
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.ToLower(r) != want {
			return 0, false
		}
		i += size
	}
	return i, true
}

// foldedSuffix is foldedPrefix from the end; it returns where the needle
// starts in text.
func foldedSuffix(text, needle string) (int, bool) {
	i := len(text)
	for j := len(needle); j > 0; {
		want, wsize := utf8.DecodeLastRuneInString(needle[:j])
		j -= wsize
		if i <= 0 {
			return 0, false
		}
		r, size := utf8.DecodeLastRuneInString(text[:i])
		if unicode.ToLower(r) != want {
			return 0, false
		}
		i -= size
	}
	return i, true
}

func hasUsablePhrase(phrases []string) bool {
	for _, phrase := range phrases {
		if strings.TrimSpace(phrase) != "" {
			return true
		}
	}
	return false
}

// stripPunctuation removes ASCII punctuation and surrounding whitespace.
func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r <= unicode.MaxASCII && (unicode.IsPunct(r) || unicode.IsSymbol(r)) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func warn(logger *slog.Logger, msg string, name string) {
	if logger == nil {
		return
	}
	logger.Warn(msg, "command", name)
}
