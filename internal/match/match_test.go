package match

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/murmur/internal/command"
)

func def(name string, position command.MatchPosition, phrases ...string) command.Definition {
	return command.Definition{Name: name, SignalPhrases: phrases, MatchPosition: position}
}

func TestFindEmptyInput(t *testing.T) {
	table := []command.Definition{def("any", command.MatchAnywhere, "a")}

	for _, input := range []string{"", "   ", "\n\t"} {
		result := Find(input, table, nil)
		require.False(t, result.Matched(), "input %q", input)
		require.Empty(t, result.Residual)
	}
}

func TestFindExactIgnoresCasePunctuationAndWhitespace(t *testing.T) {
	table := []command.Definition{def("language:de", command.MatchExact, "german", "chairman")}

	for _, input := range []string{"german", "German.", "  CHAIRMAN!  ", "\"German?\""} {
		result := Find(input, table, nil)
		require.True(t, result.Matched(), "input %q", input)
		require.Equal(t, "language:de", result.Command.Name)
		require.Empty(t, result.Residual, "exact matches never carry residual text")
	}

	require.False(t, Find("german please", table, nil).Matched())
}

func TestFindStartStripsPhraseAndLeadingPunctuation(t *testing.T) {
	table := []command.Definition{def("short", command.MatchStart, "short")}

	result := Find("Short, please summarize this.", table, nil)
	require.True(t, result.Matched())
	require.Equal(t, "please summarize this.", result.Residual)
	require.NotContains(t, result.Residual, "Short")

	result = Find("short.", table, nil)
	require.True(t, result.Matched())
	require.Empty(t, result.Residual)

	// ẞ lowercases to a narrower ß; the residual keeps its original case.
	note := []command.Definition{def("note", command.MatchStart, "note")}
	result = Find("Note: Die GROẞE Straße in München", note, nil)
	require.True(t, result.Matched())
	require.Equal(t, "Die GROẞE Straße in München", result.Residual)

	result = Find("GROẞE Note, bitte", []command.Definition{def("big", command.MatchStart, "große note")}, nil)
	require.True(t, result.Matched())
	require.Equal(t, "bitte", result.Residual)
}

func TestFindEndStripsPhraseAndTrailingPunctuation(t *testing.T) {
	table := []command.Definition{def("translate", command.MatchEnd, "in german")}

	result := Find("Good morning everyone, in German", table, nil)
	require.True(t, result.Matched())
	require.Equal(t, "Good morning everyone", result.Residual)

	result = Find("in german", table, nil)
	require.True(t, result.Matched())
	require.Empty(t, result.Residual)

	require.False(t, Find("in german please", table, nil).Matched())

	result = Find("Die GROẞE Straße, in German", table, nil)
	require.True(t, result.Matched())
	require.Equal(t, "Die GROẞE Straße", result.Residual)
}

func TestFindUnknownPositionWarnsOncePerCommand(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	table := []command.Definition{
		def("odd", command.MatchPosition("middle"), "alpha", "beta", "gamma"),
		def("fallback", command.MatchAnywhere, "beta"),
	}

	result := Find("alpha beta gamma", table, logger)
	require.True(t, result.Matched())
	require.Equal(t, "fallback", result.Command.Name)
	require.Equal(t, 1, strings.Count(buf.String(), "unknown match position"))
}

func TestFindAnywhereReturnsOriginalTranscript(t *testing.T) {
	table := []command.Definition{def("todo", command.MatchAnywhere, "todo")}

	input := "Add a TODO for the parser, tomorrow."
	result := Find(input, table, nil)
	require.True(t, result.Matched())
	require.Equal(t, input, result.Residual)
}

func TestFindTableOrderBreaksTies(t *testing.T) {
	table := []command.Definition{
		def("first", command.MatchStart, "find"),
		def("second", command.MatchStart, "find entities"),
	}

	result := Find("find entities person", table, nil)
	require.True(t, result.Matched())
	require.Equal(t, "first", result.Command.Name)
	require.Equal(t, "entities person", result.Residual)
}

func TestFindPhraseOrderWithinCommand(t *testing.T) {
	table := []command.Definition{def("swiss", command.MatchStart, "swiss", "swiss german")}

	result := Find("swiss german hello", table, nil)
	require.Equal(t, "german hello", result.Residual)
}

func TestFindSkipsMalformedDefinitions(t *testing.T) {
	table := []command.Definition{
		{Name: "empty", MatchPosition: command.MatchAnywhere},
		{Name: "blank", SignalPhrases: []string{"  ", ""}, MatchPosition: command.MatchAnywhere},
		{Name: "odd", SignalPhrases: []string{"hello"}, MatchPosition: "sideways"},
		def("good", command.MatchAnywhere, "", "hello"),
	}

	result := Find("hello world", table, nil)
	require.True(t, result.Matched())
	require.Equal(t, "good", result.Command.Name)
}

func TestFindIsDeterministic(t *testing.T) {
	table := command.Default()
	inputs := []string{"german", "short summarize this", "find entities Person", "nothing here", ""}

	for _, input := range inputs {
		first := Find(input, table, nil)
		for i := 0; i < 5; i++ {
			again := Find(input, table, nil)
			require.Equal(t, first.Matched(), again.Matched())
			require.Equal(t, first.Residual, again.Residual)
			if first.Matched() {
				require.Equal(t, first.Command.Name, again.Command.Name)
			}
		}
	}
}

func TestFindResidualNeverContainsAnchoredPhrase(t *testing.T) {
	table := []command.Definition{
		def("start", command.MatchStart, "note"),
		def("end", command.MatchEnd, "done"),
	}

	start := Find("note: buy milk", table, nil)
	require.Equal(t, "buy milk", start.Residual)

	end := Find("ship the release, done", table, nil)
	require.Equal(t, "ship the release", end.Residual)
}

func TestMatcherReloadSwapsWholeTable(t *testing.T) {
	m := NewMatcher([]command.Definition{def("old", command.MatchExact, "ping")}, nil)
	require.Equal(t, "old", m.Match("ping").Command.Name)

	snapshot := m.Snapshot()
	m.Reload([]command.Definition{def("new", command.MatchExact, "pong")})

	require.False(t, m.Match("ping").Matched())
	require.Equal(t, "new", m.Match("pong").Command.Name)
	require.Equal(t, "old", snapshot[0].Name, "earlier snapshots are unaffected by reload")
}

func TestMatcherReloadIsSafeUnderConcurrentReads(t *testing.T) {
	m := NewMatcher(command.Default(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = m.Match("german")
			}
		}()
	}
	for i := 0; i < 50; i++ {
		m.Reload(command.Default())
	}
	wg.Wait()

	require.Equal(t, "language:de", m.Match("german").Command.Name)
}
