package session

import (
	"context"
	"time"

	"github.com/rbright/murmur/internal/action"
	"github.com/rbright/murmur/internal/command"
	"github.com/rbright/murmur/internal/match"
)

// Clipboard reads the current clipboard text.
type Clipboard interface {
	Read(context.Context) (string, error)
}

// ClipboardFunc adapts a function to the Clipboard interface.
type ClipboardFunc func(context.Context) (string, error)

func (f ClipboardFunc) Read(ctx context.Context) (string, error) {
	return f(ctx)
}

// Matcher finds the command a transcript addresses.
type Matcher interface {
	Snapshot() []command.Definition
}

// Executor runs a matched command's parsed actions.
type Executor interface {
	Execute(ctx context.Context, actions []action.Parsed, in action.Context, cmd command.Definition) action.Result
}

// Cleaner strips filler phrases from a transcript.
type Cleaner interface {
	Clean(string) string
}

// TurnObserver records one completed turn, typically into metrics.
type TurnObserver interface {
	ObserveTurn(outcome string, elapsed time.Duration)
}

// staticMatcher serves a fixed table.
type staticMatcher []command.Definition

func (m staticMatcher) Snapshot() []command.Definition { return m }

type passthroughCleaner struct{}

func (passthroughCleaner) Clean(text string) string { return text }

var _ Matcher = (*match.Matcher)(nil)
