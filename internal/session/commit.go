package session

import (
	"context"
	"strings"

	"github.com/rbright/murmur/internal/action"
	"github.com/rbright/murmur/internal/fsm"
)

// Committer writes a turn's output to the clipboard and pastes it.
type Committer interface {
	Commit(context.Context, string) error
}

// CommitFunc adapts a function to the Committer interface.
type CommitFunc func(context.Context, string) error

func (f CommitFunc) Commit(ctx context.Context, text string) error {
	return f(ctx, text)
}

// deliver routes a dispatch result to the desktop. Pasteable text is
// committed; anything else non-empty is shown as a notice. A commit failure
// leaves the controller reset to idle.
func (c *Controller) deliver(ctx context.Context, t *turn, out action.Result) (string, error) {
	text := strings.TrimSpace(out.Text)
	switch {
	case text == "":
		return OutcomeNoOutput, nil
	case !out.PasteSuccessful:
		c.indicator.ShowError(context.Background(), text)
		t.notice = true
		return OutcomeShown, nil
	}

	_ = c.transition(fsm.EventPaste)
	if err := c.commit.Commit(ctx, out.Text); err != nil {
		c.indicator.ShowError(context.Background(), "Output dispatch failed")
		t.notice = true
		c.toErrorAndReset()
		c.logWarn("output commit failed", "command", t.command, "error", err.Error())
		return OutcomeFailed, err
	}
	c.indicator.CueComplete(context.Background())
	c.indicator.ShowPasted(context.Background(), preview(text))
	t.notice = true
	return OutcomePasted, nil
}

// preview truncates pasted text for the indicator.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= pastedPreviewRunes {
		return text
	}
	return string(runes[:pastedPreviewRunes])
}
