package output

import (
	"context"
	"strings"
	"time"

	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/hypr"
)

// Focus can lag the push-to-talk release by a few milliseconds.
const (
	focusAttempts = 5
	focusDelay    = 10 * time.Millisecond
)

// pasteTarget is the window a commit pastes into and the shortcut it takes.
type pasteTarget struct {
	window   hypr.ActiveWindow
	shortcut string
}

// resolveTarget finds the focused window and picks its paste shortcut.
func resolveTarget(ctx context.Context, paste config.PasteConfig) (pasteTarget, error) {
	window, err := hypr.WaitActiveWindow(ctx, focusAttempts, focusDelay)
	if err != nil {
		return pasteTarget{}, err
	}
	return pasteTarget{window: window, shortcut: shortcutFor(window, paste)}, nil
}

// shortcutFor returns the class override for window, matching the current
// class before the initial one, else paste.shortcut.
func shortcutFor(window hypr.ActiveWindow, paste config.PasteConfig) string {
	for _, class := range window.Classes() {
		if shortcut := strings.TrimSpace(paste.ClassShortcuts[class]); shortcut != "" {
			return shortcut
		}
	}
	return paste.Shortcut
}

// defaultPaste sends the resolved shortcut to the focused Hyprland window.
func (c *Committer) defaultPaste(ctx context.Context) error {
	target, err := resolveTarget(ctx, c.config.Paste)
	if err != nil {
		return err
	}
	if c.logger != nil {
		c.logger.Debug("pasting into focused window",
			"class", target.window.Class,
			"title", target.window.Title,
			"shortcut", target.shortcut,
		)
	}
	return hypr.PasteTo(ctx, target.shortcut, target.window)
}
