package hypr

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Icon is a Hyprland notification icon.
type Icon int

const (
	IconNone    Icon = -1
	IconWarning Icon = 0
	IconInfo    Icon = 1
	IconHint    Icon = 2
	IconError   Icon = 3
	IconOK      Icon = 5
)

const defaultNoticeColor = "rgb(89b4fa)"

// Notice is one on-screen notification.
type Notice struct {
	Icon    Icon
	Timeout time.Duration
	Color   string
	Text    string
}

// Notify shows n through "hyprctl dispatch notify".
func Notify(ctx context.Context, n Notice) error {
	color := strings.TrimSpace(n.Color)
	if color == "" {
		color = defaultNoticeColor
	}
	return runHyprctl(ctx,
		"--quiet", "dispatch", "notify",
		strconv.Itoa(int(n.Icon)),
		strconv.FormatInt(n.Timeout.Milliseconds(), 10),
		color,
		n.Text,
	)
}

// DismissNotify clears every visible notification.
func DismissNotify(ctx context.Context) error {
	return runHyprctl(ctx, "--quiet", "dispatch", "dismissnotify")
}
