package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Freedesktop urgency levels carried in the "urgency" hint.
type urgency byte

const (
	urgencyLow      urgency = 0
	urgencyNormal   urgency = 1
	urgencyCritical urgency = 2
)

const (
	notifyDest  = "org.freedesktop.Notifications"
	notifyPath  = "/org/freedesktop/Notifications"
	notifyIface = "org.freedesktop.Notifications"
)

// desktopNotifyArgs builds the busctl call for Notify(app_name, replaces_id,
// app_icon, summary, body, actions, hints, expire_timeout).
func desktopNotifyArgs(appName string, replaceID uint32, summary string, level urgency, timeoutMS int) []string {
	return []string{
		"--user", "call", notifyDest, notifyPath, notifyIface,
		"Notify", "susssasa{sv}i",
		appName,
		strconv.FormatUint(uint64(replaceID), 10),
		"",
		summary,
		"",
		"0",
		"1", "urgency", "y", strconv.Itoa(int(level)),
		strconv.Itoa(timeoutMS),
	}
}

// desktopNotify shows or replaces a notification and returns the id the
// server assigned, for later replacement or dismissal.
func desktopNotify(ctx context.Context, appName string, replaceID uint32, summary string, level urgency, timeoutMS int) (uint32, error) {
	out, err := busctl(ctx, "desktop notify", desktopNotifyArgs(appName, replaceID, summary, level, timeoutMS))
	if err != nil {
		return 0, err
	}
	return parseNotificationID(out)
}

// parseNotificationID reads busctl's "u <id>" reply.
func parseNotificationID(reply string) (uint32, error) {
	fields := strings.Fields(reply)
	if len(fields) != 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", reply)
	}
	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], err)
	}
	return uint32(id), nil
}

// desktopDismiss closes notification id.
func desktopDismiss(ctx context.Context, id uint32) error {
	_, err := busctl(ctx, "desktop dismiss", []string{
		"--user", "call", notifyDest, notifyPath, notifyIface,
		"CloseNotification", "u", strconv.FormatUint(uint64(id), 10),
	})
	return err
}

func busctl(ctx context.Context, op string, args []string) (string, error) {
	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed == "" {
			return "", fmt.Errorf("%s failed: %w", op, err)
		}
		return "", fmt.Errorf("%s failed: %w (%s)", op, err, trimmed)
	}
	return trimmed, nil
}
