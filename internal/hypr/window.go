package hypr

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ActiveWindow is the paste target.
type ActiveWindow struct {
	Address      string `json:"address"`
	Class        string `json:"class"`
	InitialClass string `json:"initialClass"`
	Title        string `json:"title"`
}

// Classes returns the lowercased class names the window answers to, current
// class first.
func (w ActiveWindow) Classes() []string {
	var out []string
	for _, class := range []string{w.Class, w.InitialClass} {
		class = strings.ToLower(strings.TrimSpace(class))
		if class != "" && (len(out) == 0 || out[0] != class) {
			out = append(out, class)
		}
	}
	return out
}

// QueryActiveWindow reads the focused window. A window without an address
// cannot receive a shortcut and is reported as an error.
func QueryActiveWindow(ctx context.Context) (ActiveWindow, error) {
	var window ActiveWindow
	if err := queryJSON(ctx, "activewindow", &window); err != nil {
		return ActiveWindow{}, err
	}
	window.Address = strings.TrimSpace(window.Address)
	window.Class = strings.TrimSpace(window.Class)
	window.InitialClass = strings.TrimSpace(window.InitialClass)
	window.Title = strings.TrimSpace(window.Title)
	if window.Address == "" {
		return ActiveWindow{}, fmt.Errorf("hyprctl activewindow returned empty address")
	}
	return window, nil
}

// WaitActiveWindow retries QueryActiveWindow while focus settles after the
// push-to-talk key is released.
func WaitActiveWindow(ctx context.Context, attempts int, delay time.Duration) (ActiveWindow, error) {
	attempts = max(attempts, 1)

	var lastErr error
	for i := range attempts {
		window, err := QueryActiveWindow(ctx)
		if err == nil {
			return window, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ActiveWindow{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	return ActiveWindow{}, fmt.Errorf("resolve active window: %w", lastErr)
}

// QueryFocusedMonitor names the focused monitor, or the first one when none
// reports focus.
func QueryFocusedMonitor(ctx context.Context) (string, error) {
	var monitors []struct {
		Name    string `json:"name"`
		Focused bool   `json:"focused"`
	}
	if err := queryJSON(ctx, "monitors", &monitors); err != nil {
		return "", err
	}
	if len(monitors) == 0 {
		return "", fmt.Errorf("hyprctl monitors returned no outputs")
	}

	name := monitors[0].Name
	for _, mon := range monitors {
		if mon.Focused {
			name = mon.Name
			break
		}
	}
	return strings.TrimSpace(name), nil
}

// PasteTo sends shortcut to window, e.g. "CTRL,V" becomes
// "CTRL,V,address:0xabc".
func PasteTo(ctx context.Context, shortcut string, window ActiveWindow) error {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		return fmt.Errorf("paste shortcut cannot be empty")
	}
	address := strings.TrimSpace(window.Address)
	if address == "" {
		return fmt.Errorf("active window address is required")
	}
	return SendShortcut(ctx, shortcut+",address:"+address)
}

// SendShortcut dispatches a raw sendshortcut payload.
func SendShortcut(ctx context.Context, payload string) error {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return fmt.Errorf("sendshortcut requires a non-empty payload")
	}
	return runHyprctl(ctx, "--quiet", "dispatch", "sendshortcut", payload)
}

// queryJSON runs "hyprctl -j <target>" and decodes the reply into out.
func queryJSON(ctx context.Context, target string, out any) error {
	output, err := runHyprctlOutput(ctx, "-j", target)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(output, out); err != nil {
		return fmt.Errorf("decode hyprctl %s json: %w", target, err)
	}
	return nil
}
