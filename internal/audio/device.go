// Package audio talks to PulseAudio: input discovery and selection, microphone
// capture in fixed frames, WAV coding and playback of short clips.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const appName = "murmur"

// Pulse port availability: unknown=0, no=1, yes=2.
const portUnavailable = 1

var errNoDefaultSource = errors.New("default audio source is unavailable")

var sourceStates = map[uint32]string{
	0: "running",
	1: "idle",
	2: "suspended",
}

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Usable reports whether the source can record right now.
func (d Device) Usable() bool {
	return d.Available && !d.Muted
}

// String renders "description (id)", or whichever half is set.
func (d Device) String() string {
	description := strings.TrimSpace(d.Description)
	id := strings.TrimSpace(d.ID)
	switch {
	case description == "":
		return id
	case id == "":
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}

func (d Device) matches(term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(d.ID), term) ||
		strings.Contains(strings.ToLower(d.Description), term)
}

func (d Device) unusableReason() string {
	if d.Muted {
		return "muted"
	}
	return "unavailable"
}

// Selection is the source a turn records from. Warning is set when the
// configured input could not be used.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// ListDevices returns the Pulse input sources, marking the server default.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newClient()
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var replies pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &replies); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(replies))
	for _, source := range replies {
		if source != nil {
			devices = append(devices, deviceFromReply(source, defaultSource.ID()))
		}
	}
	return devices, nil
}

func deviceFromReply(source *pulseproto.GetSourceInfoReply, defaultID string) Device {
	return Device{
		ID:          source.SourceName,
		Description: source.Device,
		State:       sourceStateString(source.State),
		Available:   sourceAvailable(source),
		Muted:       source.Mute,
		Default:     source.SourceName == defaultID,
	}
}

// SelectDevice applies the audio.input / audio.fallback preferences to the
// live source list.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

// selectDeviceFromList picks the preferred input, then the fallback when the
// preferred one is muted or unavailable. An empty or "default" preference
// means the server default source.
func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}
	input = preference(input)
	fallback = preference(fallback)

	primary, err := findDevice(devices, input)
	if err != nil {
		return Selection{}, err
	}
	if primary.Usable() {
		return Selection{Device: primary}, nil
	}

	reason := primary.unusableReason()
	alt, err := findDevice(devices, fallback)
	switch {
	case err != nil && fallback == "":
		return Selection{}, fmt.Errorf("primary input %q is %s and no usable fallback: %w", primary.ID, reason, err)
	case err != nil:
		return Selection{}, fmt.Errorf("primary input %q is %s and fallback %q not found", primary.ID, reason, fallback)
	case !alt.Available:
		return Selection{}, fmt.Errorf("audio fallback device %q is not available", alt.ID)
	case alt.Muted:
		return Selection{}, fmt.Errorf("audio fallback device %q is muted", alt.ID)
	}

	return Selection{
		Device:   alt,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, reason, alt.ID),
		Fallback: primary.ID != alt.ID,
	}, nil
}

func preference(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "default" {
		return ""
	}
	return term
}

// findDevice returns the first source matching term, or the default source
// for an empty term.
func findDevice(devices []Device, term string) (Device, error) {
	for _, dev := range devices {
		if (term == "" && dev.Default) || dev.matches(term) {
			return dev, nil
		}
	}
	if term == "" {
		return Device{}, errNoDefaultSource
	}
	return Device{}, fmt.Errorf("audio.input %q did not match any device", term)
}

func newClient() (*pulse.Client, error) {
	return pulse.NewClient(
		pulse.ClientApplicationName(appName),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
}

func sourceStateString(state uint32) string {
	if name, ok := sourceStates[state]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", state)
}

// sourceAvailable checks the active port; sources without ports count as
// available.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	for _, port := range source.Ports {
		if port.Name == source.ActivePortName {
			return port.Available != portUnavailable
		}
	}
	return true
}
