package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPipelineUnavailable indicates runtime recorder wiring is missing.
	ErrPipelineUnavailable = errors.New("audio capture pipeline not available")
	// ErrRecordingTooShort indicates the key was released before the minimum hold time.
	ErrRecordingTooShort = errors.New("recording shorter than minimum hold time")
)

// Recording is the captured audio handed from the recorder to transcription.
// It is kept for the whole turn so a language switch can re-transcribe it.
type Recording struct {
	PCM           []byte
	AudioDevice   string
	BytesCaptured int64
	Duration      time.Duration
	// PeakEnergy is the loudest 20 ms frame's energy; see audio.FrameEnergy.
	PeakEnergy float64
}

// Recorder abstracts microphone capture.
type Recorder interface {
	Start(context.Context) error
	Stop(context.Context) (Recording, error)
	Cancel(context.Context) error
}

// Transcriber turns a recording into text using a language hint.
type Transcriber interface {
	Transcribe(ctx context.Context, rec Recording, language string) (string, error)
}

// PlaceholderRecorder is a no-op recorder used in tests/fallback wiring.
type PlaceholderRecorder struct{}

func (PlaceholderRecorder) Start(context.Context) error {
	return nil
}

func (PlaceholderRecorder) Stop(context.Context) (Recording, error) {
	return Recording{}, ErrPipelineUnavailable
}

func (PlaceholderRecorder) Cancel(context.Context) error {
	return nil
}

// TranscribeFunc adapts a function to the Transcriber interface.
type TranscribeFunc func(context.Context, Recording, string) (string, error)

func (f TranscribeFunc) Transcribe(ctx context.Context, rec Recording, language string) (string, error) {
	return f(ctx, rec, language)
}
