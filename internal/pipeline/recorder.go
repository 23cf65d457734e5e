// Package pipeline wires microphone capture and segment transcription into
// the session recorder and transcriber ports.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/session"
)

type captureClient interface {
	Stop() error
	Frames() <-chan []byte
	BytesCaptured() int64
	PeakEnergy() float64
	RawPCM() []byte
}

// Recorder owns one capture lifecycle for a dictation turn.
type Recorder struct {
	cfg    config.Config
	logger *slog.Logger

	mu        sync.Mutex
	started   bool
	selection audio.Selection
	capture   captureClient
	startedAt time.Time
	drained   chan struct{}

	selectDevice func(context.Context, string, string) (audio.Selection, error)
	startCapture func(context.Context, audio.Device) (captureClient, error)
	now          func() time.Time
}

// NewRecorder constructs a recorder from runtime config.
func NewRecorder(cfg config.Config, logger *slog.Logger) *Recorder {
	return &Recorder{
		cfg:          cfg,
		logger:       logger,
		selectDevice: audio.SelectDevice,
		startCapture: func(ctx context.Context, device audio.Device) (captureClient, error) {
			return audio.StartCapture(ctx, device)
		},
		now: time.Now,
	}
}

// Start resolves device selection and starts audio capture.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("recorder already started")
	}

	selection, err := r.selectDevice(ctx, r.cfg.Audio.Input, r.cfg.Audio.Fallback)
	if err != nil {
		return err
	}
	r.selection = selection
	if selection.Warning != "" {
		r.logWarn(selection.Warning)
	}

	capture, err := r.startCapture(ctx, selection.Device)
	if err != nil {
		return err
	}
	r.capture = capture
	r.startedAt = r.now()

	// Frames must be consumed or capture blocks; the full recording is
	// read back from RawPCM on stop.
	r.drained = make(chan struct{})
	go func(frames <-chan []byte, done chan<- struct{}) {
		defer close(done)
		for range frames {
		}
	}(capture.Frames(), r.drained)

	r.started = true
	return nil
}

// Stop ends capture and returns the whole recording.
func (r *Recorder) Stop(_ context.Context) (session.Recording, error) {
	r.mu.Lock()
	started := r.started
	capture := r.capture
	drained := r.drained
	selection := r.selection
	startedAt := r.startedAt
	r.started = false
	r.capture = nil
	r.mu.Unlock()

	if !started || capture == nil {
		return session.Recording{}, session.ErrPipelineUnavailable
	}

	_ = capture.Stop()
	if drained != nil {
		<-drained
	}

	pcm := capture.RawPCM()
	r.writeDebugAudio(pcm)

	return session.Recording{
		PCM:           pcm,
		AudioDevice:   selection.Device.String(),
		BytesCaptured: capture.BytesCaptured(),
		Duration:      r.now().Sub(startedAt),
		PeakEnergy:    capture.PeakEnergy(),
	}, nil
}

// Cancel stops capture immediately and discards the recording.
func (r *Recorder) Cancel(_ context.Context) error {
	r.mu.Lock()
	capture := r.capture
	drained := r.drained
	r.started = false
	r.capture = nil
	r.mu.Unlock()

	if capture != nil {
		_ = capture.Stop()
		if drained != nil {
			<-drained
		}
		r.writeDebugAudio(capture.RawPCM())
	}
	return nil
}

func (r *Recorder) logWarn(message string) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(message)
}

// createDebugFile creates timestamped debug artifacts under state/murmur/debug.
func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := resolveStateDir()
	if err != nil {
		return nil, err
	}
	debugDir := filepath.Join(stateDir, "murmur", "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

// resolveStateDir returns XDG_STATE_HOME fallback path for debug artifacts.
func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}

// writeDebugAudio writes raw PCM to WAV when debug.audio_dump is enabled.
func (r *Recorder) writeDebugAudio(rawPCM []byte) {
	if !r.cfg.Debug.EnableAudioDump || len(rawPCM) == 0 {
		return
	}

	encoded, err := audio.EncodeWAV(rawPCM, audio.SampleRate)
	if err != nil {
		r.logWarn(fmt.Sprintf("unable to encode debug audio dump: %v", err))
		return
	}

	file, err := createDebugFile("audio", "wav")
	if err != nil {
		r.logWarn(fmt.Sprintf("unable to create debug audio dump: %v", err))
		return
	}
	defer file.Close()

	if _, err := file.Write(encoded); err != nil {
		r.logWarn(fmt.Sprintf("unable to write debug audio dump: %v", err))
	}
}
