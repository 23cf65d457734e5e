package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/session"
	"github.com/stretchr/testify/require"
)

func TestResolveStateDirUsesXDGStateHome(t *testing.T) {
	xdgStateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("HOME", t.TempDir())

	dir, err := resolveStateDir()
	require.NoError(t, err)
	require.Equal(t, xdgStateHome, dir)
}

func TestResolveStateDirFallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", home)

	dir, err := resolveStateDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "state"), dir)
}

func TestCreateDebugFileCreatesExpectedPath(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	file, err := createDebugFile("audio", "wav")
	require.NoError(t, err)
	path := file.Name()
	require.NoError(t, file.Close())

	require.FileExists(t, path)
	require.Contains(t, path, string(filepath.Separator)+"murmur"+string(filepath.Separator)+"debug"+string(filepath.Separator))
	require.Contains(t, filepath.Base(path), "audio-")
	require.Equal(t, ".wav", filepath.Ext(path))

	stat, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), stat.Mode().Perm())
}

func TestWriteDebugAudioCreatesDecodableWav(t *testing.T) {
	xdgStateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)

	cfg := config.Default()
	cfg.Debug.EnableAudioDump = true
	NewRecorder(cfg, nil).writeDebugAudio([]byte{0x01, 0x00, 0x02, 0x00})

	matches, err := filepath.Glob(filepath.Join(xdgStateHome, "murmur", "debug", "audio-*.wav"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	raw, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	pcm, err := audio.DecodeWAV(raw)
	require.NoError(t, err)
	require.Equal(t, []int16{1, 2}, pcm.Samples)
	require.Equal(t, audio.SampleRate, pcm.SampleRate)
}

func TestWriteDebugAudioSkippedWhenDisabled(t *testing.T) {
	xdgStateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)

	NewRecorder(config.Default(), nil).writeDebugAudio([]byte{0x01, 0x00, 0x02, 0x00})

	matches, err := filepath.Glob(filepath.Join(xdgStateHome, "murmur", "debug", "audio-*.wav"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestRecorderStartFailsWhenAlreadyStarted(t *testing.T) {
	recorder := NewRecorder(config.Default(), nil)
	recorder.started = true

	err := recorder.Start(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "already started")
}

func TestRecorderStartFailsWhenAudioSelectionUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	err := NewRecorder(config.Default(), nil).Start(context.Background())
	require.Error(t, err)
}

func TestRecorderStartPropagatesCaptureError(t *testing.T) {
	recorder := newFakeRecorder(t, nil)
	recorder.startCapture = func(context.Context, audio.Device) (captureClient, error) {
		return nil, errors.New("source busy")
	}

	err := recorder.Start(context.Background())
	require.ErrorContains(t, err, "source busy")
	require.False(t, recorder.started)
}

func TestRecorderStopUnavailableWhenNotStarted(t *testing.T) {
	rec, err := NewRecorder(config.Default(), nil).Stop(context.Background())
	require.ErrorIs(t, err, session.ErrPipelineUnavailable)
	require.Equal(t, session.Recording{}, rec)
}

func TestRecorderStopReturnsRecording(t *testing.T) {
	capture := newFakeCapture([]byte{1, 0, 2, 0, 3, 0})
	recorder := newFakeRecorder(t, capture)

	require.NoError(t, recorder.Start(context.Background()))
	capture.frames <- []byte{1, 0}

	rec, err := recorder.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte{1, 0, 2, 0, 3, 0}, rec.PCM)
	require.Equal(t, "Studio Mic (mic-1)", rec.AudioDevice)
	require.Equal(t, int64(6), rec.BytesCaptured)
	require.Equal(t, 1500*time.Millisecond, rec.Duration)
	require.Equal(t, 0.25, rec.PeakEnergy)
	require.True(t, capture.stopped())
	require.False(t, recorder.started)

	_, err = recorder.Stop(context.Background())
	require.ErrorIs(t, err, session.ErrPipelineUnavailable)
}

func TestRecorderCancelStopsCapture(t *testing.T) {
	capture := newFakeCapture(nil)
	recorder := newFakeRecorder(t, capture)

	require.NoError(t, recorder.Start(context.Background()))
	require.NoError(t, recorder.Cancel(context.Background()))
	require.True(t, capture.stopped())
	require.False(t, recorder.started)

	require.NoError(t, NewRecorder(config.Default(), nil).Cancel(context.Background()))
}

func newFakeRecorder(t *testing.T, capture *fakeCapture) *Recorder {
	t.Helper()

	recorder := NewRecorder(config.Default(), nil)
	recorder.selectDevice = func(context.Context, string, string) (audio.Selection, error) {
		return audio.Selection{Device: audio.Device{ID: "mic-1", Description: "Studio Mic"}}, nil
	}
	recorder.startCapture = func(context.Context, audio.Device) (captureClient, error) {
		return capture, nil
	}

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	calls := 0
	recorder.now = func() time.Time {
		calls++
		if calls == 1 {
			return base
		}
		return base.Add(1500 * time.Millisecond)
	}
	return recorder
}

type fakeCapture struct {
	frames chan []byte
	raw    []byte

	mu        sync.Mutex
	stopCalls int
}

func newFakeCapture(raw []byte) *fakeCapture {
	return &fakeCapture{frames: make(chan []byte), raw: raw}
}

func (f *fakeCapture) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopCalls == 0 {
		close(f.frames)
	}
	f.stopCalls++
	return nil
}

func (f *fakeCapture) stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls > 0
}

func (f *fakeCapture) Frames() <-chan []byte { return f.frames }

func (f *fakeCapture) PeakEnergy() float64 { return 0.25 }

func (f *fakeCapture) BytesCaptured() int64 { return int64(len(f.raw)) }

func (f *fakeCapture) RawPCM() []byte {
	out := make([]byte, len(f.raw))
	copy(out, f.raw)
	return out
}
