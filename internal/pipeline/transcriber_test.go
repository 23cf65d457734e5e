package pipeline

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/session"
	"github.com/stretchr/testify/require"
)

// tone appends d of constant-amplitude 16 kHz audio; amplitude 0 is silence.
func tone(pcm []byte, d time.Duration, amplitude int16) []byte {
	n := int(d.Seconds() * audio.SampleRate)
	for i := 0; i < n; i++ {
		v := amplitude
		if i%2 == 1 {
			v = -amplitude
		}
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(v))
	}
	return pcm
}

// twoPhrases yields a 600 ms and an 800 ms voiced region split by silence.
func twoPhrases() []byte {
	var pcm []byte
	pcm = tone(pcm, 200*time.Millisecond, 0)
	pcm = tone(pcm, 600*time.Millisecond, 8000)
	pcm = tone(pcm, 400*time.Millisecond, 0)
	pcm = tone(pcm, 800*time.Millisecond, 8000)
	return pcm
}

const (
	firstSamples  = 9600
	secondSamples = 12800
	wholeSamples  = 32000
)

// fakeSTT answers by segment length so tests can tell segments apart.
type fakeSTT struct {
	texts  map[int]string
	errs   map[int]error
	delays map[int]time.Duration

	calls     atomic.Int32
	inflight  atomic.Int32
	maxFlight atomic.Int32

	mu        sync.Mutex
	languages []string
}

func (f *fakeSTT) Transcribe(ctx context.Context, wav []byte, language string) (string, error) {
	f.calls.Add(1)
	current := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		peak := f.maxFlight.Load()
		if current <= peak || f.maxFlight.CompareAndSwap(peak, current) {
			break
		}
	}

	f.mu.Lock()
	f.languages = append(f.languages, language)
	f.mu.Unlock()

	pcm, err := audio.DecodeWAV(wav)
	if err != nil {
		return "", err
	}
	n := len(pcm.Samples)
	if d := f.delays[n]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := f.errs[n]; err != nil {
		return "", err
	}
	return f.texts[n], nil
}

func TestTranscribePreservesSegmentOrder(t *testing.T) {
	stt := &fakeSTT{
		texts:  map[int]string{firstSamples: " Hello ", secondSamples: "world."},
		delays: map[int]time.Duration{firstSamples: 50 * time.Millisecond},
	}
	transcriber := NewTranscriber(config.Default(), stt, nil)

	text, err := transcriber.Transcribe(context.Background(), session.Recording{PCM: twoPhrases()}, "de-CH")
	require.NoError(t, err)
	require.Equal(t, "Hello world.", text)
	require.Equal(t, int32(2), stt.calls.Load())
	require.Equal(t, []string{"de-CH", "de-CH"}, stt.languages)
}

func TestTranscribeEmptySegmentFallsBackToWholeRecording(t *testing.T) {
	stt := &fakeSTT{
		texts: map[int]string{firstSamples: "", secondSamples: "world", wholeSamples: "hello world"},
	}
	transcriber := NewTranscriber(config.Default(), stt, nil)

	text, err := transcriber.Transcribe(context.Background(), session.Recording{PCM: twoPhrases()}, "en")
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
	require.Equal(t, int32(3), stt.calls.Load())
}

func TestTranscribeSegmentErrorFailsRecording(t *testing.T) {
	stt := &fakeSTT{
		texts: map[int]string{firstSamples: "hello"},
		errs:  map[int]error{secondSamples: errors.New("server overloaded")},
	}
	transcriber := NewTranscriber(config.Default(), stt, nil)

	_, err := transcriber.Transcribe(context.Background(), session.Recording{PCM: twoPhrases()}, "en")
	require.Error(t, err)
	require.Contains(t, err.Error(), "transcribe segment 2/2")
	require.Contains(t, err.Error(), "server overloaded")
}

func TestTranscribeFallbackErrorIsWrapped(t *testing.T) {
	stt := &fakeSTT{
		texts: map[int]string{secondSamples: "world"},
		errs:  map[int]error{wholeSamples: errors.New("timeout")},
	}
	transcriber := NewTranscriber(config.Default(), stt, nil)

	_, err := transcriber.Transcribe(context.Background(), session.Recording{PCM: twoPhrases()}, "en")
	require.ErrorContains(t, err, "transcribe whole recording")
}

func TestTranscribeRespectsWorkerLimit(t *testing.T) {
	cfg := config.Default()
	cfg.STT.Workers = 1
	stt := &fakeSTT{
		texts:  map[int]string{firstSamples: "a", secondSamples: "b"},
		delays: map[int]time.Duration{firstSamples: 20 * time.Millisecond, secondSamples: 20 * time.Millisecond},
	}

	text, err := NewTranscriber(cfg, stt, nil).Transcribe(context.Background(), session.Recording{PCM: twoPhrases()}, "en")
	require.NoError(t, err)
	require.Equal(t, "a b", text)
	require.Equal(t, int32(1), stt.maxFlight.Load())
}

func TestTranscribeEmptyRecording(t *testing.T) {
	stt := &fakeSTT{}
	text, err := NewTranscriber(config.Default(), stt, nil).Transcribe(context.Background(), session.Recording{}, "en")
	require.NoError(t, err)
	require.Empty(t, text)
	require.Zero(t, stt.calls.Load())
}

func TestTranscribeWithoutClientIsUnavailable(t *testing.T) {
	_, err := NewTranscriber(config.Default(), nil, nil).Transcribe(context.Background(), session.Recording{PCM: twoPhrases()}, "en")
	require.ErrorIs(t, err, session.ErrPipelineUnavailable)
}

func TestNewTranscriberDefaultsWorkers(t *testing.T) {
	cfg := config.Default()
	cfg.STT.Workers = 0
	require.Equal(t, DefaultWorkers, NewTranscriber(cfg, &fakeSTT{}, nil).workers)
}
