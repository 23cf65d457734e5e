package indicator

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/config"
	"github.com/stretchr/testify/require"
)

func TestCueSamplesPresent(t *testing.T) {
	require.NotEmpty(t, cueSamples(cueStart))
	require.NotEmpty(t, cueSamples(cueStop))
	require.NotEmpty(t, cueSamples(cueComplete))
	require.NotEmpty(t, cueSamples(cueCancel))
}

func TestSynthesizeToneDuration(t *testing.T) {
	got := synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0.2})
	want := samplesForDuration(100 * time.Millisecond)
	require.Len(t, got, want)
}

func TestSynthesizeToneInvalidSpecReturnsEmpty(t *testing.T) {
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 0, duration: 100 * time.Millisecond, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 0, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0}))
}

func TestSamplesForDuration(t *testing.T) {
	require.Equal(t, 0, samplesForDuration(0))
	require.Greater(t, samplesForDuration(25*time.Millisecond), 0)
}

func TestEmitCueRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := emitCue(ctx, cueStart, config.IndicatorConfig{})
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestCuePathSelectsConfiguredFile(t *testing.T) {
	cfg := config.IndicatorConfig{SoundStopFile: "/home/me/cues/stop.wav", SoundCancelFile: " /tmp/cancel.wav "}
	require.Equal(t, "/home/me/cues/stop.wav", cuePath(cueStop, cfg))
	require.Equal(t, "/tmp/cancel.wav", cuePath(cueCancel, cfg))
	require.Empty(t, cuePath(cueStart, cfg))
	require.Empty(t, cuePath(cueKind(99), cfg))
}

func TestSynthesizeToneRampsEdges(t *testing.T) {
	got := synthesizeTone(toneSpec{frequencyHz: 440, duration: 50 * time.Millisecond, volume: 0.5})
	require.Zero(t, got[0])
	require.Zero(t, got[len(got)-1])

	var peak int16
	for _, sample := range got {
		peak = max(peak, sample)
	}
	require.InDelta(t, 0.5*32767, float64(peak), 400)
}

func TestSynthesizeCueInsertsGaps(t *testing.T) {
	tone := toneSpec{frequencyHz: 880, duration: 70 * time.Millisecond, volume: cueVolume}
	got := synthesizeCue([]toneSpec{tone, tone})
	require.Len(t, got, 2*samplesForDuration(tone.duration)+samplesForDuration(cueGap))
	require.Empty(t, synthesizeCue(nil))
}

func TestLoadCueFileDecodesWAV(t *testing.T) {
	pcm := make([]byte, 0, len(cueSamples(cueStop))*2)
	for _, sample := range cueSamples(cueStop) {
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(sample))
	}
	raw, err := audio.EncodeWAV(pcm, 22050)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "stop.wav")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	got, err := loadCueFile(path)
	require.NoError(t, err)
	require.Equal(t, 22050, got.SampleRate)
	require.Equal(t, cueSamples(cueStop), got.Samples)
}

func TestLoadCueFileRejectsMissingAndInvalid(t *testing.T) {
	_, err := loadCueFile(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav"), 0o644))
	_, err = loadCueFile(path)
	require.Error(t, err)
}
