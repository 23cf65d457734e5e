package segment

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// tone appends d of constant-amplitude audio; amplitude 0 is silence.
func tone(pcm []byte, d time.Duration, amplitude int16) []byte {
	n := int(d.Seconds() * sampleRate)
	for i := 0; i < n; i++ {
		v := amplitude
		if i%2 == 1 {
			v = -amplitude
		}
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(v))
	}
	return pcm
}

func TestSplitFindsVoicedRegions(t *testing.T) {
	var pcm []byte
	pcm = tone(pcm, 200*time.Millisecond, 0)
	pcm = tone(pcm, 600*time.Millisecond, 8000)
	pcm = tone(pcm, 300*time.Millisecond, 0)
	pcm = tone(pcm, 100*time.Millisecond, 8000) // too short
	pcm = tone(pcm, 300*time.Millisecond, 0)
	pcm = tone(pcm, 800*time.Millisecond, 8000)

	segments := Split(pcm, DefaultConfig())
	require.Len(t, segments, 2)
	require.Len(t, segments[0], int(0.6*sampleRate)*bytesPerSample)
	require.Len(t, segments[1], int(0.8*sampleRate)*bytesPerSample)
}

func TestSplitFallsBackToChunks(t *testing.T) {
	var pcm []byte
	pcm = tone(pcm, 12*time.Second, 8000)

	segments := Split(pcm, DefaultConfig())
	require.Len(t, segments, 3)
	require.Len(t, segments[0], 5*sampleRate*bytesPerSample)
	require.Len(t, segments[2], 2*sampleRate*bytesPerSample)
}

func TestSplitSilenceOnlyFallsBackToChunks(t *testing.T) {
	pcm := tone(nil, time.Second, 0)
	segments := Split(pcm, Config{Chunk: 400 * time.Millisecond})
	require.Len(t, segments, 3)
}

func TestSplitEmpty(t *testing.T) {
	require.Nil(t, Split(nil, DefaultConfig()))
	require.Nil(t, Split([]byte{1}, DefaultConfig()))
}

func TestFrameEnergyThreshold(t *testing.T) {
	quiet := tone(nil, frameDuration, 100)
	loud := tone(nil, frameDuration, 2000)
	require.Less(t, frameEnergy(quiet, 0), 0.01)
	require.Greater(t, frameEnergy(loud, 0), 0.01)
}
