package audio

import (
	"encoding/binary"
	"time"
)

// Capture format shared by the recorder, the segmenter and the STT upload.
const (
	SampleRate     = 16000
	BytesPerSample = 2
	FrameDuration  = 20 * time.Millisecond
	FrameSamples   = SampleRate / 50
	FrameBytes     = FrameSamples * BytesPerSample
)

// FrameEnergy is the sum of squared normalized samples in one s16le frame.
// A trailing odd byte is ignored.
func FrameEnergy(frame []byte) float64 {
	energy := 0.0
	for i := 0; i+BytesPerSample <= len(frame); i += BytesPerSample {
		s := float64(int16(binary.LittleEndian.Uint16(frame[i:]))) / 32768.0
		energy += s * s
	}
	return energy
}
