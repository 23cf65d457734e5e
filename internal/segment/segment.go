// Package segment splits recorded PCM into voiced regions for parallel
// transcription.
package segment

import (
	"time"

	"github.com/rbright/murmur/internal/audio"
)

// Frames line up with the ones audio.Capture delivers.
const (
	sampleRate     = audio.SampleRate
	bytesPerSample = audio.BytesPerSample
	frameDuration  = audio.FrameDuration
	frameSamples   = audio.FrameSamples
)

// Config tunes silence detection.
type Config struct {
	SilenceThreshold float64
	MinSegment       time.Duration
	Chunk            time.Duration
}

// DefaultConfig matches 16 kHz speech captured at normal gain.
func DefaultConfig() Config {
	return Config{
		SilenceThreshold: 0.01,
		MinSegment:       500 * time.Millisecond,
		Chunk:            5 * time.Second,
	}
}

// Split returns voiced regions of 16 kHz mono s16le pcm, in order.
//
// A 20 ms frame is silent when the sum of its squared normalized samples is
// below the threshold. Voiced runs shorter than MinSegment are dropped. When
// at most one region survives, the whole recording is cut into fixed Chunk
// pieces instead.
func Split(pcm []byte, cfg Config) [][]byte {
	cfg = withDefaults(cfg)
	samples := len(pcm) / bytesPerSample
	if samples == 0 {
		return nil
	}

	frames := (samples + frameSamples - 1) / frameSamples
	silent := make([]bool, frames)
	for f := 0; f < frames; f++ {
		silent[f] = frameEnergy(pcm, f) < cfg.SilenceThreshold
	}

	minFrames := int(cfg.MinSegment / frameDuration)
	var regions [][2]int
	start := -1
	for f, quiet := range silent {
		switch {
		case !quiet && start < 0:
			start = f
		case quiet && start >= 0:
			if f-start >= minFrames {
				regions = append(regions, [2]int{start, f})
			}
			start = -1
		}
	}
	if start >= 0 && frames-start >= minFrames {
		regions = append(regions, [2]int{start, frames})
	}

	if len(regions) <= 1 {
		return chunk(pcm[:samples*bytesPerSample], cfg.Chunk)
	}

	out := make([][]byte, 0, len(regions))
	for _, r := range regions {
		from := r[0] * frameSamples * bytesPerSample
		to := r[1] * frameSamples * bytesPerSample
		if to > samples*bytesPerSample {
			to = samples * bytesPerSample
		}
		out = append(out, pcm[from:to])
	}
	return out
}

func frameEnergy(pcm []byte, frame int) float64 {
	from := frame * audio.FrameBytes
	to := from + audio.FrameBytes
	if to > len(pcm) {
		to = len(pcm)
	}
	return audio.FrameEnergy(pcm[from:to])
}

func chunk(pcm []byte, size time.Duration) [][]byte {
	step := int(size.Seconds()*sampleRate) * bytesPerSample
	if step <= 0 {
		return [][]byte{pcm}
	}

	out := make([][]byte, 0, len(pcm)/step+1)
	for from := 0; from < len(pcm); from += step {
		to := from + step
		if to > len(pcm) {
			to = len(pcm)
		}
		out = append(out, pcm[from:to])
	}
	return out
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.SilenceThreshold <= 0 {
		cfg.SilenceThreshold = def.SilenceThreshold
	}
	if cfg.MinSegment <= 0 {
		cfg.MinSegment = def.MinSegment
	}
	if cfg.Chunk <= 0 {
		cfg.Chunk = def.Chunk
	}
	return cfg
}
