package indicator

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/config"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueComplete
	cueCancel
)

// Built-in cues are rendered at the capture rate.
const (
	cueSampleRate = audio.SampleRate
	cueGap        = 22 * time.Millisecond
	cueRamp       = 5 * time.Millisecond
	cueVolume     = 0.18
)

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

// cue pairs a built-in tone sequence with the config field that overrides it.
type cue struct {
	tones []toneSpec
	file  func(config.IndicatorConfig) string
}

var cues = map[cueKind]cue{
	cueStart: {
		tones: []toneSpec{{880, 70 * time.Millisecond, cueVolume}, {1175, 70 * time.Millisecond, cueVolume}},
		file:  func(cfg config.IndicatorConfig) string { return cfg.SoundStartFile },
	},
	cueStop: {
		tones: []toneSpec{{620, 120 * time.Millisecond, cueVolume}},
		file:  func(cfg config.IndicatorConfig) string { return cfg.SoundStopFile },
	},
	cueComplete: {
		tones: []toneSpec{{740, 65 * time.Millisecond, cueVolume}, {988, 90 * time.Millisecond, cueVolume}},
		file:  func(cfg config.IndicatorConfig) string { return cfg.SoundCompleteFile },
	},
	cueCancel: {
		tones: []toneSpec{{480, 75 * time.Millisecond, cueVolume}, {360, 90 * time.Millisecond, cueVolume}},
		file:  func(cfg config.IndicatorConfig) string { return cfg.SoundCancelFile },
	},
}

var builtinCues = func() map[cueKind][]int16 {
	out := make(map[cueKind][]int16, len(cues))
	for kind, c := range cues {
		out[kind] = synthesizeCue(c.tones)
	}
	return out
}()

// emitCue plays the configured cue file for kind. A missing or undecodable
// file falls back to the built-in tone, and the file error is returned once
// the tone has played so it reaches the debug log.
func emitCue(ctx context.Context, kind cueKind, cfg config.IndicatorConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var fileErr error
	if path := cuePath(kind, cfg); path != "" {
		pcm, err := loadCueFile(path)
		if err == nil {
			return audio.Play(ctx, pcm.Samples, pcm.SampleRate, "murmur indicator cue")
		}
		fileErr = fmt.Errorf("%w; played built-in cue", err)
	}

	if err := audio.Play(ctx, cueSamples(kind), cueSampleRate, "murmur indicator cue"); err != nil {
		return err
	}
	return fileErr
}

// cuePath returns the configured override for kind. config.Load has already
// anchored relative and ~/ paths.
func cuePath(kind cueKind, cfg config.IndicatorConfig) string {
	c, ok := cues[kind]
	if !ok {
		return ""
	}
	return strings.TrimSpace(c.file(cfg))
}

// loadCueFile decodes a WAV cue into mono samples.
func loadCueFile(path string) (audio.PCM, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("read cue file %q: %w", path, err)
	}
	pcm, err := audio.DecodeWAV(raw)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("cue file %q: %w", path, err)
	}
	if len(pcm.Samples) == 0 {
		return audio.PCM{}, fmt.Errorf("cue file %q has no samples", path)
	}
	return pcm, nil
}

func cueSamples(kind cueKind) []int16 {
	return builtinCues[kind]
}

// synthesizeCue joins tones with a short silence between them.
func synthesizeCue(tones []toneSpec) []int16 {
	var pcm []int16
	gap := make([]int16, samplesForDuration(cueGap))
	for i, tone := range tones {
		if i > 0 {
			pcm = append(pcm, gap...)
		}
		pcm = append(pcm, synthesizeTone(tone)...)
	}
	return pcm
}

// synthesizeTone renders a sine with a linear attack and release of at most
// cueRamp so the cue does not click.
func synthesizeTone(spec toneSpec) []int16 {
	n := samplesForDuration(spec.duration)
	if n <= 0 || spec.frequencyHz <= 0 || spec.volume <= 0 {
		return nil
	}
	ramp := max(min(n/10, samplesForDuration(cueRamp)), 1)

	pcm := make([]int16, n)
	step := 2 * math.Pi * spec.frequencyHz / cueSampleRate
	for i := range n {
		edge := min(i, n-1-i)
		envelope := min(float64(edge)/float64(ramp), 1)
		pcm[i] = int16(math.Round(math.Sin(step*float64(i)) * spec.volume * envelope * math.MaxInt16))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
