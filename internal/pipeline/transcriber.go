package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/segment"
	"github.com/rbright/murmur/internal/session"
	"github.com/rbright/murmur/internal/transcript"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent segment uploads.
const DefaultWorkers = 12

// SegmentTranscriber transcribes one WAV-encoded segment.
type SegmentTranscriber interface {
	Transcribe(ctx context.Context, wav []byte, language string) (string, error)
}

// Transcriber splits a recording on silence, transcribes the segments in
// parallel, and joins the results in recording order.
type Transcriber struct {
	stt     SegmentTranscriber
	segment segment.Config
	workers int
	logger  *slog.Logger
}

// NewTranscriber builds a transcriber using cfg.Segment and cfg.STT.Workers.
func NewTranscriber(cfg config.Config, stt SegmentTranscriber, logger *slog.Logger) *Transcriber {
	workers := cfg.STT.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Transcriber{
		stt: stt,
		segment: segment.Config{
			SilenceThreshold: cfg.Segment.SilenceThreshold,
			MinSegment:       time.Duration(cfg.Segment.MinSegmentMS) * time.Millisecond,
			Chunk:            time.Duration(cfg.Segment.ChunkMS) * time.Millisecond,
		},
		workers: workers,
		logger:  logger,
	}
}

// Transcribe returns the assembled transcript for rec. A failed segment fails
// the whole recording. When any segment comes back empty the recording is
// transcribed once more as a single upload.
func (t *Transcriber) Transcribe(ctx context.Context, rec session.Recording, language string) (string, error) {
	if t.stt == nil {
		return "", session.ErrPipelineUnavailable
	}
	if len(rec.PCM) == 0 {
		return "", nil
	}

	segments := segment.Split(rec.PCM, t.segment)
	if len(segments) == 0 {
		return "", nil
	}

	started := time.Now()
	texts, err := t.fanOut(ctx, segments, language)
	if err != nil {
		return "", err
	}

	if len(segments) > 1 && hasEmpty(texts) {
		t.logInfo("segment returned no text; transcribing whole recording", "segments", len(segments))
		whole, err := t.transcribeSegment(ctx, rec.PCM, language)
		if err != nil {
			return "", fmt.Errorf("transcribe whole recording: %w", err)
		}
		texts = []string{whole}
	}

	text := transcript.Assemble(texts)
	t.logInfo("transcription complete",
		"segments", len(segments),
		"language", language,
		"elapsed_ms", time.Since(started).Milliseconds(),
		"chars", len(text),
	)
	return text, nil
}

func (t *Transcriber) fanOut(ctx context.Context, segments [][]byte, language string) ([]string, error) {
	results := make([]string, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for i, seg := range segments {
		g.Go(func() error {
			text, err := t.transcribeSegment(gctx, seg, language)
			if err != nil {
				return fmt.Errorf("transcribe segment %d/%d: %w", i+1, len(segments), err)
			}
			results[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (t *Transcriber) transcribeSegment(ctx context.Context, pcm []byte, language string) (string, error) {
	wav, err := audio.EncodeWAV(pcm, audio.SampleRate)
	if err != nil {
		return "", err
	}
	text, err := t.stt.Transcribe(ctx, wav, language)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func hasEmpty(texts []string) bool {
	for _, text := range texts {
		if text == "" {
			return true
		}
	}
	return false
}

func (t *Transcriber) logInfo(msg string, args ...any) {
	if t.logger == nil {
		return
	}
	t.logger.Info(msg, args...)
}
