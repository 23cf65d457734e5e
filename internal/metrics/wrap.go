package metrics

import (
	"context"
	"time"

	"github.com/rbright/murmur/internal/action"
	"github.com/rbright/murmur/internal/ner"
	"github.com/rbright/murmur/internal/session"
)

// Backend labels used by the wrappers below.
const (
	BackendSTT = "stt"
	BackendLLM = "llm"
	BackendNER = "ner"
	BackendTTS = "tts"
)

type timedTransformer struct {
	next action.Transformer
	r    *Recorder
}

// TimeTransformer records LLM latency around next.
func (r *Recorder) TimeTransformer(next action.Transformer) action.Transformer {
	if r == nil || next == nil {
		return next
	}
	return timedTransformer{next: next, r: r}
}

func (t timedTransformer) Transform(ctx context.Context, prompt string, model string) (string, error) {
	started := time.Now()
	text, err := t.next.Transform(ctx, prompt, model)
	t.r.ObserveBackend(BackendLLM, time.Since(started), err)
	return text, err
}

type timedExtractor struct {
	next action.Extractor
	r    *Recorder
}

// TimeExtractor records NER latency around next.
func (r *Recorder) TimeExtractor(next action.Extractor) action.Extractor {
	if r == nil || next == nil {
		return next
	}
	return timedExtractor{next: next, r: r}
}

func (t timedExtractor) Extract(ctx context.Context, text string, types string, threshold float64) (ner.Result, error) {
	started := time.Now()
	result, err := t.next.Extract(ctx, text, types, threshold)
	t.r.ObserveBackend(BackendNER, time.Since(started), err)
	return result, err
}

type timedSpeaker struct {
	next action.Speaker
	r    *Recorder
}

// TimeSpeaker records TTS latency around next.
func (r *Recorder) TimeSpeaker(next action.Speaker) action.Speaker {
	if r == nil || next == nil {
		return next
	}
	return timedSpeaker{next: next, r: r}
}

func (t timedSpeaker) Speak(ctx context.Context, text string, lang string) error {
	started := time.Now()
	err := t.next.Speak(ctx, text, lang)
	t.r.ObserveBackend(BackendTTS, time.Since(started), err)
	return err
}

// TimeTranscriber records whole-recording STT latency around next.
func (r *Recorder) TimeTranscriber(next session.Transcriber) session.Transcriber {
	if r == nil || next == nil {
		return next
	}
	return session.TranscribeFunc(func(ctx context.Context, rec session.Recording, language string) (string, error) {
		started := time.Now()
		text, err := next.Transcribe(ctx, rec, language)
		r.ObserveBackend(BackendSTT, time.Since(started), err)
		return text, err
	})
}
