package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/ner"
	"github.com/rbright/murmur/internal/session"
	"github.com/stretchr/testify/require"
)

func TestObserveTurnAndAction(t *testing.T) {
	r := New(config.MetricsConfig{}, nil)

	r.ObserveTurn("pasted", 2*time.Second)
	r.ObserveTurn("pasted", time.Second)
	r.ObserveTurn("cancelled", 0)
	r.ObserveAction("llm", true)
	r.ObserveAction("llm", false)
	r.ObserveAction("speak", true)

	require.Equal(t, 2.0, testutil.ToFloat64(r.turns.WithLabelValues("pasted")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.turns.WithLabelValues("cancelled")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.actions.WithLabelValues("llm", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.actions.WithLabelValues("llm", "error")))
	require.Equal(t, 1, testutil.CollectAndCount(r.turnDuration))
}

func TestNilRecorderIsInert(t *testing.T) {
	var r *Recorder
	r.ObserveTurn("pasted", time.Second)
	r.ObserveAction("llm", true)
	r.ObserveBackend(BackendSTT, time.Second, nil)
	require.Nil(t, r.Registry())
	require.NoError(t, r.Push(context.Background()))

	speaker := stubSpeaker{}
	require.Equal(t, speaker, r.TimeSpeaker(speaker))
}

func TestWrappersRecordBackendLatency(t *testing.T) {
	r := New(config.MetricsConfig{}, nil)

	llm := r.TimeTransformer(stubTransformer{text: "hi"})
	text, err := llm.Transform(context.Background(), "prompt", "")
	require.NoError(t, err)
	require.Equal(t, "hi", text)

	extractor := r.TimeExtractor(stubExtractor{err: errors.New("down")})
	_, err = extractor.Extract(context.Background(), "text", "person", 0.5)
	require.Error(t, err)

	require.NoError(t, r.TimeSpeaker(stubSpeaker{}).Speak(context.Background(), "hallo", "de"))

	transcriber := r.TimeTranscriber(session.TranscribeFunc(func(context.Context, session.Recording, string) (string, error) {
		return "hello", nil
	}))
	text, err = transcriber.Transcribe(context.Background(), session.Recording{}, "en")
	require.NoError(t, err)
	require.Equal(t, "hello", text)

	require.Equal(t, 4, testutil.CollectAndCount(r.backend, "murmur_backend_request_seconds"))

	gathered, err := r.Registry().Gather()
	require.NoError(t, err)
	var series []string
	for _, family := range gathered {
		if family.GetName() != "murmur_backend_request_seconds" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			series = append(series, labels["backend"]+"/"+labels["result"])
		}
	}
	require.ElementsMatch(t, []string{"llm/ok", "ner/error", "tts/ok", "stt/ok"}, series)
}

func TestPushSendsToPushgateway(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		raw, _ := io.ReadAll(req.Body)
		mu.Lock()
		method, path, body = req.Method, req.URL.Path, string(raw)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	r := New(config.MetricsConfig{Enable: true, PushgatewayURL: server.URL, Job: "dictation"}, nil)
	r.ObserveTurn("pasted", time.Second)
	require.NoError(t, r.Push(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, http.MethodPost, method)
	require.Equal(t, "/metrics/job/dictation", path)
	require.NotEmpty(t, body)
}

func TestPushDisabledOrFailing(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	disabled := New(config.MetricsConfig{Enable: false, PushgatewayURL: server.URL}, nil)
	require.NoError(t, disabled.Push(context.Background()))
	require.Zero(t, calls)

	failing := New(config.MetricsConfig{Enable: true, PushgatewayURL: server.URL}, nil)
	err := failing.Push(context.Background())
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "push metrics to "))
	require.Equal(t, "murmur", failing.job)
}

type stubTransformer struct {
	text string
	err  error
}

func (s stubTransformer) Transform(context.Context, string, string) (string, error) {
	return s.text, s.err
}

type stubExtractor struct {
	err error
}

func (s stubExtractor) Extract(context.Context, string, string, float64) (ner.Result, error) {
	return ner.Result{}, s.err
}

type stubSpeaker struct{}

func (stubSpeaker) Speak(context.Context, string, string) error { return nil }
