package transport

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/rhuss/promptgate/pkg/backend"
)

// writeRecorder is an httptest.ResponseRecorder that records the size of
// every Write and counts flushes. failAt makes the write with that index
// fail (-1 never fails).
type writeRecorder struct {
	*httptest.ResponseRecorder
	writes  []int
	flushes int
	failAt  int
}

func newWriteRecorder() *writeRecorder {
	return &writeRecorder{ResponseRecorder: httptest.NewRecorder(), failAt: -1}
}

func (w *writeRecorder) Write(p []byte) (int, error) {
	if len(w.writes) == w.failAt {
		return 0, errors.New("connection reset by peer")
	}
	w.writes = append(w.writes, len(p))
	return w.ResponseRecorder.Write(p)
}

func (w *writeRecorder) Flush() {
	w.flushes++
	w.ResponseRecorder.Flush()
}

// stubBackend records prompts and answers with fixed text or chunks.
type stubBackend struct {
	answer string
	chunks []string
	err    error

	mu      sync.Mutex
	prompts []string
}

var _ backend.Backend = (*stubBackend)(nil)

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) record(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
}

func (s *stubBackend) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

func (s *stubBackend) Generate(_ context.Context, prompt string) (string, error) {
	s.record(prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func (s *stubBackend) GenerateStream(_ context.Context, prompt string, sink backend.Sink) error {
	s.record(prompt)
	for _, c := range s.chunks {
		if _, err := sink.Write([]byte(c)); err != nil {
			return err
		}
		if err := sink.Flush(); err != nil {
			return err
		}
	}
	return s.err
}

func (s *stubBackend) Close() error { return nil }

// counterValue reads the current value of a CounterVec for the given labels.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := cv.WithLabelValues(labels...).Write(m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}
