package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/parley/parley/internal/metrics"
)

func TestMetrics_Exposition(t *testing.T) {
	recorder := metrics.NewInMemory()
	recorder.IncCompletion("success")
	recorder.IncCompletion("success")
	recorder.IncCompletion("error")
	recorder.ObserveCompletionDuration(250 * time.Millisecond)
	recorder.IncChatCreated()
	recorder.IncTurnPersisted("user")
	recorder.IncTurnPersisted("assistant")
	recorder.IncUsageEventPublished("success")

	h := NewMetricsHandler(recorder)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.Metrics(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type: got %q", ct)
	}

	body := rec.Body.String()
	for _, want := range []string{
		`parley_completions_total{status="success"} 2`,
		`parley_completions_total{status="error"} 1`,
		`parley_chats_created_total 1`,
		`parley_turns_persisted_total{role="user"} 1`,
		`parley_turns_persisted_total{role="assistant"} 1`,
		`parley_usage_events_total{stage="published"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q\n%s", want, body)
		}
	}
}
