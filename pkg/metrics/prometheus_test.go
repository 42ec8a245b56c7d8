package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCollector_RecordPipelineRun(t *testing.T) {
	m := NewMetricsCollector(nil)

	m.RecordPipelineRun(10*time.Millisecond, true)
	m.RecordPipelineRun(20*time.Millisecond, false)
	m.RecordPipelineRun(5*time.Millisecond, false)

	if got := testutil.ToFloat64(m.pipelineRuns.WithLabelValues(ResultSucceeded)); got != 1 {
		t.Errorf("expected 1 succeeded run, got %v", got)
	}
	if got := testutil.ToFloat64(m.pipelineRuns.WithLabelValues(ResultFailed)); got != 2 {
		t.Errorf("expected 2 failed runs, got %v", got)
	}
}

func TestMetricsCollector_InFlight(t *testing.T) {
	m := NewMetricsCollector(nil)

	m.PipelineStarted()
	m.PipelineStarted()
	m.PipelineFinished()

	if got := testutil.ToFloat64(m.pipelineInFlight); got != 1 {
		t.Errorf("expected 1 run in flight, got %v", got)
	}
}

func TestMetricsCollector_Handler(t *testing.T) {
	m := NewMetricsCollector(nil)
	m.RecordRequestCreated()
	m.RecordDecision("AUTO_APPROVE", "senior_citizen")
	m.SetRequestsByStatus("PENDING", 3)

	w := httptest.NewRecorder()
	m.GetHandler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(w.Result().Body)
	for _, want := range []string{
		"account_requests_created_total 1",
		`account_decisions_total{outcome="AUTO_APPROVE",rule="senior_citizen"} 1`,
		`account_requests_by_status{status="PENDING"} 3`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}

func TestMetricsCollector_Registry(t *testing.T) {
	m := NewMetricsCollector(nil)
	m.RecordDecision("AUTO_APPROVE", "senior_citizen")
	m.RecordDecision("AUTO_REJECT", "minimum_age")
	m.RecordDecision("AUTO_REJECT", "minimum_age")

	count, err := testutil.GatherAndCount(m.Registry(), "account_decisions_total")

	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 decision series, got %d", count)
	}
}
