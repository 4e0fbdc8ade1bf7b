package main

import (
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	t.Parallel()

	latencies := []float64{5, 1, 3, 2, 4}
	summary := summarize(latencies)

	if summary.Min != 1 || summary.Max != 5 {
		t.Fatalf("unexpected min/max: %+v", summary)
	}
	if summary.Avg != 3 {
		t.Fatalf("unexpected avg: %f", summary.Avg)
	}
	if summary.P50 != 3 {
		t.Fatalf("unexpected p50: %f", summary.P50)
	}
	if summary.P99 != 5 {
		t.Fatalf("unexpected p99: %f", summary.P99)
	}
}

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()

	if got := summarize(nil); got != (latencySummary{}) {
		t.Fatalf("expected zero summary, got %+v", got)
	}
}

func TestRoutePattern(t *testing.T) {
	t.Parallel()

	got := routePattern("/payments/9f2c7e9a-0d9f-43a1-b3a2-5f0c9f6d8e71/refund")
	if got != "/payments/{id}/refund" {
		t.Fatalf("unexpected pattern: %s", got)
	}

	if got := routePattern("/branches"); got != "/branches" {
		t.Fatalf("short segments must be kept: %s", got)
	}
}

func TestCollectorRecord(t *testing.T) {
	t.Parallel()

	c := newCollector()
	c.record("POST /orders", 10*time.Millisecond, 201, true)
	c.record("POST /orders", 20*time.Millisecond, 500, false)

	report := c.buildReport()
	stats, ok := report["POST /orders"]
	if !ok {
		t.Fatal("endpoint missing from report")
	}
	if stats.Calls != 2 || stats.Success != 1 || stats.Failed != 1 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
	if stats.ErrorRate != 0.5 {
		t.Fatalf("unexpected error rate: %f", stats.ErrorRate)
	}
	if stats.Statuses["201"] != 1 || stats.Statuses["500"] != 1 {
		t.Fatalf("unexpected statuses: %v", stats.Statuses)
	}
}
