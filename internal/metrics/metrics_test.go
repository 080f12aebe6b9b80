package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_IndependentInstances(t *testing.T) {
	// Two instances must not collide on registration.
	a := New()
	b := New()

	a.DocumentsIndexed.Add(3)
	b.DocumentsIndexed.Add(7)

	if got := testutil.ToFloat64(a.DocumentsIndexed); got != 3 {
		t.Errorf("expected 3 indexed on first instance, got %v", got)
	}
	if got := testutil.ToFloat64(b.DocumentsIndexed); got != 7 {
		t.Errorf("expected 7 indexed on second instance, got %v", got)
	}
}

func TestMetrics_Labels(t *testing.T) {
	m := New()

	m.EventsTotal.WithLabelValues("report").Inc()
	m.EventsTotal.WithLabelValues("payload").Add(4)
	m.BatchesTotal.WithLabelValues("http").Inc()
	m.RejectsTotal.WithLabelValues("decode").Inc()

	if got := testutil.ToFloat64(m.EventsTotal.WithLabelValues("payload")); got != 4 {
		t.Errorf("expected 4 payload events, got %v", got)
	}
	if got := testutil.ToFloat64(m.EventsTotal.WithLabelValues("report")); got != 1 {
		t.Errorf("expected 1 report event, got %v", got)
	}
}

func TestMetrics_RegistryGathers(t *testing.T) {
	m := New()
	m.ControlTotal.Inc()

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	found := false
	for _, mf := range families {
		if mf.GetName() == "log_indexer_ingest_control_messages_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected control counter in gathered families")
	}
}
