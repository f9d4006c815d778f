package metrics

import (
	"testing"

	"github.com/abelzeko/awlr-monitor/internal/entities"
	"github.com/abelzeko/awlr-monitor/internal/monitoring"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.Observe(monitoring.Snapshot{
		Event: monitoring.EventTick,
		Readings: []entities.Reading{
			{ID: 0, Level: 0.8, Status: entities.StatusSafe},
			{ID: 1, Level: 2.6, Status: entities.StatusDanger},
		},
		Thresholds: entities.DefaultThresholds(),
	})

	if got := testutil.ToFloat64(r.WaterLevel); got != 2.6 {
		t.Errorf("expected level 2.6, got %v", got)
	}
	if got := testutil.ToFloat64(r.Status); got != 2 {
		t.Errorf("expected danger status 2, got %v", got)
	}
	if got := testutil.ToFloat64(r.Readings.WithLabelValues("danger")); got != 1 {
		t.Errorf("expected one danger reading, got %v", got)
	}
	if got := testutil.ToFloat64(r.Thresholds.WithLabelValues("max")); got != 4 {
		t.Errorf("expected max threshold 4, got %v", got)
	}

	r.Observe(monitoring.Snapshot{
		Event:      monitoring.EventThresholds,
		Readings:   []entities.Reading{{ID: 1, Level: 2.6, Status: entities.StatusDanger}},
		Thresholds: entities.ThresholdConfig{Warning: 1, Danger: 2, Max: 3},
	})
	r.ObserveRejection()

	if got := testutil.ToFloat64(r.ThresholdEdits.WithLabelValues("applied")); got != 1 {
		t.Errorf("expected one applied update, got %v", got)
	}
	if got := testutil.ToFloat64(r.ThresholdEdits.WithLabelValues("rejected")); got != 1 {
		t.Errorf("expected one rejected update, got %v", got)
	}
	if got := testutil.ToFloat64(r.Readings.WithLabelValues("danger")); got != 1 {
		t.Errorf("threshold snapshots must not count as readings, got %v", got)
	}
	if got := testutil.ToFloat64(r.Thresholds.WithLabelValues("warning")); got != 1 {
		t.Errorf("expected warning threshold 1, got %v", got)
	}
}
