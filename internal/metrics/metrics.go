// Package metrics exposes the monitor state to Prometheus
package metrics

import (
	"github.com/abelzeko/awlr-monitor/internal/entities"
	"github.com/abelzeko/awlr-monitor/internal/monitoring"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the monitor collectors
type Recorder struct {
	WaterLevel     prometheus.Gauge
	Status         prometheus.Gauge
	Thresholds     *prometheus.GaugeVec
	Readings       *prometheus.CounterVec
	ThresholdEdits *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them with reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		WaterLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "awlr_water_level_meters",
			Help: "Most recent simulated water level in meters",
		}),
		Status: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "awlr_status",
			Help: "Status of the most recent reading (0 safe, 1 warning, 2 danger)",
		}),
		Thresholds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "awlr_threshold_meters",
				Help: "Active alert thresholds in meters",
			},
			[]string{"kind"},
		),
		Readings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "awlr_readings_total",
				Help: "Total number of generated readings by status",
			},
			[]string{"status"},
		),
		ThresholdEdits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "awlr_threshold_updates_total",
				Help: "Threshold update attempts by result",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(r.WaterLevel, r.Status, r.Thresholds, r.Readings, r.ThresholdEdits)
	return r
}

// Observe updates the collectors from a monitor snapshot
func (r *Recorder) Observe(snap monitoring.Snapshot) {
	current := snap.Current()
	r.WaterLevel.Set(current.Level)
	r.Status.Set(float64(current.Status))
	r.setThresholds(snap.Thresholds)

	switch snap.Event {
	case monitoring.EventTick:
		r.Readings.WithLabelValues(current.Status.String()).Inc()
	case monitoring.EventThresholds:
		r.ThresholdEdits.WithLabelValues("applied").Inc()
	}
}

// ObserveRejection counts a threshold update that failed validation
func (r *Recorder) ObserveRejection() {
	r.ThresholdEdits.WithLabelValues("rejected").Inc()
}

func (r *Recorder) setThresholds(t entities.ThresholdConfig) {
	r.Thresholds.WithLabelValues("warning").Set(t.Warning)
	r.Thresholds.WithLabelValues("danger").Set(t.Danger)
	r.Thresholds.WithLabelValues("max").Set(t.Max)
}
