// Package monitoring runs the live water-level simulation: it generates
// readings on a schedule, classifies them against thresholds and keeps a
// bounded history for the dashboard.
package monitoring

import "math"

const (
	// walkBias below 0.5 gives the walk a slow upward drift
	walkBias     = 0.48
	walkVariance = 0.12

	// levelMargin keeps simulated levels away from the bottom and the top of the gauge
	levelMargin = 0.05
)

// Rand is the source of uniform values in [0,1) used by the simulator.
// *rand.Rand from math/rand satisfies it.
type Rand interface {
	Float64() float64
}

// SimulateNext produces the level following previousLevel.
// The result is rounded to millimeters and always lies in
// [0.05, maxLevel-0.05], whatever previousLevel was.
func SimulateNext(previousLevel, maxLevel float64, rnd Rand) float64 {
	delta := (rnd.Float64() - walkBias) * walkVariance

	lo := levelMargin
	hi := maxLevel - levelMargin
	if hi < lo {
		hi = lo
	}

	level := clamp(previousLevel+delta, lo, hi)
	rounded := roundTo(level, 3)
	if rounded-hi > 1e-9 {
		rounded = math.Floor(hi*1000) / 1000
	}
	if rounded < lo {
		rounded = lo
	}
	return rounded
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
