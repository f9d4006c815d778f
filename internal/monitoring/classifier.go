package monitoring

import "github.com/abelzeko/awlr-monitor/internal/entities"

// Classify maps a level to a status. A level equal to a threshold counts as
// having crossed it, and danger is checked before warning.
func Classify(level float64, thresholds entities.ThresholdConfig) entities.Status {
	switch {
	case level >= thresholds.Danger:
		return entities.StatusDanger
	case level >= thresholds.Warning:
		return entities.StatusWarning
	default:
		return entities.StatusSafe
	}
}
