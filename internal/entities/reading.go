// Package entities contains the core domain objects for the AWLR monitor
package entities

import (
	"fmt"
	"time"
)

// Status is the classification of a water level against the thresholds.
// Values are ordered by severity.
type Status int

const (
	StatusSafe Status = iota
	StatusWarning
	StatusDanger
)

// String returns the wire name of the status
func (s Status) String() string {
	switch s {
	case StatusSafe:
		return "safe"
	case StatusWarning:
		return "warning"
	case StatusDanger:
		return "danger"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ParseStatus converts a wire name back into a Status
func ParseStatus(name string) (Status, error) {
	switch name {
	case "safe":
		return StatusSafe, nil
	case "warning":
		return StatusWarning, nil
	case "danger":
		return StatusDanger, nil
	default:
		return StatusSafe, fmt.Errorf("unknown status %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler so statuses travel as strings
func (s Status) MarshalText() ([]byte, error) {
	switch s {
	case StatusSafe, StatusWarning, StatusDanger:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("cannot marshal %s", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Reading is one timestamped water-level sample with its derived status
type Reading struct {
	ID        uint64    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     float64   `json:"level"` // meters
	Status    Status    `json:"status"`
}

// FormattedLevel renders the level with millimeter precision
func (r Reading) FormattedLevel() string {
	return fmt.Sprintf("%.3f", r.Level)
}
