package entities

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidThresholds is returned when a threshold configuration violates
// warning < danger < max.
var ErrInvalidThresholds = errors.New("invalid thresholds")

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ThresholdConfig holds the level boundaries used to classify readings, in meters
type ThresholdConfig struct {
	Warning float64 `json:"warning" yaml:"warning" validate:"gt=0"`
	Danger  float64 `json:"danger" yaml:"danger" validate:"gtfield=Warning"`
	Max     float64 `json:"max" yaml:"max" validate:"gtfield=Danger"`
}

// DefaultThresholds returns the configuration a monitor starts with
func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{Warning: 1.5, Danger: 2.5, Max: 4.0}
}

// Validate reports whether the configuration is strictly ordered.
// The returned error wraps ErrInvalidThresholds.
func (t ThresholdConfig) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidThresholds, describeValidation(err))
	}
	return nil
}

// describeValidation turns validator output into a message a dashboard can show
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}

	switch verrs[0].Field() {
	case "Warning":
		return "warning must be greater than 0"
	case "Danger":
		return "danger must be greater than warning"
	case "Max":
		return "max must be greater than danger"
	default:
		return verrs[0].Error()
	}
}
