package monitoring

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/abelzeko/awlr-monitor/internal/entities"
)

const (
	// MinThresholdValue and MaxThresholdValue bound every field of the editor form
	MinThresholdValue = 0.1
	MaxThresholdValue = 99.0
	thresholdStep     = 0.1
)

// ErrEditorClosed is returned when a pending field is edited while the editor is closed
var ErrEditorClosed = errors.New("threshold editor is closed")

// ThresholdField names one of the editable thresholds
type ThresholdField int

const (
	FieldWarning ThresholdField = iota
	FieldDanger
	FieldMax
)

func (f ThresholdField) String() string {
	switch f {
	case FieldWarning:
		return "warning"
	case FieldDanger:
		return "danger"
	case FieldMax:
		return "max"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// ParseThresholdField resolves a form key to a field
func ParseThresholdField(key string) (ThresholdField, error) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "warning":
		return FieldWarning, nil
	case "danger":
		return FieldDanger, nil
	case "max":
		return FieldMax, nil
	default:
		return 0, fmt.Errorf("unknown threshold field %q", key)
	}
}

// EditorState is the state of the threshold editor
type EditorState int

const (
	EditorClosed EditorState = iota
	EditorOpen
)

func (s EditorState) String() string {
	if s == EditorOpen {
		return "open"
	}
	return "closed"
}

// ThresholdTarget is what the editor reads from and applies to
type ThresholdTarget interface {
	Thresholds() entities.ThresholdConfig
	SetThresholds(entities.ThresholdConfig) error
}

// ThresholdEditor edits a pending copy of the active thresholds. Changes
// reach the target only through a successful Apply.
type ThresholdEditor struct {
	target ThresholdTarget

	mu      sync.Mutex
	state   EditorState
	pending entities.ThresholdConfig
}

// NewThresholdEditor creates a closed editor for target
func NewThresholdEditor(target ThresholdTarget) *ThresholdEditor {
	return &ThresholdEditor{target: target}
}

// Open copies the active thresholds into the pending config
func (e *ThresholdEditor) Open() entities.ThresholdConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = e.target.Thresholds()
	e.state = EditorOpen
	return e.pending
}

// State returns whether the editor is open
func (e *ThresholdEditor) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Pending returns the config being edited
func (e *ThresholdEditor) Pending() entities.ThresholdConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// EditField stores a typed value. Unparsable input becomes the minimum and
// the result is clamped to [0.1, 99].
func (e *ThresholdEditor) EditField(field ThresholdField, raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) {
		value = MinThresholdValue
	}
	value = math.Max(MinThresholdValue, math.Min(MaxThresholdValue, value))

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EditorOpen {
		return 0, ErrEditorClosed
	}
	return value, e.setLocked(field, value)
}

// Increment raises a pending field by 0.1
func (e *ThresholdEditor) Increment(field ThresholdField) (float64, error) {
	return e.step(field, thresholdStep)
}

// Decrement lowers a pending field by 0.1, never below 0.1
func (e *ThresholdEditor) Decrement(field ThresholdField) (float64, error) {
	return e.step(field, -thresholdStep)
}

func (e *ThresholdEditor) step(field ThresholdField, delta float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EditorOpen {
		return 0, ErrEditorClosed
	}

	current, err := e.getLocked(field)
	if err != nil {
		return 0, err
	}
	// round to one decimal on every step so repeated steps do not drift
	value := roundTo(math.Max(MinThresholdValue, current+delta), 1)
	value = math.Min(MaxThresholdValue, value)
	return value, e.setLocked(field, value)
}

// CanApply reports whether the pending config is strictly ordered
func (e *ThresholdEditor) CanApply() bool {
	return e.Validate() == nil
}

// Validate checks the pending config and describes what is wrong with it
func (e *ThresholdEditor) Validate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EditorOpen {
		return ErrEditorClosed
	}
	return e.pending.Validate()
}

// Apply hands the pending config to the target and closes the editor. On a
// validation failure the editor stays open and the target is untouched.
func (e *ThresholdEditor) Apply() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EditorOpen {
		return ErrEditorClosed
	}
	if err := e.target.SetThresholds(e.pending); err != nil {
		return err
	}
	e.state = EditorClosed
	return nil
}

// Cancel discards the pending config
func (e *ThresholdEditor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = entities.ThresholdConfig{}
	e.state = EditorClosed
}

func (e *ThresholdEditor) getLocked(field ThresholdField) (float64, error) {
	switch field {
	case FieldWarning:
		return e.pending.Warning, nil
	case FieldDanger:
		return e.pending.Danger, nil
	case FieldMax:
		return e.pending.Max, nil
	default:
		return 0, fmt.Errorf("unknown threshold field %s", field)
	}
}

func (e *ThresholdEditor) setLocked(field ThresholdField, value float64) error {
	switch field {
	case FieldWarning:
		e.pending.Warning = value
	case FieldDanger:
		e.pending.Danger = value
	case FieldMax:
		e.pending.Max = value
	default:
		return fmt.Errorf("unknown threshold field %s", field)
	}
	return nil
}
