package monitoring

import "github.com/abelzeko/awlr-monitor/internal/entities"

// DefaultHistorySize is the number of readings kept for the dashboard
const DefaultHistorySize = 20

// History is a size-bounded FIFO of readings, oldest first
type History struct {
	readings []entities.Reading
	capacity int
}

// NewHistory creates an empty history holding at most capacity readings
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{
		readings: make([]entities.Reading, 0, capacity+1),
		capacity: capacity,
	}
}

// Append adds a reading and evicts the oldest ones once the bound is exceeded
func (h *History) Append(r entities.Reading) {
	h.readings = append(h.readings, r)
	if over := len(h.readings) - h.capacity; over > 0 {
		// shift in place so the backing array does not grow without bound
		n := copy(h.readings, h.readings[over:])
		h.readings = h.readings[:n]
	}
}

// Last returns the newest reading
func (h *History) Last() (entities.Reading, bool) {
	if len(h.readings) == 0 {
		return entities.Reading{}, false
	}
	return h.readings[len(h.readings)-1], true
}

// Len returns the number of readings held
func (h *History) Len() int {
	return len(h.readings)
}

// Capacity returns the bound of the history
func (h *History) Capacity() int {
	return h.capacity
}

// Readings returns a copy of the readings, oldest first
func (h *History) Readings() []entities.Reading {
	out := make([]entities.Reading, len(h.readings))
	copy(out, h.readings)
	return out
}
