package monitoring

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/abelzeko/awlr-monitor/internal/entities"
	"github.com/robfig/cron/v3"
)

const (
	// DefaultInterval is the cadence of simulated readings
	DefaultInterval = 3 * time.Second
	// DefaultInitialLevel is the level of the seed reading, in meters
	DefaultInitialLevel = 0.8
)

// Event tells subscribers what produced a snapshot
type Event string

const (
	EventReset      Event = "reset"
	EventTick       Event = "tick"
	EventThresholds Event = "thresholds"
	EventState      Event = "state"
)

// Snapshot is an immutable copy of the monitor state handed to subscribers
type Snapshot struct {
	Event      Event                    `json:"event"`
	Readings   []entities.Reading       `json:"history"`
	Thresholds entities.ThresholdConfig `json:"thresholds"`
}

// Current returns the newest reading of the snapshot
func (s Snapshot) Current() entities.Reading {
	if len(s.Readings) == 0 {
		return entities.Reading{}
	}
	return s.Readings[len(s.Readings)-1]
}

// Options configures a Monitor. Zero values fall back to the defaults.
type Options struct {
	Interval     time.Duration
	HistorySize  int
	InitialLevel float64
	Thresholds   entities.ThresholdConfig
	Rand         Rand
	Now          func() time.Time
}

// Monitor owns the simulated readings and the active thresholds
type Monitor struct {
	interval     time.Duration
	historySize  int
	initialLevel float64
	defaults     entities.ThresholdConfig
	rnd          Rand
	now          func() time.Time

	mu         sync.RWMutex
	history    *History
	thresholds entities.ThresholdConfig
	nextID     uint64

	// publishMu keeps mutations and their notifications in the same order
	publishMu   sync.Mutex
	subsMu      sync.Mutex
	subscribers map[uint64]func(Snapshot)
	nextSub     uint64
}

// NewMonitor creates a monitor holding only the seed reading
func NewMonitor(opts Options) (*Monitor, error) {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	if opts.InitialLevel <= 0 {
		opts.InitialLevel = DefaultInitialLevel
	}
	if opts.Thresholds == (entities.ThresholdConfig{}) {
		opts.Thresholds = entities.DefaultThresholds()
	}
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create monitor: %w", err)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Monitor{
		interval:     opts.Interval,
		historySize:  opts.HistorySize,
		initialLevel: opts.InitialLevel,
		defaults:     opts.Thresholds,
		rnd:          opts.Rand,
		now:          opts.Now,
		subscribers:  make(map[uint64]func(Snapshot)),
	}
	m.resetLocked()
	return m, nil
}

// resetLocked restores the seed state. Callers hold mu or own m exclusively.
func (m *Monitor) resetLocked() {
	m.thresholds = m.defaults
	m.history = NewHistory(m.historySize)
	m.history.Append(entities.Reading{
		ID:        0,
		Timestamp: m.now(),
		Level:     m.initialLevel,
		Status:    Classify(m.initialLevel, m.defaults),
	})
	m.nextID = 1
}

// Reset brings history and thresholds back to their defaults
func (m *Monitor) Reset() {
	m.publishMu.Lock()
	defer m.publishMu.Unlock()

	m.mu.Lock()
	m.resetLocked()
	snap := m.snapshotLocked(EventReset)
	m.mu.Unlock()

	log.Printf("Monitor reset to defaults (warning=%.1f danger=%.1f max=%.1f)",
		snap.Thresholds.Warning, snap.Thresholds.Danger, snap.Thresholds.Max)
	m.publish(snap)
}

// Tick generates the next reading, appends it to the history and notifies subscribers
func (m *Monitor) Tick() entities.Reading {
	m.publishMu.Lock()
	defer m.publishMu.Unlock()

	m.mu.Lock()
	last, _ := m.history.Last()
	level := SimulateNext(last.Level, m.thresholds.Max, m.rnd)
	reading := entities.Reading{
		ID:        m.nextID,
		Timestamp: m.now(),
		Level:     level,
		Status:    Classify(level, m.thresholds),
	}
	m.nextID++
	m.history.Append(reading)
	snap := m.snapshotLocked(EventTick)
	m.mu.Unlock()

	m.publish(snap)
	return reading
}

// SetThresholds replaces the active thresholds. A misordered candidate is
// rejected with an error wrapping entities.ErrInvalidThresholds and the
// active thresholds stay unchanged.
func (m *Monitor) SetThresholds(candidate entities.ThresholdConfig) error {
	if err := candidate.Validate(); err != nil {
		return err
	}

	m.publishMu.Lock()
	defer m.publishMu.Unlock()

	m.mu.Lock()
	m.thresholds = candidate
	snap := m.snapshotLocked(EventThresholds)
	m.mu.Unlock()

	log.Printf("Thresholds updated: warning=%.1f danger=%.1f max=%.1f",
		candidate.Warning, candidate.Danger, candidate.Max)
	m.publish(snap)
	return nil
}

// Thresholds returns the active threshold configuration
func (m *Monitor) Thresholds() entities.ThresholdConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.thresholds
}

// Current returns the most recent reading
func (m *Monitor) Current() entities.Reading {
	m.mu.RLock()
	defer m.mu.RUnlock()
	last, _ := m.history.Last()
	return last
}

// History returns the retained readings, oldest first
func (m *Monitor) History() []entities.Reading {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.history.Readings()
}

// Snapshot returns a copy of the current state
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked(EventState)
}

func (m *Monitor) snapshotLocked(event Event) Snapshot {
	return Snapshot{
		Event:      event,
		Readings:   m.history.Readings(),
		Thresholds: m.thresholds,
	}
}

// Subscribe registers fn to receive a snapshot after every tick, reset and
// threshold change. fn runs synchronously and must not call Tick, Reset or
// SetThresholds. The returned function removes the subscription.
func (m *Monitor) Subscribe(fn func(Snapshot)) func() {
	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn
	m.subsMu.Unlock()

	return func() {
		m.subsMu.Lock()
		delete(m.subscribers, id)
		m.subsMu.Unlock()
	}
}

func (m *Monitor) publish(snap Snapshot) {
	m.subsMu.Lock()
	fns := make([]func(Snapshot), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.subsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Run drives Tick on the configured interval until ctx is done. The
// scheduler is always stopped before Run returns.
func (m *Monitor) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	schedule := fmt.Sprintf("@every %s", m.interval)
	if _, err := c.AddFunc(schedule, func() { m.Tick() }); err != nil {
		return fmt.Errorf("failed to schedule monitor tick: %v", err)
	}

	c.Start()
	log.Printf("Monitor ticking every %s", m.interval)
	defer func() {
		<-c.Stop().Done()
		log.Println("Monitor scheduler stopped")
	}()

	<-ctx.Done()
	return nil
}
