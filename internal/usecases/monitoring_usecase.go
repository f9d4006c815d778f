// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/abelzeko/awlr-monitor/internal/entities"
	"github.com/abelzeko/awlr-monitor/internal/integration/openai"
	"github.com/abelzeko/awlr-monitor/internal/metrics"
	"github.com/abelzeko/awlr-monitor/internal/monitoring"
	"github.com/abelzeko/awlr-monitor/internal/repository"
	"github.com/google/uuid"
)

// DayLayout is the date format accepted for daily summaries
const DayLayout = "2006-01-02"

// MonitoringUseCase connects the live monitor to the archive, the station
// catalog and the natural-language agent
type MonitoringUseCase struct {
	monitor       *monitoring.Monitor
	readings      repository.ReadingRepository
	stations      repository.StationRepository
	openAIService openai.OpenAIService
	recorder      *metrics.Recorder

	mu      sync.Mutex
	session string
}

// NewMonitoringUseCase creates a new monitoring use case. openAIService and
// recorder may be nil.
func NewMonitoringUseCase(
	monitor *monitoring.Monitor,
	readings repository.ReadingRepository,
	stations repository.StationRepository,
	openAIService openai.OpenAIService,
	recorder *metrics.Recorder,
) *MonitoringUseCase {
	return &MonitoringUseCase{
		monitor:       monitor,
		readings:      readings,
		stations:      stations,
		openAIService: openAIService,
		recorder:      recorder,
	}
}

// Start archives the seed reading and subscribes the archive and metrics to
// the monitor. The returned function stops both.
func (uc *MonitoringUseCase) Start() func() {
	snap := uc.monitor.Snapshot()
	uc.newSession()
	uc.archive(snap.Readings)
	if uc.recorder != nil {
		uc.recorder.Observe(snap)
	}

	return uc.monitor.Subscribe(uc.onSnapshot)
}

func (uc *MonitoringUseCase) onSnapshot(snap monitoring.Snapshot) {
	if uc.recorder != nil {
		uc.recorder.Observe(snap)
	}

	switch snap.Event {
	case monitoring.EventTick:
		uc.archive([]entities.Reading{snap.Current()})
	case monitoring.EventReset:
		// reading ids restart from zero
		uc.newSession()
		uc.archive(snap.Readings)
	}
}

func (uc *MonitoringUseCase) newSession() {
	uc.mu.Lock()
	uc.session = uuid.NewString()
	session := uc.session
	uc.mu.Unlock()
	log.Printf("Archiving readings under session %s", session)
}

// Session returns the id the current readings are archived under
func (uc *MonitoringUseCase) Session() string {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.session
}

func (uc *MonitoringUseCase) archive(readings []entities.Reading) {
	if len(readings) == 0 {
		return
	}
	if err := uc.readings.SaveReadings(uc.Session(), readings); err != nil {
		log.Printf("Error archiving readings: %v", err)
	}
}

// Snapshot returns the current monitor state
func (uc *MonitoringUseCase) Snapshot() monitoring.Snapshot {
	return uc.monitor.Snapshot()
}

// Thresholds returns the active thresholds
func (uc *MonitoringUseCase) Thresholds() entities.ThresholdConfig {
	return uc.monitor.Thresholds()
}

// SetThresholds applies candidate to the monitor, counting rejections
func (uc *MonitoringUseCase) SetThresholds(candidate entities.ThresholdConfig) error {
	if err := uc.monitor.SetThresholds(candidate); err != nil {
		log.Printf("Rejected thresholds %+v: %v", candidate, err)
		if uc.recorder != nil {
			uc.recorder.ObserveRejection()
		}
		return err
	}
	return nil
}

// SubscribeStatusChanges calls fn with the previous and the new reading
// whenever a tick changes the status
func (uc *MonitoringUseCase) SubscribeStatusChanges(fn func(previous, current entities.Reading)) func() {
	return uc.monitor.Subscribe(func(snap monitoring.Snapshot) {
		if snap.Event != monitoring.EventTick || len(snap.Readings) < 2 {
			return
		}
		previous := snap.Readings[len(snap.Readings)-2]
		current := snap.Current()
		if previous.Status != current.Status {
			fn(previous, current)
		}
	})
}

// EnsureStations seeds the catalog with the built-in stations when it is empty
func (uc *MonitoringUseCase) EnsureStations() error {
	existing, err := uc.stations.GetStations("")
	if err != nil {
		return fmt.Errorf("failed to read station catalog: %v", err)
	}
	if len(existing) > 0 {
		return nil
	}

	defaults := entities.DefaultStations()
	log.Printf("Station catalog is empty, seeding %d built-in stations", len(defaults))
	if err := uc.stations.SaveStations(defaults); err != nil {
		return fmt.Errorf("failed to seed station catalog: %v", err)
	}
	return nil
}

// GetStations returns the catalog, filtered by kind unless kind is empty
func (uc *MonitoringUseCase) GetStations(kind entities.StationKind) ([]entities.Station, error) {
	return uc.stations.GetStations(kind)
}

// ParseDay parses a YYYY-MM-DD date in the local time zone. An empty string means today.
func ParseDay(value string) (time.Time, error) {
	if value == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local), nil
	}
	day, err := time.ParseInLocation(DayLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return day, nil
}

// HourlySummary aggregates the archived readings of day per hour
func (uc *MonitoringUseCase) HourlySummary(day time.Time) ([]entities.LevelSummary, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)
	log.Printf("Summarising readings from %s to %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	return uc.readings.GetHourlySummary(from, to)
}

// HandleNaturalLanguageQuery interprets a user's free-text query using the AI service
// and returns an appropriate response string.
func (uc *MonitoringUseCase) HandleNaturalLanguageQuery(ctx context.Context, query string) (string, error) {
	current := uc.monitor.Current()
	if uc.openAIService == nil {
		return "Use /help to see the available commands.\n\n" + FormatReading(current), nil
	}

	log.Printf("Interpreting natural language query: %s", query)

	var names []string
	stations, err := uc.stations.GetStations(entities.StationWater)
	if err != nil {
		log.Printf("Error fetching stations: %v", err)
	}
	for _, s := range stations {
		names = append(names, s.Name)
	}

	agentResp, err := uc.openAIService.InterpretUserQuery(ctx, query, names)
	if err != nil {
		log.Printf("Error interpreting user query via OpenAI: %v", err)
		return "Sorry, I'm having trouble understanding right now. Please try again later or use /help.", nil
	}

	log.Printf("Agent response: Command='%s', Station='%s', Message='%s'",
		agentResp.CommandName, agentResp.StationName, agentResp.UserMessage)

	switch agentResp.CommandName {
	case openai.CommandGetCurrentLevel:
		return withPrefix(agentResp.UserMessage, FormatReading(current)), nil
	case openai.CommandGetThresholds:
		return withPrefix(agentResp.UserMessage, FormatThresholds(uc.monitor.Thresholds())), nil
	case openai.CommandGeneralQuery:
		return agentResp.UserMessage, nil
	default:
		log.Printf("Agent returned unexpected command: %s", agentResp.CommandName)
		return "I'm not sure how to respond to that. You can use /help for commands.", nil
	}
}

func withPrefix(message, body string) string {
	if message == "" {
		return body
	}
	return message + "\n\n" + body
}

func statusIcon(s entities.Status) string {
	switch s {
	case entities.StatusDanger:
		return "🔴"
	case entities.StatusWarning:
		return "🟡"
	default:
		return "🟢"
	}
}

// FormatReading formats a reading for display
func FormatReading(r entities.Reading) string {
	return fmt.Sprintf("💧 Water level: %s m\n%s Status: %s\n🕒 Reading #%d at %s",
		r.FormattedLevel(), statusIcon(r.Status), r.Status, r.ID,
		r.Timestamp.Format("2006-01-02 15:04:05 MST"))
}

// FormatHistory lists readings newest first
func FormatHistory(readings []entities.Reading) string {
	if len(readings) == 0 {
		return "No readings yet."
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Last %d readings:\n\n", len(readings)))
	for i := len(readings) - 1; i >= 0; i-- {
		r := readings[i]
		result.WriteString(fmt.Sprintf("%s %s  %s m  #%d\n",
			statusIcon(r.Status), r.Timestamp.Format("15:04:05"), r.FormattedLevel(), r.ID))
	}
	return result.String()
}

// FormatThresholds formats the alert thresholds for display
func FormatThresholds(t entities.ThresholdConfig) string {
	return fmt.Sprintf("🟡 Warning: %.1f m\n🔴 Danger: %.1f m\n📏 Max: %.1f m", t.Warning, t.Danger, t.Max)
}

// FormatSummary formats the hourly summary of day
func FormatSummary(day time.Time, summaries []entities.LevelSummary) string {
	if len(summaries) == 0 {
		return fmt.Sprintf("No archived readings for %s.", day.Format(DayLayout))
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Hourly summary for %s:\n\n", day.Format(DayLayout)))
	for _, s := range summaries {
		result.WriteString(fmt.Sprintf("%s  avg %.3f  low %.3f  high %.3f  (%d)\n",
			s.Hour.Format("15:04"), s.Avg, s.Low, s.High, s.Count))
	}
	return result.String()
}

// FormatStations lists the catalog grouped by kind
func FormatStations(stations []entities.Station) string {
	if len(stations) == 0 {
		return "No stations available."
	}

	var water, weather strings.Builder
	for _, s := range stations {
		line := fmt.Sprintf("📍 %s (%s)\n", s.Name, s.State())
		if s.Kind == entities.StationWater {
			water.WriteString(line)
		} else {
			weather.WriteString(line)
		}
	}

	var result strings.Builder
	if water.Len() > 0 {
		result.WriteString("Water stations:\n")
		result.WriteString(water.String())
	}
	if weather.Len() > 0 {
		if result.Len() > 0 {
			result.WriteString("\n")
		}
		result.WriteString("Weather stations:\n")
		result.WriteString(weather.String())
	}
	return result.String()
}
