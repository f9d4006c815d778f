package usecases

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abelzeko/awlr-monitor/internal/entities"
	"github.com/abelzeko/awlr-monitor/internal/integration/openai"
	"github.com/abelzeko/awlr-monitor/internal/metrics"
	"github.com/abelzeko/awlr-monitor/internal/monitoring"
	"github.com/abelzeko/awlr-monitor/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

// stepClock advances three seconds on every call
type stepClock struct {
	mu   sync.Mutex
	next time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(3 * time.Second)
	return now
}

type mockOpenAIService struct {
	resp *openai.AgentResponse
	err  error
}

func (m *mockOpenAIService) InterpretUserQuery(ctx context.Context, userMessage string, stations []string) (*openai.AgentResponse, error) {
	return m.resp, m.err
}

var testDay = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.Local)

func newTestRepository(t *testing.T) *repository.SQLiteRepository {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "awlr-usecase-test")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	repo, err := repository.NewSQLiteRepository(filepath.Join(tempDir, "test-awlr.db"))
	if err != nil {
		t.Fatalf("Failed to initialize repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestMonitor(t *testing.T, rnd monitoring.Rand, thresholds entities.ThresholdConfig) *monitoring.Monitor {
	t.Helper()

	clock := &stepClock{next: testDay.Add(10 * time.Hour)}
	m, err := monitoring.NewMonitor(monitoring.Options{
		Thresholds: thresholds,
		Rand:       rnd,
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("Failed to create monitor: %v", err)
	}
	return m
}

func TestArchiveFollowsMonitor(t *testing.T) {
	repo := newTestRepository(t)
	m := newTestMonitor(t, fixedRand(0.48), entities.DefaultThresholds())
	uc := NewMonitoringUseCase(m, repo, repo, nil, nil)

	stop := uc.Start()
	defer stop()
	first := uc.Session()

	for i := 0; i < 3; i++ {
		m.Tick()
	}

	readings, err := repo.GetReadings(testDay, testDay.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("Failed to get readings: %v", err)
	}
	if len(readings) != 4 {
		t.Fatalf("Expected seed and 3 ticks archived, got %d", len(readings))
	}
	for i, r := range readings {
		if r.ID != uint64(i) {
			t.Errorf("Expected reading %d, got id %d", i, r.ID)
		}
	}

	m.Reset()
	if uc.Session() == first {
		t.Error("Expected a new archive session after reset")
	}

	readings, err = repo.GetReadings(testDay, testDay.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("Failed to get readings: %v", err)
	}
	if len(readings) != 5 {
		t.Errorf("Expected the new seed reading to be archived, got %d rows", len(readings))
	}

	stop()
	m.Tick()
	readings, _ = repo.GetReadings(testDay, testDay.AddDate(0, 0, 1))
	if len(readings) != 5 {
		t.Errorf("Expected no archiving after stop, got %d rows", len(readings))
	}
}

func TestHourlySummary(t *testing.T) {
	repo := newTestRepository(t)
	m := newTestMonitor(t, fixedRand(0.48), entities.DefaultThresholds())
	uc := NewMonitoringUseCase(m, repo, repo, nil, nil)
	defer uc.Start()()

	for i := 0; i < 4; i++ {
		m.Tick()
	}

	summaries, err := uc.HourlySummary(testDay.Add(15 * time.Hour))
	if err != nil {
		t.Fatalf("Failed to summarise: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("Expected one hour bucket, got %d", len(summaries))
	}
	s := summaries[0]
	if s.Count != 5 {
		t.Errorf("Expected 5 readings in the bucket, got %d", s.Count)
	}
	if s.Low != 0.8 || s.High != 0.8 {
		t.Errorf("Expected a flat level of 0.8, got low %v high %v", s.Low, s.High)
	}

	text := FormatSummary(testDay, summaries)
	if !strings.Contains(text, "2026-03-01") || !strings.Contains(text, "(5)") {
		t.Errorf("Unexpected summary text: %s", text)
	}

	empty, err := uc.HourlySummary(testDay.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("Failed to summarise: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected no buckets for the next day, got %d", len(empty))
	}
}

func TestSubscribeStatusChanges(t *testing.T) {
	repo := newTestRepository(t)
	thresholds := entities.ThresholdConfig{Warning: 0.85, Danger: 2, Max: 3}
	m := newTestMonitor(t, fixedRand(1), thresholds)
	uc := NewMonitoringUseCase(m, repo, repo, nil, nil)

	var changes [][2]entities.Status
	stop := uc.SubscribeStatusChanges(func(previous, current entities.Reading) {
		changes = append(changes, [2]entities.Status{previous.Status, current.Status})
	})
	defer stop()

	// 0.8 -> 0.862 -> 0.924
	m.Tick()
	m.Tick()

	if len(changes) != 1 {
		t.Fatalf("Expected a single status change, got %d", len(changes))
	}
	if changes[0] != [2]entities.Status{entities.StatusSafe, entities.StatusWarning} {
		t.Errorf("Expected safe -> warning, got %v", changes[0])
	}
}

func TestSetThresholdsCountsRejections(t *testing.T) {
	repo := newTestRepository(t)
	m := newTestMonitor(t, fixedRand(0.48), entities.DefaultThresholds())
	recorder := metrics.NewRecorder(prometheus.NewRegistry())
	uc := NewMonitoringUseCase(m, repo, repo, nil, recorder)
	defer uc.Start()()

	err := uc.SetThresholds(entities.ThresholdConfig{Warning: 2, Danger: 2, Max: 3})
	if !errors.Is(err, entities.ErrInvalidThresholds) {
		t.Fatalf("Expected ErrInvalidThresholds, got %v", err)
	}
	if uc.Thresholds() != entities.DefaultThresholds() {
		t.Errorf("Expected thresholds unchanged, got %+v", uc.Thresholds())
	}

	if err := uc.SetThresholds(entities.ThresholdConfig{Warning: 1, Danger: 2, Max: 3}); err != nil {
		t.Fatalf("Expected valid thresholds to apply, got %v", err)
	}

	if got := testutil.ToFloat64(recorder.ThresholdEdits.WithLabelValues("rejected")); got != 1 {
		t.Errorf("Expected one rejection, got %v", got)
	}
	if got := testutil.ToFloat64(recorder.ThresholdEdits.WithLabelValues("applied")); got != 1 {
		t.Errorf("Expected one applied update, got %v", got)
	}
	if got := testutil.ToFloat64(recorder.Thresholds.WithLabelValues("max")); got != 3 {
		t.Errorf("Expected max gauge 3, got %v", got)
	}
}

func TestEnsureStations(t *testing.T) {
	repo := newTestRepository(t)
	m := newTestMonitor(t, fixedRand(0.48), entities.DefaultThresholds())
	uc := NewMonitoringUseCase(m, repo, repo, nil, nil)

	if err := uc.EnsureStations(); err != nil {
		t.Fatalf("Failed to seed stations: %v", err)
	}
	all, err := uc.GetStations("")
	if err != nil {
		t.Fatalf("Failed to get stations: %v", err)
	}
	if len(all) != len(entities.DefaultStations()) {
		t.Fatalf("Expected %d seeded stations, got %d", len(entities.DefaultStations()), len(all))
	}

	if err := repo.SaveStations([]entities.Station{{Name: "Extra", Kind: entities.StationWeather, Rain: entities.RainLight}}); err != nil {
		t.Fatalf("Failed to save station: %v", err)
	}
	if err := uc.EnsureStations(); err != nil {
		t.Fatalf("Failed to re-check stations: %v", err)
	}
	all, _ = uc.GetStations("")
	if len(all) != len(entities.DefaultStations())+1 {
		t.Errorf("Expected a non-empty catalog to be left alone, got %d stations", len(all))
	}

	text := FormatStations(all)
	if !strings.Contains(text, "Water stations:") || !strings.Contains(text, "📍 Extra (light)") {
		t.Errorf("Unexpected station list: %s", text)
	}
}

func TestHandleNaturalLanguageQuery(t *testing.T) {
	repo := newTestRepository(t)
	m := newTestMonitor(t, fixedRand(0.48), entities.DefaultThresholds())

	tests := []struct {
		name    string
		service openai.OpenAIService
		want    []string
	}{
		{
			name: "no agent configured",
			want: []string{"/help", "0.800"},
		},
		{
			name: "current level",
			service: &mockOpenAIService{resp: &openai.AgentResponse{
				CommandName: openai.CommandGetCurrentLevel,
				UserMessage: "Here is the latest reading.",
			}},
			want: []string{"Here is the latest reading.", "0.800 m", "safe"},
		},
		{
			name: "thresholds",
			service: &mockOpenAIService{resp: &openai.AgentResponse{
				CommandName: openai.CommandGetThresholds,
			}},
			want: []string{"Warning: 1.5 m", "Danger: 2.5 m", "Max: 4.0 m"},
		},
		{
			name: "general",
			service: &mockOpenAIService{resp: &openai.AgentResponse{
				CommandName: openai.CommandGeneralQuery,
				UserMessage: "Halo!",
			}},
			want: []string{"Halo!"},
		},
		{
			name:    "agent failure",
			service: &mockOpenAIService{err: errors.New("boom")},
			want:    []string{"trouble understanding"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := NewMonitoringUseCase(m, repo, repo, tt.service, nil)
			got, err := uc.HandleNaturalLanguageQuery(context.Background(), "how high is the river?")
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("Expected reply to contain %q, got %q", w, got)
				}
			}
		})
	}
}

func TestFormatHistoryNewestFirst(t *testing.T) {
	readings := []entities.Reading{
		{ID: 0, Level: 0.8, Status: entities.StatusSafe},
		{ID: 1, Level: 1.7, Status: entities.StatusWarning},
	}
	text := FormatHistory(readings)
	if strings.Index(text, "#1") > strings.Index(text, "#0") {
		t.Errorf("Expected newest reading first: %s", text)
	}
	if FormatHistory(nil) != "No readings yet." {
		t.Errorf("Unexpected empty history text")
	}
}

func TestParseDay(t *testing.T) {
	day, err := ParseDay("2026-03-01")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !day.Equal(testDay) {
		t.Errorf("Expected %v, got %v", testDay, day)
	}
	if _, err := ParseDay("01/03/2026"); err == nil {
		t.Error("Expected an error for a malformed date")
	}
	today, err := ParseDay("")
	if err != nil || today.Hour() != 0 {
		t.Errorf("Expected midnight today, got %v (%v)", today, err)
	}
}

type stubSource struct {
	stations []entities.Station
	err      error
}

func (s *stubSource) FetchStations(ctx context.Context) ([]entities.Station, error) {
	return s.stations, s.err
}

func TestRefreshStations(t *testing.T) {
	repo := newTestRepository(t)

	source := &stubSource{stations: []entities.Station{
		{Name: "Pos AWLR Opak Pulo", Kind: entities.StationWater, Connection: entities.ConnectionDisconnected},
		{Name: "ARR Kaliurang", Kind: entities.StationWeather, Rain: entities.RainHeavy},
	}}
	uc := NewStationUseCase(repo, source)

	n, err := uc.RefreshStations(context.Background())
	if err != nil {
		t.Fatalf("Failed to refresh stations: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 stations saved, got %d", n)
	}

	st, err := repo.GetStationByName("pos awlr opak pulo")
	if err != nil || st == nil {
		t.Fatalf("Expected station to be stored, got %v (%v)", st, err)
	}
	if st.Connection != entities.ConnectionDisconnected {
		t.Errorf("Expected disconnected, got %s", st.Connection)
	}

	source.stations = nil
	if n, err := uc.RefreshStations(context.Background()); err != nil || n != 0 {
		t.Errorf("Expected empty bulletin to be ignored, got %d (%v)", n, err)
	}
	all, _ := repo.GetStations("")
	if len(all) != 2 {
		t.Errorf("Expected catalog to be kept, got %d stations", len(all))
	}

	source.err = errors.New("timeout")
	if _, err := uc.RefreshStations(context.Background()); err == nil {
		t.Error("Expected fetch error to be returned")
	}
}
