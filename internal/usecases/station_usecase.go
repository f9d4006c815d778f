package usecases

import (
	"context"
	"fmt"
	"log"

	"github.com/abelzeko/awlr-monitor/internal/entities"
	"github.com/abelzeko/awlr-monitor/internal/repository"
)

// StationSource yields the current station catalog
type StationSource interface {
	FetchStations(ctx context.Context) ([]entities.Station, error)
}

// StationUseCase keeps the station catalog in sync with the bulletin
type StationUseCase struct {
	repo   repository.StationRepository
	source StationSource
}

// NewStationUseCase creates a new station use case
func NewStationUseCase(repo repository.StationRepository, source StationSource) *StationUseCase {
	return &StationUseCase{
		repo:   repo,
		source: source,
	}
}

// RefreshStations fetches the bulletin and upserts every station it lists
func (uc *StationUseCase) RefreshStations(ctx context.Context) (int, error) {
	log.Println("Starting station catalog refresh...")

	stations, err := uc.source.FetchStations(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch stations: %v", err)
	}
	if len(stations) == 0 {
		log.Println("Warning: bulletin listed no stations, keeping the current catalog")
		return 0, nil
	}
	log.Printf("Successfully fetched %d stations", len(stations))

	if err := uc.repo.SaveStations(stations); err != nil {
		return 0, fmt.Errorf("failed to save stations to repository: %v", err)
	}
	return len(stations), nil
}
