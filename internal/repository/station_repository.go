package repository

import (
	"fmt"
	"log"
	"time"

	"github.com/abelzeko/awlr-monitor/internal/entities"
)

// StationRepository defines the persistence operations of the station catalog
type StationRepository interface {
	SaveStations(stations []entities.Station) error
	GetStations(kind entities.StationKind) ([]entities.Station, error)
	GetStationByName(name string) (*entities.Station, error)
	Close() error
}

// SaveStations inserts or updates stations by name
func (r *SQLiteRepository) SaveStations(stations []entities.Station) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO stations(name, kind, lat, lng, connection, rain, updated_ms)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
		kind=excluded.kind,
		lat=excluded.lat,
		lng=excluded.lng,
		connection=excluded.connection,
		rain=excluded.rain,
		updated_ms=excluded.updated_ms
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %v", err)
	}
	defer stmt.Close()

	for _, st := range stations {
		updated := st.UpdatedAt
		if updated.IsZero() {
			updated = time.Now()
		}
		_, err := stmt.Exec(
			st.Name,
			string(st.Kind),
			st.Lat,
			st.Lng,
			st.Connection,
			st.Rain,
			updated.UnixMilli(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save station %s: %v", st.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	log.Printf("Successfully saved %d stations", len(stations))
	return nil
}

// GetStations returns the catalog ordered by name. An empty kind returns every station.
func (r *SQLiteRepository) GetStations(kind entities.StationKind) ([]entities.Station, error) {
	query := `
		SELECT id, name, kind, lat, lng, connection, rain, updated_ms
		FROM stations
		WHERE ? = '' OR kind = ?
		ORDER BY name`

	rows, err := r.db.Query(query, string(kind), string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %v", err)
	}
	defer rows.Close()

	var result []entities.Station
	for rows.Next() {
		st, err := scanStation(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %v", err)
	}

	return result, nil
}

// GetStationByName returns nil when no station has that name
func (r *SQLiteRepository) GetStationByName(name string) (*entities.Station, error) {
	rows, err := r.db.Query(`
		SELECT id, name, kind, lat, lng, connection, rain, updated_ms
		FROM stations
		WHERE name = ? COLLATE NOCASE`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query station %s: %v", name, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	st, err := scanStation(rows.Scan)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func scanStation(scan func(dest ...any) error) (entities.Station, error) {
	var (
		st         entities.Station
		kind       string
		connection *string
		rain       *string
		updated    int64
	)
	if err := scan(&st.ID, &st.Name, &kind, &st.Lat, &st.Lng, &connection, &rain, &updated); err != nil {
		return st, fmt.Errorf("failed to scan row: %v", err)
	}
	st.Kind = entities.StationKind(kind)
	if connection != nil {
		st.Connection = *connection
	}
	if rain != nil {
		st.Rain = *rain
	}
	st.UpdatedAt = time.UnixMilli(updated)
	return st, nil
}
