package repository

import (
	"fmt"
	"log"
	"time"

	"github.com/abelzeko/awlr-monitor/internal/entities"
)

const hourMillis = int64(time.Hour / time.Millisecond)

// ReadingRepository defines the persistence operations of the readings archive
type ReadingRepository interface {
	SaveReadings(session string, readings []entities.Reading) error
	GetReadings(from, to time.Time) ([]entities.Reading, error)
	GetHourlySummary(from, to time.Time) ([]entities.LevelSummary, error)
	Close() error
}

// SaveReadings archives readings of one monitor session. Saving the same
// reading twice keeps a single row.
func (r *SQLiteRepository) SaveReadings(session string, readings []entities.Reading) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO readings(session, reading_id, level, status, timestamp_ms)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(session, reading_id) DO NOTHING
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %v", err)
	}
	defer stmt.Close()

	for _, rd := range readings {
		_, err := stmt.Exec(
			session,
			int64(rd.ID),
			rd.Level,
			rd.Status.String(),
			rd.Timestamp.UnixMilli(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert reading %d of session %s: %v", rd.ID, session, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

// GetReadings returns archived readings with from <= timestamp < to, oldest first
func (r *SQLiteRepository) GetReadings(from, to time.Time) ([]entities.Reading, error) {
	query := `
		SELECT reading_id, level, status, timestamp_ms
		FROM readings
		WHERE timestamp_ms >= ? AND timestamp_ms < ?
		ORDER BY timestamp_ms, id`

	rows, err := r.db.Query(query, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %v", err)
	}
	defer rows.Close()

	var result []entities.Reading
	for rows.Next() {
		var (
			rd     entities.Reading
			id     int64
			status string
			ts     int64
		)
		if err := rows.Scan(&id, &rd.Level, &status, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		rd.ID = uint64(id)
		rd.Timestamp = time.UnixMilli(ts)
		if rd.Status, err = entities.ParseStatus(status); err != nil {
			log.Printf("Warning: reading %d has %v, treating as safe", id, err)
		}
		result = append(result, rd)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %v", err)
	}

	return result, nil
}

// GetHourlySummary aggregates archived readings per hour with from <= timestamp < to
func (r *SQLiteRepository) GetHourlySummary(from, to time.Time) ([]entities.LevelSummary, error) {
	query := `
		SELECT timestamp_ms / ? AS bucket, AVG(level), MIN(level), MAX(level), COUNT(*)
		FROM readings
		WHERE timestamp_ms >= ? AND timestamp_ms < ?
		GROUP BY bucket
		ORDER BY bucket`

	rows, err := r.db.Query(query, hourMillis, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query hourly summary: %v", err)
	}
	defer rows.Close()

	var result []entities.LevelSummary
	for rows.Next() {
		var (
			s      entities.LevelSummary
			bucket int64
		)
		if err := rows.Scan(&bucket, &s.Avg, &s.Low, &s.High, &s.Count); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		s.Hour = time.UnixMilli(bucket * hourMillis).In(from.Location())
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %v", err)
	}

	return result, nil
}
