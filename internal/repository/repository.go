// Package repository provides data access implementations
package repository

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteRepository implements ReadingRepository and StationRepository using SQLite
type SQLiteRepository struct {
	db     *sql.DB
	DBPath string
}

// NewSQLiteRepository creates and initializes a new SQLite repository
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dbPath == "" {
		// Set default path if not specified
		dbDir := "data"
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
		dbPath = filepath.Join(dbDir, "awlr.db")
	} else if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
	}

	log.Printf("Opening database at %s", dbPath)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	// ticks, HTTP handlers and the bot share one connection so writes never see SQLITE_BUSY
	db.SetMaxOpenConns(1)

	// Create tables if they don't exist
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session TEXT NOT NULL,
		reading_id INTEGER NOT NULL,
		level REAL NOT NULL,
		status TEXT NOT NULL,
		timestamp_ms INTEGER NOT NULL,
		UNIQUE(session, reading_id)
	);
	CREATE INDEX IF NOT EXISTS idx_readings_timestamp ON readings(timestamp_ms);
	CREATE TABLE IF NOT EXISTS stations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		connection TEXT,
		rain TEXT,
		updated_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_stations_kind ON stations(kind);`

	_, err = db.Exec(createTableSQL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	return &SQLiteRepository{
		db:     db,
		DBPath: dbPath,
	}, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
