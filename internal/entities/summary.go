package entities

import "time"

// LevelSummary aggregates archived readings over one hour
type LevelSummary struct {
	Hour  time.Time `json:"hour"`
	Avg   float64   `json:"avg"`
	Low   float64   `json:"low"`
	High  float64   `json:"high"`
	Count int       `json:"count"`
}
