package entities

import "time"

// StationKind distinguishes water gauges from weather stations
type StationKind string

const (
	StationWater   StationKind = "water"
	StationWeather StationKind = "weather"
)

// Connection states reported for water stations
const (
	ConnectionConnected    = "connected"
	ConnectionDisconnected = "disconnected"
	ConnectionMaintenance  = "maintenance"
)

// Rain categories reported for weather stations
const (
	RainNone      = "none"
	RainVeryLight = "very_light"
	RainLight     = "light"
	RainModerate  = "moderate"
	RainHeavy     = "heavy"
	RainVeryHeavy = "very_heavy"
)

var rainColors = map[string]string{
	RainNone:      "#22c55e",
	RainVeryLight: "#bae6fd",
	RainLight:     "#60a5fa",
	RainModerate:  "#facc15",
	RainHeavy:     "#f97316",
	RainVeryHeavy: "#ef4444",
}

// Station is a monitoring post shown on the map
type Station struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Kind       StationKind `json:"kind"`
	Lat        float64     `json:"lat"`
	Lng        float64     `json:"lng"`
	Connection string      `json:"connection,omitempty"` // water stations only
	Rain       string      `json:"rain,omitempty"`       // weather stations only
	UpdatedAt  time.Time   `json:"updated_at"`
}

// State returns the connection state for water stations and the rain category for weather stations
func (s Station) State() string {
	if s.Kind == StationWater {
		return s.Connection
	}
	return s.Rain
}

// MarkerColor returns the legend colour of the station marker
func (s Station) MarkerColor() string {
	if s.Kind == StationWater {
		switch s.Connection {
		case ConnectionConnected:
			return "#22c55e"
		case ConnectionDisconnected:
			return "#111827"
		default:
			return "#a16207"
		}
	}
	if color, ok := rainColors[s.Rain]; ok {
		return color
	}
	return rainColors[RainNone]
}

// DefaultStations is the catalog the dashboard shipped with, used to seed an empty database
func DefaultStations() []Station {
	return []Station{
		{Name: "Pos AWLR Opak Pulo", Kind: StationWater, Lat: -7.802, Lng: 110.364, Connection: ConnectionConnected},
		{Name: "Pos AWLR Progo", Kind: StationWater, Lat: -7.750, Lng: 110.220, Connection: ConnectionConnected},
		{Name: "Pos AWLR Krasak", Kind: StationWater, Lat: -7.620, Lng: 110.280, Connection: ConnectionMaintenance},
		{Name: "Pos AWLR Serang", Kind: StationWater, Lat: -7.680, Lng: 110.420, Connection: ConnectionConnected},
		{Name: "Pos AWLR Winongo", Kind: StationWater, Lat: -7.820, Lng: 110.350, Connection: ConnectionDisconnected},
		{Name: "Stasiun Cuaca Godean", Kind: StationWeather, Lat: -7.770, Lng: 110.295, Rain: RainNone},
		{Name: "Stasiun Cuaca Sleman", Kind: StationWeather, Lat: -7.716, Lng: 110.355, Rain: RainLight},
		{Name: "Stasiun Cuaca Bantul", Kind: StationWeather, Lat: -7.890, Lng: 110.330, Rain: RainNone},
		{Name: "Stasiun Cuaca Wates", Kind: StationWeather, Lat: -7.870, Lng: 110.150, Rain: RainModerate},
		{Name: "Stasiun Cuaca Klaten", Kind: StationWeather, Lat: -7.706, Lng: 110.600, Rain: RainNone},
		{Name: "Stasiun Cuaca Prambanan", Kind: StationWeather, Lat: -7.752, Lng: 110.490, Rain: RainNone},
		{Name: "Stasiun Cuaca Pakem", Kind: StationWeather, Lat: -7.648, Lng: 110.418, Rain: RainVeryLight},
		{Name: "Stasiun Cuaca Kalasan", Kind: StationWeather, Lat: -7.769, Lng: 110.461, Rain: RainNone},
		{Name: "Stasiun Cuaca Depok", Kind: StationWeather, Lat: -7.755, Lng: 110.376, Rain: RainNone},
		{Name: "Stasiun Cuaca Pleret", Kind: StationWeather, Lat: -7.840, Lng: 110.395, Rain: RainLight},
	}
}
