// Package integration handles external service interactions
package integration

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/abelzeko/awlr-monitor/internal/entities"
)

// kindNames maps the labels used in station bulletins to station kinds
var kindNames = map[string]entities.StationKind{
	"water":         entities.StationWater,
	"duga air":      entities.StationWater,
	"awlr":          entities.StationWater,
	"weather":       entities.StationWeather,
	"stasiun cuaca": entities.StationWeather,
	"arr":           entities.StationWeather,
}

// connectionNames maps bulletin wording to water station connection states
var connectionNames = map[string]string{
	"connected":         entities.ConnectionConnected,
	"koneksi terhubung": entities.ConnectionConnected,
	"terhubung":         entities.ConnectionConnected,
	"disconnected":      entities.ConnectionDisconnected,
	"koneksi terputus":  entities.ConnectionDisconnected,
	"terputus":          entities.ConnectionDisconnected,
	"maintenance":       entities.ConnectionMaintenance,
	"perbaikan":         entities.ConnectionMaintenance,
}

// rainNames maps bulletin wording to rain categories
var rainNames = map[string]string{
	"none":                entities.RainNone,
	"tidak hujan":         entities.RainNone,
	"very_light":          entities.RainVeryLight,
	"hujan sangat ringan": entities.RainVeryLight,
	"light":               entities.RainLight,
	"hujan ringan":        entities.RainLight,
	"moderate":            entities.RainModerate,
	"hujan sedang":        entities.RainModerate,
	"heavy":               entities.RainHeavy,
	"hujan lebat":         entities.RainHeavy,
	"very_heavy":          entities.RainVeryHeavy,
	"hujan sangat lebat":  entities.RainVeryHeavy,
}

// StationScraper reads the station catalog from an HTML bulletin
type StationScraper struct {
	sourceURL string
	client    *http.Client
	location  *time.Location
}

// NewStationScraper creates a new station scraper for the bulletin at url
func NewStationScraper(url string) *StationScraper {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		log.Printf("Warning: failed to load Asia/Jakarta time zone, using UTC: %v", err)
		loc = time.UTC
	}
	return &StationScraper{
		sourceURL: url,
		client:    &http.Client{Timeout: 30 * time.Second},
		location:  loc,
	}
}

// FetchStations retrieves and parses the station table
func (s *StationScraper) FetchStations(ctx context.Context) ([]entities.Station, error) {
	if s.sourceURL == "" {
		return nil, fmt.Errorf("no station bulletin URL configured")
	}

	log.Printf("Sending HTTP request to station bulletin %s", s.sourceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %v", err)
	}

	res, err := s.client.Do(req)
	if err != nil {
		log.Printf("Error fetching station bulletin: %v", err)
		return nil, fmt.Errorf("failed to fetch the webpage: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		log.Printf("Received unexpected status code: %d %s", res.StatusCode, res.Status)
		return nil, fmt.Errorf("unexpected status code: %d %s", res.StatusCode, res.Status)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		log.Printf("Error parsing HTML: %v", err)
		return nil, fmt.Errorf("failed to parse the webpage: %v", err)
	}

	return s.ParseStations(doc), nil
}

// ParseStations extracts stations from rows of the form
// name | kind | lat | lng | state. Malformed rows are skipped.
func (s *StationScraper) ParseStations(doc *goquery.Document) []entities.Station {
	updated := s.ExtractTimestamp(doc)

	var stations []entities.Station
	rowCount := 0
	skipped := 0

	doc.Find("table tbody tr").Each(func(index int, row *goquery.Selection) {
		rowCount++
		cells := row.Find("td")
		if cells.Length() < 5 {
			skipped++
			return
		}

		name := strings.TrimSpace(cells.Eq(0).Text())
		kindText := normalize(cells.Eq(1).Text())
		kind, ok := kindNames[kindText]
		if name == "" || !ok {
			log.Printf("Warning: Skipping row %d with name %q and kind %q", index, name, kindText)
			skipped++
			return
		}

		lat, latErr := parseCoordinate(cells.Eq(2).Text())
		lng, lngErr := parseCoordinate(cells.Eq(3).Text())
		if latErr != nil || lngErr != nil {
			log.Printf("Warning: Skipping station %s with invalid coordinates", name)
			skipped++
			return
		}

		station := entities.Station{
			Name:      name,
			Kind:      kind,
			Lat:       lat,
			Lng:       lng,
			UpdatedAt: updated,
		}

		state := normalize(cells.Eq(4).Text())
		if kind == entities.StationWater {
			station.Connection = connectionNames[state]
			if station.Connection == "" {
				station.Connection = entities.ConnectionMaintenance
			}
		} else {
			station.Rain = rainNames[state]
			if station.Rain == "" {
				station.Rain = entities.RainNone
			}
		}

		stations = append(stations, station)
	})

	log.Printf("Parsed %d rows, extracted %d stations, skipped %d", rowCount, len(stations), skipped)
	return stations
}

// ExtractTimestamp looks for an "Update: YYYY-MM-DD HH:MM" line and falls back to the current time
func (s *StationScraper) ExtractTimestamp(doc *goquery.Document) time.Time {
	timestamp := time.Now()
	found := false

	doc.Find("caption, h4, p").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		idx := strings.Index(text, "Update:")
		if idx < 0 {
			return true
		}

		value := strings.TrimSpace(text[idx+len("Update:"):])
		fields := strings.Fields(value)
		if len(fields) < 2 {
			return true
		}

		t, err := time.ParseInLocation("2006-01-02 15:04", fields[0]+" "+fields[1], s.location)
		if err != nil {
			log.Printf("Error parsing bulletin timestamp %q: %v", value, err)
			return true
		}
		timestamp = t
		found = true
		return false
	})

	if !found {
		log.Printf("Timestamp text not found, using current time")
	}
	return timestamp
}

func normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

func parseCoordinate(text string) (float64, error) {
	// bulletins written with a decimal comma
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	return strconv.ParseFloat(text, 64)
}
