package integration

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/abelzeko/awlr-monitor/internal/entities"
)

const bulletinHTML = `
<!DOCTYPE html>
<html>
<head><title>Pos Pemantauan</title></head>
<body>
    <h4>Data Pos Pemantauan. Update: 2026-02-15 08:00 WIB</h4>
    <table>
        <thead><tr><th>Nama</th><th>Jenis</th><th>Lat</th><th>Lng</th><th>Status</th></tr></thead>
        <tbody>
            <tr><td>Pos AWLR Opak Pulo</td><td>Duga Air</td><td>-7.802</td><td>110.364</td><td>Koneksi Terhubung</td></tr>
            <tr><td>Pos AWLR Winongo</td><td>water</td><td>-7,820</td><td>110,350</td><td>Koneksi  Terputus</td></tr>
            <tr><td>Stasiun Cuaca Wates</td><td>Stasiun Cuaca</td><td>-7.870</td><td>110.150</td><td>Hujan Sedang</td></tr>
            <tr><td>Stasiun Cuaca Pakem</td><td>weather</td><td>-7.648</td><td>110.418</td><td>very_light</td></tr>
            <tr><td>Pos Rusak</td><td>water</td><td>n/a</td><td>110.1</td><td>Perbaikan</td></tr>
            <tr><td>Pos Asing</td><td>radar</td><td>-7.1</td><td>110.1</td><td>connected</td></tr>
            <tr><td>Baris pendek</td><td>water</td></tr>
        </tbody>
    </table>
</body>
</html>`

// mockHTMLServer creates a test server that serves a fixed HTML response
func mockHTMLServer(status int, html string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		io.WriteString(w, html)
	}))
}

func TestFetchStationsWithMock(t *testing.T) {
	server := mockHTMLServer(http.StatusOK, bulletinHTML)
	defer server.Close()

	scraper := NewStationScraper(server.URL)
	stations, err := scraper.FetchStations(context.Background())
	if err != nil {
		t.Fatalf("Failed to fetch stations: %v", err)
	}

	if len(stations) != 4 {
		t.Fatalf("Expected 4 valid stations, got %d: %+v", len(stations), stations)
	}

	opak := stations[0]
	if opak.Name != "Pos AWLR Opak Pulo" || opak.Kind != entities.StationWater || opak.Connection != entities.ConnectionConnected {
		t.Errorf("Unexpected first station: %+v", opak)
	}
	if opak.Lat != -7.802 || opak.Lng != 110.364 {
		t.Errorf("Unexpected coordinates: %v, %v", opak.Lat, opak.Lng)
	}

	winongo := stations[1]
	if winongo.Lat != -7.82 || winongo.Connection != entities.ConnectionDisconnected {
		t.Errorf("Expected decimal comma and disconnected state to parse, got %+v", winongo)
	}

	if stations[2].Kind != entities.StationWeather || stations[2].Rain != entities.RainModerate {
		t.Errorf("Unexpected weather station: %+v", stations[2])
	}
	if stations[3].Rain != entities.RainVeryLight {
		t.Errorf("Expected very_light rain, got %q", stations[3].Rain)
	}

	loc := scraper.location
	expected := time.Date(2026, time.February, 15, 8, 0, 0, 0, loc)
	for _, st := range stations {
		if !st.UpdatedAt.Equal(expected) {
			t.Errorf("Expected %s updated at %v, got %v", st.Name, expected, st.UpdatedAt)
		}
	}
}

func TestFetchStationsBadStatus(t *testing.T) {
	server := mockHTMLServer(http.StatusServiceUnavailable, "down")
	defer server.Close()

	if _, err := NewStationScraper(server.URL).FetchStations(context.Background()); err == nil {
		t.Fatal("Expected an error for a 503 response")
	}
}

func TestFetchStationsWithoutURL(t *testing.T) {
	if _, err := NewStationScraper("").FetchStations(context.Background()); err == nil {
		t.Fatal("Expected an error when no URL is configured")
	}
}

func TestExtractTimestampFallback(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body><p>no update line</p></body></html>"))
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}

	before := time.Now()
	ts := NewStationScraper("").ExtractTimestamp(doc)
	if ts.Before(before) {
		t.Errorf("Expected fallback to the current time, got %v", ts)
	}
}
