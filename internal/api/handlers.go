package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/abelzeko/awlr-monitor/internal/entities"
	"github.com/abelzeko/awlr-monitor/internal/usecases"
	"github.com/abelzeko/awlr-monitor/internal/websocket"
	gwebsocket "github.com/gorilla/websocket"
)

var upgrader = gwebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// APIHandler serves the dashboard API
type APIHandler struct {
	useCase *usecases.MonitoringUseCase
	hub     *websocket.Hub
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(useCase *usecases.MonitoringUseCase, hub *websocket.Hub) *APIHandler {
	return &APIHandler{
		useCase: useCase,
		hub:     hub,
	}
}

type monitoringResponse struct {
	Current    entities.Reading         `json:"current"`
	History    []entities.Reading       `json:"history"`
	Thresholds entities.ThresholdConfig `json:"thresholds"`
}

type analysisResponse struct {
	Date  string                  `json:"date"`
	Hours []entities.LevelSummary `json:"hours"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// HandleHealth reports liveness
func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleMonitoring returns the current reading, the history and the thresholds
func (h *APIHandler) HandleMonitoring(w http.ResponseWriter, r *http.Request) {
	snap := h.useCase.Snapshot()
	writeJSON(w, http.StatusOK, monitoringResponse{
		Current:    snap.Current(),
		History:    snap.Readings,
		Thresholds: snap.Thresholds,
	})
}

// HandleGetThresholds returns the active thresholds
func (h *APIHandler) HandleGetThresholds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.useCase.Thresholds())
}

// HandlePutThresholds replaces the active thresholds
func (h *APIHandler) HandlePutThresholds(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var candidate entities.ThresholdConfig
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&candidate); err != nil {
		log.Printf("Error decoding thresholds: %v", err)
		writeError(w, http.StatusBadRequest, "Bad Request: Cannot parse JSON")
		return
	}

	if err := h.useCase.SetThresholds(candidate); err != nil {
		if errors.Is(err, entities.ErrInvalidThresholds) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.useCase.Thresholds())
}

// HandleStations lists the station catalog, optionally filtered by ?kind=
func (h *APIHandler) HandleStations(w http.ResponseWriter, r *http.Request) {
	kind := entities.StationKind(r.URL.Query().Get("kind"))
	switch kind {
	case "", entities.StationWater, entities.StationWeather:
	default:
		writeError(w, http.StatusBadRequest, "kind must be water or weather")
		return
	}

	stations, err := h.useCase.GetStations(kind)
	if err != nil {
		log.Printf("Error fetching stations: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch stations")
		return
	}
	if stations == nil {
		stations = []entities.Station{}
	}
	writeJSON(w, http.StatusOK, stations)
}

// HandleAnalysis returns the hourly summary of ?date=YYYY-MM-DD, today by default
func (h *APIHandler) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	day, err := usecases.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hours, err := h.useCase.HourlySummary(day)
	if err != nil {
		log.Printf("Error building summary: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read archive")
		return
	}
	if hours == nil {
		hours = []entities.LevelSummary{}
	}
	writeJSON(w, http.StatusOK, analysisResponse{
		Date:  day.Format(usecases.DayLayout),
		Hours: hours,
	})
}

// HandleWebSocket upgrades the connection and streams snapshots, starting with the current state
func (h *APIHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	first, err := websocket.EncodeSnapshot(h.useCase.Snapshot())
	if err != nil {
		log.Printf("Error marshalling initial snapshot: %v", err)
	}

	client := websocket.NewClient(h.hub, conn, first)
	if !h.hub.RegisterClient(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
