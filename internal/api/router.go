package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter wires the HTTP API, the websocket stream and the metrics endpoint
func SetupRouter(apiHandler *APIHandler, gatherer prometheus.Gatherer) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", apiHandler.HandleHealth)
	r.Get("/ws", apiHandler.HandleWebSocket)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/monitoring", apiHandler.HandleMonitoring)
		r.Get("/thresholds", apiHandler.HandleGetThresholds)
		r.Put("/thresholds", apiHandler.HandlePutThresholds)
		r.Get("/stations", apiHandler.HandleStations)
		r.Get("/analysis", apiHandler.HandleAnalysis)
	})

	return r
}
