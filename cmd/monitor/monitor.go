package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/abelzeko/awlr-monitor/internal/api"
	"github.com/abelzeko/awlr-monitor/internal/config"
	"github.com/abelzeko/awlr-monitor/internal/integration/openai"
	"github.com/abelzeko/awlr-monitor/internal/metrics"
	"github.com/abelzeko/awlr-monitor/internal/monitoring"
	"github.com/abelzeko/awlr-monitor/internal/repository"
	"github.com/abelzeko/awlr-monitor/internal/usecases"
	"github.com/abelzeko/awlr-monitor/internal/websocket"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting AWLR Monitor...")

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize repository
	repo, err := repository.NewSQLiteRepository(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}
	defer repo.Close()

	seed := cfg.Monitor.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	monitor, err := monitoring.NewMonitor(monitoring.Options{
		Interval:     cfg.Monitor.TickInterval,
		HistorySize:  cfg.Monitor.HistorySize,
		InitialLevel: cfg.Monitor.InitialLevel,
		Thresholds:   cfg.Monitor.Thresholds,
		Rand:         rand.New(rand.NewSource(seed)),
	})
	if err != nil {
		log.Fatalf("Failed to initialize monitor: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)

	// The natural-language agent is optional
	var openAIService openai.OpenAIService
	if cfg.OpenAI.APIKey != "" {
		openAIService, err = openai.NewOpenAIService(cfg.OpenAI.APIKey)
		if err != nil {
			log.Fatalf("Failed to initialize OpenAI service: %v", err)
		}
	} else {
		log.Println("OPENAI_API_KEY not set, free-text queries fall back to the help text")
	}

	useCase := usecases.NewMonitoringUseCase(monitor, repo, repo, openAIService, recorder)
	if err := useCase.EnsureStations(); err != nil {
		log.Printf("Failed to seed station catalog: %v", err)
	}
	defer useCase.Start()()

	hub := websocket.NewHub()
	defer monitor.Subscribe(hub.BroadcastSnapshot)()

	var wg sync.WaitGroup
	run := func(name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
			log.Printf("%s finished", name)
		}()
	}

	run("websocket hub", func() { hub.Run(ctx) })
	run("monitor", func() {
		if err := monitor.Run(ctx); err != nil {
			log.Printf("Monitor stopped with error: %v", err)
			stop()
		}
	})

	if cfg.Telegram.Token != "" {
		telegramBot, err := api.NewTelegramBot(cfg.Telegram.Token, useCase)
		if err != nil {
			log.Fatalf("Failed to initialize Telegram bot: %v", err)
		}
		run("telegram bot", func() { telegramBot.Start(ctx) })
	} else {
		log.Println("TELEGRAM_BOT_TOKEN not set, Telegram bot disabled")
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.SetupRouter(api.NewAPIHandler(useCase, hub), registry),
		ReadHeaderTimeout: 10 * time.Second,
	}
	run("http server", func() {
		log.Printf("HTTP server listening on %s", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server failed: %v", err)
			stop()
		}
	})

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("AWLR Monitor stopped")
}
