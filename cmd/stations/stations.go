package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/abelzeko/awlr-monitor/internal/config"
	"github.com/abelzeko/awlr-monitor/internal/integration"
	"github.com/abelzeko/awlr-monitor/internal/repository"
	"github.com/abelzeko/awlr-monitor/internal/usecases"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting AWLR station importer...")

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Stations.SourceURL == "" {
		log.Fatal("AWLR_STATIONS_URL environment variable is not set")
	}

	// Initialize repository
	repo, err := repository.NewSQLiteRepository(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}
	defer repo.Close()

	useCase := usecases.NewStationUseCase(repo, integration.NewStationScraper(cfg.Stations.SourceURL))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	refresh := func() {
		n, err := useCase.RefreshStations(ctx)
		if err != nil {
			log.Printf("Station refresh failed: %v", err)
			return
		}
		log.Printf("Station catalog refreshed with %d stations", n)
	}

	// Run immediately on startup
	refresh()

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(cfg.Stations.RefreshSchedule, refresh); err != nil {
		log.Fatalf("Failed to set up cron job: %v", err)
	}

	log.Printf("Station refresh scheduled with %q", cfg.Stations.RefreshSchedule)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	log.Println("Station importer stopped")
}
