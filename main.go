package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"danang-green/config"
	"danang-green/geocode"
	"danang-green/handlers"
	"danang-green/kv"
	"danang-green/ledger"
	"danang-green/mapsync"
	"danang-green/media"
	"danang-green/metrics"
	"danang-green/rabbitmq"
	"danang-green/service"
	"danang-green/simulator"
	"danang-green/store"
	"danang-green/websocket"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if lvl, err := log.ParseLevel(cfg.LogLevel); err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, keeping info", cfg.LogLevel)
	} else {
		log.SetLevel(lvl)
	}
	metrics.Register()

	startCtx, cancelStart := context.WithTimeout(context.Background(), time.Minute)
	defer cancelStart()

	// Durable mirror
	backend, closeBackend, err := kv.Open(startCtx, cfg)
	if err != nil {
		log.Fatalf("Failed to open storage backend: %v", err)
	}
	defer closeBackend()

	reports := store.New(backend, cfg.StorageKeyPrefix)
	if err := reports.Load(startCtx, store.SeedReports(time.Now())); err != nil {
		log.Fatalf("Failed to load reports: %v", err)
	}
	go reports.Run()

	points := ledger.New(backend, cfg.StorageKeyPrefix)
	if err := points.Load(startCtx); err != nil {
		log.Fatalf("Failed to load reward points: %v", err)
	}

	// Media
	files, err := media.NewLocalStore(cfg.MediaDir, cfg.MediaBaseURL)
	if err != nil {
		log.Fatalf("Failed to prepare media directory: %v", err)
	}
	ingestor := media.NewIngestor(files, media.NewFFmpegExtractor(cfg.FFmpegPath, cfg.FFprobePath), cfg.MediaDecodeTimeout, cfg.MaxUploadBytes)

	classifier, err := service.NewClassifier(cfg)
	if err != nil {
		log.Fatalf("Failed to create classifier: %v", err)
	}

	// Map stream and events
	searcher := geocode.NewClient(cfg.GeocodeBaseURL, cfg.GeocodeRegion, cfg.GeocodeTimeout)
	hub := websocket.NewHub(reports, searcher)
	go hub.Run()

	publishers := service.Publishers{hub}
	var publisher *rabbitmq.Publisher
	if cfg.RabbitMQ.Enabled() {
		publisher, err = rabbitmq.NewPublisher(cfg.RabbitMQ)
		if err != nil {
			log.Fatalf("Failed to create RabbitMQ publisher: %v", err)
		}
		defer publisher.Close()
		publishers = append(publishers, publisher)
		log.Infof("Publishing report events to exchange %s", cfg.RabbitMQ.Exchange)
	}

	pipeline := service.NewPipeline(ingestor, classifier, reports, points, publishers, service.Options{
		ClassifierTimeout: cfg.ClassifierTimeout,
		TrashCheck:        cfg.ClassifierTrashCheck,
		RewardPoints:      cfg.RewardPoints,
	})

	var sim *simulator.Simulator
	if cfg.SimulatorEnabled {
		sim = simulator.New(reports, publishers, cfg.SimulatorInterval, time.Now().UnixNano())
		sim.Start()
	}

	// Setup HTTP server
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handlers.NewHandlers(pipeline, reports, points, searcher, hub, mapsync.DaNangPOIs(), files)
	router := handlers.SetupRouter(h, cfg.AllowedOrigins)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	if sim != nil {
		sim.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}
	hub.Stop()

	if err := reports.Close(ctx); err != nil {
		log.WithError(err).Error("Failed to flush reports on shutdown")
	}
	if err := points.Save(ctx); err != nil {
		log.WithError(err).Error("Failed to save reward points on shutdown")
	}

	log.Info("Server exited")
}
