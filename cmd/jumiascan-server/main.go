package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"jumiascan/internal/api"
	"jumiascan/internal/browser"
	"jumiascan/internal/config"
	"jumiascan/internal/database"
	"jumiascan/internal/events"
	"jumiascan/internal/imaging"
	"jumiascan/internal/input"
	"jumiascan/internal/ratelimit"
	"jumiascan/internal/runs"
	"jumiascan/internal/scrape"
	"jumiascan/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	analyzer, err := imaging.NewAnalyzer(imaging.Options{
		ReferenceImageURL: cfg.Imaging.ReferenceImageURL,
		FetchTimeout:      cfg.Imaging.FetchTimeout,
		CacheSize:         cfg.Imaging.CacheSize,
	}, log)
	if err != nil {
		log.Error("failed to initialize image analyzer", "error", err)
		os.Exit(1)
	}

	auditor := scrape.NewPageAuditor(scrape.PageAuditorOptions{
		BrowserOptions: &browser.Options{
			Headless:       cfg.Scraper.Headless,
			Timeout:        time.Duration(cfg.Scraper.TimeoutSeconds) * time.Second,
			UserAgent:      cfg.Browser.UserAgent,
			ViewportWidth:  cfg.Browser.ViewportWidth,
			ViewportHeight: cfg.Browser.ViewportHeight,
		},
		Analyzer:   analyzer,
		Limiter:    ratelimit.New(cfg.Scraper.PolitenessMin, cfg.Scraper.PolitenessMax),
		BadgeCheck: cfg.Imaging.BadgeCheck,
	}, log)

	metrics := scrape.NewMetrics()
	orchestrator := scrape.NewOrchestrator(auditor, cfg.Scraper.Workers, metrics, log)

	publisher := events.NewPublisher(redisClient, cfg.Redis.Stream, log)
	normalizer := input.NewNormalizer(cfg.BaseURL())
	manager := runs.NewManager(db, orchestrator, normalizer, publisher, cfg.Scraper.Region, log)
	handlers := api.NewHandlers(manager, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
			"region": cfg.Scraper.Region,
		})
	})
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	r.Route("/api/v1", handlers.Routes)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server listening", "port", cfg.Server.Port, "region", cfg.Scraper.Region)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
