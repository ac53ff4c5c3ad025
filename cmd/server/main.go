package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/simaogato/noteval-backend/internal/adapter/httpapi"
	"github.com/simaogato/noteval-backend/internal/adapter/marketfeed"
	"github.com/simaogato/noteval-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/noteval-backend/internal/adapter/repository/sqlite"
	"github.com/simaogato/noteval-backend/internal/config"
	"github.com/simaogato/noteval-backend/internal/domain"
	"github.com/simaogato/noteval-backend/internal/usecase/evaluation"
	"github.com/simaogato/noteval-backend/internal/usecase/marketdata"
	"github.com/simaogato/noteval-backend/internal/usecase/scheduler"
	"github.com/simaogato/noteval-backend/internal/usecase/seeder"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 1. Setup Databases
	db, err := postgres.NewDB(cfg.Database.ConnString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	archive, err := sqlite.NewArchive(cfg.Archive.Path)
	if err != nil {
		log.Fatalf("Failed to open price archive: %v", err)
	}
	defer archive.Close()

	// 2. Initialize Repositories (Postgres + SQLite archive)
	priceRepo := postgres.NewPriceRepository(db)
	productRepo := postgres.NewProductRepository(db)

	// Store probe order: primary database, local archive, then Yahoo.
	stores := []domain.PriceStore{priceRepo, archive}
	if cfg.MarketData.YahooEnabled {
		stores = append(stores, marketfeed.NewYahooStore())
	}

	// 3. Initialize Services (Use Cases)
	marketService := marketdata.NewService(stores,
		marketdata.WithMaxDaysBack(cfg.MarketData.MaxDaysBack))
	runner := evaluation.NewRunner(marketService)

	// Seed the demo product so a fresh install has something to evaluate
	demoSeeder := seeder.NewDemoSeeder(productRepo, priceRepo)
	if err := demoSeeder.Seed(ctx); err != nil {
		log.Fatalf("Failed to seed demo product: %v", err)
	}
	log.Println("Demo product seeded successfully")

	// 4. Start the revaluation job
	revaluation := scheduler.New(productRepo, marketService)
	if err := revaluation.Start(cfg.Schedule.RevaluationCron); err != nil {
		log.Fatalf("Failed to start revaluation job: %v", err)
	}
	defer revaluation.Stop()

	// 5. Start HTTP Server
	server := httpapi.NewServer(productRepo, marketService, runner)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.Routes(cfg.Server.APIToken),
	}

	go func() {
		log.Printf("HTTP server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve HTTP server: %v", err)
		}
	}()

	// Graceful shutdown
	waitForShutdown(httpServer)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(httpServer *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal: %v. Shutting down gracefully...", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Println("HTTP server stopped")
}
