package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/marinesafe/safety-advisor/internal/auth"
	"github.com/marinesafe/safety-advisor/internal/chat"
	"github.com/marinesafe/safety-advisor/internal/common"
	"github.com/marinesafe/safety-advisor/internal/export"
	"github.com/marinesafe/safety-advisor/internal/extract"
	"github.com/marinesafe/safety-advisor/internal/llm"
	"github.com/marinesafe/safety-advisor/internal/raster"
	"github.com/marinesafe/safety-advisor/internal/repository"
	"github.com/marinesafe/safety-advisor/internal/server"
)

func main() {
	// Logger
	zlog, _ := zap.NewProduction()
	defer zlog.Sync()
	log := zlog.Sugar()

	// Env
	if err := godotenv.Load(); err != nil {
		log.Debugw("no .env file loaded", "error", err)
	}
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// DB
	db, pool, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		log.Fatalf("opening DB pool: %v", err)
	}
	defer repository.Close(db, pool, logger)

	if err := repository.HealthCheck(ctx, pool, cfg.Database.HealthTimeout, logger); err != nil {
		log.Fatalf("DB health failed: %v", err)
	}
	log.Infow("DB health OK")

	// Services
	incidents := repository.NewIncidentRepository(db, logger)

	rasterizer := raster.New(raster.Config{
		Pdftoppm:  cfg.Raster.Pdftoppm,
		Pdftotext: cfg.Raster.Pdftotext,
		DPI:       cfg.Raster.DPI,
		MaxPages:  cfg.Raster.MaxPages,
	}, logger)

	vision := llm.NewClient(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Referer: cfg.LLM.Referer,
		Title:   cfg.LLM.Title,
		Timeout: cfg.LLM.Timeout,
	}, logger)

	engine := extract.NewEngine(rasterizer, vision, logger)

	verifier := auth.NewSupabase(auth.Config{
		URL:            cfg.Auth.URL,
		ServiceRoleKey: cfg.Auth.ServiceRoleKey,
		JWTSecret:      cfg.Auth.JWTSecret,
		Timeout:        cfg.Auth.Timeout,
	}, logger)

	agent := chat.NewAgent(incidents, vision, logger)
	exporter := export.NewService(incidents, logger)

	// HTTP server
	srv := server.New(verifier, incidents, engine, agent, exporter, cfg.Server.FrontendURL, logger)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(),
	}

	go func() {
		log.Infof("HTTP serving on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf("http shutdown: %v", err)
	}
	log.Info("stopped.")
}
