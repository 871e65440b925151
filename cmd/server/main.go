package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mbxtn/vizzerdrix-server/internal/config"
	"github.com/mbxtn/vizzerdrix-server/internal/room"
	"github.com/mbxtn/vizzerdrix-server/internal/server"
	"github.com/mbxtn/vizzerdrix-server/internal/session"
)

var (
	configPath = flag.String("config", "", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting vizzerdrix server",
		zap.String("version", version),
		zap.String("address", cfg.Server.Address),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	registry := room.NewRegistry(cfg.Game.StartingLife, logger)
	logger.Info("room registry initialized",
		zap.Int("starting_life", cfg.Game.StartingLife),
	)

	sessions := session.NewManager(
		cfg.Session.TTL,
		cfg.Session.SweepInterval,
		clockwork.NewRealClock(),
		logger,
	)
	logger.Info("session manager initialized",
		zap.Duration("ttl", cfg.Session.TTL),
		zap.Duration("sweep_interval", cfg.Session.SweepInterval),
	)

	hub := server.NewHub(registry, sessions, logger)

	// Sweep expired disconnected sessions and splice their stale turn slots.
	go sessions.Run(ctx, hub.HandleExpired)

	srv := server.NewServer(cfg.Server, hub, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
		return
	}

	logger.Info("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("vizzerdrix server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
