package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cic2nf/internal/config"
	"cic2nf/internal/logger"
	"cic2nf/internal/query"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	dir := flag.String("dir", "", "directory of .nf label files (overrides output_dir)")
	addr := flag.String("addr", "", "listen address (overrides api.listen_addr)")
	flag.Parse()

	// Load configuration
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			logger.Setup("info", "console", logger.FileOptions{})
			log := logger.Get("nf-api")
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
	}
	if *dir != "" {
		cfg.OutputDir = *dir
	}
	if *addr != "" {
		cfg.API.ListenAddr = *addr
	}

	closer := logger.Setup(cfg.Log.Level, cfg.Log.Format, logger.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	defer closer.Close()
	log := logger.Get("nf-api")

	// Start HTTP server
	server := &http.Server{
		Addr:              cfg.API.ListenAddr,
		Handler:           query.NewRouter(query.NewFileQuerier(cfg.OutputDir)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Str("dir", cfg.OutputDir).Msg("API server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("addr", server.Addr).Msg("Could not listen")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("API server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}
	log.Info().Msg("API server exited.")
}
