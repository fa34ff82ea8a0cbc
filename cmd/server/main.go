package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/amiyamandal-dev/spacesfeed/internal/app"
	"github.com/amiyamandal-dev/spacesfeed/internal/config"
	"github.com/amiyamandal-dev/spacesfeed/pkg/logger"
)

func main() {
	flags := pflag.NewFlagSet("spacesfeed-server", pflag.ExitOnError)
	configFile := flags.String("config", "", "path to a config file (default ./configs/config.yaml)")
	flags.Int("port", 0, "listen port")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("storage-path", "", "badger directory; empty keeps data in memory")
	_ = flags.Parse(os.Args[1:])

	v := config.NewViper()
	if *configFile != "" {
		v.SetConfigFile(*configFile)
	}
	// unset flags fall back to config and environment values
	_ = v.BindPFlag("server.port", flags.Lookup("port"))
	_ = v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("storage.path", flags.Lookup("storage-path"))

	// Load configuration
	cfg, err := config.Load(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting spacesfeed server",
		"version", "1.0.0",
		"mode", cfg.Server.Mode,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	container, err := app.NewContainer(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize server", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	count, _ := container.Index.Count()
	log.Info("Search index opened", "path", cfg.Search.IndexPath, "document_count", count)

	// value log GC runs until shutdown
	if cfg.Storage.Path != "" {
		go container.DB.RunGC(ctx, cfg.Storage.GCInterval)
	}

	addr := cfg.Server.Addr()
	server := &http.Server{
		Addr:         addr,
		Handler:      container.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Server stopped gracefully")
}
