package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"payflow-backend/infrastructure/config"
	"payflow-backend/infrastructure/di"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.NewContainer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Close()

	// Optional hot-reloaded limits for the event monitor.
	eventMaxAge := func() time.Duration { return cfg.EventMaxAge }
	if path := os.Getenv("DYNAMIC_CONFIG_FILE"); path != "" {
		watcher, err := config.NewConfigWatcher(path, container.Logger)
		if err != nil {
			container.Logger.Fatal("Failed to start config watcher", zap.Error(err))
		}
		eventMaxAge = func() time.Duration {
			return time.Duration(watcher.GetMonitoringLimits().EventMaxAgeHours) * time.Hour
		}
		applyLimits := func(limits config.MonitoringLimits) {
			age := time.Duration(limits.EventMaxAgeHours) * time.Hour
			removed := container.Monitor.ClearOldEvents(age)
			container.Monitor.SetQueryCap(limits.MaxEventsPerQuery)
			container.Streamer.SetBacklog(limits.StreamBacklogSize)
			container.Logger.Info("Applied monitoring limits",
				zap.Duration("eventMaxAge", age),
				zap.Int("maxEventsPerQuery", limits.MaxEventsPerQuery),
				zap.Int("streamBacklogSize", limits.StreamBacklogSize),
				zap.Int("eventsRemoved", removed),
			)
		}
		applyLimits(watcher.GetMonitoringLimits())
		watcher.OnChange(func(dc *config.DynamicConfig) {
			applyLimits(dc.Monitoring)
		})
		watcher.Start()
		defer watcher.Stop()
	}

	// Periodic purge of stale monitor events.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := container.Monitor.ClearOldEvents(eventMaxAge())
				if removed > 0 {
					container.Logger.Info("Purged old monitor events", zap.Int("removed", removed))
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:        cfg.ServerAddress,
		Handler:     container.Handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the monitoring stream endpoint holds its
		// response open indefinitely.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		container.Logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	container.Logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown error", zap.Error(err))
	}

	log.Println("Server stopped")
}
