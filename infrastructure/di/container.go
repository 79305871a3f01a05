package di

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"payflow-backend/application/services"
	"payflow-backend/infrastructure/config"
	"payflow-backend/infrastructure/monitoring"
	"payflow-backend/interfaces/http/rest"
)

// Container wires the application together: config, logging, the event
// monitor, the analysis service and the HTTP router. Everything is
// constructed eagerly so a bad configuration fails at startup.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Monitor  *monitoring.Monitor
	Streamer *monitoring.EventStreamer
	Catalog  *services.FunctionCatalog
	Service  *services.AnalysisService
	Handler  http.Handler
}

// NewContainer builds the full object graph from configuration
func NewContainer(cfg *config.Config) (*Container, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	monitor := monitoring.NewMonitor(cfg.MonitorCapacity, logger)
	streamer := monitoring.NewEventStreamer(monitor, cfg.StreamPollInterval, logger)
	catalog := services.NewFunctionCatalog()
	service := services.NewAnalysisService(catalog, monitor, logger)

	router := rest.NewRouter(cfg, service, catalog, monitor, streamer, logger)

	return &Container{
		Config:   cfg,
		Logger:   logger,
		Monitor:  monitor,
		Streamer: streamer,
		Catalog:  catalog,
		Service:  service,
		Handler:  router.Setup(),
	}, nil
}

// Close flushes buffered log entries
func (c *Container) Close() {
	_ = c.Logger.Sync()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = level

	return zapCfg.Build()
}
