package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"payflow-backend/application/services"
	"payflow-backend/infrastructure/config"
	"payflow-backend/infrastructure/monitoring"
	"payflow-backend/interfaces/http/rest/handlers"
	"payflow-backend/interfaces/http/rest/middleware"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg      *config.Config
	service  *services.AnalysisService
	catalog  *services.FunctionCatalog
	monitor  *monitoring.Monitor
	streamer *monitoring.EventStreamer
	logger   *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	service *services.AnalysisService,
	catalog *services.FunctionCatalog,
	monitor *monitoring.Monitor,
	streamer *monitoring.EventStreamer,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:      cfg,
		service:  service,
		catalog:  catalog,
		monitor:  monitor,
		streamer: streamer,
		logger:   logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.RateLimitPerMinute > 0 {
		router.Use(middleware.RateLimit(rt.cfg.RateLimitPerMinute, rt.logger))
	}

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		analysisHandler := handlers.NewAnalysisHandler(rt.service, rt.catalog, rt.logger)
		monitoringHandler := handlers.NewMonitoringHandler(rt.monitor, rt.streamer, rt.logger)

		r.Get("/functions", analysisHandler.ListFunctions)

		r.Route("/analyses", func(r chi.Router) {
			r.Post("/", analysisHandler.CreateAnalysis)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Post("/complete", analysisHandler.CompleteAnalysis)
				r.Post("/reset", analysisHandler.ResetAnalysis)
				r.Put("/source", analysisHandler.SetImpactSource)

				r.Get("/summary", analysisHandler.GetSummary)
				r.Get("/live-stats", analysisHandler.GetLiveStats)
				r.Get("/components", analysisHandler.GetComponents)
				r.Get("/structure", analysisHandler.GetStructure)
				r.Get("/execution-order", analysisHandler.GetExecutionOrder)
				r.Get("/outputs", analysisHandler.GetOutputVariables)
				r.Get("/export", analysisHandler.ExportAnalysis)

				r.Route("/variables", func(r chi.Router) {
					r.Post("/", analysisHandler.CreateVariable)
					r.Put("/{name}", analysisHandler.UpdateVariable)
					r.Delete("/{name}", analysisHandler.DeleteVariable)
				})

				r.Route("/nodes", func(r chi.Router) {
					r.Post("/", analysisHandler.CreateNode)
					r.Put("/{nodeID}", analysisHandler.UpdateNode)
					r.Delete("/{nodeID}", analysisHandler.DeleteNode)
					r.Post("/{nodeID}/execute", analysisHandler.ExecuteNode)
				})

				r.Route("/edges", func(r chi.Router) {
					r.Post("/", analysisHandler.CreateEdge)
					r.Delete("/", analysisHandler.DeleteEdge)
				})
			})
		})

		r.Route("/monitoring", func(r chi.Router) {
			r.Get("/events", monitoringHandler.GetRecentEvents)
			r.Get("/sessions", monitoringHandler.GetSessions)
			r.Get("/sessions/{sessionID}", monitoringHandler.GetSessionDetails)
			r.Get("/stream", monitoringHandler.StreamEvents)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
