package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/fortuna/roster/internal/metrics"
)

// Server represents the REST API server
type Server struct {
	port    string
	server  *http.Server
	router  *mux.Router
	handler *Handler
}

// NewServer creates a new REST API server. m may be nil.
func NewServer(port string, handler *Handler, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("rest")

	router := mux.NewRouter()

	// Apply middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggingMiddleware(logger))
	router.Use(CORSMiddleware)
	if m != nil {
		router.Use(MetricsMiddleware(m))
		router.Handle("/metrics", m.Handler()).Methods("GET")
	}

	// CORS preflight
	router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Page and its forms
	router.HandleFunc("/", handler.Page).Methods("GET")
	router.HandleFunc("/players", handler.SubmitCreatePlayer).Methods("POST")
	router.HandleFunc("/players/{playerID}", handler.SubmitEditPlayer).Methods("POST")
	router.HandleFunc("/players/{playerID}/delete", handler.SubmitDeletePlayer).Methods("POST")
	router.HandleFunc("/players/{playerID}/transfer", handler.SubmitTransfer).Methods("POST")

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Roster
	api.HandleFunc("/roster", handler.GetRoster).Methods("GET")
	api.HandleFunc("/roster/reload", handler.ReloadRoster).Methods("POST")
	api.HandleFunc("/roster/reset", handler.ResetRoster).Methods("POST")

	// Players
	api.HandleFunc("/players", handler.CreatePlayer).Methods("POST")
	api.HandleFunc("/players/{playerID}", handler.UpdatePlayer).Methods("PUT")
	api.HandleFunc("/players/{playerID}", handler.DeletePlayer).Methods("DELETE")
	api.HandleFunc("/players/{playerID}/transfer", handler.TransferPlayer).Methods("POST")

	// Finances
	api.HandleFunc("/transactions", handler.RecordTransaction).Methods("POST")
	api.HandleFunc("/audit", handler.GetAudit).Methods("GET")
	api.HandleFunc("/events", handler.GetEvents).Methods("GET")

	return &Server{
		port:    port,
		router:  router,
		handler: handler,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Router returns the configured routes.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the REST API server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
