package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/curzel-it/battld/internal/api/handler"
	"github.com/curzel-it/battld/internal/api/middleware"
	"github.com/curzel-it/battld/internal/api/response"
	"github.com/curzel-it/battld/internal/metrics"
	basemw "github.com/curzel-it/battld/internal/middleware"
	"github.com/curzel-it/battld/internal/services/auth"
	"github.com/curzel-it/battld/internal/services/stats"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger       *slog.Logger
	AuthService  *auth.Service
	StatsService *stats.Service
	Metrics      *metrics.Metrics
	// WSHandler serves the realtime endpoint at /ws (optional)
	WSHandler http.Handler
}

// NewRouter creates a new router with the REST API, /ws and /metrics
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.AuthService)
	statsHandler := handler.NewStatsHandler(cfg.StatsService)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := basemw.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger, cfg.Metrics.HTTPPanics)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)
	api.Use(basemw.Instrument(cfg.Metrics.HTTPRequests))

	// Player routes (no auth required for registering/logging in)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/players/{id}/stats", statsHandler.PlayerStats).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", statsHandler.Leaderboard).Methods(http.MethodGet)

	// Protected player routes
	playerProtected := api.PathPrefix("/players").Subrouter()
	playerProtected.Use(authMiddleware)
	playerProtected.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// The upgrade hijacks the connection, so /ws skips the response wrappers
	if cfg.WSHandler != nil {
		r.Handle("/ws", cfg.WSHandler).Methods(http.MethodGet)
	}
	r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
