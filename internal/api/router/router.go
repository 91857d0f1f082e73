package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/scheddev/sched-go/internal/demo"
	httpmiddleware "github.com/scheddev/sched-go/internal/http/middleware"
	"github.com/scheddev/sched-go/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	MockService        *demo.MockService
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router serving the mock scheduling API under /v1.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.MockService != nil {
		r.Mount("/v1", cfg.MockService.Routes())
	}
	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
