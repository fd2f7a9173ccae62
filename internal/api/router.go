package api

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/DarkZek/christchurch-bus-mural/internal/api/handlers"
	"github.com/DarkZek/christchurch-bus-mural/internal/config"
)

const minRequestTimeout = 15 * time.Second

// NewRouter creates and configures the HTTP router with all routes and middleware
func NewRouter(cfg *config.Config, buses handlers.BusProvider, webFS fs.FS) http.Handler {
	mux := http.NewServeMux()

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(buses)
	rootHandler := handlers.NewRootHandler()
	busHandler := handlers.NewBusHandler(buses)

	// Serve frontend (if provided)
	if webFS != nil {
		mux.Handle("GET /", http.FileServer(http.FS(webFS)))
	} else {
		mux.HandleFunc("GET /{$}", rootHandler.Index)
		mux.HandleFunc("/", rootHandler.NotFound)
	}

	// Core routes
	mux.HandleFunc("GET /api", rootHandler.Index)
	mux.HandleFunc("GET /health", healthHandler.Health)

	// Bus snapshot
	mux.HandleFunc("GET /data.json", busHandler.GetBuses)
	mux.HandleFunc("GET /api/buses", busHandler.GetBuses)

	// A request may have to wait out a full refresh.
	timeout := max(minRequestTimeout, cfg.RefreshTimeout()+5*time.Second)

	// Apply middleware stack
	handler := Chain(mux,
		Recovery,
		Logging,
		CORS,
		Timeout(timeout),
	)

	return handler
}
