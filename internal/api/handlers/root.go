package handlers

import (
	"net/http"
)

type RootHandler struct{}

func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

func (h *RootHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "christchurch-bus-mural",
		"description": "Live Christchurch Metro bus positions",
		"version":     "1.0.0",
		"endpoints": map[string]string{
			"GET /api":       "API information",
			"GET /health":    "Health check",
			"GET /data.json": "Current bus snapshot",
			"GET /api/buses": "Current bus snapshot (?lat=&lng=&radius=, ?route=)",
		},
	})
}

func (h *RootHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":   "Route not found",
		"message": "Check the /api endpoint for available routes",
	})
}
