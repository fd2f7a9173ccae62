// Package handlers contains HTTP request handlers
package handlers

import (
	"net/http"
	"time"
)

type HealthHandler struct {
	startTime time.Time
	buses     BusProvider
}

func NewHealthHandler(buses BusProvider) *HealthHandler {
	return &HealthHandler{startTime: time.Now(), buses: buses}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	st := h.buses.Status()

	data := map[string]any{
		"populated": st.Populated,
		"buses":     st.Buses,
		"routes":    st.Routes,
		"skipped":   st.Skipped,
		"refreshes": st.Refreshes,
	}
	if st.Populated {
		age := time.Since(st.LastUpdated)
		data["last_updated"] = st.LastUpdated.UTC().Format(time.RFC3339)
		data["age"] = age.Round(time.Second).String()
		data["stale"] = age >= st.TTL
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   "1.0.0",
		"uptime":    time.Since(h.startTime).String(),
		"data":      data,
	})
}
