package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/DarkZek/christchurch-bus-mural/internal/cache"
	"github.com/DarkZek/christchurch-bus-mural/internal/location"
	"github.com/DarkZek/christchurch-bus-mural/internal/models"
	"github.com/DarkZek/christchurch-bus-mural/internal/transit"
)

const (
	defaultBusRadius = 1000 // meters
	minBusRadius     = 50
	maxBusRadius     = 50000
)

// StaleHeader is set on responses served from a snapshot whose refresh failed.
const StaleHeader = "X-Data-Stale"

type BusHandler struct {
	buses BusProvider
}

func NewBusHandler(buses BusProvider) *BusHandler {
	return &BusHandler{buses: buses}
}

// GetBuses returns the current snapshot, optionally filtered by area and route
func (h *BusHandler) GetBuses(w http.ResponseWriter, r *http.Request) {
	area, ok, err := parseArea(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": err.Error(),
		})
		return
	}

	snap, err := h.buses.Snapshot(r.Context())
	if err != nil {
		var stale *cache.StaleError
		if !errors.As(err, &stale) {
			writeSnapshotError(w, err)
			return
		}
		slog.Warn("serving stale snapshot", "last_updated", stale.UpdatedAt, "class", transit.ErrorClass(err))
		w.Header().Set(StaleHeader, "true")
	}

	if ok {
		snap = filterArea(snap, area)
	}
	if codes := routeCodes(r.URL.Query().Get("route")); len(codes) > 0 {
		snap = filterRoutes(snap, codes)
	}

	writeJSON(w, http.StatusOK, snap)
}

func writeSnapshotError(w http.ResponseWriter, err error) {
	class := transit.ErrorClass(err)
	slog.Error("snapshot unavailable", "class", class, "error", err)

	message := "refresh failed"
	if errors.Is(err, cache.ErrNoData) {
		message = "no data yet"
	}

	writeJSON(w, statusForError(err), map[string]any{
		"error":   message,
		"class":   class,
		"message": err.Error(),
	})
}

// statusForError maps a failed read to an HTTP status. A malformed bundle is
// our problem even before the first snapshot; anything else that leaves us
// with no data is reported as temporarily unavailable.
func statusForError(err error) int {
	switch {
	case errors.Is(err, transit.ErrBundleMalformed):
		return http.StatusInternalServerError
	case errors.Is(err, cache.ErrNoData):
		return http.StatusServiceUnavailable
	case errors.Is(err, transit.ErrUpstreamUnavailable), errors.Is(err, transit.ErrDecode):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseArea(r *http.Request) (location.Area, bool, error) {
	latStr := r.URL.Query().Get("lat")
	lngStr := r.URL.Query().Get("lng")

	if latStr == "" && lngStr == "" {
		return location.Area{}, false, nil
	}
	if latStr == "" || lngStr == "" {
		return location.Area{}, false, errors.New("lat and lng query parameters must be given together")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return location.Area{}, false, errors.New("invalid lat parameter")
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return location.Area{}, false, errors.New("invalid lng parameter")
	}
	if !location.ValidCoordinates(lat, lng) {
		return location.Area{}, false, errors.New("lat/lng out of range")
	}

	radius := parseIntQueryParam(r, "radius", defaultBusRadius, minBusRadius, maxBusRadius)
	return location.Area{Lat: lat, Lng: lng, RadiusMeters: float64(radius)}, true, nil
}

// filterArea and filterRoutes build new slices; the cached snapshot is shared
// between requests and must not be modified.
func filterArea(snap models.Snapshot, area location.Area) models.Snapshot {
	buses := make([]models.BusInfo, 0, len(snap.Buses))
	for _, b := range snap.Buses {
		if area.Contains(b.Position.Latitude, b.Position.Longitude) {
			buses = append(buses, b)
		}
	}
	return models.Snapshot{Buses: buses, LastUpdated: snap.LastUpdated}
}

func filterRoutes(snap models.Snapshot, codes []string) models.Snapshot {
	buses := make([]models.BusInfo, 0, len(snap.Buses))
	for _, b := range snap.Buses {
		for _, code := range codes {
			if strings.EqualFold(b.Code, code) {
				buses = append(buses, b)
				break
			}
		}
	}
	return models.Snapshot{Buses: buses, LastUpdated: snap.LastUpdated}
}

// routeCodes splits a comma-separated ?route= value, dropping empty entries.
func routeCodes(param string) []string {
	var codes []string
	for _, code := range strings.Split(param, ",") {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}
