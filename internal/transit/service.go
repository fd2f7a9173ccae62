package transit

import (
	"context"
	"log/slog"
	"time"

	"github.com/DarkZek/christchurch-bus-mural/internal/cache"
	"github.com/DarkZek/christchurch-bus-mural/internal/models"
)

// RouteLoader supplies the static route table
type RouteLoader interface {
	Load(ctx context.Context) (models.RouteTable, error)
	Count() int
	Skipped() int
}

// PositionFetcher supplies decoded vehicle positions
type PositionFetcher interface {
	Fetch(ctx context.Context) ([]models.PositionRecord, error)
}

// BusService serves enriched bus snapshots, refreshing them from upstream
// at most once per TTL.
type BusService struct {
	routes   RouteLoader
	vehicles PositionFetcher
	cache    *cache.Cache[[]models.BusInfo]
}

// NewBusService wires the loaders into a staleness-gated cache
func NewBusService(routes RouteLoader, vehicles PositionFetcher, opts cache.Options) *BusService {
	s := &BusService{routes: routes, vehicles: vehicles}
	s.cache = cache.New(s.refresh, opts)
	return s
}

// refresh runs one full cycle. Any error leaves the cache untouched.
func (s *BusService) refresh(ctx context.Context) ([]models.BusInfo, error) {
	start := time.Now()

	table, err := s.routes.Load(ctx)
	if err != nil {
		slog.Error("route load failed", "class", ErrorClass(err), "error", err)
		return nil, err
	}

	positions, err := s.vehicles.Fetch(ctx)
	if err != nil {
		slog.Error("vehicle fetch failed", "class", ErrorClass(err), "error", err)
		return nil, err
	}

	buses := Join(positions, table)
	slog.Info("Successfully fetched bus data",
		"buses", len(buses),
		"routes", len(table),
		"skipped", s.routes.Skipped(),
		"duration", time.Since(start).String(),
	)
	return buses, nil
}

// Snapshot returns the current snapshot, refreshing it first when stale.
// After a failed refresh the previous snapshot is returned together with a
// *cache.StaleError; before any success the error wraps cache.ErrNoData.
func (s *BusService) Snapshot(ctx context.Context) (models.Snapshot, error) {
	e, err := s.cache.Get(ctx)
	if e == nil {
		return models.Snapshot{}, err
	}
	return toSnapshot(e), err
}

// Status reports the cache state without triggering a refresh.
func (s *BusService) Status() Status {
	st := Status{
		Routes:    s.routes.Count(),
		Skipped:   s.routes.Skipped(),
		Refreshes: s.cache.Refreshes(),
		TTL:       s.cache.TTL(),
	}
	if e := s.cache.Peek(); e != nil {
		st.Populated = true
		st.Buses = len(e.Value)
		st.LastUpdated = e.UpdatedAt
	}
	return st
}

// OnSnapshot registers fn to receive every newly built snapshot.
func (s *BusService) OnSnapshot(fn func(models.Snapshot)) {
	s.cache.OnUpdate(func(e *cache.Entry[[]models.BusInfo]) {
		fn(toSnapshot(e))
	})
}

// Run keeps the snapshot warm in the background until ctx is done.
func (s *BusService) Run(ctx context.Context) {
	s.cache.Run(ctx, nil)
}

// Status summarises the cache for health checks
type Status struct {
	Populated   bool          `json:"populated"`
	Buses       int           `json:"buses"`
	Routes      int           `json:"routes"`
	Skipped     int           `json:"skipped_rows"`
	Refreshes   int64         `json:"refreshes"`
	LastUpdated time.Time     `json:"last_updated,omitzero"`
	TTL         time.Duration `json:"-"`
}

func toSnapshot(e *cache.Entry[[]models.BusInfo]) models.Snapshot {
	return models.Snapshot{Buses: e.Value, LastUpdated: e.UpdatedAt}
}
