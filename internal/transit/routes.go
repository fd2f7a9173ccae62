package transit

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DarkZek/christchurch-bus-mural/internal/models"
	"github.com/DarkZek/christchurch-bus-mural/internal/store"
)

// RoutesMember is the bundle member holding the route table
const RoutesMember = "routes.txt"

// RouteService loads the static route table once per process. The bundle is
// persisted in a store so restarts do not re-download it.
type RouteService struct {
	bundleURL string
	bundleKey string
	client    *feedClient
	store     store.Store

	mu      sync.Mutex
	table   atomic.Pointer[models.RouteTable]
	skipped atomic.Int64
}

// NewRouteService creates a route loader backed by st
func NewRouteService(apiKey, bundleURL, bundleKey string, st store.Store, timeout time.Duration) *RouteService {
	return &RouteService{
		bundleURL: bundleURL,
		bundleKey: bundleKey,
		client:    newFeedClient(apiKey, timeout),
		store:     st,
	}
}

// Load returns the route table, loading it on the first successful call.
// Failed loads install nothing and are retried on the next call.
func (s *RouteService) Load(ctx context.Context) (models.RouteTable, error) {
	if t := s.table.Load(); t != nil {
		return *t, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t := s.table.Load(); t != nil {
		return *t, nil
	}

	data, fetched, err := s.bundle(ctx)
	if err != nil {
		return nil, err
	}

	table, skipped, err := ParseBundle(data)
	if err != nil {
		if fetched {
			// Don't keep re-parsing a broken download after a restart.
			if derr := s.store.Delete(ctx, s.bundleKey); derr != nil {
				slog.Warn("removing malformed bundle", "key", s.bundleKey, "error", derr)
			}
		}
		return nil, err
	}

	if skipped > 0 {
		slog.Warn("skipped malformed route rows", "rows", skipped)
	}
	s.skipped.Store(int64(skipped))
	s.table.Store(&table)
	slog.Info("route table loaded", "routes", len(table), "downloaded", fetched)

	return table, nil
}

// bundle returns the persisted bundle, downloading and persisting it on a miss.
func (s *RouteService) bundle(ctx context.Context) (data []byte, fetched bool, err error) {
	exists, err := s.store.Exists(ctx, s.bundleKey)
	if err != nil {
		return nil, false, fmt.Errorf("checking cached bundle: %w", err)
	}

	if exists {
		slog.Info("using cached bundle", "key", s.bundleKey)
		data, err = s.store.Get(ctx, s.bundleKey)
		if err != nil {
			return nil, false, fmt.Errorf("reading cached bundle: %w", err)
		}
		return data, false, nil
	}

	slog.Info("fetching static bundle", "key", s.bundleKey)
	data, err = s.client.get(ctx, s.bundleURL)
	if err != nil {
		return nil, false, fmt.Errorf("fetching static bundle: %w", err)
	}

	if err := s.store.Put(ctx, s.bundleKey, data); err != nil {
		slog.Warn("persisting static bundle", "key", s.bundleKey, "error", err)
	}
	return data, true, nil
}

// IsLoaded returns true if the route table has been loaded
func (s *RouteService) IsLoaded() bool {
	return s.table.Load() != nil
}

// Count returns the number of loaded routes
func (s *RouteService) Count() int {
	if t := s.table.Load(); t != nil {
		return len(*t)
	}
	return 0
}

// Skipped returns how many rows the last successful load dropped
func (s *RouteService) Skipped() int {
	return int(s.skipped.Load())
}

// ParseBundle extracts routes.txt from a zipped GTFS bundle and parses it.
func ParseBundle(data []byte) (models.RouteTable, int, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrBundleMalformed, err)
	}

	f, err := zr.Open(RoutesMember)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s missing: %w", ErrBundleMalformed, RoutesMember, err)
	}
	defer f.Close()

	return ParseRoutes(f)
}

type routeColumns struct {
	id, shortName, longName, color int
}

// routes.txt field order when the file carries no header:
// route_id,agency_id,route_short_name,route_long_name,route_desc,route_type,route_url,route_color
var positionalColumns = routeColumns{id: 0, shortName: 2, longName: 3, color: 7}

func (c routeColumns) width() int {
	return max(c.id, c.shortName, c.longName, c.color) + 1
}

func headerColumns(row []string) (routeColumns, bool) {
	cols := routeColumns{id: -1, shortName: -1, longName: -1, color: -1}
	for i, name := range row {
		switch strings.TrimSpace(name) {
		case "route_id":
			cols.id = i
		case "route_short_name":
			cols.shortName = i
		case "route_long_name":
			cols.longName = i
		case "route_color":
			cols.color = i
		}
	}
	return cols, cols.id >= 0
}

func field(row []string, i int) string {
	if i < 0 {
		return ""
	}
	return row[i]
}

// ParseRoutes builds a route table from routes.txt content. A leading header
// row selects columns by name; otherwise the positional layout is assumed.
// Rows too short to hold every column are skipped and counted.
func ParseRoutes(r io.Reader) (models.RouteTable, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	table := make(models.RouteTable)
	cols := positionalColumns
	skipped := 0
	first := true

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			skipped++
			continue
		} else if err != nil {
			return nil, 0, fmt.Errorf("%w: reading %s: %w", ErrBundleMalformed, RoutesMember, err)
		}

		if first {
			first = false
			if len(row) > 0 {
				row[0] = strings.TrimPrefix(row[0], "\ufeff")
			}
			if hdr, ok := headerColumns(row); ok {
				cols = hdr
				continue
			}
		}

		if len(row) < cols.width() || row[cols.id] == "" {
			skipped++
			continue
		}

		table[row[cols.id]] = models.RouteInfo{
			Code:  field(row, cols.shortName),
			Name:  field(row, cols.longName),
			Color: field(row, cols.color),
		}
	}

	if len(table) == 0 {
		return nil, skipped, fmt.Errorf("%w: %s has no routes", ErrBundleMalformed, RoutesMember)
	}
	return table, skipped, nil
}
