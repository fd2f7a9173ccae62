package transit

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/DarkZek/christchurch-bus-mural/internal/store"
)

const testAPIKey = "test-key"

// sampleRoutes has four rows; the third lacks its trailing fields.
const sampleRoutes = `1,METRO,1,Rangiora | Cashmere,,3,,E0197D
3,METRO,3,Airport | Sumner,,3,,00AEEF
5,METRO,5,Rolleston | New Brighton,,3
7,METRO,7,Halswell | Queenspark,,3,,7AC143
`

func vehicleEntity(id, routeID string, lat, lng, bearing, speed float32) *gtfs.FeedEntity {
	return &gtfs.FeedEntity{
		Id: proto.String(id),
		Vehicle: &gtfs.VehiclePosition{
			Trip: &gtfs.TripDescriptor{RouteId: proto.String(routeID)},
			Position: &gtfs.Position{
				Latitude:  proto.Float32(lat),
				Longitude: proto.Float32(lng),
				Bearing:   proto.Float32(bearing),
				Speed:     proto.Float32(speed),
			},
		},
	}
}

func buildFeed(t *testing.T, entities ...*gtfs.FeedEntity) []byte {
	t.Helper()
	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(1760000000),
		},
		Entity: entities,
	}
	data, err := proto.Marshal(feed)
	if err != nil {
		t.Fatalf("marshal feed: %v", err)
	}
	return data
}

func buildBundle(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// upstream serves fixed bodies and counts requests, rejecting bad keys.
type upstream struct {
	*httptest.Server
	hits   atomic.Int64
	mu     sync.Mutex
	status int
	body   []byte
}

func newUpstream(t *testing.T, body []byte) *upstream {
	t.Helper()
	u := &upstream{status: http.StatusOK, body: body}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		if r.Header.Get(apiKeyHeader) != testAPIKey {
			http.Error(w, "missing subscription key", http.StatusUnauthorized)
			return
		}
		u.mu.Lock()
		status, body := u.status, u.body
		u.mu.Unlock()
		w.WriteHeader(status)
		w.Write(body)
	}))
	t.Cleanup(u.Close)
	return u
}

func (u *upstream) set(status int, body []byte) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status, u.body = status, body
}

// countingStore records writes made to an underlying store.
type countingStore struct {
	store.Store
	puts atomic.Int64
}

func (s *countingStore) Put(ctx context.Context, key string, data []byte) error {
	s.puts.Add(1)
	return s.Store.Put(ctx, key, data)
}

func newCountingStore(t *testing.T) *countingStore {
	t.Helper()
	fs, err := store.NewFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return &countingStore{Store: fs}
}
