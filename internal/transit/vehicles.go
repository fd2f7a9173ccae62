package transit

import (
	"context"
	"fmt"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/DarkZek/christchurch-bus-mural/internal/models"
)

// VehicleService fetches the GTFS-Realtime vehicle positions feed
type VehicleService struct {
	feedURL string
	client  *feedClient
}

// NewVehicleService creates a new vehicle position fetcher
func NewVehicleService(apiKey, feedURL string, timeout time.Duration) *VehicleService {
	return &VehicleService{
		feedURL: feedURL,
		client:  newFeedClient(apiKey, timeout),
	}
}

// Fetch downloads and decodes the current vehicle positions
func (s *VehicleService) Fetch(ctx context.Context) ([]models.PositionRecord, error) {
	body, err := s.client.get(ctx, s.feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetching vehicle positions: %w", err)
	}
	return DecodePositions(body)
}

// DecodePositions parses a serialized FeedMessage. Entities without a vehicle
// position are skipped.
func DecodePositions(body []byte) ([]models.PositionRecord, error) {
	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return positionsFromFeed(feed), nil
}

func positionsFromFeed(feed *gtfs.FeedMessage) []models.PositionRecord {
	records := make([]models.PositionRecord, 0, len(feed.GetEntity()))

	for _, entity := range feed.GetEntity() {
		vehicle := entity.GetVehicle()
		if vehicle == nil || vehicle.GetPosition() == nil {
			continue
		}

		pos := vehicle.GetPosition()
		records = append(records, models.PositionRecord{
			RouteID: vehicle.GetTrip().GetRouteId(),
			Position: models.VehiclePosition{
				Latitude:  float64(pos.GetLatitude()),
				Longitude: float64(pos.GetLongitude()),
				Bearing:   float64(pos.GetBearing()),
				Speed:     float64(pos.GetSpeed()),
			},
		})
	}

	return records
}
