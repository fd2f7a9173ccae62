// Package publish forwards freshly built snapshots to downstream consumers.
package publish

import (
	"encoding/json"
	"fmt"

	"github.com/DarkZek/christchurch-bus-mural/internal/models"
)

// MessageKey keys every snapshot message so compaction keeps only the latest.
const MessageKey = "snapshot"

// Publisher receives every new snapshot. Publish must not block.
type Publisher interface {
	Publish(snap models.Snapshot)
	Close()
}

// Encode renders a snapshot exactly as the HTTP endpoint does.
func Encode(snap models.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}
