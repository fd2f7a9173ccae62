package handlers

import (
	"context"

	"github.com/DarkZek/christchurch-bus-mural/internal/models"
	"github.com/DarkZek/christchurch-bus-mural/internal/transit"
)

// BusProvider abstracts the bus snapshot source for testability.
type BusProvider interface {
	Snapshot(ctx context.Context) (models.Snapshot, error)
	Status() transit.Status
}
