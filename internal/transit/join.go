package transit

import "github.com/DarkZek/christchurch-bus-mural/internal/models"

// Join enriches each position with its route metadata, preserving order.
// Unknown routes get models.UnknownRoute.
func Join(positions []models.PositionRecord, table models.RouteTable) []models.BusInfo {
	buses := make([]models.BusInfo, 0, len(positions))
	for _, p := range positions {
		route, ok := table[p.RouteID]
		if !ok {
			route = models.UnknownRoute
		}
		buses = append(buses, models.BusInfo{
			Position: p.Position,
			Code:     route.Code,
			Name:     route.Name,
			Color:    route.Color,
		})
	}
	return buses
}
