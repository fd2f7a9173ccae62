// Package models defines shared data types
package models

import "time"

// RouteInfo is the human-facing metadata of one route
type RouteInfo struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// UnknownRoute is served for vehicles whose route is missing from the static table
var UnknownRoute = RouteInfo{Code: "?", Name: "?", Color: "000000"}

// RouteTable maps route_id to its metadata
type RouteTable map[string]RouteInfo

// VehiclePosition is raw telemetry from the real-time feed
type VehiclePosition struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Bearing   float64 `json:"bearing"`
	Speed     float64 `json:"speed"`
}

// PositionRecord is a decoded feed entity: a position and the route it reports
type PositionRecord struct {
	RouteID  string
	Position VehiclePosition
}

// BusInfo is a position enriched with route metadata
type BusInfo struct {
	Position VehiclePosition `json:"position"`
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Color    string          `json:"color"`
}

// Snapshot is the unit served to readers. It is never mutated once built.
type Snapshot struct {
	Buses       []BusInfo `json:"buses"`
	LastUpdated time.Time `json:"lastUpdated"`
}
