package mapsync

import (
	"danang-green/models"
)

// MoveTag identifies the engine command that caused a camera move.
// Surfaces report it back with the resulting viewport change; UserMove marks user pan/zoom.
type MoveTag uint64

const UserMove MoveTag = 0

// Size is the pixel size of the map container
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// TileLayer is a raster base layer
type TileLayer struct {
	URLTemplate string `json:"url"`
	Attribution string `json:"attribution"`
}

// OSMTiles is the OpenStreetMap base layer
var OSMTiles = TileLayer{
	URLTemplate: "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
	Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
}

// Surface is the imperative map widget driven by one Engine.
// Camera commands carry a MoveTag which the surface echoes when reporting the resulting viewport.
type Surface interface {
	Create(view models.ViewportState, size Size) error
	AddTileLayer(layer TileLayer) error
	// ReplaceMarkers swaps the whole marker layer in one step
	ReplaceMarkers(markers []Marker) error
	FlyTo(view models.ViewportState, tag MoveTag) error
	InvalidateSize() error
	Remove() error
}
