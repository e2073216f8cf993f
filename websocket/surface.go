package websocket

import (
	"danang-green/mapsync"
	"danang-green/models"
)

const searchZoom = 16

// surface renders engine commands as JSON messages for the browser map
type surface struct {
	client *Client
}

var _ mapsync.Surface = (*surface)(nil)

func (s *surface) Create(view models.ViewportState, size mapsync.Size) error {
	return s.client.sendCommand(Command{Type: TypeCreate, View: &view, Size: &size})
}

func (s *surface) AddTileLayer(layer mapsync.TileLayer) error {
	return s.client.sendCommand(Command{Type: TypeTiles, Tiles: &layer})
}

func (s *surface) ReplaceMarkers(markers []mapsync.Marker) error {
	return s.client.sendCommand(Command{Type: TypeMarkers, Markers: markers})
}

func (s *surface) FlyTo(view models.ViewportState, tag mapsync.MoveTag) error {
	return s.client.sendCommand(Command{Type: TypeFlyTo, View: &view, Tag: tag})
}

func (s *surface) InvalidateSize() error {
	return s.client.sendCommand(Command{Type: TypeInvalidate})
}

func (s *surface) Remove() error {
	// the connection may already be closing
	s.client.sendCommand(Command{Type: TypeRemove})
	return nil
}
