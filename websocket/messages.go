package websocket

import (
	"encoding/json"
	"time"

	"danang-green/geocode"
	"danang-green/mapsync"
	"danang-green/models"
)

// Outbound message types
const (
	TypeCreate       = "create"
	TypeTiles        = "tiles"
	TypeMarkers      = "markers"
	TypeFlyTo        = "fly_to"
	TypeInvalidate   = "invalidate"
	TypeRemove       = "remove"
	TypeSelected     = "selected"
	TypeSearchResult = "search_result"
	TypeEvent        = "event"
)

// Inbound message types
const (
	TypeLayout      = "layout"
	TypeViewport    = "viewport"
	TypeSetViewport = "set_viewport"
	TypeSelect      = "select"
	TypeMarkerClick = "marker_click"
	TypeVisibility  = "visibility"
	TypeTileError   = "tile_error"
	TypeSearch      = "search"
)

// NotFoundMessage is shown when a search has no match
const NotFoundMessage = "Không tìm thấy địa điểm."

// NewReportToast is shown for reports arriving while the map is open
const NewReportToast = "Đã nhận báo cáo mới!"

// Command is a message sent to the browser
type Command struct {
	Type    string                `json:"type"`
	View    *models.ViewportState `json:"view,omitempty"`
	Size    *mapsync.Size         `json:"size,omitempty"`
	Tag     mapsync.MoveTag       `json:"tag,omitempty"`
	Tiles   *mapsync.TileLayer    `json:"tiles,omitempty"`
	Markers []mapsync.Marker      `json:"markers,omitempty"`
	Report  *models.ReportRecord  `json:"report,omitempty"`
	Search  *geocode.Result       `json:"search,omitempty"`
	Event   *models.ReportEvent   `json:"event,omitempty"`
	Message string                `json:"message,omitempty"`
	SentAt  time.Time             `json:"sentAt"`
}

// MarshalJSON always carries the markers array on markers commands, so an
// emptied collection clears the browser's pins.
func (c Command) MarshalJSON() ([]byte, error) {
	type plain Command
	if c.Type != TypeMarkers {
		return json.Marshal(plain(c))
	}
	markers := c.Markers
	if markers == nil {
		markers = []mapsync.Marker{}
	}
	return json.Marshal(struct {
		plain
		Markers []mapsync.Marker `json:"markers"`
	}{plain(c), markers})
}

// Inbound is a message received from the browser
type Inbound struct {
	Type    string                `json:"type"`
	Size    *mapsync.Size         `json:"size,omitempty"`
	View    *models.ViewportState `json:"view,omitempty"`
	Tag     mapsync.MoveTag       `json:"tag,omitempty"`
	ID      string                `json:"id,omitempty"`
	Visible bool                  `json:"visible,omitempty"`
	Error   string                `json:"error,omitempty"`
	Query   string                `json:"query,omitempty"`
}
