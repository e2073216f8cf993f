package models

// POIType is the category of an environmental point of interest
type POIType string

const (
	POINatureReserve    POIType = "NatureReserve"
	POIRecyclingCenter  POIType = "RecyclingCenter"
	POICommunityCleanup POIType = "CommunityCleanup"
	POIWaterStation     POIType = "WaterStation"
)

// POI is a fixed catalogue entry rendered by the read-only environmental map
type POI struct {
	ID          string      `json:"id"`
	Type        POIType     `json:"type"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Position    GeoPosition `json:"position"`
}
