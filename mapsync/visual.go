package mapsync

import (
	"danang-green/models"
)

// Shape is the marker glyph
type Shape string

const (
	ShapePin    Shape = "pin"
	ShapeCircle Shape = "circle"
)

// Visual is how one marker is drawn
type Visual struct {
	Color string `json:"color"`
	Shape Shape  `json:"shape"`
}

const (
	ColorNew        = "#ef4444"
	ColorInProgress = "#f59e0b"
	ColorResolved   = "#22c55e"
	ColorUnknown    = "#6b7280"
)

// VisualFor maps a report status to its marker. Unknown statuses are gray.
func VisualFor(status models.ReportStatus) Visual {
	switch status {
	case models.StatusNew:
		return Visual{Color: ColorNew, Shape: ShapePin}
	case models.StatusInProgress:
		return Visual{Color: ColorInProgress, Shape: ShapePin}
	case models.StatusResolved:
		return Visual{Color: ColorResolved, Shape: ShapePin}
	}
	return Visual{Color: ColorUnknown, Shape: ShapePin}
}

var poiColors = map[models.POIType]string{
	models.POINatureReserve:    "#16a34a",
	models.POIRecyclingCenter:  "#2563eb",
	models.POICommunityCleanup: "#9333ea",
	models.POIWaterStation:     "#0891b2",
}

// VisualForPOI maps a POI category to its marker
func VisualForPOI(t models.POIType) Visual {
	if c, ok := poiColors[t]; ok {
		return Visual{Color: c, Shape: ShapeCircle}
	}
	return Visual{Color: ColorUnknown, Shape: ShapeCircle}
}

// Marker is one pin on the surface
type Marker struct {
	ID       string             `json:"id"`
	Position models.GeoPosition `json:"position"`
	Visual   Visual             `json:"visual"`
	Title    string             `json:"title"`
	Subtitle string             `json:"subtitle"`
}

// MarkersForReports builds one marker per report, in collection order
func MarkersForReports(reports []models.ReportRecord) []Marker {
	markers := make([]Marker, 0, len(reports))
	for _, r := range reports {
		markers = append(markers, Marker{
			ID:       r.ID,
			Position: r.Position,
			Visual:   VisualFor(r.Status),
			Title:    r.Analysis.IssueType.Label(),
			Subtitle: r.Status.Label(),
		})
	}
	return markers
}

// MarkersForPOIs builds one marker per point of interest
func MarkersForPOIs(pois []models.POI) []Marker {
	markers := make([]Marker, 0, len(pois))
	for _, p := range pois {
		markers = append(markers, Marker{
			ID:       p.ID,
			Position: p.Position,
			Visual:   VisualForPOI(p.Type),
			Title:    p.Name,
			Subtitle: p.Description,
		})
	}
	return markers
}
