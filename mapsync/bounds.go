package mapsync

import (
	"math"

	"danang-green/models"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

const tileSize = 256

// Bounds is a lat/lng rectangle
type Bounds struct {
	rect s2.Rect
}

// BoundsOf returns the smallest rectangle containing every position.
// ok is false for an empty input.
func BoundsOf(positions []models.GeoPosition) (b Bounds, ok bool) {
	if len(positions) == 0 {
		return Bounds{}, false
	}
	rect := s2.EmptyRect()
	for _, p := range positions {
		rect = rect.AddPoint(s2.LatLngFromDegrees(p.Latitude, p.Longitude))
	}
	return Bounds{rect: rect}, true
}

// SouthWest returns the lower left corner
func (b Bounds) SouthWest() models.GeoPosition {
	ll := b.rect.Lo()
	return models.GeoPosition{Latitude: ll.Lat.Degrees(), Longitude: ll.Lng.Degrees()}
}

// NorthEast returns the upper right corner
func (b Bounds) NorthEast() models.GeoPosition {
	ll := b.rect.Hi()
	return models.GeoPosition{Latitude: ll.Lat.Degrees(), Longitude: ll.Lng.Degrees()}
}

// mercatorY maps a latitude to [0,1] from north to south
func mercatorY(latDeg float64) float64 {
	lat := latDeg * math.Pi / 180
	// clamp to the web mercator limit
	if lat > 1.4844 {
		lat = 1.4844
	} else if lat < -1.4844 {
		lat = -1.4844
	}
	return (1 - math.Log(math.Tan(lat)+1/math.Cos(lat))/math.Pi) / 2
}

func inverseMercatorY(y float64) float64 {
	n := math.Pi * (1 - 2*y)
	return math.Atan(math.Sinh(n)) * 180 / math.Pi
}

// FitView returns the camera that shows b inside a size viewport with padding pixels
// on every side, never zooming in past maxZoom.
func FitView(b Bounds, size Size, padding, maxZoom int) models.ViewportState {
	w := float64(size.Width - 2*padding)
	h := float64(size.Height - 2*padding)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	lat := b.rect.Lat
	lng := b.rect.Lng

	yNorth := mercatorY(s1.Angle(lat.Hi).Degrees())
	ySouth := mercatorY(s1.Angle(lat.Lo).Degrees())
	spanX := s1.Angle(lng.Length()).Degrees() / 360
	spanY := ySouth - yNorth

	zoom := float64(maxZoom)
	if spanX > 0 {
		zoom = math.Min(zoom, math.Log2(w/(tileSize*spanX)))
	}
	if spanY > 0 {
		zoom = math.Min(zoom, math.Log2(h/(tileSize*spanY)))
	}
	z := int(math.Floor(zoom))
	if z < 0 {
		z = 0
	}

	center := models.GeoPosition{
		Latitude:  inverseMercatorY((yNorth + ySouth) / 2),
		Longitude: s1.Angle(lng.Center()).Degrees(),
	}
	return models.ViewportState{Center: center, Zoom: z}
}
