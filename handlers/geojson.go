package handlers

import (
	"net/http"

	"danang-green/mapsync"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	geojson "github.com/paulmach/go.geojson"
)

// ReportsGeoJSON returns the reports as a FeatureCollection of points
func (h *Handlers) ReportsGeoJSON(c *gin.Context) {
	fc := geojson.NewFeatureCollection()
	for _, r := range h.filteredReports(c) {
		f := geojson.NewPointFeature([]float64{r.Position.Longitude, r.Position.Latitude})
		f.ID = r.ID
		f.SetProperty("issueType", r.Analysis.IssueType)
		f.SetProperty("title", r.Analysis.IssueType.Label())
		f.SetProperty("status", r.Status)
		f.SetProperty("statusLabel", r.Status.Label())
		f.SetProperty("priority", r.Analysis.Priority)
		f.SetProperty("color", mapsync.VisualFor(r.Status).Color)
		f.SetProperty("mediaUrl", r.MediaURL)
		f.SetProperty("createdAt", r.CreatedAt)
		fc.AddFeature(f)
	}
	writeFeatureCollection(c, fc)
}

// POIGeoJSON returns the filtered catalogue as a FeatureCollection of points
func (h *Handlers) POIGeoJSON(c *gin.Context) {
	fc := geojson.NewFeatureCollection()
	for _, p := range h.filteredPOIs(c) {
		f := geojson.NewPointFeature([]float64{p.Position.Longitude, p.Position.Latitude})
		f.ID = p.ID
		f.SetProperty("type", p.Type)
		f.SetProperty("name", p.Name)
		f.SetProperty("description", p.Description)
		f.SetProperty("color", mapsync.VisualForPOI(p.Type).Color)
		fc.AddFeature(f)
	}
	writeFeatureCollection(c, fc)
}

func writeFeatureCollection(c *gin.Context, fc *geojson.FeatureCollection) {
	data, err := fc.MarshalJSON()
	if err != nil {
		log.WithError(err).Error("Failed to marshal feature collection")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode GeoJSON"})
		return
	}
	c.Data(http.StatusOK, "application/geo+json", data)
}
