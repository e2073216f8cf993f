package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"danang-green/geocode"
	"danang-green/mapsync"
	"danang-green/media"
	"danang-green/models"
	"danang-green/service"
	"danang-green/websocket"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
)

// Submitter runs citizen submissions and admin status changes
type Submitter interface {
	Submit(ctx context.Context, req service.SubmitRequest) (*service.Outcome, error)
	AdvanceStatus(ctx context.Context, id string) (*models.ReportRecord, error)
}

// ReportReader is the read side of the report store
type ReportReader interface {
	List() []models.ReportRecord
	Get(id string) (models.ReportRecord, bool)
	Stats() models.ReportStats
}

// PointsReader exposes the reward ledger total
type PointsReader interface {
	Points() int
}

// MediaFiles resolves stored media names to files
type MediaFiles interface {
	Path(name string) (string, bool)
}

// Handlers represents the HTTP handlers
type Handlers struct {
	submitter Submitter
	reports   ReportReader
	points    PointsReader
	searcher  websocket.Searcher
	hub       *websocket.Hub
	pois      []models.POI
	files     MediaFiles
}

// NewHandlers creates new HTTP handlers. searcher, hub and files may be nil.
func NewHandlers(submitter Submitter, reports ReportReader, points PointsReader, searcher websocket.Searcher, hub *websocket.Hub, pois []models.POI, files MediaFiles) *Handlers {
	return &Handlers{
		submitter: submitter,
		reports:   reports,
		points:    points,
		searcher:  searcher,
		hub:       hub,
		pois:      pois,
		files:     files,
	}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"service": "danang-green",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"reports": len(h.reports.List()),
	}
	if h.hub != nil {
		clients, _ := h.hub.GetStats()
		resp["map_clients"] = clients
	}
	c.JSON(http.StatusOK, resp)
}

// SubmitReport accepts a multipart upload with file, latitude, longitude and an optional note
func (h *Handlers) SubmitReport(c *gin.Context) {
	pos, err := formPosition(c)
	if err != nil {
		writeError(c, err)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, &models.MediaError{Cause: "file is unreadable", Err: err})
		return
	}
	defer f.Close()

	// without a client key the duplicate guard is skipped
	key := c.GetHeader("X-Submission-Key")
	if key == "" {
		key = c.PostForm("submission_key")
	}

	out, err := h.submitter.Submit(c.Request.Context(), service.SubmitRequest{
		Key:      key,
		File:     media.File{Name: fh.Filename, DeclaredMIME: fh.Header.Get("Content-Type"), Reader: f},
		Note:     strings.TrimSpace(c.PostForm("note")),
		Position: pos,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if out.Rejected != nil {
		c.JSON(http.StatusOK, out)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// formPosition reads latitude and longitude. Both absent means no location was shared.
func formPosition(c *gin.Context) (*models.GeoPosition, error) {
	latStr := strings.TrimSpace(c.PostForm("latitude"))
	lngStr := strings.TrimSpace(c.PostForm("longitude"))
	if latStr == "" && lngStr == "" {
		return nil, nil
	}
	if latStr == "" || lngStr == "" {
		return nil, models.ErrLocationMissing
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, &models.ValidationError{Field: "latitude", Reason: "not a number"}
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, &models.ValidationError{Field: "longitude", Reason: "not a number"}
	}
	return &models.GeoPosition{Latitude: lat, Longitude: lng}, nil
}

// AdvanceStatus moves a report to the next status
func (h *Handlers) AdvanceStatus(c *gin.Context) {
	rec, err := h.submitter.AdvanceStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.WithError(err).Error("Failed to advance report status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to advance report status"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ListReports returns every report newest first, optionally filtered by status
func (h *Handlers) ListReports(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"reports": h.filteredReports(c)})
}

func (h *Handlers) filteredReports(c *gin.Context) []models.ReportRecord {
	reports := h.reports.List()
	status := c.Query("status")
	if status == "" {
		return reports
	}
	out := make([]models.ReportRecord, 0, len(reports))
	for _, r := range reports {
		if string(r.Status) == status {
			out = append(out, r)
		}
	}
	return out
}

// GetReport returns one report
func (h *Handlers) GetReport(c *gin.Context) {
	rec, ok := h.reports.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetStats returns the home view counters and the reward total
func (h *Handlers) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stats":  h.reports.Stats(),
		"points": h.points.Points(),
	})
}

// GetPoints returns the reward ledger total
func (h *Handlers) GetPoints(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"points": h.points.Points()})
}

// ListPOIs returns the environmental catalogue filtered by the repeated category parameter
func (h *Handlers) ListPOIs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pois": h.filteredPOIs(c)})
}

func (h *Handlers) filteredPOIs(c *gin.Context) []models.POI {
	var types []models.POIType
	for _, t := range c.QueryArray("category") {
		types = append(types, models.POIType(t))
	}
	return mapsync.NewPOIView(h.pois).SetCategories(types...)
}

// Search geocodes q inside the city
func (h *Handlers) Search(c *gin.Context) {
	if h.searcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not configured"})
		return
	}
	res, err := h.searcher.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		log.WithError(err).Warn("Geocoding failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to search location"})
		return
	}
	if !res.Found {
		c.JSON(http.StatusOK, gin.H{"result": geocode.Result{}, "message": websocket.NotFoundMessage})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": res})
}

// MarkerIcon serves the PNG glyph for a status, e.g. /markers/InProgress.png
func (h *Handlers) MarkerIcon(c *gin.Context) {
	name := c.Param("name")
	if !strings.HasSuffix(name, ".png") {
		c.JSON(http.StatusNotFound, gin.H{"error": "icon not found"})
		return
	}
	status := models.ReportStatus(strings.TrimSuffix(name, ".png"))
	data, err := mapsync.Icon(mapsync.VisualFor(status))
	if err != nil {
		log.WithError(err).Error("Failed to render marker icon")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render icon"})
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", data)
}

// ServeMedia serves a stored upload
func (h *Handlers) ServeMedia(c *gin.Context) {
	if h.files == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
		return
	}
	path, ok := h.files.Path(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
		return
	}
	c.File(path)
}

// WebSocket upgrader
var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ListenMap upgrades to a websocket that drives one browser map view
func (h *Handlers) ListenMap(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "map stream is not configured"})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("Failed to upgrade connection to WebSocket")
		return
	}
	h.hub.Attach(conn, c.DefaultQuery("view", websocket.DefaultViewID))
}

// writeError maps pipeline errors to distinct statuses
func writeError(c *gin.Context, err error) {
	var (
		ve *models.ValidationError
		me *models.MediaError
		ce *models.ClassifierError
	)
	switch {
	case errors.Is(err, models.ErrLocationMissing):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Location is required. Please allow location access and try again."})
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, models.ErrUnsupportedMedia):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	case errors.As(err, &me):
		c.JSON(http.StatusBadRequest, gin.H{"error": me.Error()})
	case errors.As(err, &ce):
		c.JSON(http.StatusBadGateway, gin.H{"error": "The image could not be analyzed. Please try again."})
	case errors.Is(err, models.ErrSubmissionInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.WithError(err).Error("Submission failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save report"})
	}
}
