package mapsync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"danang-green/kv"
	"danang-green/models"
	"danang-green/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func report(id string, lat, lng float64, status models.ReportStatus) models.ReportRecord {
	return models.ReportRecord{
		ID:       id,
		Position: models.GeoPosition{Latitude: lat, Longitude: lng},
		Status:   status,
		Analysis: models.AIAnalysis{IssueType: models.IssueLittering, IssuePresent: true},
	}
}

func reports(n int) []models.ReportRecord {
	out := make([]models.ReportRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, report(fmt.Sprintf("r%d", i), 16.0+float64(i)*0.01, 108.2+float64(i)*0.01, models.StatusNew))
	}
	return out
}

func newTestEngine(t *testing.T, opts Options) (*Engine, *recordingSurface) {
	t.Helper()
	surface := &recordingSurface{}
	e := NewEngine(surface, opts)
	t.Cleanup(func() {
		e.TearDown()
		<-e.Done()
	})
	return e, surface
}

func TestLayoutCreatesSurfaceAtDefault(t *testing.T) {
	e, surface := newTestEngine(t, Options{})
	assert.Equal(t, StateUninitialized, e.State())

	e.Layout(Size{Width: 800, Height: 600})
	require.True(t, e.Sync())

	assert.Equal(t, StateActive, e.State())
	assert.Equal(t, []string{"create", "tiles", "markers"}, surface.ops())
	create, _ := surface.last("create")
	assert.Equal(t, DefaultView, create.view)
	markers, _ := surface.last("markers")
	assert.Empty(t, markers.markers)
}

func TestMarkersMatchCollection(t *testing.T) {
	e, surface := newTestEngine(t, Options{})
	e.Layout(Size{Width: 800, Height: 600})

	e.SetReports(reports(5))
	require.True(t, e.Sync())
	markers, _ := surface.last("markers")
	assert.Len(t, markers.markers, 5)

	e.SetReports(nil)
	require.True(t, e.Sync())
	markers, _ = surface.last("markers")
	assert.Len(t, markers.markers, 0)
}

func TestMarkerVisualFollowsStatus(t *testing.T) {
	e, surface := newTestEngine(t, Options{})
	e.Layout(Size{Width: 800, Height: 600})

	list := []models.ReportRecord{report("a", 16.05, 108.2, models.StatusNew)}
	e.SetReports(list)
	list = []models.ReportRecord{report("a", 16.05, 108.2, models.StatusInProgress)}
	e.SetReports(list)
	require.True(t, e.Sync())

	markers, _ := surface.last("markers")
	require.Len(t, markers.markers, 1)
	assert.Equal(t, ColorInProgress, markers.markers[0].Visual.Color)
	assert.Equal(t, "Đang xử lý", markers.markers[0].Subtitle)
}

func TestReportsBeforeLayoutAreApplied(t *testing.T) {
	e, surface := newTestEngine(t, Options{})
	e.SetReports(reports(3))
	require.True(t, e.Sync())
	assert.Empty(t, surface.ops())

	e.Layout(Size{Width: 800, Height: 600})
	require.True(t, e.Sync())
	markers, _ := surface.last("markers")
	assert.Len(t, markers.markers, 3)
}

func TestFirstFitHappensOnce(t *testing.T) {
	e, surface := newTestEngine(t, Options{})
	e.Layout(Size{Width: 800, Height: 600})

	e.SetReports(reports(3))
	e.SetReports(reports(4))
	e.SetReports(reports(6))
	require.True(t, e.Sync())

	assert.Equal(t, 1, surface.count("flyTo"))
	fly, _ := surface.last("flyTo")
	assert.LessOrEqual(t, fly.view.Zoom, 16)
	assert.InDelta(t, 16.01, fly.view.Center.Latitude, 0.001)
	assert.InDelta(t, 108.21, fly.view.Center.Longitude, 0.001)
}

func TestFirstFitEmptyGoesToDefault(t *testing.T) {
	e, surface := newTestEngine(t, Options{})
	e.Layout(Size{Width: 800, Height: 600})
	e.SetReports(nil)
	e.SetReports(reports(2))
	require.True(t, e.Sync())

	require.Equal(t, 1, surface.count("flyTo"))
	fly, _ := surface.last("flyTo")
	assert.Equal(t, DefaultView, fly.view)
}

func TestUserPanSkipsFit(t *testing.T) {
	e, surface := newTestEngine(t, Options{})
	e.Layout(Size{Width: 800, Height: 600})
	e.SurfaceMoved(models.ViewportState{Center: models.GeoPosition{Latitude: 16.1, Longitude: 108.3}, Zoom: 12}, UserMove)
	e.SetReports(reports(3))
	require.True(t, e.Sync())

	assert.Equal(t, 0, surface.count("flyTo"))
}

func TestEngineMovesAreNotEmitted(t *testing.T) {
	var emitted []models.ViewportState
	e, surface := newTestEngine(t, Options{Hooks: Hooks{
		OnViewportChange: func(v models.ViewportState) { emitted = append(emitted, v) },
	}})
	e.Layout(Size{Width: 800, Height: 600})
	e.SetReports(reports(2))
	require.True(t, e.Sync())

	fly, ok := surface.last("flyTo")
	require.True(t, ok)
	e.SurfaceMoved(fly.view, fly.tag)
	require.True(t, e.Sync())
	assert.Empty(t, emitted)

	user := models.ViewportState{Center: models.GeoPosition{Latitude: 16.2, Longitude: 108.1}, Zoom: 11}
	e.SurfaceMoved(user, UserMove)
	require.True(t, e.Sync())
	assert.Equal(t, []models.ViewportState{user}, emitted)
}

func TestViewportSurvivesRemount(t *testing.T) {
	memory := NewViewportMemory()
	first, _ := newTestEngine(t, Options{Memory: memory})
	first.Layout(Size{Width: 800, Height: 600})
	panned := models.ViewportState{Center: models.GeoPosition{Latitude: 20, Longitude: 30}, Zoom: 10}
	first.SurfaceMoved(panned, UserMove)
	first.TearDown()
	<-first.Done()

	second, surface := newTestEngine(t, Options{Memory: memory})
	second.Layout(Size{Width: 800, Height: 600})
	second.SetReports(reports(3))
	require.True(t, second.Sync())

	create, _ := surface.last("create")
	assert.Equal(t, panned, create.view)
	assert.Equal(t, 0, surface.count("flyTo"))
}

func TestSelectedReportCentersIdempotently(t *testing.T) {
	e, surface := newTestEngine(t, Options{})
	e.Layout(Size{Width: 800, Height: 600})
	list := reports(3)
	e.SetReports(list)

	e.SetSelectedReport("r1")
	e.SetSelectedReport("r1")
	require.True(t, e.Sync())

	fly, _ := surface.last("flyTo")
	assert.Equal(t, models.ViewportState{Center: list[1].Position, Zoom: 16}, fly.view)
	calls := surface.snapshot()
	prev := calls[len(calls)-2]
	assert.Equal(t, "flyTo", prev.op)
	assert.Equal(t, fly.view, prev.view)
}

func TestSelectionWaitsForReport(t *testing.T) {
	e, surface := newTestEngine(t, Options{})
	e.Layout(Size{Width: 800, Height: 600})
	e.SetSelectedReport("late")
	e.SetReports(nil)
	require.True(t, e.Sync())
	flies := surface.count("flyTo")

	late := report("late", 16.3, 108.4, models.StatusNew)
	e.SetReports([]models.ReportRecord{late})
	require.True(t, e.Sync())

	assert.Equal(t, flies+1, surface.count("flyTo"))
	fly, _ := surface.last("flyTo")
	assert.Equal(t, late.Position, fly.view.Center)
}

func TestMarkerClickSelectsAndFlies(t *testing.T) {
	var selected []string
	e, surface := newTestEngine(t, Options{Hooks: Hooks{
		OnSelect: func(r models.ReportRecord) { selected = append(selected, r.ID) },
	}})
	e.Layout(Size{Width: 800, Height: 600})
	list := reports(2)
	e.SetReports(list)
	e.MarkerClicked("r0")
	e.MarkerClicked("ghost")
	require.True(t, e.Sync())

	assert.Equal(t, []string{"r0"}, selected)
	fly, _ := surface.last("flyTo")
	assert.Equal(t, models.ViewportState{Center: list[0].Position, Zoom: 16}, fly.view)
}

func TestInvalidateAfterVisibility(t *testing.T) {
	e, surface := newTestEngine(t, Options{InvalidateDelay: time.Hour})
	e.Layout(Size{Width: 800, Height: 600})
	e.SetVisible(true)
	e.SetReports(reports(1))
	require.True(t, e.Sync())

	ops := surface.ops()
	require.Contains(t, ops, "invalidate")
	var invalidateAt, lastMarkersAt int
	for i, op := range ops {
		switch op {
		case "invalidate":
			invalidateAt = i
		case "markers":
			lastMarkersAt = i
		}
	}
	assert.Less(t, invalidateAt, lastMarkersAt)
	assert.Equal(t, 1, surface.count("invalidate"))
}

func TestInvalidateOnDeferredTick(t *testing.T) {
	e, surface := newTestEngine(t, Options{InvalidateDelay: time.Millisecond})
	e.Layout(Size{Width: 800, Height: 600})
	e.SetVisible(true)

	assert.Eventually(t, func() bool {
		e.Sync()
		return surface.count("invalidate") == 1
	}, time.Second, 5*time.Millisecond)

	e.SetReports(reports(1))
	require.True(t, e.Sync())
	assert.Equal(t, 1, surface.count("invalidate"))
}

func TestTileErrorKeepsEngineAlive(t *testing.T) {
	var tileErrs int
	e, _ := newTestEngine(t, Options{Hooks: Hooks{OnTileError: func(error) { tileErrs++ }}})
	e.Layout(Size{Width: 800, Height: 600})
	e.TileError(fmt.Errorf("tile 13/6500/3700 failed"))
	require.True(t, e.Sync())

	assert.Equal(t, 1, tileErrs)
	assert.Equal(t, StateActive, e.State())
}

func TestUpdatesAfterTeardownAreDropped(t *testing.T) {
	surface := &recordingSurface{}
	e := NewEngine(surface, Options{})
	e.Layout(Size{Width: 800, Height: 600})
	e.TearDown()
	<-e.Done()

	before := len(surface.snapshot())
	e.SetReports(reports(4))
	e.SetSelectedReport("r1")
	e.Layout(Size{Width: 100, Height: 100})
	assert.False(t, e.Sync())

	assert.Equal(t, before, len(surface.snapshot()))
	assert.Equal(t, StateTornDown, e.State())
	last, _ := surface.last("remove")
	assert.Equal(t, "remove", last.op)
}

func TestBindFollowsStore(t *testing.T) {
	s := store.New(kv.NewMemoryStore(), "test")
	require.NoError(t, s.Load(context.Background(), nil))
	e, surface := newTestEngine(t, Options{})
	e.Layout(Size{Width: 800, Height: 600})
	e.Bind(s)

	rec := report("fresh", 16.06, 108.21, models.StatusNew)
	require.NoError(t, s.Append(context.Background(), rec))
	require.True(t, e.Sync())

	markers, _ := surface.last("markers")
	require.Len(t, markers.markers, 1)
	assert.Equal(t, "fresh", markers.markers[0].ID)
}
