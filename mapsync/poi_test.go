package mapsync

import (
	"testing"

	"danang-green/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPOIViewFilter(t *testing.T) {
	catalogue := DaNangPOIs()
	v := NewPOIView(catalogue)
	assert.Len(t, v.Visible(), len(catalogue))

	visible := v.Toggle(models.POIWaterStation)
	require.NotEmpty(t, visible)
	for _, p := range visible {
		assert.Equal(t, models.POIWaterStation, p.Type)
	}

	visible = v.Toggle(models.POINatureReserve)
	for _, p := range visible {
		assert.Contains(t, []models.POIType{models.POIWaterStation, models.POINatureReserve}, p.Type)
	}
	assert.Equal(t, []models.POIType{models.POINatureReserve, models.POIWaterStation}, v.Selected())

	v.Toggle(models.POIWaterStation)
	v.Toggle(models.POINatureReserve)
	assert.Empty(t, v.Selected())
	assert.Len(t, v.Visible(), len(catalogue))
}

func TestPOIViewNeverMovesCamera(t *testing.T) {
	surface := &recordingSurface{}
	v := NewPOIView(DaNangPOIs())
	require.NoError(t, v.Attach(surface, Size{Width: 800, Height: 600}))

	v.Toggle(models.POIRecyclingCenter)
	v.SetCategories()
	require.NoError(t, v.Detach())

	assert.Equal(t, 0, surface.count("flyTo"))
	assert.Equal(t, []string{"create", "tiles", "markers", "markers", "markers", "remove"}, surface.ops())
	markers, _ := surface.last("markers")
	assert.Len(t, markers.markers, len(DaNangPOIs()))
	for _, m := range markers.markers {
		assert.Equal(t, ShapeCircle, m.Visual.Shape)
	}
}

func TestCatalogueIDsUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range DaNangPOIs() {
		assert.False(t, seen[p.ID], p.ID)
		seen[p.ID] = true
		assert.NoError(t, p.Position.Validate())
	}
}
