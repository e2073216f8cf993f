package mapsync

import (
	"sort"
	"sync"

	"danang-green/models"

	"github.com/apex/log"
)

// DaNangPOIs returns the fixed environmental catalogue
func DaNangPOIs() []models.POI {
	return []models.POI{
		{ID: "poi-son-tra", Type: models.POINatureReserve, Name: "Khu bảo tồn thiên nhiên Sơn Trà", Description: "Rừng nguyên sinh và môi trường sống của voọc chà vá chân nâu", Position: models.GeoPosition{Latitude: 16.1190, Longitude: 108.2770}},
		{ID: "poi-ba-na", Type: models.POINatureReserve, Name: "Khu bảo tồn Bà Nà - Núi Chúa", Description: "Rừng đặc dụng phía tây thành phố", Position: models.GeoPosition{Latitude: 15.9980, Longitude: 107.9960}},
		{ID: "poi-khanh-son", Type: models.POIRecyclingCenter, Name: "Bãi rác Khánh Sơn", Description: "Khu xử lý chất thải rắn của thành phố", Position: models.GeoPosition{Latitude: 16.0470, Longitude: 108.1160}},
		{ID: "poi-hoa-khanh", Type: models.POIRecyclingCenter, Name: "Điểm thu gom tái chế Hòa Khánh", Description: "Nhận giấy, nhựa và kim loại đã phân loại", Position: models.GeoPosition{Latitude: 16.0720, Longitude: 108.1500}},
		{ID: "poi-my-khe", Type: models.POICommunityCleanup, Name: "Dọn rác bãi biển Mỹ Khê", Description: "Ra quân làm sạch bãi biển sáng Chủ nhật hằng tuần", Position: models.GeoPosition{Latitude: 16.0600, Longitude: 108.2470}},
		{ID: "poi-han-river", Type: models.POICommunityCleanup, Name: "Làm sạch bờ sông Hàn", Description: "Hoạt động tình nguyện dọc bờ sông", Position: models.GeoPosition{Latitude: 16.0680, Longitude: 108.2260}},
		{ID: "poi-cau-do", Type: models.POIWaterStation, Name: "Nhà máy nước Cầu Đỏ", Description: "Nguồn cấp nước sạch chính của thành phố", Position: models.GeoPosition{Latitude: 15.9960, Longitude: 108.1780}},
		{ID: "poi-san-bay", Type: models.POIWaterStation, Name: "Nhà máy nước Sân Bay", Description: "Trạm xử lý nước phía tây sân bay", Position: models.GeoPosition{Latitude: 16.0440, Longitude: 108.1900}},
	}
}

// POIView is the read-only environmental map. It filters a fixed catalogue by category
// and never moves the camera after creation.
type POIView struct {
	mu        sync.Mutex
	catalogue []models.POI
	selected  map[models.POIType]bool
	surface   Surface
}

func NewPOIView(catalogue []models.POI) *POIView {
	return &POIView{
		catalogue: catalogue,
		selected:  make(map[models.POIType]bool),
	}
}

// Attach creates surface at the default view and renders the visible POIs on it
func (v *POIView) Attach(surface Surface, size Size) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := surface.Create(DefaultView, size); err != nil {
		return err
	}
	if err := surface.AddTileLayer(OSMTiles); err != nil {
		log.WithError(err).Warn("Failed to add tile layer")
	}
	v.surface = surface
	return v.renderLocked()
}

// Detach removes the attached surface, if any
func (v *POIView) Detach() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.surface == nil {
		return nil
	}
	err := v.surface.Remove()
	v.surface = nil
	return err
}

// Toggle flips one category in the filter and returns the POIs now visible
func (v *POIView) Toggle(t models.POIType) []models.POI {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selected[t] {
		delete(v.selected, t)
	} else {
		v.selected[t] = true
	}
	if err := v.renderLocked(); err != nil {
		log.WithError(err).Warn("Failed to render points of interest")
	}
	return v.visibleLocked()
}

// SetCategories replaces the filter. No categories shows everything.
func (v *POIView) SetCategories(types ...models.POIType) []models.POI {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selected = make(map[models.POIType]bool, len(types))
	for _, t := range types {
		v.selected[t] = true
	}
	if err := v.renderLocked(); err != nil {
		log.WithError(err).Warn("Failed to render points of interest")
	}
	return v.visibleLocked()
}

// Selected returns the active categories, sorted
func (v *POIView) Selected() []models.POIType {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.POIType, 0, len(v.selected))
	for t := range v.selected {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Visible returns the POIs passing the current filter in catalogue order
func (v *POIView) Visible() []models.POI {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visibleLocked()
}

func (v *POIView) visibleLocked() []models.POI {
	out := make([]models.POI, 0, len(v.catalogue))
	for _, p := range v.catalogue {
		if len(v.selected) == 0 || v.selected[p.Type] {
			out = append(out, p)
		}
	}
	return out
}

func (v *POIView) renderLocked() error {
	if v.surface == nil {
		return nil
	}
	return v.surface.ReplaceMarkers(MarkersForPOIs(v.visibleLocked()))
}
