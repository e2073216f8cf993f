package mapsync

import (
	"sync/atomic"
	"time"

	"danang-green/models"
	"danang-green/store"

	"github.com/apex/log"
)

// State is the lifecycle of one mounted map view
type State int32

const (
	StateUninitialized State = iota
	StateActive
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateTornDown:
		return "torn_down"
	}
	return "unknown"
}

// DefaultView is Da Nang city center
var DefaultView = models.ViewportState{
	Center: models.GeoPosition{Latitude: 16.0544, Longitude: 108.2022},
	Zoom:   13,
}

// Hooks are called on the engine goroutine and must not block
type Hooks struct {
	// OnViewportChange receives user pan/zoom results only
	OnViewportChange func(view models.ViewportState)
	// OnSelect receives the report behind a clicked marker
	OnSelect    func(report models.ReportRecord)
	OnTileError func(err error)
}

// Options configures an Engine. Zero values take the defaults.
type Options struct {
	Memory          *ViewportMemory
	DefaultView     models.ViewportState
	TileLayer       TileLayer
	FitPadding      int
	MaxFitZoom      int
	FocusZoom       int
	InvalidateDelay time.Duration
	DefaultSize     Size
	Hooks           Hooks
}

func (o *Options) withDefaults() {
	if o.Memory == nil {
		o.Memory = NewViewportMemory()
	}
	if o.DefaultView == (models.ViewportState{}) {
		o.DefaultView = DefaultView
	}
	if o.TileLayer == (TileLayer{}) {
		o.TileLayer = OSMTiles
	}
	if o.FitPadding == 0 {
		o.FitPadding = 50
	}
	if o.MaxFitZoom == 0 {
		o.MaxFitZoom = 16
	}
	if o.FocusZoom == 0 {
		o.FocusZoom = 16
	}
	if o.InvalidateDelay == 0 {
		o.InvalidateDelay = 10 * time.Millisecond
	}
	if o.DefaultSize == (Size{}) {
		o.DefaultSize = Size{Width: 800, Height: 600}
	}
}

// ReportSource is the observable report collection
type ReportSource interface {
	Subscribe(fn store.Listener) (unsubscribe func())
}

type (
	layoutEvent      struct{ size Size }
	reportsEvent     struct{ reports []models.ReportRecord }
	surfaceMoveEvent struct {
		view models.ViewportState
		tag  MoveTag
	}
	setViewportEvent struct{ view models.ViewportState }
	selectEvent      struct{ id string }
	markerClickEvent struct{ id string }
	visibilityEvent  struct{ visible bool }
	invalidateTick   struct{}
	tileErrorEvent   struct{ err error }
	syncEvent        struct{ done chan struct{} }
	teardownEvent    struct{}
)

type event interface{}

// Engine keeps one Surface consistent with the report collection and the requested viewport.
// All inputs are queued and applied in order on a single goroutine.
type Engine struct {
	surface Surface
	opts    Options
	q       *queue
	state   atomic.Int32
	done    chan struct{}

	// owned by the loop goroutine
	size            Size
	reports         []models.ReportRecord
	haveReports     bool
	view            models.ViewportState
	lastTag         MoveTag
	initialView     *models.ViewportState
	hadPrior        bool
	userMoved       bool
	fitDone         bool
	pendingSelect   string
	needsInvalidate bool
	invalidateTimer *time.Timer
	unsubscribe     func()
}

// NewEngine starts an engine for surface. The surface is created on the first Layout.
func NewEngine(surface Surface, opts Options) *Engine {
	opts.withDefaults()
	e := &Engine{
		surface: surface,
		opts:    opts,
		q:       newQueue(),
		done:    make(chan struct{}),
	}
	go e.run()
	return e
}

// Bind subscribes the engine to src until teardown
func (e *Engine) Bind(src ReportSource) {
	unsubscribe := src.Subscribe(e.SetReports)
	if !e.q.push(func(en *Engine) { en.unsubscribe = unsubscribe }) {
		unsubscribe()
	}
}

// State returns the current lifecycle state
func (e *Engine) State() State { return State(e.state.Load()) }

// Done is closed once the engine has torn down
func (e *Engine) Done() <-chan struct{} { return e.done }

func (e *Engine) Layout(size Size)                        { e.q.push(layoutEvent{size}) }
func (e *Engine) SetReports(reports []models.ReportRecord) { e.q.push(reportsEvent{reports}) }
func (e *Engine) SetViewport(view models.ViewportState)    { e.q.push(setViewportEvent{view}) }
func (e *Engine) SetSelectedReport(id string)              { e.q.push(selectEvent{id}) }
func (e *Engine) SetVisible(visible bool)                  { e.q.push(visibilityEvent{visible}) }

// SurfaceMoved reports a viewport change observed on the surface
func (e *Engine) SurfaceMoved(view models.ViewportState, tag MoveTag) {
	e.q.push(surfaceMoveEvent{view, tag})
}

// MarkerClicked reports a click on the marker with the given id
func (e *Engine) MarkerClicked(id string) { e.q.push(markerClickEvent{id}) }

// TileError reports a failed tile fetch; it never stops the engine
func (e *Engine) TileError(err error) { e.q.push(tileErrorEvent{err}) }

// TearDown releases the surface; every later input is dropped
func (e *Engine) TearDown() { e.q.push(teardownEvent{}) }

// Sync waits until every input queued before the call has been applied.
// It returns false if the engine tore down first.
func (e *Engine) Sync() bool {
	done := make(chan struct{})
	if !e.q.push(syncEvent{done}) {
		return false
	}
	select {
	case <-done:
		return true
	case <-e.done:
		return false
	}
}

func (e *Engine) run() {
	defer close(e.done)
	for range e.q.signal {
		for _, ev := range e.q.drain() {
			if e.handle(ev) {
				return
			}
		}
	}
}

// handle applies one event and reports whether the engine tore down
func (e *Engine) handle(ev event) bool {
	switch ev := ev.(type) {
	case func(*Engine):
		ev(e)
	case layoutEvent:
		e.layout(ev.size)
	case reportsEvent:
		e.reports = ev.reports
		e.haveReports = true
		if e.State() == StateActive {
			e.reconcile()
		}
	case surfaceMoveEvent:
		e.surfaceMoved(ev.view, ev.tag)
	case setViewportEvent:
		e.setViewport(ev.view)
	case selectEvent:
		e.pendingSelect = ev.id
		if e.State() == StateActive {
			e.focusPending()
		}
	case markerClickEvent:
		e.markerClicked(ev.id)
	case visibilityEvent:
		e.visibility(ev.visible)
	case invalidateTick:
		e.invalidateIfNeeded()
	case tileErrorEvent:
		log.WithError(ev.err).Warn("Map tile failed to load")
		if e.opts.Hooks.OnTileError != nil {
			e.opts.Hooks.OnTileError(ev.err)
		}
	case syncEvent:
		close(ev.done)
	case teardownEvent:
		e.teardown()
		return true
	}
	return false
}

func (e *Engine) layout(size Size) {
	if size.Width <= 0 || size.Height <= 0 {
		size = e.opts.DefaultSize
	}
	switch e.State() {
	case StateUninitialized:
		e.size = size
		view := e.opts.DefaultView
		if e.initialView != nil {
			view, e.hadPrior = *e.initialView, true
		} else if remembered, ok := e.opts.Memory.Load(); ok {
			view, e.hadPrior = remembered, true
		}
		if err := e.surface.Create(view, size); err != nil {
			log.WithError(err).Error("Failed to create map surface")
			return
		}
		if err := e.surface.AddTileLayer(e.opts.TileLayer); err != nil {
			log.WithError(err).Warn("Failed to add tile layer")
		}
		e.replaceMarkers(nil)
		e.view = view
		e.state.Store(int32(StateActive))
		if e.haveReports {
			e.reconcile()
		}
		e.focusPending()
	case StateActive:
		if size != e.size {
			e.size = size
			if err := e.surface.InvalidateSize(); err != nil {
				log.WithError(err).Warn("Failed to resize map surface")
			}
			e.needsInvalidate = false
		}
	}
}

// reconcile rebuilds the marker layer from the current collection
func (e *Engine) reconcile() {
	e.invalidateIfNeeded()
	e.replaceMarkers(MarkersForReports(e.reports))
	e.focusPending()
	e.maybeFit()
}

func (e *Engine) replaceMarkers(markers []Marker) {
	if markers == nil {
		markers = []Marker{}
	}
	if err := e.surface.ReplaceMarkers(markers); err != nil {
		log.WithError(err).Error("Failed to replace map markers")
	}
}

// maybeFit frames every report once per mount, unless the view already had a viewport
// or the camera has been directed elsewhere
func (e *Engine) maybeFit() {
	if e.fitDone || e.hadPrior || e.userMoved {
		return
	}
	e.fitDone = true

	positions := make([]models.GeoPosition, 0, len(e.reports))
	for _, r := range e.reports {
		positions = append(positions, r.Position)
	}
	target := e.opts.DefaultView
	if b, ok := BoundsOf(positions); ok {
		target = FitView(b, e.size, e.opts.FitPadding, e.opts.MaxFitZoom)
	}
	e.flyTo(target)
}

func (e *Engine) flyTo(view models.ViewportState) {
	e.lastTag++
	if err := e.surface.FlyTo(view, e.lastTag); err != nil {
		log.WithError(err).Warn("Failed to move map camera")
		return
	}
	e.view = view
}

func (e *Engine) surfaceMoved(view models.ViewportState, tag MoveTag) {
	if e.State() != StateActive {
		return
	}
	e.view = view
	if tag != UserMove {
		// result of our own command
		return
	}
	e.userMoved = true
	e.fitDone = true
	e.opts.Memory.Save(view)
	if e.opts.Hooks.OnViewportChange != nil {
		e.opts.Hooks.OnViewportChange(view)
	}
}

func (e *Engine) setViewport(view models.ViewportState) {
	if e.State() == StateUninitialized {
		v := view
		e.initialView = &v
		return
	}
	e.fitDone = true
	e.flyTo(view)
}

func (e *Engine) focusPending() {
	if e.pendingSelect == "" {
		return
	}
	for _, r := range e.reports {
		if r.ID == e.pendingSelect {
			e.pendingSelect = ""
			e.fitDone = true
			e.flyTo(models.ViewportState{Center: r.Position, Zoom: e.opts.FocusZoom})
			return
		}
	}
}

func (e *Engine) markerClicked(id string) {
	if e.State() != StateActive {
		return
	}
	for _, r := range e.reports {
		if r.ID == id {
			if e.opts.Hooks.OnSelect != nil {
				e.opts.Hooks.OnSelect(r)
			}
			e.fitDone = true
			e.flyTo(models.ViewportState{Center: r.Position, Zoom: e.opts.FocusZoom})
			return
		}
	}
}

func (e *Engine) visibility(visible bool) {
	if !visible || e.State() != StateActive {
		return
	}
	e.needsInvalidate = true
	if e.invalidateTimer != nil {
		e.invalidateTimer.Stop()
	}
	e.invalidateTimer = time.AfterFunc(e.opts.InvalidateDelay, func() {
		e.q.push(invalidateTick{})
	})
}

func (e *Engine) invalidateIfNeeded() {
	if !e.needsInvalidate || e.State() != StateActive {
		return
	}
	e.needsInvalidate = false
	if err := e.surface.InvalidateSize(); err != nil {
		log.WithError(err).Warn("Failed to resize map surface")
	}
}

func (e *Engine) teardown() {
	e.q.close()
	if e.invalidateTimer != nil {
		e.invalidateTimer.Stop()
	}
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	if e.State() == StateActive {
		if err := e.surface.Remove(); err != nil {
			log.WithError(err).Warn("Failed to remove map surface")
		}
	}
	e.state.Store(int32(StateTornDown))
}
