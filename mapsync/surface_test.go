package mapsync

import (
	"errors"
	"sync"

	"danang-green/models"
)

type call struct {
	op      string
	view    models.ViewportState
	tag     MoveTag
	markers []Marker
}

// recordingSurface records every command in order
type recordingSurface struct {
	mu        sync.Mutex
	calls     []call
	failFlyTo bool
}

func (s *recordingSurface) record(c call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
	if c.op == "flyTo" && s.failFlyTo {
		return errors.New("camera busy")
	}
	return nil
}

func (s *recordingSurface) Create(view models.ViewportState, _ Size) error {
	return s.record(call{op: "create", view: view})
}

func (s *recordingSurface) AddTileLayer(TileLayer) error {
	return s.record(call{op: "tiles"})
}

func (s *recordingSurface) ReplaceMarkers(markers []Marker) error {
	return s.record(call{op: "markers", markers: markers})
}

func (s *recordingSurface) FlyTo(view models.ViewportState, tag MoveTag) error {
	return s.record(call{op: "flyTo", view: view, tag: tag})
}

func (s *recordingSurface) InvalidateSize() error {
	return s.record(call{op: "invalidate"})
}

func (s *recordingSurface) Remove() error {
	return s.record(call{op: "remove"})
}

func (s *recordingSurface) snapshot() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

func (s *recordingSurface) ops() []string {
	var out []string
	for _, c := range s.snapshot() {
		out = append(out, c.op)
	}
	return out
}

func (s *recordingSurface) last(op string) (call, bool) {
	calls := s.snapshot()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].op == op {
			return calls[i], true
		}
	}
	return call{}, false
}

func (s *recordingSurface) count(op string) int {
	n := 0
	for _, c := range s.snapshot() {
		if c.op == op {
			n++
		}
	}
	return n
}
