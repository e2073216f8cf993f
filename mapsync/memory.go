package mapsync

import (
	"sync"

	"danang-green/models"
)

// ViewportMemory keeps the last user viewport of a view across remounts. It is never persisted.
type ViewportMemory struct {
	mu   sync.Mutex
	view models.ViewportState
	set  bool
}

func NewViewportMemory() *ViewportMemory {
	return &ViewportMemory{}
}

// Load returns the remembered viewport; ok is false when nothing was saved yet
func (m *ViewportMemory) Load() (models.ViewportState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view, m.set
}

func (m *ViewportMemory) Save(view models.ViewportState) {
	m.mu.Lock()
	m.view = view
	m.set = true
	m.mu.Unlock()
}
