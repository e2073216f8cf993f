package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"danang-green/kv"
	"danang-green/metrics"
	"danang-green/models"

	"github.com/apex/log"
	"github.com/avast/retry-go"
)

// ReportsKeySuffix is appended to the storage prefix to form the reports key
const ReportsKeySuffix = ":reports"

// Listener receives the whole collection, newest first, after every change.
// Listeners are called in change order and must not block.
type Listener func(reports []models.ReportRecord)

// Store holds the authoritative ordered report collection and mirrors it to a kv.Store.
// Reports are kept newest first.
type Store struct {
	mu      sync.RWMutex
	reports []models.ReportRecord

	// serialises mutation+notification so listeners observe changes in order
	notifyMu  sync.Mutex
	listeners map[int]Listener
	nextID    int

	kv  kv.Store
	key string

	dirty    chan struct{}
	stop     chan struct{}
	stopped  chan struct{}
	running  atomic.Bool
	stopOnce sync.Once
}

// New creates an empty store mirroring to backend under prefix+":reports"
func New(backend kv.Store, prefix string) *Store {
	return &Store{
		listeners: make(map[int]Listener),
		kv:        backend,
		key:       prefix + ReportsKeySuffix,
		dirty:     make(chan struct{}, 1),
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// Key is the durable key holding the JSON list
func (s *Store) Key() string { return s.key }

// Load replaces the collection with the durable copy. When nothing is stored yet
// the collection is filled with seed. A corrupt durable copy is logged and replaced by seed.
func (s *Store) Load(ctx context.Context, seed []models.ReportRecord) error {
	data, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("failed to load reports: %w", err)
	}

	var reports []models.ReportRecord
	switch {
	case !ok || len(data) == 0:
		log.Infof("No stored reports under %s, seeding %d reports", s.key, len(seed))
		reports = append(reports, seed...)
	default:
		if err := json.Unmarshal(data, &reports); err != nil {
			log.WithError(err).Errorf("Stored reports under %s are unreadable, seeding", s.key)
			reports = append([]models.ReportRecord(nil), seed...)
		}
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.mu.Lock()
	s.reports = reports
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	metrics.ReportsTotal.Set(float64(len(snapshot)))
	s.markDirty()
	s.notify(snapshot)
	return nil
}

// List returns a copy of the collection, newest first
func (s *Store) List() []models.ReportRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Get returns a copy of one record
func (s *Store) Get(id string) (models.ReportRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reports {
		if r.ID == id {
			return r, true
		}
	}
	return models.ReportRecord{}, false
}

// Len returns the number of records
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// Stats counts records per status
func (s *Store) Stats() models.ReportStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := models.ReportStats{Total: len(s.reports)}
	for _, r := range s.reports {
		switch r.Status {
		case models.StatusNew:
			st.New++
		case models.StatusInProgress:
			st.InProgress++
		case models.StatusResolved:
			st.Resolved++
		}
	}
	return st
}

// Append adds a record at the head of the collection. Ids must be unique.
func (s *Store) Append(_ context.Context, rec models.ReportRecord) error {
	if !rec.Analysis.IssuePresent {
		return fmt.Errorf("report %s has no issue present", rec.ID)
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	for _, r := range s.reports {
		if r.ID == rec.ID {
			s.mu.Unlock()
			return fmt.Errorf("report %s already exists", rec.ID)
		}
	}
	s.reports = append([]models.ReportRecord{rec}, s.reports...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	metrics.ReportsTotal.Set(float64(len(snapshot)))
	s.markDirty()
	s.notify(snapshot)
	return nil
}

// UpdateStatus applies next to the status of the record with the given id
func (s *Store) UpdateStatus(_ context.Context, id string, next func(models.ReportStatus) models.ReportStatus) (*models.ReportRecord, bool, error) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	idx := -1
	for i := range s.reports {
		if s.reports[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil, false, nil
	}
	s.reports[idx].Status = next(s.reports[idx].Status)
	updated := s.reports[idx]
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.markDirty()
	s.notify(snapshot)
	return &updated, true, nil
}

// Subscribe registers fn and immediately calls it with the current collection.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.notifyMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	fn(s.List())
	s.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.notifyMu.Lock()
			delete(s.listeners, id)
			s.notifyMu.Unlock()
		})
	}
}

func (s *Store) snapshotLocked() []models.ReportRecord {
	out := make([]models.ReportRecord, len(s.reports))
	copy(out, s.reports)
	return out
}

// notify must be called with notifyMu held
func (s *Store) notify(snapshot []models.ReportRecord) {
	for _, fn := range s.listeners {
		fn(snapshot)
	}
}

func (s *Store) markDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// Run flushes the collection to the durable mirror whenever it changes until Close is called
func (s *Store) Run() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	defer close(s.stopped)
	for {
		select {
		case <-s.dirty:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			s.flushLogged(ctx)
			cancel()
		case <-s.stop:
			return
		}
	}
}

// Close stops Run, if running, and writes the final state
func (s *Store) Close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.running.Load() {
		select {
		case <-s.stopped:
		case <-ctx.Done():
		}
	}
	return s.Flush(ctx)
}

// Flush writes the current collection to the durable mirror, retrying transient failures
func (s *Store) Flush(ctx context.Context) error {
	data, err := json.Marshal(s.List())
	if err != nil {
		return &models.StorageWriteError{Key: s.key, Err: err}
	}
	err = retry.Do(
		func() error { return s.kv.Set(ctx, s.key, data) },
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		metrics.StorageWriteErrors.Inc()
		return &models.StorageWriteError{Key: s.key, Err: err}
	}
	return nil
}

func (s *Store) flushLogged(ctx context.Context) {
	if err := s.Flush(ctx); err != nil {
		log.WithError(err).Error("Durable mirror flush failed, in-memory reports are unaffected")
	}
}
