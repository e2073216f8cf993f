package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"danang-green/models"

	"github.com/apex/log"
	"github.com/google/uuid"
)

const (
	centerLat = 16.0544
	centerLng = 108.2022
	// offsets are drawn from [-spread/2, spread/2)
	spread = 0.1

	mockMediaURL = "https://images.unsplash.com/photo-1567693122312-de549acb2a58?q=80&w=2070&auto=format&fit=crop"
	mockNote     = "Báo cáo mới được tạo tự động."
	mockRemedy   = "Giải pháp tự động tạo cho báo cáo mô phỏng."
)

var (
	mockTypes      = []models.IssueType{models.IssueLittering, models.IssueFlooding, models.IssueLandslide, models.IssueVegetation}
	mockPriorities = []models.Priority{models.PriorityHigh, models.PriorityMedium, models.PriorityLow}
)

// Appender receives the mock reports
type Appender interface {
	Append(ctx context.Context, rec models.ReportRecord) error
}

// Publisher announces each mock report
type Publisher interface {
	PublishEvent(ctx context.Context, ev models.ReportEvent) error
}

// Simulator appends a random report near the city center on every tick
type Simulator struct {
	store     Appender
	publisher Publisher
	interval  time.Duration

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a simulator. publisher may be nil.
func New(store Appender, publisher Publisher, interval time.Duration, seed int64) *Simulator {
	return &Simulator{
		store:     store,
		publisher: publisher,
		interval:  interval,
		rng:       rand.New(rand.NewSource(seed)),
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs the ticker until Stop
func (s *Simulator) Start() {
	log.Infof("Starting report simulator every %v", s.interval)
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), s.interval)
				if _, err := s.Tick(ctx); err != nil {
					log.WithError(err).Warn("Failed to add simulated report")
				}
				cancel()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop ends the ticker and waits for the current tick. Safe to call more than once.
func (s *Simulator) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// Tick appends one mock report and announces it
func (s *Simulator) Tick(ctx context.Context) (*models.ReportRecord, error) {
	rec := s.mockReport()
	if err := s.store.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to append simulated report: %w", err)
	}
	log.WithFields(log.Fields{"id": rec.ID, "type": rec.Analysis.IssueType}).Info("Simulated report added")

	if s.publisher != nil {
		ev := models.ReportEvent{Type: models.EventReportCreated, Report: rec, Simulated: true, OccurredAt: rec.CreatedAt}
		if err := s.publisher.PublishEvent(ctx, ev); err != nil {
			log.WithError(err).Warn("Failed to publish simulated report")
		}
	}
	return &rec, nil
}

func (s *Simulator) mockReport() models.ReportRecord {
	s.mu.Lock()
	issue := mockTypes[s.rng.Intn(len(mockTypes))]
	priority := mockPriorities[s.rng.Intn(len(mockPriorities))]
	lat := centerLat + (s.rng.Float64()-0.5)*spread
	lng := centerLng + (s.rng.Float64()-0.5)*spread
	now := s.now().UTC()
	s.mu.Unlock()

	return models.ReportRecord{
		ID:        uuid.New().String(),
		MediaURL:  mockMediaURL,
		MediaKind: models.MediaImage,
		Position:  models.GeoPosition{Latitude: lat, Longitude: lng},
		UserNote:  mockNote,
		Analysis: models.AIAnalysis{
			IssueType:    issue,
			Description:  fmt.Sprintf("Một sự cố về '%s' đã được phát hiện tại địa điểm này.", issue.Label()),
			Priority:     priority,
			Remedy:       mockRemedy,
			IssuePresent: true,
		},
		Status:    models.StatusNew,
		CreatedAt: now,
	}
}
