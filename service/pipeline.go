package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"danang-green/lifecycle"
	"danang-green/llm"
	"danang-green/media"
	"danang-green/metrics"
	"danang-green/models"

	"github.com/apex/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// MediaIngestor turns an upload into stored media and a still frame
type MediaIngestor interface {
	Ingest(ctx context.Context, f media.File) (*media.Ingested, error)
	Discard(ctx context.Context, ing *media.Ingested)
}

// ReportStore is the collection the pipeline appends to
type ReportStore interface {
	Append(ctx context.Context, rec models.ReportRecord) error
	lifecycle.StatusUpdater
}

// RewardLedger receives a grant for every accepted report
type RewardLedger interface {
	Grant(ctx context.Context, n int) (int, error)
}

// EventPublisher announces accepted reports and status changes
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev models.ReportEvent) error
}

// SubmitRequest is one citizen submission.
// Key identifies the submitter; concurrent submits with the same non-empty key are refused.
type SubmitRequest struct {
	Key      string
	File     media.File
	Note     string
	Position *models.GeoPosition
}

// Outcome is either an accepted Record or a Rejected judgment
type Outcome struct {
	Record        *models.ReportRecord       `json:"report,omitempty"`
	Rejected      *models.SubmissionRejected `json:"rejected,omitempty"`
	PointsAwarded int                        `json:"pointsAwarded,omitempty"`
	PointsTotal   int                        `json:"pointsTotal,omitempty"`
}

// Options tunes a Pipeline
type Options struct {
	ClassifierTimeout time.Duration
	TrashCheck        bool
	RewardPoints      int
}

// Pipeline validates submissions and turns accepted ones into report records
type Pipeline struct {
	ingestor   MediaIngestor
	classifier llm.Classifier
	store      ReportStore
	ledger     RewardLedger
	publisher  EventPublisher
	opts       Options

	now   func() time.Time
	newID func() string

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewPipeline wires the pipeline. publisher may be nil.
func NewPipeline(ingestor MediaIngestor, classifier llm.Classifier, store ReportStore, ledger RewardLedger, publisher EventPublisher, opts Options) *Pipeline {
	if opts.ClassifierTimeout <= 0 {
		opts.ClassifierTimeout = 30 * time.Second
	}
	return &Pipeline{
		ingestor:   ingestor,
		classifier: classifier,
		store:      store,
		ledger:     ledger,
		publisher:  publisher,
		opts:       opts,
		now:        time.Now,
		newID:      uuid.NewString,
		inFlight:   make(map[string]struct{}),
	}
}

// Submit runs one submission to completion. A rejection is a normal Outcome, not an error.
// Errors are ErrLocationMissing, *ValidationError, *MediaError, *ClassifierError,
// ErrSubmissionInFlight or a store failure; none of them leaves a record or a reward behind.
func (p *Pipeline) Submit(ctx context.Context, req SubmitRequest) (out *Outcome, err error) {
	start := time.Now()
	defer func() {
		outcome := outcomeLabel(out, err)
		metrics.SubmissionsTotal.WithLabelValues(outcome).Inc()
		metrics.SubmissionDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	if req.Position == nil {
		return nil, models.ErrLocationMissing
	}
	if err := req.Position.Validate(); err != nil {
		return nil, err
	}

	if !p.acquire(req.Key) {
		return nil, models.ErrSubmissionInFlight
	}
	defer p.release(req.Key)

	logger := log.WithFields(log.Fields{
		"file":      req.File.Name,
		"latitude":  req.Position.Latitude,
		"longitude": req.Position.Longitude,
	})

	ing, err := p.ingestor.Ingest(ctx, req.File)
	if err != nil {
		logger.WithError(err).Warn("Media ingest failed")
		return nil, err
	}

	analysis, err := p.classify(ctx, ing)
	if err != nil {
		p.ingestor.Discard(ctx, ing)
		logger.WithError(err).Error("Classifier failed")
		return nil, err
	}

	if !analysis.IssuePresent {
		p.ingestor.Discard(ctx, ing)
		logger.WithField("description", analysis.Description).Info("Submission rejected, no issue detected")
		return &Outcome{Rejected: &models.SubmissionRejected{Reason: models.RejectionNoIssue, Analysis: *analysis}}, nil
	}

	rec, err := models.NewReportRecord(p.newID(), ing.DisplayURL, ing.Kind, *req.Position, req.Note, *analysis, p.now())
	if err != nil {
		p.ingestor.Discard(ctx, ing)
		return nil, err
	}
	if err := p.store.Append(ctx, *rec); err != nil {
		p.ingestor.Discard(ctx, ing)
		logger.WithError(err).Error("Failed to append report")
		return nil, err
	}
	logger.WithFields(log.Fields{"id": rec.ID, "issue_type": rec.Analysis.IssueType, "priority": rec.Analysis.Priority}).Info("Report accepted")

	out = &Outcome{Record: rec}
	if p.ledger != nil && p.opts.RewardPoints > 0 {
		total, err := p.ledger.Grant(ctx, p.opts.RewardPoints)
		if err != nil {
			logger.WithError(err).Error("Reward grant failed, report is kept")
		} else {
			out.PointsAwarded = p.opts.RewardPoints
			out.PointsTotal = total
		}
	}

	p.publish(ctx, models.EventReportCreated, *rec)
	return out, nil
}

// AdvanceStatus moves a report one step along New -> InProgress -> Resolved -> New.
// An unknown id returns (nil, nil).
func (p *Pipeline) AdvanceStatus(ctx context.Context, id string) (*models.ReportRecord, error) {
	rec, err := lifecycle.Advance(ctx, p.store, id)
	if err != nil || rec == nil {
		return rec, err
	}
	metrics.StatusTransitionsTotal.WithLabelValues(string(rec.Status)).Inc()
	log.WithFields(log.Fields{"id": id, "status": rec.Status}).Info("Report status advanced")
	p.publish(ctx, models.EventReportStatusChanged, *rec)
	return rec, nil
}

// classify runs Analyze and, when enabled, the auxiliary yes/no check concurrently.
// Both must succeed; the decision only uses Analyze.
func (p *Pipeline) classify(ctx context.Context, ing *media.Ingested) (*models.AIAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.ClassifierTimeout)
	defer cancel()

	source := p.classifier.SourceName()
	var (
		analysis *models.AIAnalysis
		checked  bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		defer func() {
			metrics.ClassifierDurationSeconds.WithLabelValues(source, "analyze").Observe(time.Since(start).Seconds())
		}()
		a, err := p.classifier.Analyze(gctx, ing.StillFrame, ing.StillFrameMIME)
		if err != nil {
			return err
		}
		analysis = a
		return nil
	})
	if p.opts.TrashCheck {
		g.Go(func() error {
			start := time.Now()
			defer func() {
				metrics.ClassifierDurationSeconds.WithLabelValues(source, "check_issue").Observe(time.Since(start).Seconds())
			}()
			ok, err := p.classifier.CheckIssue(gctx, ing.StillFrame, ing.StillFrameMIME)
			if err != nil {
				return err
			}
			checked = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &models.ClassifierError{Source: source, Err: err}
	}
	if analysis == nil {
		return nil, &models.ClassifierError{Source: source, Err: errors.New("empty analysis")}
	}
	if p.opts.TrashCheck && checked != analysis.IssuePresent {
		log.WithFields(log.Fields{"issue_present": analysis.IssuePresent, "check_issue": checked}).Warn("Classifier calls disagree")
	}
	return analysis, nil
}

func (p *Pipeline) publish(ctx context.Context, t models.EventType, rec models.ReportRecord) {
	if p.publisher == nil {
		return
	}
	ev := models.ReportEvent{Type: t, Report: rec, OccurredAt: p.now().UTC()}
	if err := p.publisher.PublishEvent(ctx, ev); err != nil {
		log.WithError(err).WithField("id", rec.ID).Warn("Failed to publish report event")
	}
}

func (p *Pipeline) acquire(key string) bool {
	if key == "" {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[key]; busy {
		return false
	}
	p.inFlight[key] = struct{}{}
	return true
}

func (p *Pipeline) release(key string) {
	if key == "" {
		return
	}
	p.mu.Lock()
	delete(p.inFlight, key)
	p.mu.Unlock()
}

func outcomeLabel(out *Outcome, err error) string {
	var ve *models.ValidationError
	switch {
	case err == nil && out != nil && out.Rejected != nil:
		return "rejected"
	case err == nil:
		return "accepted"
	case errors.Is(err, models.ErrLocationMissing), errors.As(err, &ve):
		return "location_missing"
	case errors.Is(err, models.ErrSubmissionInFlight):
		return "in_flight"
	case models.IsMediaError(err):
		return "media_error"
	case models.IsClassifierError(err):
		return "classifier_error"
	}
	return "error"
}
