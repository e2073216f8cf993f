package lifecycle

import (
	"context"

	"danang-green/models"
)

var cycle = map[models.ReportStatus]models.ReportStatus{
	models.StatusNew:        models.StatusInProgress,
	models.StatusInProgress: models.StatusResolved,
	models.StatusResolved:   models.StatusNew,
}

// Next returns the status following s in the cycle New -> InProgress -> Resolved -> New.
// Unknown statuses restart the cycle at New.
func Next(s models.ReportStatus) models.ReportStatus {
	if n, ok := cycle[s]; ok {
		return n
	}
	return models.StatusNew
}

// StatusUpdater applies a status transition to a stored record atomically.
// found is false when no record has the given id.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id string, next func(models.ReportStatus) models.ReportStatus) (rec *models.ReportRecord, found bool, err error)
}

// Advance moves the record with the given id one step along the cycle.
// An unknown id is a no-op and returns (nil, nil).
func Advance(ctx context.Context, store StatusUpdater, id string) (*models.ReportRecord, error) {
	rec, found, err := store.UpdateStatus(ctx, id, Next)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return rec, nil
}
