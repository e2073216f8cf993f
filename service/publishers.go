package service

import (
	"context"
	"errors"

	"danang-green/models"
)

// Publishers fans one event out to every publisher. Every publisher is tried.
type Publishers []EventPublisher

func (ps Publishers) PublishEvent(ctx context.Context, ev models.ReportEvent) error {
	var errs []error
	for _, p := range ps {
		if p == nil {
			continue
		}
		if err := p.PublishEvent(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
