package lifecycle

import (
	"context"
	"testing"

	"danang-green/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	testCases := []struct {
		in   models.ReportStatus
		want models.ReportStatus
	}{
		{models.StatusNew, models.StatusInProgress},
		{models.StatusInProgress, models.StatusResolved},
		{models.StatusResolved, models.StatusNew},
		{models.ReportStatus("archived"), models.StatusNew},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, Next(tc.in), "Next(%q)", tc.in)
	}
}

func TestNextIsThreeCycle(t *testing.T) {
	for _, s := range []models.ReportStatus{models.StatusNew, models.StatusInProgress, models.StatusResolved} {
		assert.Equal(t, s, Next(Next(Next(s))), "three steps from %q", s)
	}
}

type mapUpdater map[string]*models.ReportRecord

func (m mapUpdater) UpdateStatus(_ context.Context, id string, next func(models.ReportStatus) models.ReportStatus) (*models.ReportRecord, bool, error) {
	r, ok := m[id]
	if !ok {
		return nil, false, nil
	}
	r.Status = next(r.Status)
	cp := *r
	return &cp, true, nil
}

func TestAdvance(t *testing.T) {
	store := mapUpdater{"r1": {ID: "r1", Status: models.StatusNew}}

	rec, err := Advance(context.Background(), store, "r1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, models.StatusInProgress, rec.Status)
	assert.Equal(t, models.StatusInProgress, store["r1"].Status)

	rec, err = Advance(context.Background(), store, "missing")
	assert.NoError(t, err)
	assert.Nil(t, rec)
}
