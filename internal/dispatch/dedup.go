package dispatch

import (
	"context"

	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/bwise1/civic_dispatch/internal/store"
)

// DefaultDuplicateRadiusMeters is used when no radius is configured.
const DefaultDuplicateRadiusMeters = 50

// DuplicateDetector flags a new report when an unresolved report of the same
// category already exists nearby.
type DuplicateDetector struct {
	store        store.ReportStore
	radiusMeters float64
}

func NewDuplicateDetector(s store.ReportStore, radiusMeters float64) *DuplicateDetector {
	if radiusMeters <= 0 {
		radiusMeters = DefaultDuplicateRadiusMeters
	}
	return &DuplicateDetector{store: s, radiusMeters: radiusMeters}
}

func (d *DuplicateDetector) RadiusMeters() float64 {
	return d.radiusMeters
}

// IsDuplicate never fails open: a store error is returned as ErrDependencyUnavailable.
func (d *DuplicateDetector) IsDuplicate(ctx context.Context, location model.Location, category model.Category) (bool, error) {
	exists, err := d.store.ExistsWithinRadius(ctx, store.RadiusQuery{
		Point:           location,
		RadiusMeters:    d.radiusMeters,
		Category:        category,
		ExcludeStatuses: []model.Status{model.StatusResolved},
	})
	if err != nil {
		return false, storeErr(err, "duplicate check")
	}
	return exists, nil
}
