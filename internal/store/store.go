// Package store is the persistence and spatial-query boundary of the dispatch
// engine. Implementations carry no business rules: they filter, persist and
// enforce optimistic versioning, nothing else.
package store

import (
	"context"
	"errors"

	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("record was modified concurrently")
)

// RadiusQuery asks whether any report of Category that is not in one of
// ExcludeStatuses lies within RadiusMeters of Point.
type RadiusQuery struct {
	Point           model.Location
	RadiusMeters    float64
	Category        model.Category
	ExcludeStatuses []model.Status
}

type ReportStore interface {
	// CreateReport inserts r and sets r.Version to 1.
	CreateReport(ctx context.Context, r *model.Report) error
	GetReport(ctx context.Context, id uuid.UUID) (model.Report, error)
	// UpdateReport persists r if the stored version still equals r.Version,
	// then increments r.Version. Otherwise it returns ErrVersionConflict.
	UpdateReport(ctx context.Context, r *model.Report) error
	ListReports(ctx context.Context, filter model.ReportFilter) ([]model.Report, error)
	ExistsWithinRadius(ctx context.Context, q RadiusQuery) (bool, error)
}

type RegionStore interface {
	// FindContainingRegions returns every region containing point, earliest approval first.
	FindContainingRegions(ctx context.Context, point model.Location) ([]model.AuthorityRegion, error)
	CreateRegion(ctx context.Context, region *model.AuthorityRegion) error
	ListRegions(ctx context.Context) ([]model.AuthorityRegion, error)
}

type AnnouncementStore interface {
	CreateAnnouncement(ctx context.Context, a *model.Announcement) error
	ListAnnouncements(ctx context.Context, filter model.AnnouncementFilter) ([]model.Announcement, error)
}

type Store interface {
	ReportStore
	RegionStore
	AnnouncementStore
}
