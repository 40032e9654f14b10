package store

import (
	"context"
	"sort"
	"sync"

	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/google/uuid"
)

// MemoryStore keeps everything in process. It backs tests and STORE_BACKEND=memory.
type MemoryStore struct {
	mu            sync.RWMutex
	reports       map[uuid.UUID]model.Report
	regions       []model.AuthorityRegion
	announcements []model.Announcement
	regionSeq     int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[uuid.UUID]model.Report)}
}

func (s *MemoryStore) CreateReport(ctx context.Context, r *model.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r.Version = 1
	s.reports[r.ID] = r.Clone()
	return nil
}

func (s *MemoryStore) GetReport(ctx context.Context, id uuid.UUID) (model.Report, error) {
	if err := ctx.Err(); err != nil {
		return model.Report{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return model.Report{}, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) UpdateReport(ctx context.Context, r *model.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.reports[r.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != r.Version {
		return ErrVersionConflict
	}
	r.Version++
	s.reports[r.ID] = r.Clone()
	return nil
}

func (s *MemoryStore) ListReports(ctx context.Context, filter model.ReportFilter) ([]model.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	type hit struct {
		report   model.Report
		distance float64
	}
	hits := make([]hit, 0)
	for _, r := range s.reports {
		if !filter.Matches(r) {
			continue
		}
		var d float64
		if filter.Near != nil {
			d = filter.Near.Point.DistanceTo(r.Location)
			if d > filter.Near.RadiusMeters {
				continue
			}
		}
		hits = append(hits, hit{report: r.Clone(), distance: d})
	}
	s.mu.RUnlock()

	sortBy := filter.Sort
	if sortBy == "" {
		sortBy = model.SortNewest
		if filter.Near != nil {
			sortBy = model.SortDistance
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		switch {
		case sortBy == model.SortDistance && filter.Near != nil && a.distance != b.distance:
			return a.distance < b.distance
		case sortBy == model.SortPriority && a.report.PriorityScore != b.report.PriorityScore:
			return a.report.PriorityScore > b.report.PriorityScore
		case !a.report.CreatedAt.Equal(b.report.CreatedAt):
			return a.report.CreatedAt.After(b.report.CreatedAt)
		}
		return a.report.ID.String() < b.report.ID.String()
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(hits) {
			return []model.Report{}, nil
		}
		hits = hits[filter.Offset:]
	}
	if filter.Limit > 0 && len(hits) > filter.Limit {
		hits = hits[:filter.Limit]
	}

	out := make([]model.Report, len(hits))
	for i, h := range hits {
		out[i] = h.report
	}
	return out, nil
}

func (s *MemoryStore) ExistsWithinRadius(ctx context.Context, q RadiusQuery) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.reports {
		if r.Category != q.Category || isExcluded(r.Status, q.ExcludeStatuses) {
			continue
		}
		if q.Point.DistanceTo(r.Location) <= q.RadiusMeters {
			return true, nil
		}
	}
	return false, nil
}

func isExcluded(status model.Status, excluded []model.Status) bool {
	for _, e := range excluded {
		if e == status {
			return true
		}
	}
	return false
}

func (s *MemoryStore) FindContainingRegions(ctx context.Context, point model.Location) ([]model.AuthorityRegion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.AuthorityRegion, 0)
	for _, region := range s.regions {
		if region.Area.Contains(point) {
			out = append(out, region)
		}
	}
	sortRegions(out)
	return out, nil
}

func (s *MemoryStore) CreateRegion(ctx context.Context, region *model.AuthorityRegion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.regionSeq++
	region.Seq = s.regionSeq
	s.regions = append(s.regions, *region)
	return nil
}

func (s *MemoryStore) ListRegions(ctx context.Context) ([]model.AuthorityRegion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.AuthorityRegion, len(s.regions))
	copy(out, s.regions)
	sortRegions(out)
	return out, nil
}

func sortRegions(regions []model.AuthorityRegion) {
	sort.SliceStable(regions, func(i, j int) bool {
		if !regions[i].ApprovedAt.Equal(regions[j].ApprovedAt) {
			return regions[i].ApprovedAt.Before(regions[j].ApprovedAt)
		}
		return regions[i].Seq < regions[j].Seq
	})
}

func (s *MemoryStore) CreateAnnouncement(ctx context.Context, a *model.Announcement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.announcements = append(s.announcements, *a)
	return nil
}

func (s *MemoryStore) ListAnnouncements(ctx context.Context, filter model.AnnouncementFilter) ([]model.Announcement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Announcement, 0)
	for _, a := range s.announcements {
		if !announcementMatches(a, filter) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func announcementMatches(a model.Announcement, f model.AnnouncementFilter) bool {
	if a.Global && f.IncludeGlobal {
		return true
	}
	if f.AuthorityID != nil {
		return a.AuthorityID == *f.AuthorityID
	}
	if f.Point != nil {
		return !a.Global && a.Area.Contains(*f.Point)
	}
	return true
}
