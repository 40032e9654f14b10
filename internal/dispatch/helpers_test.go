package dispatch

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/bwise1/civic_dispatch/internal/notify"
	"github.com/bwise1/civic_dispatch/internal/store"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var errStoreDown = errors.New("connection refused")

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev notify.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) Events() []notify.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notify.Event, len(p.events))
	copy(out, p.events)
	return out
}

// flakyStore wraps the in-memory store and injects failures.
type flakyStore struct {
	*store.MemoryStore
	failRadius  bool
	failRegions bool

	mu        sync.Mutex
	conflicts int
}

func (s *flakyStore) ExistsWithinRadius(ctx context.Context, q store.RadiusQuery) (bool, error) {
	if s.failRadius {
		return false, errStoreDown
	}
	return s.MemoryStore.ExistsWithinRadius(ctx, q)
}

func (s *flakyStore) FindContainingRegions(ctx context.Context, p model.Location) ([]model.AuthorityRegion, error) {
	if s.failRegions {
		return nil, errStoreDown
	}
	return s.MemoryStore.FindContainingRegions(ctx, p)
}

func (s *flakyStore) UpdateReport(ctx context.Context, r *model.Report) error {
	s.mu.Lock()
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return store.ErrVersionConflict
	}
	s.mu.Unlock()
	return s.MemoryStore.UpdateReport(ctx, r)
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// square returns a closed axis-aligned polygon with its south-west corner at (lng, lat).
func square(lng, lat, size float64) model.Polygon {
	return model.Polygon{
		{Longitude: lng, Latitude: lat},
		{Longitude: lng + size, Latitude: lat},
		{Longitude: lng + size, Latitude: lat + size},
		{Longitude: lng, Latitude: lat + size},
		{Longitude: lng, Latitude: lat},
	}
}

func seedReport(s store.ReportStore, category model.Category, status model.Status, loc model.Location) model.Report {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r := model.Report{
		ID:        uuid.New(),
		Title:     "seed",
		Category:  category,
		Severity:  3,
		Location:  loc,
		Status:    status,
		OwnerID:   uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		History:   []model.HistoryEntry{{Status: status, Timestamp: now}},
	}
	if err := s.CreateReport(context.Background(), &r); err != nil {
		panic(err)
	}
	return r
}
