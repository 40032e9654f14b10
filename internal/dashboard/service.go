// Package dashboard builds the citizen, authority and admin aggregate views
// and serves them through the TTL cache.
package dashboard

import (
	"context"
	"time"

	"github.com/bwise1/civic_dispatch/internal/cache"
	"github.com/bwise1/civic_dispatch/internal/dispatch"
	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/bwise1/civic_dispatch/internal/store"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultCitizenTTL   = 300 * time.Second
	DefaultAuthorityTTL = 300 * time.Second
	DefaultAdminTTL     = 600 * time.Second

	DefaultNearbyRadiusMeters = 500

	myReportsLimit     = 5
	nearbyLimit        = 10
	announcementsLimit = 5
	recentReportsLimit = 5
)

var tracer = otel.Tracer("github.com/bwise1/civic_dispatch/internal/dashboard")

type Config struct {
	CitizenTTL         time.Duration
	AuthorityTTL       time.Duration
	AdminTTL           time.Duration
	NearbyRadiusMeters float64
}

func (c *Config) applyDefaults() {
	if c.CitizenTTL <= 0 {
		c.CitizenTTL = DefaultCitizenTTL
	}
	if c.AuthorityTTL <= 0 {
		c.AuthorityTTL = DefaultAuthorityTTL
	}
	if c.AdminTTL <= 0 {
		c.AdminTTL = DefaultAdminTTL
	}
	if c.NearbyRadiusMeters <= 0 {
		c.NearbyRadiusMeters = DefaultNearbyRadiusMeters
	}
}

type Service struct {
	store store.Store
	cache *cache.Cache
	cfg   Config
}

func NewService(s store.Store, c *cache.Cache, cfg Config) *Service {
	cfg.applyDefaults()
	return &Service{store: s, cache: c, cfg: cfg}
}

// GetDashboard returns the snapshot for kind. Snapshots are only refreshed
// when their TTL runs out; writes do not invalidate them.
func (s *Service) GetDashboard(ctx context.Context, kind model.DashboardKind, viewer model.ViewerContext) (model.DashboardView, error) {
	ctx, span := tracer.Start(ctx, "dashboard.Get", trace.WithAttributes(attribute.String("kind", string(kind))))
	defer span.End()

	switch kind {
	case model.DashboardCitizen:
		if viewer.ViewerID == uuid.Nil {
			return model.DashboardView{}, &dispatch.ValidationError{Field: "viewer", Reason: "is required"}
		}
		if viewer.Point == nil {
			return model.DashboardView{}, &dispatch.ValidationError{Field: "point", Reason: "latitude and longitude are required"}
		}
		if err := viewer.Point.Validate(); err != nil {
			return model.DashboardView{}, &dispatch.ValidationError{Field: "point", Reason: err.Error()}
		}
		point := viewer.Point.Rounded(coordinateDecimals)
		res, err := cache.GetOrCompute(ctx, s.cache, CitizenKey(viewer.ViewerID, point), s.cfg.CitizenTTL,
			func(ctx context.Context) (model.CitizenDashboard, error) {
				return s.citizen(ctx, viewer.ViewerID, point)
			})
		return view(kind, res.Value, res.FromCache, err)

	case model.DashboardAuthority:
		if viewer.ViewerID == uuid.Nil {
			return model.DashboardView{}, &dispatch.ValidationError{Field: "viewer", Reason: "is required"}
		}
		res, err := cache.GetOrCompute(ctx, s.cache, AuthorityKey(viewer.ViewerID), s.cfg.AuthorityTTL,
			func(ctx context.Context) (model.AuthorityDashboard, error) {
				return s.authority(ctx, viewer.ViewerID)
			})
		return view(kind, res.Value, res.FromCache, err)

	case model.DashboardAdmin:
		res, err := cache.GetOrCompute(ctx, s.cache, AdminKey(), s.cfg.AdminTTL, s.admin)
		return view(kind, res.Value, res.FromCache, err)
	}

	return model.DashboardView{}, &dispatch.ValidationError{Field: "kind", Reason: "must be citizen, authority or admin"}
}

func view(kind model.DashboardKind, data any, fromCache bool, err error) (model.DashboardView, error) {
	if err != nil {
		return model.DashboardView{}, err
	}
	return model.DashboardView{Kind: kind, FromCache: fromCache, Data: data}, nil
}

func (s *Service) citizen(ctx context.Context, viewer uuid.UUID, point model.Location) (model.CitizenDashboard, error) {
	mine, err := s.store.ListReports(ctx, model.ReportFilter{
		OwnerID: &viewer,
		Sort:    model.SortNewest,
		Limit:   myReportsLimit,
	})
	if err != nil {
		return model.CitizenDashboard{}, dispatch.FromStoreError(err, "citizen dashboard")
	}

	nearby, err := s.store.ListReports(ctx, model.ReportFilter{
		ExcludeOwner: &viewer,
		Near:         &model.Proximity{Point: point, RadiusMeters: s.cfg.NearbyRadiusMeters},
		Statuses:     model.PublicStatuses,
		Sort:         model.SortDistance,
		Limit:        nearbyLimit,
	})
	if err != nil {
		return model.CitizenDashboard{}, dispatch.FromStoreError(err, "citizen dashboard")
	}

	announcements, err := s.store.ListAnnouncements(ctx, model.AnnouncementFilter{
		Point:         &point,
		IncludeGlobal: true,
		Limit:         announcementsLimit,
	})
	if err != nil {
		return model.CitizenDashboard{}, dispatch.FromStoreError(err, "citizen dashboard")
	}

	out := model.CitizenDashboard{
		MyReports:     summaries(mine),
		NearbyReports: make([]model.NearbyReport, len(nearby)),
		Announcements: announcements,
	}
	for i, r := range nearby {
		out.NearbyReports[i] = model.NearbyReport{
			ReportSummary: r.Summary(),
			Distance:      roundedDistance(point, r.Location),
		}
	}
	return out, nil
}

func (s *Service) authority(ctx context.Context, authority uuid.UUID) (model.AuthorityDashboard, error) {
	reports, err := s.store.ListReports(ctx, model.ReportFilter{AuthorityID: &authority})
	if err != nil {
		return model.AuthorityDashboard{}, dispatch.FromStoreError(err, "authority dashboard")
	}

	heat := heatPoints(filterStatuses(reports, model.PublicStatuses...))
	return model.AuthorityDashboard{
		Stats: model.AuthorityStats{
			StatusCounts:  statusCounts(reports),
			CategoryStats: categoryCounts(reports),
		},
		RecentReports:   summaries(topByPriority(reports, recentReportsLimit)),
		HeatmapData:     heat,
		HeatmapPolyline: encodeHeatmap(heat),
	}, nil
}

func (s *Service) admin(ctx context.Context) (model.AdminDashboard, error) {
	reports, err := s.store.ListReports(ctx, model.ReportFilter{})
	if err != nil {
		return model.AdminDashboard{}, dispatch.FromStoreError(err, "admin dashboard")
	}
	regions, err := s.store.ListRegions(ctx)
	if err != nil {
		return model.AdminDashboard{}, dispatch.FromStoreError(err, "admin dashboard")
	}

	avg, _ := averageResolutionHours(reports)
	heat := heatPoints(reports)
	return model.AdminDashboard{
		ReportStats: model.ReportStats{
			Total:              len(reports),
			ByStatus:           statusCounts(reports),
			AvgResolutionHours: avg,
		},
		HeatmapData:          heat,
		HeatmapPolyline:      encodeHeatmap(heat),
		AuthorityPerformance: authorityPerformance(regions, reports),
	}, nil
}
