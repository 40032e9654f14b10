package dispatch

import (
	"context"

	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/bwise1/civic_dispatch/internal/store"
	"github.com/google/uuid"
)

// Router maps a point to the authority whose region contains it.
type Router struct {
	regions store.RegionStore
}

func NewRouter(regions store.RegionStore) *Router {
	return &Router{regions: regions}
}

// Resolve returns the owning region for point, or nil when no region contains it.
// Overlaps resolve to the earliest approved region.
func (rt *Router) Resolve(ctx context.Context, point model.Location) (*model.AuthorityRegion, error) {
	regions, err := rt.regions.FindContainingRegions(ctx, point)
	if err != nil {
		return nil, storeErr(err, "region lookup")
	}
	if len(regions) == 0 {
		return nil, nil
	}
	region := regions[0]
	return &region, nil
}

// Assign sets r.AssignedAuthority from its location. An unroutable report is
// left unassigned without error.
func (rt *Router) Assign(ctx context.Context, r *model.Report) (*uuid.UUID, error) {
	region, err := rt.Resolve(ctx, r.Location)
	if err != nil {
		return nil, err
	}
	if region == nil {
		r.AssignedAuthority = nil
		return nil, nil
	}
	authority := region.AuthorityID
	r.AssignedAuthority = &authority
	return &authority, nil
}
