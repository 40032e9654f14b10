package model

import (
	"time"

	"github.com/google/uuid"
)

// AuthorityRegion ties one authority to the polygon it services. Regions are
// expected to be disjoint; when they overlap, the earliest approval wins.
type AuthorityRegion struct {
	ID          uuid.UUID `json:"id"`
	AuthorityID uuid.UUID `json:"authority_id"`
	Name        string    `json:"name"`
	Area        Polygon   `json:"area"`
	ApprovedAt  time.Time `json:"approved_at"`
	Seq         int64     `json:"-"`
}

type RegisterRegionRequest struct {
	AuthorityID uuid.UUID `json:"authority_id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Area        Polygon   `json:"area" validate:"required,dive"`
}
