package model

import (
	"time"

	"github.com/google/uuid"
)

type Announcement struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	AuthorityID uuid.UUID `json:"authority_id"`
	Area        Polygon   `json:"area"`
	Global      bool      `json:"global"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateAnnouncementRequest struct {
	Title   string  `json:"title" validate:"required"`
	Message string  `json:"message" validate:"required"`
	Area    Polygon `json:"area,omitempty" validate:"omitempty,dive"`
}

// AnnouncementFilter selects announcements. A Point matches global announcements
// and those whose area contains it.
type AnnouncementFilter struct {
	AuthorityID   *uuid.UUID
	IncludeGlobal bool
	Point         *Location
	Limit         int
}
