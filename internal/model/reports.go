package model

import (
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryPothole      Category = "pothole"
	CategoryGarbage      Category = "garbage"
	CategoryWaterlogging Category = "waterlogging"
	CategoryStreetlight  Category = "streetlight"
	CategoryOther        Category = "other"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryPothole, CategoryGarbage, CategoryWaterlogging, CategoryStreetlight, CategoryOther:
		return true
	}
	return false
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusVerified   Status = "verified"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusRejected   Status = "rejected"
)

// AllStatuses lists statuses in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusVerified, StatusInProgress, StatusResolved, StatusRejected}

// PublicStatuses are visible to every citizen, not only the owner.
var PublicStatuses = []Status{StatusVerified, StatusInProgress}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// Terminal statuses admit no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

const (
	MinSeverity     = 1
	MaxSeverity     = 5
	DefaultSeverity = 3
	MaxTitleLength  = 100
)

type HistoryEntry struct {
	Status    Status    `json:"status"`
	ChangedBy uuid.UUID `json:"changed_by"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
}

type Report struct {
	ID                uuid.UUID         `json:"id"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Category          Category          `json:"category"`
	Severity          int               `json:"severity"`
	Location          Location          `json:"location"`
	PhotoURL          string            `json:"photo_url"`
	Status            Status            `json:"status"`
	PriorityScore     int               `json:"priority_score"`
	VoteCount         int               `json:"vote_count"`
	Votes             map[uuid.UUID]int `json:"votes"`
	VerificationScore int               `json:"verification_score"`
	Verifications     map[uuid.UUID]int `json:"verifications"`
	OwnerID           uuid.UUID         `json:"owner_id"`
	AssignedAuthority *uuid.UUID        `json:"assigned_authority"`
	History           []HistoryEntry    `json:"history"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	Version           int               `json:"version"`
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (r Report) Clone() Report {
	out := r
	out.Votes = cloneVotes(r.Votes)
	out.Verifications = cloneVotes(r.Verifications)
	if r.History != nil {
		out.History = make([]HistoryEntry, len(r.History))
		copy(out.History, r.History)
	}
	if r.AssignedAuthority != nil {
		id := *r.AssignedAuthority
		out.AssignedAuthority = &id
	}
	return out
}

func cloneVotes(in map[uuid.UUID]int) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Summary is the trimmed projection used by dashboards.
func (r Report) Summary() ReportSummary {
	return ReportSummary{
		ID:            r.ID,
		Title:         r.Title,
		Category:      r.Category,
		Status:        r.Status,
		PriorityScore: r.PriorityScore,
		Location:      r.Location,
		CreatedAt:     r.CreatedAt,
	}
}

type CreateReportRequest struct {
	Title       string   `json:"title" validate:"required,max=100"`
	Description string   `json:"description" validate:"required"`
	Category    Category `json:"category" validate:"required,oneof=pothole garbage waterlogging streetlight other"`
	Severity    int      `json:"severity" validate:"omitempty,min=1,max=5"`
	Location    Location `json:"location"`
	PhotoURL    string   `json:"photo_url" validate:"required"`
}

type StatusUpdateRequest struct {
	Status Status `json:"status" validate:"required"`
	Note   string `json:"note"`
}

// AssignRequest names the authority to take over a report. Without one the
// report is re-routed from its location.
type AssignRequest struct {
	AuthorityID *uuid.UUID `json:"authority_id"`
}

type ReportSort string

const (
	SortNewest   ReportSort = "newest"
	SortPriority ReportSort = "priority"
	SortDistance ReportSort = "distance"
)

type Proximity struct {
	Point        Location `json:"point"`
	RadiusMeters float64  `json:"radius_meters"`
}

// ReportFilter composes conjunctively. VisibleTo restricts results to the
// viewer's own reports plus reports in a public status.
type ReportFilter struct {
	OwnerID      *uuid.UUID
	AuthorityID  *uuid.UUID
	ExcludeOwner *uuid.UUID
	VisibleTo    *uuid.UUID
	Near         *Proximity
	Statuses     []Status
	Categories   []Category
	Sort         ReportSort
	Limit        int
	Offset       int
}

// Matches evaluates every predicate except Near, which needs a distance.
func (f ReportFilter) Matches(r Report) bool {
	if f.OwnerID != nil && r.OwnerID != *f.OwnerID {
		return false
	}
	if f.ExcludeOwner != nil && r.OwnerID == *f.ExcludeOwner {
		return false
	}
	if f.AuthorityID != nil && (r.AssignedAuthority == nil || *r.AssignedAuthority != *f.AuthorityID) {
		return false
	}
	if f.VisibleTo != nil && r.OwnerID != *f.VisibleTo && !containsStatus(PublicStatuses, r.Status) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, r.Status) {
		return false
	}
	if len(f.Categories) > 0 {
		found := false
		for _, c := range f.Categories {
			if c == r.Category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsStatus(set []Status, s Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
