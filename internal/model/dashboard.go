package model

import (
	"time"

	"github.com/google/uuid"
)

type DashboardKind string

const (
	DashboardCitizen   DashboardKind = "citizen"
	DashboardAuthority DashboardKind = "authority"
	DashboardAdmin     DashboardKind = "admin"
)

func (k DashboardKind) Valid() bool {
	return k == DashboardCitizen || k == DashboardAuthority || k == DashboardAdmin
}

// ViewerContext identifies who asks for a dashboard. Point is required for citizens.
type ViewerContext struct {
	ViewerID uuid.UUID
	Point    *Location
}

type ReportSummary struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Category      Category  `json:"category"`
	Status        Status    `json:"status"`
	PriorityScore int       `json:"priority_score"`
	Location      Location  `json:"location"`
	CreatedAt     time.Time `json:"created_at"`
}

type NearbyReport struct {
	ReportSummary
	Distance int `json:"distance"`
}

type StatusCount struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

type CategoryCount struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}

type HeatPoint struct {
	Location [2]float64 `json:"location"`
	Weight   int        `json:"weight"`
	Category Category   `json:"category"`
}

type CategoryHeatmap struct {
	Category  Category     `json:"category"`
	Count     int          `json:"count"`
	Locations [][2]float64 `json:"locations"`
}

type CitizenDashboard struct {
	MyReports     []ReportSummary `json:"my_reports"`
	NearbyReports []NearbyReport  `json:"nearby_reports"`
	Announcements []Announcement  `json:"announcements"`
}

type AuthorityStats struct {
	StatusCounts  []StatusCount   `json:"status_counts"`
	CategoryStats []CategoryCount `json:"category_stats"`
}

type AuthorityDashboard struct {
	Stats           AuthorityStats  `json:"stats"`
	RecentReports   []ReportSummary `json:"recent_reports"`
	HeatmapData     []HeatPoint     `json:"heatmap_data"`
	HeatmapPolyline string          `json:"heatmap_polyline"`
}

type ReportStats struct {
	Total              int           `json:"total"`
	ByStatus           []StatusCount `json:"by_status"`
	AvgResolutionHours float64       `json:"avg_resolution_hours"`
}

type AuthorityPerformance struct {
	AuthorityID        uuid.UUID `json:"authority_id"`
	Name               string    `json:"name"`
	TotalReports       int       `json:"total_reports"`
	Resolved           int       `json:"resolved"`
	AvgResolutionHours *float64  `json:"avg_resolution_hours"`
}

type AdminDashboard struct {
	ReportStats          ReportStats            `json:"report_stats"`
	HeatmapData          []HeatPoint            `json:"heatmap_data"`
	HeatmapPolyline      string                 `json:"heatmap_polyline"`
	AuthorityPerformance []AuthorityPerformance `json:"authority_performance"`
}

// DashboardView is what the transport returns: the snapshot plus whether it came from cache.
type DashboardView struct {
	Kind      DashboardKind `json:"kind"`
	FromCache bool          `json:"from_cache"`
	Data      any           `json:"data"`
}
