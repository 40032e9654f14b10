package rest

import (
	"context"
	"errors"

	"github.com/bwise1/civic_dispatch/internal/dispatch"
	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/bwise1/civic_dispatch/util/values"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (api *API) CreateReportHelper(ctx context.Context, req model.CreateReportRequest, ownerID uuid.UUID) (model.Report, string, string, error) {
	result, err := api.Deps.Dispatch.CreateReport(ctx, dispatch.CreateReportInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Severity:    req.Severity,
		Location:    req.Location,
		PhotoURL:    req.PhotoURL,
		OwnerID:     ownerID,
	})
	if err != nil {
		status, message := errorStatus(err, "Failed to create report")
		return model.Report{}, status, message, err
	}
	if result.Duplicate {
		return model.Report{}, values.Conflict, "Similar report already exists nearby", errors.New("duplicate report")
	}

	return result.Report, values.Created, "Report created successfully", nil
}

// reportFilterFor applies role policy: citizens see their own reports plus
// public ones, authorities see what is assigned to them, admins see everything.
func (api *API) reportFilterFor(q listReportsQuery, userID uuid.UUID, role string) (model.ReportFilter, error) {
	filter := model.ReportFilter{Sort: model.ReportSort(q.Sort)}

	switch filter.Sort {
	case "", model.SortNewest, model.SortPriority, model.SortDistance:
	default:
		return filter, errors.New("sort must be newest, priority or distance")
	}

	switch role {
	case values.RoleAdmin:
	case values.RoleAuthority:
		filter.AuthorityID = &userID
	default:
		filter.VisibleTo = &userID
		if q.Mine {
			filter.OwnerID = &userID
		}
	}

	if (q.Latitude == nil) != (q.Longitude == nil) {
		return filter, errors.New("latitude and longitude must be given together")
	}
	if q.Latitude != nil {
		radius := q.Radius
		if radius <= 0 {
			radius = api.Config.ListNearbyRadiusMeters
		}
		filter.Near = &model.Proximity{
			Point:        model.Location{Longitude: *q.Longitude, Latitude: *q.Latitude},
			RadiusMeters: radius,
		}
	}

	for _, s := range q.Status {
		filter.Statuses = append(filter.Statuses, model.Status(s))
	}
	for _, c := range q.Category {
		filter.Categories = append(filter.Categories, model.Category(c))
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	return filter, nil
}

func (api *API) ListReportsHelper(ctx context.Context, q listReportsQuery, userID uuid.UUID, role string) ([]model.Report, string, string, error) {
	filter, err := api.reportFilterFor(q, userID, role)
	if err != nil {
		return nil, values.BadRequestBody, err.Error(), err
	}

	reports, err := api.Deps.Dispatch.ListReports(ctx, filter)
	if err != nil {
		status, message := errorStatus(err, "Failed to fetch reports")
		return nil, status, message, err
	}
	return reports, values.Success, "Reports fetched successfully", nil
}

// canView mirrors the list policy for a single report.
func canView(report model.Report, userID uuid.UUID, role string) bool {
	switch role {
	case values.RoleAdmin:
		return true
	case values.RoleAuthority:
		return report.AssignedAuthority != nil && *report.AssignedAuthority == userID
	}
	if report.OwnerID == userID {
		return true
	}
	for _, s := range model.PublicStatuses {
		if report.Status == s {
			return true
		}
	}
	return false
}

func (api *API) GetReportByIDHelper(ctx context.Context, id, userID uuid.UUID, role string) (model.Report, string, string, error) {
	report, err := api.Deps.Dispatch.GetReport(ctx, id)
	if err != nil {
		status, message := errorStatus(err, "Failed to fetch report")
		return model.Report{}, status, message, err
	}
	if !canView(report, userID, role) {
		return model.Report{}, values.NotFound, "Report not found", dispatch.ErrNotFound
	}
	return report, values.Success, "Report fetched successfully", nil
}

func (api *API) UpdateReportStatusHelper(ctx context.Context, id uuid.UUID, req model.StatusUpdateRequest, actorID uuid.UUID, role string) (model.Report, string, string, error) {
	if role == values.RoleAuthority {
		current, err := api.Deps.Dispatch.GetReport(ctx, id)
		if err != nil {
			status, message := errorStatus(err, "Failed to fetch report")
			return model.Report{}, status, message, err
		}
		if current.AssignedAuthority == nil || *current.AssignedAuthority != actorID {
			return model.Report{}, values.NotAllowed, "Report is not assigned to you", errors.New("report not assigned to caller")
		}
	}

	report, err := api.Deps.Dispatch.TransitionStatus(ctx, id, req.Status, actorID, req.Note)
	if err != nil {
		status, message := errorStatus(err, "Failed to update report status")
		return model.Report{}, status, message, err
	}
	return report, values.Success, "Report status updated successfully", nil
}

// VoteHelper applies the same visibility as GetReportByIDHelper, so a hidden
// report answers 404 here too.
func (api *API) VoteHelper(ctx context.Context, id, voterID uuid.UUID, role string, value int, verification bool) (model.Report, string, string, error) {
	current, err := api.Deps.Dispatch.GetReport(ctx, id)
	if err != nil {
		status, message := errorStatus(err, "Failed to fetch report")
		return model.Report{}, status, message, err
	}
	if !canView(current, voterID, role) {
		return model.Report{}, values.NotFound, "Report not found", dispatch.ErrNotFound
	}

	var report model.Report
	if verification {
		report, err = api.Deps.Dispatch.Verify(ctx, id, voterID, value)
	} else {
		report, err = api.Deps.Dispatch.Vote(ctx, id, voterID, value)
	}
	if err != nil {
		status, message := errorStatus(err, "Failed to record vote")
		return model.Report{}, status, message, err
	}
	if verification {
		return report, values.Success, "Verification recorded successfully", nil
	}
	return report, values.Success, "Vote recorded successfully", nil
}
