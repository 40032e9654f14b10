package rest

import (
	"net/http"

	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/bwise1/civic_dispatch/util"
	"github.com/bwise1/civic_dispatch/util/tracing"
	"github.com/bwise1/civic_dispatch/util/values"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
)

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

func (api *API) ReportRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Group(func(r chi.Router) {
		r.Use(api.RequireLogin)
		r.Method(http.MethodPost, "/", Handler(api.CreateReport))
		r.Method(http.MethodGet, "/", Handler(api.ListReports))
		r.With(RequireRole(values.RoleAdmin)).Method(http.MethodGet, "/heatmap", Handler(api.GetHeatmap))

		r.Method(http.MethodGet, "/{reportID}", Handler(api.GetReportByID))
		r.With(RequireRole(values.RoleAuthority, values.RoleAdmin)).
			Method(http.MethodPatch, "/{reportID}/status", Handler(api.UpdateReportStatus))
		r.With(RequireRole(values.RoleAdmin)).
			Method(http.MethodPatch, "/{reportID}/assign", Handler(api.AssignReport))
		r.Method(http.MethodPost, "/{reportID}/vote", Handler(api.VoteOnReport))
		r.Method(http.MethodPost, "/{reportID}/verify", Handler(api.VerifyReport))
	})

	return mux
}

func (api *API) CreateReport(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var req model.CreateReportRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, util.ValidationMessage(err), values.BadRequestBody, &tc)
	}

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "unable to get user ID from context", values.NotAuthorised, &tc)
	}

	report, status, message, err := api.CreateReportHelper(r.Context(), req, userID)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       report,
	}
}

// listReportsQuery is decoded from the query string, e.g.
// ?status=verified&status=in_progress&latitude=12.9&longitude=77.6&radius=1000
type listReportsQuery struct {
	Status    []string `schema:"status"`
	Category  []string `schema:"category"`
	Latitude  *float64 `schema:"latitude"`
	Longitude *float64 `schema:"longitude"`
	Radius    float64  `schema:"radius"`
	Sort      string   `schema:"sort"`
	Mine      bool     `schema:"mine"`
	Page      int      `schema:"page"`
	PageSize  int      `schema:"page_size"`
}

func (api *API) ListReports(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var q listReportsQuery
	if err := queryDecoder.Decode(&q, r.URL.Query()); err != nil {
		return respondWithError(err, "invalid query parameters", values.BadRequestBody, &tc)
	}

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "unable to get user ID from context", values.NotAuthorised, &tc)
	}

	reports, status, message, err := api.ListReportsHelper(r.Context(), q, userID, util.GetRoleFromContext(r.Context()))
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       reports,
	}
}

func (api *API) GetReportByID(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	reportID, err := util.StringToUUID(chi.URLParam(r, "reportID"))
	if err != nil {
		return respondWithError(err, "invalid report ID", values.BadRequestBody, &tc)
	}

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "unable to get user ID from context", values.NotAuthorised, &tc)
	}

	report, status, message, err := api.GetReportByIDHelper(r.Context(), reportID, userID, util.GetRoleFromContext(r.Context()))
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       report,
	}
}

func (api *API) UpdateReportStatus(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	reportID, err := util.StringToUUID(chi.URLParam(r, "reportID"))
	if err != nil {
		return respondWithError(err, "invalid report ID", values.BadRequestBody, &tc)
	}

	var req model.StatusUpdateRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, util.ValidationMessage(err), values.BadRequestBody, &tc)
	}

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "unable to get user ID from context", values.NotAuthorised, &tc)
	}

	report, status, message, err := api.UpdateReportStatusHelper(r.Context(), reportID, req, userID, util.GetRoleFromContext(r.Context()))
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       report,
	}
}

func (api *API) AssignReport(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	reportID, err := util.StringToUUID(chi.URLParam(r, "reportID"))
	if err != nil {
		return respondWithError(err, "invalid report ID", values.BadRequestBody, &tc)
	}

	var req model.AssignRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	report, err := api.Deps.Dispatch.AssignReport(r.Context(), reportID, req.AuthorityID)
	if err != nil {
		status, message := errorStatus(err, "Failed to assign report")
		return respondWithError(err, message, status, &tc)
	}

	message := "Report assigned successfully"
	if report.AssignedAuthority == nil {
		message = "No authority region contains this report, it remains unassigned"
	}
	return &ServerResponse{
		Message:    message,
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       report,
	}
}

func (api *API) VoteOnReport(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	return api.handleVote(r, false)
}

func (api *API) VerifyReport(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	return api.handleVote(r, true)
}

func (api *API) handleVote(r *http.Request, verification bool) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	reportID, err := util.StringToUUID(chi.URLParam(r, "reportID"))
	if err != nil {
		return respondWithError(err, "invalid report ID", values.BadRequestBody, &tc)
	}

	var req model.VoteRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, "value must be 1 or -1", values.BadRequestBody, &tc)
	}

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "unable to get user ID from context", values.NotAuthorised, &tc)
	}

	report, status, message, err := api.VoteHelper(r.Context(), reportID, userID, util.GetRoleFromContext(r.Context()), req.Value, verification)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       report,
	}
}

func (api *API) GetHeatmap(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	heatmap, err := api.Deps.Dispatch.Heatmap(r.Context())
	if err != nil {
		status, message := errorStatus(err, "Failed to build heatmap")
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    "Heatmap fetched successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       heatmap,
	}
}
