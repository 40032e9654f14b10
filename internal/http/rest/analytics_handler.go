package rest

import (
	"net/http"

	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/bwise1/civic_dispatch/util"
	"github.com/bwise1/civic_dispatch/util/tracing"
	"github.com/bwise1/civic_dispatch/util/values"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (api *API) AnalyticsRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Group(func(r chi.Router) {
		r.Use(api.RequireLogin)
		r.Method(http.MethodGet, "/citizen", Handler(api.GetCitizenDashboard))
		r.With(RequireRole(values.RoleAuthority, values.RoleAdmin)).
			Method(http.MethodGet, "/authority", Handler(api.GetAuthorityDashboard))
		r.With(RequireRole(values.RoleAdmin)).
			Method(http.MethodGet, "/admin", Handler(api.GetAdminDashboard))
	})

	return mux
}

type citizenDashboardQuery struct {
	Latitude  *float64 `schema:"latitude"`
	Longitude *float64 `schema:"longitude"`
}

func (api *API) GetCitizenDashboard(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var q citizenDashboardQuery
	if err := queryDecoder.Decode(&q, r.URL.Query()); err != nil {
		return respondWithError(err, "invalid query parameters", values.BadRequestBody, &tc)
	}
	if q.Latitude == nil || q.Longitude == nil {
		return respondWithError(nil, "latitude and longitude are required", values.BadRequestBody, &tc)
	}

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "unable to get user ID from context", values.NotAuthorised, &tc)
	}

	return api.dashboardResponse(r, &tc, model.DashboardCitizen, model.ViewerContext{
		ViewerID: userID,
		Point:    &model.Location{Longitude: *q.Longitude, Latitude: *q.Latitude},
	})
}

// GetAuthorityDashboard serves the caller's own dashboard; admins may pass
// authority_id to look at any authority.
func (api *API) GetAuthorityDashboard(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "unable to get user ID from context", values.NotAuthorised, &tc)
	}

	viewer := userID
	if raw := r.URL.Query().Get("authority_id"); raw != "" && util.GetRoleFromContext(r.Context()) == values.RoleAdmin {
		viewer, err = uuid.Parse(raw)
		if err != nil {
			return respondWithError(err, "invalid authority_id", values.BadRequestBody, &tc)
		}
	}

	return api.dashboardResponse(r, &tc, model.DashboardAuthority, model.ViewerContext{ViewerID: viewer})
}

func (api *API) GetAdminDashboard(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)
	return api.dashboardResponse(r, &tc, model.DashboardAdmin, model.ViewerContext{})
}

func (api *API) dashboardResponse(r *http.Request, tc *tracing.Context, kind model.DashboardKind, viewer model.ViewerContext) *ServerResponse {
	view, err := api.Deps.Dashboard.GetDashboard(r.Context(), kind, viewer)
	if err != nil {
		status, message := errorStatus(err, "Failed to build dashboard")
		return respondWithError(err, message, status, tc)
	}

	return &ServerResponse{
		Message:    "Dashboard fetched successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       view,
	}
}
