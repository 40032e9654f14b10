package rest

import (
	"net/http"

	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/bwise1/civic_dispatch/util"
	"github.com/bwise1/civic_dispatch/util/tracing"
	"github.com/bwise1/civic_dispatch/util/values"
	"github.com/go-chi/chi/v5"
)

// RegionRoutes is the hook the authority approval workflow calls.
func (api *API) RegionRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Group(func(r chi.Router) {
		r.Use(api.RequireLogin)
		r.Use(RequireRole(values.RoleAdmin))
		r.Method(http.MethodPost, "/", Handler(api.RegisterRegion))
		r.Method(http.MethodGet, "/", Handler(api.ListRegions))
	})

	return mux
}

func (api *API) RegisterRegion(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var req model.RegisterRegionRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, util.ValidationMessage(err), values.BadRequestBody, &tc)
	}

	region, err := api.Deps.Dispatch.RegisterRegion(r.Context(), req.AuthorityID, req.Name, req.Area)
	if err != nil {
		status, message := errorStatus(err, "Failed to register region")
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    "Region registered successfully",
		Status:     values.Created,
		StatusCode: util.StatusCode(values.Created),
		Data:       region,
	}
}

func (api *API) ListRegions(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	regions, err := api.Deps.Dispatch.ListRegions(r.Context())
	if err != nil {
		status, message := errorStatus(err, "Failed to fetch regions")
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    "Regions fetched successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       regions,
	}
}
