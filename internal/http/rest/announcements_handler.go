package rest

import (
	"net/http"

	"github.com/bwise1/civic_dispatch/internal/dispatch"
	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/bwise1/civic_dispatch/util"
	"github.com/bwise1/civic_dispatch/util/tracing"
	"github.com/bwise1/civic_dispatch/util/values"
	"github.com/go-chi/chi/v5"
)

const announcementsPageSize = 50

func (api *API) AnnouncementRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Group(func(r chi.Router) {
		r.Use(api.RequireLogin)
		r.With(RequireRole(values.RoleAuthority, values.RoleAdmin)).
			Method(http.MethodPost, "/", Handler(api.CreateAnnouncement))
		r.Method(http.MethodGet, "/", Handler(api.ListAnnouncements))
	})

	return mux
}

func (api *API) CreateAnnouncement(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var req model.CreateAnnouncementRequest
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

	announcement, err := api.Deps.Dispatch.CreateAnnouncement(r.Context(), dispatch.AnnouncementInput{
		Title:       req.Title,
		Message:     req.Message,
		AuthorityID: userID,
		Area:        req.Area,
	})
	if err != nil {
		status, message := errorStatus(err, "Failed to create announcement")
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    "Announcement created successfully",
		Status:     values.Created,
		StatusCode: util.StatusCode(values.Created),
		Data:       announcement,
	}
}

// ListAnnouncements: admins see all, authorities their own plus global ones,
// citizens those covering the given point plus global ones.
func (api *API) ListAnnouncements(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "unable to get user ID from context", values.NotAuthorised, &tc)
	}

	filter := model.AnnouncementFilter{Limit: announcementsPageSize}
	switch util.GetRoleFromContext(r.Context()) {
	case values.RoleAdmin:
	case values.RoleAuthority:
		filter.AuthorityID = &userID
		filter.IncludeGlobal = true
	default:
		var q citizenDashboardQuery
		if err := queryDecoder.Decode(&q, r.URL.Query()); err != nil {
			return respondWithError(err, "invalid query parameters", values.BadRequestBody, &tc)
		}
		if q.Latitude == nil || q.Longitude == nil {
			return respondWithError(nil, "latitude and longitude are required", values.BadRequestBody, &tc)
		}
		filter.Point = &model.Location{Longitude: *q.Longitude, Latitude: *q.Latitude}
		filter.IncludeGlobal = true
	}

	announcements, err := api.Deps.Dispatch.ListAnnouncements(r.Context(), filter)
	if err != nil {
		status, message := errorStatus(err, "Failed to fetch announcements")
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    "Announcements fetched successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       announcements,
	}
}
