package rest

import (
	"net/http"

	"github.com/bwise1/civic_dispatch/internal/notify"
	"github.com/bwise1/civic_dispatch/util"
	"github.com/bwise1/civic_dispatch/util/tracing"
	"github.com/bwise1/civic_dispatch/util/values"
)

// ServeWebSocket subscribes the caller to its personal room plus the room
// its role entitles it to.
func (api *API) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		writeErrorResponse(w, err, values.NotAuthorised, "not-authorized")
		return
	}

	rooms := []string{notify.UserChannel(userID)}
	switch util.GetRoleFromContext(r.Context()) {
	case values.RoleAuthority:
		rooms = append(rooms, notify.AuthorityChannel(userID))
	case values.RoleAdmin:
		rooms = append(rooms, notify.AdminChannel)
	}

	api.Deps.WebSocket.ServeClient(w, r, userID.String(), rooms, tc.Log())
}
