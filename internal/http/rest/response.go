package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bwise1/civic_dispatch/internal/dispatch"
	"github.com/bwise1/civic_dispatch/util"
	"github.com/bwise1/civic_dispatch/util/tracing"
	"github.com/bwise1/civic_dispatch/util/values"
	"github.com/sirupsen/logrus"
)

type ServerResponse struct {
	Message    string `json:"message"`
	Status     string `json:"status"`
	StatusCode int    `json:"-"`
	Data       any    `json:"data,omitempty"`
}

func respondWithError(err error, message string, status string, tc *tracing.Context) *ServerResponse {
	entry := tc.Log().WithFields(logrus.Fields{"status": status, "message": message})
	if err != nil {
		entry = entry.WithError(err)
	}
	if util.StatusCode(status) >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
	}
}

func writeJSONResponse(w http.ResponseWriter, body []byte, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

func writeErrorResponse(w http.ResponseWriter, err error, status string, message string) {
	logrus.WithError(err).WithField("status", status).Warn(message)
	body, _ := json.Marshal(ServerResponse{Message: message, Status: status})
	writeJSONResponse(w, body, util.StatusCode(status))
}

// errorStatus maps a dispatch error onto a response status and message.
func errorStatus(err error, fallback string) (string, string) {
	var (
		verr *dispatch.ValidationError
		terr *dispatch.IllegalTransitionError
	)
	switch {
	case errors.As(err, &verr):
		return values.BadRequestBody, verr.Error()
	case errors.As(err, &terr):
		return values.BadRequestBody, "Cannot transition from " + string(terr.From) + " to " + string(terr.To)
	case errors.Is(err, dispatch.ErrNotFound):
		return values.NotFound, "Report not found"
	case errors.Is(err, dispatch.ErrVersionConflict):
		return values.Conflict, "Report was updated by someone else, please retry"
	case errors.Is(err, dispatch.ErrDependencyUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return values.Unavailable, "Service temporarily unavailable, please retry"
	}
	return values.Error, fallback
}
