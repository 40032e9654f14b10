package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwise1/civic_dispatch/util"
	"github.com/bwise1/civic_dispatch/util/tracing"
	"github.com/bwise1/civic_dispatch/util/values"
	"github.com/lucsky/cuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const defaultRequestSource = "unknown"

// RequestTracing handles the request tracing context
func (api *API) RequestTracing(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestSource := r.Header.Get(values.HeaderRequestSource)
		if requestSource == "" {
			requestSource = defaultRequestSource
		}

		requestID := r.Header.Get(values.HeaderRequestID)
		if requestID == "" {
			requestID = cuid.New()
		}
		w.Header().Set(values.HeaderRequestID, requestID)

		tracingContext := tracing.Context{
			RequestID:     requestID,
			RequestSource: requestSource,
			Logger: api.Logger.WithFields(logrus.Fields{
				"request_id":     requestID,
				"request_source": requestSource,
				"method":         r.Method,
				"path":           r.URL.Path,
			}),
		}

		ctx = context.WithValue(ctx, values.ContextTracingKey, tracingContext)
		next.ServeHTTP(w, r.WithContext(ctx))
	}

	return http.HandlerFunc(fn)
}

// RequireLogin accepts a bearer token in the Authorization header, or in the
// token query parameter for websocket upgrades.
func (api *API) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if header := r.Header.Get("Authorization"); header != "" {
			authorization := strings.Split(header, " ")
			if len(authorization) != 2 || authorization[0] != "Bearer" {
				writeErrorResponse(w, errors.New(values.NotAuthorised), values.NotAuthorised, "not-authorized")
				return
			}
			token = authorization[1]
		}
		if token == "" {
			writeErrorResponse(w, errors.New(values.NotAuthorised), values.NotAuthorised, "not-authorized")
			return
		}

		claims, err := api.verifyToken(token)
		if err != nil {
			if errors.Is(err, errTokenExpired) {
				writeErrorResponse(w, err, values.TokenExpired, "token-expired")
				return
			}
			writeErrorResponse(w, err, values.NotAuthorised, "invalid-token")
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, values.ContextUserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, values.ContextRoleKey, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole must run after RequireLogin.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := util.GetRoleFromContext(r.Context())
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeErrorResponse(w, errors.New(values.NotAllowed), values.NotAllowed, "You do not have permission to perform this action")
		})
	}
}
