package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bwise1/civic_dispatch/config"
	deps "github.com/bwise1/civic_dispatch/internal/debs"
	"github.com/bwise1/civic_dispatch/util/values"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

const (
	defaultIdleTimeout    = time.Minute
	defaultReadTimeout    = 5 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultShutdownPeriod = 30 * time.Second
)

type Handler func(w http.ResponseWriter, r *http.Request) *ServerResponse

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h(w, r)
	respByte, err := json.Marshal(resp)
	if err != nil {
		writeErrorResponse(w, err, values.Error, "unable to marshal server response")
		return
	}
	writeJSONResponse(w, respByte, resp.StatusCode)
}

type API struct {
	Server *http.Server
	Config *config.Config
	Deps   *deps.Dependencies
	Logger logrus.FieldLogger
}

func (api *API) Serve() error {
	api.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", api.Config.Port),
		IdleTimeout:  defaultIdleTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		Handler:      api.Routes(),
	}
	return api.Server.ListenAndServe()
}

// Routes builds the full handler tree. Tests mount it on httptest servers.
func (api *API) Routes() http.Handler {
	if api.Logger == nil {
		api.Logger = logrus.StandardLogger()
	}

	mux := chi.NewRouter()
	mux.Use(api.RequestTracing)

	mux.Get("/health",
		func(w http.ResponseWriter, r *http.Request) {
			writeJSONResponse(w, []byte(`{"status":"success","message":"ok"}`), http.StatusOK)
		},
	)

	mux.Mount("/reports", api.ReportRoutes())
	mux.Mount("/analytics", api.AnalyticsRoutes())
	mux.Mount("/announcements", api.AnnouncementRoutes())
	mux.Mount("/regions", api.RegionRoutes())
	mux.With(api.RequireLogin).Get("/ws", api.ServeWebSocket)

	return mux
}

func (api *API) Shutdown() error {
	if api.Server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownPeriod)
	defer cancel()

	return api.Server.Shutdown(ctx)
}
