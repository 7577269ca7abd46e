// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/pipeline"
	"go.astrophena.name/wirefeed/internal/logger"
	"go.astrophena.name/wirefeed/internal/version"
	"go.astrophena.name/wirefeed/internal/web"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// mountAdmin registers the admin endpoints on r.
func (e *engine) mountAdmin(r chi.Router, d *pipeline.Driver, store seenStore) {
	health := web.NewHealthHandler()
	health.RegisterFunc("driver", driverHealth(d, e.now))
	health.RegisterFunc("signatures", func() (string, bool) {
		return fmt.Sprintf("%d seen", store.Len()), true
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		web.RespondJSON(w, http.StatusOK, map[string]string{
			"name":    "wirefeed",
			"version": version.Version().Version,
			"session": e.session,
		})
	})
	r.Method(http.MethodGet, "/health", health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Method(http.MethodGet, "/debug/log", e.streamer)
}

func driverHealth(d *pipeline.Driver, now func() time.Time) web.HealthFunc {
	return func() (string, bool) {
		state := d.State()
		ok := state != pipeline.Stale
		last := d.LastActivity()
		if last.IsZero() {
			return state.String(), ok
		}
		return fmt.Sprintf("%s, last activity %s ago", state, now().Sub(last).Truncate(time.Second)), ok
	}
}

func (e *engine) serveAdmin(ctx context.Context, r chi.Router) error {
	return web.ListenAndServe(ctx, &web.ListenAndServeConfig{
		Addr:   *e.adminAddr,
		Router: r,
		Logger: logger.Get(ctx).Logger,
		Ready:  e.adminReady,
	})
}
