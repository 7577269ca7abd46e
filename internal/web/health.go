// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"maps"
	"net/http"
	"slices"
	"time"

	"go.astrophena.name/wirefeed/internal/util/syncx"
)

// NewHealthHandler returns a [HealthHandler] with no checks. Uptime is counted
// from this call.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		checks:  syncx.Protect(make(map[string]HealthFunc)),
		now:     time.Now,
		started: time.Now(),
	}
}

// HealthHandler serves the health of the running process as JSON. It
// responds with 503 Service Unavailable when any check fails.
type HealthHandler struct {
	checks  *syncx.Protected[map[string]HealthFunc]
	now     func() time.Time
	started time.Time
}

// HealthFunc reports the state of one subsystem. It must be safe for
// concurrent use.
type HealthFunc func() (status string, ok bool)

// RegisterFunc adds a check. It panics if name is already taken.
func (h *HealthHandler) RegisterFunc(name string, f HealthFunc) {
	h.checks.WriteAccess(func(checks map[string]HealthFunc) {
		if _, dup := checks[name]; dup {
			panic("health: check " + name + " is already registered")
		}
		checks[name] = f
	})
}

// HealthResponse is the body of a health response.
type HealthResponse struct {
	OK     bool                     `json:"ok"`
	Uptime string                   `json:"uptime"`
	Checks map[string]CheckResponse `json:"checks"`
}

// CheckResponse is the result of a single check.
type CheckResponse struct {
	Status string `json:"status"`
	OK     bool   `json:"ok"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Checks run outside the lock so a slow one does not block registration.
	checks := syncx.Read(h.checks, func(checks map[string]HealthFunc) map[string]HealthFunc {
		return maps.Clone(checks)
	})

	hr := &HealthResponse{
		OK:     true,
		Uptime: h.now().Sub(h.started).Truncate(time.Second).String(),
		Checks: make(map[string]CheckResponse, len(checks)),
	}
	for _, name := range slices.Sorted(maps.Keys(checks)) {
		status, ok := checks[name]()
		hr.OK = hr.OK && ok
		hr.Checks[name] = CheckResponse{Status: status, OK: ok}
	}

	code := http.StatusOK
	if !hr.OK {
		code = http.StatusServiceUnavailable
	}
	RespondJSON(w, code, hr)
}
