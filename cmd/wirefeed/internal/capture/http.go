// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package capture

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"sync"
	"text/template"
	"time"

	"go.astrophena.name/wirefeed/internal/web"

	"github.com/go-chi/chi/v5"
)

// DefaultActiveWindow is how long the HTTP source stays active after the
// last post from the hook script.
const DefaultActiveWindow = 30 * time.Second

// maxBodySize limits one POST /frames request.
const maxBodySize = 8 << 20

var (
	//go:embed hook.js
	hookJS       string
	hookTemplate = template.Must(template.New("hook.js").Parse(hookJS))
)

// Session is what the capture session needs to know to (re)install the hook.
type Session struct {
	ID        string `json:"id"`
	TargetURL string `json:"target_url"`
	Email     string `json:"email"`
	// Generation grows on every Install. The capture session reinstalls the
	// hook when it changes.
	Generation int  `json:"generation"`
	Armed      bool `json:"armed"`
}

// HTTPConfig configures an HTTP source.
type HTTPConfig struct {
	// SessionID identifies this process in /session replies.
	SessionID string
	TargetURL string
	Email     string
	// IngestURL is the absolute URL of the frames endpoint as seen from the
	// browser, embedded into the hook script.
	IngestURL string
	// ActiveWindow defaults to DefaultActiveWindow.
	ActiveWindow time.Duration
	Logger       *slog.Logger
}

// HTTP is a Source fed by the hook script over HTTP. Mount its routes with
// [HTTP.Routes].
type HTTP struct {
	cfg HTTPConfig
	buf Buffer
	now func() time.Time

	mu          sync.Mutex
	armed       bool
	generation  int
	lastContact time.Time
}

var _ Source = (*HTTP)(nil)

// NewHTTP returns an HTTP source.
func NewHTTP(cfg HTTPConfig) *HTTP {
	if cfg.ActiveWindow <= 0 {
		cfg.ActiveWindow = DefaultActiveWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &HTTP{cfg: cfg, now: time.Now}
}

// Routes registers the ingest endpoints on r:
//
//	POST /frames   JSON array of frames, or text/plain with one frame per line
//	GET  /hook     the hook script
//	GET  /session  current [Session] as JSON
func (h *HTTP) Routes(r chi.Router) {
	r.Post("/frames", h.handleFrames)
	r.Get("/hook", h.handleHook)
	r.Get("/session", h.handleSession)
}

// Active implements [Source]. The source is active when it was installed and
// the hook posted within the active window.
func (h *HTTP) Active(context.Context) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.armed && h.now().Sub(h.lastContact) <= h.cfg.ActiveWindow
}

// Drain implements [Source].
func (h *HTTP) Drain(context.Context) []string { return h.buf.Drain() }

// Install implements [Source]. It bumps the session generation so the capture
// session reinstalls the hook, and grants it one active window to do so.
func (h *HTTP) Install(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.armed = true
	h.generation++
	h.lastContact = h.now()
	h.cfg.Logger.Info("requested hook install", slog.Int("generation", h.generation))
	return nil
}

// Session returns the current session state.
func (h *HTTP) Session() Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Session{
		ID:         h.cfg.SessionID,
		TargetURL:  h.cfg.TargetURL,
		Email:      h.cfg.Email,
		Generation: h.generation,
		Armed:      h.armed,
	}
}

func (h *HTTP) touch() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastContact = h.now()
}

func (h *HTTP) handleFrames(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		web.RespondError(h.cfg.Logger, w, fmt.Errorf("%w: %v", web.ErrBadRequest, err))
		return
	}

	var frames []string
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "text/plain" {
		frames, err = ReadFrames(bytes.NewReader(body))
	} else {
		err = json.Unmarshal(body, &frames)
	}
	if err != nil {
		web.RespondError(h.cfg.Logger, w, fmt.Errorf("%w: %v", web.ErrBadRequest, err))
		return
	}

	h.touch()
	h.buf.Push(frames...)
	web.RespondJSON(w, http.StatusAccepted, map[string]int{"accepted": len(frames)})
}

func (h *HTTP) handleHook(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := hookTemplate.Execute(&buf, struct {
		IngestURL  string
		Generation int
	}{
		IngestURL:  jsString(h.cfg.IngestURL),
		Generation: h.Session().Generation,
	}); err != nil {
		web.RespondError(h.cfg.Logger, w, err)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Write(buf.Bytes())
}

func (h *HTTP) handleSession(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, http.StatusOK, h.Session())
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
