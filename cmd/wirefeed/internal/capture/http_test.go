// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package capture

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.astrophena.name/wirefeed/internal/testutil"

	"github.com/go-chi/chi/v5"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestHTTP(t *testing.T) (*HTTP, *fakeClock, *httptest.Server) {
	t.Helper()
	h := NewHTTP(HTTPConfig{
		SessionID:    "sess-1",
		TargetURL:    "https://feed.example.com/home",
		Email:        "user@example.com",
		IngestURL:    "http://localhost:3000/capture/frames",
		ActiveWindow: 10 * time.Second,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	h.now = clock.now

	r := chi.NewRouter()
	h.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return h, clock, srv
}

func post(t *testing.T, url, contentType, body string) *http.Response {
	t.Helper()
	res, err := http.Post(url, contentType, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestHTTPFrames(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		contentType string
		body        string
		wantStatus  int
		wantFrames  []string
	}{
		"json array": {
			contentType: "application/json",
			body:        `["{}", "{\"M\":[]}"]`,
			wantStatus:  http.StatusAccepted,
			wantFrames:  []string{"{}", `{"M":[]}`},
		},
		"empty heartbeat": {
			contentType: "application/json",
			body:        `[]`,
			wantStatus:  http.StatusAccepted,
		},
		"plain text": {
			contentType: "text/plain; charset=utf-8",
			body:        "{}\n\n{\"M\":[]}\n",
			wantStatus:  http.StatusAccepted,
			wantFrames:  []string{"{}", `{"M":[]}`},
		},
		"malformed json": {
			contentType: "application/json",
			body:        `["unterminated`,
			wantStatus:  http.StatusBadRequest,
		},
		"not a list of strings": {
			contentType: "application/json",
			body:        `[1, 2]`,
			wantStatus:  http.StatusBadRequest,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h, _, srv := newTestHTTP(t)
			res := post(t, srv.URL+"/frames", tc.contentType, tc.body)
			testutil.AssertEqual(t, res.StatusCode, tc.wantStatus)
			testutil.AssertEqual(t, h.Drain(context.Background()), tc.wantFrames)
		})
	}
}

func TestHTTPActive(t *testing.T) {
	t.Parallel()

	h, clock, srv := newTestHTTP(t)
	ctx := context.Background()

	testutil.AssertEqual(t, h.Active(ctx), false)

	if err := h.Install(ctx); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, h.Active(ctx), true)
	testutil.AssertEqual(t, h.Session().Generation, 1)

	clock.advance(11 * time.Second)
	testutil.AssertEqual(t, h.Active(ctx), false)

	post(t, srv.URL+"/frames", "application/json", `[]`)
	testutil.AssertEqual(t, h.Active(ctx), true)

	h.Install(ctx)
	testutil.AssertEqual(t, h.Session().Generation, 2)
}

func TestHTTPSession(t *testing.T) {
	t.Parallel()

	h, _, srv := newTestHTTP(t)
	h.Install(context.Background())

	res, err := http.Get(srv.URL + "/session")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, testutil.UnmarshalJSON[Session](t, b), Session{
		ID:         "sess-1",
		TargetURL:  "https://feed.example.com/home",
		Email:      "user@example.com",
		Generation: 1,
		Armed:      true,
	})
}

func TestHTTPHook(t *testing.T) {
	t.Parallel()

	h, _, srv := newTestHTTP(t)
	h.Install(context.Background())
	h.Install(context.Background())

	res, err := http.Get(srv.URL + "/hook")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	script := string(b)

	testutil.AssertEqual(t, res.Header.Get("Content-Type"), "text/javascript; charset=utf-8")
	for _, want := range []string{
		`const ingest = "http://localhost:3000/capture/frames";`,
		`window.__wirefeedHook = 2;`,
		`pending.push(event.data)`,
	} {
		if !strings.Contains(script, want) {
			t.Errorf("hook script does not contain %q", want)
		}
	}
}

func TestJSString(t *testing.T) {
	t.Parallel()

	testutil.AssertEqual(t, jsString(`a"b</script>`), `"a\"b\u003c/script\u003e"`)
}
