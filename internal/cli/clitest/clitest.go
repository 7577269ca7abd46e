// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package clitest provides utilities for testing command-line applications.
package clitest

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.astrophena.name/wirefeed/internal/cli"
)

// DefaultTimeout bounds a single case when Case.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Case is a single run of a command-line application.
type Case[App cli.App] struct {
	// Args are the command-line arguments.
	Args []string
	// Env are the environment variables visible to the application.
	Env map[string]string
	// Timeout cancels the run context. Zero means DefaultTimeout.
	Timeout time.Duration

	// WantErr is matched against the returned error with errors.Is.
	WantErr error
	// WantAnyErr means the run must fail with any error.
	WantAnyErr bool
	// WantInStdout must be a substring of stdout.
	WantInStdout string
	// WantInStderr must be a substring of stderr.
	WantInStderr string
	// WantHidden lists strings, usually secrets, that must not appear in
	// either stdout or stderr.
	WantHidden []string
	// CheckFunc performs additional checks after the run.
	CheckFunc func(*testing.T, App)
}

// Run runs every case in a parallel subtest with an application built by
// setup.
func Run[App cli.App](t *testing.T, setup func(*testing.T) App, cases map[string]Case[App]) {
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			app := setup(t)
			stdout, stderr, err := run(app, tc)

			switch {
			case err == nil && (tc.WantErr != nil || tc.WantAnyErr):
				t.Fatalf("must fail, but succeeded; stderr: %q", stderr)
			case err != nil && tc.WantErr == nil && !tc.WantAnyErr:
				t.Fatalf("unexpected error: %v; stderr: %q", err, stderr)
			case err != nil && tc.WantErr != nil && !errors.Is(err, tc.WantErr):
				t.Fatalf("got error %v, want %v", err, tc.WantErr)
			}

			if tc.WantInStdout != "" && !strings.Contains(stdout, tc.WantInStdout) {
				t.Errorf("stdout must contain %q, got: %q", tc.WantInStdout, stdout)
			}
			if tc.WantInStderr != "" && !strings.Contains(stderr, tc.WantInStderr) {
				t.Errorf("stderr must contain %q, got: %q", tc.WantInStderr, stderr)
			}
			for _, s := range tc.WantHidden {
				if strings.Contains(stdout, s) || strings.Contains(stderr, s) {
					t.Errorf("output must not contain %q", s)
				}
			}

			if tc.CheckFunc != nil {
				tc.CheckFunc(t, app)
			}
		})
	}
}

func run[App cli.App](app App, tc Case[App]) (stdout, stderr string, err error) {
	timeout := tc.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var outBuf, errBuf bytes.Buffer
	env := &cli.Env{
		Args:   tc.Args,
		Getenv: func(name string) string { return tc.Env[name] },
		Stdin:  strings.NewReader(""),
		Stdout: &outBuf,
		Stderr: &errBuf,
	}
	err = cli.Run(cli.WithEnv(ctx, env), app)
	return outBuf.String(), errBuf.String(), err
}
