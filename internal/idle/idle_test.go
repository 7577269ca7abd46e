// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package idle

import (
	"testing"
	"time"

	"go.astrophena.name/wirefeed/internal/testutil"
)

func TestTracker(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(10*time.Minute, func() time.Time { return now })
	if tracker == nil {
		t.Fatal("NewTracker() = nil, want non-nil")
	}

	testutil.AssertEqual(t, tracker.Idle(), false)

	now = now.Add(10 * time.Minute)
	testutil.AssertEqual(t, tracker.Idle(), false)

	now = now.Add(time.Second)
	testutil.AssertEqual(t, tracker.Idle(), true)

	tracker.Touch()
	testutil.AssertEqual(t, tracker.Idle(), false)
	testutil.AssertEqual(t, tracker.LastActivity().Equal(now), true)
}

func TestDisabledTracker(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(0, nil)
	if tracker != nil {
		t.Fatal("NewTracker(0) must return nil")
	}
	tracker.Touch()
	testutil.AssertEqual(t, tracker.Idle(), false)
	testutil.AssertEqual(t, tracker.Timeout(), time.Duration(0))
}
