// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package idle provides a helper for noticing that a long-running loop has
// stopped doing useful work for a while.
package idle

import (
	"sync/atomic"
	"time"
)

// Tracker is an idle tracker. A nil *Tracker is valid and never reports
// being idle.
type Tracker struct {
	lastActivity atomic.Int64 // unix nanoseconds
	timeout      time.Duration
	now          func() time.Time
}

// NewTracker returns a new idle tracker that considers itself idle after
// timeout passes without a call to [Tracker.Touch]. It returns nil if the
// timeout is not positive, disabling the functionality.
func NewTracker(timeout time.Duration, now func() time.Time) *Tracker {
	if timeout <= 0 {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	t := &Tracker{timeout: timeout, now: now}
	t.Touch()
	return t
}

// Touch records activity at the current time.
func (t *Tracker) Touch() {
	if t == nil {
		return
	}
	t.lastActivity.Store(t.now().UnixNano())
}

// LastActivity returns the time of the last recorded activity.
func (t *Tracker) LastActivity() time.Time {
	if t == nil {
		return time.Time{}
	}
	return time.Unix(0, t.lastActivity.Load())
}

// Idle reports whether more than the timeout has passed since the last
// activity.
func (t *Tracker) Idle() bool {
	if t == nil {
		return false
	}
	return t.now().Sub(t.LastActivity()) > t.timeout
}

// Timeout returns the configured idle timeout.
func (t *Tracker) Timeout() time.Duration {
	if t == nil {
		return 0
	}
	return t.timeout
}
