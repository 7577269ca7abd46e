// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package capture defines where raw feed frames come from.
//
// A browser session (outside of this program) hooks the feed's WebSocket and
// hands every received frame to a [Source]. Three sources exist: [HTTP]
// receives frames posted by the hook script, [Kafka] consumes them from a
// topic, and [Replay] serves frames recorded in a file.
package capture

import (
	"context"
	"errors"
	"sync"
)

// ErrStale is returned by the pipeline when no frame produced an item for
// the heartbeat interval. The capture session should be restarted.
var ErrStale = errors.New("capture session is stale")

// Source yields raw frames. All methods are best effort: a failure means "no
// data this cycle" and is never fatal.
type Source interface {
	// Active reports whether capture is currently armed and alive.
	Active(ctx context.Context) bool
	// Drain returns and forgets all frames buffered since the last call.
	Drain(ctx context.Context) []string
	// Install (re)arms capture.
	Install(ctx context.Context) error
}

// Buffer accumulates frames between drains. It is safe for concurrent use.
type Buffer struct {
	mu     sync.Mutex
	frames []string
	total  int
}

// Push appends frames.
func (b *Buffer) Push(frames ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, frames...)
	b.total += len(frames)
}

// Drain returns buffered frames in arrival order and empties the buffer.
func (b *Buffer) Drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	frames := b.frames
	b.frames = nil
	return frames
}

// Len returns the number of buffered frames.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// Total returns the number of frames ever pushed.
func (b *Buffer) Total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}
