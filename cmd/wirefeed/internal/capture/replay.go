// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package capture

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxFrameSize limits a single recorded frame.
const maxFrameSize = 4 << 20

// ReadFrames reads one frame per line from r. Blank lines are skipped.
func ReadFrames(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), maxFrameSize)

	var frames []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		frames = append(frames, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading frames: %w", err)
	}
	return frames, nil
}

// Replay is a Source serving frames recorded earlier. Every frame is drained
// once; after that the source stays active but empty.
type Replay struct {
	buf Buffer
}

var _ Source = (*Replay)(nil)

// NewReplay returns a Replay serving frames.
func NewReplay(frames []string) *Replay {
	r := &Replay{}
	r.buf.Push(frames...)
	return r
}

// OpenReplay reads a frame file written one frame per line.
func OpenReplay(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	frames, err := ReadFrames(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewReplay(frames), nil
}

// Active implements [Source].
func (r *Replay) Active(context.Context) bool { return true }

// Drain implements [Source].
func (r *Replay) Drain(context.Context) []string { return r.buf.Drain() }

// Install implements [Source].
func (r *Replay) Install(context.Context) error { return nil }

// Len returns the number of frames not drained yet.
func (r *Replay) Len() int { return r.buf.Len() }
