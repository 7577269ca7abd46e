// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package pipeline drives frames from a capture source through decoding,
// filtering, formatting and dispatch.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/capture"
	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/envelope"
	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/format"
	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/news"
	"go.astrophena.name/wirefeed/internal/idle"
)

// Defaults for [Config].
const (
	DefaultPollInterval = time.Second
	DefaultSettleDelay  = 5 * time.Second
	DefaultHeartbeat    = 10 * time.Minute
)

// State is a driver state.
type State int32

const (
	// Idle means capture is not confirmed active.
	Idle State = iota
	// Armed means capture is active and the driver waits for frames.
	Armed
	// Draining means a batch of frames is being processed.
	Draining
	// Stale means no frame produced an item for the heartbeat interval.
	Stale
)

var stateNames = [...]string{
	Idle:     "idle",
	Armed:    "armed",
	Draining: "draining",
	Stale:    "stale",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Dispatcher delivers a formatted message. It reports success and never
// fails the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, text, title string) bool
}

// Config configures a Driver.
type Config struct {
	Source     capture.Source
	Normalizer *news.Normalizer
	Dispatcher Dispatcher
	// Render defaults to format.Render.
	Render func(*news.Item) string

	// PollInterval is the pause between iterations.
	PollInterval time.Duration
	// SettleDelay is waited after installing the capture hook. Negative
	// means no wait.
	SettleDelay time.Duration
	// Heartbeat is how long the driver tolerates frames that yield no items
	// before giving up with capture.ErrStale. Negative disables the check.
	Heartbeat time.Duration

	Logger *slog.Logger
	// OnStateChange, if set, is called on every state transition from the
	// driver goroutine.
	OnStateChange func(State)
}

// Driver is the single poll loop of the pipeline. It is not safe to call Run
// or Step concurrently; State and LastActivity may be called from any
// goroutine.
type Driver struct {
	cfg   Config
	idle  *idle.Tracker
	state atomic.Int32
	now   func() time.Time
	sleep func(context.Context, time.Duration) bool
}

// New returns a Driver. Zero durations in cfg are replaced by defaults.
func New(cfg Config) *Driver {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.Heartbeat == 0 {
		cfg.Heartbeat = DefaultHeartbeat
	}
	if cfg.Render == nil {
		cfg.Render = format.Render
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	d := &Driver{cfg: cfg, now: time.Now, sleep: sleep}
	d.idle = idle.NewTracker(cfg.Heartbeat, func() time.Time { return d.now() })
	return d
}

// State returns the current state.
func (d *Driver) State() State { return State(d.state.Load()) }

// LastActivity returns when a frame last produced an item, or when the
// driver was created.
func (d *Driver) LastActivity() time.Time { return d.idle.LastActivity() }

func (d *Driver) setState(s State) {
	if State(d.state.Swap(int32(s))) == s {
		return
	}
	stateGauge.Set(float64(s))
	d.cfg.Logger.Debug("driver state changed", slog.String("state", s.String()))
	if d.cfg.OnStateChange != nil {
		d.cfg.OnStateChange(s)
	}
}

// Run loops until ctx is canceled, which returns nil, or until the session
// goes stale, which returns [capture.ErrStale].
func (d *Driver) Run(ctx context.Context) error {
	d.cfg.Logger.Info("listening for frames",
		slog.Duration("poll_interval", d.cfg.PollInterval),
		slog.Duration("heartbeat", d.idle.Timeout()),
	)
	for {
		if err := d.Step(ctx); err != nil {
			return err
		}
		if !d.sleep(ctx, d.cfg.PollInterval) {
			return nil
		}
	}
}

// Step runs one iteration: probe, reinstall if needed, drain and process.
// It returns [capture.ErrStale] when the heartbeat interval passed without
// items.
func (d *Driver) Step(ctx context.Context) error {
	if d.cfg.Source.Active(ctx) {
		d.setState(Armed)
	} else {
		d.setState(Idle)
		if err := d.cfg.Source.Install(ctx); err != nil {
			installsTotal.WithLabelValues("error").Inc()
			d.cfg.Logger.Warn("installing capture hook failed", slog.Any("err", err))
		} else {
			installsTotal.WithLabelValues("ok").Inc()
			if !d.sleep(ctx, d.cfg.SettleDelay) {
				return nil
			}
			d.setState(Armed)
		}
	}

	if frames := d.cfg.Source.Drain(ctx); len(frames) > 0 {
		d.setState(Draining)
		if d.Process(ctx, frames) > 0 {
			d.idle.Touch()
		}
		d.setState(Armed)
	}

	if ctx.Err() != nil {
		return nil
	}
	if d.idle.Idle() {
		d.setState(Stale)
		d.cfg.Logger.Error("no items for too long, capture session is stale",
			slog.Time("last_activity", d.LastActivity()),
			slog.Duration("heartbeat", d.idle.Timeout()),
		)
		return capture.ErrStale
	}
	return nil
}

// Process runs frames through the pipeline in order and returns the number
// of decoded items. It stops early only when ctx is canceled.
func (d *Driver) Process(ctx context.Context, frames []string) (items int) {
	for _, frame := range frames {
		if ctx.Err() != nil {
			return items
		}
		items += d.processFrame(ctx, frame)
	}
	return items
}

func (d *Driver) processFrame(ctx context.Context, frame string) (items int) {
	defer func() {
		if r := recover(); r != nil {
			d.cfg.Logger.Error("panic while processing frame", slog.Any("panic", r), slog.Int("len", len(frame)))
		}
	}()

	res := envelope.Decode(frame)
	framesTotal.WithLabelValues(res.Skip.String()).Inc()
	if res.Dropped > 0 {
		droppedUnitsTotal.Add(float64(res.Dropped))
		d.cfg.Logger.Debug("dropped undecodable units", slog.Int("count", res.Dropped))
	}

	for _, rec := range res.Items {
		items++
		it, verdict := d.cfg.Normalizer.Normalize(rec)
		itemsTotal.WithLabelValues(verdict.String()).Inc()
		if verdict != news.Accepted {
			d.cfg.Logger.Debug("item dropped", slog.String("verdict", verdict.String()), slog.String("title", it.Title))
			continue
		}
		d.cfg.Dispatcher.Dispatch(ctx, d.cfg.Render(it), it.Title)
	}
	return items
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
