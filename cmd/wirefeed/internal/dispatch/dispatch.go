// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package dispatch delivers formatted messages on a fire-and-forget basis.
//
// Every message gets one attempt bounded by a timeout. A failed attempt is
// logged and counted, and the message is lost.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/sender"

	"golang.org/x/time/rate"
)

// Defaults for [Config].
const (
	DefaultTimeout       = 5 * time.Second
	DefaultRatePerMinute = 20
)

// Config configures a Dispatcher.
type Config struct {
	Sender sender.Sender
	// Timeout bounds the wait for the rate limiter and, separately, the send
	// itself. Zero means DefaultTimeout.
	Timeout time.Duration
	// RatePerMinute caps sends per minute, allowing bursts of the same size.
	// Zero or negative disables the limiter.
	RatePerMinute int
	Logger        *slog.Logger
}

// Dispatcher sends messages through a [sender.Sender].
type Dispatcher struct {
	sender  sender.Sender
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New returns a Dispatcher.
func New(cfg Config) *Dispatcher {
	d := &Dispatcher{
		sender:  cfg.Sender,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if n := cfg.RatePerMinute; n > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(float64(n)/60.0), n)
	}
	return d
}

// Dispatch sends text and reports whether it was delivered. It never returns
// an error: failures are logged. title is only used in log lines.
func (d *Dispatcher) Dispatch(ctx context.Context, text, title string) bool {
	start := time.Now()
	if err := d.wait(ctx); err != nil {
		d.observe(statusRateLimited, start)
		d.logger.Warn("dropping message: rate limit wait exceeds send timeout",
			slog.String("title", short(title)), slog.Any("err", err))
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.sender.Send(sendCtx, sender.Message{Text: text, DisableLinkPreview: true}); err != nil {
		d.observe(statusError, start)
		d.logger.Error("sending message failed", slog.String("title", short(title)), slog.Any("err", err))
		return false
	}

	d.observe(statusOK, start)
	d.logger.Info("sent", slog.String("title", short(title)))
	return true
}

func (d *Dispatcher) wait(ctx context.Context) error {
	if d.limiter == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.limiter.Wait(ctx)
}

func (d *Dispatcher) observe(status string, start time.Time) {
	sendTotal.WithLabelValues(status).Inc()
	sendDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
}

const shortLen = 20

// short returns the first shortLen runes of s followed by an ellipsis when
// s is longer.
func short(s string) string {
	r := []rune(s)
	if len(r) <= shortLen {
		return s
	}
	return string(r[:shortLen]) + "..."
}
