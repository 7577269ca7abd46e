// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package systemd enables applications to signal readiness and update watchdog
// timestamp to systemd.
package systemd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"
)

// State defines a sd-notify protocol state.
// See https://www.freedesktop.org/software/systemd/man/sd_notify.html.
type State string

const (
	// Ready tells the service manager that service startup is
	// finished, or the service finished loading its configuration.
	// See https://www.freedesktop.org/software/systemd/man/sd_notify.html#READY=1.
	Ready State = "READY=1"

	// Stopping tells the service manager that the service is beginning its
	// shutdown.
	Stopping State = "STOPPING=1"

	// Watchdog tells the service manager to update the watchdog timestamp.
	// See https://www.freedesktop.org/software/systemd/man/sd_notify.html#WATCHDOG=1.
	Watchdog State = "WATCHDOG=1"
)

// Status returns a state that sets a free-form status line shown by
// systemctl status.
func Status(s string) State { return State("STATUS=" + s) }

// Notify sends a message to systemd using the sd_notify protocol. Errors are
// logged to l.
func Notify(l *slog.Logger, state State) {
	addr := &net.UnixAddr{
		Net:  "unixgram",
		Name: os.Getenv("NOTIFY_SOCKET"),
	}

	if addr.Name == "" {
		// We're not running under systemd (NOTIFY_SOCKET is not set).
		return
	}

	conn, err := net.DialUnix(addr.Net, nil, addr)
	if err != nil {
		l.Warn("systemd: failed when notifying", "error", err)
		return
	}
	defer conn.Close()

	if _, err = conn.Write([]byte(state)); err != nil {
		l.Warn("systemd: failed when notifying", "error", err)
	}
}

// WatchdogLoop periodically updates systemd watchdog timestamp. It should run in
// a separate goroutine and can be stopped by canceling the provided [context.Context].
func WatchdogLoop(ctx context.Context, l *slog.Logger) {
	if os.Getenv("WATCHDOG_USEC") == "" {
		return
	}

	interval, err := watchdogInterval()
	if err != nil {
		l.Warn("systemd: watchdog disabled", "error", err)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			Notify(l, Watchdog)
		case <-ctx.Done():
			return
		}
	}
}

func watchdogInterval() (time.Duration, error) {
	s, err := strconv.Atoi(os.Getenv("WATCHDOG_USEC"))
	if err != nil {
		return 0, fmt.Errorf("systemd: error converting WATCHDOG_USEC: %v", err)
	}

	if s <= 0 {
		return 0, errors.New("systemd: error WATCHDOG_USEC must be a positive number")
	}

	// Ping twice per watchdog period.
	return time.Duration(s) * time.Microsecond / 2, nil
}
