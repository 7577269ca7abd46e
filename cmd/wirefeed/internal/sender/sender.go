// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package sender defines a transport-agnostic message delivery interface.
package sender

import (
	"context"
	"log/slog"
)

// Sender delivers messages to a configured destination.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is an outgoing message.
type Message struct {
	// Text is HTML markup.
	Text               string
	DisableLinkPreview bool
}

// Log is a Sender that only logs messages. It is used in dry-run mode.
type Log struct {
	Logger *slog.Logger
}

var _ Sender = Log{}

// Send implements [Sender].
func (l Log) Send(ctx context.Context, msg Message) error {
	l.Logger.DebugContext(ctx, "dry run: not sending message", slog.String("text", msg.Text))
	return nil
}
