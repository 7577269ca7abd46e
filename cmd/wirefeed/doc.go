// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Wirefeed relays a live financial news wire to a Telegram channel.

A browser session logged into the news site captures the site's SignalR
WebSocket frames and hands them to wirefeed. Wirefeed decodes every frame into
news items, drops duplicates, stale items and blacklisted titles, formats the
rest as HTML and posts each of them to the channel once.

# Usage

	$ wirefeed [flags...] [command]

Commands:

  - run: process frames until interrupted or until the capture session goes
    stale. This is the default.
  - replay FILE: process frames recorded in FILE, one frame per line, and exit.
    Combine with -dry to only log what would be sent.
  - check: parse the rules file and print the effective blacklist.

# Environment Variables

The run command requires all of these:

  - TG_TOKEN: Telegram bot token.
  - TG_CHANNEL_ID: channel identifier the bot posts to.
  - FJ_URL: address of the news page the capture session opens.
  - FJ_EMAIL, FJ_PASSWORD: credentials of the capture session.

If one of them is missing, wirefeed prints every missing name and exits with
status 1. The replay command only needs TG_TOKEN and TG_CHANNEL_ID, and none
of them with -dry.

Variables may also come from a .env file in the working directory, or from the
file named by ENV_FILE. Values from the real environment win.

Every flag can be set by an environment variable too, see -help.

# Capture Sources

The -source flag selects where frames come from:

  - http: the capture session loads a hook script from /capture/hook on the
    admin server, and the script posts frames to /capture/frames once a second.
    The session polls /capture/session and reinstalls the hook when the
    generation there changes.
  - kafka: frames are consumed from -kafka-topic. When -kafka-control-topic is
    set, reinstall requests are published there.
  - replay: frames are read from -replay-file. Useful for testing a deployment
    end to end.

When the source reports it is not active, wirefeed asks it to reinstall the
hook and waits for -settle before draining. When frames produce no news items
for -heartbeat, wirefeed exits with status 1 so the supervisor can restart the
whole capture session.

# Rules

Filtering rules are loaded from a Starlark file, config.star by default:

	blacklist = ["crypto", "bitcoin"]

	block_rule = lambda item: item.level == "Low" and not item.breaking

Blacklist terms are matched case-insensitively anywhere in the title. The
optional block_rule receives a struct with title, description, tags, labels,
level and breaking fields and drops the item when it returns True.

# Deduplication

Each item is identified by a digest of its title and publish date. An item is
sent at most once per process run; a restart forgets what was sent. Items
published more than -buffer before startup are not sent, and they still count
as seen. With -max-signatures, only that many items are remembered and the
oldest are forgotten first.

# Administration

The admin server (-admin-addr) exposes:

  - /health: driver state, last activity and number of seen items.
  - /metrics: Prometheus metrics.
  - /debug/log: recent log lines, streamed as server-sent events when
    requested with Accept: text/event-stream.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/wirefeed/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
