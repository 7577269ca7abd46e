// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package envelope unwraps SignalR transport frames into raw item records.
//
// A frame looks like this:
//
//	{"C":"d-1,2","M":[{"H":"NewsHub","M":"newsUpdate","A":["[{\"Title\":\"...\"}]"]}]}
//
// The first argument of every hub message is itself JSON text holding a list
// of records.
package envelope

import (
	"encoding/json"
	"io"
	"strings"
)

// Record is one raw item as sent by the feed. Numbers are kept as
// [json.Number] so they render exactly as received.
type Record map[string]any

// Skip tells why a frame produced no records.
type Skip int

const (
	// NotSkipped means the frame was decoded. It may still hold zero records.
	NotSkipped Skip = iota
	// SkipSentinel marks a known keep-alive frame.
	SkipSentinel
	// SkipMalformed marks a frame that is not a JSON object.
	SkipMalformed
	// SkipNoMessages marks a frame without the messages key.
	SkipNoMessages
)

var skipNames = map[Skip]string{
	NotSkipped:     "none",
	SkipSentinel:   "sentinel",
	SkipMalformed:  "malformed",
	SkipNoMessages: "no_messages",
}

func (s Skip) String() string {
	if n, ok := skipNames[s]; ok {
		return n
	}
	return "unknown"
}

// Result is the outcome of decoding one frame.
type Result struct {
	// Items are the decoded records in frame order.
	Items []Record
	// Skip is set when the whole frame was dropped.
	Skip Skip
	// Dropped counts inner units (messages, argument payloads, list elements)
	// that failed to decode and were ignored.
	Dropped int
}

const (
	messagesKey  = "M"
	argumentsKey = "A"
)

// sentinels are frames that never carry items.
var sentinels = map[string]bool{
	`{}`:             true,
	`{"S":1,"M":[]}`: true,
}

type message struct {
	Arguments []json.RawMessage `json:"A"`
}

// Decode unwraps frame. It never fails: anything that can't be decoded is
// reported through [Result.Skip] or [Result.Dropped].
func Decode(frame string) Result {
	if sentinels[frame] {
		return Result{Skip: SkipSentinel}
	}

	var outer map[string]json.RawMessage
	if err := json.Unmarshal([]byte(frame), &outer); err != nil || outer == nil {
		return Result{Skip: SkipMalformed}
	}
	rawMessages, ok := outer[messagesKey]
	if !ok {
		return Result{Skip: SkipNoMessages}
	}

	var messages []json.RawMessage
	if err := json.Unmarshal(rawMessages, &messages); err != nil {
		return Result{Skip: SkipMalformed}
	}

	var res Result
	for _, raw := range messages {
		var m message
		if err := json.Unmarshal(raw, &m); err != nil {
			res.Dropped++
			continue
		}
		if len(m.Arguments) == 0 {
			continue
		}
		var payload string
		if err := json.Unmarshal(m.Arguments[0], &payload); err != nil {
			// Not text. Other hub methods pass objects or numbers here.
			continue
		}
		if !strings.HasPrefix(payload, "[") && !strings.HasPrefix(payload, "{") {
			continue
		}
		items, dropped := decodePayload(payload)
		res.Items = append(res.Items, items...)
		res.Dropped += dropped
	}
	return res
}

func decodePayload(payload string) (items []Record, dropped int) {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, 1
	}
	// The payload must be exactly one JSON value.
	if err := dec.Decode(new(any)); err != io.EOF {
		return nil, 1
	}
	list, ok := v.([]any)
	if !ok {
		return nil, 0
	}
	for _, elem := range list {
		obj, ok := elem.(map[string]any)
		if !ok {
			dropped++
			continue
		}
		items = append(items, Record(obj))
	}
	return items, dropped
}
