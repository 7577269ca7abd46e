// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package capture

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"go.astrophena.name/wirefeed/internal/testutil"

	"github.com/segmentio/kafka-go"
)

// fakeReader serves queued messages and then blocks until the context is
// canceled, like a real consumer with nothing to read.
type fakeReader struct {
	msgs      chan kafka.Message
	failAfter bool

	mu        sync.Mutex
	committed []int64
	closed    bool
}

func newFakeReader(values ...string) *fakeReader {
	r := &fakeReader{msgs: make(chan kafka.Message, len(values))}
	for i, v := range values {
		r.msgs <- kafka.Message{Offset: int64(i), Value: []byte(v)}
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	default:
	}
	if r.failAfter {
		return kafka.Message{}, errors.New("broker unreachable")
	}
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func newTestKafka(r messageReader) *Kafka {
	k := NewKafka(KafkaConfig{
		Brokers:   []string{"localhost:9092"},
		Topic:     "frames",
		SessionID: "sess-1",
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	k.newReader = func() messageReader { return r }
	return k
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestKafkaConsume(t *testing.T) {
	t.Parallel()

	r := newFakeReader("{}", `{"M":[]}`)
	k := newTestKafka(r)
	ctx := context.Background()

	testutil.AssertEqual(t, k.Active(ctx), false)
	if err := k.Install(ctx); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, k.Active(ctx), true)

	waitFor(t, func() bool { return k.buf.Total() == 2 })
	testutil.AssertEqual(t, k.Drain(ctx), []string{"{}", `{"M":[]}`})
	waitFor(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.committed) == 2
	})

	if err := k.Close(); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, k.Active(ctx), false)
	r.mu.Lock()
	testutil.AssertEqual(t, r.closed, true)
	r.mu.Unlock()
}

func TestKafkaInactiveAfterFetchError(t *testing.T) {
	t.Parallel()

	r := newFakeReader()
	r.failAfter = true
	k := newTestKafka(r)
	ctx := context.Background()

	k.Install(ctx)
	waitFor(t, func() bool { return !k.Active(ctx) })
	k.Close()
}

func TestKafkaInactiveAfterQuietWindow(t *testing.T) {
	t.Parallel()

	k := newTestKafka(newFakeReader())
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	k.now = clock.now
	ctx := context.Background()

	k.Install(ctx)
	testutil.AssertEqual(t, k.Active(ctx), true)
	clock.advance(DefaultActiveWindow + time.Second)
	testutil.AssertEqual(t, k.Active(ctx), false)
	k.Close()
}

func TestKafkaInstallRequest(t *testing.T) {
	t.Parallel()

	k := newTestKafka(newFakeReader())
	w := &fakeWriter{}
	k.writer = w
	ctx := context.Background()

	k.Install(ctx)
	k.newReader = func() messageReader { return newFakeReader() }
	k.Install(ctx)
	k.Close()

	w.mu.Lock()
	defer w.mu.Unlock()
	testutil.AssertEqual(t, len(w.msgs), 2)
	testutil.AssertEqual(t, string(w.msgs[1].Key), "sess-1")

	var req map[string]any
	if err := json.Unmarshal(w.msgs[1].Value, &req); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, req, map[string]any{
		"type":       "install",
		"session":    "sess-1",
		"generation": float64(2),
	})
}
