// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package capture

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig configures a Kafka source.
type KafkaConfig struct {
	Brokers []string
	// Topic carries one raw frame per message.
	Topic   string
	GroupID string
	// ControlTopic, if set, receives an install request on every Install so
	// the capture session can reinstall its hook.
	ControlTopic string
	// SessionID is sent with install requests and used as the client ID.
	SessionID string
	// ActiveWindow is how long the source stays active after the last
	// fetched message. Defaults to DefaultActiveWindow.
	ActiveWindow time.Duration
	Logger       *slog.Logger
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka is a Source consuming frames relayed through a Kafka topic. Frames
// are committed once they are buffered.
type Kafka struct {
	cfg       KafkaConfig
	buf       Buffer
	now       func() time.Time
	newReader func() messageReader
	writer    messageWriter

	mu          sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	generation  int
	lastContact time.Time
}

var _ Source = (*Kafka)(nil)

// NewKafka returns a Kafka source. Nothing is consumed until Install is
// called.
func NewKafka(cfg KafkaConfig) *Kafka {
	if cfg.ActiveWindow <= 0 {
		cfg.ActiveWindow = DefaultActiveWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	k := &Kafka{cfg: cfg, now: time.Now}
	k.newReader = func() messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  time.Second,
			Dialer:   &kafka.Dialer{ClientID: "wirefeed-" + cfg.SessionID, Timeout: 10 * time.Second},
		})
	}
	if cfg.ControlTopic != "" {
		k.writer = &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.ControlTopic,
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireOne,
		}
	}
	return k
}

// Active implements [Source].
func (k *Kafka) Active(context.Context) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.running() && k.now().Sub(k.lastContact) <= k.cfg.ActiveWindow
}

// running reports whether the consume loop is alive. k.mu must be held.
func (k *Kafka) running() bool {
	if k.done == nil {
		return false
	}
	select {
	case <-k.done:
		return false
	default:
		return true
	}
}

// Drain implements [Source].
func (k *Kafka) Drain(context.Context) []string { return k.buf.Drain() }

// Install implements [Source]. It restarts the consume loop and, when a
// control topic is configured, asks the capture session to reinstall its
// hook.
func (k *Kafka) Install(ctx context.Context) error {
	k.mu.Lock()
	k.stopLocked()
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	k.cancel = cancel
	k.done = make(chan struct{})
	k.generation++
	k.lastContact = k.now()
	generation, done := k.generation, k.done
	k.mu.Unlock()

	go k.consume(loopCtx, k.newReader(), done)

	if k.writer == nil {
		return nil
	}
	req, err := json.Marshal(struct {
		Type       string `json:"type"`
		Session    string `json:"session"`
		Generation int    `json:"generation"`
	}{"install", k.cfg.SessionID, generation})
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(k.cfg.SessionID), Value: req})
}

func (k *Kafka) consume(ctx context.Context, r messageReader, done chan struct{}) {
	defer close(done)
	defer r.Close()

	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				k.cfg.Logger.Warn("fetching frame failed", slog.Any("err", err))
			}
			return
		}

		k.buf.Push(string(msg.Value))
		k.mu.Lock()
		k.lastContact = k.now()
		k.mu.Unlock()

		if err := r.CommitMessages(ctx, msg); err != nil && !errors.Is(err, context.Canceled) {
			k.cfg.Logger.Warn("committing frame failed", slog.Any("err", err), slog.Int64("offset", msg.Offset))
		}
	}
}

// stopLocked stops the consume loop and waits for it. k.mu must be held.
func (k *Kafka) stopLocked() {
	if k.cancel == nil {
		return
	}
	k.cancel()
	done := k.done
	k.mu.Unlock()
	<-done
	k.mu.Lock()
	k.cancel = nil
}

// Close stops consuming and releases the control topic writer.
func (k *Kafka) Close() error {
	k.mu.Lock()
	k.stopLocked()
	k.mu.Unlock()
	if k.writer != nil {
		return k.writer.Close()
	}
	return nil
}
