// package realtime consumes the process_events change feed and merges each
// delta into the proposal store. Delivery is at-least-once; the store's
// apply operations are idempotent, so duplicates are harmless.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/commandcenter/command-center/internal/model"
	"github.com/commandcenter/command-center/internal/notify"
	"github.com/commandcenter/command-center/internal/store"
)

// ChangeEvent is the row-change envelope the backend publishes per mutation:
// "new" is populated for INSERT/UPDATE, "old" for UPDATE/DELETE.
type ChangeEvent struct {
	Op  string              `json:"op"`
	New *model.ProcessEvent `json:"new,omitempty"`
	Old *model.ProcessEvent `json:"old,omitempty"`
}

const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// fetcher is the subset of kafka.Reader behavior the consumer needs.
type fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig configures the change-feed subscription.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Consumer owns exactly one logical subscription for its lifetime. Close
// releases it; repeated construction without Close leaks consumer-group
// members, so the owner must pair the two on every exit path.
//
// Reconnection and offset management belong to the underlying reader; the
// consumer only surfaces outages as user-visible notifications.
type Consumer struct {
	reader fetcher
	store  *store.Store
	bus    *notify.Bus

	// degraded tracks whether the last fetch failed, so an outage produces
	// one notification instead of one per retry.
	degraded bool
}

// NewConsumer opens the change-feed subscription.
func NewConsumer(cfg ConsumerConfig, st *store.Store, bus *notify.Bus) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("realtime: at least one broker required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("realtime: topic required")
	}
	groupID := cfg.GroupID
	if groupID == "" {
		groupID = "command-center"
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        groupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       1 << 20,
		CommitInterval: 0,
	})
	return &Consumer{reader: r, store: st, bus: bus}, nil
}

// newConsumerWithFetcher wires a pre-built reader; used by tests.
func newConsumerWithFetcher(r fetcher, st *store.Store, bus *notify.Bus) *Consumer {
	return &Consumer{reader: r, store: st, bus: bus}
}

// Run consumes the feed until ctx is cancelled. Fetch errors are non-fatal:
// the reader reconnects on its own, so Run notifies once per outage and
// keeps polling.
func (c *Consumer) Run(ctx context.Context) error {
	log.Printf("[realtime] consumer started")
	defer log.Printf("[realtime] consumer stopped")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				// Reader was closed.
				return nil
			}
			if !c.degraded {
				c.degraded = true
				c.bus.Add(notify.Error, "Real-time connection lost. Reconnecting...", notify.DefaultTTL)
			}
			log.Printf("[realtime] fetch: %v", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		c.degraded = false

		c.handleMessage(msg.Value)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[realtime] commit: %v", err)
		}
	}
}

// handleMessage decodes one change envelope and applies it to the store.
// Unknown ops and envelopes missing their row are logged and skipped; a bad
// message must never stop the feed.
func (c *Consumer) handleMessage(value []byte) {
	var ev ChangeEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		log.Printf("[realtime] decode change event: %v", err)
		return
	}

	switch ev.Op {
	case OpInsert:
		if ev.New == nil {
			log.Printf("[realtime] insert event missing row")
			return
		}
		c.store.ApplyRealtimeInsert(*ev.New)
		c.bus.Add(notify.Info, fmt.Sprintf("New proposal: %s", ev.New.EventName), notify.DefaultTTL)

	case OpUpdate:
		if ev.New == nil {
			log.Printf("[realtime] update event missing row")
			return
		}
		c.store.ApplyRealtimeUpdate(*ev.New)
		if ev.Old != nil && ev.Old.Status != ev.New.Status {
			c.bus.Add(notify.Success,
				fmt.Sprintf("Proposal %s status changed to %s", ev.New.ID, ev.New.Status),
				3*time.Second)
		}

	case OpDelete:
		if ev.Old == nil {
			log.Printf("[realtime] delete event missing row")
			return
		}
		c.store.ApplyRealtimeDelete(ev.Old.ID)

	default:
		log.Printf("[realtime] unknown op %q", ev.Op)
	}
}

// Close releases the subscription.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
