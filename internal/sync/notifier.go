// Package sync fans vault-mutation events out to every live session of a
// user. Delivery is best-effort, at-most-once: a new subscription starts
// with no backlog and a disconnected listener misses events.
package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Vaultexe/server/internal/cache"
)

// Operation is the mutation that happened to a vault entity.
type Operation string

const (
	OpCreate     Operation = "create"
	OpUpdate     Operation = "update"
	OpDelete     Operation = "delete"
	OpSoftDelete Operation = "soft_delete"
	OpRestore    Operation = "restore"
)

// EntityKind tags the payload shape. EntityID events carry only the id of
// the affected entity, for deletes.
type EntityKind string

const (
	EntityCollection EntityKind = "collection"
	EntityCipher     EntityKind = "cipher"
	EntityID         EntityKind = "id"
)

// Event is one vault mutation. Data is opaque to this core.
type Event struct {
	Entity EntityKind      `json:"type"`
	Op     Operation       `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// Broker is the broadcast transport. Within one channel, publish order is
// preserved; nothing is guaranteed across channels.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe yields payloads until the context is cancelled or the
	// returned stop function runs, after which the channel closes.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Notifier publishes and streams per-user vault sync events.
type Notifier struct {
	broker Broker
	logger *zap.Logger
}

func NewNotifier(broker Broker, logger *zap.Logger) *Notifier {
	return &Notifier{broker: broker, logger: logger}
}

// Publish broadcasts the event to all of the user's live subscriptions.
func (n *Notifier) Publish(ctx context.Context, userID string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal sync event: %w", err)
	}
	if err := n.broker.Publish(ctx, cache.SyncChannel(userID), payload); err != nil {
		return fmt.Errorf("publish sync event: %w", err)
	}
	return nil
}

// Subscribe opens a live event stream for the user. The caller must run
// the returned stop function when the client disconnects.
func (n *Notifier) Subscribe(ctx context.Context, userID string) (<-chan Event, func(), error) {
	raw, stop, err := n.broker.Subscribe(ctx, cache.SyncChannel(userID))
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe sync events: %w", err)
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		for payload := range raw {
			var ev Event
			if err := json.Unmarshal(payload, &ev); err != nil {
				n.logger.Warn("dropping undecodable sync event", zap.Error(err))
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, stop, nil
}
