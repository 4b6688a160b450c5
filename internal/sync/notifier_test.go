package sync_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Vaultexe/server/internal/sync"
)

// memoryBroker is a single-process Broker for tests. Subscribers attach
// after Subscribe returns, matching the no-backlog contract.
type memoryBroker struct {
	subs map[string][]chan []byte
}

func newMemoryBroker() *memoryBroker {
	return &memoryBroker{subs: map[string][]chan []byte{}}
}

func (b *memoryBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	for _, sub := range b.subs[channel] {
		sub <- payload
	}
	return nil
}

func (b *memoryBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 16)
	b.subs[channel] = append(b.subs[channel], ch)
	return ch, func() { close(ch) }, nil
}

func recv(t *testing.T, events <-chan sync.Event) sync.Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "event channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return sync.Event{}
	}
}

func TestPublishReachesOnlyThatUsersSubscribers(t *testing.T) {
	ctx := context.Background()
	broker := newMemoryBroker()
	notifier := sync.NewNotifier(broker, zap.NewNop())

	alice, stopAlice, err := notifier.Subscribe(ctx, "alice")
	require.NoError(t, err)
	defer stopAlice()
	bob, stopBob, err := notifier.Subscribe(ctx, "bob")
	require.NoError(t, err)
	defer stopBob()

	payload, _ := json.Marshal(map[string]string{"id": "cipher-1"})
	err = notifier.Publish(ctx, "alice", sync.Event{
		Entity: sync.EntityCipher,
		Op:     sync.OpUpdate,
		Data:   payload,
	})
	require.NoError(t, err)

	ev := recv(t, alice)
	require.Equal(t, sync.EntityCipher, ev.Entity)
	require.Equal(t, sync.OpUpdate, ev.Op)
	require.JSONEq(t, string(payload), string(ev.Data))

	select {
	case ev := <-bob:
		t.Fatalf("bob received alice's event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeOrderWithinUser(t *testing.T) {
	ctx := context.Background()
	broker := newMemoryBroker()
	notifier := sync.NewNotifier(broker, zap.NewNop())

	events, stop, err := notifier.Subscribe(ctx, "alice")
	require.NoError(t, err)
	defer stop()

	ops := []sync.Operation{sync.OpCreate, sync.OpSoftDelete, sync.OpRestore, sync.OpDelete}
	for _, op := range ops {
		require.NoError(t, notifier.Publish(ctx, "alice", sync.Event{Entity: sync.EntityID, Op: op}))
	}
	for _, want := range ops {
		require.Equal(t, want, recv(t, events).Op)
	}
}

func TestUndecodablePayloadIsDropped(t *testing.T) {
	ctx := context.Background()
	broker := newMemoryBroker()
	notifier := sync.NewNotifier(broker, zap.NewNop())

	events, stop, err := notifier.Subscribe(ctx, "alice")
	require.NoError(t, err)
	defer stop()

	require.NoError(t, broker.Publish(ctx, "sync:v:alice", []byte("not json")))
	require.NoError(t, notifier.Publish(ctx, "alice", sync.Event{Entity: sync.EntityCollection, Op: sync.OpCreate}))

	// Only the valid event comes through.
	ev := recv(t, events)
	require.Equal(t, sync.EntityCollection, ev.Entity)
}

func TestStopClosesEventChannel(t *testing.T) {
	ctx := context.Background()
	broker := newMemoryBroker()
	notifier := sync.NewNotifier(broker, zap.NewNop())

	events, stop, err := notifier.Subscribe(ctx, "alice")
	require.NoError(t, err)
	stop()

	select {
	case _, ok := <-events:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("event channel did not close after stop")
	}
}
