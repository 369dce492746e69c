// propagation/bus_test.go
package propagation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logger "github.com/tea0112/ecm-identity-service-sub001/logging"
	"github.com/tea0112/ecm-identity-service-sub001/propagation"
)

func publishN(t *testing.T, bus *propagation.Bus, tenant string, from, to int64) {
	t.Helper()
	for v := from; v <= to; v++ {
		err := bus.Publish(context.Background(), propagation.Event{
			Tenant:     tenant,
			Version:    v,
			Kind:       propagation.KindRevocation,
			OccurredAt: time.Now(),
		})
		require.NoError(t, err)
	}
}

func TestBus_DeliversInOrder(t *testing.T) {
	logger.InitLogger(t.TempDir())
	bus := propagation.NewBus(16)
	events := bus.Subscribe("tenant-1")

	publishN(t, bus, "tenant-1", 1, 10)

	for want := int64(1); want <= 10; want++ {
		event := <-events
		assert.Equal(t, want, event.Version)
	}
}

func TestBus_WildcardSubscriberSeesAllTenants(t *testing.T) {
	logger.InitLogger(t.TempDir())
	bus := propagation.NewBus(16)
	all := bus.Subscribe("*")
	only := bus.Subscribe("tenant-a")

	publishN(t, bus, "tenant-a", 1, 1)
	publishN(t, bus, "tenant-b", 1, 1)

	first := <-all
	second := <-all
	assert.ElementsMatch(t, []string{"tenant-a", "tenant-b"}, []string{first.Tenant, second.Tenant})

	got := <-only
	assert.Equal(t, "tenant-a", got.Tenant)
	select {
	case extra := <-only:
		t.Fatalf("tenant-a subscriber received foreign event: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_FullBufferDropsNotBlocks(t *testing.T) {
	logger.InitLogger(t.TempDir())
	bus := propagation.NewBus(2)
	bus.Start(context.Background())
	events := bus.Subscribe("tenant-1")

	// Nobody drains: versions 3+ are dropped, publishers never block.
	publishN(t, bus, "tenant-1", 1, 5)

	tracker := propagation.NewTracker()
	assert.True(t, tracker.Observe(<-events))
	assert.True(t, tracker.Observe(<-events))
	assert.Equal(t, int64(2), tracker.LastSeen("tenant-1"))

	// The next event the subscriber sees exposes the gap.
	publishN(t, bus, "tenant-1", 6, 6)
	assert.False(t, tracker.Observe(<-events))
}

func TestTracker_GapDetection(t *testing.T) {
	tracker := propagation.NewTracker()

	assert.True(t, tracker.Observe(propagation.Event{Tenant: "t", Version: 1}))
	assert.True(t, tracker.Observe(propagation.Event{Tenant: "t", Version: 2}))
	assert.False(t, tracker.Observe(propagation.Event{Tenant: "t", Version: 4}))

	// Resync after the synchronous store read restores contiguity.
	tracker.Resync("t", 4)
	assert.True(t, tracker.Observe(propagation.Event{Tenant: "t", Version: 5}))
}

func TestTracker_Fresh(t *testing.T) {
	tracker := propagation.NewTracker()
	sla := time.Second

	t.Run("SnapshotCoversEverythingSeen", func(t *testing.T) {
		tracker.Resync("t", 3)
		assert.True(t, tracker.Fresh("t", 3, 3, sla))
	})

	t.Run("SnapshotBehindObservedEvents", func(t *testing.T) {
		tracker.Resync("t", 5)
		assert.False(t, tracker.Fresh("t", 3, 5, sla))
	})

	t.Run("StoreAheadButChannelLive", func(t *testing.T) {
		fresh := propagation.NewTracker()
		fresh.Observe(propagation.Event{Tenant: "t", Version: 5})
		assert.True(t, fresh.Fresh("t", 5, 6, sla))
	})

	t.Run("StoreAheadAndChannelSilent", func(t *testing.T) {
		silent := propagation.NewTracker()
		assert.False(t, silent.Fresh("t", 5, 6, sla))
	})
}
