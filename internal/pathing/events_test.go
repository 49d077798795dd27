package pathing

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBridge_DrainInOrder(t *testing.T) {
	b := NewEventBridge(8)
	for id := EntityID(1); id <= 3; id++ {
		require.True(t, b.Push(Event{Kind: EventCreated, Entity: id}))
	}
	assert.Equal(t, 3, b.Len())

	var got []EntityID
	n := b.Drain(func(ev Event) { got = append(got, ev.Entity) })
	assert.Equal(t, 3, n)
	assert.Equal(t, []EntityID{1, 2, 3}, got)
	assert.Equal(t, 0, b.Len())
}

func TestEventBridge_FullQueueDrops(t *testing.T) {
	b := NewEventBridge(2)
	assert.True(t, b.Push(Event{Entity: 1}))
	assert.True(t, b.Push(Event{Entity: 2}))
	assert.False(t, b.Push(Event{Entity: 3}), "push never blocks")
	assert.Equal(t, uint64(1), b.Dropped())

	evs := b.DrainAll()
	require.Len(t, evs, 2)
	assert.Equal(t, EntityID(1), evs[0].Entity)
	assert.True(t, b.Push(Event{Entity: 4}), "space is available again after a drain")
}

func TestEventBridge_ConcurrentProducers(t *testing.T) {
	b := NewEventBridge(1000)
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.Push(Event{Kind: EventMoved, Entity: EntityID(p*100 + i)})
			}
		}(p)
	}
	wg.Wait()
	assert.Len(t, b.DrainAll(), 400)
	assert.Zero(t, b.Dropped())
}

func TestEventBridge_MinimumCapacity(t *testing.T) {
	b := NewEventBridge(0)
	assert.Equal(t, 1, b.Cap())
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "created", EventCreated.String())
	assert.Equal(t, "destroyed", EventDestroyed.String())
	assert.Equal(t, "EventKind(9)", EventKind(9).String())
}
