package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthurmco/familyline-testbed-sub000/internal/pathing"
)

func TestWorld_LifecycleEvents(t *testing.T) {
	w := NewWorld()
	bridge := pathing.NewEventBridge(16)
	w.Attach(bridge)

	u := w.Spawn("", pathing.Cell{X: 1, Y: 2}, pathing.Footprint{W: 2, H: 2})
	assert.Equal(t, pathing.EntityID(1), u.ID())
	assert.Equal(t, "U1", u.Name())
	w.SpawnWithID(5, "tank", pathing.Cell{X: 9, Y: 9}, pathing.Footprint{W: 3, H: 3})
	next := w.Spawn("", pathing.Cell{}, pathing.Footprint{W: 1, H: 1})
	assert.Equal(t, pathing.EntityID(6), next.ID(), "ids continue after the highest used")

	assert.True(t, w.Teleport(1, pathing.Cell{X: 4, Y: 4}))
	assert.True(t, w.Kill(5))
	assert.False(t, w.Kill(5), "already dying")
	assert.True(t, w.Destroy(5))
	assert.False(t, w.Destroy(5))
	assert.False(t, w.Teleport(5, pathing.Cell{}))

	events := bridge.DrainAll()
	kinds := make([]pathing.EventKind, 0, len(events))
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []pathing.EventKind{
		pathing.EventCreated, pathing.EventCreated, pathing.EventCreated,
		pathing.EventMoved, pathing.EventDying, pathing.EventDestroyed,
	}, kinds)
	assert.Equal(t, pathing.Footprint{W: 3, H: 3}, events[1].Footprint)
	assert.Equal(t, pathing.Cell{X: 4, Y: 4}, events[3].Position)
}

func TestWorld_WithoutBridge(t *testing.T) {
	w := NewWorld()
	w.Spawn("a", pathing.Cell{}, pathing.Footprint{W: 1, H: 1})
	assert.True(t, w.Kill(1))
	assert.Equal(t, 1, w.Len())
}

func TestWorld_Registry(t *testing.T) {
	w := NewWorld()
	w.SpawnWithID(3, "c", pathing.Cell{X: 10, Y: 10}, pathing.Footprint{W: 3, H: 3})
	w.SpawnWithID(1, "a", pathing.Cell{X: 1, Y: 1}, pathing.Footprint{W: 1, H: 1})
	w.SpawnWithID(2, "b", pathing.Cell{X: 5, Y: 5}, pathing.Footprint{W: 1, H: 1})

	var names []string
	for _, u := range w.Units() {
		names = append(names, u.Name())
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)

	e, ok := w.Entity(3)
	require.True(t, ok)
	assert.Equal(t, pathing.Footprint{W: 3, H: 3}, e.Footprint())
	_, ok = w.Entity(4)
	assert.False(t, ok)

	u, ok := w.UnitAt(pathing.Cell{X: 5, Y: 5})
	require.True(t, ok)
	assert.Equal(t, "b", u.Name())
	_, ok = w.UnitAt(pathing.Cell{X: 20, Y: 20})
	assert.False(t, ok)

	w.Kill(2)
	_, ok = w.UnitAt(pathing.Cell{X: 5, Y: 5})
	assert.False(t, ok, "dying units are not picked")
}
