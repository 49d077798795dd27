package pathing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type flatTerrain struct{ w, h int }

func (t flatTerrain) Size() (int, int)      { return t.w, t.h }
func (t flatTerrain) HeightAt(Cell) float64 { return 0 }

type testEntity struct {
	id     EntityID
	pos    Cell
	height float64
	fp     Footprint
}

func (e *testEntity) ID() EntityID         { return e.id }
func (e *testEntity) Name() string         { return fmt.Sprintf("U%d", e.id) }
func (e *testEntity) Position() Cell       { return e.pos }
func (e *testEntity) Footprint() Footprint { return e.fp }
func (e *testEntity) SetPosition(c Cell, h float64) {
	e.pos = c
	e.height = h
}

type testRegistry map[EntityID]*testEntity

func (r testRegistry) Entity(id EntityID) (Entity, bool) {
	e, ok := r[id]
	if !ok {
		return nil, false
	}
	return e, true
}

// testWorld wires a coordinator to a fake registry and announces every
// entity through the event bridge, the way a game would.
type testWorld struct {
	t        *testing.T
	reg      testRegistry
	coord    *Coordinator
	log      *PathLog
	tick     int
	onUpdate func(tick int)
}

func newTestWorld(t *testing.T, w, h int, cfg Config) *testWorld {
	t.Helper()
	log := NewPathLog(true)
	reg := testRegistry{}
	c, err := NewCoordinator(flatTerrain{w, h}, reg, cfg, log)
	require.NoError(t, err)
	return &testWorld{t: t, reg: reg, coord: c, log: log}
}

func (tw *testWorld) spawn(id EntityID, x, y, w, h int) *testEntity {
	e := &testEntity{id: id, pos: Cell{x, y}, fp: Footprint{w, h}}
	tw.reg[id] = e
	tw.coord.Events().Push(Event{Kind: EventCreated, Entity: id, Position: e.pos, Footprint: e.fp})
	return e
}

func (tw *testWorld) destroy(id EntityID) {
	delete(tw.reg, id)
	tw.coord.Events().Push(Event{Kind: EventDestroyed, Entity: id})
}

func (tw *testWorld) order(id EntityID, x, y int) Handle {
	tw.t.Helper()
	h, err := tw.coord.StartPathing(id, Cell{x, y})
	require.NoError(tw.t, err)
	return h
}

func (tw *testWorld) run(n int) {
	for i := 0; i < n; i++ {
		tw.tick++
		tw.coord.Update(tw.tick)
		if tw.onUpdate != nil {
			tw.onUpdate(tw.tick)
		}
	}
}

// runUntil advances until pred holds and returns the tick, or -1.
func (tw *testWorld) runUntil(pred func() bool, maxTicks int) int {
	for i := 0; i < maxTicks; i++ {
		tw.run(1)
		if pred() {
			return tw.tick
		}
	}
	return -1
}

func (tw *testWorld) status(h Handle) Status {
	tw.t.Helper()
	st, ok := tw.coord.PathStatus(h)
	require.True(tw.t, ok, "handle %d should exist", h)
	return st
}

func (tw *testWorld) dumpLog() {
	tw.t.Helper()
	tw.t.Logf("path log:\n%s", tw.log.Format())
}

func requireUnitSteps(t *testing.T, wps []Cell) {
	t.Helper()
	for i := 1; i < len(wps); i++ {
		dx, dy := abs(wps[i].X-wps[i-1].X), abs(wps[i].Y-wps[i-1].Y)
		require.True(t, dx <= 1 && dy <= 1 && dx+dy > 0,
			"step %d: %v → %v is not a unit step", i, wps[i-1], wps[i])
	}
}
