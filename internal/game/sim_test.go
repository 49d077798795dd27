package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthurmco/familyline-testbed-sub000/internal/pathing"
)

func TestNewSim_Defaults(t *testing.T) {
	s, err := NewSim()
	require.NoError(t, err)
	assert.Equal(t, 100, s.Width)
	assert.Equal(t, 100, s.Height)
	assert.Equal(t, pathing.DefaultConfig(), s.Paths.Config())
	_, flat := s.Terrain.(FlatTerrain)
	assert.True(t, flat)
	assert.Equal(t, 0, s.World.Len())
	assert.True(t, s.Settled(), "nothing to do")
}

func TestNewSim_OptionsApplyInPasses(t *testing.T) {
	// Units listed before the map size still see the final coordinator.
	s, err := NewSim(
		WithUnit(1, "alpha", 5, 5, 1, 1),
		WithBlockedArea(20, 0, 1, 40),
		WithMapSize(40, 40),
		WithIterations(60),
		WithRatio(4),
	)
	require.NoError(t, err)
	w, h := s.Paths.Grid().Size()
	assert.Equal(t, 40, w)
	assert.Equal(t, 40, h)
	assert.Equal(t, 60, s.Paths.IterationsPerTick())
	assert.Equal(t, 4, s.Paths.Grid().Ratio())
	assert.True(t, s.Paths.Grid().Blocked(pathing.Cell{X: 20, Y: 10}))

	u, ok := s.Unit(1)
	require.True(t, ok)
	assert.Equal(t, "alpha", u.Name())
}

func TestNewSim_InvalidConfig(t *testing.T) {
	_, err := NewSim(WithRatio(0))
	assert.ErrorIs(t, err, pathing.ErrInvalidConfig)

	_, err = NewSim(WithScript("orders := func(engine, tick) { engine.move(1, 2, 3"))
	assert.Error(t, err)
}

func TestSim_MoveOrder(t *testing.T) {
	s, err := NewSim(
		WithMapSize(50, 50),
		WithUnit(1, "", 5, 5, 1, 1),
		WithOrder(2, 1, 15, 5),
	)
	require.NoError(t, err)

	s.Step()
	_, ok := s.Status(1)
	assert.False(t, ok)

	tick := requireSettled(t, s, 40)
	assert.Greater(t, tick, 10)
	requireUnitAt(t, s, 1, pathing.Cell{X: 15, Y: 5})
	assert.True(t, s.Log.HasEntry("order", "move", ""))
}

func TestSim_RejectedOrdersAreLogged(t *testing.T) {
	s, err := NewSim(
		WithMapSize(20, 20),
		WithUnit(1, "", 5, 5, 1, 1),
		WithOrder(1, 1, 30, 30), // out of bounds
		WithScheduled(Order{Tick: 1, Kind: OrderKill, Unit: 9}),
	)
	require.NoError(t, err)
	s.Step()

	warnings := s.Log.FilterLevel(pathing.LevelWarning)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0].Value, "out of bounds")
	assert.Equal(t, "kill", warnings[1].Key)
	assert.Equal(t, "rejected", warnings[1].Value)
	assert.Equal(t, 0, s.Paths.PathCount())
}

func TestSim_ScheduleLateOrderRunsNextTick(t *testing.T) {
	s, err := NewSim(WithMapSize(30, 30), WithUnit(1, "", 2, 2, 1, 1))
	require.NoError(t, err)
	s.RunTicks(5)

	s.Schedule(Order{Tick: 1, Kind: OrderTeleport, Unit: 1, Target: pathing.Cell{X: 20, Y: 20}})
	assert.False(t, s.Settled(), "pending order")
	s.Step()
	requireUnitAt(t, s, 1, pathing.Cell{X: 20, Y: 20})
	st, ok := s.Paths.Mapped(1)
	require.True(t, ok)
	assert.Equal(t, pathing.Cell{X: 20, Y: 20}, st.Pos)
}

func TestSim_SpawnKillDestroy(t *testing.T) {
	s, err := NewSim(
		WithMapSize(40, 40),
		WithScheduled(Order{Tick: 1, Kind: OrderSpawn, Unit: 7, Target: pathing.Cell{X: 10, Y: 10}, Footprint: pathing.Footprint{W: 3, H: 3}, Name: "rock"}),
		WithScheduled(Order{Tick: 3, Kind: OrderKill, Unit: 7}),
		WithScheduled(Order{Tick: 4, Kind: OrderDestroy, Unit: 7}),
	)
	require.NoError(t, err)

	s.Step()
	u, ok := s.Unit(7)
	require.True(t, ok)
	assert.Equal(t, "rock", u.Name())
	assert.True(t, s.Paths.Grid().Blocked(pathing.Cell{X: 10, Y: 10}))

	s.RunTicks(2)
	assert.Equal(t, UnitDying, u.State())
	assert.False(t, s.Paths.Grid().Blocked(pathing.Cell{X: 10, Y: 10}))

	s.Step()
	_, ok = s.Unit(7)
	assert.False(t, ok)
	_, ok = s.Paths.Mapped(7)
	assert.False(t, ok)
}

func TestSim_OverlapsCountTeleportedUnits(t *testing.T) {
	s, err := NewSim(
		WithMapSize(30, 30),
		WithUnit(1, "", 5, 5, 2, 2),
		WithUnit(2, "", 20, 20, 2, 2),
		WithObstacle(10, 12, 12, 1, 1),
		WithObstacle(11, 12, 12, 1, 1),
		WithScheduled(Order{Tick: 2, Kind: OrderTeleport, Unit: 2, Target: pathing.Cell{X: 5, Y: 6}}),
	)
	require.NoError(t, err)

	s.Step()
	assert.Zero(t, s.Overlaps(), "overlapping scenery is not counted")
	s.Step()
	assert.Equal(t, 1, s.Overlaps())
	assert.True(t, s.Log.HasEntry("move", "overlap", ""))
	s.Step()
	assert.Equal(t, 2, s.Overlaps(), "counted once per tick")
}

func TestSim_ScriptFailureDisablesScript(t *testing.T) {
	s, err := NewSim(
		WithMapSize(30, 30),
		WithUnit(1, "", 5, 5, 1, 1),
		WithScript(`
orders := func(engine, tick) {
	if tick == 3 {
		engine.move(1)
	}
	if tick == 1 {
		engine.move(1, 10, 5)
	}
}`),
	)
	require.NoError(t, err)

	s.RunTicks(2)
	require.NoError(t, s.Err())
	_, ok := s.Status(1)
	assert.True(t, ok)

	s.Step()
	require.Error(t, s.Err())
	assert.Contains(t, s.Err().Error(), "tick 3")
	assert.True(t, s.Log.HasEntry("order", "script", ""))

	requireSettled(t, s, 20)
	requireUnitAt(t, s, 1, pathing.Cell{X: 10, Y: 5})
}

func TestSim_RunUntil(t *testing.T) {
	s, err := NewSim(WithMapSize(30, 30))
	require.NoError(t, err)
	assert.Equal(t, 4, s.RunUntil(func(s *Sim) bool { return s.Tick == 4 }, 10))
	assert.Equal(t, -1, s.RunUntil(func(*Sim) bool { return false }, 3))
	assert.Equal(t, 7, s.Tick)
}

func TestSim_Snapshot(t *testing.T) {
	s, err := NewSim(
		WithMapSize(30, 30),
		WithNoiseTerrain(5, 0.1),
		WithUnit(2, "b", 10, 10, 1, 1),
		WithUnit(1, "a", 3, 3, 1, 1),
		WithOrder(1, 1, 3, 10),
	)
	require.NoError(t, err)
	s.RunTicks(2)

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.Tick)
	assert.Equal(t, 1, snap.Routes)
	require.Len(t, snap.Units, 2)
	assert.Equal(t, "a", snap.Units[0].Name)
	assert.Equal(t, "InProgress", snap.Units[0].Route)
	assert.Equal(t, "", snap.Units[1].Route)
	assert.Equal(t, s.Terrain.HeightAt(snap.Units[0].Pos), snap.Units[0].Height, "walking updates the height")
}

func TestSim_TraceAndDebugReport(t *testing.T) {
	s, err := NewSim(
		WithMapSize(40, 40),
		WithUnit(1, "scout", 5, 5, 1, 1),
		WithOrder(1, 1, 15, 5),
	)
	require.NoError(t, err)
	requireSettled(t, s, 40)

	trace := s.Trace(1, 0, s.Tick)
	require.NotEmpty(t, trace)
	assert.Equal(t, 1, trace[0].Tick)
	assert.Equal(t, pathing.Completed, trace[len(trace)-1].Status)
	assert.Len(t, s.Trace(1, 2, 4), 3)
	assert.Empty(t, s.Trace(2, 0, s.Tick))

	report := s.UnitDebugReport(1, 0)
	for _, want := range []string{"selected=scout", "route=#1 Completed", "summary:", "stages:", "InProgress -> Completed", "log:"} {
		assert.True(t, strings.Contains(report, want), "report missing %q:\n%s", want, report)
	}
	assert.Empty(t, s.UnitDebugReport(99, 0))
}

func TestSummarizeTrace(t *testing.T) {
	snaps := []RouteSnapshot{
		{Tick: 1, Pos: pathing.Cell{X: 0, Y: 0}, Status: pathing.InProgress},
		{Tick: 2, Pos: pathing.Cell{X: 1, Y: 0}, Status: pathing.InProgress},
		{Tick: 3, Pos: pathing.Cell{X: 1, Y: 0}, Status: pathing.Repathing, Waits: 1},
		{Tick: 4, Pos: pathing.Cell{X: 1, Y: 0}, Status: pathing.InProgress, Waits: 1, Recalcs: 2},
		{Tick: 5, Pos: pathing.Cell{X: 2, Y: 0}, Status: pathing.Completed, Waits: 1, Recalcs: 2},
	}
	sum := summarizeTrace(snaps)
	assert.Equal(t, 1, sum.walkingTicks)
	assert.Equal(t, 3, sum.waitingTicks)
	assert.Equal(t, 1, sum.terminalTicks)
	assert.Equal(t, 2, sum.movedTicks)
	assert.Equal(t, 2, sum.maxWaitRun)
	assert.Equal(t, 1, sum.waits)
	assert.Equal(t, 2, sum.recalcs)

	stages := buildStages(snaps)
	require.Len(t, stages, 4)
	assert.Equal(t, 2, stages[0].count)
	assert.Equal(t, pathing.Completed, stages[3].first.Status)
}
