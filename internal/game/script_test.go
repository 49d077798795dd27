package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthurmco/familyline-testbed-sub000/internal/pathing"
)

func TestOrderScript_OrdersPerTick(t *testing.T) {
	sc, err := CompileOrderScript(`
text := import("text")
orders := func(engine, tick) {
	if tick == 1 {
		engine.move(1, 4, 5)
		engine.spawn(9, 2, 2, 3, 1)
	}
	if tick % 10 == 0 {
		engine.teleport(2, tick, 0)
		engine.kill(3)
		engine.destroy(4)
	}
	if engine.status(1) == "Completed" {
		engine.move(1, 0, 0)
	}
	if text.has_prefix("x", "y") {
		engine.kill(99)
	}
}`, func(id pathing.EntityID) string {
		if id == 1 {
			return "Completed"
		}
		return ""
	})
	require.NoError(t, err)

	orders, err := sc.Run(1)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, Order{Tick: 1, Kind: OrderMove, Unit: 1, Target: pathing.Cell{X: 4, Y: 5}}, orders[0])
	assert.Equal(t, OrderSpawn, orders[1].Kind)
	assert.Equal(t, pathing.Footprint{W: 3, H: 1}, orders[1].Footprint)
	assert.Equal(t, pathing.Cell{}, orders[2].Target)

	orders, err = sc.Run(2)
	require.NoError(t, err)
	require.Len(t, orders, 1, "orders do not carry over between ticks")

	orders, err = sc.Run(20)
	require.NoError(t, err)
	require.Len(t, orders, 4)
	assert.Equal(t, OrderTeleport, orders[0].Kind)
	assert.Equal(t, pathing.Cell{X: 20, Y: 0}, orders[0].Target)
	assert.Equal(t, OrderKill, orders[1].Kind)
	assert.Equal(t, pathing.EntityID(3), orders[1].Unit)
	assert.Equal(t, OrderDestroy, orders[2].Kind)
	for _, o := range orders {
		assert.Equal(t, 20, o.Tick)
	}
}

func TestOrderScript_NilStatus(t *testing.T) {
	sc, err := CompileOrderScript(`
orders := func(engine, tick) {
	if engine.status(1) == "" {
		engine.kill(1)
	}
}`, nil)
	require.NoError(t, err)
	orders, err := sc.Run(1)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestOrderScript_Errors(t *testing.T) {
	_, err := CompileOrderScript("orders := func(engine, tick) {", nil)
	assert.ErrorContains(t, err, "compile order script")

	_, err = CompileOrderScript("x := 1", nil)
	assert.Error(t, err, "orders must be defined")

	tests := []struct {
		name string
		body string
	}{
		{"wrong arity", `engine.move(1, 2)`},
		{"wrong type", `engine.move(1, "a", 2)`},
		{"unknown call", `engine.fly(1)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := CompileOrderScript("orders := func(engine, tick) {\n"+tt.body+"\n}", nil)
			require.NoError(t, err)
			_, err = sc.Run(5)
			assert.ErrorContains(t, err, "tick 5")
		})
	}
}
