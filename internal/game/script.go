package game

import (
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/arthurmco/familyline-testbed-sub000/internal/pathing"
)

// orderEntry is appended to every order script. The script must define
// orders := func(engine, tick) { ... }.
const orderEntry = "\norders(__engine, __tick)\n"

// OrderScript is a tengo program run once per tick to issue unit orders.
// Inside the script, engine exposes:
//
//	engine.move(id, x, y)
//	engine.teleport(id, x, y)
//	engine.spawn(id, x, y, w, h)
//	engine.kill(id)
//	engine.destroy(id)
//	engine.status(id)  // route status name, or "" without a route
type OrderScript struct {
	compiled *tengo.Compiled
	engine   *tengo.ImmutableMap
	status   func(pathing.EntityID) string

	tick    int
	pending []Order
}

// CompileOrderScript compiles src. status answers engine.status calls and
// may be nil.
func CompileOrderScript(src string, status func(pathing.EntityID) string) (*OrderScript, error) {
	script := tengo.NewScript([]byte(src + orderEntry))
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))
	if err := script.Add("__engine", map[string]interface{}{}); err != nil {
		return nil, fmt.Errorf("game: order script: %w", err)
	}
	if err := script.Add("__tick", 0); err != nil {
		return nil, fmt.Errorf("game: order script: %w", err)
	}
	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("game: compile order script: %w", err)
	}
	sc := &OrderScript{compiled: compiled, status: status}
	sc.engine = &tengo.ImmutableMap{Value: map[string]tengo.Object{
		"move":     &tengo.UserFunction{Name: "move", Value: sc.move},
		"teleport": &tengo.UserFunction{Name: "teleport", Value: sc.teleport},
		"spawn":    &tengo.UserFunction{Name: "spawn", Value: sc.spawn},
		"kill":     &tengo.UserFunction{Name: "kill", Value: sc.unitOrder(OrderKill)},
		"destroy":  &tengo.UserFunction{Name: "destroy", Value: sc.unitOrder(OrderDestroy)},
		"status":   &tengo.UserFunction{Name: "status", Value: sc.routeStatus},
	}}
	return sc, nil
}

// Run executes the script for one tick and returns the orders it issued.
func (sc *OrderScript) Run(tick int) ([]Order, error) {
	sc.tick = tick
	sc.pending = sc.pending[:0]
	if err := sc.compiled.Set("__tick", tick); err != nil {
		return nil, err
	}
	if err := sc.compiled.Set("__engine", sc.engine); err != nil {
		return nil, err
	}
	if err := sc.compiled.Run(); err != nil {
		return nil, fmt.Errorf("game: order script tick %d: %w", tick, err)
	}
	return append([]Order(nil), sc.pending...), nil
}

func intArgs(names []string, args []tengo.Object) ([]int, error) {
	if len(args) != len(names) {
		return nil, tengo.ErrWrongNumArguments
	}
	out := make([]int, len(args))
	for i, a := range args {
		v, ok := tengo.ToInt(a)
		if !ok {
			return nil, tengo.ErrInvalidArgumentType{Name: names[i], Expected: "int", Found: a.TypeName()}
		}
		out[i] = v
	}
	return out, nil
}

func (sc *OrderScript) move(args ...tengo.Object) (tengo.Object, error) {
	v, err := intArgs([]string{"id", "x", "y"}, args)
	if err != nil {
		return nil, err
	}
	sc.pending = append(sc.pending, Order{
		Tick: sc.tick, Kind: OrderMove, Unit: pathing.EntityID(v[0]), Target: pathing.Cell{X: v[1], Y: v[2]},
	})
	return tengo.UndefinedValue, nil
}

func (sc *OrderScript) teleport(args ...tengo.Object) (tengo.Object, error) {
	v, err := intArgs([]string{"id", "x", "y"}, args)
	if err != nil {
		return nil, err
	}
	sc.pending = append(sc.pending, Order{
		Tick: sc.tick, Kind: OrderTeleport, Unit: pathing.EntityID(v[0]), Target: pathing.Cell{X: v[1], Y: v[2]},
	})
	return tengo.UndefinedValue, nil
}

func (sc *OrderScript) spawn(args ...tengo.Object) (tengo.Object, error) {
	v, err := intArgs([]string{"id", "x", "y", "w", "h"}, args)
	if err != nil {
		return nil, err
	}
	sc.pending = append(sc.pending, Order{
		Tick:      sc.tick,
		Kind:      OrderSpawn,
		Unit:      pathing.EntityID(v[0]),
		Target:    pathing.Cell{X: v[1], Y: v[2]},
		Footprint: pathing.Footprint{W: v[3], H: v[4]},
	})
	return tengo.UndefinedValue, nil
}

func (sc *OrderScript) unitOrder(kind OrderKind) tengo.CallableFunc {
	return func(args ...tengo.Object) (tengo.Object, error) {
		v, err := intArgs([]string{"id"}, args)
		if err != nil {
			return nil, err
		}
		sc.pending = append(sc.pending, Order{Tick: sc.tick, Kind: kind, Unit: pathing.EntityID(v[0])})
		return tengo.UndefinedValue, nil
	}
}

func (sc *OrderScript) routeStatus(args ...tengo.Object) (tengo.Object, error) {
	v, err := intArgs([]string{"id"}, args)
	if err != nil {
		return nil, err
	}
	if sc.status == nil {
		return &tengo.String{Value: ""}, nil
	}
	return &tengo.String{Value: sc.status(pathing.EntityID(v[0]))}, nil
}
