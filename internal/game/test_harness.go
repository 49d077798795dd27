package game

import (
	"fmt"

	"github.com/arthurmco/familyline-testbed-sub000/internal/pathing"
)

// OrderKind is what an order does to its unit.
type OrderKind int

const (
	OrderMove OrderKind = iota
	OrderTeleport
	OrderSpawn
	OrderKill
	OrderDestroy
)

func (k OrderKind) String() string {
	switch k {
	case OrderMove:
		return "move"
	case OrderTeleport:
		return "teleport"
	case OrderSpawn:
		return "spawn"
	case OrderKill:
		return "kill"
	case OrderDestroy:
		return "destroy"
	}
	return "unknown"
}

// Order is a scheduled command. It is applied at the start of its tick,
// before the coordinator runs; tick 0 orders run with tick 1.
type Order struct {
	Tick      int
	Kind      OrderKind
	Unit      pathing.EntityID
	Target    pathing.Cell
	Footprint pathing.Footprint // spawn only
	Name      string            // spawn only
}

// Sim is a headless simulation harness: a world of units, a terrain and a
// path coordinator advanced tick by tick. Tests, the headless report and the
// viewer all drive the core through it.
type Sim struct {
	Width   int
	Height  int
	Config  pathing.Config
	Terrain pathing.Terrain
	World   *World
	Paths   *pathing.Coordinator
	Log     *pathing.PathLog
	Tick    int

	seed      int64
	noise     *noiseSpec
	orders    []Order
	scriptSrc string
	script    *OrderScript
	overlaps  int
	traces    map[pathing.EntityID][]RouteSnapshot
	err       error
}

type noiseSpec struct {
	amplitude, scale float64
}

// simOptionKind controls the pass in which an option is applied.
type simOptionKind int

const (
	simOptInfra simOptionKind = iota // map size, config, seed, terrain, verbose
	simOptUnit                       // units and blocked areas, after the coordinator exists
	simOptOrder                      // orders and scripts, after units exist
)

// SimOption is a builder function applied to a Sim during construction.
type SimOption struct {
	kind simOptionKind
	fn   func(*Sim)
}

// WithMapSize sets the terrain dimensions in cells.
func WithMapSize(w, h int) SimOption {
	return SimOption{simOptInfra, func(s *Sim) {
		s.Width = w
		s.Height = h
	}}
}

// WithConfig replaces the coordinator settings.
func WithConfig(cfg pathing.Config) SimOption {
	return SimOption{simOptInfra, func(s *Sim) {
		s.Config = cfg
	}}
}

// WithIterations sets the per-tick search budget.
func WithIterations(n int) SimOption {
	return SimOption{simOptInfra, func(s *Sim) {
		s.Config.IterationsPerTick = n
	}}
}

// WithRatio sets the obstacle grid ratio.
func WithRatio(r int) SimOption {
	return SimOption{simOptInfra, func(s *Sim) {
		s.Config.Ratio = r
	}}
}

// WithSeed sets the terrain seed for deterministic runs.
func WithSeed(seed int64) SimOption {
	return SimOption{simOptInfra, func(s *Sim) {
		s.seed = seed
	}}
}

// WithNoiseTerrain uses a simplex height field instead of flat ground.
func WithNoiseTerrain(amplitude, scale float64) SimOption {
	return SimOption{simOptInfra, func(s *Sim) {
		s.noise = &noiseSpec{amplitude: amplitude, scale: scale}
	}}
}

// WithVerbose enables debug entries in the path log.
func WithVerbose(v bool) SimOption {
	return SimOption{simOptInfra, func(s *Sim) {
		s.Config.Verbose = v
	}}
}

// WithUnit spawns a unit centred on (x, y) with a w×h footprint.
func WithUnit(id pathing.EntityID, name string, x, y, w, h int) SimOption {
	return SimOption{simOptUnit, func(s *Sim) {
		s.World.SpawnWithID(id, name, pathing.Cell{X: x, Y: y}, pathing.Footprint{W: w, H: h})
	}}
}

// WithObstacle spawns a unit that is never ordered, such as a wall.
func WithObstacle(id pathing.EntityID, x, y, w, h int) SimOption {
	return SimOption{simOptUnit, func(s *Sim) {
		u := s.World.SpawnWithID(id, fmt.Sprintf("W%d", id), pathing.Cell{X: x, Y: y}, pathing.Footprint{W: w, H: h})
		u.static = true
	}}
}

// WithBlockedArea marks [x, x+w) × [y, y+h) permanently unwalkable.
func WithBlockedArea(x, y, w, h int) SimOption {
	return SimOption{simOptUnit, func(s *Sim) {
		s.Paths.BlockArea(x, y, w, h)
	}}
}

// WithOrder schedules a move order.
func WithOrder(tick int, id pathing.EntityID, x, y int) SimOption {
	return WithScheduled(Order{Tick: tick, Kind: OrderMove, Unit: id, Target: pathing.Cell{X: x, Y: y}})
}

// WithScheduled schedules any order.
func WithScheduled(o Order) SimOption {
	return SimOption{simOptOrder, func(s *Sim) {
		s.orders = append(s.orders, o)
	}}
}

// WithScript runs a tengo order script every tick.
func WithScript(src string) SimOption {
	return SimOption{simOptOrder, func(s *Sim) {
		s.scriptSrc = src
	}}
}

// NewSim constructs a Sim from the given options in ordered passes:
//  1. Infrastructure (map size, config, seed, terrain)
//  2. Coordinator and world
//  3. Units and blocked areas
//  4. Orders and scripts
func NewSim(opts ...SimOption) (*Sim, error) {
	s := &Sim{
		Width:  100,
		Height: 100,
		Config: pathing.DefaultConfig(),
		seed:   1,
	}
	for _, o := range opts {
		if o.kind == simOptInfra {
			o.fn(s)
		}
	}
	if s.noise != nil {
		s.Terrain = NewNoiseTerrain(s.Width, s.Height, s.seed, s.noise.amplitude, s.noise.scale)
	} else {
		s.Terrain = FlatTerrain{W: s.Width, H: s.Height}
	}
	s.Log = pathing.NewPathLog(s.Config.Verbose)
	s.World = NewWorld()
	paths, err := pathing.NewCoordinator(s.Terrain, s.World, s.Config, s.Log)
	if err != nil {
		return nil, fmt.Errorf("game: new sim: %w", err)
	}
	s.Paths = paths
	s.World.Attach(paths.Events())

	for _, o := range opts {
		if o.kind == simOptUnit {
			o.fn(s)
		}
	}
	for _, o := range opts {
		if o.kind == simOptOrder {
			o.fn(s)
		}
	}
	if s.scriptSrc != "" {
		s.script, err = CompileOrderScript(s.scriptSrc, s.statusName)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Sim) statusName(id pathing.EntityID) string {
	st, ok := s.Paths.EntityPathStatus(id)
	if !ok {
		return ""
	}
	return st.String()
}

// Err returns the first order script failure. A failing script is disabled.
func (s *Sim) Err() error { return s.err }

// Step advances the simulation one tick.
func (s *Sim) Step() {
	s.Tick++
	s.applyDue()
	if s.script != nil {
		orders, err := s.script.Run(s.Tick)
		if err != nil {
			s.err = err
			s.script = nil
			s.Log.Warnf(s.Tick, "--", "order", "script", "%v", err)
		}
		for _, o := range orders {
			s.apply(o)
		}
	}
	s.Paths.Update(s.Tick)
	s.countOverlaps()
	s.recordTraces()
}

// RunTicks advances the simulation n ticks.
func (s *Sim) RunTicks(n int) {
	for i := 0; i < n; i++ {
		s.Step()
	}
}

// RunUntil advances the simulation up to maxTicks, stopping early if predicate
// returns true. Returns the tick at which the predicate was satisfied, or -1.
func (s *Sim) RunUntil(predicate func(*Sim) bool, maxTicks int) int {
	for i := 0; i < maxTicks; i++ {
		s.Step()
		if predicate(s) {
			return s.Tick
		}
	}
	return -1
}

// Schedule queues an order. Orders for past ticks run on the next tick.
func (s *Sim) Schedule(o Order) {
	s.orders = append(s.orders, o)
}

func (s *Sim) applyDue() {
	kept := s.orders[:0]
	var due []Order
	for _, o := range s.orders {
		if o.Tick <= s.Tick {
			due = append(due, o)
		} else {
			kept = append(kept, o)
		}
	}
	s.orders = kept
	for _, o := range due {
		s.apply(o)
	}
}

func (s *Sim) apply(o Order) {
	label := fmt.Sprintf("#%d", o.Unit)
	var ok bool
	switch o.Kind {
	case OrderMove:
		_, err := s.Paths.StartPathing(o.Unit, o.Target)
		if err != nil {
			s.Log.Warnf(s.Tick, label, "order", "move", "%v", err)
			return
		}
		ok = true
	case OrderTeleport:
		ok = s.World.Teleport(o.Unit, o.Target)
	case OrderSpawn:
		s.World.SpawnWithID(o.Unit, o.Name, o.Target, o.Footprint)
		ok = true
	case OrderKill:
		ok = s.World.Kill(o.Unit)
	case OrderDestroy:
		ok = s.World.Destroy(o.Unit)
	}
	if !ok {
		s.Log.Warnf(s.Tick, label, "order", o.Kind.String(), "rejected")
		return
	}
	s.Log.Infof(s.Tick, label, "order", o.Kind.String(), "%v", o.Target)
}

// countOverlaps records every pair of live units sharing a cell.
func (s *Sim) countOverlaps() {
	units := s.World.Units()
	for i, a := range units {
		if a.state != UnitAlive {
			continue
		}
		for _, b := range units[i+1:] {
			if b.state != UnitAlive || !a.Stamp().Overlaps(b.Stamp()) {
				continue
			}
			if a.static && b.static {
				continue
			}
			s.overlaps++
			s.Log.Warnf(s.Tick, a.name, "move", "overlap", "%s at %v / %v", b.name, a.pos, b.pos)
		}
	}
}

// Overlaps returns how many unit pairs shared a cell, summed over ticks.
func (s *Sim) Overlaps() int { return s.overlaps }

// Unit returns a unit by id.
func (s *Sim) Unit(id pathing.EntityID) (*Unit, bool) { return s.World.Unit(id) }

// Status returns the route status of a unit.
func (s *Sim) Status(id pathing.EntityID) (pathing.Status, bool) {
	return s.Paths.EntityPathStatus(id)
}

// Settled reports whether no route is still being worked on and no order is
// pending.
func (s *Sim) Settled() bool {
	if len(s.orders) > 0 {
		return false
	}
	for _, p := range s.Paths.Paths() {
		if !p.Status.Terminal() {
			return false
		}
	}
	return true
}

// SimSnapshot is a lightweight state summary.
type SimSnapshot struct {
	Tick    int
	Units   []UnitSnapshot
	Routes  int
	Dropped uint64
}

// UnitSnapshot is a lightweight copy of a unit's state at a tick.
type UnitSnapshot struct {
	ID     pathing.EntityID
	Name   string
	Pos    pathing.Cell
	Height float64
	State  UnitState
	Route  string // status name, "" without a route
}

// Snapshot returns the current state of all units.
func (s *Sim) Snapshot() SimSnapshot {
	snap := SimSnapshot{Tick: s.Tick, Routes: s.Paths.PathCount(), Dropped: s.Paths.Events().Dropped()}
	for _, u := range s.World.Units() {
		snap.Units = append(snap.Units, UnitSnapshot{
			ID:     u.id,
			Name:   u.name,
			Pos:    u.pos,
			Height: u.height,
			State:  u.state,
			Route:  s.statusName(u.id),
		})
	}
	return snap
}
