package game

import (
	"fmt"
	"maps"
	"slices"

	"github.com/arthurmco/familyline-testbed-sub000/internal/pathing"
)

// UnitState is the lifecycle stage of a unit.
type UnitState int

const (
	UnitAlive UnitState = iota
	UnitDying
)

func (s UnitState) String() string {
	if s == UnitDying {
		return "dying"
	}
	return "alive"
}

// Unit is a movable entity with a rectangular footprint.
type Unit struct {
	id        pathing.EntityID
	name      string
	pos       pathing.Cell
	height    float64
	footprint pathing.Footprint
	state     UnitState
	static    bool // never ordered; scenery such as walls
}

func (u *Unit) ID() pathing.EntityID         { return u.id }
func (u *Unit) Name() string                 { return u.name }
func (u *Unit) Position() pathing.Cell       { return u.pos }
func (u *Unit) Height() float64              { return u.height }
func (u *Unit) Footprint() pathing.Footprint { return u.footprint }
func (u *Unit) State() UnitState             { return u.state }
func (u *Unit) Static() bool                 { return u.static }
func (u *Unit) Stamp() pathing.Stamp         { return pathing.Stamp{Pos: u.pos, Footprint: u.footprint} }
func (u *Unit) SetPosition(c pathing.Cell, h float64) {
	u.pos = c
	u.height = h
}

// World is the entity registry. Every lifecycle change is announced on the
// event bridge it was attached to.
type World struct {
	units  map[pathing.EntityID]*Unit
	events *pathing.EventBridge
	nextID pathing.EntityID
}

// NewWorld creates an empty world. Attach a bridge before spawning units
// that the coordinator should see.
func NewWorld() *World {
	return &World{units: make(map[pathing.EntityID]*Unit), nextID: 1}
}

// Attach sets the bridge lifecycle events are pushed to.
func (w *World) Attach(events *pathing.EventBridge) {
	w.events = events
}

func (w *World) push(ev pathing.Event) {
	if w.events != nil {
		w.events.Push(ev)
	}
}

// Spawn adds a unit under the next free id.
func (w *World) Spawn(name string, pos pathing.Cell, fp pathing.Footprint) *Unit {
	for w.units[w.nextID] != nil {
		w.nextID++
	}
	return w.SpawnWithID(w.nextID, name, pos, fp)
}

// SpawnWithID adds a unit with a fixed id, replacing any unit using it.
func (w *World) SpawnWithID(id pathing.EntityID, name string, pos pathing.Cell, fp pathing.Footprint) *Unit {
	if name == "" {
		name = fmt.Sprintf("U%d", id)
	}
	u := &Unit{id: id, name: name, pos: pos, footprint: fp}
	w.units[id] = u
	if id >= w.nextID {
		w.nextID = id + 1
	}
	w.push(pathing.Event{Kind: pathing.EventCreated, Entity: id, Position: pos, Footprint: fp})
	return u
}

// Teleport moves a unit outside the pathing system.
func (w *World) Teleport(id pathing.EntityID, pos pathing.Cell) bool {
	u, ok := w.units[id]
	if !ok {
		return false
	}
	u.pos = pos
	w.push(pathing.Event{Kind: pathing.EventMoved, Entity: id, Position: pos})
	return true
}

// Kill marks a unit as dying. It stays in the registry but no longer
// blocks others.
func (w *World) Kill(id pathing.EntityID) bool {
	u, ok := w.units[id]
	if !ok || u.state == UnitDying {
		return false
	}
	u.state = UnitDying
	w.push(pathing.Event{Kind: pathing.EventDying, Entity: id})
	return true
}

// Destroy removes a unit from the registry.
func (w *World) Destroy(id pathing.EntityID) bool {
	if _, ok := w.units[id]; !ok {
		return false
	}
	delete(w.units, id)
	w.push(pathing.Event{Kind: pathing.EventDestroyed, Entity: id})
	return true
}

// Entity implements pathing.Registry.
func (w *World) Entity(id pathing.EntityID) (pathing.Entity, bool) {
	u, ok := w.units[id]
	if !ok {
		return nil, false
	}
	return u, true
}

// Unit returns the unit with the given id.
func (w *World) Unit(id pathing.EntityID) (*Unit, bool) {
	u, ok := w.units[id]
	return u, ok
}

// Units returns every unit ordered by id.
func (w *World) Units() []*Unit {
	out := make([]*Unit, 0, len(w.units))
	for _, id := range slices.Sorted(maps.Keys(w.units)) {
		out = append(out, w.units[id])
	}
	return out
}

// UnitAt returns the live unit whose footprint covers c.
func (w *World) UnitAt(c pathing.Cell) (*Unit, bool) {
	probe := pathing.Stamp{Pos: c, Footprint: pathing.Footprint{W: 1, H: 1}}
	for _, u := range w.Units() {
		if u.state == UnitAlive && u.Stamp().Overlaps(probe) {
			return u, true
		}
	}
	return nil, false
}

// Len returns the number of units.
func (w *World) Len() int { return len(w.units) }
