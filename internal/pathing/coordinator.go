package pathing

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrUnknownEntity is returned when the registry does not know an id.
	ErrUnknownEntity = errors.New("pathing: unknown entity")
	// ErrOutOfBounds is returned for destinations outside the terrain.
	ErrOutOfBounds = errors.New("pathing: destination out of bounds")
)

// Coordinator owns the obstacle grid and every route record, and advances
// them once per tick. It is not safe for concurrent use; only its event
// bridge accepts events from other goroutines.
type Coordinator struct {
	cfg      Config
	terrain  Terrain
	registry Registry
	events   *EventBridge
	log      *PathLog

	grid    *ObstacleGrid
	scratch *ObstacleGrid // collision pass view
	settled *ObstacleGrid // grid without the entities that have a live route
	cells   *ObstacleGrid // terrain-resolution occupancy for the step guard
	mapped  map[EntityID]Stamp

	paths    map[Handle]*PathState
	byEntity map[EntityID]Handle
	next     Handle
	expired  []Handle
	tick     int
}

// NewCoordinator creates a coordinator over terrain, resolving entities
// through registry. log may be nil.
func NewCoordinator(terrain Terrain, registry Registry, cfg Config, log *PathLog) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w, h := terrain.Size()
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("pathing: terrain size %dx%d", w, h)
	}
	log.SetVerbose(cfg.Verbose || log.Verbose())
	return &Coordinator{
		cfg:      cfg,
		terrain:  terrain,
		registry: registry,
		events:   NewEventBridge(cfg.EventQueueSize),
		log:      log,
		grid:     NewObstacleGrid(w, h, cfg.Ratio),
		settled:  NewObstacleGrid(w, h, cfg.Ratio),
		cells:    NewObstacleGrid(w, h, 1),
		mapped:   make(map[EntityID]Stamp),
		paths:    make(map[Handle]*PathState),
		byEntity: make(map[EntityID]Handle),
	}, nil
}

// Events returns the bridge entity producers push lifecycle events into.
func (c *Coordinator) Events() *EventBridge { return c.events }

// Grid returns the obstacle grid as of the last Update.
func (c *Coordinator) Grid() *ObstacleGrid { return c.grid }

// Log returns the coordinator log, possibly nil.
func (c *Coordinator) Log() *PathLog { return c.log }

// Config returns the active settings.
func (c *Coordinator) Config() Config { return c.cfg }

// IterationsPerTick returns the full search budget.
func (c *Coordinator) IterationsPerTick() int { return c.cfg.IterationsPerTick }

// SetIterationsPerTick changes the full search budget. Values below 1 are
// raised to 1.
func (c *Coordinator) SetIterationsPerTick(n int) {
	c.cfg.IterationsPerTick = max(n, 1)
}

// ApplyConfig switches to new settings at runtime. The grid ratio and the
// event queue size are fixed at construction; changes to them are logged
// and ignored.
func (c *Coordinator) ApplyConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Ratio != c.cfg.Ratio {
		c.log.Warnf(c.tick, "--", "config", "ratio_ignored", "ratio %d kept, %d needs a restart", c.cfg.Ratio, cfg.Ratio)
		cfg.Ratio = c.cfg.Ratio
	}
	if cfg.EventQueueSize != c.cfg.EventQueueSize {
		c.log.Warnf(c.tick, "--", "config", "queue_ignored", "event_queue_size %d kept", c.cfg.EventQueueSize)
		cfg.EventQueueSize = c.cfg.EventQueueSize
	}
	c.cfg = cfg
	c.log.SetVerbose(cfg.Verbose)
	c.log.Infof(c.tick, "--", "config", "applied", "iterations=%d grace=%d verbose=%t",
		cfg.IterationsPerTick, cfg.GraceTicks, cfg.Verbose)
	return nil
}

// BlockArea marks the terrain rectangle [x, x+w) × [y, y+h) permanently
// unwalkable.
func (c *Coordinator) BlockArea(x, y, w, h int) {
	c.grid.AddStatic(AreaStamp(x, y, w, h))
	c.log.Infof(c.tick, "--", "grid", "block_area", "%dx%d at (%d,%d)", w, h, x, y)
}

// StartPathing requests a route for entity id to dest. If the entity already
// has a record, it is redirected in place: the same handle is returned and
// the record moves to Repathing.
func (c *Coordinator) StartPathing(id EntityID, dest Cell) (Handle, error) {
	e, ok := c.registry.Entity(id)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	if !inTerrain(c.terrain, dest) {
		return 0, fmt.Errorf("%w: %v", ErrOutOfBounds, dest)
	}
	if h, ok := c.byEntity[id]; ok {
		ps := c.paths[h]
		ps.end = dest
		ps.waypoints = ps.waypoints[:0]
		ps.outcome = outcomeNone
		ps.grace = c.cfg.GraceTicks
		c.setStatus(ps, Repathing)
		c.log.Infof(c.tick, ps.label, "path", "redirect", "handle %d to %v", h, dest)
		return h, nil
	}
	c.next++
	pos := e.Position()
	ps := &PathState{
		handle:  c.next,
		entity:  id,
		label:   e.Name(),
		created: c.tick,
		origin:  pos,
		start:   pos,
		end:     dest,
		status:  NotStarted,
		grace:   c.cfg.GraceTicks,
	}
	c.paths[ps.handle] = ps
	c.byEntity[id] = ps.handle
	c.log.Infof(c.tick, ps.label, "path", "start", "handle %d %v → %v", ps.handle, pos, dest)
	return ps.handle, nil
}

// PathStatus returns the status of a record, or false for unknown handles.
func (c *Coordinator) PathStatus(h Handle) (Status, bool) {
	ps, ok := c.paths[h]
	if !ok {
		return NotStarted, false
	}
	return ps.status, true
}

// EntityPathStatus returns the status of the record owned by an entity.
func (c *Coordinator) EntityPathStatus(id EntityID) (Status, bool) {
	h, ok := c.byEntity[id]
	if !ok {
		return NotStarted, false
	}
	return c.PathStatus(h)
}

// EntityHandle returns the handle of the record owned by an entity.
func (c *Coordinator) EntityHandle(id EntityID) (Handle, bool) {
	h, ok := c.byEntity[id]
	return h, ok
}

// RemovePathing drops a record immediately. The entity stays where it is.
func (c *Coordinator) RemovePathing(h Handle) bool {
	ps, ok := c.paths[h]
	if !ok {
		return false
	}
	c.log.Infof(c.tick, ps.label, "path", "removed", "handle %d (%s)", h, ps.status)
	c.remove(h)
	return true
}

// PathCount returns the number of live records.
func (c *Coordinator) PathCount() int { return len(c.paths) }

// Paths returns a snapshot of every record, ordered by handle.
func (c *Coordinator) Paths() []PathInfo {
	out := make([]PathInfo, 0, len(c.paths))
	for _, h := range c.handles() {
		out = append(out, c.paths[h].info())
	}
	return out
}

// Path returns a snapshot of one record.
func (c *Coordinator) Path(h Handle) (PathInfo, bool) {
	ps, ok := c.paths[h]
	if !ok {
		return PathInfo{}, false
	}
	return ps.info(), true
}

// StatusCounts returns how many records are in each status.
func (c *Coordinator) StatusCounts() map[Status]int {
	out := make(map[Status]int)
	for _, ps := range c.paths {
		out[ps.status]++
	}
	return out
}

// Mapped returns the cached stamp of an entity announced through events.
func (c *Coordinator) Mapped(id EntityID) (Stamp, bool) {
	s, ok := c.mapped[id]
	return s, ok
}

// Update advances the coordinator by one tick.
func (c *Coordinator) Update(tick int) {
	c.tick = tick
	c.events.Drain(c.handleEvent)
	c.grid.Rebuild(c.mapped)
	c.rebuildViews()
	c.avoidCollisions()
	for _, h := range c.handles() {
		c.step(c.paths[h])
	}
	for _, h := range c.expired {
		c.remove(h)
	}
	c.expired = c.expired[:0]
}

// rebuildViews derives the per-tick views of the rebuilt grid. An entity
// whose record turns terminal during the tick stays out of the settled view
// until the next rebuild.
func (c *Coordinator) rebuildViews() {
	c.cells.Rebuild(c.mapped)
	c.settled.counts = c.grid.CopyInto(c.settled.counts)
	for _, ps := range c.paths {
		if ps.status.Terminal() {
			continue
		}
		if st, ok := c.mapped[ps.entity]; ok {
			c.settled.Stamp(st.Pos, st.Footprint, false)
		}
	}
}

func (c *Coordinator) handles() []Handle {
	return slices.Sorted(maps.Keys(c.paths))
}

func (c *Coordinator) remove(h Handle) {
	ps, ok := c.paths[h]
	if !ok {
		return
	}
	delete(c.paths, h)
	if c.byEntity[ps.entity] == h {
		delete(c.byEntity, ps.entity)
	}
}

// --- events ---

func (c *Coordinator) handleEvent(ev Event) {
	label := fmt.Sprintf("#%d", ev.Entity)
	switch ev.Kind {
	case EventCreated:
		st := Stamp{Pos: ev.Position, Footprint: ev.Footprint}
		if ev.Footprint == (Footprint{}) {
			e, ok := c.registry.Entity(ev.Entity)
			if !ok {
				c.log.Warnf(c.tick, label, "event", "created", "entity not in registry")
				return
			}
			st = Stamp{Pos: e.Position(), Footprint: e.Footprint()}
		}
		c.mapped[ev.Entity] = st
		c.log.Debugf(c.tick, label, "event", "created", "%s at %v", st.Footprint, st.Pos)
	case EventMoved:
		st, ok := c.mapped[ev.Entity]
		if !ok {
			return
		}
		st.Pos = ev.Position
		if ev.Footprint != (Footprint{}) {
			st.Footprint = ev.Footprint
		}
		c.mapped[ev.Entity] = st
		c.log.Debugf(c.tick, label, "event", "moved", "to %v", st.Pos)
		// A route planned from the old position no longer starts at the entity.
		if h, ok := c.byEntity[ev.Entity]; ok {
			if ps := c.paths[h]; ps.status == InProgress {
				ps.waypoints = ps.waypoints[:0]
				ps.resumable = false
				c.setStatus(ps, Repathing)
			}
		}
	case EventDying:
		delete(c.mapped, ev.Entity)
		c.log.Debugf(c.tick, label, "event", "dying", "unmapped")
		// A suspended search still discounts the old stamp.
		if h, ok := c.byEntity[ev.Entity]; ok {
			c.paths[h].resumable = false
		}
	case EventDestroyed:
		delete(c.mapped, ev.Entity)
		c.log.Debugf(c.tick, label, "event", "destroyed", "unmapped")
		if h, ok := c.byEntity[ev.Entity]; ok {
			if ps := c.paths[h]; !ps.status.Terminal() {
				c.setStatus(ps, Stopped)
			}
		}
	}
}

// --- state machine ---

func (c *Coordinator) setStatus(ps *PathState, st Status) {
	if ps.status == st {
		return
	}
	from := ps.status
	ps.status = st
	level := LevelDebug
	switch {
	case st == Invalid:
		level = LevelWarning
	case st.Terminal():
		level = LevelInfo
	}
	if st.Terminal() {
		ps.grace = c.cfg.GraceTicks
	}
	c.log.Add(c.tick, level, ps.label, "path", "status", fmt.Sprintf("%s → %s", from, st))
}

func (c *Coordinator) step(ps *PathState) {
	switch ps.status {
	case NotStarted:
		c.startSearch(ps)
	case InProgress:
		c.advance(ps)
	case Repathing:
		c.repath(ps)
	default:
		ps.grace--
		if ps.grace < 0 {
			c.expired = append(c.expired, ps.handle)
		}
	}
}

func (c *Coordinator) entity(ps *PathState) (Entity, bool) {
	e, ok := c.registry.Entity(ps.entity)
	if !ok {
		c.log.Warnf(c.tick, ps.label, "path", "lost_entity", "handle %d", ps.handle)
		c.setStatus(ps, Invalid)
	}
	return e, ok
}

func (c *Coordinator) request(ps *PathState, e Entity, pos Cell) SearchRequest {
	req := SearchRequest{
		Start:     pos,
		End:       ps.end,
		Footprint: e.Footprint(),
		Grid:      c.grid,
		Terrain:   c.terrain,
		Settled:   c.settled,
	}
	if st, ok := c.mapped[ps.entity]; ok {
		req.Self = &st
	}
	return req
}

func (c *Coordinator) halfBudget() int {
	return max(c.cfg.IterationsPerTick/2, 1)
}

func (c *Coordinator) startSearch(ps *PathState) {
	e, ok := c.entity(ps)
	if !ok {
		return
	}
	pos := e.Position()
	ps.start = pos
	res := ps.finder.Search(c.request(ps, e, pos), c.cfg.IterationsPerTick)
	ps.resumable = res.Exhausted
	c.applySearch(ps, pos, res, true)
}

func (c *Coordinator) repath(ps *PathState) {
	e, ok := c.entity(ps)
	if !ok {
		return
	}
	pos := e.Position()
	var res SearchResult
	if ps.resumable && ps.finder.CanResume(pos, ps.end) {
		res = ps.finder.Resume(c.halfBudget())
	} else {
		ps.start = pos
		res = ps.finder.Search(c.request(ps, e, pos), c.halfBudget())
	}
	ps.resumable = res.Exhausted
	ps.repaths++
	c.applySearch(ps, pos, res, false)
}

// applySearch loads a search result into the record. Every outcome loads
// its route: an exhausted search leads towards the closest point found so
// far, and the search goes on from wherever that route ends. settle lets a
// result that leaves nothing to walk finish the record right away.
func (c *Coordinator) applySearch(ps *PathState, pos Cell, res SearchResult, settle bool) {
	ps.searches++
	ps.outcome = outcomeOf(res)
	ps.waypoints = append(ps.waypoints[:0], trimOrigin(res.Waypoints, pos)...)
	switch ps.outcome {
	case outcomeExhausted:
		c.log.Debugf(c.tick, ps.label, "search", "exhausted", "%d iterations, closest %v",
			res.Iterations, last(res.Waypoints))
	case outcomeGoalOccupied:
		c.log.Debugf(c.tick, ps.label, "search", "goal_occupied", "%v taken, waiting at %v",
			ps.end, last(res.Waypoints))
	default:
		c.log.Debugf(c.tick, ps.label, "search", ps.outcome.String(), "%d iterations, %d steps",
			res.Iterations, len(ps.waypoints))
	}
	if len(ps.waypoints) == 0 {
		switch {
		case ps.outcome == outcomeGoalOccupied:
			c.setStatus(ps, Repathing)
			return
		case settle && ps.outcome == outcomeFound:
			c.setStatus(ps, Completed)
			return
		case settle && ps.outcome == outcomeBlocked:
			c.setStatus(ps, Unreachable)
			return
		}
	}
	c.setStatus(ps, InProgress)
}

func (c *Coordinator) advance(ps *PathState) {
	e, ok := c.entity(ps)
	if !ok {
		return
	}
	if len(ps.waypoints) == 0 {
		if ps.outcome == outcomeExhausted {
			c.repath(ps)
			return
		}
		c.finish(ps, e)
		return
	}
	next := ps.waypoints[0]
	if c.occupied(ps.entity, next, e.Footprint()) {
		ps.waits++
		c.log.Debugf(c.tick, ps.label, "move", "wait", "%v occupied", next)
		c.setStatus(ps, Repathing)
		return
	}
	c.move(e, next)
	ps.steps++
	ps.waypoints = ps.waypoints[1:]
	if len(ps.waypoints) == 0 {
		c.finish(ps, e)
	}
}

// finish resolves a record that has no waypoints left.
func (c *Coordinator) finish(ps *PathState, e Entity) {
	switch ps.outcome {
	case outcomeExhausted:
		// The search goes on next tick from here.
	case outcomeGoalOccupied:
		c.setStatus(ps, Repathing)
	case outcomeBlocked:
		c.setStatus(ps, Unreachable)
	case outcomeFound:
		if pos := e.Position(); pos != ps.end {
			c.log.Warnf(c.tick, ps.label, "path", "no_waypoints", "at %v, expected %v", pos, ps.end)
			c.setStatus(ps, Invalid)
			return
		}
		c.setStatus(ps, Completed)
	default:
		c.log.Warnf(c.tick, ps.label, "path", "no_search", "in progress without a search")
		c.setStatus(ps, Invalid)
	}
}

// occupied reports whether a footprint at target would share a cell with
// any other mapped entity.
func (c *Coordinator) occupied(self EntityID, target Cell, fp Footprint) bool {
	st, ok := c.mapped[self]
	if !ok {
		return !c.cells.Fits(target, fp)
	}
	return !c.cells.fitsExcluding(target, fp, &st)
}

func (c *Coordinator) move(e Entity, to Cell) {
	from := e.Position()
	e.SetPosition(to, c.terrain.HeightAt(to))
	if st, ok := c.mapped[e.ID()]; ok {
		c.grid.Stamp(st.Pos, st.Footprint, false)
		c.cells.Stamp(st.Pos, st.Footprint, false)
		st.Pos = to
		c.grid.Stamp(st.Pos, st.Footprint, true)
		c.cells.Stamp(st.Pos, st.Footprint, true)
		c.mapped[e.ID()] = st
	}
	c.log.Debugf(c.tick, e.Name(), "move", "step", "%v → %v", from, to)
}

// avoidCollisions recomputes every moving route when more than one entity
// is on the move. Routes are planned in handle order: each one avoids the
// current footprints of the entities already planned and of everything
// standing still, and ignores moving entities with higher handles, which
// plan around it in turn.
func (c *Coordinator) avoidCollisions() {
	var moving []Handle
	for _, h := range c.handles() {
		ps := c.paths[h]
		if ps.status == InProgress && len(ps.waypoints) > 0 {
			moving = append(moving, h)
		}
	}
	if len(moving) < 2 {
		return
	}
	if c.scratch == nil {
		w, h := c.grid.Size()
		c.scratch = NewObstacleGrid(w, h, c.grid.Ratio())
	}
	c.scratch.counts = c.grid.CopyInto(c.scratch.counts)
	for _, h := range moving {
		if st, ok := c.mapped[c.paths[h].entity]; ok {
			c.scratch.Stamp(st.Pos, st.Footprint, false)
		}
	}
	for _, h := range moving {
		ps := c.paths[h]
		e, ok := c.registry.Entity(ps.entity)
		if !ok {
			continue
		}
		pos := e.Position()
		req := c.request(ps, e, pos)
		req.Grid, req.Self = c.scratch, nil
		ps.start = pos
		res := ps.finder.Search(req, c.halfBudget())
		ps.resumable = false
		ps.recalcs++
		switch out := outcomeOf(res); out {
		case outcomeFound:
			ps.outcome = out
			ps.waypoints = append(ps.waypoints[:0], trimOrigin(res.Waypoints, pos)...)
		case outcomeBlocked, outcomeGoalOccupied:
			ps.outcome = out
			ps.waypoints = append(ps.waypoints[:0], trimOrigin(res.Waypoints, pos)...)
			c.log.Debugf(c.tick, ps.label, "search", out.String(), "recalc stops at %v", last(res.Waypoints))
		}
		if st, ok := c.mapped[ps.entity]; ok {
			c.scratch.Stamp(st.Pos, st.Footprint, true)
		}
	}
	c.log.Debugf(c.tick, "--", "path", "recalc", "%d moving routes", len(moving))
}

func last(wps []Cell) Cell {
	if len(wps) == 0 {
		return Cell{}
	}
	return wps[len(wps)-1]
}
