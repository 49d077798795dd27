package pathing

import "fmt"

// Handle identifies a route record. The zero Handle is never issued.
type Handle uint64

// Status is the lifecycle state of a route record.
type Status uint8

const (
	NotStarted Status = iota
	InProgress
	Repathing
	Completed
	Unreachable
	Stopped
	Invalid
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case InProgress:
		return "InProgress"
	case Repathing:
		return "Repathing"
	case Completed:
		return "Completed"
	case Unreachable:
		return "Unreachable"
	case Stopped:
		return "Stopped"
	case Invalid:
		return "Invalid"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Terminal reports whether the record only counts down its grace period.
func (s Status) Terminal() bool {
	return s >= Completed
}

// outcome is how the last search of a record ended.
type outcome uint8

const (
	outcomeNone outcome = iota
	outcomeFound
	outcomeExhausted
	outcomeBlocked
	outcomeGoalOccupied
)

func (o outcome) String() string {
	switch o {
	case outcomeFound:
		return "found"
	case outcomeExhausted:
		return "exhausted"
	case outcomeBlocked:
		return "blocked"
	case outcomeGoalOccupied:
		return "goal_occupied"
	}
	return "none"
}

func outcomeOf(res SearchResult) outcome {
	switch {
	case res.Exhausted:
		return outcomeExhausted
	case res.Reached:
		return outcomeFound
	case res.GoalOccupied:
		return outcomeGoalOccupied
	}
	return outcomeBlocked
}

// PathState tracks one entity's route across ticks.
type PathState struct {
	handle  Handle
	entity  EntityID
	label   string
	created int

	origin    Cell // where the first search started
	start     Cell // where the current search started
	end       Cell
	waypoints []Cell

	status  Status
	outcome outcome
	grace   int

	finder    Pathfinder
	resumable bool // finder holds an exhausted search over the live grid

	searches int
	repaths  int
	recalcs  int
	steps    int
	waits    int
}

// trimOrigin drops leading waypoints equal to pos.
func trimOrigin(wps []Cell, pos Cell) []Cell {
	for len(wps) > 0 && wps[0] == pos {
		wps = wps[1:]
	}
	return wps
}

// PathInfo is a read-only snapshot of a route record.
type PathInfo struct {
	Handle    Handle
	Entity    EntityID
	Name      string
	Status    Status
	Origin    Cell
	End       Cell
	Waypoints []Cell
	Grace     int
	Created   int

	// LastSearch is "found", "exhausted", "blocked", "goal_occupied" or
	// "none".
	LastSearch string
	Searches   int
	Repaths    int
	Recalcs    int
	Steps      int
	Waits      int
}

func (ps *PathState) info() PathInfo {
	return PathInfo{
		Handle:     ps.handle,
		Entity:     ps.entity,
		Name:       ps.label,
		Status:     ps.status,
		Origin:     ps.origin,
		End:        ps.end,
		Waypoints:  append([]Cell(nil), ps.waypoints...),
		Grace:      ps.grace,
		Created:    ps.created,
		LastSearch: ps.outcome.String(),
		Searches:   ps.searches,
		Repaths:    ps.repaths,
		Recalcs:    ps.recalcs,
		Steps:      ps.steps,
		Waits:      ps.waits,
	}
}
