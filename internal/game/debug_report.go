package game

import (
	"fmt"
	"strings"

	"github.com/arthurmco/familyline-testbed-sub000/internal/pathing"
)

// traceMaxTicks bounds the per-unit route trace.
const traceMaxTicks = 600

// RouteSnapshot is one unit's route state after a tick.
type RouteSnapshot struct {
	Tick      int
	Pos       pathing.Cell
	Status    pathing.Status
	Remaining int
	Searches  int
	Recalcs   int
	Waits     int
}

// CompactString formats the snapshot on one line.
func (rs RouteSnapshot) CompactString(label string) string {
	return fmt.Sprintf("T=%d %s pos=%v status=%s left=%d searches=%d recalcs=%d waits=%d",
		rs.Tick, label, rs.Pos, rs.Status, rs.Remaining, rs.Searches, rs.Recalcs, rs.Waits)
}

// recordTraces appends a snapshot for every unit that has a route.
func (s *Sim) recordTraces() {
	if s.traces == nil {
		s.traces = make(map[pathing.EntityID][]RouteSnapshot)
	}
	for _, p := range s.Paths.Paths() {
		u, ok := s.World.Unit(p.Entity)
		if !ok {
			continue
		}
		tr := append(s.traces[p.Entity], RouteSnapshot{
			Tick:      s.Tick,
			Pos:       u.pos,
			Status:    p.Status,
			Remaining: len(p.Waypoints),
			Searches:  p.Searches,
			Recalcs:   p.Recalcs,
			Waits:     p.Waits,
		})
		if len(tr) > 2*traceMaxTicks {
			tr = append(tr[:0], tr[len(tr)-traceMaxTicks:]...)
		}
		s.traces[p.Entity] = tr
	}
}

// Trace returns the recorded snapshots of a unit within [fromTick, toTick].
func (s *Sim) Trace(id pathing.EntityID, fromTick, toTick int) []RouteSnapshot {
	var out []RouteSnapshot
	for _, rs := range s.traces[id] {
		if rs.Tick >= fromTick && rs.Tick <= toTick {
			out = append(out, rs)
		}
	}
	return out
}

// UnitDebugReport describes the last lastTicks of a unit's route: a summary,
// the notable events and the stages the route went through.
func (s *Sim) UnitDebugReport(id pathing.EntityID, lastTicks int) string {
	u, ok := s.World.Unit(id)
	if !ok {
		return ""
	}
	if lastTicks <= 0 {
		lastTicks = 120
	}
	toTick := s.Tick
	fromTick := max(toTick-lastTicks+1, 0)

	var b strings.Builder
	fmt.Fprintf(&b, "--- Pathing debug report ---\n")
	fmt.Fprintf(&b, "seed=%d tick_range=[%d..%d] ticks=%d\n", s.seed, fromTick, toTick, toTick-fromTick+1)
	fmt.Fprintf(&b, "selected=%s id=%d pos=%v footprint=%s state=%s\n", u.name, u.id, u.pos, u.footprint, u.state)
	if h, ok := s.Paths.EntityHandle(id); ok {
		if p, ok := s.Paths.Path(h); ok {
			fmt.Fprintf(&b, "route=#%d %s %v → %v left=%d last_search=%s grace=%d\n",
				p.Handle, p.Status, p.Origin, p.End, len(p.Waypoints), p.LastSearch, p.Grace)
		}
	} else {
		b.WriteString("route=<none>\n")
	}
	b.WriteByte('\n')

	snaps := s.Trace(id, fromTick, toTick)
	if len(snaps) == 0 {
		b.WriteString("(no snapshots recorded yet)\n")
		return b.String()
	}

	sum := summarizeTrace(snaps)
	fmt.Fprintf(&b, "summary: walking=%d waiting=%d terminal=%d movedTicks=%d maxWaitRun=%d searches=%d recalcs=%d waits=%d\n",
		sum.walkingTicks, sum.waitingTicks, sum.terminalTicks, sum.movedTicks, sum.maxWaitRun,
		sum.searches, sum.recalcs, sum.waits)

	if events := traceEvents(snaps); len(events) > 0 {
		b.WriteString("events:\n")
		for _, e := range events {
			b.WriteString("  - ")
			b.WriteString(e)
			b.WriteByte('\n')
		}
	}

	b.WriteString("stages:\n")
	for i, st := range buildStages(snaps) {
		tag := ""
		if st.waiting {
			tag = " [WAIT-RUN]"
		}
		fmt.Fprintf(&b, "  %02d) T=%d..%d (%dt)%s status:%s left:%d->%d moved:%.0f\n",
			i+1, st.startTick, st.endTick, st.count, tag,
			st.first.Status, st.first.Remaining, st.last.Remaining, st.movedDistance)
		if st.count <= 3 {
			for _, rs := range snaps[st.startIdx : st.endIdx+1] {
				b.WriteString("      ")
				b.WriteString(rs.CompactString(u.name))
				b.WriteByte('\n')
			}
		} else {
			b.WriteString("      first: ")
			b.WriteString(st.first.CompactString(u.name))
			b.WriteByte('\n')
			b.WriteString("      last:  ")
			b.WriteString(st.last.CompactString(u.name))
			b.WriteByte('\n')
		}
	}

	if entries := s.Log.FilterEntity(u.name); len(entries) > 0 {
		b.WriteString("log:\n")
		for _, e := range entries {
			if e.Tick >= fromTick && e.Tick <= toTick {
				b.WriteString("  ")
				b.WriteString(e.String())
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

type traceSummary struct {
	walkingTicks  int
	waitingTicks  int
	terminalTicks int
	movedTicks    int
	maxWaitRun    int
	searches      int
	recalcs       int
	waits         int
}

func summarizeTrace(snaps []RouteSnapshot) traceSummary {
	var res traceSummary
	waitRun := 0
	for i, rs := range snaps {
		moved := i > 0 && rs.Pos != snaps[i-1].Pos
		switch {
		case rs.Status.Terminal():
			res.terminalTicks++
			waitRun = 0
		case moved:
			res.walkingTicks++
			waitRun = 0
		default:
			res.waitingTicks++
			waitRun++
			res.maxWaitRun = max(res.maxWaitRun, waitRun)
		}
		if moved {
			res.movedTicks++
		}
	}
	first, last := snaps[0], snaps[len(snaps)-1]
	res.searches = last.Searches - first.Searches
	res.recalcs = last.Recalcs - first.Recalcs
	res.waits = last.Waits - first.Waits
	return res
}

type reportStage struct {
	startIdx      int
	endIdx        int
	startTick     int
	endTick       int
	count         int
	first         RouteSnapshot
	last          RouteSnapshot
	movedDistance float64
	waiting       bool
}

func buildStages(snaps []RouteSnapshot) []reportStage {
	if len(snaps) == 0 {
		return nil
	}
	keyOf := func(rs RouteSnapshot) string {
		return fmt.Sprintf("st=%d|route=%t", rs.Status, rs.Remaining > 0)
	}

	stages := make([]reportStage, 0, 8)
	start := 0
	curKey := keyOf(snaps[0])
	for i := 1; i < len(snaps); i++ {
		k := keyOf(snaps[i])
		if k == curKey {
			continue
		}
		stages = append(stages, makeStage(snaps, start, i-1))
		start = i
		curKey = k
	}
	return append(stages, makeStage(snaps, start, len(snaps)-1))
}

func makeStage(snaps []RouteSnapshot, start, end int) reportStage {
	first, last := snaps[start], snaps[end]
	waiting := !first.Status.Terminal()
	for i := start + 1; i <= end; i++ {
		if snaps[i].Pos != snaps[i-1].Pos {
			waiting = false
			break
		}
	}
	return reportStage{
		startIdx:      start,
		endIdx:        end,
		startTick:     first.Tick,
		endTick:       last.Tick,
		count:         end - start + 1,
		first:         first,
		last:          last,
		movedDistance: first.Pos.Dist(last.Pos),
		waiting:       waiting && end > start,
	}
}

func traceEvents(snaps []RouteSnapshot) []string {
	var out []string
	prev := snaps[0]
	for _, cur := range snaps[1:] {
		if cur.Status != prev.Status {
			out = append(out, fmt.Sprintf("T=%d status %s -> %s", cur.Tick, prev.Status, cur.Status))
		}
		if cur.Remaining > prev.Remaining {
			out = append(out, fmt.Sprintf("T=%d route %d -> %d steps", cur.Tick, prev.Remaining, cur.Remaining))
		}
		if cur.Waits != prev.Waits {
			out = append(out, fmt.Sprintf("T=%d blocked at %v", cur.Tick, cur.Pos))
		}
		prev = cur
	}
	if len(out) > 24 {
		out = append(out[:24], fmt.Sprintf("... (%d more events)", len(out)-24))
	}
	return out
}
