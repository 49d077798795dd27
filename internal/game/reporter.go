package game

import (
	"fmt"
	"strings"

	"github.com/arthurmco/familyline-testbed-sub000/internal/pathing"
)

// reportWindowTicks is the default sliding window for recent-activity reports (~10s at 60TPS).
const reportWindowTicks = 600

var allStatuses = []pathing.Status{
	pathing.NotStarted, pathing.InProgress, pathing.Repathing,
	pathing.Completed, pathing.Unreachable, pathing.Stopped, pathing.Invalid,
}

// --- Snapshot types ---

// RouteReport captures a single route's state.
type RouteReport struct {
	Handle    pathing.Handle
	Name      string
	Status    pathing.Status
	Pos       pathing.Cell
	End       pathing.Cell
	Remaining int
	Searches  int
	Repaths   int
	Recalcs   int
	Steps     int
	Waits     int
}

// PathReport is a full snapshot of the routes at one tick.
type PathReport struct {
	Tick int

	Statuses map[pathing.Status]int
	Routes   int
	Units    int

	// Walking routes have waypoints left; waiting ones are active but have none.
	Walking int
	Waiting int

	OccupiedCells int
	QueuedEvents  int
	DroppedEvents uint64
	Overlaps      int

	// Totals over live routes.
	Steps, Waits, Searches, Recalcs int

	// Routes detail (optional, for verbose mode).
	Details []RouteReport
}

// --- Reporter ---

// PathReporter collects periodic reports from a Sim and can produce
// summaries over sliding time windows.
type PathReporter struct {
	history     []PathReport
	windowTicks int
	verbose     bool
}

// NewPathReporter creates a reporter with the given window size.
func NewPathReporter(windowTicks int, verbose bool) *PathReporter {
	if windowTicks <= 0 {
		windowTicks = reportWindowTicks
	}
	return &PathReporter{
		windowTicks: windowTicks,
		verbose:     verbose,
	}
}

// Collect gathers a snapshot from the current simulation state.
// Call this periodically (e.g. every 60 ticks / 1s).
func (r *PathReporter) Collect(s *Sim) {
	report := PathReport{
		Tick:          s.Tick,
		Statuses:      make(map[pathing.Status]int),
		Units:         s.World.Len(),
		OccupiedCells: s.Paths.Grid().Occupied(),
		QueuedEvents:  s.Paths.Events().Len(),
		DroppedEvents: s.Paths.Events().Dropped(),
		Overlaps:      s.Overlaps(),
	}
	for _, p := range s.Paths.Paths() {
		report.Routes++
		report.Statuses[p.Status]++
		active := p.Status == pathing.InProgress || p.Status == pathing.Repathing
		switch {
		case active && len(p.Waypoints) > 0:
			report.Walking++
		case active:
			report.Waiting++
		}
		report.Steps += p.Steps
		report.Waits += p.Waits
		report.Searches += p.Searches
		report.Recalcs += p.Recalcs

		if r.verbose {
			rr := RouteReport{
				Handle:    p.Handle,
				Name:      p.Name,
				Status:    p.Status,
				End:       p.End,
				Remaining: len(p.Waypoints),
				Searches:  p.Searches,
				Repaths:   p.Repaths,
				Recalcs:   p.Recalcs,
				Steps:     p.Steps,
				Waits:     p.Waits,
			}
			if u, ok := s.World.Unit(p.Entity); ok {
				rr.Pos = u.pos
			}
			report.Details = append(report.Details, rr)
		}
	}
	r.history = append(r.history, report)
}

// Latest returns the most recent report, or nil.
func (r *PathReporter) Latest() *PathReport {
	if len(r.history) == 0 {
		return nil
	}
	return &r.history[len(r.history)-1]
}

// WindowSummary returns an aggregated summary over the recent time window.
func (r *PathReporter) WindowSummary() *WindowReport {
	if len(r.history) == 0 {
		return nil
	}

	latestTick := r.history[len(r.history)-1].Tick
	cutoff := latestTick - r.windowTicks
	var window []PathReport
	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].Tick < cutoff {
			break
		}
		window = append(window, r.history[i])
	}

	n := float64(len(window))
	wr := &WindowReport{
		FromTick:    window[len(window)-1].Tick,
		ToTick:      window[0].Tick,
		SampleCount: len(window),
		StatusPct:   make(map[pathing.Status]float64),
	}

	statusTotal := make(map[pathing.Status]float64)
	var total float64
	for _, rpt := range window {
		for st, c := range rpt.Statuses {
			statusTotal[st] += float64(c)
			total += float64(c)
		}
		wr.AvgRoutes += float64(rpt.Routes)
		wr.AvgWalking += float64(rpt.Walking)
		wr.AvgWaiting += float64(rpt.Waiting)
		wr.AvgOccupied += float64(rpt.OccupiedCells)
		wr.MaxQueued = max(wr.MaxQueued, rpt.QueuedEvents)
	}
	if total > 0 {
		for st, c := range statusTotal {
			wr.StatusPct[st] = c / total * 100
		}
	}
	wr.AvgRoutes /= n
	wr.AvgWalking /= n
	wr.AvgWaiting /= n
	wr.AvgOccupied /= n

	first, last := window[len(window)-1], window[0]
	wr.DroppedEvents = last.DroppedEvents - first.DroppedEvents
	wr.Overlaps = last.Overlaps - first.Overlaps
	return wr
}

// WindowReport is an aggregated summary over a time window.
type WindowReport struct {
	FromTick, ToTick int
	SampleCount      int

	// Status distribution as percentages (0-100) of route samples.
	StatusPct map[pathing.Status]float64

	AvgRoutes, AvgWalking, AvgWaiting float64
	AvgOccupied                       float64
	MaxQueued                         int

	// Increase over the window.
	DroppedEvents uint64
	Overlaps      int
}

// Format returns a human-readable multi-line string of the window summary.
func (wr *WindowReport) Format() string {
	if wr == nil {
		return "No data collected yet.\n"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Path Report (T=%d..%d, %d samples) ===\n",
		wr.FromTick, wr.ToTick, wr.SampleCount)

	sb.WriteString("\n--- Status Distribution ---\n")
	for _, st := range allStatuses {
		if pct, ok := wr.StatusPct[st]; ok && pct > 0.5 {
			fmt.Fprintf(&sb, "  %-12s %5.1f%%\n", st, pct)
		}
	}

	sb.WriteString("\n--- Activity ---\n")
	fmt.Fprintf(&sb, "  routes=%.1f  walking=%.1f  waiting=%.1f\n", wr.AvgRoutes, wr.AvgWalking, wr.AvgWaiting)
	fmt.Fprintf(&sb, "  occupied coarse cells=%.1f\n", wr.AvgOccupied)

	sb.WriteString("\n--- Alerts ---\n")
	fmt.Fprintf(&sb, "  max queued events=%d  dropped=%d  overlaps=%d\n", wr.MaxQueued, wr.DroppedEvents, wr.Overlaps)

	return sb.String()
}

// FormatLatest returns a concise snapshot of the most recent collected report.
func (r *PathReporter) FormatLatest() string {
	rpt := r.Latest()
	if rpt == nil {
		return "No data.\n"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- Snapshot T=%d ---\n", rpt.Tick)
	fmt.Fprintf(&sb, "units=%d routes=%d walking=%d waiting=%d occupied=%d\n",
		rpt.Units, rpt.Routes, rpt.Walking, rpt.Waiting, rpt.OccupiedCells)
	fmt.Fprintf(&sb, "steps=%d waits=%d searches=%d recalcs=%d dropped=%d overlaps=%d\n",
		rpt.Steps, rpt.Waits, rpt.Searches, rpt.Recalcs, rpt.DroppedEvents, rpt.Overlaps)
	sb.WriteString("statuses: ")
	for _, st := range allStatuses {
		if c := rpt.Statuses[st]; c > 0 {
			fmt.Fprintf(&sb, "%s=%d ", st, c)
		}
	}
	sb.WriteByte('\n')
	for _, d := range rpt.Details {
		fmt.Fprintf(&sb, "  #%d %-6s %-11s %v → %v left=%d steps=%d waits=%d searches=%d recalcs=%d\n",
			d.Handle, d.Name, d.Status, d.Pos, d.End, d.Remaining, d.Steps, d.Waits, d.Searches, d.Recalcs)
	}
	return sb.String()
}

// History returns all collected reports.
func (r *PathReporter) History() []PathReport {
	return r.history
}
