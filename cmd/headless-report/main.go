package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/arthurmco/familyline-testbed-sub000/internal/game"
	"github.com/arthurmco/familyline-testbed-sub000/internal/pathing"
)

type runStats struct {
	runIndex int
	seed     int64
	scenario string
	ticks    int

	firstSearchTick   int
	firstCompleteTick int
	settleTick        int

	outcomes map[string]int // terminal status name → routes

	routes   int
	steps    int
	waits    int
	searches int
	repaths  int
	recalcs  int

	warnings int
	overlaps int
	dropped  uint64
	affected map[string]struct{} // units that logged a warning

	windowSummary *game.WindowReport
}

func main() {
	var runs int
	var ticks int
	var seedBase int64
	var seedStep int64
	var scenario string
	var file string
	var configPath string
	var dumpLog bool

	flag.IntVar(&runs, "runs", 5, "number of headless simulation runs")
	flag.IntVar(&ticks, "ticks", 0, "ticks per run (0 = the scenario's own)")
	flag.Int64Var(&seedBase, "seed-base", 42, "base terrain seed for run 1")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between runs")
	flag.StringVar(&scenario, "scenario", "crossing", "built-in scenario name, or \"all\"")
	flag.StringVar(&file, "file", "", "scenario YAML file (overrides -scenario)")
	flag.StringVar(&configPath, "config", "", "pathing config YAML applied on top of the scenario")
	flag.BoolVar(&dumpLog, "log", false, "print the path log of every run")
	flag.Parse()

	if runs <= 0 {
		fmt.Println("error: -runs must be > 0")
		os.Exit(2)
	}
	if ticks < 0 {
		fmt.Println("error: -ticks must be >= 0")
		os.Exit(2)
	}

	scenarios, err := loadScenarios(scenario, file)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(2)
	}
	if configPath != "" {
		cfg, err := pathing.LoadConfig(configPath)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			os.Exit(2)
		}
		for i := range scenarios {
			scenarios[i].Config = cfg
		}
	}

	fmt.Printf("=== Headless Path Report ===\n")
	fmt.Printf("scenarios=%s runs=%d seed_base=%d seed_step=%d\n\n", scenarioNames(scenarios), runs, seedBase, seedStep)

	failed := false
	for _, sc := range scenarios {
		n := ticks
		if n == 0 {
			n = sc.Ticks
		}
		all := make([]runStats, 0, runs)
		for i := 0; i < runs; i++ {
			seed := seedBase + int64(i)*seedStep
			stats, s, err := runScenario(sc, i+1, seed, n)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				os.Exit(1)
			}
			all = append(all, stats)
			printRun(stats)
			if dumpLog {
				fmt.Print(s.Log.Format())
				fmt.Println()
			}
		}
		printAggregate(sc.Name, all)
		for _, rs := range all {
			if verdict, _ := classifyRun(rs); verdict == "overlap" {
				failed = true
			}
		}
	}
	if failed {
		os.Exit(1)
	}
}

func loadScenarios(name, file string) ([]game.Scenario, error) {
	if file != "" {
		sc, err := game.LoadScenario(file)
		if err != nil {
			return nil, err
		}
		return []game.Scenario{sc}, nil
	}
	names := []string{name}
	if name == "all" {
		names = game.BuiltinScenarioNames()
	}
	out := make([]game.Scenario, 0, len(names))
	for _, n := range names {
		sc, err := game.BuiltinScenario(n)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

func runScenario(sc game.Scenario, runIndex int, seed int64, ticks int) (runStats, *game.Sim, error) {
	s, err := sc.NewSim(game.WithSeed(seed))
	if err != nil {
		return runStats{}, nil, err
	}
	reporter := game.NewPathReporter(0, false)

	rs := runStats{
		runIndex:   runIndex,
		seed:       seed,
		scenario:   sc.Name,
		ticks:      ticks,
		settleTick: -1,
	}
	// Records are dropped after their grace period, so keep the last
	// snapshot of every route ever seen.
	lastSeen := map[pathing.Handle]pathing.PathInfo{}
	for i := 0; i < ticks; i++ {
		s.Step()
		for _, p := range s.Paths.Paths() {
			lastSeen[p.Handle] = p
		}
		if rs.settleTick < 0 && s.Paths.PathCount() > 0 && s.Settled() {
			rs.settleTick = s.Tick
		}
		if s.Tick%60 == 0 {
			reporter.Collect(s)
		}
	}
	reporter.Collect(s)

	entries := s.Log.Entries()
	rs.firstSearchTick = firstTick(entries, "path", "start", "")
	rs.firstCompleteTick = firstTick(entries, "path", "status", "→ Completed")
	rs.outcomes = outcomeCounts(entries)
	rs.affected = map[string]struct{}{}
	for _, e := range s.Log.FilterLevel(pathing.LevelWarning) {
		rs.warnings++
		if e.Entity != "--" {
			rs.affected[e.Entity] = struct{}{}
		}
	}
	for _, p := range lastSeen {
		rs.routes++
		rs.steps += p.Steps
		rs.waits += p.Waits
		rs.searches += p.Searches
		rs.repaths += p.Repaths
		rs.recalcs += p.Recalcs
	}
	rs.overlaps = s.Overlaps()
	rs.dropped = s.Paths.Events().Dropped()
	rs.windowSummary = reporter.WindowSummary()
	return rs, s, nil
}

func firstTick(entries []pathing.LogEntry, category, key, contains string) int {
	for _, e := range entries {
		if e.Category != category || e.Key != key {
			continue
		}
		if contains == "" || strings.Contains(e.Value, contains) {
			return e.Tick
		}
	}
	return -1
}

// outcomeCounts tallies every transition into a terminal status.
func outcomeCounts(entries []pathing.LogEntry) map[string]int {
	out := map[string]int{}
	for _, e := range entries {
		if e.Category != "path" || e.Key != "status" {
			continue
		}
		_, to, ok := strings.Cut(e.Value, "→ ")
		if !ok {
			continue
		}
		switch to {
		case "Completed", "Unreachable", "Stopped", "Invalid":
			out[to]++
		}
	}
	return out
}

// classifyRun returns "overlap" when units ever shared a cell, "unsettled"
// when routes were still being worked on at the end of the run, and "clean"
// otherwise.
func classifyRun(rs runStats) (string, string) {
	if rs.overlaps > 0 {
		return "overlap", fmt.Sprintf("overlaps=%d", rs.overlaps)
	}
	if rs.settleTick < 0 && rs.routes > 0 {
		return "unsettled", fmt.Sprintf("routes=%d still active after %d ticks", rs.routes, rs.ticks)
	}
	var reasons []string
	if rs.warnings > 0 {
		reasons = append(reasons, fmt.Sprintf("warnings=%d", rs.warnings))
	}
	if rs.dropped > 0 {
		reasons = append(reasons, fmt.Sprintf("dropped_events=%d", rs.dropped))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "ok")
	}
	return "clean", strings.Join(reasons, " ")
}

func printRun(rs runStats) {
	verdict, reason := classifyRun(rs)
	fmt.Printf("--- %s run %d (seed=%d, %d ticks) ---\n", rs.scenario, rs.runIndex, rs.seed, rs.ticks)
	fmt.Printf("phase_markers: first_search=%d first_complete=%d settled=%d\n",
		rs.firstSearchTick, rs.firstCompleteTick, rs.settleTick)
	fmt.Printf("outcomes: %s\n", formatOutcomes(rs.outcomes))
	fmt.Printf("route_totals: routes=%d steps=%d waits=%d searches=%d repaths=%d recalcs=%d\n",
		rs.routes, rs.steps, rs.waits, rs.searches, rs.repaths, rs.recalcs)
	fmt.Printf("alerts: warnings=%d overlaps=%d dropped_events=%d affected=%s\n",
		rs.warnings, rs.overlaps, rs.dropped, joinSet(rs.affected))
	if rs.windowSummary != nil {
		fmt.Printf("window_samples=%d window_tick_range=%d..%d avg_walking=%.1f avg_waiting=%.1f avg_occupied=%.1f\n",
			rs.windowSummary.SampleCount, rs.windowSummary.FromTick, rs.windowSummary.ToTick,
			rs.windowSummary.AvgWalking, rs.windowSummary.AvgWaiting, rs.windowSummary.AvgOccupied)
	}
	fmt.Printf("verdict: %s (%s)\n\n", verdict, reason)
}

func printAggregate(name string, all []runStats) {
	totalSteps := 0
	totalWaits := 0
	totalSearches := 0
	totalRecalcs := 0
	totalWarnings := 0
	totalOverlaps := 0
	outcomes := map[string]int{}
	verdicts := map[string]int{}
	completeTicks := make([]int, 0, len(all))
	settleTicks := make([]int, 0, len(all))
	affectedGlobal := map[string]struct{}{}

	for _, rs := range all {
		totalSteps += rs.steps
		totalWaits += rs.waits
		totalSearches += rs.searches
		totalRecalcs += rs.recalcs
		totalWarnings += rs.warnings
		totalOverlaps += rs.overlaps
		for k, v := range rs.outcomes {
			outcomes[k] += v
		}
		verdict, _ := classifyRun(rs)
		verdicts[verdict]++
		if rs.firstCompleteTick >= 0 {
			completeTicks = append(completeTicks, rs.firstCompleteTick)
		}
		if rs.settleTick >= 0 {
			settleTicks = append(settleTicks, rs.settleTick)
		}
		for label := range rs.affected {
			affectedGlobal[label] = struct{}{}
		}
	}

	fmt.Printf("=== Aggregate: %s ===\n", name)
	fmt.Printf("runs=%d verdicts: %s\n", len(all), formatOutcomes(verdicts))
	fmt.Printf("avg_per_run: steps=%.1f waits=%.1f searches=%.1f recalcs=%.1f warnings=%.1f overlaps=%.1f\n",
		avg(totalSteps, len(all)), avg(totalWaits, len(all)), avg(totalSearches, len(all)),
		avg(totalRecalcs, len(all)), avg(totalWarnings, len(all)), avg(totalOverlaps, len(all)))
	fmt.Printf("outcomes_total: %s\n", formatOutcomes(outcomes))
	fmt.Printf("phase_marker_avg_ticks: first_complete=%s settled=%s\n",
		avgTickString(completeTicks), avgTickString(settleTicks))
	fmt.Printf("unique_affected_labels=%d [%s]\n\n", len(affectedGlobal), joinSet(affectedGlobal))
}

func avg(sum int, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func avgTickString(vals []int) string {
	if len(vals) == 0 {
		return "n/a"
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(len(vals)))
}

func formatOutcomes(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}

func scenarioNames(scs []game.Scenario) string {
	names := make([]string, 0, len(scs))
	for _, sc := range scs {
		names = append(names, sc.Name)
	}
	return strings.Join(names, ",")
}

func joinSet(s map[string]struct{}) string {
	if len(s) == 0 {
		return "none"
	}
	labels := make([]string, 0, len(s))
	for k := range s {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return strings.Join(labels, ",")
}
