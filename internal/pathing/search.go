package pathing

import (
	"container/heap"
	"math"
)

// heightCostFactor weighs height differences against distance when
// computing the cost of a step.
const heightCostFactor = 0.01

// SearchRequest describes one route query.
type SearchRequest struct {
	Start, End Cell
	Footprint  Footprint
	Grid       *ObstacleGrid
	Terrain    Terrain // optional; nil means flat

	// Self is the searching entity's own stamp in Grid, discounted from
	// every fit test. Nil when the entity is not stamped.
	Self *Stamp

	// Settled holds only the obstacles expected to stay put. When the
	// destination is covered in Grid but free in Settled, the search stops
	// next to it and reports GoalOccupied instead of a dead end. Optional.
	Settled *ObstacleGrid
}

// SearchResult is the outcome of a bounded search.
type SearchResult struct {
	// Waypoints are unit steps beginning with the search origin. When the
	// goal was not reached they lead to the closest point found so far.
	Waypoints []Cell
	// Exhausted is set when the iteration budget ran out first.
	Exhausted bool
	// HasOpenNodes is false only when every reachable node was explored
	// without reaching the goal.
	HasOpenNodes bool
	// Reached is set when the route ends on the destination.
	Reached bool
	// GoalOccupied is set when the destination was covered only by
	// entities that are not settled. Waypoints lead next to it.
	GoalOccupied bool
	Iterations   int
}

// Blocked reports whether the destination was proven unreachable.
func (r SearchResult) Blocked() bool {
	return !r.HasOpenNodes && !r.GoalOccupied
}

// --- A* pathfinding ---

type nodeState uint8

const (
	nodeUnseen nodeState = iota
	nodeOpen
	nodeClosed
)

type openItem struct {
	idx  int32
	g, f float64
	seq  uint64
}

type openList []openItem

func (ol openList) Len() int { return len(ol) }
func (ol openList) Less(i, j int) bool {
	if ol[i].f != ol[j].f {
		return ol[i].f < ol[j].f
	}
	return ol[i].seq < ol[j].seq
}
func (ol openList) Swap(i, j int) { ol[i], ol[j] = ol[j], ol[i] }
func (ol *openList) Push(x any)   { *ol = append(*ol, x.(openItem)) }
func (ol *openList) Pop() any {
	old := *ol
	it := old[len(old)-1]
	*ol = old[:len(old)-1]
	return it
}

var dirs = [8]Cell{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Pathfinder runs A* over the coarse lattice of an ObstacleGrid. Lattice
// node (cx, cy) stands on terrain cell (cx*ratio, cy*ratio); the start node
// stands on the exact origin.
//
// A Pathfinder keeps the state of its last search so an exhausted search can
// be resumed on a later tick. Its buffers are reused across searches.
type Pathfinder struct {
	req        SearchRequest
	ratio      int
	cols, rows int

	g       []float64
	parent  []int32
	state   []nodeState
	touched []int32
	open    openList
	seq     uint64

	startIdx   int32
	goal       int32
	best       int32
	bestH      float64
	endFits    bool
	endWait    bool // destination taken by something that moves
	iterations int
	exhausted  bool
	valid      bool
}

// Search starts a new query, discarding any previous state, and spends at
// most budget node expansions on it.
func (pf *Pathfinder) Search(req SearchRequest, budget int) SearchResult {
	if !assertf(req.Grid != nil, "search without an obstacle grid") {
		return SearchResult{}
	}
	pf.reset(req)
	w, h := req.Grid.Size()
	s := req.Start
	if s.X < 0 || s.Y < 0 || s.X >= w || s.Y >= h {
		return pf.result()
	}
	pf.valid = true
	pf.startIdx = int32((s.Y/pf.ratio)*pf.cols + s.X/pf.ratio)
	pf.endFits = req.Grid.fitsExcluding(req.End, req.Footprint, req.Self) || req.End == req.Start
	pf.endWait = !pf.endFits && req.Settled != nil && req.Settled.Fits(req.End, req.Footprint)
	pf.relax(pf.startIdx, -1, 0, pf.heuristic(s))
	return pf.run(budget)
}

// CanResume reports whether the last search ran out of budget and was
// issued from start towards end.
func (pf *Pathfinder) CanResume(start, end Cell) bool {
	return pf.valid && pf.exhausted && pf.req.Start == start && pf.req.End == end
}

// Resume continues an exhausted search with another budget. Calling it on
// a finished search returns that search's result again.
func (pf *Pathfinder) Resume(budget int) SearchResult {
	if !pf.valid || !pf.exhausted {
		return pf.result()
	}
	return pf.run(budget)
}

// Iterations returns the node expansions spent on the current search.
func (pf *Pathfinder) Iterations() int { return pf.iterations }

func (pf *Pathfinder) reset(req SearchRequest) {
	pf.req = req
	pf.ratio = req.Grid.Ratio()
	cols, rows := req.Grid.Dims()
	n := cols * rows
	if len(pf.g) != n {
		pf.g = make([]float64, n)
		pf.parent = make([]int32, n)
		pf.state = make([]nodeState, n)
		for i := range pf.g {
			pf.g[i] = math.Inf(1)
		}
		pf.touched = pf.touched[:0]
	}
	for _, i := range pf.touched {
		pf.g[i] = math.Inf(1)
		pf.parent[i] = -1
		pf.state[i] = nodeUnseen
	}
	pf.cols, pf.rows = cols, rows
	pf.touched = pf.touched[:0]
	pf.open = pf.open[:0]
	pf.seq = 0
	pf.goal = -1
	pf.best = -1
	pf.bestH = math.Inf(1)
	pf.endFits = false
	pf.endWait = false
	pf.iterations = 0
	pf.exhausted = false
	pf.valid = false
}

func (pf *Pathfinder) run(budget int) SearchResult {
	budget = max(budget, 1)
	spent := 0
	for len(pf.open) > 0 {
		it := heap.Pop(&pf.open).(openItem)
		if pf.state[it.idx] == nodeClosed || it.g > pf.g[it.idx] {
			continue
		}
		if spent == budget {
			heap.Push(&pf.open, it)
			pf.exhausted = true
			return pf.result()
		}
		spent++
		pf.iterations++
		pf.state[it.idx] = nodeClosed

		pos := pf.position(it.idx)
		if h := pf.heuristic(pos); h < pf.bestH {
			pf.bestH = h
			pf.best = it.idx
		}
		if pf.reached(pos) {
			pf.goal = it.idx
			break
		}
		if pf.endWait && pf.beside(pos) {
			pf.best = it.idx
			break
		}
		pf.expand(it.idx, pos)
	}
	pf.exhausted = false
	return pf.result()
}

func (pf *Pathfinder) expand(idx int32, pos Cell) {
	cx, cy := int(idx)%pf.cols, int(idx)/pf.cols
	for _, d := range dirs {
		nx, ny := cx+d.X, cy+d.Y
		if nx < 0 || ny < 0 || nx >= pf.cols || ny >= pf.rows {
			continue
		}
		nidx := int32(ny*pf.cols + nx)
		if pf.state[nidx] == nodeClosed {
			continue
		}
		npos := Cell{X: nx * pf.ratio, Y: ny * pf.ratio}
		if !pf.fits(npos) {
			continue
		}
		// No cutting corners past an occupied side node.
		if d.X != 0 && d.Y != 0 {
			if !pf.fits(Cell{X: nx * pf.ratio, Y: cy * pf.ratio}) ||
				!pf.fits(Cell{X: cx * pf.ratio, Y: ny * pf.ratio}) {
				continue
			}
		}
		ng := pf.g[idx] + pf.stepCost(pos, npos)
		if ng >= pf.g[nidx] {
			continue
		}
		pf.relax(nidx, idx, ng, pf.heuristic(npos))
	}
}

func (pf *Pathfinder) relax(idx, parent int32, g, h float64) {
	if pf.state[idx] == nodeUnseen {
		pf.touched = append(pf.touched, idx)
	}
	pf.g[idx] = g
	pf.parent[idx] = parent
	pf.state[idx] = nodeOpen
	pf.seq++
	heap.Push(&pf.open, openItem{idx: idx, g: g, f: g + h, seq: pf.seq})
}

func (pf *Pathfinder) position(idx int32) Cell {
	if idx == pf.startIdx {
		return pf.req.Start
	}
	return Cell{X: int(idx) % pf.cols * pf.ratio, Y: int(idx) / pf.cols * pf.ratio}
}

func (pf *Pathfinder) fits(c Cell) bool {
	return pf.req.Grid.fitsExcluding(c, pf.req.Footprint, pf.req.Self)
}

func (pf *Pathfinder) heuristic(c Cell) float64 {
	return c.Dist(pf.req.End)
}

func (pf *Pathfinder) stepCost(a, b Cell) float64 {
	cost := a.Dist(b)
	if pf.req.Terrain != nil {
		cost += heightCostFactor * math.Abs(pf.req.Terrain.HeightAt(b)-pf.req.Terrain.HeightAt(a))
	}
	return cost
}

func (pf *Pathfinder) reached(c Cell) bool {
	e := pf.req.End
	return pf.endFits && abs(e.X-c.X) < pf.ratio && abs(e.Y-c.Y) < pf.ratio
}

// beside reports whether c lies within one lattice hop of the cells that
// would count as reaching the destination.
func (pf *Pathfinder) beside(c Cell) bool {
	e, r := pf.req.End, 2*pf.ratio
	return abs(e.X-c.X) < r && abs(e.Y-c.Y) < r
}

func (pf *Pathfinder) result() SearchResult {
	res := SearchResult{
		Exhausted:    pf.exhausted,
		Reached:      pf.goal >= 0,
		HasOpenNodes: pf.goal >= 0 || len(pf.open) > 0,
		GoalOccupied: pf.goal < 0 && pf.endWait,
		Iterations:   pf.iterations,
	}
	target := pf.goal
	if target < 0 {
		target = pf.best
	}
	if target >= 0 {
		res.Waypoints = pf.trace(target, res.Reached)
	}
	return res
}

// trace walks parents back from idx and expands the lattice route into
// unit steps from the origin.
func (pf *Pathfinder) trace(idx int32, toEnd bool) []Cell {
	var chain []int32
	for n := idx; n >= 0; n = pf.parent[n] {
		chain = append(chain, n)
	}
	out := make([]Cell, 0, len(chain)*pf.ratio+1)
	out = append(out, pf.req.Start)
	last := pf.req.Start
	for i := len(chain) - 2; i >= 0; i-- {
		p := pf.position(chain[i])
		out = appendLine(out, last, p)
		last = p
	}
	if toEnd {
		out = appendLine(out, last, pf.req.End)
	}
	return out
}
