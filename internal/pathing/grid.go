package pathing

import "math"

// ObstacleGrid counts, per coarse cell, how many entity footprints touch it.
// A coarse cell covers ratio×ratio terrain cells; a count of zero means free.
type ObstacleGrid struct {
	width, height int // terrain cells
	ratio         int
	cols, rows    int
	counts        []uint16

	static     []Stamp
	underflows int
}

// NewObstacleGrid creates an empty grid for a width×height terrain.
// A ratio below 1 is treated as 1.
func NewObstacleGrid(width, height, ratio int) *ObstacleGrid {
	if ratio < 1 {
		ratio = 1
	}
	cols := (width + ratio - 1) / ratio
	rows := (height + ratio - 1) / ratio
	return &ObstacleGrid{
		width:  width,
		height: height,
		ratio:  ratio,
		cols:   cols,
		rows:   rows,
		counts: make([]uint16, cols*rows),
	}
}

// Ratio returns how many terrain cells a coarse cell spans per axis.
func (og *ObstacleGrid) Ratio() int { return og.ratio }

// Size returns the terrain dimensions the grid was built for.
func (og *ObstacleGrid) Size() (int, int) { return og.width, og.height }

// Dims returns the coarse grid dimensions.
func (og *ObstacleGrid) Dims() (int, int) { return og.cols, og.rows }

// Underflows returns how many decrements hit an already free cell.
func (og *ObstacleGrid) Underflows() int { return og.underflows }

// Reset clears every counter, including the static layer stamps.
func (og *ObstacleGrid) Reset() {
	clear(og.counts)
}

// AddStatic registers a permanent obstacle. It is stamped immediately and
// again on every Rebuild.
func (og *ObstacleGrid) AddStatic(s Stamp) {
	og.static = append(og.static, s)
	og.Stamp(s.Pos, s.Footprint, true)
}

// Static returns the permanent obstacles.
func (og *ObstacleGrid) Static() []Stamp { return og.static }

// Rebuild clears the grid and stamps the static layer plus every mapped
// entity.
func (og *ObstacleGrid) Rebuild(mapped map[EntityID]Stamp) {
	og.Reset()
	for _, s := range og.static {
		og.Stamp(s.Pos, s.Footprint, true)
	}
	for _, s := range mapped {
		og.Stamp(s.Pos, s.Footprint, true)
	}
}

// coarseBounds returns the coarse rectangle touched by a footprint at pos,
// clipped to the grid. ok is false when nothing of it lies inside.
func (og *ObstacleGrid) coarseBounds(pos Cell, fp Footprint) (x0, y0, x1, y1 int, ok bool) {
	minX, minY, maxX, maxY := fp.Bounds(pos)
	minX = max(minX, 0)
	minY = max(minY, 0)
	maxX = min(maxX, og.width-1)
	maxY = min(maxY, og.height-1)
	if minX > maxX || minY > maxY {
		return 0, 0, 0, 0, false
	}
	return minX / og.ratio, minY / og.ratio, maxX / og.ratio, maxY / og.ratio, true
}

// Stamp adds (or removes) one footprint at pos. Every coarse cell the
// footprint touches changes by exactly one. Removing from a free cell leaves
// it at zero and is recorded as an underflow.
func (og *ObstacleGrid) Stamp(pos Cell, fp Footprint, add bool) {
	x0, y0, x1, y1, ok := og.coarseBounds(pos, fp)
	if !ok {
		return
	}
	for cy := y0; cy <= y1; cy++ {
		row := cy * og.cols
		for cx := x0; cx <= x1; cx++ {
			i := row + cx
			switch {
			case add:
				if og.counts[i] < math.MaxUint16 {
					og.counts[i]++
				}
			case og.counts[i] == 0:
				og.underflows++
				assertf(false, "obstacle counter underflow at coarse (%d,%d)", cx, cy)
			default:
				og.counts[i]--
			}
		}
	}
}

// Count returns the counter of a coarse cell, or 0 outside the grid.
func (og *ObstacleGrid) Count(cx, cy int) int {
	if cx < 0 || cy < 0 || cx >= og.cols || cy >= og.rows {
		return 0
	}
	return int(og.counts[cy*og.cols+cx])
}

// Blocked reports whether the coarse cell containing the terrain cell c is
// occupied. Cells outside the terrain are blocked.
func (og *ObstacleGrid) Blocked(c Cell) bool {
	if c.X < 0 || c.Y < 0 || c.X >= og.width || c.Y >= og.height {
		return true
	}
	return og.counts[(c.Y/og.ratio)*og.cols+c.X/og.ratio] > 0
}

// Fits reports whether a footprint at pos lies inside the terrain and
// touches only free coarse cells.
func (og *ObstacleGrid) Fits(pos Cell, fp Footprint) bool {
	return og.fitsExcluding(pos, fp, nil)
}

// fitsExcluding is Fits with one stamp discounted from the counters, which
// lets an entity plan around others while ignoring its own footprint.
func (og *ObstacleGrid) fitsExcluding(pos Cell, fp Footprint, self *Stamp) bool {
	minX, minY, maxX, maxY := fp.Bounds(pos)
	if minX < 0 || minY < 0 || maxX >= og.width || maxY >= og.height {
		return false
	}
	sx0, sy0, sx1, sy1 := 0, 0, -1, -1
	if self != nil {
		var ok bool
		if sx0, sy0, sx1, sy1, ok = og.coarseBounds(self.Pos, self.Footprint); !ok {
			sx0, sy0, sx1, sy1 = 0, 0, -1, -1
		}
	}
	for cy := minY / og.ratio; cy <= maxY/og.ratio; cy++ {
		row := cy * og.cols
		for cx := minX / og.ratio; cx <= maxX/og.ratio; cx++ {
			n := int(og.counts[row+cx])
			if cx >= sx0 && cx <= sx1 && cy >= sy0 && cy <= sy1 {
				n--
			}
			if n > 0 {
				return false
			}
		}
	}
	return true
}

// CopyInto copies the counters into dst, growing it if needed, and returns it.
func (og *ObstacleGrid) CopyInto(dst []uint16) []uint16 {
	if cap(dst) < len(og.counts) {
		dst = make([]uint16, len(og.counts))
	}
	dst = dst[:len(og.counts)]
	copy(dst, og.counts)
	return dst
}

// Occupied returns the number of coarse cells with a non-zero counter.
func (og *ObstacleGrid) Occupied() int {
	n := 0
	for _, c := range og.counts {
		if c > 0 {
			n++
		}
	}
	return n
}
