// Package pathing computes and maintains walkable routes for many moving
// entities over a shared terrain grid.
//
// A Coordinator owns the obstacle grid and every in-flight route. It is
// driven by the game loop through Update, once per tick, and spreads A*
// work across ticks under a fixed iteration budget.
package pathing

import (
	"fmt"
	"math"

	"github.com/jakecoffman/cp"
)

// Cell is a position on the terrain grid, in terrain cells.
type Cell struct {
	X, Y int
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Dist returns the straight-line distance between two cells.
func (c Cell) Dist(o Cell) float64 {
	return math.Hypot(float64(o.X-c.X), float64(o.Y-c.Y))
}

// Footprint is the size of an entity in terrain cells.
type Footprint struct {
	W, H int
}

func (f Footprint) normalized() Footprint {
	if f.W < 1 {
		f.W = 1
	}
	if f.H < 1 {
		f.H = 1
	}
	return f
}

// Bounds returns the inclusive cell rectangle covered by the footprint when
// its owner stands on p. The rectangle is exactly W×H cells.
func (f Footprint) Bounds(p Cell) (minX, minY, maxX, maxY int) {
	f = f.normalized()
	minX = p.X - f.W/2
	minY = p.Y - f.H/2
	return minX, minY, minX + f.W - 1, minY + f.H - 1
}

// BB returns the covered rectangle as a bounding box in cell indices.
// Two boxes intersect exactly when the footprints share a cell.
func (f Footprint) BB(p Cell) cp.BB {
	minX, minY, maxX, maxY := f.Bounds(p)
	return cp.BB{L: float64(minX), B: float64(minY), R: float64(maxX), T: float64(maxY)}
}

func (f Footprint) String() string {
	return fmt.Sprintf("%dx%d", f.W, f.H)
}

// Stamp is a footprint placed at a position.
type Stamp struct {
	Pos       Cell
	Footprint Footprint
}

// Overlaps reports whether two stamps cover at least one common cell.
func (s Stamp) Overlaps(o Stamp) bool {
	return s.Footprint.BB(s.Pos).Intersects(o.Footprint.BB(o.Pos))
}

// AreaStamp converts a top-left anchored rectangle into a stamp that covers
// exactly the cells [x, x+w) × [y, y+h).
func AreaStamp(x, y, w, h int) Stamp {
	fp := Footprint{W: w, H: h}.normalized()
	return Stamp{Pos: Cell{X: x + fp.W/2, Y: y + fp.H/2}, Footprint: fp}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// appendLine appends the unit steps leading from a to b, excluding a and
// including b. Diagonal steps come first, then the straight remainder.
func appendLine(dst []Cell, a, b Cell) []Cell {
	for a != b {
		a.X += sign(b.X - a.X)
		a.Y += sign(b.Y - a.Y)
		dst = append(dst, a)
	}
	return dst
}
