package pathing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFootprint_Bounds(t *testing.T) {
	tests := []struct {
		name                   string
		fp                     Footprint
		pos                    Cell
		minX, minY, maxX, maxY int
	}{
		{"unit", Footprint{1, 1}, Cell{5, 5}, 5, 5, 5, 5},
		{"even", Footprint{2, 2}, Cell{10, 10}, 9, 9, 10, 10},
		{"odd", Footprint{3, 3}, Cell{10, 10}, 9, 9, 11, 11},
		{"zero size is one cell", Footprint{0, -2}, Cell{4, 4}, 4, 4, 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minX, minY, maxX, maxY := tt.fp.Bounds(tt.pos)
			assert.Equal(t, []int{tt.minX, tt.minY, tt.maxX, tt.maxY}, []int{minX, minY, maxX, maxY})
		})
	}
}

func TestStamp_Overlaps(t *testing.T) {
	a := Stamp{Pos: Cell{10, 10}, Footprint: Footprint{2, 2}} // 9..10
	assert.False(t, a.Overlaps(Stamp{Pos: Cell{12, 10}, Footprint: Footprint{2, 2}}), "adjacent footprints share no cell")
	assert.True(t, a.Overlaps(Stamp{Pos: Cell{11, 11}, Footprint: Footprint{2, 2}}))
	assert.True(t, a.Overlaps(a))
}

func TestAreaStamp_CoversRectangle(t *testing.T) {
	s := AreaStamp(14, 0, 2, 7)
	minX, minY, maxX, maxY := s.Footprint.Bounds(s.Pos)
	assert.Equal(t, []int{14, 0, 15, 6}, []int{minX, minY, maxX, maxY})
}

func TestObstacleGrid_Dims(t *testing.T) {
	og := NewObstacleGrid(101, 99, 2)
	cols, rows := og.Dims()
	assert.Equal(t, 51, cols)
	assert.Equal(t, 50, rows)
	assert.Equal(t, 2, og.Ratio())
}

func TestObstacleGrid_StampCountsEachCellOnce(t *testing.T) {
	og := NewObstacleGrid(20, 20, 2)
	// 3x3 at (5,5) covers 4..6 → coarse 2..3
	og.Stamp(Cell{5, 5}, Footprint{3, 3}, true)
	for cy := 0; cy < 10; cy++ {
		for cx := 0; cx < 10; cx++ {
			want := 0
			if cx >= 2 && cx <= 3 && cy >= 2 && cy <= 3 {
				want = 1
			}
			require.Equal(t, want, og.Count(cx, cy), "coarse (%d,%d)", cx, cy)
		}
	}
	assert.Equal(t, 4, og.Occupied())
}

func TestObstacleGrid_OverlappingFootprintsAreIndependent(t *testing.T) {
	og := NewObstacleGrid(20, 20, 1)
	og.Stamp(Cell{5, 5}, Footprint{2, 2}, true)
	og.Stamp(Cell{5, 5}, Footprint{2, 2}, true)
	assert.Equal(t, 2, og.Count(5, 5))

	og.Stamp(Cell{5, 5}, Footprint{2, 2}, false)
	assert.True(t, og.Blocked(Cell{5, 5}), "one footprint still covers the cell")

	og.Stamp(Cell{5, 5}, Footprint{2, 2}, false)
	assert.False(t, og.Blocked(Cell{5, 5}))
}

func TestObstacleGrid_NeverNegative(t *testing.T) {
	og := NewObstacleGrid(10, 10, 1)
	og.Stamp(Cell{3, 3}, Footprint{1, 1}, false)
	assert.Equal(t, 0, og.Count(3, 3))
	assert.Equal(t, 1, og.Underflows())

	og.Stamp(Cell{3, 3}, Footprint{1, 1}, true)
	assert.Equal(t, 1, og.Count(3, 3))
}

func TestObstacleGrid_ClipsToBounds(t *testing.T) {
	og := NewObstacleGrid(10, 10, 1)
	og.Stamp(Cell{0, 0}, Footprint{5, 5}, true) // -2..2
	assert.Equal(t, 9, og.Occupied())
	og.Stamp(Cell{50, 50}, Footprint{2, 2}, true)
	assert.Equal(t, 9, og.Occupied(), "fully outside stamp is ignored")
}

func TestObstacleGrid_Fits(t *testing.T) {
	og := NewObstacleGrid(20, 20, 2)
	og.Stamp(Cell{10, 10}, Footprint{2, 2}, true) // coarse 4..5

	assert.False(t, og.Fits(Cell{10, 10}, Footprint{2, 2}))
	assert.False(t, og.Fits(Cell{12, 10}, Footprint{2, 2}), "covers coarse 5")
	assert.True(t, og.Fits(Cell{14, 10}, Footprint{2, 2}))
	assert.False(t, og.Fits(Cell{0, 5}, Footprint{2, 2}), "footprint leaves the terrain")
	assert.False(t, og.Fits(Cell{19, 5}, Footprint{3, 3}), "footprint leaves the terrain")

	self := Stamp{Pos: Cell{10, 10}, Footprint: Footprint{2, 2}}
	assert.True(t, og.fitsExcluding(Cell{10, 10}, Footprint{2, 2}, &self), "own footprint is ignored")
}

func TestObstacleGrid_RebuildKeepsStaticLayer(t *testing.T) {
	og := NewObstacleGrid(20, 20, 1)
	og.AddStatic(AreaStamp(0, 0, 2, 2))
	og.Stamp(Cell{10, 10}, Footprint{1, 1}, true)

	og.Rebuild(map[EntityID]Stamp{7: {Pos: Cell{15, 15}, Footprint: Footprint{1, 1}}})
	assert.True(t, og.Blocked(Cell{1, 1}))
	assert.False(t, og.Blocked(Cell{10, 10}), "stale stamps are cleared")
	assert.True(t, og.Blocked(Cell{15, 15}))
	assert.True(t, og.Blocked(Cell{-1, 0}), "outside the terrain is blocked")
}

func TestObstacleGrid_CopyInto(t *testing.T) {
	og := NewObstacleGrid(4, 4, 1)
	og.Stamp(Cell{1, 1}, Footprint{1, 1}, true)
	dst := og.CopyInto(nil)
	require.Len(t, dst, 16)
	assert.Equal(t, uint16(1), dst[5])
	dst[5] = 9
	assert.Equal(t, 1, og.Count(1, 1), "copy is detached")
}
