package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arthurmco/familyline-testbed-sub000/internal/pathing"
)

func TestFlatTerrain(t *testing.T) {
	ft := FlatTerrain{W: 8, H: 4, Level: 2.5}
	w, h := ft.Size()
	assert.Equal(t, 8, w)
	assert.Equal(t, 4, h)
	assert.Equal(t, 2.5, ft.HeightAt(pathing.Cell{X: 3, Y: 3}))
}

func TestNoiseTerrain_RangeAndSeed(t *testing.T) {
	a := NewNoiseTerrain(40, 30, 7, 12, 0.08)
	b := NewNoiseTerrain(40, 30, 7, 12, 0.08)
	c := NewNoiseTerrain(40, 30, 8, 12, 0.08)

	w, h := a.Size()
	assert.Equal(t, 40, w)
	assert.Equal(t, 30, h)
	assert.Equal(t, 12.0, a.MaxHeight())

	differs := false
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := pathing.Cell{X: x, Y: y}
			v := a.HeightAt(p)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 12.0)
			assert.Equal(t, v, b.HeightAt(p), "same seed, same field")
			if v != c.HeightAt(p) {
				differs = true
			}
		}
	}
	assert.True(t, differs, "seed changes the field")
	assert.Zero(t, a.HeightAt(pathing.Cell{X: -1, Y: 0}))
	assert.Zero(t, a.HeightAt(pathing.Cell{X: 0, Y: 30}))
}
