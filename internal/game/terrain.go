package game

import (
	"github.com/ojrac/opensimplex-go"

	"github.com/arthurmco/familyline-testbed-sub000/internal/pathing"
)

// FlatTerrain has the same height everywhere.
type FlatTerrain struct {
	W, H  int
	Level float64
}

func (t FlatTerrain) Size() (int, int)              { return t.W, t.H }
func (t FlatTerrain) HeightAt(pathing.Cell) float64 { return t.Level }

// NoiseTerrain is a rolling height field sampled once from simplex noise.
type NoiseTerrain struct {
	w, h    int
	heights []float64
	max     float64
}

// NewNoiseTerrain samples a w×h height field in [0, amplitude]. scale is the
// noise frequency per cell; smaller values give broader hills.
func NewNoiseTerrain(w, h int, seed int64, amplitude, scale float64) *NoiseTerrain {
	noise := opensimplex.NewNormalized(seed)
	t := &NoiseTerrain{w: w, h: h, heights: make([]float64, w*h), max: amplitude}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := noise.Eval2(float64(x)*scale, float64(y)*scale) // [0, 1]
			t.heights[y*w+x] = min(max(v, 0), 1) * amplitude
		}
	}
	return t
}

func (t *NoiseTerrain) Size() (int, int) { return t.w, t.h }

// HeightAt returns 0 outside the field.
func (t *NoiseTerrain) HeightAt(c pathing.Cell) float64 {
	if c.X < 0 || c.Y < 0 || c.X >= t.w || c.Y >= t.h {
		return 0
	}
	return t.heights[c.Y*t.w+c.X]
}

// MaxHeight returns the amplitude the field was generated with.
func (t *NoiseTerrain) MaxHeight() float64 { return t.max }
