package pathing

// EntityID identifies a game entity.
type EntityID uint64

// Terrain provides the grid dimensions and the height of each cell.
type Terrain interface {
	Size() (width, height int)
	HeightAt(c Cell) float64
}

// Entity is the part of a game entity the coordinator reads and moves.
type Entity interface {
	ID() EntityID
	Name() string
	Position() Cell
	SetPosition(c Cell, height float64)
	Footprint() Footprint
}

// Registry resolves entity ids. A destroyed entity is not found.
type Registry interface {
	Entity(id EntityID) (Entity, bool)
}

func inTerrain(t Terrain, c Cell) bool {
	w, h := t.Size()
	return c.X >= 0 && c.Y >= 0 && c.X < w && c.Y < h
}
