package scene

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
)

// DefaultGridCellSize is the edge length of a grid index cell in world units.
const DefaultGridCellSize float32 = 16

// maxCellsPerObject bounds how many cells one renderer is inserted into. Larger objects go
// to the oversized list that every query scans.
const maxCellsPerObject = 64

type cellKey [3]int32

type gridIndex struct {
	mu        sync.RWMutex
	cellSize  float32
	cells     map[cellKey][]Renderer
	oversized []Renderer
	entries   map[Renderer][]cellKey
}

// GridIndex is a uniform grid SpatialIndex. Renderers are bucketed by the cells their
// bounds cover at insertion time; call Update after a renderer moves.
type GridIndex interface {
	SpatialIndex

	// Insert adds a renderer. Inserting a renderer twice updates its cells.
	Insert(r Renderer)

	// Update re-buckets a renderer after its bounds changed.
	Update(r Renderer)

	// Remove removes a renderer.
	Remove(r Renderer)

	// Len returns the number of indexed renderers.
	Len() int
}

var _ GridIndex = &gridIndex{}

// NewGridIndex creates an empty grid index.
//
// Parameters:
//   - cellSize: the cell edge length; values <= 0 use DefaultGridCellSize
//
// Returns:
//   - GridIndex: the new index
func NewGridIndex(cellSize float32) GridIndex {
	if cellSize <= 0 {
		cellSize = DefaultGridCellSize
	}
	return &gridIndex{
		cellSize: cellSize,
		cells:    make(map[cellKey][]Renderer),
		entries:  make(map[Renderer][]cellKey),
	}
}

func (g *gridIndex) cellRange(b common.AABB) (lo, hi cellKey) {
	for i := range 3 {
		lo[i] = int32(math.Floor(float64(b.Min[i] / g.cellSize)))
		hi[i] = int32(math.Floor(float64(b.Max[i] / g.cellSize)))
	}
	return lo, hi
}

func cellCount(lo, hi cellKey) int {
	n := 1
	for i := range 3 {
		n *= int(hi[i]-lo[i]) + 1
		if n > math.MaxInt32 {
			return math.MaxInt32
		}
	}
	return n
}

func (g *gridIndex) Insert(r Renderer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeLocked(r)

	b := r.Bounds()
	if b.IsEmpty() {
		g.oversized = append(g.oversized, r)
		g.entries[r] = nil
		return
	}
	lo, hi := g.cellRange(b)
	if cellCount(lo, hi) > maxCellsPerObject {
		g.oversized = append(g.oversized, r)
		g.entries[r] = nil
		return
	}
	keys := make([]cellKey, 0, cellCount(lo, hi))
	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for z := lo[2]; z <= hi[2]; z++ {
				k := cellKey{x, y, z}
				g.cells[k] = append(g.cells[k], r)
				keys = append(keys, k)
			}
		}
	}
	g.entries[r] = keys
}

func (g *gridIndex) Update(r Renderer) {
	g.Insert(r)
}

func (g *gridIndex) Remove(r Renderer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeLocked(r)
}

func (g *gridIndex) removeLocked(r Renderer) {
	keys, ok := g.entries[r]
	if !ok {
		return
	}
	delete(g.entries, r)
	if keys == nil {
		g.oversized = removeRenderer(g.oversized, r)
		return
	}
	for _, k := range keys {
		if rest := removeRenderer(g.cells[k], r); len(rest) > 0 {
			g.cells[k] = rest
		} else {
			delete(g.cells, k)
		}
	}
}

func removeRenderer(list []Renderer, r Renderer) []Renderer {
	for i, o := range list {
		if o == r {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func (g *gridIndex) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

func (g *gridIndex) GetObjectsInBounds(b common.AABB) []Renderer {
	if b.IsEmpty() {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[Renderer]struct{})
	var out []Renderer
	visit := func(list []Renderer) {
		for _, r := range list {
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			rb := r.Bounds()
			if rb.IsEmpty() || rb.Intersects(b) {
				out = append(out, r)
			}
		}
	}

	visit(g.oversized)
	lo, hi := g.cellRange(b)
	if cellCount(lo, hi) > len(g.cells) {
		// query covers more cells than are occupied
		for k, list := range g.cells {
			if k[0] >= lo[0] && k[0] <= hi[0] && k[1] >= lo[1] && k[1] <= hi[1] && k[2] >= lo[2] && k[2] <= hi[2] {
				visit(list)
			}
		}
		return out
	}
	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for z := lo[2]; z <= hi[2]; z++ {
				visit(g.cells[cellKey{x, y, z}])
			}
		}
	}
	return out
}
