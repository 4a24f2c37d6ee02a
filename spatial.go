package main

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultOverlapHeadroom is the per-object multiplier used to size the cell
// map backing store. An object's bounding sphere typically touches a handful
// of cells; 8 is the empirical average for cell sizes near 2x object radius.
const DefaultOverlapHeadroom = 8

// Grid errors. All failures are surfaced synchronously to the caller; nothing
// is retried internally.
var (
	ErrInvalidConfig    = errors.New("invalid grid configuration")
	ErrInvalidObject    = errors.New("invalid object")
	ErrInvalidQuery     = errors.New("invalid query")
	ErrCapacityExceeded = errors.New("cell map capacity exceeded")
	ErrGridClosed       = errors.New("grid is closed")
)

// SpatialObject is one sphere-bounded object indexed by the grid. ID is the
// caller-supplied identity and the only stable handle across update cycles.
type SpatialObject struct {
	ID     string
	Pos    r3.Vec
	Radius float64
}

// gridEntry is a full object record plus the cycle-local dense index used for
// O(1) query dedup. The local index is reassigned on every Update and is
// meaningless outside the cycle that produced it.
type gridEntry struct {
	obj   SpatialObject
	local int32
}

// GridConfig describes one fixed world volume to partition.
type GridConfig struct {
	WorldMin        r3.Vec
	WorldSize       r3.Vec
	CellSize        float64
	MaxObjects      int
	OverlapHeadroom int // 0 = DefaultOverlapHeadroom
}

// Validate checks the configuration at construction time.
func (c GridConfig) Validate() error {
	if c.CellSize <= 0 {
		return fmt.Errorf("%w: cell size must be positive, got %g", ErrInvalidConfig, c.CellSize)
	}
	if c.WorldSize.X <= 0 || c.WorldSize.Y <= 0 || c.WorldSize.Z <= 0 {
		return fmt.Errorf("%w: world size must be positive on every axis, got %+v", ErrInvalidConfig, c.WorldSize)
	}
	if c.MaxObjects <= 0 {
		return fmt.Errorf("%w: max objects must be positive, got %d", ErrInvalidConfig, c.MaxObjects)
	}
	if c.OverlapHeadroom < 0 {
		return fmt.Errorf("%w: overlap headroom must be non-negative, got %d", ErrInvalidConfig, c.OverlapHeadroom)
	}
	return nil
}

// SpatialGrid is a fixed-size 3D grid for broad-phase proximity queries.
// Update rebuilds the index from a full object snapshot; QueryRadius walks
// candidate cells and filters by true sphere-sphere overlap.
//
// Update and QueryRadius are both synchronous. Queries may run concurrently
// with each other, but the caller must not query while an Update is in
// flight on the same instance — the grid does not lock between the two
// phases.
type SpatialGrid struct {
	cfg              GridConfig
	dimX, dimY, dimZ int
	capacity         int64

	cells *cellMap // replaced wholesale on every successful Update
	live  int      // snapshot size of the last successful Update

	closeMu sync.Mutex
	closed  bool
}

// NewSpatialGrid creates a grid covering cfg.WorldMin..WorldMin+WorldSize.
// Dimensions are derived as ceil(worldSize/cellSize) per axis and are fixed
// for the life of the grid.
func NewSpatialGrid(cfg GridConfig) (*SpatialGrid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.OverlapHeadroom == 0 {
		cfg.OverlapHeadroom = DefaultOverlapHeadroom
	}

	g := &SpatialGrid{
		cfg:      cfg,
		dimX:     cellsPerAxis(cfg.WorldSize.X, cfg.CellSize),
		dimY:     cellsPerAxis(cfg.WorldSize.Y, cfg.CellSize),
		dimZ:     cellsPerAxis(cfg.WorldSize.Z, cfg.CellSize),
		capacity: int64(cfg.MaxObjects) * int64(cfg.OverlapHeadroom),
	}
	g.cells = newCellMap(g.cellCount(), g.capacity)
	return g, nil
}

func cellsPerAxis(size, cellSize float64) int {
	n := int(math.Ceil(size / cellSize))
	if n < 1 {
		n = 1
	}
	return n
}

// Config returns the configuration the grid was built with.
func (g *SpatialGrid) Config() GridConfig { return g.cfg }

// Dims returns the grid dimensions in cells.
func (g *SpatialGrid) Dims() (x, y, z int) { return g.dimX, g.dimY, g.dimZ }

func (g *SpatialGrid) cellCount() int { return g.dimX * g.dimY * g.dimZ }

// cellCoord maps a world position to an unclamped integer cell coordinate.
// The division truncates toward zero; out-of-world positions are handled by
// clampAxis, never by rejection.
func (g *SpatialGrid) cellCoord(p r3.Vec) (cx, cy, cz int) {
	cx = int((p.X - g.cfg.WorldMin.X) / g.cfg.CellSize)
	cy = int((p.Y - g.cfg.WorldMin.Y) / g.cfg.CellSize)
	cz = int((p.Z - g.cfg.WorldMin.Z) / g.cfg.CellSize)
	return
}

func clampAxis(v, dim int) int {
	if v < 0 {
		return 0
	}
	if v >= dim {
		return dim - 1
	}
	return v
}

// flatten converts a clamped cell coordinate to a flat cell id.
func (g *SpatialGrid) flatten(cx, cy, cz int) int {
	return cx + g.dimX*(cy+g.dimY*cz)
}

// cellRange returns the clamped inclusive cell-coordinate range covered by
// the AABB of a sphere at pos with the given radius. This is the single code
// path shared by the update pipeline and the query engine; the two walking
// different ranges for the same sphere would corrupt correctness.
func (g *SpatialGrid) cellRange(pos r3.Vec, radius float64) (lo, hi [3]int) {
	minX, minY, minZ := g.cellCoord(r3.Vec{X: pos.X - radius, Y: pos.Y - radius, Z: pos.Z - radius})
	maxX, maxY, maxZ := g.cellCoord(r3.Vec{X: pos.X + radius, Y: pos.Y + radius, Z: pos.Z + radius})
	lo = [3]int{clampAxis(minX, g.dimX), clampAxis(minY, g.dimY), clampAxis(minZ, g.dimZ)}
	hi = [3]int{clampAxis(maxX, g.dimX), clampAxis(maxY, g.dimY), clampAxis(maxZ, g.dimZ)}
	return
}

// Close releases all grid-owned storage. Safe to call multiple times; any
// call after the first is a no-op. Update and QueryRadius fail with
// ErrGridClosed afterwards.
func (g *SpatialGrid) Close() {
	g.closeMu.Lock()
	defer g.closeMu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	g.cells = nil
	g.live = 0
}

func (g *SpatialGrid) isClosed() bool {
	g.closeMu.Lock()
	defer g.closeMu.Unlock()
	return g.closed
}
