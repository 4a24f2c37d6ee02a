package main

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// QueryRadius returns every indexed object whose bounding sphere overlaps the
// sphere at pos with the given radius. The result is a freshly allocated,
// duplicate-free collection in unspecified order; it does not alias grid
// storage.
//
// A query walks the same clamped cell range an insertion for the same sphere
// would, so objects clamped to boundary cells stay reachable. Each candidate
// is considered exactly once per query: it is marked seen on first encounter
// whether or not it passes the distance test.
func (g *SpatialGrid) QueryRadius(pos r3.Vec, radius float64) ([]SpatialObject, error) {
	if g.isClosed() {
		return nil, ErrGridClosed
	}
	if radius < 0 {
		return nil, fmt.Errorf("%w: radius must be non-negative, got %g", ErrInvalidQuery, radius)
	}

	lo, hi := g.cellRange(pos, radius)
	seen := make([]bool, g.live)
	var result []SpatialObject

	for z := lo[2]; z <= hi[2]; z++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for x := lo[0]; x <= hi[0]; x++ {
				for _, e := range g.cells.buckets[g.flatten(x, y, z)] {
					if seen[e.local] {
						continue
					}
					seen[e.local] = true
					comb := radius + e.obj.Radius
					d := r3.Sub(pos, e.obj.Pos)
					if r3.Norm2(d) <= comb*comb {
						result = append(result, e.obj)
					}
				}
			}
		}
	}
	return result, nil
}
