package main

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// updateBatchSize is the number of objects one worker claims per scheduling
// unit. Rebuild work is embarrassingly parallel across objects, so batches
// only exist to keep the atomic cursor off the hot path.
const updateBatchSize = 64

// cellMapShards is the number of insertion locks striped across cell ids.
const cellMapShards = 64

// cellMap is the multimap from flat cell id to object records. One object
// appears under every cell its bounding-sphere AABB overlaps. Insertion is
// safe across workers via sharded locking keyed by cell id; total entries are
// bounded by the capacity fixed at construction.
type cellMap struct {
	buckets  [][]gridEntry
	locks    [cellMapShards]sync.Mutex
	entries  atomic.Int64
	capacity int64
}

func newCellMap(cells int, capacity int64) *cellMap {
	return &cellMap{
		buckets:  make([][]gridEntry, cells),
		capacity: capacity,
	}
}

// insert adds an entry under cellID. Returns false if the backing capacity is
// exhausted; no partial write happens in that case.
func (m *cellMap) insert(cellID int, e gridEntry) bool {
	if m.entries.Add(1) > m.capacity {
		m.entries.Add(-1)
		return false
	}
	lk := &m.locks[cellID%cellMapShards]
	lk.Lock()
	m.buckets[cellID] = append(m.buckets[cellID], e)
	lk.Unlock()
	return true
}

// Update fully replaces the indexed state from the given object snapshot.
// Objects are assigned local indices in input order, then inserted in
// parallel into every cell their bounding sphere touches. The call returns
// only after every object has been fully inserted.
//
// The rebuild is atomic: on any error (negative radius, capacity exhausted)
// the grid keeps the state of the previous successful cycle. Insertion order
// within a cell is unspecified and must not be relied upon.
func (g *SpatialGrid) Update(objects []SpatialObject) error {
	if g.isClosed() {
		return ErrGridClosed
	}
	if len(objects) > g.cfg.MaxObjects {
		return fmt.Errorf("%w: snapshot has %d objects, grid sized for %d",
			ErrCapacityExceeded, len(objects), g.cfg.MaxObjects)
	}
	for i := range objects {
		if objects[i].Radius < 0 {
			// Policy: one bad object rejects the whole update.
			return fmt.Errorf("%w: %q has negative radius %g",
				ErrInvalidObject, objects[i].ID, objects[i].Radius)
		}
	}

	next := newCellMap(g.cellCount(), g.capacity)

	batches := (len(objects) + updateBatchSize - 1) / updateBatchSize
	workers := runtime.GOMAXPROCS(0)
	if workers > batches {
		workers = batches
	}

	var cursor atomic.Int64
	var overflow atomic.Bool
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				b := int(cursor.Add(1)) - 1
				if b >= batches || overflow.Load() {
					return
				}
				start := b * updateBatchSize
				end := min(start+updateBatchSize, len(objects))
				for i := start; i < end; i++ {
					if !g.insertObject(next, objects[i], int32(i)) {
						overflow.Store(true)
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	if overflow.Load() {
		return fmt.Errorf("%w: snapshot of %d objects overflowed %d cell entries",
			ErrCapacityExceeded, len(objects), g.capacity)
	}

	g.cells = next
	g.live = len(objects)
	return nil
}

// insertObject buckets one object under every cell in its clamped AABB range.
// A radius-0 object degenerates to a single cell.
func (g *SpatialGrid) insertObject(m *cellMap, obj SpatialObject, local int32) bool {
	lo, hi := g.cellRange(obj.Pos, obj.Radius)
	e := gridEntry{obj: obj, local: local}
	for z := lo[2]; z <= hi[2]; z++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for x := lo[0]; x <= hi[0]; x++ {
				if !m.insert(g.flatten(x, y, z), e) {
					return false
				}
			}
		}
	}
	return true
}

// ObjectCount returns the size of the last successful snapshot.
func (g *SpatialGrid) ObjectCount() int {
	if g.isClosed() {
		return 0
	}
	return g.live
}

// EntryCount returns the total number of cell-map entries, counting one per
// (object, cell) pair.
func (g *SpatialGrid) EntryCount() int64 {
	if g.isClosed() {
		return 0
	}
	return g.cells.entries.Load()
}
