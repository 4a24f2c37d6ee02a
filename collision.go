package main

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// CheckCollision checks if two spheres overlap.
func CheckCollision(p1 r3.Vec, r1 float64, p2 r3.Vec, r2 float64) bool {
	d := r3.Sub(p2, p1)
	radSum := r1 + r2
	return r3.Norm2(d) <= radSum*radSum
}

// PenetrationDepth returns how deep two spheres interpenetrate, or 0 if they
// do not touch.
func PenetrationDepth(p1 r3.Vec, r1 float64, p2 r3.Vec, r2 float64) float64 {
	depth := (r1 + r2) - math.Sqrt(r3.Norm2(r3.Sub(p2, p1)))
	if depth < 0 {
		return 0
	}
	return depth
}

// ResolveSphereOverlap returns the displacement that moves a sphere at pos out
// of a static sphere at obsPos. Coincident centers push along +X so the
// caller never gets stuck.
func ResolveSphereOverlap(pos r3.Vec, radius float64, obsPos r3.Vec, obsRadius float64) r3.Vec {
	depth := PenetrationDepth(pos, radius, obsPos, obsRadius)
	if depth <= 0 {
		return r3.Vec{}
	}
	d := r3.Sub(pos, obsPos)
	dist := math.Sqrt(r3.Norm2(d))
	if dist == 0 {
		return r3.Vec{X: depth}
	}
	return r3.Scale(depth/dist, d)
}

// SegmentSphereIntersect checks if the segment a-b intersects a sphere at c
// with radius r.
func SegmentSphereIntersect(a, b, c r3.Vec, r float64) bool {
	d := r3.Sub(b, a)
	f := r3.Sub(a, c)
	qa := r3.Norm2(d)
	if qa == 0 {
		return r3.Norm2(f) <= r*r
	}
	qb := 2 * r3.Dot(f, d)
	qc := r3.Norm2(f) - r*r
	disc := qb*qb - 4*qa*qc
	if disc < 0 {
		return false
	}
	disc = math.Sqrt(disc)
	t1 := (-qb - disc) / (2 * qa)
	t2 := (-qb + disc) / (2 * qa)
	return (t1 >= 0 && t1 <= 1) || (t2 >= 0 && t2 <= 1) || (t1 <= 0 && t2 >= 1)
}
