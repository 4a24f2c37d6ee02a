package main

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestCheckCollision(t *testing.T) {
	cases := []struct {
		name   string
		p1     r3.Vec
		r1     float64
		p2     r3.Vec
		r2     float64
		expect bool
	}{
		{"overlapping", r3.Vec{X: 0}, 5, r3.Vec{X: 8}, 5, true},
		{"touching", r3.Vec{X: 0}, 5, r3.Vec{X: 10}, 5, true},
		{"separated", r3.Vec{X: 0}, 5, r3.Vec{X: 11}, 5, false},
		{"diagonal overlap", r3.Vec{}, 3, r3.Vec{X: 2, Y: 2, Z: 2}, 1, true},
		{"coincident", r3.Vec{X: 7, Y: 7, Z: 7}, 1, r3.Vec{X: 7, Y: 7, Z: 7}, 1, true},
		{"points apart", r3.Vec{}, 0, r3.Vec{X: 0.001}, 0, false},
	}
	for _, tc := range cases {
		if got := CheckCollision(tc.p1, tc.r1, tc.p2, tc.r2); got != tc.expect {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.expect, got)
		}
	}
}

func TestPenetrationDepth(t *testing.T) {
	d := PenetrationDepth(r3.Vec{X: 0}, 5, r3.Vec{X: 8}, 5)
	if math.Abs(d-2) > 1e-9 {
		t.Errorf("expected depth 2, got %g", d)
	}
	if d := PenetrationDepth(r3.Vec{X: 0}, 1, r3.Vec{X: 10}, 1); d != 0 {
		t.Errorf("expected 0 for separated spheres, got %g", d)
	}
}

func TestResolveSphereOverlap(t *testing.T) {
	pos := r3.Vec{X: 8}
	push := ResolveSphereOverlap(pos, 5, r3.Vec{}, 5)
	moved := r3.Add(pos, push)
	if CheckCollision(moved, 5, r3.Vec{}, 5) {
		// Touching exactly is fine; interpenetrating is not
		if PenetrationDepth(moved, 5, r3.Vec{}, 5) > 1e-9 {
			t.Errorf("still interpenetrating after resolve: %+v", moved)
		}
	}

	// No overlap: no displacement
	if p := ResolveSphereOverlap(r3.Vec{X: 20}, 5, r3.Vec{}, 5); p != (r3.Vec{}) {
		t.Errorf("expected zero push for separated spheres, got %+v", p)
	}

	// Coincident centers still produce a way out
	p := ResolveSphereOverlap(r3.Vec{X: 3, Y: 3, Z: 3}, 2, r3.Vec{X: 3, Y: 3, Z: 3}, 2)
	if r3.Norm2(p) == 0 {
		t.Error("expected non-zero push for coincident centers")
	}
}

func TestSegmentSphereIntersect(t *testing.T) {
	c := r3.Vec{X: 5}
	if !SegmentSphereIntersect(r3.Vec{}, r3.Vec{X: 10}, c, 1) {
		t.Error("segment through sphere should intersect")
	}
	if SegmentSphereIntersect(r3.Vec{Y: 5}, r3.Vec{X: 10, Y: 5}, c, 1) {
		t.Error("segment passing above sphere should miss")
	}
	// Segment fully inside the sphere
	if !SegmentSphereIntersect(r3.Vec{X: 4.8}, r3.Vec{X: 5.2}, c, 1) {
		t.Error("segment inside sphere should intersect")
	}
	// Degenerate zero-length segment
	if !SegmentSphereIntersect(c, c, c, 1) {
		t.Error("point inside sphere should intersect")
	}
}
