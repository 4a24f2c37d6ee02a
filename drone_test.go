package main

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

var testWorld = r3.Vec{X: 1000, Y: 1000, Z: 1000}

func TestNewDroneInsideWorld(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := NewDrone(testWorld)
		if d.Pos.X < 0 || d.Pos.X > testWorld.X ||
			d.Pos.Y < 0 || d.Pos.Y > testWorld.Y ||
			d.Pos.Z < 0 || d.Pos.Z > testWorld.Z {
			t.Fatalf("drone spawned outside world: %+v", d.Pos)
		}
	}
}

func TestDroneSeeksWaypoint(t *testing.T) {
	d := NewDrone(testWorld)
	d.Pos = r3.Vec{X: 100, Y: 100, Z: 100}
	d.Vel = r3.Vec{}
	d.Waypoint = r3.Vec{X: 500, Y: 500, Z: 500}

	before := r3.Norm2(r3.Sub(d.Waypoint, d.Pos))
	for i := 0; i < 120; i++ {
		d.Update(1.0/30, nil)
	}
	after := r3.Norm2(r3.Sub(d.Waypoint, d.Pos))
	if after >= before {
		t.Errorf("drone did not move toward waypoint: %g -> %g", before, after)
	}
}

func TestDroneSeparation(t *testing.T) {
	d := NewDrone(testWorld)
	d.Pos = r3.Vec{X: 500, Y: 500, Z: 500}
	d.Vel = r3.Vec{}
	// Waypoint straight up so seek contributes no X component
	d.Waypoint = r3.Vec{X: 500, Y: 900, Z: 500}

	neighbor := SpatialObject{ID: "other", Pos: r3.Vec{X: 505, Y: 500, Z: 500}, Radius: DroneRadius}
	d.Update(1.0/30, []SpatialObject{neighbor})

	// Push should point away from the neighbor, i.e. -X
	if d.Vel.X >= 0 {
		t.Errorf("expected negative X velocity away from neighbor, got %+v", d.Vel)
	}
}

func TestDroneIgnoresSelfInNeighbors(t *testing.T) {
	d := NewDrone(testWorld)
	d.Pos = r3.Vec{X: 500, Y: 500, Z: 500}
	d.Vel = r3.Vec{}
	// Seek only pulls along Y; a non-skipped self would push along X
	d.Waypoint = r3.Vec{X: 500, Y: 900, Z: 500}

	d.Update(1.0/30, []SpatialObject{d.Object()})
	if d.Vel.X != 0 || d.Vel.Z != 0 {
		t.Errorf("self in neighbor list must not push, got velocity %+v", d.Vel)
	}
}

func TestDroneStaysInWorld(t *testing.T) {
	d := NewDrone(testWorld)
	d.Pos = r3.Vec{X: 1, Y: 1, Z: 1}
	d.Vel = r3.Vec{X: -500, Y: -500, Z: -500}

	for i := 0; i < 300; i++ {
		d.Update(1.0/30, nil)
		if d.Pos.X < 0 || d.Pos.X > testWorld.X ||
			d.Pos.Y < 0 || d.Pos.Y > testWorld.Y ||
			d.Pos.Z < 0 || d.Pos.Z > testWorld.Z {
			t.Fatalf("drone escaped world at tick %d: %+v", i, d.Pos)
		}
	}
}

func TestDroneSpeedClamped(t *testing.T) {
	d := NewDrone(testWorld)
	d.Pos = r3.Vec{X: 500, Y: 500, Z: 500}
	d.Vel = r3.Vec{X: 10 * DroneSpeed}
	d.Update(1.0/30, nil)
	if r3.Norm2(d.Vel) > DroneSpeed*DroneSpeed*1.0001 {
		t.Errorf("speed not clamped: %+v", d.Vel)
	}
}

func TestDroneTracksPreviousPosition(t *testing.T) {
	d := NewDrone(testWorld)
	if d.Prev != d.Pos {
		t.Errorf("fresh drone should have Prev == Pos, got %+v vs %+v", d.Prev, d.Pos)
	}
	start := d.Pos
	d.Update(1.0/30, nil)
	if d.Prev != start {
		t.Errorf("expected Prev %+v after update, got %+v", start, d.Prev)
	}
}

func TestObstacleObjectRecord(t *testing.T) {
	o := NewObstacle(testWorld)
	obj := o.Object()
	if obj.ID != o.ID || obj.Radius != o.Radius {
		t.Errorf("object record mismatch: %+v vs %+v", obj, o)
	}
	if o.Radius < ObstacleMinRadius || o.Radius > ObstacleMaxRadius {
		t.Errorf("obstacle radius out of range: %g", o.Radius)
	}
}
