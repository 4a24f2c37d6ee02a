package main

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	DroneRadius       = 4.0
	DroneSpeed        = 60.0  // max speed, units/s
	DroneAccel        = 90.0  // seek acceleration
	DroneFriction     = 0.97
	DroneSeekGain     = 1.0
	DroneSeparation   = 30.0 // neighbor query radius for separation
	DroneSeparateGain = 140.0
	WaypointReach     = 25.0 // distance at which a waypoint counts as hit
	WaypointMargin    = 0.05 // waypoints stay this fraction away from walls
)

// Drone is an autonomous agent that wanders between random waypoints while
// steering away from whatever the grid reports nearby.
type Drone struct {
	ID       string
	Pos      r3.Vec
	Prev     r3.Vec // position before the last Update, for swept checks
	Vel      r3.Vec
	Waypoint r3.Vec
	world    r3.Vec
}

// NewDrone spawns a drone at a random position inside the world volume
func NewDrone(world r3.Vec) *Drone {
	d := &Drone{
		ID:    GenerateID(4),
		world: world,
	}
	d.Pos = randPointIn(world)
	d.Prev = d.Pos
	d.Waypoint = randPointIn(world)
	return d
}

func randPointIn(world r3.Vec) r3.Vec {
	return r3.Vec{
		X: world.X * (WaypointMargin + randFloat()*(1-2*WaypointMargin)),
		Y: world.Y * (WaypointMargin + randFloat()*(1-2*WaypointMargin)),
		Z: world.Z * (WaypointMargin + randFloat()*(1-2*WaypointMargin)),
	}
}

// Update advances the drone one tick. neighbors is whatever the grid returned
// around the drone's position; the drone itself is usually in the list and is
// skipped by ID.
func (d *Drone) Update(dt float64, neighbors []SpatialObject) {
	d.Prev = d.Pos

	// Seek current waypoint
	toWp := r3.Sub(d.Waypoint, d.Pos)
	dist := math.Sqrt(r3.Norm2(toWp))
	if dist < WaypointReach {
		d.Waypoint = randPointIn(d.world)
		toWp = r3.Sub(d.Waypoint, d.Pos)
		dist = math.Sqrt(r3.Norm2(toWp))
	}
	if dist > 0 {
		d.Vel = r3.Add(d.Vel, r3.Scale(DroneAccel*DroneSeekGain*dt/dist, toWp))
	}

	// Separation: push away from each neighbor, harder when closer
	for _, n := range neighbors {
		if n.ID == d.ID {
			continue
		}
		away := r3.Sub(d.Pos, n.Pos)
		d2 := r3.Norm2(away)
		if d2 == 0 {
			away = r3.Vec{X: 1}
			d2 = 1
		}
		reach := DroneSeparation + n.Radius
		if d2 > reach*reach {
			continue
		}
		w := DroneSeparateGain * dt / d2
		d.Vel = r3.Add(d.Vel, r3.Scale(w, away))
	}

	d.Vel = r3.Scale(DroneFriction, d.Vel)

	// Clamp speed
	speed2 := r3.Norm2(d.Vel)
	if speed2 > DroneSpeed*DroneSpeed {
		d.Vel = r3.Scale(DroneSpeed/math.Sqrt(speed2), d.Vel)
	}

	d.Pos = r3.Add(d.Pos, r3.Scale(dt, d.Vel))

	// Stay inside the world: clamp and kill the velocity component that
	// pushed out, then re-target
	if d.clampToWorld() {
		d.Waypoint = randPointIn(d.world)
	}
}

func (d *Drone) clampToWorld() bool {
	hit := false
	if d.Pos.X < 0 || d.Pos.X > d.world.X {
		d.Pos.X = Clamp(d.Pos.X, 0, d.world.X)
		d.Vel.X = 0
		hit = true
	}
	if d.Pos.Y < 0 || d.Pos.Y > d.world.Y {
		d.Pos.Y = Clamp(d.Pos.Y, 0, d.world.Y)
		d.Vel.Y = 0
		hit = true
	}
	if d.Pos.Z < 0 || d.Pos.Z > d.world.Z {
		d.Pos.Z = Clamp(d.Pos.Z, 0, d.world.Z)
		d.Vel.Z = 0
		hit = true
	}
	return hit
}

// Object converts the drone to its grid record
func (d *Drone) Object() SpatialObject {
	return SpatialObject{ID: d.ID, Pos: d.Pos, Radius: DroneRadius}
}

// ToState converts to protocol state
func (d *Drone) ToState() DroneState {
	return DroneState{
		ID: d.ID,
		X:  round1(d.Pos.X),
		Y:  round1(d.Pos.Y),
		Z:  round1(d.Pos.Z),
		VX: round1(d.Vel.X),
		VY: round1(d.Vel.Y),
		VZ: round1(d.Vel.Z),
	}
}
