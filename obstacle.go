package main

import "gonum.org/v1/gonum/spatial/r3"

const (
	ObstacleMinRadius = 15.0
	ObstacleMaxRadius = 45.0
)

// Obstacle is a static sphere drones have to steer around. Obstacles go into
// every grid snapshot alongside the drones.
type Obstacle struct {
	ID     string
	Pos    r3.Vec
	Radius float64
}

// NewObstacle places an obstacle at a random position inside the world
func NewObstacle(world r3.Vec) *Obstacle {
	return &Obstacle{
		ID:     "obs-" + GenerateID(3),
		Pos:    randPointIn(world),
		Radius: ObstacleMinRadius + randFloat()*(ObstacleMaxRadius-ObstacleMinRadius),
	}
}

// Object converts the obstacle to its grid record
func (o *Obstacle) Object() SpatialObject {
	return SpatialObject{ID: o.ID, Pos: o.Pos, Radius: o.Radius}
}

// ToState converts to protocol state
func (o *Obstacle) ToState() ObstacleState {
	return ObstacleState{
		ID:     o.ID,
		X:      round1(o.Pos.X),
		Y:      round1(o.Pos.Y),
		Z:      round1(o.Pos.Z),
		Radius: round1(o.Radius),
	}
}
