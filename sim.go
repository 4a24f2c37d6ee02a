package main

import (
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/spatial/r3"
)

const maxViewersPerSession = 50

// SimConfig holds settings for one simulation session
type SimConfig struct {
	Grid          GridConfig
	TickRate      int
	BroadcastRate int
	Drones        int
	Obstacles     int
}

// Broadcaster interface for sending messages to viewers
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// Sim runs one swarm simulation: a fixed-rate tick loop that moves drones,
// rebuilds the spatial grid from the full snapshot every tick, and feeds the
// grid's neighbor queries back into drone steering.
type Sim struct {
	mu        sync.RWMutex
	cfg       SimConfig
	grid      *SpatialGrid
	drones    map[string]*Drone
	obstacles map[string]*Obstacle
	viewers   map[string]Broadcaster
	tick      uint64
	running   bool
	stop      chan struct{}

	sessionID string
	metrics   *Metrics

	// Per-sample counters, reset after each metrics flush. probeCount is
	// atomic because probes arrive on client goroutines under RLock.
	queryCount   int
	probeCount   atomic.Int64
	contactCount int
	rebuildUS    int64
}

// NewSim builds a session simulation. Returns an error if the grid
// configuration is unusable.
func NewSim(sessionID string, cfg SimConfig, metrics *Metrics) (*Sim, error) {
	grid, err := NewSpatialGrid(cfg.Grid)
	if err != nil {
		return nil, err
	}

	s := &Sim{
		cfg:       cfg,
		grid:      grid,
		drones:    make(map[string]*Drone),
		obstacles: make(map[string]*Obstacle),
		viewers:   make(map[string]Broadcaster),
		stop:      make(chan struct{}),
		sessionID: sessionID,
		metrics:   metrics,
	}

	world := cfg.Grid.WorldSize
	for i := 0; i < cfg.Obstacles; i++ {
		o := NewObstacle(world)
		s.obstacles[o.ID] = o
	}
	for i := 0; i < cfg.Drones; i++ {
		d := NewDrone(world)
		s.drones[d.ID] = d
	}

	// Seed the grid so probes work before the first tick
	if err := grid.Update(s.snapshot()); err != nil {
		grid.Close()
		return nil, err
	}
	return s, nil
}

// Run starts the simulation loop
func (s *Sim) Run() {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.TickRate))
	defer ticker.Stop()

	sampleEvery := uint64(s.cfg.TickRate) // one metrics sample per second

	for {
		select {
		case <-ticker.C:
			s.update()
			if s.metrics != nil && s.tick%sampleEvery == 0 {
				s.flushSample()
			}
		case <-s.stop:
			return
		}
	}
}

// Stop terminates the simulation loop and releases the grid
func (s *Sim) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.running = false
		close(s.stop)
	}
	s.grid.Close()
}

// update runs one simulation tick
func (s *Sim) update() {
	s.mu.Lock()
	defer s.mu.Unlock()

	dt := 1.0 / float64(s.cfg.TickRate)
	s.tick++

	// Steer and move drones against the previous tick's grid
	for _, d := range s.drones {
		neighbors, err := s.grid.QueryRadius(d.Pos, DroneSeparation)
		if err != nil {
			neighbors = nil
		}
		s.queryCount++
		d.Update(dt, neighbors)
	}

	// Narrow phase against the obstacles
	for _, d := range s.drones {
		s.collideWithObstacles(d)
	}

	// Full rebuild from the fresh snapshot
	start := time.Now()
	if err := s.grid.Update(s.snapshot()); err != nil {
		// Previous cycle's index stays queryable; log and keep ticking
		log.Printf("sim %s: grid rebuild failed: %v", s.sessionID, err)
	}
	s.rebuildUS += time.Since(start).Microseconds()

	broadcastEvery := uint64(s.cfg.TickRate / s.cfg.BroadcastRate)
	if s.tick%broadcastEvery == 0 {
		s.broadcastState()
	}
}

// collideWithObstacles resolves a drone's contacts after it moved. A drone
// that ends up inside an obstacle is pushed out along the center line; one
// whose last step crossed an obstacle without ending inside it is put back
// where it started. Caller holds mu.
func (s *Sim) collideWithObstacles(d *Drone) {
	travel := math.Sqrt(r3.Norm2(r3.Sub(d.Pos, d.Prev)))
	candidates, err := s.grid.QueryRadius(d.Pos, DroneRadius+travel)
	if err != nil {
		return
	}
	s.queryCount++
	for _, c := range candidates {
		o, ok := s.obstacles[c.ID]
		if !ok {
			continue
		}
		if CheckCollision(d.Pos, DroneRadius, o.Pos, o.Radius) {
			d.Pos = r3.Add(d.Pos, ResolveSphereOverlap(d.Pos, DroneRadius, o.Pos, o.Radius))
			s.contactCount++
		} else if SegmentSphereIntersect(d.Prev, d.Pos, o.Pos, o.Radius+DroneRadius) {
			d.Pos = d.Prev
			d.Vel = r3.Vec{}
			s.contactCount++
		}
	}
}

// snapshot collects the full object set for a grid rebuild. Caller holds mu.
func (s *Sim) snapshot() []SpatialObject {
	objs := make([]SpatialObject, 0, len(s.drones)+len(s.obstacles))
	for _, d := range s.drones {
		objs = append(objs, d.Object())
	}
	for _, o := range s.obstacles {
		objs = append(objs, o.Object())
	}
	return objs
}

// Probe answers an on-demand radius query from a viewer. Safe to call from
// client goroutines; it serializes against the tick loop.
func (s *Sim) Probe(pos r3.Vec, radius float64) ([]SpatialObject, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hits, err := s.grid.QueryRadius(pos, radius)
	if err != nil {
		return nil, 0, err
	}
	s.probeCount.Add(1)
	return hits, s.tick, nil
}

// AddViewer attaches a broadcaster. Returns false when the session is full.
func (s *Sim) AddViewer(id string, b Broadcaster) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.viewers) >= maxViewersPerSession {
		return false
	}
	s.viewers[id] = b
	return true
}

// RemoveViewer detaches a broadcaster
func (s *Sim) RemoveViewer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.viewers, id)
}

// ViewerCount returns the number of attached viewers
func (s *Sim) ViewerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.viewers)
}

// DroneCount returns the number of drones
func (s *Sim) DroneCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drones)
}

// Tick returns the current tick number
func (s *Sim) Tick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick
}

// ObstacleStates returns the static obstacle set for the welcome message
func (s *Sim) ObstacleStates() []ObstacleState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	states := make([]ObstacleState, 0, len(s.obstacles))
	for _, o := range s.obstacles {
		states = append(states, o.ToState())
	}
	return states
}

// broadcastState sends the current world state to all viewers as a binary
// msgpack frame. Caller holds mu.
func (s *Sim) broadcastState() {
	state := WorldState{
		Tick:    s.tick,
		Drones:  make([]DroneState, 0, len(s.drones)),
		Objects: s.grid.ObjectCount(),
		Entries: s.grid.EntryCount(),
	}
	for _, d := range s.drones {
		state.Drones = append(state.Drones, d.ToState())
	}

	data, err := msgpack.Marshal(state)
	if err != nil {
		log.Printf("msgpack marshal error: %v", err)
		return
	}
	for _, v := range s.viewers {
		v.SendBinary(data)
	}
}

// flushSample hands the per-second counters to the metrics writer
func (s *Sim) flushSample() {
	s.mu.Lock()
	sample := CycleSample{
		SessionID: s.sessionID,
		Tick:      s.tick,
		Objects:   s.grid.ObjectCount(),
		Entries:   s.grid.EntryCount(),
		RebuildUS: s.rebuildUS,
		Queries:   s.queryCount,
		Probes:    int(s.probeCount.Swap(0)),
		Contacts:  s.contactCount,
	}
	s.queryCount = 0
	s.contactCount = 0
	s.rebuildUS = 0
	s.mu.Unlock()

	s.metrics.Record(sample)
}
