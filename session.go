package main

import (
	"log"
	"sync"
	"time"
)

const maxSessions = 100

// Session is one running simulation that viewers can watch and probe
type Session struct {
	ID        string
	Name      string
	Sim       *Sim
	CreatedAt time.Time
}

// SessionManager handles creation and lookup of sessions
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      SimConfig
	metrics  *Metrics
	db       *DB
}

// NewSessionManager creates a new SessionManager. All sessions share the same
// simulation configuration.
func NewSessionManager(cfg SimConfig, metrics *Metrics, db *DB) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		metrics:  metrics,
		db:       db,
	}
}

// CreateSession starts a new simulation session. Returns nil if the session
// limit is reached or the simulation could not be built.
func (sm *SessionManager) CreateSession(name string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= maxSessions {
		return nil
	}

	id := GenerateUUID()
	sim, err := NewSim(id, sm.cfg, sm.metrics)
	if err != nil {
		log.Printf("create session: %v", err)
		return nil
	}
	sess := &Session{
		ID:        id,
		Name:      name,
		Sim:       sim,
		CreatedAt: time.Now(),
	}
	sm.sessions[id] = sess
	go sim.Run()
	return sess
}

// GetSession returns a session by ID
func (sm *SessionManager) GetSession(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// RemoveViewer detaches a viewer from a session and tears the session down
// once the last viewer leaves.
func (sm *SessionManager) RemoveViewer(sessionID, viewerID string) {
	sm.mu.RLock()
	sess, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()
	if !ok {
		return
	}
	sess.Sim.RemoveViewer(viewerID)

	if sess.Sim.ViewerCount() == 0 {
		sm.teardown(sess)
	}
}

// SessionCount returns the number of active sessions
func (sm *SessionManager) SessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// ListSessions returns info about all active sessions
func (sm *SessionManager) ListSessions() []SessionInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	list := make([]SessionInfo, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		list = append(list, SessionInfo{
			ID:      sess.ID,
			Name:    sess.Name,
			Viewers: sess.Sim.ViewerCount(),
			Drones:  sess.Sim.DroneCount(),
		})
	}
	return list
}

// StopAll tears down every session, for server shutdown
func (sm *SessionManager) StopAll() {
	sm.mu.RLock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.mu.RUnlock()

	for _, s := range sessions {
		sm.teardown(s)
	}
}

// teardown stops a session's simulation, records its run summary and drops it
func (sm *SessionManager) teardown(sess *Session) {
	sm.mu.Lock()
	if _, ok := sm.sessions[sess.ID]; !ok {
		sm.mu.Unlock()
		return
	}
	delete(sm.sessions, sess.ID)
	sm.mu.Unlock()

	ticks := sess.Sim.Tick()
	drones := sess.Sim.DroneCount()
	sess.Sim.Stop()

	if sm.db != nil {
		duration := time.Since(sess.CreatedAt).Seconds()
		if err := sm.db.RecordRun(sess.ID, sess.Name, int64(ticks), duration, drones); err != nil {
			log.Printf("record run %s: %v", sess.ID, err)
		}
	}
}
