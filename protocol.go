package main

import "encoding/json"

// Client -> Server message types
const (
	MsgList     = "list"     // list sessions
	MsgCreate   = "create"   // create session
	MsgJoin     = "join"     // join session as viewer
	MsgLeave    = "leave"    // leave session
	MsgProbe    = "probe"    // radius query against the live grid
	MsgRegister = "register" // create account
	MsgLogin    = "login"    // password login
	MsgAuth     = "auth"     // token resume
)

// Server -> Client message types
const (
	MsgSessions    = "sessions"
	MsgCreated     = "created" // session created, client should navigate
	MsgJoined      = "joined"
	MsgWelcome     = "welcome" // world geometry + static obstacles
	MsgState       = "state"   // binary msgpack frame, not JSON
	MsgProbeResult = "probe_result"
	MsgAuthOK      = "auth_ok"
	MsgError       = "error"
)

// Envelope wraps all outgoing JSON messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// CreateMsg is sent to create a new session
type CreateMsg struct {
	Name string `json:"name"`
}

// JoinMsg is sent to join an existing session
type JoinMsg struct {
	SessionID string `json:"sid"`
}

// ProbeMsg asks the session's grid for everything within a radius of a point
type ProbeMsg struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Radius float64 `json:"r"`
}

// HitState is one object returned by a probe
type HitState struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Radius float64 `json:"r"`
}

// ProbeResultMsg is the response to a probe
type ProbeResultMsg struct {
	Hits []HitState `json:"hits"`
	Tick uint64     `json:"tick"`
}

// DroneState is broadcast per drone in every binary state frame
type DroneState struct {
	ID string  `msgpack:"id"`
	X  float64 `msgpack:"x"`
	Y  float64 `msgpack:"y"`
	Z  float64 `msgpack:"z"`
	VX float64 `msgpack:"vx"`
	VY float64 `msgpack:"vy"`
	VZ float64 `msgpack:"vz"`
}

// WorldState is the full per-tick state, encoded with msgpack and sent as a
// binary websocket frame. Obstacles are static and go out once in the welcome
// message instead.
type WorldState struct {
	Tick    uint64       `msgpack:"tick"`
	Drones  []DroneState `msgpack:"d"`
	Objects int          `msgpack:"n"` // last snapshot size
	Entries int64        `msgpack:"e"` // cell-map entries after rebuild
}

// ObstacleState describes one static obstacle
type ObstacleState struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Radius float64 `json:"r"`
}

// WelcomeMsg is sent to a viewer when they join a session
type WelcomeMsg struct {
	ViewerID  string          `json:"id"`
	WorldX    float64         `json:"wx"`
	WorldY    float64         `json:"wy"`
	WorldZ    float64         `json:"wz"`
	CellSize  float64         `json:"cell"`
	Obstacles []ObstacleState `json:"obs"`
}

// SessionInfo is used in the session list
type SessionInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Viewers int    `json:"viewers"`
	Drones  int    `json:"drones"`
}

// ErrorMsg sends an error to the client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// RegisterMsg creates an account
type RegisterMsg struct {
	Username string `json:"u"`
	Password string `json:"p"`
}

// LoginMsg authenticates by password
type LoginMsg struct {
	Username string `json:"u"`
	Password string `json:"p"`
}

// AuthMsg resumes a previous login by token
type AuthMsg struct {
	Token string `json:"token"`
}

// AuthOKMsg confirms authentication
type AuthOKMsg struct {
	Token     string `json:"token"`
	Username  string `json:"u"`
	AccountID int64  `json:"aid"`
}
