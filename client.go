package main

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
	maxSessionNameLen = 30
	maxProbeRadius    = 10000.0
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	viewerID   string
	sessionID  string
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
	// Auth state
	accountID int64  // 0 = unauthenticated
	username  string // "" = unauthenticated
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message.
// Prefixes with 0xFF marker byte so WritePump can distinguish from text.
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF // binary marker
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	switch env.T {
	case MsgList:
		c.handleList()
	case MsgCreate:
		c.handleCreate(env.D)
	case MsgJoin:
		c.handleJoin(env.D)
	case MsgLeave:
		c.handleLeave()
	case MsgProbe:
		c.handleProbe(env.D)
	case MsgRegister:
		c.handleRegister(env.D)
	case MsgLogin:
		c.handleLogin(env.D)
	case MsgAuth:
		c.handleAuth(env.D)
	}
}

func (c *Client) handleList() {
	sessions := c.hub.sessions.ListSessions()
	c.SendJSON(Envelope{T: MsgSessions, Data: sessions})
}

func (c *Client) handleCreate(data json.RawMessage) {
	var msg CreateMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	name := msg.Name
	if name == "" {
		name = "Swarm"
	}
	if len(name) > maxSessionNameLen {
		name = name[:maxSessionNameLen]
	}

	sess := c.hub.sessions.CreateSession(name)
	if sess == nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "too many active sessions"}})
		return
	}
	c.SendJSON(Envelope{T: MsgCreated, Data: map[string]string{"sid": sess.ID}})
}

func (c *Client) handleJoin(data json.RawMessage) {
	var msg JoinMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	sess := c.hub.sessions.GetSession(msg.SessionID)
	if sess == nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "session not found"}})
		return
	}

	viewerID := GenerateID(4)
	if !sess.Sim.AddViewer(viewerID, c) {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "session full"}})
		return
	}
	c.viewerID = viewerID
	c.sessionID = sess.ID

	world := sess.Sim.cfg.Grid.WorldSize
	c.SendJSON(Envelope{T: MsgJoined, Data: map[string]string{"sid": sess.ID}})
	c.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{
		ViewerID:  viewerID,
		WorldX:    world.X,
		WorldY:    world.Y,
		WorldZ:    world.Z,
		CellSize:  sess.Sim.cfg.Grid.CellSize,
		Obstacles: sess.Sim.ObstacleStates(),
	}})
}

func (c *Client) handleLeave() {
	if c.sessionID != "" {
		c.hub.sessions.RemoveViewer(c.sessionID, c.viewerID)
		c.sessionID = ""
		c.viewerID = ""
	}
}

func (c *Client) handleProbe(data json.RawMessage) {
	if c.sessionID == "" {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "not in a session"}})
		return
	}
	var msg ProbeMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.Radius < 0 || msg.Radius > maxProbeRadius {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "invalid probe radius"}})
		return
	}
	sess := c.hub.sessions.GetSession(c.sessionID)
	if sess == nil {
		return
	}

	hits, tick, err := sess.Sim.Probe(r3.Vec{X: msg.X, Y: msg.Y, Z: msg.Z}, msg.Radius)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "probe failed"}})
		return
	}
	result := ProbeResultMsg{Hits: make([]HitState, 0, len(hits)), Tick: tick}
	for _, h := range hits {
		result.Hits = append(result.Hits, HitState{
			ID:     h.ID,
			X:      round1(h.Pos.X),
			Y:      round1(h.Pos.Y),
			Z:      round1(h.Pos.Z),
			Radius: round1(h.Radius),
		})
	}
	c.SendJSON(Envelope{T: MsgProbeResult, Data: result})
}

func (c *Client) handleRegister(data json.RawMessage) {
	if c.hub.auth == nil {
		return
	}
	var msg RegisterMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Register(msg.Username, msg.Password)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: err.Error()}})
		return
	}
	c.accountID = id
	c.username = msg.Username
	c.hub.SetOnline(id, c)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{
		Token:     token,
		Username:  msg.Username,
		AccountID: id,
	}})
}

func (c *Client) handleLogin(data json.RawMessage) {
	if c.hub.auth == nil {
		return
	}
	var msg LoginMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Login(msg.Username, msg.Password, c.remoteAddr)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: err.Error()}})
		return
	}
	c.accountID = id
	c.username = msg.Username
	c.hub.SetOnline(id, c)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{
		Token:     token,
		Username:  msg.Username,
		AccountID: id,
	}})
}

func (c *Client) handleAuth(data json.RawMessage) {
	if c.hub.auth == nil {
		return
	}
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, username, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "invalid token"}})
		return
	}
	c.accountID = id
	c.username = username
	c.hub.SetOnline(id, c)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{
		Token:     msg.Token,
		Username:  username,
		AccountID: id,
	}})
}
