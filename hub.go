package main

import "sync"

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub manages all connected clients and routes them to sessions
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	sessions   *SessionManager
	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
	// Auth & DB & metrics
	db      *DB
	auth    *Auth
	metrics *Metrics
	// Online auth users: accountID -> *Client
	onlineMu    sync.RWMutex
	onlineUsers map[int64]*Client
}

// NewHub creates a new Hub. db and metrics may be nil in tests.
func NewHub(db *DB, metrics *Metrics, simCfg SimConfig) *Hub {
	h := &Hub{
		clients:     make(map[*Client]bool),
		register:    make(chan *Client, 64),
		unregister:  make(chan *Client, 64),
		sessions:    NewSessionManager(simCfg, metrics, db),
		ipConns:     make(map[string]int),
		db:          db,
		metrics:     metrics,
		onlineUsers: make(map[int64]*Client),
	}
	if db != nil {
		h.auth = NewAuth(db)
	}
	return h
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.updateGauges()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			if client.sessionID != "" {
				h.sessions.RemoveViewer(client.sessionID, client.viewerID)
			}
			if client.accountID != 0 {
				h.SetOffline(client.accountID)
			}
			h.updateGauges()
		}
	}
}

func (h *Hub) updateGauges() {
	if h.metrics == nil {
		return
	}
	h.metrics.SetViewers(h.ClientCount())
	h.metrics.SetActiveSessions(h.sessions.SessionCount())
}

// SetOnline marks an authenticated user as online
func (h *Hub) SetOnline(accountID int64, client *Client) {
	h.onlineMu.Lock()
	defer h.onlineMu.Unlock()
	h.onlineUsers[accountID] = client
}

// SetOffline removes an authenticated user from online tracking
func (h *Hub) SetOffline(accountID int64) {
	h.onlineMu.Lock()
	defer h.onlineMu.Unlock()
	delete(h.onlineUsers, accountID)
}

// IsOnline checks if an account has a live connection
func (h *Hub) IsOnline(accountID int64) bool {
	h.onlineMu.RLock()
	defer h.onlineMu.RUnlock()
	_, ok := h.onlineUsers[accountID]
	return ok
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
