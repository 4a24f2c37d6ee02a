package main

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"

	"github.com/gorilla/websocket"
	qrcode "github.com/skip2/go-qrcode"
)

var uuidPathRe = regexp.MustCompile(`^/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub, clientDir string) *http.ServeMux {
	mux := http.NewServeMux()

	// Serve static files with no-cache so browsers always revalidate
	fs := http.FileServer(http.Dir(clientDir))
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		// SPA: serve index.html for root and session UUID paths
		if r.URL.Path == "/" || uuidPathRe.MatchString(r.URL.Path) {
			http.ServeFile(w, r, filepath.Join(clientDir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	}))

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade error: %v", err)
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	// QR code PNG linking to a session's viewer page
	mux.HandleFunc("/qr", func(w http.ResponseWriter, r *http.Request) {
		sid := r.URL.Query().Get("sid")
		if hub.sessions.GetSession(sid) == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		link := scheme + "://" + r.Host + "/" + sid
		png, err := qrcode.Encode(link, qrcode.Medium, 256)
		if err != nil {
			http.Error(w, "qr encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	})

	// Live and aggregated grid metrics as JSON
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		type metricsOut struct {
			Viewers  int            `json:"viewers"`
			Sessions int            `json:"sessions"`
			Queries  int            `json:"queries_7d"`
			Probes   int            `json:"probes_7d"`
			Contacts int            `json:"contacts_7d"`
			Rebuilds []RebuildStats `json:"rebuilds_7d"`
			Samples  []DayCount     `json:"samples_daily"`
			Runs     []RunRow       `json:"recent_runs"`
		}
		var out metricsOut
		if hub.metrics != nil {
			out.Viewers, out.Sessions = hub.metrics.LiveGauges()
			out.Queries, out.Probes, out.Contacts, _ = hub.metrics.TotalCounts(7)
			out.Rebuilds, _ = hub.metrics.SessionRebuildStats(7)
			out.Samples, _ = hub.metrics.DailySampleHistory(7)
		}
		if hub.db != nil {
			out.Runs, _ = hub.db.RecentRuns(10)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}
