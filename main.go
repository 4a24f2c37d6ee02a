package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "swarmsim.toml", "Path to TOML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	clientDir := flag.String("client", "", "Path to client directory (overrides config)")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Server.DBPath = *dbPath
	}
	if *clientDir != "" {
		cfg.Server.ClientDir = *clientDir
	}

	db, err := OpenDB(cfg.Server.DBPath)
	if err != nil {
		log.Fatalf("open db %s: %v", cfg.Server.DBPath, err)
	}
	defer db.Close()

	metrics := NewMetrics(db)
	defer metrics.Stop()

	hub := NewHub(db, metrics, cfg.SimConfig())
	go hub.Run()

	mux := SetupRoutes(hub, cfg.Server.ClientDir)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: cfg.Server.Addr, Handler: mux}

	go func() {
		log.Printf("Server starting on %s", cfg.Server.Addr)
		log.Printf("World %gx%gx%g, cell size %g, max objects %d",
			cfg.World.SizeX, cfg.World.SizeY, cfg.World.SizeZ,
			cfg.World.CellSize, cfg.World.MaxObjects)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	hub.sessions.StopAll()
	server.Close()
}
