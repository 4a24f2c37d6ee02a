package main

import (
	"database/sql"
	"log"
	"sync"
	"time"
)

// CycleSample is one second's worth of grid activity for a session
type CycleSample struct {
	SessionID string
	Tick      uint64
	Objects   int   // last snapshot size
	Entries   int64 // cell-map entries after rebuild
	RebuildUS int64 // accumulated rebuild time, microseconds
	Queries   int   // neighbor queries issued by the sim
	Probes    int   // viewer probes answered
	Contacts  int   // narrow-phase contacts resolved
	Timestamp time.Time
}

// Metrics persists cycle samples with batched background writes so the tick
// loop never blocks on sqlite.
type Metrics struct {
	db      *DB
	samples chan CycleSample
	stop    chan struct{}
	wg      sync.WaitGroup

	// Live gauges
	mu             sync.RWMutex
	viewers        int
	activeSessions int
}

// NewMetrics creates and starts the metrics background writer
func NewMetrics(db *DB) *Metrics {
	m := &Metrics{
		db:      db,
		samples: make(chan CycleSample, 1024),
		stop:    make(chan struct{}),
	}
	m.wg.Add(1)
	go m.writer()
	return m
}

// Record enqueues a sample for async persistence (non-blocking). Safe to
// call during shutdown while the writer is draining.
func (m *Metrics) Record(s CycleSample) {
	defer func() { recover() }()
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}
	select {
	case m.samples <- s:
	default:
		// Channel full — drop the sample rather than blocking the tick loop
	}
}

// SetViewers updates the live viewer gauge
func (m *Metrics) SetViewers(n int) {
	m.mu.Lock()
	m.viewers = n
	m.mu.Unlock()
}

// SetActiveSessions updates the live session gauge
func (m *Metrics) SetActiveSessions(n int) {
	m.mu.Lock()
	m.activeSessions = n
	m.mu.Unlock()
}

// LiveGauges returns the current viewer and session counts
func (m *Metrics) LiveGauges() (viewers, sessions int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.viewers, m.activeSessions
}

// Stop gracefully shuts down the metrics writer
func (m *Metrics) Stop() {
	close(m.stop)
	m.wg.Wait()
}

// writer is the background goroutine that batches and writes samples
func (m *Metrics) writer() {
	defer m.wg.Done()

	batch := make([]CycleSample, 0, 64)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case s := <-m.samples:
			batch = append(batch, s)
			if len(batch) >= 50 {
				m.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				m.flush(batch)
				batch = batch[:0]
			}
		case <-m.stop:
			// Drain remaining samples
			close(m.samples)
			for s := range m.samples {
				batch = append(batch, s)
			}
			if len(batch) > 0 {
				m.flush(batch)
			}
			return
		}
	}
}

// flush writes a batch of samples to the database
func (m *Metrics) flush(batch []CycleSample) {
	if m.db == nil || len(batch) == 0 {
		return
	}
	tx, err := m.db.conn.Begin()
	if err != nil {
		log.Printf("metrics: begin tx error: %v", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO cycle_metrics
		(session_id, tick, objects, entries, rebuild_us, queries, probes, contacts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		log.Printf("metrics: prepare error: %v", err)
		return
	}
	defer stmt.Close()

	for _, s := range batch {
		_, err := stmt.Exec(s.SessionID, int64(s.Tick), s.Objects, s.Entries,
			s.RebuildUS, s.Queries, s.Probes, s.Contacts, s.Timestamp.Format(time.RFC3339))
		if err != nil {
			log.Printf("metrics: insert error: %v", err)
		}
	}
	tx.Commit()
}

// --- Query methods for the API ---

// RebuildStats holds aggregated rebuild performance for one session
type RebuildStats struct {
	SessionID    string  `json:"session_id"`
	Samples      int     `json:"samples"`
	AvgObjects   float64 `json:"avg_objects"`
	AvgEntries   float64 `json:"avg_entries"`
	AvgRebuildUS float64 `json:"avg_rebuild_us"`
	MaxRebuildUS int64   `json:"max_rebuild_us"`
}

// SessionRebuildStats aggregates rebuild cost per session over the last N days
func (m *Metrics) SessionRebuildStats(days int) ([]RebuildStats, error) {
	if m.db == nil {
		return nil, nil
	}
	rows, err := m.db.conn.Query(`
		SELECT session_id, COUNT(*), AVG(objects), AVG(entries), AVG(rebuild_us), MAX(rebuild_us)
		FROM cycle_metrics
		WHERE created_at >= date('now', '-' || ? || ' days')
		GROUP BY session_id ORDER BY COUNT(*) DESC
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RebuildStats
	for rows.Next() {
		var r RebuildStats
		var avgObj, avgEnt, avgUS sql.NullFloat64
		if err := rows.Scan(&r.SessionID, &r.Samples, &avgObj, &avgEnt, &avgUS, &r.MaxRebuildUS); err != nil {
			continue
		}
		r.AvgObjects = avgObj.Float64
		r.AvgEntries = avgEnt.Float64
		r.AvgRebuildUS = avgUS.Float64
		result = append(result, r)
	}
	return result, rows.Err()
}

// TotalCounts returns query/probe/contact totals for the last N days
func (m *Metrics) TotalCounts(days int) (queries, probes, contacts int, err error) {
	if m.db == nil {
		return 0, 0, 0, nil
	}
	err = m.db.conn.QueryRow(`
		SELECT COALESCE(SUM(queries), 0), COALESCE(SUM(probes), 0), COALESCE(SUM(contacts), 0)
		FROM cycle_metrics
		WHERE created_at >= date('now', '-' || ? || ' days')
	`, days).Scan(&queries, &probes, &contacts)
	return queries, probes, contacts, err
}

// DayCount holds a sample count for a specific day
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// DailySampleHistory returns sample counts per day for the last N days
func (m *Metrics) DailySampleHistory(days int) ([]DayCount, error) {
	if m.db == nil {
		return nil, nil
	}
	rows, err := m.db.conn.Query(`
		SELECT date(created_at) as day, COUNT(*)
		FROM cycle_metrics
		WHERE created_at >= date('now', '-' || ? || ' days')
		GROUP BY day ORDER BY day
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			continue
		}
		result = append(result, dc)
	}
	return result, rows.Err()
}
