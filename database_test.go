package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAccountRoundtrip(t *testing.T) {
	db := openTestDB(t)

	id, err := db.CreateAccount("alice", "hash123")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero account id")
	}

	acct, err := db.GetAccountByUsername("alice")
	if err != nil {
		t.Fatalf("GetAccountByUsername: %v", err)
	}
	if acct == nil || acct.ID != id || acct.PassHash != "hash123" {
		t.Errorf("unexpected account: %+v", acct)
	}

	// Unknown username is nil, not an error
	acct, err = db.GetAccountByUsername("nobody")
	if err != nil || acct != nil {
		t.Errorf("expected (nil, nil) for unknown user, got (%+v, %v)", acct, err)
	}

	exists, err := db.UsernameExists("alice")
	if err != nil || !exists {
		t.Errorf("UsernameExists(alice) = (%v, %v)", exists, err)
	}

	// Duplicate username violates the unique constraint
	if _, err := db.CreateAccount("alice", "other"); err == nil {
		t.Error("expected error on duplicate username")
	}
}

func TestSettingsRoundtrip(t *testing.T) {
	db := openTestDB(t)

	if v := db.GetSetting("missing"); v != "" {
		t.Errorf("expected empty for missing setting, got %q", v)
	}
	if err := db.SetSetting("k", "v1"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if v := db.GetSetting("k"); v != "v1" {
		t.Errorf("expected v1, got %q", v)
	}
	// Upsert overwrites
	if err := db.SetSetting("k", "v2"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if v := db.GetSetting("k"); v != "v2" {
		t.Errorf("expected v2, got %q", v)
	}
}

func TestRecordAndListRuns(t *testing.T) {
	db := openTestDB(t)

	if err := db.RecordRun("sid-1", "first", 1000, 33.3, 200); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := db.RecordRun("sid-2", "second", 500, 16.6, 100); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	runs, err := db.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	found := false
	for _, r := range runs {
		if r.SessionID == "sid-1" && r.Ticks == 1000 && r.PeakDrones == 200 {
			found = true
		}
	}
	if !found {
		t.Errorf("run sid-1 not returned correctly: %+v", runs)
	}

	// Run rows go out on the JSON API; keys are snake_case like the rest of
	// the payload.
	b, err := json.Marshal(runs[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"session_id"`, `"peak_drones"`, `"created_at"`} {
		if !strings.Contains(string(b), key) {
			t.Errorf("run JSON missing %s key: %s", key, b)
		}
	}
}
