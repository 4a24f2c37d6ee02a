package main

import "testing"

func testSessionManager(t *testing.T, db *DB) *SessionManager {
	t.Helper()
	cfg := testSimConfig()
	cfg.Drones = 5
	cfg.Obstacles = 2
	sm := NewSessionManager(cfg, nil, db)
	t.Cleanup(sm.StopAll)
	return sm
}

func TestCreateAndGetSession(t *testing.T) {
	sm := testSessionManager(t, nil)

	sess := sm.CreateSession("demo")
	if sess == nil {
		t.Fatal("CreateSession returned nil")
	}
	if sess.ID == "" || sess.Name != "demo" {
		t.Errorf("unexpected session: %+v", sess)
	}
	if got := sm.GetSession(sess.ID); got != sess {
		t.Error("GetSession did not return the created session")
	}
	if sm.GetSession("bogus") != nil {
		t.Error("expected nil for unknown session id")
	}
	if sm.SessionCount() != 1 {
		t.Errorf("expected 1 session, got %d", sm.SessionCount())
	}
}

func TestListSessions(t *testing.T) {
	sm := testSessionManager(t, nil)

	a := sm.CreateSession("alpha")
	sm.CreateSession("beta")
	a.Sim.AddViewer("v1", &mockViewer{})

	list := sm.ListSessions()
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}
	for _, info := range list {
		if info.Drones != 5 {
			t.Errorf("session %s reports %d drones, expected 5", info.ID, info.Drones)
		}
		if info.ID == a.ID && info.Viewers != 1 {
			t.Errorf("expected 1 viewer on %s, got %d", info.ID, info.Viewers)
		}
	}
}

func TestLastViewerTearsDownSession(t *testing.T) {
	db := openTestDB(t)
	sm := testSessionManager(t, db)

	sess := sm.CreateSession("transient")
	sess.Sim.AddViewer("v1", &mockViewer{})
	sess.Sim.AddViewer("v2", &mockViewer{})

	sm.RemoveViewer(sess.ID, "v1")
	if sm.GetSession(sess.ID) == nil {
		t.Fatal("session torn down while a viewer remained")
	}

	sm.RemoveViewer(sess.ID, "v2")
	if sm.GetSession(sess.ID) != nil {
		t.Fatal("session should be gone after last viewer left")
	}

	// Teardown wrote a run summary
	runs, err := db.RecentRuns(5)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].SessionID != sess.ID || runs[0].PeakDrones != 5 {
		t.Errorf("unexpected run summary: %+v", runs)
	}

	// Removing from a dead session is a no-op
	sm.RemoveViewer(sess.ID, "v2")
}
