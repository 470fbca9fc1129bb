package core

import "testing"

func TestRecomputeFocus_KeepsCurrentWhenVisible(t *testing.T) {
	m := newTestModel("1")
	addTestWindow(m, 1, "1")
	addTestWindow(m, 2, "1")
	ws := m.ActiveWorkspace()
	SetFocus(ws, m, 1)

	id, ok := RecomputeFocus(ws, m)
	if !ok || id != 1 {
		t.Fatalf("got (%d, %v), want (1, true)", id, ok)
	}
}

func TestRecomputeFocus_FallsBackToHistory(t *testing.T) {
	m := newTestModel("1")
	addTestWindow(m, 1, "1")
	addTestWindow(m, 2, "1")
	addTestWindow(m, 3, "1")
	ws := m.ActiveWorkspace()
	SetFocus(ws, m, 1)
	SetFocus(ws, m, 2)
	SetFocus(ws, m, 3)

	m.RemoveWindow(3)
	id, ok := RecomputeFocus(ws, m)
	if !ok || id != 2 {
		t.Fatalf("got (%d, %v), want history fallback to (2, true)", id, ok)
	}
}

func TestRecomputeFocus_MostRecentlyMappedWhenNoHistory(t *testing.T) {
	m := newTestModel("1")
	addTestWindow(m, 1, "1")
	addTestWindow(m, 2, "1")
	ws := m.ActiveWorkspace()
	ws.Focused = 0

	id, ok := RecomputeFocus(ws, m)
	if !ok || id != 2 {
		t.Fatalf("got (%d, %v), want the most recently mapped window (2, true)", id, ok)
	}
}

func TestRecomputeFocus_EmptyWorkspace(t *testing.T) {
	m := newTestModel("1")
	if id, ok := RecomputeFocus(m.ActiveWorkspace(), m); ok {
		t.Fatalf("empty workspace should yield no focus, got %d", id)
	}
}

func TestRecomputeFocus_ParkedWorkspace(t *testing.T) {
	m := newTestModel("1")
	addTestWindow(m, 1, "1")
	m.ActiveWorkspace().Parked = true
	if _, ok := RecomputeFocus(m.Workspaces[0], m); ok {
		t.Fatal("parked workspace should yield no focus")
	}
}

func TestApplyFocus_ClearsWhenNothingVisible(t *testing.T) {
	m := newTestModel("1")
	addTestWindow(m, 1, "1")
	ws := m.ActiveWorkspace()
	SetFocus(ws, m, 1)
	m.RemoveWindow(1)

	ApplyFocus(ws, m)
	if ws.Focused != 0 {
		t.Fatalf("focus should be cleared, got %d", ws.Focused)
	}
}

func TestSetFocus_UnknownWindowRejected(t *testing.T) {
	m := newTestModel("1")
	if SetFocus(m.ActiveWorkspace(), m, 99) {
		t.Fatal("focusing an unknown window should be a no-op")
	}
}
