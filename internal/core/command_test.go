package core

import (
	"testing"

	"github.com/tagwm/tagwm/internal/layout"
)

func testProcessor() *Processor {
	return NewProcessor(layout.Names(), testLogger())
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		wantErr bool
	}{
		{"focus-window-next", "", false},
		{"goto-tag", "2", false},
		{"goto-tag", "", true},
		{"focus-window-next", "stray", true},
		{"swap-windows", "5 6", false},
		{"swap-windows", "5", true},
		{"swap-windows", "5 x", true},
		{"no-such-command", "", true},
	}
	for _, tt := range tests {
		_, err := ParseCommand(tt.name, tt.arg)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCommand(%q, %q) error = %v, wantErr %v", tt.name, tt.arg, err, tt.wantErr)
		}
	}
}

func TestFocusWindowNext_CyclesAndWraps(t *testing.T) {
	m := newTestModel("1")
	addTestWindow(m, 5, "1")
	addTestWindow(m, 6, "1")
	ws := m.ActiveWorkspace()
	SetFocus(ws, m, 5)
	p := testProcessor()

	mutated, err := p.Apply(m, Command{Kind: CmdFocusWindowNext})
	if err != nil || !mutated {
		t.Fatalf("Apply = (%v, %v), want mutation", mutated, err)
	}
	if ws.Focused != 6 {
		t.Fatalf("focus = %d, want 6", ws.Focused)
	}

	mutated, _ = p.Apply(m, Command{Kind: CmdFocusWindowNext})
	if !mutated || ws.Focused != 5 {
		t.Fatalf("focus should wrap back to 5, got %d", ws.Focused)
	}
}

func TestFocusWindowNext_EmptyWorkspaceIsNoop(t *testing.T) {
	m := newTestModel("1")
	mutated, err := testProcessor().Apply(m, Command{Kind: CmdFocusWindowNext})
	if err != nil {
		t.Fatalf("precondition miss must not be an error: %v", err)
	}
	if mutated {
		t.Fatal("expected a silent no-op")
	}
}

func TestGotoTag_SwapsWithDisplayingWorkspace(t *testing.T) {
	m := NewModel(testTags("1", "2"), Policy{})
	rec := NewReconciler(testLogger())
	rec.Reconcile(m, ScreensChanged{Screens: []Screen{
		{Name: "A", Geom: layout.Rect{Width: 800, Height: 600}},
		{Name: "B", Geom: layout.Rect{X: 800, Width: 800, Height: 600}},
	}})
	// Workspace 0 shows "1", workspace 1 shows "2".
	m.Active = 0

	mutated, err := testProcessor().Apply(m, Command{Kind: CmdGotoTag, Arg: "2"})
	if err != nil || !mutated {
		t.Fatalf("Apply = (%v, %v)", mutated, err)
	}
	if !m.Workspaces[0].displays("2") {
		t.Error("active workspace should now display tag 2")
	}
	if !m.Workspaces[1].displays("1") {
		t.Error("other workspace should have taken tag 1 in trade")
	}
	if err := m.Check(); err != nil {
		t.Errorf("invariants violated: %v", err)
	}
}

func TestGotoTag_TradesWithParkedWorkspace(t *testing.T) {
	m := NewModel(testTags("1", "2"), Policy{})
	rec := NewReconciler(testLogger())
	two := []Screen{
		{Name: "A", Geom: layout.Rect{Width: 800, Height: 600}},
		{Name: "B", Geom: layout.Rect{X: 800, Width: 800, Height: 600}},
	}
	rec.Reconcile(m, ScreensChanged{Screens: two})
	// Screen B vanishes; its workspace parks holding tag 2.
	rec.Reconcile(m, ScreensChanged{Screens: two[:1]})
	if !m.Workspaces[1].Parked || !m.Workspaces[1].displays("2") {
		t.Fatalf("workspace 1 parked=%v tags=%v, want parked with [2]", m.Workspaces[1].Parked, m.Workspaces[1].Tags)
	}

	mutated, err := testProcessor().Apply(m, Command{Kind: CmdGotoTag, Arg: "2"})
	if err != nil || !mutated {
		t.Fatalf("Apply = (%v, %v)", mutated, err)
	}
	if !m.Workspaces[0].displays("2") {
		t.Error("active workspace should now display tag 2")
	}
	// The parked holder takes the active workspace's old tags in trade.
	if !m.Workspaces[1].displays("1") || m.Workspaces[1].displays("2") {
		t.Fatalf("parked workspace tags = %v, want [1]", m.Workspaces[1].Tags)
	}

	// Screen B returns; the workspace unparks showing the traded tag.
	rec.Reconcile(m, ScreensChanged{Screens: two})
	if m.Workspaces[1].Parked || !m.Workspaces[1].displays("1") {
		t.Fatalf("rebound workspace parked=%v tags=%v, want [1]", m.Workspaces[1].Parked, m.Workspaces[1].Tags)
	}
	if err := m.Check(); err != nil {
		t.Errorf("invariants violated after unpark: %v", err)
	}
}

func TestGotoTag_UnknownTagRejected(t *testing.T) {
	m := newTestModel("1")
	_, err := testProcessor().Apply(m, Command{Kind: CmdGotoTag, Arg: "zzz"})
	if err == nil {
		t.Fatal("unknown tag must be rejected, not ignored")
	}
}

func TestGotoTag_AlreadyDisplayedIsNoop(t *testing.T) {
	m := newTestModel("1")
	mutated, err := testProcessor().Apply(m, Command{Kind: CmdGotoTag, Arg: "1"})
	if err != nil || mutated {
		t.Fatalf("Apply = (%v, %v), want silent no-op", mutated, err)
	}
}

func TestMoveWindowToTag(t *testing.T) {
	m := newTestModel("1", "2")
	addTestWindow(m, 7, "1")
	ws := m.ActiveWorkspace()
	SetFocus(ws, m, 7)

	mutated, err := testProcessor().Apply(m, Command{Kind: CmdMoveWindowToTag, Arg: "2"})
	if err != nil || !mutated {
		t.Fatalf("Apply = (%v, %v)", mutated, err)
	}
	w := m.Window(7)
	if len(w.Tags) != 1 || w.Tags[0] != "2" {
		t.Fatalf("window tags = %v, want [2]", w.Tags)
	}
	if ws.Focused == 7 {
		t.Error("focus should have left the moved window")
	}
}

func TestMoveWindowToTag_NoFocusedWindowIsNoop(t *testing.T) {
	m := newTestModel("1", "2")
	mutated, err := testProcessor().Apply(m, Command{Kind: CmdMoveWindowToTag, Arg: "2"})
	if err != nil || mutated {
		t.Fatalf("Apply = (%v, %v), want silent no-op", mutated, err)
	}
}

func TestSwapWindows(t *testing.T) {
	m := newTestModel("1")
	addTestWindow(m, 5, "1")
	addTestWindow(m, 6, "1")

	mutated, err := testProcessor().Apply(m, Command{Kind: CmdSwapWindows, Target: 5, Target2: 6})
	if err != nil || !mutated {
		t.Fatalf("Apply = (%v, %v)", mutated, err)
	}
	windows := m.Tag("1").Windows
	if windows[0] != 6 || windows[1] != 5 {
		t.Fatalf("tag order = %v, want [6 5]", windows)
	}
}

func TestToggleFloating_CarriesGeometry(t *testing.T) {
	m := newTestModel("1")
	w := addTestWindow(m, 7, "1")
	w.Geom = layout.Rect{X: 10, Y: 20, Width: 300, Height: 200}
	SetFocus(m.ActiveWorkspace(), m, 7)

	mutated, _ := testProcessor().Apply(m, Command{Kind: CmdToggleFloating})
	if !mutated || !w.Floating {
		t.Fatal("window should be floating")
	}
	if w.FloatingGeom != w.Geom {
		t.Errorf("floating geometry = %v, want carried %v", w.FloatingGeom, w.Geom)
	}

	testProcessor().Apply(m, Command{Kind: CmdToggleFloating})
	if w.Floating {
		t.Error("second toggle should tile the window again")
	}
}

func TestSetLayout(t *testing.T) {
	m := newTestModel("1")
	p := testProcessor()

	mutated, err := p.Apply(m, Command{Kind: CmdSetLayout, Arg: "grid"})
	if err != nil || !mutated {
		t.Fatalf("Apply = (%v, %v)", mutated, err)
	}
	if got := m.Tag("1").Layout; got != "grid" {
		t.Fatalf("layout = %q, want grid", got)
	}

	if _, err := p.Apply(m, Command{Kind: CmdSetLayout, Arg: "bogus"}); err == nil {
		t.Fatal("unknown layout must be rejected")
	}
}

func TestCycleLayout(t *testing.T) {
	m := newTestModel("1")
	p := testProcessor()
	m.Tag("1").Layout = layout.Names()[0]

	p.Apply(m, Command{Kind: CmdNextLayout})
	if got := m.Tag("1").Layout; got != layout.Names()[1] {
		t.Fatalf("layout = %q, want %q", got, layout.Names()[1])
	}
	p.Apply(m, Command{Kind: CmdPrevLayout})
	if got := m.Tag("1").Layout; got != layout.Names()[0] {
		t.Fatalf("layout = %q, want %q after cycling back", got, layout.Names()[0])
	}
}

func TestAdjustMainRatio_Clamped(t *testing.T) {
	m := newTestModel("1")
	p := testProcessor()
	tag := m.Tag("1")
	tag.Params.MainRatio = 0.88

	p.Apply(m, Command{Kind: CmdIncMainRatio})
	if tag.Params.MainRatio != mainRatioMax {
		t.Fatalf("ratio = %v, want clamped to %v", tag.Params.MainRatio, mainRatioMax)
	}
	// At the clamp, another increment changes nothing.
	mutated, _ := p.Apply(m, Command{Kind: CmdIncMainRatio})
	if mutated {
		t.Fatal("increment at the clamp should be a no-op")
	}
}

func TestCloseWindow_MarksPending(t *testing.T) {
	m := newTestModel("1")
	addTestWindow(m, 7, "1")
	SetFocus(m.ActiveWorkspace(), m, 7)

	mutated, _ := testProcessor().Apply(m, Command{Kind: CmdCloseWindow})
	if !mutated {
		t.Fatal("close should mutate the model")
	}
	pending := m.TakePendingCloses()
	if len(pending) != 1 || pending[0] != 7 {
		t.Fatalf("pending closes = %v, want [7]", pending)
	}
	// Closing does not remove the window; destruction comes from the server.
	if m.Window(7) == nil {
		t.Fatal("window must remain managed until the server reports destroy")
	}
}

func TestUnknownCommand_Rejected(t *testing.T) {
	m := newTestModel("1")
	if _, err := testProcessor().Apply(m, Command{Kind: "frobnicate"}); err == nil {
		t.Fatal("unknown command must be rejected")
	}
}
