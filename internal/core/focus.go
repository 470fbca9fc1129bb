package core

// RecomputeFocus decides which window should hold focus on a workspace after
// a mutation. Policy, in priority order:
//
//  1. keep the current focus if it is still visible on the workspace
//  2. first focus-history entry still visible on the workspace
//  3. most recently mapped visible window
//  4. none
//
// The second return value is false when the workspace should have no focus.
func RecomputeFocus(ws *Workspace, m *Model) (WindowID, bool) {
	if ws == nil || ws.Parked {
		return 0, false
	}
	visible := m.VisibleWindows(ws)
	if len(visible) == 0 {
		return 0, false
	}
	onWorkspace := make(map[WindowID]*Window, len(visible))
	for _, w := range visible {
		onWorkspace[w.ID] = w
	}

	if ws.Focused != 0 {
		if _, ok := onWorkspace[ws.Focused]; ok {
			return ws.Focused, true
		}
	}

	for _, id := range m.History(ws.ID).Entries() {
		if _, ok := onWorkspace[id]; ok {
			return id, true
		}
	}

	var best *Window
	for _, w := range visible {
		if best == nil || w.MapSeq > best.MapSeq {
			best = w
		}
	}
	return best.ID, true
}

// ApplyFocus runs the focus policy for a workspace and commits the result,
// recording the change in the focus history. Returns true when focus moved.
func ApplyFocus(ws *Workspace, m *Model) bool {
	id, ok := RecomputeFocus(ws, m)
	if !ok {
		changed := ws.Focused != 0
		ws.Focused = 0
		return changed
	}
	if ws.Focused == id {
		return false
	}
	ws.Focused = id
	m.History(ws.ID).Push(id)
	return true
}

// SetFocus forces focus to a specific window on its workspace, pushing the
// focus history. It is the explicit-command path; reconciliation uses
// ApplyFocus instead.
func SetFocus(ws *Workspace, m *Model, id WindowID) bool {
	if ws == nil || m.Window(id) == nil {
		return false
	}
	if ws.Focused == id {
		return false
	}
	ws.Focused = id
	m.History(ws.ID).Push(id)
	return true
}
