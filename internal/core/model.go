package core

import (
	"fmt"
	"log/slog"

	"github.com/tagwm/tagwm/internal/layout"
)

// WindowID is the opaque display-server handle for a window.
type WindowID uint32

// Visibility is the display state of a window as the model wants it.
type Visibility int

const (
	VisibilityMapped Visibility = iota
	VisibilityHidden
	VisibilityFloating
)

func (v Visibility) String() string {
	switch v {
	case VisibilityMapped:
		return "mapped"
	case VisibilityHidden:
		return "hidden"
	case VisibilityFloating:
		return "floating"
	}
	return "unknown"
}

// WindowProps carries the display-server-reported properties of a window at
// creation or property-change time.
type WindowProps struct {
	Name         string
	Class        string
	TransientFor WindowID
	FloatingHint bool
	StrutHint    bool
	Urgent       bool
	Geom         layout.Rect
}

// Window is one managed window. Geometry of non-floating windows is always
// layout-derived; FloatingGeom survives layout recomputation.
type Window struct {
	ID           WindowID
	Name         string
	Class        string
	Geom         layout.Rect
	BorderWidth  int
	Visibility   Visibility
	Tags         []string
	Floating     bool
	FloatingGeom layout.Rect
	Fullscreen   bool
	TransientFor WindowID
	Urgent       bool
	Strut        bool
	MapSeq       uint64
}

// HasTag reports whether the window is assigned to the named tag.
func (w *Window) HasTag(name string) bool {
	for _, t := range w.Tags {
		if t == name {
			return true
		}
	}
	return false
}

// Tag is a named window group. The window list order is the stacking hint
// handed to the layout oracle.
type Tag struct {
	Name    string
	Label   string
	Windows []WindowID
	Layout  string
	Params  layout.Params
}

func (t *Tag) contains(id WindowID) bool {
	for _, w := range t.Windows {
		if w == id {
			return true
		}
	}
	return false
}

func (t *Tag) remove(id WindowID) bool {
	for i, w := range t.Windows {
		if w == id {
			t.Windows = append(t.Windows[:i], t.Windows[i+1:]...)
			return true
		}
	}
	return false
}

// Workspace is a logical display surface bound to a screen. A parked
// workspace kept its tags but lost its screen to hotplug.
type Workspace struct {
	ID      int
	Region  layout.Rect
	Tags    []string
	Focused WindowID
	Parked  bool
	Screen  string
}

func (ws *Workspace) displays(tag string) bool {
	for _, t := range ws.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Screen is a physical output as reported by the display server.
type Screen struct {
	Name string
	Geom layout.Rect
}

// AdoptionPolicy selects where untracked windows land when adopted.
type AdoptionPolicy int

const (
	AdoptToActiveTag AdoptionPolicy = iota
	AdoptToScratchTag
)

// FocusMode selects when pointer crossings may change focus.
type FocusMode int

const (
	ClickToFocus FocusMode = iota
	FocusFollowsPointer
)

// Policy is the configured behaviour the model consults during mutation.
type Policy struct {
	Adoption   AdoptionPolicy
	ScratchTag string
	FocusMode  FocusMode
}

// Model is the single source of truth. It is owned by the event loop and
// mutated only within a turn; no component holds a reference across turns.
type Model struct {
	windows      map[WindowID]*Window
	tags         []*Tag
	tagIndex     map[string]*Tag
	Workspaces   []*Workspace
	Screens      []Screen
	Active       int
	Policy       Policy
	history      map[int]*FocusHistory
	pendingClose map[WindowID]struct{}
	hover        WindowID
	mapSeq       uint64
}

// NewModel builds a model with the configured tags and no windows or
// workspaces; workspaces appear when screens are reconciled.
func NewModel(tags []*Tag, policy Policy) *Model {
	m := &Model{
		windows:      make(map[WindowID]*Window),
		tagIndex:     make(map[string]*Tag, len(tags)),
		history:      make(map[int]*FocusHistory),
		pendingClose: make(map[WindowID]struct{}),
		Policy:       policy,
	}
	for _, t := range tags {
		m.tags = append(m.tags, t)
		m.tagIndex[t.Name] = t
	}
	return m
}

// Window returns the window for id, or nil.
func (m *Model) Window(id WindowID) *Window {
	return m.windows[id]
}

// Windows returns all managed windows, unordered.
func (m *Model) Windows() []*Window {
	out := make([]*Window, 0, len(m.windows))
	for _, w := range m.windows {
		out = append(out, w)
	}
	return out
}

// WindowCount returns the number of managed windows.
func (m *Model) WindowCount() int { return len(m.windows) }

// Tags returns the configured tags in order.
func (m *Model) Tags() []*Tag { return m.tags }

// Tag returns the named tag, or nil.
func (m *Model) Tag(name string) *Tag { return m.tagIndex[name] }

// ActiveWorkspace returns the workspace owning the active screen, or nil
// before any screen is known.
func (m *Model) ActiveWorkspace() *Workspace {
	if m.Active < 0 || m.Active >= len(m.Workspaces) {
		return nil
	}
	return m.Workspaces[m.Active]
}

// WorkspaceDisplaying returns the workspace currently showing the tag, or nil.
// At most one workspace displays a tag at any instant.
func (m *Model) WorkspaceDisplaying(tag string) *Workspace {
	for _, ws := range m.Workspaces {
		if !ws.Parked && ws.displays(tag) {
			return ws
		}
	}
	return nil
}

// WorkspaceHolding returns the workspace whose tag set contains the tag,
// parked workspaces included, or nil. Parked workspaces keep their tags while
// hidden, so any tag reassignment has to consider them too.
func (m *Model) WorkspaceHolding(tag string) *Workspace {
	for _, ws := range m.Workspaces {
		if ws.displays(tag) {
			return ws
		}
	}
	return nil
}

// History returns the focus history for a workspace, creating it on demand.
func (m *Model) History(wsID int) *FocusHistory {
	h, ok := m.history[wsID]
	if !ok {
		h = NewFocusHistory(focusHistoryCap)
		m.history[wsID] = h
	}
	return h
}

// NextMapSeq advances and returns the monotonic map sequence counter used to
// rank "most recently mapped".
func (m *Model) NextMapSeq() uint64 {
	m.mapSeq++
	return m.mapSeq
}

// Hover returns the window last crossed by the pointer.
func (m *Model) Hover() WindowID { return m.hover }

// SetHover records the pointer-crossing hint without changing focus.
func (m *Model) SetHover(id WindowID) { m.hover = id }

// AddWindow inserts a window into the model and its tags' window lists.
// Adding an already-known id is a no-op returning false.
func (m *Model) AddWindow(w *Window) bool {
	if _, ok := m.windows[w.ID]; ok {
		return false
	}
	if w.MapSeq == 0 {
		w.MapSeq = m.NextMapSeq()
	}
	m.windows[w.ID] = w
	for _, name := range w.Tags {
		if t := m.tagIndex[name]; t != nil && !t.contains(w.ID) {
			t.Windows = append(t.Windows, w.ID)
		}
	}
	return true
}

// RemoveWindow deletes a window and cascades the removal to every tag,
// workspace focus field, focus history and the pending-close set.
func (m *Model) RemoveWindow(id WindowID) bool {
	if _, ok := m.windows[id]; !ok {
		return false
	}
	delete(m.windows, id)
	delete(m.pendingClose, id)
	for _, t := range m.tags {
		t.remove(id)
	}
	for _, ws := range m.Workspaces {
		if ws.Focused == id {
			ws.Focused = 0
		}
	}
	for _, h := range m.history {
		h.Remove(id)
	}
	if m.hover == id {
		m.hover = 0
	}
	return true
}

// RetagWindow reassigns a window to exactly the given tags, updating the tag
// window lists to match.
func (m *Model) RetagWindow(id WindowID, tags []string) bool {
	w := m.windows[id]
	if w == nil {
		return false
	}
	for _, t := range m.tags {
		t.remove(id)
	}
	w.Tags = append([]string(nil), tags...)
	for _, name := range tags {
		if t := m.tagIndex[name]; t != nil {
			t.Windows = append(t.Windows, id)
		}
	}
	return true
}

// RequestClose marks a window for a polite close request on the next emit.
func (m *Model) RequestClose(id WindowID) bool {
	if _, ok := m.windows[id]; !ok {
		return false
	}
	m.pendingClose[id] = struct{}{}
	return true
}

// TakePendingCloses drains and returns the pending-close set.
func (m *Model) TakePendingCloses() []WindowID {
	if len(m.pendingClose) == 0 {
		return nil
	}
	out := make([]WindowID, 0, len(m.pendingClose))
	for id := range m.pendingClose {
		out = append(out, id)
	}
	m.pendingClose = make(map[WindowID]struct{})
	return out
}

// VisibleWindows returns the windows shown on a workspace: the union of its
// displayed tags' window lists in tag order, tiled before floating.
func (m *Model) VisibleWindows(ws *Workspace) []*Window {
	if ws == nil || ws.Parked {
		return nil
	}
	var tiled, floating []*Window
	seen := make(map[WindowID]struct{})
	for _, name := range ws.Tags {
		t := m.tagIndex[name]
		if t == nil {
			continue
		}
		for _, id := range t.Windows {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			w := m.windows[id]
			if w == nil {
				continue
			}
			if w.Floating || w.TransientFor != 0 {
				floating = append(floating, w)
			} else {
				tiled = append(tiled, w)
			}
		}
	}
	return append(tiled, floating...)
}

// Check verifies invariants and returns the first violation found. It is a
// test and self-heal hook, not part of the hot path.
func (m *Model) Check() error {
	displayed := make(map[string]int)
	for _, ws := range m.Workspaces {
		if !ws.Parked && len(ws.Tags) == 0 {
			return fmt.Errorf("workspace %d displays no tags", ws.ID)
		}
		for _, name := range ws.Tags {
			if ws.Parked {
				continue
			}
			if prev, ok := displayed[name]; ok {
				return fmt.Errorf("tag %q displayed on workspaces %d and %d", name, prev, ws.ID)
			}
			displayed[name] = ws.ID
		}
		if ws.Focused != 0 {
			if _, ok := m.windows[ws.Focused]; !ok {
				return fmt.Errorf("workspace %d focused on missing window %d", ws.ID, ws.Focused)
			}
		}
	}
	for id, w := range m.windows {
		if !w.Floating && w.Visibility != VisibilityHidden && len(w.Tags) == 0 {
			return fmt.Errorf("mapped non-floating window %d has no tags", id)
		}
	}
	for _, t := range m.tags {
		for _, id := range t.Windows {
			if _, ok := m.windows[id]; !ok {
				return fmt.Errorf("tag %q references missing window %d", t.Name, id)
			}
		}
	}
	for wsID, h := range m.history {
		for _, id := range h.stack {
			if _, ok := m.windows[id]; !ok {
				return fmt.Errorf("focus history of workspace %d references missing window %d", wsID, id)
			}
		}
	}
	return nil
}

// SelfHeal prunes dangling window references from tags, workspace focus
// fields and focus histories, logging each prune. Returns the prune count.
func (m *Model) SelfHeal(logger *slog.Logger) int {
	pruned := 0
	for _, t := range m.tags {
		kept := t.Windows[:0]
		for _, id := range t.Windows {
			if _, ok := m.windows[id]; ok {
				kept = append(kept, id)
				continue
			}
			pruned++
			if logger != nil {
				logger.Warn("model.selfheal", "where", "tag", "tag", t.Name, "window", uint32(id))
			}
		}
		t.Windows = kept
	}
	for _, ws := range m.Workspaces {
		if ws.Focused != 0 {
			if _, ok := m.windows[ws.Focused]; !ok {
				pruned++
				if logger != nil {
					logger.Warn("model.selfheal", "where", "workspace-focus", "workspace", ws.ID, "window", uint32(ws.Focused))
				}
				ws.Focused = 0
			}
		}
	}
	for wsID, h := range m.history {
		kept := h.stack[:0]
		for _, id := range h.stack {
			if _, ok := m.windows[id]; ok {
				kept = append(kept, id)
				continue
			}
			pruned++
			if logger != nil {
				logger.Warn("model.selfheal", "where", "history", "workspace", wsID, "window", uint32(id))
			}
		}
		h.stack = kept
	}
	return pruned
}

const focusHistoryCap = 10

// FocusHistory is a bounded stack of previously focused windows, most recent
// first.
type FocusHistory struct {
	stack []WindowID
	cap   int
}

// NewFocusHistory creates a history bounded to max entries.
func NewFocusHistory(max int) *FocusHistory {
	if max <= 0 {
		max = focusHistoryCap
	}
	return &FocusHistory{cap: max}
}

// Push records a focus change. The id moves to the front; the stack is
// trimmed to capacity.
func (h *FocusHistory) Push(id WindowID) {
	if id == 0 {
		return
	}
	h.Remove(id)
	h.stack = append([]WindowID{id}, h.stack...)
	if len(h.stack) > h.cap {
		h.stack = h.stack[:h.cap]
	}
}

// Remove drops every occurrence of id.
func (h *FocusHistory) Remove(id WindowID) {
	kept := h.stack[:0]
	for _, e := range h.stack {
		if e != id {
			kept = append(kept, e)
		}
	}
	h.stack = kept
}

// Entries returns the stack, most recent first.
func (h *FocusHistory) Entries() []WindowID {
	return append([]WindowID(nil), h.stack...)
}

// Len returns the number of entries.
func (h *FocusHistory) Len() int { return len(h.stack) }
