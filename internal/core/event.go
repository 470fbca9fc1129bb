package core

import (
	"log/slog"
)

// DisplayEvent is one observation from the display server. The set is closed;
// the adapter drops anything it cannot translate.
type DisplayEvent interface {
	displayEvent()
}

// WindowCreated reports a window the server wants managed (map request or an
// existing window found during the adoption scan).
type WindowCreated struct {
	ID    WindowID
	Props WindowProps
}

// WindowDestroyed reports a window gone from the server.
type WindowDestroyed struct {
	ID WindowID
}

// WindowPropertyChanged reports a property update on a managed window.
type WindowPropertyChanged struct {
	ID    WindowID
	Prop  string
	Props WindowProps
}

// PointerEnteredWindow reports the pointer crossing into a window.
type PointerEnteredWindow struct {
	ID WindowID
}

// KeyComboPressed reports a grabbed key combination firing.
type KeyComboPressed struct {
	Combo string
}

// ScreensChanged reports the full new output list after a hotplug.
type ScreensChanged struct {
	Screens []Screen
}

func (WindowCreated) displayEvent()         {}
func (WindowDestroyed) displayEvent()       {}
func (WindowPropertyChanged) displayEvent() {}
func (PointerEnteredWindow) displayEvent()  {}
func (KeyComboPressed) displayEvent()       {}
func (ScreensChanged) displayEvent()        {}

// Reconciler folds display events into the model so it never diverges from
// what the server actually shows.
type Reconciler struct {
	logger *slog.Logger
}

// NewReconciler creates a reconciler emitting diagnostics to logger.
func NewReconciler(logger *slog.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

// Reconcile applies one event to the model. The boolean reports whether the
// model changed. KeyComboPressed is not handled here; the event loop
// translates it to a command first.
func (r *Reconciler) Reconcile(m *Model, ev DisplayEvent) bool {
	switch e := ev.(type) {
	case WindowCreated:
		return r.adopt(m, e)
	case WindowDestroyed:
		return r.destroy(m, e.ID)
	case WindowPropertyChanged:
		return r.propertyChanged(m, e)
	case PointerEnteredWindow:
		return r.pointerEntered(m, e.ID)
	case ScreensChanged:
		return r.screensChanged(m, e.Screens)
	default:
		return false
	}
}

// adopt brings a server-reported window under management. Already-known ids
// are ignored so a remap does not double-manage the window.
func (r *Reconciler) adopt(m *Model, e WindowCreated) bool {
	if m.Window(e.ID) != nil {
		return false
	}
	tags := r.adoptionTags(m)
	w := &Window{
		ID:           e.ID,
		Name:         e.Props.Name,
		Class:        e.Props.Class,
		Geom:         e.Props.Geom,
		Tags:         tags,
		Floating:     e.Props.FloatingHint,
		TransientFor: e.Props.TransientFor,
		Strut:        e.Props.StrutHint,
		Urgent:       e.Props.Urgent,
	}
	if w.Floating || w.TransientFor != 0 {
		w.FloatingGeom = e.Props.Geom
		w.Visibility = VisibilityFloating
	}
	if !m.AddWindow(w) {
		return false
	}
	if r.logger != nil {
		r.logger.Info("window.adopted",
			"window", uint32(e.ID),
			"class", e.Props.Class,
			"tags", tags)
	}
	if ws := m.WorkspaceDisplaying(firstTag(tags)); ws != nil {
		SetFocus(ws, m, e.ID)
	}
	return true
}

func firstTag(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return tags[0]
}

// adoptionTags resolves the configured adoption policy to a concrete tag set.
func (r *Reconciler) adoptionTags(m *Model) []string {
	if m.Policy.Adoption == AdoptToScratchTag && m.Policy.ScratchTag != "" {
		if m.Tag(m.Policy.ScratchTag) != nil {
			return []string{m.Policy.ScratchTag}
		}
	}
	if ws := m.ActiveWorkspace(); ws != nil && len(ws.Tags) > 0 {
		return append([]string(nil), ws.Tags...)
	}
	if tags := m.Tags(); len(tags) > 0 {
		return []string{tags[0].Name}
	}
	return nil
}

func (r *Reconciler) destroy(m *Model, id WindowID) bool {
	if !m.RemoveWindow(id) {
		return false
	}
	// Focus falls back through the history on every workspace that lost it.
	for _, ws := range m.Workspaces {
		ApplyFocus(ws, m)
	}
	return true
}

func (r *Reconciler) propertyChanged(m *Model, e WindowPropertyChanged) bool {
	w := m.Window(e.ID)
	if w == nil {
		return false
	}
	changed := false
	switch e.Prop {
	case "name":
		if w.Name != e.Props.Name {
			w.Name = e.Props.Name
			changed = true
		}
	case "urgent":
		if w.Urgent != e.Props.Urgent {
			w.Urgent = e.Props.Urgent
			changed = true
		}
	case "transient":
		if w.TransientFor != e.Props.TransientFor {
			w.TransientFor = e.Props.TransientFor
			changed = true
		}
	case "strut":
		if w.Strut != e.Props.StrutHint {
			w.Strut = e.Props.StrutHint
			changed = true
		}
	}
	return changed
}

// pointerEntered changes focus only in focus-follows-pointer mode; in
// click-to-focus it just records the hover hint.
func (r *Reconciler) pointerEntered(m *Model, id WindowID) bool {
	if m.Window(id) == nil {
		return false
	}
	m.SetHover(id)
	if m.Policy.FocusMode != FocusFollowsPointer {
		return false
	}
	for i, ws := range m.Workspaces {
		if ws.Parked {
			continue
		}
		for _, w := range m.VisibleWindows(ws) {
			if w.ID == id {
				changed := SetFocus(ws, m, id)
				if m.Active != i {
					m.Active = i
					changed = true
				}
				return changed
			}
		}
	}
	return false
}

// screensChanged rebinds workspaces to the new output list. Surviving screens
// keep their workspace (matched by name, then by origin); vanished screens
// park theirs; new screens unpark or create a workspace showing the next
// unclaimed tag.
func (r *Reconciler) screensChanged(m *Model, screens []Screen) bool {
	changed := false
	claimed := make(map[int]bool)

	// Pass 1: match by output name.
	bound := make(map[string]int)
	for i, ws := range m.Workspaces {
		bound[ws.Screen] = i
	}
	assigned := make([]int, len(screens))
	for i := range assigned {
		assigned[i] = -1
	}
	for si, s := range screens {
		if wi, ok := bound[s.Name]; ok && !claimed[wi] {
			assigned[si] = wi
			claimed[wi] = true
		}
	}
	// Pass 2: remaining screens take the nearest unclaimed workspace by origin.
	for si, s := range screens {
		if assigned[si] >= 0 {
			continue
		}
		best, bestDist := -1, 0
		for wi, ws := range m.Workspaces {
			if claimed[wi] {
				continue
			}
			d := absInt(ws.Region.X-s.Geom.X) + absInt(ws.Region.Y-s.Geom.Y)
			if best == -1 || d < bestDist {
				best, bestDist = wi, d
			}
		}
		if best >= 0 {
			assigned[si] = best
			claimed[best] = true
		}
	}

	for si, s := range screens {
		wi := assigned[si]
		if wi >= 0 {
			ws := m.Workspaces[wi]
			if ws.Parked || ws.Screen != s.Name || ws.Region != s.Geom {
				changed = true
			}
			wasParked := ws.Parked
			if wasParked {
				r.reclaimTags(m, ws)
				if len(ws.Tags) == 0 {
					// Every tag is taken and none is free; the workspace
					// cannot come back without displaying something.
					if r.logger != nil {
						r.logger.Warn("screen.rebound", "screen", s.Name, "workspace", ws.ID, "error", "no tag left to display")
					}
					continue
				}
			}
			ws.Parked = false
			ws.Screen = s.Name
			ws.Region = s.Geom
			if wasParked && r.logger != nil {
				r.logger.Info("screen.rebound", "screen", s.Name, "workspace", ws.ID, "tags", ws.Tags)
			}
			continue
		}
		// Brand new screen: new workspace showing the next unclaimed tag.
		tag := r.nextUnclaimedTag(m)
		if tag == "" {
			if r.logger != nil {
				r.logger.Warn("screen.rebound", "screen", s.Name, "error", "no free tag for new screen")
			}
			continue
		}
		ws := &Workspace{
			ID:     len(m.Workspaces),
			Region: s.Geom,
			Tags:   []string{tag},
			Screen: s.Name,
		}
		m.Workspaces = append(m.Workspaces, ws)
		claimed[ws.ID] = true
		changed = true
		if r.logger != nil {
			r.logger.Info("screen.rebound", "screen", s.Name, "workspace", ws.ID, "tags", ws.Tags)
		}
	}

	// Park workspaces whose screen vanished. Their tags stay assigned.
	for wi, ws := range m.Workspaces {
		if claimed[wi] || ws.Parked {
			continue
		}
		found := false
		for si := range screens {
			if assigned[si] == wi {
				found = true
				break
			}
		}
		if !found {
			ws.Parked = true
			changed = true
			if r.logger != nil {
				r.logger.Info("workspace.parked", "workspace", ws.ID, "screen", ws.Screen, "tags", ws.Tags)
			}
		}
	}

	m.Screens = append([]Screen(nil), screens...)
	if active := m.ActiveWorkspace(); active == nil || active.Parked {
		for i, ws := range m.Workspaces {
			if !ws.Parked {
				m.Active = i
				break
			}
		}
	}
	return changed
}

// reclaimTags prepares a parked workspace for unparking: tags another
// workspace started displaying while this one was parked are dropped, and an
// emptied tag set is refilled from the unclaimed pool.
func (r *Reconciler) reclaimTags(m *Model, ws *Workspace) {
	kept := ws.Tags[:0]
	for _, name := range ws.Tags {
		if other := m.WorkspaceDisplaying(name); other != nil && other != ws {
			if r.logger != nil {
				r.logger.Warn("screen.rebound", "workspace", ws.ID, "tag", name, "error", "tag taken while parked")
			}
			continue
		}
		kept = append(kept, name)
	}
	ws.Tags = kept
	if len(ws.Tags) == 0 {
		if tag := r.nextUnclaimedTag(m); tag != "" {
			ws.Tags = []string{tag}
		}
	}
}

// nextUnclaimedTag returns the first configured tag no workspace displays.
func (r *Reconciler) nextUnclaimedTag(m *Model) string {
	shown := make(map[string]bool)
	for _, ws := range m.Workspaces {
		for _, t := range ws.Tags {
			shown[t] = true
		}
	}
	for _, t := range m.Tags() {
		if !shown[t.Name] {
			return t.Name
		}
	}
	return ""
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
