package core

import (
	"sort"

	"github.com/tagwm/tagwm/internal/layout"
)

// ActionKind names one display-server operation.
type ActionKind int

const (
	ActionMapWindow ActionKind = iota
	ActionUnmapWindow
	ActionMoveResizeWindow
	ActionRaiseWindow
	ActionSetFocusedWindow
	ActionSetBorderColor
	ActionCloseWindow
)

func (k ActionKind) String() string {
	switch k {
	case ActionMapWindow:
		return "map"
	case ActionUnmapWindow:
		return "unmap"
	case ActionMoveResizeWindow:
		return "move-resize"
	case ActionRaiseWindow:
		return "raise"
	case ActionSetFocusedWindow:
		return "set-focused"
	case ActionSetBorderColor:
		return "set-border"
	case ActionCloseWindow:
		return "close"
	}
	return "unknown"
}

// BorderState selects which configured border color a window gets.
type BorderState int

const (
	BorderNormal BorderState = iota
	BorderFocused
	BorderUrgent
)

// DisplayAction is one operation for the display adapter. Geom is meaningful
// for move-resize, Border for set-border, and ID is zero for a
// set-focused that clears focus to the root.
type DisplayAction struct {
	Kind   ActionKind
	ID     WindowID
	Geom   layout.Rect
	Border BorderState
}

type emittedWindow struct {
	mapped bool
	geom   layout.Rect
	border BorderState
}

type emittedState struct {
	windows map[WindowID]emittedWindow
	focused WindowID
}

func newEmittedState() emittedState {
	return emittedState{windows: make(map[WindowID]emittedWindow)}
}

// Emitter diffs the model against the last state it emitted and produces the
// minimal ordered action batch that converges the display server.
//
// Ordering within a batch: unmaps, then maps, then geometry, then borders,
// then the single focus set, then raises, then close requests. Unmapping
// before mapping avoids a visible flash of an about-to-be-hidden window
// holding focus.
type Emitter struct {
	oracle  layout.Oracle
	gap     int
	borders bool
	prev    emittedState
	staged  *emittedState
}

// NewEmitter creates an emitter using the oracle for tiled geometry, with the
// configured gap between windows. When borders is false no border actions are
// produced.
func NewEmitter(oracle layout.Oracle, gap int, borders bool) *Emitter {
	return &Emitter{oracle: oracle, gap: gap, borders: borders, prev: newEmittedState()}
}

// Emit computes the batch converging the server to the model. The emitted
// snapshot is staged; call Commit once the batch has been accepted for
// dispatch. Emitting twice against an unchanged model without a Commit in
// between yields the same batch; after Commit it yields an empty one.
func (e *Emitter) Emit(m *Model) []DisplayAction {
	desired := newEmittedState()
	var stacking []WindowID

	for wsIdx, ws := range m.Workspaces {
		if ws.Parked {
			continue
		}
		order := e.placeWorkspace(m, ws, &desired)
		stacking = append(stacking, order...)
		if wsIdx == m.Active {
			desired.focused = ws.Focused
		}
	}

	// Reflect the desired state back into the window table; the emitter is
	// the only writer of non-floating geometry.
	for _, w := range m.Windows() {
		d, ok := desired.windows[w.ID]
		if !ok || !d.mapped {
			w.Visibility = VisibilityHidden
			continue
		}
		w.Geom = d.geom
		if w.Floating || w.TransientFor != 0 {
			w.Visibility = VisibilityFloating
		} else {
			w.Visibility = VisibilityMapped
		}
	}

	batch := e.diff(m, desired, stacking)
	staged := desired
	e.staged = &staged
	return batch
}

// Commit promotes the staged snapshot. Call only after the corresponding
// batch has been accepted for dispatch.
func (e *Emitter) Commit() {
	if e.staged != nil {
		e.prev = *e.staged
		e.staged = nil
	}
}

// placeWorkspace fills desired with this workspace's windows and returns
// their stacking order, bottom to top.
func (e *Emitter) placeWorkspace(m *Model, ws *Workspace, desired *emittedState) []WindowID {
	var order []WindowID
	placed := make(map[WindowID]bool)

	// Tiled windows are laid out per displayed tag; oracle output order is
	// the stacking order.
	for _, tagName := range ws.Tags {
		t := m.Tag(tagName)
		if t == nil {
			continue
		}
		var slots []layout.Slot
		for _, id := range t.Windows {
			w := m.Window(id)
			if w == nil || placed[id] || w.Floating || w.TransientFor != 0 || w.Fullscreen {
				continue
			}
			placed[id] = true
			slots = append(slots, layout.Slot{ID: uint32(id), Focused: id == ws.Focused})
		}
		if len(slots) == 0 {
			continue
		}
		spec := layout.Spec{Name: t.Layout, Params: t.Params, Gap: e.gap}
		for _, p := range e.oracle.Compute(slots, spec, ws.Region) {
			id := WindowID(p.ID)
			if p.Hidden {
				desired.windows[id] = emittedWindow{mapped: false}
				continue
			}
			desired.windows[id] = emittedWindow{
				mapped: true,
				geom:   p.Rect,
				border: e.borderFor(m, ws, id),
			}
			order = append(order, id)
		}
	}

	// Floating and transient windows keep their own geometry, above tiled.
	for _, w := range m.VisibleWindows(ws) {
		if !w.Floating && w.TransientFor == 0 {
			continue
		}
		if w.Fullscreen {
			continue
		}
		geom := w.FloatingGeom
		if geom.Width == 0 || geom.Height == 0 {
			geom = centered(ws.Region, w.Geom)
		}
		desired.windows[w.ID] = emittedWindow{
			mapped: true,
			geom:   geom,
			border: e.borderFor(m, ws, w.ID),
		}
		order = append(order, w.ID)
	}

	// Fullscreen windows take the whole workspace region, topmost.
	for _, w := range m.VisibleWindows(ws) {
		if !w.Fullscreen {
			continue
		}
		desired.windows[w.ID] = emittedWindow{
			mapped: true,
			geom:   ws.Region,
			border: e.borderFor(m, ws, w.ID),
		}
		order = append(order, w.ID)
	}
	return order
}

func (e *Emitter) borderFor(m *Model, ws *Workspace, id WindowID) BorderState {
	if w := m.Window(id); w != nil && w.Urgent {
		return BorderUrgent
	}
	if id == ws.Focused {
		return BorderFocused
	}
	return BorderNormal
}

func (e *Emitter) diff(m *Model, desired emittedState, stacking []WindowID) []DisplayAction {
	var unmaps, maps, moves, borders, raises []DisplayAction

	for id, prev := range e.prev.windows {
		if m.Window(id) == nil {
			// Destroyed server-side; nothing to converge.
			continue
		}
		d, ok := desired.windows[id]
		if prev.mapped && (!ok || !d.mapped) {
			unmaps = append(unmaps, DisplayAction{Kind: ActionUnmapWindow, ID: id})
		}
	}
	sort.Slice(unmaps, func(i, j int) bool { return unmaps[i].ID < unmaps[j].ID })

	newlyMapped := make(map[WindowID]bool)
	for _, id := range stacking {
		d := desired.windows[id]
		if !d.mapped {
			continue
		}
		prev, known := e.prev.windows[id]
		if !known || !prev.mapped {
			maps = append(maps, DisplayAction{Kind: ActionMapWindow, ID: id})
			newlyMapped[id] = true
			if w := m.Window(id); w != nil {
				w.MapSeq = m.NextMapSeq()
			}
		}
		if !known || !prev.mapped || prev.geom != d.geom {
			moves = append(moves, DisplayAction{Kind: ActionMoveResizeWindow, ID: id, Geom: d.geom})
		}
		if e.borders && (!known || !prev.mapped || prev.border != d.border) {
			borders = append(borders, DisplayAction{Kind: ActionSetBorderColor, ID: id, Border: d.border})
		}
	}

	var focus []DisplayAction
	focusChanged := desired.focused != e.prev.focused
	if focusChanged {
		focus = append(focus, DisplayAction{Kind: ActionSetFocusedWindow, ID: desired.focused})
	}

	// Raise newly mapped windows in stacking order; the focused window is
	// raised last so it ends on top.
	raised := make(map[WindowID]bool)
	for _, id := range stacking {
		if newlyMapped[id] && id != desired.focused {
			raises = append(raises, DisplayAction{Kind: ActionRaiseWindow, ID: id})
			raised[id] = true
		}
	}
	if desired.focused != 0 && (focusChanged || newlyMapped[desired.focused]) && !raised[desired.focused] {
		raises = append(raises, DisplayAction{Kind: ActionRaiseWindow, ID: desired.focused})
	}

	batch := make([]DisplayAction, 0, len(unmaps)+len(maps)+len(moves)+len(borders)+len(focus)+len(raises))
	batch = append(batch, unmaps...)
	batch = append(batch, maps...)
	batch = append(batch, moves...)
	batch = append(batch, borders...)
	batch = append(batch, focus...)
	batch = append(batch, raises...)

	for _, id := range m.TakePendingCloses() {
		batch = append(batch, DisplayAction{Kind: ActionCloseWindow, ID: id})
	}
	return batch
}

// centered places a rect of the window's natural size in the middle of the
// workspace, for floats that never reported a usable geometry.
func centered(region, natural layout.Rect) layout.Rect {
	w, h := natural.Width, natural.Height
	if w <= 0 || w > region.Width {
		w = region.Width / 2
	}
	if h <= 0 || h > region.Height {
		h = region.Height / 2
	}
	return layout.Rect{
		X:      region.X + (region.Width-w)/2,
		Y:      region.Y + (region.Height-h)/2,
		Width:  w,
		Height: h,
	}
}
