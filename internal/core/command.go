package core

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// CommandKind names one operation of the closed command set.
type CommandKind string

const (
	CmdFocusWindowNext    CommandKind = "focus-window-next"
	CmdFocusWindowPrev    CommandKind = "focus-window-prev"
	CmdFocusWorkspaceNext CommandKind = "focus-workspace-next"
	CmdFocusWorkspacePrev CommandKind = "focus-workspace-prev"
	CmdGotoTag            CommandKind = "goto-tag"
	CmdMoveWindowToTag    CommandKind = "move-to-tag"
	CmdSwapWindows        CommandKind = "swap-windows"
	CmdToggleFloating     CommandKind = "toggle-floating"
	CmdToggleFullscreen   CommandKind = "toggle-fullscreen"
	CmdSetLayout          CommandKind = "set-layout"
	CmdNextLayout         CommandKind = "next-layout"
	CmdPrevLayout         CommandKind = "prev-layout"
	CmdIncMainRatio       CommandKind = "inc-main-ratio"
	CmdDecMainRatio       CommandKind = "dec-main-ratio"
	CmdCloseWindow        CommandKind = "close-window"
	CmdSoftReload         CommandKind = "soft-reload"
	CmdExit               CommandKind = "exit"
)

// Command is one user operation. Arg carries a tag or layout name; Target and
// Target2 carry window ids where the command addresses specific windows.
type Command struct {
	Kind    CommandKind
	Arg     string
	Target  WindowID
	Target2 WindowID
}

// ParseCommand builds a Command from its wire name and argument, validating
// the shape but not the referenced entities. Used by IPC, keybindings and the
// MCP tools.
func ParseCommand(name, arg string) (Command, error) {
	kind := CommandKind(strings.TrimSpace(strings.ToLower(name)))
	switch kind {
	case CmdFocusWindowNext, CmdFocusWindowPrev,
		CmdFocusWorkspaceNext, CmdFocusWorkspacePrev,
		CmdToggleFloating, CmdToggleFullscreen,
		CmdNextLayout, CmdPrevLayout,
		CmdIncMainRatio, CmdDecMainRatio,
		CmdCloseWindow, CmdSoftReload, CmdExit:
		if arg != "" {
			return Command{}, fmt.Errorf("command %q takes no argument", kind)
		}
		return Command{Kind: kind}, nil
	case CmdGotoTag, CmdMoveWindowToTag, CmdSetLayout:
		if arg == "" {
			return Command{}, fmt.Errorf("command %q requires an argument", kind)
		}
		return Command{Kind: kind, Arg: arg}, nil
	case CmdSwapWindows:
		parts := strings.Fields(arg)
		if len(parts) != 2 {
			return Command{}, fmt.Errorf("command %q requires two window ids", kind)
		}
		a, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			return Command{}, fmt.Errorf("invalid window id %q: %w", parts[0], err)
		}
		b, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return Command{}, fmt.Errorf("invalid window id %q: %w", parts[1], err)
		}
		return Command{Kind: kind, Target: WindowID(a), Target2: WindowID(b)}, nil
	default:
		return Command{}, fmt.Errorf("unknown command %q", name)
	}
}

// Processor maps commands to model mutations. It never talks to the display
// server; a precondition miss is a silent no-op, a malformed command is a
// rejection surfaced as an error and a diagnostic.
type Processor struct {
	layouts []string
	logger  *slog.Logger
}

// NewProcessor creates a processor with the layout cycle order used by
// next-layout and prev-layout.
func NewProcessor(layouts []string, logger *slog.Logger) *Processor {
	return &Processor{layouts: layouts, logger: logger}
}

// Apply executes one command against the model. The boolean reports whether
// the model changed; an error means the command was rejected.
func (p *Processor) Apply(m *Model, c Command) (bool, error) {
	switch c.Kind {
	case CmdFocusWindowNext:
		return p.cycleFocus(m, 1), nil
	case CmdFocusWindowPrev:
		return p.cycleFocus(m, -1), nil
	case CmdFocusWorkspaceNext:
		return p.cycleWorkspace(m, 1), nil
	case CmdFocusWorkspacePrev:
		return p.cycleWorkspace(m, -1), nil
	case CmdGotoTag:
		return p.gotoTag(m, c.Arg)
	case CmdMoveWindowToTag:
		return p.moveToTag(m, c.Arg)
	case CmdSwapWindows:
		return p.swapWindows(m, c.Target, c.Target2), nil
	case CmdToggleFloating:
		return p.toggleFloating(m), nil
	case CmdToggleFullscreen:
		return p.toggleFullscreen(m), nil
	case CmdSetLayout:
		return p.setLayout(m, c.Arg)
	case CmdNextLayout:
		return p.cycleLayout(m, 1), nil
	case CmdPrevLayout:
		return p.cycleLayout(m, -1), nil
	case CmdIncMainRatio:
		return p.adjustMainRatio(m, mainRatioStep), nil
	case CmdDecMainRatio:
		return p.adjustMainRatio(m, -mainRatioStep), nil
	case CmdCloseWindow:
		return p.closeWindow(m), nil
	case CmdSoftReload, CmdExit:
		// Loop-terminal commands; the event loop intercepts them before Apply.
		return false, nil
	default:
		err := fmt.Errorf("unknown command %q", c.Kind)
		p.reject(c, err)
		return false, err
	}
}

const (
	mainRatioStep = 0.05
	mainRatioMin  = 0.10
	mainRatioMax  = 0.90
)

func (p *Processor) reject(c Command, err error) {
	if p.logger != nil {
		p.logger.Warn("command.rejected", "command", string(c.Kind), "arg", c.Arg, "error", err)
	}
}

// cycleFocus moves focus to the next or previous visible window of the
// active workspace, wrapping around.
func (p *Processor) cycleFocus(m *Model, dir int) bool {
	ws := m.ActiveWorkspace()
	if ws == nil {
		return false
	}
	visible := m.VisibleWindows(ws)
	if len(visible) < 2 {
		return false
	}
	current := 0
	for i, w := range visible {
		if w.ID == ws.Focused {
			current = i
			break
		}
	}
	next := (current + dir + len(visible)) % len(visible)
	return SetFocus(ws, m, visible[next].ID)
}

func (p *Processor) cycleWorkspace(m *Model, dir int) bool {
	n := len(m.Workspaces)
	if n < 2 {
		return false
	}
	// Skip parked workspaces; give up after a full cycle.
	idx := m.Active
	for i := 0; i < n; i++ {
		idx = (idx + dir + n) % n
		if !m.Workspaces[idx].Parked {
			break
		}
	}
	if idx == m.Active || m.Workspaces[idx].Parked {
		return false
	}
	m.Active = idx
	return true
}

// gotoTag makes the active workspace display the tag. If another workspace
// holds it, parked or not, the two workspaces trade tag sets, so no tag is
// ever assigned twice.
func (p *Processor) gotoTag(m *Model, name string) (bool, error) {
	if m.Tag(name) == nil {
		err := fmt.Errorf("unknown tag %q", name)
		p.reject(Command{Kind: CmdGotoTag, Arg: name}, err)
		return false, err
	}
	ws := m.ActiveWorkspace()
	if ws == nil {
		return false, nil
	}
	if ws.displays(name) {
		return false, nil
	}
	if other := m.WorkspaceHolding(name); other != nil {
		old := append([]string(nil), ws.Tags...)
		ws.Tags = append([]string(nil), other.Tags...)
		other.Tags = old
		ApplyFocus(other, m)
	} else {
		ws.Tags = []string{name}
	}
	ApplyFocus(ws, m)
	return true, nil
}

// moveToTag reassigns the focused window to exactly the named tag.
func (p *Processor) moveToTag(m *Model, name string) (bool, error) {
	if m.Tag(name) == nil {
		err := fmt.Errorf("unknown tag %q", name)
		p.reject(Command{Kind: CmdMoveWindowToTag, Arg: name}, err)
		return false, err
	}
	ws := m.ActiveWorkspace()
	if ws == nil || ws.Focused == 0 {
		return false, nil
	}
	w := m.Window(ws.Focused)
	if w == nil {
		return false, nil
	}
	if len(w.Tags) == 1 && w.Tags[0] == name {
		return false, nil
	}
	m.RetagWindow(w.ID, []string{name})
	ApplyFocus(ws, m)
	return true, nil
}

// swapWindows exchanges the positions of two windows in the first tag that
// holds both, changing the layout slot they occupy.
func (p *Processor) swapWindows(m *Model, a, b WindowID) bool {
	if a == b || m.Window(a) == nil || m.Window(b) == nil {
		return false
	}
	for _, t := range m.Tags() {
		ai, bi := -1, -1
		for i, id := range t.Windows {
			switch id {
			case a:
				ai = i
			case b:
				bi = i
			}
		}
		if ai >= 0 && bi >= 0 {
			t.Windows[ai], t.Windows[bi] = t.Windows[bi], t.Windows[ai]
			return true
		}
	}
	return false
}

func (p *Processor) toggleFloating(m *Model) bool {
	ws := m.ActiveWorkspace()
	if ws == nil || ws.Focused == 0 {
		return false
	}
	w := m.Window(ws.Focused)
	if w == nil {
		return false
	}
	w.Floating = !w.Floating
	if w.Floating {
		// Carry the current layout-derived geometry into the float.
		w.FloatingGeom = w.Geom
	}
	return true
}

func (p *Processor) toggleFullscreen(m *Model) bool {
	ws := m.ActiveWorkspace()
	if ws == nil || ws.Focused == 0 {
		return false
	}
	w := m.Window(ws.Focused)
	if w == nil {
		return false
	}
	w.Fullscreen = !w.Fullscreen
	return true
}

func (p *Processor) setLayout(m *Model, name string) (bool, error) {
	found := false
	for _, l := range p.layouts {
		if l == name {
			found = true
			break
		}
	}
	if !found {
		err := fmt.Errorf("unknown layout %q", name)
		p.reject(Command{Kind: CmdSetLayout, Arg: name}, err)
		return false, err
	}
	t := p.activeTag(m)
	if t == nil || t.Layout == name {
		return false, nil
	}
	t.Layout = name
	return true, nil
}

func (p *Processor) cycleLayout(m *Model, dir int) bool {
	t := p.activeTag(m)
	if t == nil || len(p.layouts) < 2 {
		return false
	}
	current := 0
	for i, l := range p.layouts {
		if l == t.Layout {
			current = i
			break
		}
	}
	t.Layout = p.layouts[(current+dir+len(p.layouts))%len(p.layouts)]
	return true
}

func (p *Processor) adjustMainRatio(m *Model, delta float64) bool {
	t := p.activeTag(m)
	if t == nil {
		return false
	}
	ratio := t.Params.MainRatio
	if ratio == 0 {
		ratio = 0.6
	}
	ratio += delta
	if ratio < mainRatioMin {
		ratio = mainRatioMin
	}
	if ratio > mainRatioMax {
		ratio = mainRatioMax
	}
	if ratio == t.Params.MainRatio {
		return false
	}
	t.Params.MainRatio = ratio
	return true
}

func (p *Processor) closeWindow(m *Model) bool {
	ws := m.ActiveWorkspace()
	if ws == nil || ws.Focused == 0 {
		return false
	}
	return m.RequestClose(ws.Focused)
}

// activeTag returns the first displayed tag of the active workspace.
func (p *Processor) activeTag(m *Model) *Tag {
	ws := m.ActiveWorkspace()
	if ws == nil || len(ws.Tags) == 0 {
		return nil
	}
	return m.Tag(ws.Tags[0])
}
