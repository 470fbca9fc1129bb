package x11

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/tagwm/tagwm/internal/core"
	"github.com/tagwm/tagwm/internal/layout"
)

// Options configures the X11 adapter.
type Options struct {
	BorderWidth   int
	BorderNormal  string // #rrggbb
	BorderFocused string
	BorderUrgent  string
	Combos        []string // normalized key combos to grab
	TagNames      []string // advertised as EWMH desktop names
	Logger        *slog.Logger
}

// Adapter is the production core.DisplayAdapter. It owns the X connection,
// translates raw events into display events on a channel and executes action
// batches. All Dispatch calls come from the event loop goroutine; the read
// loop runs on its own goroutine, so shared tables are mutex-guarded.
type Adapter struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	events chan core.DisplayEvent
	done   chan struct{}
	logger *slog.Logger

	borderWidth int
	colors      map[core.BorderState]uint32
	combos      []string

	atomNetWMName    xproto.Atom
	atomWMName       xproto.Atom
	atomWMHints      xproto.Atom
	atomTransientFor xproto.Atom
	atomStrut        xproto.Atom
	atomStrutPartial xproto.Atom
	atomWMProtocols  xproto.Atom
	atomWMDelete     xproto.Atom

	mu             sync.Mutex
	managed        map[xproto.Window]layout.Rect
	pendingUnmaps  map[xproto.Window]int
	strutWins      map[xproto.Window]bool
	supportingWin  xproto.Window
	closedByServer bool
}

// NewAdapter connects to the X server, claims window management of the root
// window and starts the event read loop. It fails if another window manager
// is already running.
func NewAdapter(opts Options) (*Adapter, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}

	a := &Adapter{
		xu:            xu,
		root:          xu.RootWin(),
		events:        make(chan core.DisplayEvent, 64),
		done:          make(chan struct{}),
		logger:        opts.Logger,
		borderWidth:   opts.BorderWidth,
		combos:        opts.Combos,
		managed:       make(map[xproto.Window]layout.Rect),
		pendingUnmaps: make(map[xproto.Window]int),
		strutWins:     make(map[xproto.Window]bool),
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}

	if err := a.claimRoot(); err != nil {
		xu.Conn().Close()
		return nil, err
	}

	keybind.Initialize(xu)

	if err := randr.Init(xu.Conn()); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("randr init: %w", err)
	}
	randr.SelectInput(xu.Conn(), a.root,
		randr.NotifyMaskScreenChange|randr.NotifyMaskCrtcChange|randr.NotifyMaskOutputChange)

	if err := a.initAtoms(); err != nil {
		xu.Conn().Close()
		return nil, err
	}
	if err := a.initColors(opts); err != nil {
		xu.Conn().Close()
		return nil, err
	}
	if err := a.advertise(opts.TagNames); err != nil {
		a.logger.Warn("x11.ewmh", "error", err)
	}
	a.grabCombos()

	go a.readLoop()
	return a, nil
}

// claimRoot selects substructure redirect on the root window. Only one client
// may hold it; failure means another window manager owns the display.
func (a *Adapter) claimRoot() error {
	err := xproto.ChangeWindowAttributesChecked(a.xu.Conn(), a.root,
		xproto.CwEventMask, []uint32{
			xproto.EventMaskSubstructureRedirect |
				xproto.EventMaskSubstructureNotify |
				xproto.EventMaskStructureNotify |
				xproto.EventMaskPropertyChange,
		}).Check()
	if err != nil {
		return fmt.Errorf("another window manager is already running: %w", err)
	}
	return nil
}

func (a *Adapter) initAtoms() error {
	lookups := []struct {
		name string
		dst  *xproto.Atom
	}{
		{"_NET_WM_NAME", &a.atomNetWMName},
		{"WM_NAME", &a.atomWMName},
		{"WM_HINTS", &a.atomWMHints},
		{"WM_TRANSIENT_FOR", &a.atomTransientFor},
		{"_NET_WM_STRUT", &a.atomStrut},
		{"_NET_WM_STRUT_PARTIAL", &a.atomStrutPartial},
		{"WM_PROTOCOLS", &a.atomWMProtocols},
		{"WM_DELETE_WINDOW", &a.atomWMDelete},
	}
	for _, l := range lookups {
		atom, err := xprop.Atm(a.xu, l.name)
		if err != nil {
			return fmt.Errorf("intern atom %s: %w", l.name, err)
		}
		*l.dst = atom
	}
	return nil
}

func (a *Adapter) initColors(opts Options) error {
	a.colors = make(map[core.BorderState]uint32, 3)
	for state, hex := range map[core.BorderState]string{
		core.BorderNormal:  opts.BorderNormal,
		core.BorderFocused: opts.BorderFocused,
		core.BorderUrgent:  opts.BorderUrgent,
	} {
		if hex == "" {
			a.colors[state] = 0
			continue
		}
		pixel, err := ParseHexColor(hex)
		if err != nil {
			return err
		}
		a.colors[state] = pixel
	}
	return nil
}

// advertise publishes the EWMH properties pagers and bars read.
func (a *Adapter) advertise(tagNames []string) error {
	check, err := xwindow.Generate(a.xu)
	if err != nil {
		return err
	}
	if err := check.CreateChecked(a.root, -1, -1, 1, 1, 0); err != nil {
		return err
	}
	a.supportingWin = check.Id

	if err := ewmh.SupportingWmCheckSet(a.xu, a.root, check.Id); err != nil {
		return err
	}
	if err := ewmh.SupportingWmCheckSet(a.xu, check.Id, check.Id); err != nil {
		return err
	}
	if err := ewmh.WmNameSet(a.xu, check.Id, "tagwm"); err != nil {
		return err
	}
	if err := ewmh.SupportedSet(a.xu, []string{
		"_NET_SUPPORTED",
		"_NET_SUPPORTING_WM_CHECK",
		"_NET_WM_NAME",
		"_NET_ACTIVE_WINDOW",
		"_NET_CLIENT_LIST",
		"_NET_NUMBER_OF_DESKTOPS",
		"_NET_DESKTOP_NAMES",
		"_NET_WM_STATE",
		"_NET_WM_STATE_FULLSCREEN",
		"_NET_WM_STRUT",
		"_NET_WM_STRUT_PARTIAL",
		"_NET_WM_WINDOW_TYPE",
	}); err != nil {
		return err
	}
	if len(tagNames) > 0 {
		if err := ewmh.NumberOfDesktopsSet(a.xu, uint(len(tagNames))); err != nil {
			return err
		}
		if err := ewmh.DesktopNamesSet(a.xu, tagNames); err != nil {
			return err
		}
	}
	return nil
}

// Events returns the translated event stream. The channel closes when the
// server connection is lost.
func (a *Adapter) Events() <-chan core.DisplayEvent { return a.events }

// Close tears down the connection. The read loop notices and closes the
// event channel.
func (a *Adapter) Close() error {
	a.mu.Lock()
	already := a.closedByServer
	a.closedByServer = true
	a.mu.Unlock()
	if !already {
		close(a.done)
	}
	if a.supportingWin != 0 {
		xproto.DestroyWindow(a.xu.Conn(), a.supportingWin)
	}
	a.xu.Conn().Close()
	return nil
}

// readLoop pulls raw events off the wire, translates them and feeds the
// channel. It exits when the connection dies.
func (a *Adapter) readLoop() {
	for {
		ev, xerr := a.xu.Conn().WaitForEvent()
		if ev == nil && xerr == nil {
			close(a.events)
			return
		}
		if xerr != nil {
			a.logger.Debug("x11.error", "error", xerr.Error())
			continue
		}
		if out := a.translate(ev); out != nil {
			if !a.send(out) {
				return
			}
		}
	}
}

// send delivers an event unless the adapter has been closed, so the read loop
// never blocks forever on a full channel after the event loop stopped draining.
func (a *Adapter) send(ev core.DisplayEvent) bool {
	select {
	case a.events <- ev:
		return true
	case <-a.done:
		return false
	}
}

func (a *Adapter) translate(raw xgb.Event) core.DisplayEvent {
	switch e := raw.(type) {
	case xproto.MapRequestEvent:
		return a.translateMapRequest(e.Window)
	case xproto.DestroyNotifyEvent:
		return a.translateGone(e.Window)
	case xproto.UnmapNotifyEvent:
		return a.translateUnmap(e.Window)
	case xproto.PropertyNotifyEvent:
		return a.translateProperty(e)
	case xproto.EnterNotifyEvent:
		if e.Mode != xproto.NotifyModeNormal {
			return nil
		}
		if !a.isManaged(e.Event) {
			return nil
		}
		return core.PointerEnteredWindow{ID: core.WindowID(e.Event)}
	case xproto.KeyPressEvent:
		combo, ok := a.matchCombo(e.State, e.Detail)
		if !ok {
			return nil
		}
		return core.KeyComboPressed{Combo: combo}
	case randr.ScreenChangeNotifyEvent:
		return a.screensEvent()
	case xproto.ConfigureRequestEvent:
		a.handleConfigureRequest(e)
		return nil
	case xproto.MappingNotifyEvent:
		// Keyboard layout changed; rebuild the mapping and regrab.
		keybind.Initialize(a.xu)
		a.grabCombos()
		return nil
	default:
		return nil
	}
}

func (a *Adapter) translateMapRequest(win xproto.Window) core.DisplayEvent {
	attrs, err := xproto.GetWindowAttributes(a.xu.Conn(), win).Reply()
	if err != nil {
		return nil
	}
	if attrs.OverrideRedirect {
		// Popups and menus manage themselves.
		xproto.MapWindow(a.xu.Conn(), win)
		return nil
	}
	if a.isDockType(win) {
		// Docks and desktop surfaces are mapped but never tiled. A dock
		// reserving space changes the usable screen areas.
		xproto.MapWindow(a.xu.Conn(), win)
		if a.windowStrut(win) != (strut{}) {
			a.mu.Lock()
			a.strutWins[win] = true
			a.mu.Unlock()
			return a.screensEvent()
		}
		return nil
	}
	if a.isManaged(win) {
		return nil
	}
	a.listenOn(win)
	a.setManaged(win, layout.Rect{})
	return core.WindowCreated{ID: core.WindowID(win), Props: a.windowProps(win)}
}

func (a *Adapter) translateGone(win xproto.Window) core.DisplayEvent {
	a.mu.Lock()
	wasStrut := a.strutWins[win]
	delete(a.strutWins, win)
	a.mu.Unlock()
	if wasStrut {
		// A space-reserving dock left; the usable screen areas grow back.
		return a.screensEvent()
	}
	if !a.isManaged(win) {
		return nil
	}
	a.unsetManaged(win)
	return core.WindowDestroyed{ID: core.WindowID(win)}
}

// screensEvent requeries the outputs, struts included, and wraps them in the
// event the reconciler consumes.
func (a *Adapter) screensEvent() core.DisplayEvent {
	screens, err := a.QueryScreens()
	if err != nil {
		a.logger.Warn("x11.screens", "error", err)
		return nil
	}
	return core.ScreensChanged{Screens: screens}
}

// translateUnmap distinguishes client-initiated withdrawals from unmaps this
// adapter performed itself; the latter must not be treated as destruction.
func (a *Adapter) translateUnmap(win xproto.Window) core.DisplayEvent {
	a.mu.Lock()
	if a.pendingUnmaps[win] > 0 {
		a.pendingUnmaps[win]--
		if a.pendingUnmaps[win] == 0 {
			delete(a.pendingUnmaps, win)
		}
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()
	return a.translateGone(win)
}

func (a *Adapter) translateProperty(e xproto.PropertyNotifyEvent) core.DisplayEvent {
	if !a.isManaged(e.Window) {
		return nil
	}
	var prop string
	switch e.Atom {
	case a.atomNetWMName, a.atomWMName:
		prop = "name"
	case a.atomWMHints:
		prop = "urgent"
	case a.atomTransientFor:
		prop = "transient"
	case a.atomStrut, a.atomStrutPartial:
		prop = "strut"
	default:
		return nil
	}
	return core.WindowPropertyChanged{
		ID:    core.WindowID(e.Window),
		Prop:  prop,
		Props: a.windowProps(e.Window),
	}
}

// handleConfigureRequest honors geometry requests from unmanaged windows and
// answers managed ones with a synthetic notify of the geometry they actually
// have, per ICCCM.
func (a *Adapter) handleConfigureRequest(e xproto.ConfigureRequestEvent) {
	a.mu.Lock()
	rect, managed := a.managed[e.Window]
	a.mu.Unlock()

	if managed {
		cne := xproto.ConfigureNotifyEvent{
			Event:  e.Window,
			Window: e.Window,
			X:      int16(rect.X),
			Y:      int16(rect.Y),
			Width:  uint16(max(rect.Width, 1)),
			Height: uint16(max(rect.Height, 1)),
		}
		xproto.SendEvent(a.xu.Conn(), false, e.Window,
			xproto.EventMaskStructureNotify, string(cne.Bytes()))
		return
	}

	mask, values := uint16(0), []uint32(nil)
	if e.ValueMask&xproto.ConfigWindowX != 0 {
		mask |= xproto.ConfigWindowX
		values = append(values, uint32(e.X))
	}
	if e.ValueMask&xproto.ConfigWindowY != 0 {
		mask |= xproto.ConfigWindowY
		values = append(values, uint32(e.Y))
	}
	if e.ValueMask&xproto.ConfigWindowWidth != 0 {
		mask |= xproto.ConfigWindowWidth
		values = append(values, uint32(e.Width))
	}
	if e.ValueMask&xproto.ConfigWindowHeight != 0 {
		mask |= xproto.ConfigWindowHeight
		values = append(values, uint32(e.Height))
	}
	if e.ValueMask&xproto.ConfigWindowBorderWidth != 0 {
		mask |= xproto.ConfigWindowBorderWidth
		values = append(values, uint32(e.BorderWidth))
	}
	if e.ValueMask&xproto.ConfigWindowSibling != 0 {
		mask |= xproto.ConfigWindowSibling
		values = append(values, uint32(e.Sibling))
	}
	if e.ValueMask&xproto.ConfigWindowStackMode != 0 {
		mask |= xproto.ConfigWindowStackMode
		values = append(values, uint32(e.StackMode))
	}
	xproto.ConfigureWindow(a.xu.Conn(), e.Window, mask, values)
}

// listenOn subscribes to the per-window events the reconciler needs.
func (a *Adapter) listenOn(win xproto.Window) {
	err := xproto.ChangeWindowAttributesChecked(a.xu.Conn(), win,
		xproto.CwEventMask, []uint32{
			xproto.EventMaskEnterWindow |
				xproto.EventMaskStructureNotify |
				xproto.EventMaskPropertyChange,
		}).Check()
	if err != nil {
		a.logger.Debug("x11.listen", "window", uint32(win), "error", err)
	}
}

func (a *Adapter) isManaged(win xproto.Window) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.managed[win]
	return ok
}

func (a *Adapter) setManaged(win xproto.Window, rect layout.Rect) {
	a.mu.Lock()
	_, known := a.managed[win]
	a.managed[win] = rect
	a.mu.Unlock()
	if !known {
		a.publishClientList()
	}
}

func (a *Adapter) unsetManaged(win xproto.Window) {
	a.mu.Lock()
	_, known := a.managed[win]
	delete(a.managed, win)
	delete(a.pendingUnmaps, win)
	a.mu.Unlock()
	if known {
		a.publishClientList()
	}
}

// clientList returns the managed windows in id order, the shape pagers expect
// in _NET_CLIENT_LIST.
func (a *Adapter) clientList() []xproto.Window {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]xproto.Window, 0, len(a.managed))
	for win := range a.managed {
		out = append(out, win)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (a *Adapter) publishClientList() {
	if a.xu == nil {
		return
	}
	if err := ewmh.ClientListSet(a.xu, a.clientList()); err != nil {
		a.logger.Debug("x11.ewmh", "prop", "_NET_CLIENT_LIST", "error", err)
	}
}
