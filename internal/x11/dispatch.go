package x11

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/tagwm/tagwm/internal/core"
)

// Dispatch executes one action batch in order. The first failed request
// aborts the batch; the event loop treats that as a lost connection.
func (a *Adapter) Dispatch(actions []core.DisplayAction) error {
	for _, act := range actions {
		win := xproto.Window(act.ID)
		var err error
		switch act.Kind {
		case core.ActionMapWindow:
			err = xproto.MapWindowChecked(a.xu.Conn(), win).Check()
		case core.ActionUnmapWindow:
			a.expectUnmap(win)
			err = xproto.UnmapWindowChecked(a.xu.Conn(), win).Check()
		case core.ActionMoveResizeWindow:
			err = a.moveResize(win, act)
		case core.ActionSetBorderColor:
			err = xproto.ChangeWindowAttributesChecked(a.xu.Conn(), win,
				xproto.CwBorderPixel, []uint32{a.colors[act.Border]}).Check()
		case core.ActionSetFocusedWindow:
			err = a.setFocus(win)
		case core.ActionRaiseWindow:
			err = xproto.ConfigureWindowChecked(a.xu.Conn(), win,
				xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove}).Check()
		case core.ActionCloseWindow:
			err = a.closeWindow(win)
		default:
			err = fmt.Errorf("unknown action kind %v", act.Kind)
		}
		if err != nil {
			return fmt.Errorf("%s window %d: %w", act.Kind, act.ID, err)
		}
	}
	return nil
}

// expectUnmap records that the next UnmapNotify for this window is ours, so
// the read loop does not mistake it for a client withdrawal.
func (a *Adapter) expectUnmap(win xproto.Window) {
	a.mu.Lock()
	a.pendingUnmaps[win]++
	a.mu.Unlock()
}

// moveResize positions the window so that its outer box, border included,
// matches the requested rectangle.
func (a *Adapter) moveResize(win xproto.Window, act core.DisplayAction) error {
	bw := a.borderWidth
	w := act.Geom.Width - 2*bw
	h := act.Geom.Height - 2*bw
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	err := xproto.ConfigureWindowChecked(a.xu.Conn(), win,
		xproto.ConfigWindowX|xproto.ConfigWindowY|
			xproto.ConfigWindowWidth|xproto.ConfigWindowHeight|
			xproto.ConfigWindowBorderWidth,
		[]uint32{
			uint32(act.Geom.X),
			uint32(act.Geom.Y),
			uint32(w),
			uint32(h),
			uint32(bw),
		}).Check()
	if err != nil {
		return err
	}
	a.setManaged(win, act.Geom)
	return nil
}

// setFocus moves input focus. A zero window clears focus back to the root.
func (a *Adapter) setFocus(win xproto.Window) error {
	target := win
	if target == 0 {
		target = a.root
	}
	err := xproto.SetInputFocusChecked(a.xu.Conn(),
		xproto.InputFocusPointerRoot, target, xproto.TimeCurrentTime).Check()
	if err != nil {
		return err
	}
	if err := ewmh.ActiveWindowSet(a.xu, win); err != nil {
		a.logger.Debug("x11.activewindow", "error", err)
	}
	return nil
}

// closeWindow asks politely via WM_DELETE_WINDOW when the client supports it
// and kills the connection otherwise.
func (a *Adapter) closeWindow(win xproto.Window) error {
	if a.supportsDelete(win) {
		cme := xproto.ClientMessageEvent{
			Format: 32,
			Window: win,
			Type:   a.atomWMProtocols,
			Data: xproto.ClientMessageDataUnionData32New([]uint32{
				uint32(a.atomWMDelete),
				uint32(xproto.TimeCurrentTime),
				0, 0, 0,
			}),
		}
		return xproto.SendEventChecked(a.xu.Conn(), false, win,
			xproto.EventMaskNoEvent, string(cme.Bytes())).Check()
	}
	return xproto.KillClientChecked(a.xu.Conn(), uint32(win)).Check()
}

func (a *Adapter) supportsDelete(win xproto.Window) bool {
	prop, err := xproto.GetProperty(a.xu.Conn(), false, win, a.atomWMProtocols,
		xproto.GetPropertyTypeAny, 0, 64).Reply()
	if err != nil {
		return false
	}
	for v := prop.Value; len(v) >= 4; v = v[4:] {
		atom := xproto.Atom(uint32(v[0]) | uint32(v[1])<<8 | uint32(v[2])<<16 | uint32(v[3])<<24)
		if atom == a.atomWMDelete {
			return true
		}
	}
	return false
}

// ParseHexColor converts "#rrggbb" to the X pixel value.
func ParseHexColor(s string) (uint32, error) {
	trimmed := strings.TrimPrefix(s, "#")
	if len(trimmed) != 6 {
		return 0, fmt.Errorf("color %q must look like #rrggbb", s)
	}
	v, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q must look like #rrggbb: %w", s, err)
	}
	return uint32(v), nil
}
