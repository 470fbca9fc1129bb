package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/tagwm/tagwm/internal/core"
	"github.com/tagwm/tagwm/internal/layout"
)

// windowProps gathers the ICCCM and EWMH state the model cares about. Every
// read is best-effort; a window that races to destruction yields zero values.
func (a *Adapter) windowProps(win xproto.Window) core.WindowProps {
	props := core.WindowProps{
		Name:      a.windowName(win),
		Geom:      a.windowGeometry(win),
		StrutHint: a.hasStrut(win),
	}

	if class, err := icccm.WmClassGet(a.xu, win); err == nil && class != nil {
		props.Class = class.Class
	}
	if transient, err := icccm.WmTransientForGet(a.xu, win); err == nil {
		props.TransientFor = core.WindowID(transient)
	}
	if hints, err := icccm.WmHintsGet(a.xu, win); err == nil && hints != nil {
		props.Urgent = hints.Flags&icccm.HintUrgency > 0
	}
	props.FloatingHint = a.wantsFloat(win)
	return props
}

func (a *Adapter) windowName(win xproto.Window) string {
	if name, err := ewmh.WmNameGet(a.xu, win); err == nil && name != "" {
		return name
	}
	if name, err := icccm.WmNameGet(a.xu, win); err == nil {
		return name
	}
	return ""
}

// windowGeometry reports the window's rectangle in root coordinates.
func (a *Adapter) windowGeometry(win xproto.Window) layout.Rect {
	geom, err := xproto.GetGeometry(a.xu.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return layout.Rect{}
	}
	translate, err := xproto.TranslateCoordinates(a.xu.Conn(), win, a.root, 0, 0).Reply()
	if err != nil {
		return layout.Rect{
			X: int(geom.X), Y: int(geom.Y),
			Width: int(geom.Width), Height: int(geom.Height),
		}
	}
	return layout.Rect{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}
}

// wantsFloat reports whether the window's type asks to stay out of tiling.
func (a *Adapter) wantsFloat(win xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(a.xu, win)
	if err != nil {
		return false
	}
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_DIALOG",
			"_NET_WM_WINDOW_TYPE_UTILITY",
			"_NET_WM_WINDOW_TYPE_TOOLBAR",
			"_NET_WM_WINDOW_TYPE_SPLASH",
			"_NET_WM_WINDOW_TYPE_NOTIFICATION":
			return true
		}
	}
	return false
}

func (a *Adapter) hasStrut(win xproto.Window) bool {
	return a.windowStrut(win) != (strut{})
}

// windowStrut reads the space the window reserves at the root edges. The
// partial form wins when both properties are set; a window without either
// yields the zero strut.
func (a *Adapter) windowStrut(win xproto.Window) strut {
	if p, err := ewmh.WmStrutPartialGet(a.xu, win); err == nil && p != nil {
		return strut{
			Left:   int(p.Left),
			Right:  int(p.Right),
			Top:    int(p.Top),
			Bottom: int(p.Bottom),
		}
	}
	if s, err := ewmh.WmStrutGet(a.xu, win); err == nil && s != nil {
		return strut{
			Left:   int(s.Left),
			Right:  int(s.Right),
			Top:    int(s.Top),
			Bottom: int(s.Bottom),
		}
	}
	return strut{}
}

// isDockType reports whether the window declares itself a dock or desktop
// surface, which stays out of tiling entirely.
func (a *Adapter) isDockType(win xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(a.xu, win)
	if err != nil {
		return false
	}
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_DOCK", "_NET_WM_WINDOW_TYPE_DESKTOP":
			return true
		}
	}
	return false
}

// shouldManage filters the windows worth adopting: viewable, not
// override-redirect, not a dock or desktop surface.
func (a *Adapter) shouldManage(win xproto.Window) bool {
	attrs, err := xproto.GetWindowAttributes(a.xu.Conn(), win).Reply()
	if err != nil {
		return false
	}
	if attrs.OverrideRedirect || attrs.MapState == xproto.MapStateUnmapped {
		return false
	}
	return !a.isDockType(win)
}
