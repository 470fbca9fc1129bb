package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/tagwm/tagwm/internal/core"
	"github.com/tagwm/tagwm/internal/layout"
)

// strut is the space a window reserves at the root edges, in pixels measured
// from the respective edge.
type strut struct {
	Left, Right, Top, Bottom int
}

// QueryScreens walks the active RandR CRTCs and reports one screen per
// enabled output, with panel-reserved space already subtracted.
func (a *Adapter) QueryScreens() ([]core.Screen, error) {
	rootGeom, err := xproto.GetGeometry(a.xu.Conn(), xproto.Drawable(a.root)).Reply()
	if err != nil {
		return nil, fmt.Errorf("root geometry: %w", err)
	}

	resources, err := randr.GetScreenResources(a.xu.Conn(), a.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var screens []core.Screen
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(a.xu.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("screen%d", i)
		if outputInfo, err := randr.GetOutputInfo(a.xu.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = strings.TrimRight(string(outputInfo.Name), "\x00")
		}

		screens = append(screens, core.Screen{
			Name: name,
			Geom: layout.Rect{
				X:      int(crtcInfo.X),
				Y:      int(crtcInfo.Y),
				Width:  int(crtcInfo.Width),
				Height: int(crtcInfo.Height),
			},
		})
	}

	// A display with no RandR outputs still has a root geometry.
	if len(screens) == 0 {
		screens = append(screens, core.Screen{
			Name: "screen0",
			Geom: layout.Rect{Width: int(rootGeom.Width), Height: int(rootGeom.Height)},
		})
	}
	return applyStruts(screens, int(rootGeom.Width), int(rootGeom.Height), a.queryStruts()), nil
}

// queryStruts collects the reserved-space declarations of every client on the
// display. Docks are unmanaged, so the window table cannot serve here; the
// tree walk sees them all.
func (a *Adapter) queryStruts() []strut {
	tree, err := xproto.QueryTree(a.xu.Conn(), a.root).Reply()
	if err != nil {
		return nil
	}
	var struts []strut
	for _, child := range tree.Children {
		if s := a.windowStrut(child); s != (strut{}) {
			struts = append(struts, s)
		}
	}
	return struts
}

// applyStruts carves the reserved space out of each screen. Strut values are
// distances from the root edges, so only the screens touching the affected
// root edge shrink. A strut that would swallow a screen whole is ignored for
// that screen.
func applyStruts(screens []core.Screen, rootWidth, rootHeight int, struts []strut) []core.Screen {
	for _, st := range struts {
		for i := range screens {
			g := &screens[i].Geom
			left, top := g.X, g.Y
			right, bottom := g.X+g.Width, g.Y+g.Height
			if st.Left > left {
				left = st.Left
			}
			if st.Right > 0 && rootWidth-st.Right < right {
				right = rootWidth - st.Right
			}
			if st.Top > top {
				top = st.Top
			}
			if st.Bottom > 0 && rootHeight-st.Bottom < bottom {
				bottom = rootHeight - st.Bottom
			}
			if right-left < 1 || bottom-top < 1 {
				continue
			}
			g.X, g.Y, g.Width, g.Height = left, top, right-left, bottom-top
		}
	}
	return screens
}

// QueryPointer reports the pointer position in root coordinates.
func (a *Adapter) QueryPointer() (int, int, error) {
	pointer, err := xproto.QueryPointer(a.xu.Conn(), a.root).Reply()
	if err != nil {
		return 0, 0, fmt.Errorf("query pointer: %w", err)
	}
	return int(pointer.RootX), int(pointer.RootY), nil
}

// ExistingWindows scans the window tree for clients that were already mapped
// before this process started, so a fresh model can adopt them.
func (a *Adapter) ExistingWindows() ([]core.WindowCreated, error) {
	tree, err := xproto.QueryTree(a.xu.Conn(), a.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("query window tree: %w", err)
	}

	var out []core.WindowCreated
	for _, child := range tree.Children {
		if child == a.supportingWin {
			continue
		}
		if !a.shouldManage(child) {
			// Remember space-reserving docks; their departure widens the
			// usable screen areas.
			if a.windowStrut(child) != (strut{}) {
				a.mu.Lock()
				a.strutWins[child] = true
				a.mu.Unlock()
			}
			continue
		}
		a.listenOn(child)
		a.setManaged(child, a.windowGeometry(child))
		out = append(out, core.WindowCreated{
			ID:    core.WindowID(child),
			Props: a.windowProps(child),
		})
	}
	return out, nil
}
