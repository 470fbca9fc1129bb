package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/keybind"
)

// ignoreMask strips the lock modifiers so CapsLock and NumLock do not break
// combo matching.
const ignoreMask = xproto.ModMaskLock | xproto.ModMask2

// grabCombos grabs every configured combo on the root window. A combo that
// does not resolve on the current keyboard mapping is logged and skipped.
func (a *Adapter) grabCombos() {
	for _, combo := range a.combos {
		mods, keycodes, err := keybind.ParseString(a.xu, combo)
		if err != nil {
			a.logger.Warn("x11.grab", "combo", combo, "error", err)
			continue
		}
		for _, keycode := range keycodes {
			for _, ignore := range []uint16{0, xproto.ModMaskLock, xproto.ModMask2, xproto.ModMaskLock | xproto.ModMask2} {
				if err := keybind.GrabChecked(a.xu, a.root, mods|ignore, keycode); err != nil {
					a.logger.Warn("x11.grab", "combo", combo, "error", err)
					break
				}
			}
		}
	}
}

// matchCombo maps a key press back to the configured combo it was grabbed
// for.
func (a *Adapter) matchCombo(state uint16, keycode xproto.Keycode) (string, bool) {
	clean := state &^ ignoreMask
	for _, combo := range a.combos {
		if keybind.KeyMatch(a.xu, combo, clean, keycode) {
			return combo, true
		}
	}
	return "", false
}
