package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tagwm/tagwm/internal/core"
	"github.com/tagwm/tagwm/internal/layout"
)

// TagConfig declares one tag and its layout defaults.
type TagConfig struct {
	Name      string  `yaml:"name"`
	Label     string  `yaml:"label,omitempty"`
	Layout    string  `yaml:"layout,omitempty"`
	MainRatio float64 `yaml:"main_ratio,omitempty"`
	MainCount int     `yaml:"main_count,omitempty"`
}

// AdoptionConfig controls where unknown windows land.
type AdoptionConfig struct {
	// Policy is "active-tag" or "scratch".
	Policy string `yaml:"policy"`
	// ScratchTag is the tag used by the scratch policy. It must exist in the
	// tag list.
	ScratchTag string `yaml:"scratch_tag,omitempty"`
}

// BorderConfig sets window border width and the three state colors.
type BorderConfig struct {
	Width   int    `yaml:"width"`
	Focused string `yaml:"focused"`
	Normal  string `yaml:"normal"`
	Urgent  string `yaml:"urgent"`
}

// Config is the effective daemon configuration.
type Config struct {
	Tags        []TagConfig       `yaml:"tags"`
	Layout      string            `yaml:"layout"` // default for tags without one
	Gap         int               `yaml:"gap"`
	FocusMode   string            `yaml:"focus_mode"` // click-to-focus | focus-follows-pointer
	Adoption    AdoptionConfig    `yaml:"adoption"`
	Border      BorderConfig      `yaml:"border"`
	Keybindings map[string]string `yaml:"keybindings"` // combo -> "command [arg]"
	LogLevel    string            `yaml:"log_level"`
}

// ValidationError carries the YAML path of the offending value.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// DefaultConfig returns the configuration used when no file exists: nine
// numbered tags, mainstack everywhere, click-to-focus, and a small set of
// Mod4 keybindings.
func DefaultConfig() *Config {
	tags := make([]TagConfig, 0, 9)
	for i := 1; i <= 9; i++ {
		tags = append(tags, TagConfig{Name: fmt.Sprintf("%d", i)})
	}
	keys := map[string]string{
		"mod4-j":       "focus-window-next",
		"mod4-k":       "focus-window-prev",
		"mod4-period":  "focus-workspace-next",
		"mod4-comma":   "focus-workspace-prev",
		"mod4-space":   "next-layout",
		"mod4-f":       "toggle-fullscreen",
		"mod4-t":       "toggle-floating",
		"mod4-h":       "dec-main-ratio",
		"mod4-l":       "inc-main-ratio",
		"mod4-shift-q": "close-window",
		"mod4-shift-r": "soft-reload",
	}
	for i := 1; i <= 9; i++ {
		keys[fmt.Sprintf("mod4-%d", i)] = fmt.Sprintf("goto-tag %d", i)
		keys[fmt.Sprintf("mod4-shift-%d", i)] = fmt.Sprintf("move-to-tag %d", i)
	}
	return &Config{
		Tags:      tags,
		Layout:    "mainstack",
		Gap:       0,
		FocusMode: "click-to-focus",
		Adoption:  AdoptionConfig{Policy: "active-tag"},
		Border: BorderConfig{
			Width:   2,
			Focused: "#5294e2",
			Normal:  "#3b4252",
			Urgent:  "#bf616a",
		},
		Keybindings: keys,
		LogLevel:    "info",
	}
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if len(c.Tags) == 0 {
		return &ValidationError{Path: "tags", Err: fmt.Errorf("at least one tag is required")}
	}
	seen := make(map[string]bool, len(c.Tags))
	for i, t := range c.Tags {
		if strings.TrimSpace(t.Name) == "" {
			return &ValidationError{Path: fmt.Sprintf("tags[%d].name", i), Err: fmt.Errorf("tag name must not be empty")}
		}
		if seen[t.Name] {
			return &ValidationError{Path: fmt.Sprintf("tags[%d].name", i), Err: fmt.Errorf("duplicate tag %q", t.Name)}
		}
		seen[t.Name] = true
		if t.Layout != "" && !layout.Known(t.Layout) {
			return &ValidationError{Path: fmt.Sprintf("tags[%d].layout", i), Err: fmt.Errorf("unknown layout %q", t.Layout)}
		}
		if t.MainRatio != 0 && (t.MainRatio < 0.1 || t.MainRatio > 0.9) {
			return &ValidationError{Path: fmt.Sprintf("tags[%d].main_ratio", i), Err: fmt.Errorf("main_ratio must be between 0.1 and 0.9")}
		}
	}
	if c.Layout != "" && !layout.Known(c.Layout) {
		return &ValidationError{Path: "layout", Err: fmt.Errorf("unknown layout %q", c.Layout)}
	}
	if c.Gap < 0 {
		return &ValidationError{Path: "gap", Err: fmt.Errorf("gap must be >= 0")}
	}
	switch c.FocusMode {
	case "", "click-to-focus", "focus-follows-pointer":
	default:
		return &ValidationError{Path: "focus_mode", Err: fmt.Errorf("focus_mode must be click-to-focus or focus-follows-pointer")}
	}
	switch c.Adoption.Policy {
	case "", "active-tag":
	case "scratch":
		if c.Adoption.ScratchTag == "" {
			return &ValidationError{Path: "adoption.scratch_tag", Err: fmt.Errorf("scratch policy requires a scratch_tag")}
		}
		if !seen[c.Adoption.ScratchTag] {
			return &ValidationError{Path: "adoption.scratch_tag", Err: fmt.Errorf("scratch_tag %q is not a configured tag", c.Adoption.ScratchTag)}
		}
	default:
		return &ValidationError{Path: "adoption.policy", Err: fmt.Errorf("policy must be active-tag or scratch")}
	}
	if c.Border.Width < 0 {
		return &ValidationError{Path: "border.width", Err: fmt.Errorf("width must be >= 0")}
	}
	for path, color := range map[string]string{
		"border.focused": c.Border.Focused,
		"border.normal":  c.Border.Normal,
		"border.urgent":  c.Border.Urgent,
	} {
		if color == "" {
			continue
		}
		if !validHexColor(color) {
			return &ValidationError{Path: path, Err: fmt.Errorf("color %q must look like #rrggbb", color)}
		}
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	for combo, spec := range c.Keybindings {
		if _, err := parseBinding(spec); err != nil {
			return &ValidationError{Path: "keybindings." + combo, Err: err}
		}
	}
	return nil
}

func validHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func parseBinding(spec string) (core.Command, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(spec), " ")
	return core.ParseCommand(name, strings.TrimSpace(arg))
}

// CoreTags materializes the tag list, filling per-tag layout defaults.
func (c *Config) CoreTags() []*core.Tag {
	defLayout := c.Layout
	if defLayout == "" {
		defLayout = "mainstack"
	}
	tags := make([]*core.Tag, 0, len(c.Tags))
	for _, tc := range c.Tags {
		l := tc.Layout
		if l == "" {
			l = defLayout
		}
		ratio := tc.MainRatio
		if ratio == 0 {
			ratio = 0.6
		}
		count := tc.MainCount
		if count == 0 {
			count = 1
		}
		label := tc.Label
		if label == "" {
			label = tc.Name
		}
		tags = append(tags, &core.Tag{
			Name:   tc.Name,
			Label:  label,
			Layout: l,
			Params: layout.Params{MainRatio: ratio, MainCount: count},
		})
	}
	return tags
}

// CorePolicy maps the adoption and focus settings to model policy.
func (c *Config) CorePolicy() core.Policy {
	p := core.Policy{ScratchTag: c.Adoption.ScratchTag}
	if c.Adoption.Policy == "scratch" {
		p.Adoption = core.AdoptToScratchTag
	}
	if c.FocusMode == "focus-follows-pointer" {
		p.FocusMode = core.FocusFollowsPointer
	}
	return p
}

// Bindings compiles the keybinding table. Validate must have passed.
func (c *Config) Bindings() []core.Binding {
	out := make([]core.Binding, 0, len(c.Keybindings))
	for combo, spec := range c.Keybindings {
		cmd, err := parseBinding(spec)
		if err != nil {
			continue
		}
		out = append(out, core.Binding{Combo: NormalizeCombo(combo), Command: cmd})
	}
	return out
}

// NormalizeCombo lowercases a combo and orders its modifiers so lookups do not
// depend on how the user spelled the binding.
func NormalizeCombo(combo string) string {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(combo)), "-")
	var mods []string
	key := ""
	for _, p := range parts {
		switch p {
		case "mod1", "mod4", "shift", "control", "ctrl":
			if p == "ctrl" {
				p = "control"
			}
			mods = append(mods, p)
		default:
			key = p
		}
	}
	order := map[string]int{"mod4": 0, "mod1": 1, "control": 2, "shift": 3}
	for i := 0; i < len(mods); i++ {
		for j := i + 1; j < len(mods); j++ {
			if order[mods[j]] < order[mods[i]] {
				mods[i], mods[j] = mods[j], mods[i]
			}
		}
	}
	if key != "" {
		mods = append(mods, key)
	}
	return strings.Join(mods, "-")
}

// SlogLevel maps the configured log level to slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
