package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tagwm/tagwm/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(cfg.Tags) != 9 {
		t.Errorf("default tag count = %d, want 9", len(cfg.Tags))
	}
	if cfg.FocusMode != "click-to-focus" {
		t.Errorf("default focus mode = %q", cfg.FocusMode)
	}
}

func TestLoadFromPath_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
tags:
  - name: web
    layout: monocle
  - name: code
    main_ratio: 0.55
gap: 8
focus_mode: focus-follows-pointer
adoption:
  policy: scratch
  scratch_tag: web
keybindings:
  mod4-w: "goto-tag web"
`)
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Tags) != 2 || cfg.Tags[0].Name != "web" {
		t.Fatalf("tags = %+v", cfg.Tags)
	}
	if cfg.Gap != 8 {
		t.Errorf("gap = %d", cfg.Gap)
	}
	if cfg.Border.Width != 2 {
		t.Errorf("untouched border width should keep its default, got %d", cfg.Border.Width)
	}
	if cfg.Keybindings["mod4-w"] != "goto-tag web" {
		t.Errorf("keybinding missing: %v", cfg.Keybindings)
	}
	// Default bindings survive an overlay that only adds keys.
	if cfg.Keybindings["mod4-j"] != "focus-window-next" {
		t.Errorf("default binding lost: %v", cfg.Keybindings["mod4-j"])
	}
}

func TestLoadFromPath_UnknownKeyRejected(t *testing.T) {
	path := writeConfig(t, "gaps: 5\n")
	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("unknown key should be rejected")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"no tags", func(c *Config) { c.Tags = nil }, "tags"},
		{"duplicate tag", func(c *Config) { c.Tags = append(c.Tags, TagConfig{Name: "1"}) }, "tags[9].name"},
		{"bad layout", func(c *Config) { c.Layout = "spiral" }, "layout"},
		{"negative gap", func(c *Config) { c.Gap = -1 }, "gap"},
		{"bad focus mode", func(c *Config) { c.FocusMode = "sloppy" }, "focus_mode"},
		{"scratch without tag", func(c *Config) { c.Adoption = AdoptionConfig{Policy: "scratch"} }, "adoption.scratch_tag"},
		{"scratch unknown tag", func(c *Config) { c.Adoption = AdoptionConfig{Policy: "scratch", ScratchTag: "zz"} }, "adoption.scratch_tag"},
		{"bad color", func(c *Config) { c.Border.Focused = "blue" }, "border.focused"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"bad binding", func(c *Config) { c.Keybindings["mod4-x"] = "frobnicate" }, "keybindings.mod4-x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tt.path) {
				t.Errorf("error %q does not name path %q", err, tt.path)
			}
		})
	}
}

func TestCoreTags_FillsDefaults(t *testing.T) {
	cfg := &Config{
		Tags:   []TagConfig{{Name: "a"}, {Name: "b", Layout: "grid", MainRatio: 0.5}},
		Layout: "monocle",
	}
	tags := cfg.CoreTags()
	if tags[0].Layout != "monocle" {
		t.Errorf("tag a layout = %q, want the global default", tags[0].Layout)
	}
	if tags[0].Params.MainRatio != 0.6 || tags[0].Params.MainCount != 1 {
		t.Errorf("tag a params = %+v", tags[0].Params)
	}
	if tags[1].Layout != "grid" || tags[1].Params.MainRatio != 0.5 {
		t.Errorf("tag b = %+v", tags[1])
	}
}

func TestCorePolicy(t *testing.T) {
	cfg := DefaultConfig()
	if p := cfg.CorePolicy(); p.Adoption != core.AdoptToActiveTag || p.FocusMode != core.ClickToFocus {
		t.Errorf("default policy = %+v", p)
	}
	cfg.Adoption = AdoptionConfig{Policy: "scratch", ScratchTag: "9"}
	cfg.FocusMode = "focus-follows-pointer"
	p := cfg.CorePolicy()
	if p.Adoption != core.AdoptToScratchTag || p.ScratchTag != "9" || p.FocusMode != core.FocusFollowsPointer {
		t.Errorf("policy = %+v", p)
	}
}

func TestBindings_Normalized(t *testing.T) {
	cfg := &Config{
		Tags:        []TagConfig{{Name: "1"}},
		Keybindings: map[string]string{"Shift-Mod4-Q": "close-window"},
	}
	bindings := cfg.Bindings()
	if len(bindings) != 1 {
		t.Fatalf("got %d bindings", len(bindings))
	}
	if bindings[0].Combo != "mod4-shift-q" {
		t.Errorf("combo = %q, want mod4-shift-q", bindings[0].Combo)
	}
	if bindings[0].Command.Kind != core.CmdCloseWindow {
		t.Errorf("command = %+v", bindings[0].Command)
	}
}

func TestNormalizeCombo(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Mod4-J", "mod4-j"},
		{"shift-mod4-1", "mod4-shift-1"},
		{"Ctrl-Mod1-t", "mod1-control-t"},
		{"mod4-Return", "mod4-return"},
	}
	for _, tt := range tests {
		if got := NormalizeCombo(tt.in); got != tt.want {
			t.Errorf("NormalizeCombo(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
