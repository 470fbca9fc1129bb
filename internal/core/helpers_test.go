package core

import (
	"io"
	"log/slog"

	"github.com/tagwm/tagwm/internal/layout"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTags(names ...string) []*Tag {
	tags := make([]*Tag, len(names))
	for i, n := range names {
		tags[i] = &Tag{Name: n, Label: n, Layout: "monocle", Params: layout.Params{MainRatio: 0.6, MainCount: 1}}
	}
	return tags
}

// newTestModel builds a model with the given tags and one 800x600 workspace
// displaying the first tag.
func newTestModel(tagNames ...string) *Model {
	if len(tagNames) == 0 {
		tagNames = []string{"1"}
	}
	m := NewModel(testTags(tagNames...), Policy{})
	rec := NewReconciler(testLogger())
	rec.Reconcile(m, ScreensChanged{Screens: []Screen{
		{Name: "eDP-1", Geom: layout.Rect{X: 0, Y: 0, Width: 800, Height: 600}},
	}})
	return m
}

func addTestWindow(m *Model, id WindowID, tags ...string) *Window {
	if len(tags) == 0 {
		tags = []string{"1"}
	}
	w := &Window{ID: id, Tags: tags}
	m.AddWindow(w)
	return w
}

// fakeAdapter is the display adapter test double: scripted screens and
// windows in, recorded batches out.
type fakeAdapter struct {
	events      chan DisplayEvent
	screens     []Screen
	existing    []WindowCreated
	batches     [][]DisplayAction
	dispatchErr error
	closed      bool
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		events: make(chan DisplayEvent, 16),
		screens: []Screen{
			{Name: "eDP-1", Geom: layout.Rect{X: 0, Y: 0, Width: 800, Height: 600}},
		},
	}
}

func (f *fakeAdapter) Events() <-chan DisplayEvent { return f.events }

func (f *fakeAdapter) Dispatch(actions []DisplayAction) error {
	if f.dispatchErr != nil {
		return f.dispatchErr
	}
	f.batches = append(f.batches, append([]DisplayAction(nil), actions...))
	return nil
}

func (f *fakeAdapter) QueryScreens() ([]Screen, error)           { return f.screens, nil }
func (f *fakeAdapter) QueryPointer() (int, int, error)           { return 0, 0, nil }
func (f *fakeAdapter) ExistingWindows() ([]WindowCreated, error) { return f.existing, nil }
func (f *fakeAdapter) Close() error                              { f.closed = true; return nil }

// countingOracle wraps the production oracle and counts Compute calls.
type countingOracle struct {
	inner layout.Oracle
	calls int
}

func (c *countingOracle) Compute(slots []layout.Slot, spec layout.Spec, area layout.Rect) []layout.Placement {
	c.calls++
	return c.inner.Compute(slots, spec, area)
}

func kinds(batch []DisplayAction) []ActionKind {
	out := make([]ActionKind, len(batch))
	for i, a := range batch {
		out[i] = a.Kind
	}
	return out
}

func kindsEqual(a, b []ActionKind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
