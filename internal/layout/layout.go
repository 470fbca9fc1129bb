package layout

import (
	"fmt"
	"math"
)

// Rect represents a window position and size in root coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Slot is one tiled window handed to the oracle. Order is stacking order.
type Slot struct {
	ID      uint32
	Focused bool
}

// Params are the per-tag tunables a layout may consume.
type Params struct {
	MainRatio float64
	MainCount int
}

// Spec names a layout and carries its parameters.
type Spec struct {
	Name   string
	Params Params
	Gap    int
}

// Placement is the oracle's verdict for a single window. A hidden placement
// means the layout chose not to show the window at all (monocle).
type Placement struct {
	ID     uint32
	Rect   Rect
	Hidden bool
}

// Oracle computes placements for a set of windows within an area. It must be
// pure and deterministic for identical input.
type Oracle interface {
	Compute(slots []Slot, spec Spec, area Rect) []Placement
}

// Names lists the built-in layouts in cycle order.
func Names() []string {
	return []string{"mainstack", "monocle", "grid", "evenhorizontal", "evenvertical"}
}

// Known reports whether name is a built-in layout.
func Known(name string) bool {
	for _, n := range Names() {
		if n == name {
			return true
		}
	}
	return false
}

type layoutFunc func(slots []Slot, spec Spec, area Rect) []Placement

// Engine is the production Oracle backed by the built-in layout table.
type Engine struct {
	table map[string]layoutFunc
}

// NewEngine creates an oracle with all built-in layouts registered.
func NewEngine() *Engine {
	return &Engine{table: map[string]layoutFunc{
		"monocle":        monocle,
		"mainstack":      mainStack,
		"grid":           grid,
		"evenhorizontal": evenHorizontal,
		"evenvertical":   evenVertical,
	}}
}

// Compute dispatches to the named layout. An unknown name falls back to
// mainstack so a bad config value degrades instead of blanking the screen.
func (e *Engine) Compute(slots []Slot, spec Spec, area Rect) []Placement {
	if len(slots) == 0 {
		return nil
	}
	fn, ok := e.table[spec.Name]
	if !ok {
		fn = mainStack
	}
	return fn(slots, spec, area)
}

// monocle shows only the focused window, full-area. Everything else is hidden.
func monocle(slots []Slot, spec Spec, area Rect) []Placement {
	shown := 0
	for i, s := range slots {
		if s.Focused {
			shown = i
			break
		}
	}
	inner := shrink(area, spec.Gap)
	placements := make([]Placement, len(slots))
	for i, s := range slots {
		placements[i] = Placement{ID: s.ID, Rect: inner, Hidden: i != shown}
	}
	return placements
}

// mainStack places the first MainCount windows in a main column sized by
// MainRatio and stacks the rest vertically on the right.
func mainStack(slots []Slot, spec Spec, area Rect) []Placement {
	n := len(slots)
	gap := spec.Gap
	ratio := spec.Params.MainRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.6
	}
	mainCount := spec.Params.MainCount
	if mainCount < 1 {
		mainCount = 1
	}

	// Not enough windows for a stack: even vertical split of the full area.
	if n <= mainCount {
		return column(slots, shrink(area, gap), gap)
	}

	mainWidth := int(float64(area.Width) * ratio)
	mainArea := Rect{
		X:      area.X + gap,
		Y:      area.Y + gap,
		Width:  mainWidth - 2*gap,
		Height: area.Height - 2*gap,
	}
	stackArea := Rect{
		X:      area.X + mainWidth,
		Y:      area.Y + gap,
		Width:  area.Width - mainWidth - gap,
		Height: area.Height - 2*gap,
	}

	placements := column(slots[:mainCount], mainArea, gap)
	placements = append(placements, column(slots[mainCount:], stackArea, gap)...)
	return placements
}

// column stacks slots vertically within area, gap pixels apart.
func column(slots []Slot, area Rect, gap int) []Placement {
	n := len(slots)
	if n == 0 {
		return nil
	}
	cellHeight := (area.Height - (n-1)*gap) / n
	if cellHeight < 1 {
		cellHeight = 1
	}
	placements := make([]Placement, n)
	for i, s := range slots {
		placements[i] = Placement{ID: s.ID, Rect: Rect{
			X:      area.X,
			Y:      area.Y + i*(cellHeight+gap),
			Width:  clampMin(area.Width, 1),
			Height: cellHeight,
		}}
	}
	return placements
}

// grid arranges windows in a near-square grid with gaps between cells.
func grid(slots []Slot, spec Spec, area Rect) []Placement {
	n := len(slots)
	gap := spec.Gap
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := int(math.Ceil(float64(n) / float64(cols)))

	cellWidth := (area.Width - (cols+1)*gap) / cols
	cellHeight := (area.Height - (rows+1)*gap) / rows
	cellWidth = clampMin(cellWidth, 1)
	cellHeight = clampMin(cellHeight, 1)

	placements := make([]Placement, n)
	for i, s := range slots {
		row := i / cols
		col := i % cols
		placements[i] = Placement{ID: s.ID, Rect: Rect{
			X:      area.X + gap + col*(cellWidth+gap),
			Y:      area.Y + gap + row*(cellHeight+gap),
			Width:  cellWidth,
			Height: cellHeight,
		}}
	}
	return placements
}

func evenHorizontal(slots []Slot, spec Spec, area Rect) []Placement {
	n := len(slots)
	gap := spec.Gap
	cellWidth := (area.Width - (n+1)*gap) / n
	cellWidth = clampMin(cellWidth, 1)
	height := clampMin(area.Height-2*gap, 1)

	placements := make([]Placement, n)
	for i, s := range slots {
		placements[i] = Placement{ID: s.ID, Rect: Rect{
			X:      area.X + gap + i*(cellWidth+gap),
			Y:      area.Y + gap,
			Width:  cellWidth,
			Height: height,
		}}
	}
	return placements
}

func evenVertical(slots []Slot, spec Spec, area Rect) []Placement {
	return column(slots, shrink(area, spec.Gap), spec.Gap)
}

// shrink insets a rect by gap on all sides, clamping to a 1x1 minimum.
func shrink(r Rect, gap int) Rect {
	out := Rect{
		X:      r.X + gap,
		Y:      r.Y + gap,
		Width:  r.Width - 2*gap,
		Height: r.Height - 2*gap,
	}
	out.Width = clampMin(out.Width, 1)
	out.Height = clampMin(out.Height, 1)
	return out
}

func clampMin(v, lo int) int {
	if v < lo {
		return lo
	}
	return v
}

// String implements fmt.Stringer for diagnostics.
func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}
