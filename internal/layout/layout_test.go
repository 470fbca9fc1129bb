package layout

import "testing"

func slotIDs(n int) []Slot {
	slots := make([]Slot, n)
	for i := range slots {
		slots[i] = Slot{ID: uint32(i + 1)}
	}
	return slots
}

func TestMonocle_OnlyFocusedVisible(t *testing.T) {
	slots := slotIDs(3)
	slots[1].Focused = true
	area := Rect{X: 0, Y: 0, Width: 800, Height: 600}

	placements := NewEngine().Compute(slots, Spec{Name: "monocle"}, area)
	if len(placements) != 3 {
		t.Fatalf("expected 3 placements, got %d", len(placements))
	}
	for i, p := range placements {
		wantHidden := i != 1
		if p.Hidden != wantHidden {
			t.Errorf("placement %d: hidden=%v, want %v", i, p.Hidden, wantHidden)
		}
	}
	if placements[1].Rect != area {
		t.Errorf("focused rect = %v, want %v", placements[1].Rect, area)
	}
}

func TestMonocle_NoFocusDefaultsToFirst(t *testing.T) {
	placements := NewEngine().Compute(slotIDs(2), Spec{Name: "monocle"}, Rect{Width: 100, Height: 100})
	if placements[0].Hidden || !placements[1].Hidden {
		t.Fatalf("expected first visible, second hidden, got %v / %v", placements[0].Hidden, placements[1].Hidden)
	}
}

func TestMainStack_SingleWindowFillsArea(t *testing.T) {
	area := Rect{X: 0, Y: 0, Width: 1000, Height: 600}
	placements := NewEngine().Compute(slotIDs(1), Spec{Name: "mainstack", Params: Params{MainRatio: 0.6, MainCount: 1}}, area)
	if placements[0].Rect != area {
		t.Fatalf("single window rect = %v, want full area", placements[0].Rect)
	}
}

func TestMainStack_SplitsAtRatio(t *testing.T) {
	area := Rect{X: 0, Y: 0, Width: 1000, Height: 600}
	placements := NewEngine().Compute(slotIDs(3), Spec{Name: "mainstack", Params: Params{MainRatio: 0.6, MainCount: 1}}, area)

	main := placements[0].Rect
	if main.Width != 600 {
		t.Errorf("main width = %d, want 600", main.Width)
	}
	// Two stack windows split the remaining 400px column evenly.
	if placements[1].Rect.X != 600 || placements[2].Rect.X != 600 {
		t.Errorf("stack X = %d/%d, want 600", placements[1].Rect.X, placements[2].Rect.X)
	}
	if placements[1].Rect.Height != 300 || placements[2].Rect.Height != 300 {
		t.Errorf("stack heights = %d/%d, want 300", placements[1].Rect.Height, placements[2].Rect.Height)
	}
	if placements[2].Rect.Y != 300 {
		t.Errorf("second stack Y = %d, want 300", placements[2].Rect.Y)
	}
}

func TestMainStack_MainCountTwo(t *testing.T) {
	area := Rect{X: 0, Y: 0, Width: 1000, Height: 600}
	placements := NewEngine().Compute(slotIDs(3), Spec{Name: "mainstack", Params: Params{MainRatio: 0.5, MainCount: 2}}, area)
	if placements[0].Rect.X != 0 || placements[1].Rect.X != 0 {
		t.Errorf("first two windows should be in the main column")
	}
	if placements[2].Rect.X != 500 {
		t.Errorf("stack X = %d, want 500", placements[2].Rect.X)
	}
}

func TestGrid_FourWindowsTwoByTwo(t *testing.T) {
	area := Rect{X: 0, Y: 0, Width: 210, Height: 210}
	placements := NewEngine().Compute(slotIDs(4), Spec{Name: "grid", Gap: 10}, area)

	// gaps: (2+1)*10 = 30 per axis, cell = (210-30)/2 = 90
	want := []Rect{
		{X: 10, Y: 10, Width: 90, Height: 90},
		{X: 110, Y: 10, Width: 90, Height: 90},
		{X: 10, Y: 110, Width: 90, Height: 90},
		{X: 110, Y: 110, Width: 90, Height: 90},
	}
	for i, p := range placements {
		if p.Rect != want[i] {
			t.Errorf("cell %d = %v, want %v", i, p.Rect, want[i])
		}
	}
}

func TestEvenVertical_SplitsHeight(t *testing.T) {
	area := Rect{X: 0, Y: 0, Width: 100, Height: 300}
	placements := NewEngine().Compute(slotIDs(3), Spec{Name: "evenvertical"}, area)
	for i, p := range placements {
		if p.Rect.Height != 100 {
			t.Errorf("window %d height = %d, want 100", i, p.Rect.Height)
		}
		if p.Rect.Y != i*100 {
			t.Errorf("window %d Y = %d, want %d", i, p.Rect.Y, i*100)
		}
	}
}

func TestEvenHorizontal_SplitsWidth(t *testing.T) {
	area := Rect{X: 0, Y: 0, Width: 330, Height: 100}
	placements := NewEngine().Compute(slotIDs(2), Spec{Name: "evenhorizontal", Gap: 10}, area)
	// gaps: 3*10=30, cell = (330-30)/2 = 150
	if placements[0].Rect.Width != 150 || placements[1].Rect.Width != 150 {
		t.Fatalf("widths = %d/%d, want 150", placements[0].Rect.Width, placements[1].Rect.Width)
	}
	if placements[1].Rect.X != 170 {
		t.Fatalf("second X = %d, want 170", placements[1].Rect.X)
	}
}

func TestCompute_UnknownLayoutFallsBack(t *testing.T) {
	placements := NewEngine().Compute(slotIDs(1), Spec{Name: "nope"}, Rect{Width: 100, Height: 100})
	if len(placements) != 1 || placements[0].Hidden {
		t.Fatalf("expected fallback layout to place the window")
	}
}

func TestCompute_EmptyInput(t *testing.T) {
	if got := NewEngine().Compute(nil, Spec{Name: "grid"}, Rect{Width: 100, Height: 100}); got != nil {
		t.Fatalf("expected nil placements for empty input, got %v", got)
	}
}
