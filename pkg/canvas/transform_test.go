package canvas

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPan(t *testing.T) {
	tr := NewTransform()
	tr.Pan(15, -40)
	tr.Pan(5, 10)

	if tr.X != 20 || tr.Y != -30 {
		t.Errorf("after Pan: (X, Y) = (%v, %v), want (20, -30)", tr.X, tr.Y)
	}
	if tr.Scale != 1 {
		t.Errorf("Pan changed Scale to %v, want 1", tr.Scale)
	}
}

func TestZoomAtAnchorInvariance(t *testing.T) {
	tests := []struct {
		name   string
		anchor Point
		factor float64
	}{
		{"zoom in at origin", Point{0, 0}, 1.5},
		{"zoom out at origin", Point{0, 0}, 0.5},
		{"zoom in off-center", Point{320, 240}, 1.2},
		{"zoom out off-center", Point{-50, 600}, 0.8},
		{"tiny factor step", Point{100, 100}, 1.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Transform{X: 37, Y: -12, Scale: 1}
			world := tr.ScreenToWorld(tt.anchor)

			tr.ZoomAt(tt.anchor, tt.factor)

			back := tr.WorldToScreen(world)
			if !almostEqual(back.X, tt.anchor.X) || !almostEqual(back.Y, tt.anchor.Y) {
				t.Errorf("anchor moved: WorldToScreen = %+v, want %+v", back, tt.anchor)
			}
		})
	}
}

func TestZoomScaleClamping(t *testing.T) {
	tr := NewTransform()

	for i := 0; i < 50; i++ {
		tr.ZoomAt(Point{100, 100}, 1.5)
	}
	if tr.Scale != MaxScale {
		t.Errorf("Scale after repeated zoom-in = %v, want %v", tr.Scale, MaxScale)
	}

	for i := 0; i < 50; i++ {
		tr.ZoomAt(Point{100, 100}, 0.5)
	}
	if tr.Scale != MinScale {
		t.Errorf("Scale after repeated zoom-out = %v, want %v", tr.Scale, MinScale)
	}
}

func TestZoomRejectsNonPositiveFactor(t *testing.T) {
	tr := Transform{X: 10, Y: 20, Scale: 0.7}
	before := tr

	tr.ZoomAt(Point{50, 50}, 0)
	tr.ZoomAt(Point{50, 50}, -2)

	if tr != before {
		t.Errorf("ZoomAt with non-positive factor mutated transform: %+v, want %+v", tr, before)
	}
}

func TestWorldScreenRoundTrip(t *testing.T) {
	tr := Transform{X: -120, Y: 45, Scale: 0.6}
	world := Point{333.3, -77.7}

	got := tr.ScreenToWorld(tr.WorldToScreen(world))
	if !almostEqual(got.X, world.X) || !almostEqual(got.Y, world.Y) {
		t.Errorf("round trip = %+v, want %+v", got, world)
	}
}

func TestCenterOn(t *testing.T) {
	tr := Transform{X: 0, Y: 0, Scale: 0.5}
	world := Point{200, 100}
	anchor := Point{400, 300}

	tr.CenterOn(world, anchor)

	got := tr.WorldToScreen(world)
	if !almostEqual(got.X, anchor.X) || !almostEqual(got.Y, anchor.Y) {
		t.Errorf("WorldToScreen after CenterOn = %+v, want %+v", got, anchor)
	}
	if tr.Scale != 0.5 {
		t.Errorf("CenterOn changed Scale to %v, want 0.5", tr.Scale)
	}
}

func TestReset(t *testing.T) {
	tr := Transform{X: 999, Y: -999, Scale: 1.7}
	def := Transform{X: 10, Y: 20, Scale: 1}

	tr.Reset(def)
	if tr != def {
		t.Errorf("Reset = %+v, want %+v", tr, def)
	}

	// A default with an out-of-range scale is clamped rather than trusted.
	tr.Reset(Transform{Scale: 99})
	if tr.Scale != MaxScale {
		t.Errorf("Reset scale = %v, want %v", tr.Scale, MaxScale)
	}
}
