package scene

import (
	"errors"
	"math"
	"testing"
)

func TestLayoutRowPlacement(t *testing.T) {
	for n := 1; n <= 3; n++ {
		positions, err := Layout(n, 800, 600)
		if err != nil {
			t.Fatalf("layout n=%d: %v", n, err)
		}
		if len(positions) != n {
			t.Fatalf("layout n=%d returned %d positions", n, len(positions))
		}
		for i, p := range positions {
			if p.Y != 300 {
				t.Fatalf("n=%d node %d y=%g, want 300", n, i, p.Y)
			}
			wantX := 800 / float64(n+1) * float64(i+1)
			if p.X != wantX {
				t.Fatalf("n=%d node %d x=%g, want %g", n, i, p.X, wantX)
			}
			if i > 0 && positions[i].X <= positions[i-1].X {
				t.Fatalf("n=%d x not strictly increasing at %d", n, i)
			}
		}
	}
}

func TestLayoutTwoRowGrid(t *testing.T) {
	positions, err := Layout(4, 300, 300)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	want := []Position{
		{X: 100, Y: 100},
		{X: 200, Y: 100},
		{X: 100, Y: 200},
		{X: 200, Y: 200},
	}
	if len(positions) != len(want) {
		t.Fatalf("got %d positions, want %d", len(positions), len(want))
	}
	for i := range want {
		if positions[i] != want[i] {
			t.Fatalf("node %d at %+v, want %+v", i, positions[i], want[i])
		}
	}
}

func TestLayoutCircle(t *testing.T) {
	const n = 8
	width, height := 640.0, 480.0
	positions, err := Layout(n, width, height)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if len(positions) != n {
		t.Fatalf("got %d positions", len(positions))
	}

	cx, cy := width/2, height/2
	wantRadius := 0.35 * height
	const tolerance = 1e-9
	var prevAngle float64
	for i, p := range positions {
		r := math.Hypot(p.X-cx, p.Y-cy)
		if math.Abs(r-wantRadius) > tolerance {
			t.Fatalf("node %d radius %g, want %g", i, r, wantRadius)
		}
		angle := math.Atan2(p.Y-cy, p.X-cx)
		if i > 0 {
			delta := math.Mod(angle-prevAngle+2*math.Pi, 2*math.Pi)
			if math.Abs(delta-2*math.Pi/n) > tolerance {
				t.Fatalf("node %d angular step %g, want %g", i, delta, 2*math.Pi/n)
			}
		}
		prevAngle = angle
	}

	// Node 0 sits at the top of the circle.
	if math.Abs(positions[0].X-cx) > tolerance || math.Abs(positions[0].Y-(cy-wantRadius)) > tolerance {
		t.Fatalf("node 0 at %+v, want top of circle", positions[0])
	}
}

func TestLayoutAllCountsFinite(t *testing.T) {
	for n := 0; n <= 24; n++ {
		positions, err := Layout(n, 1024, 768)
		if err != nil {
			t.Fatalf("layout n=%d: %v", n, err)
		}
		if len(positions) != n {
			t.Fatalf("layout n=%d returned %d positions", n, len(positions))
		}
		for i, p := range positions {
			if math.IsNaN(p.X) || math.IsInf(p.X, 0) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
				t.Fatalf("n=%d node %d has non-finite position %+v", n, i, p)
			}
			if p.X < 0 || p.X > 1024 || p.Y < 0 || p.Y > 768 {
				t.Fatalf("n=%d node %d outside canvas: %+v", n, i, p)
			}
		}
	}
}

func TestLayoutEmpty(t *testing.T) {
	positions, err := Layout(0, 100, 100)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if len(positions) != 0 {
		t.Fatalf("expected empty result, got %d positions", len(positions))
	}
}

func TestLayoutInvalidViewport(t *testing.T) {
	cases := []struct{ w, h float64 }{
		{0, 100},
		{100, 0},
		{-1, 100},
		{100, -1},
		{0, 0},
	}
	for _, tc := range cases {
		if _, err := Layout(3, tc.w, tc.h); !errors.Is(err, ErrInvalidViewport) {
			t.Fatalf("Layout(3, %g, %g) error = %v, want ErrInvalidViewport", tc.w, tc.h, err)
		}
	}
}
