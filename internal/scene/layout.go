package scene

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidViewport is returned for zero or negative canvas dimensions.
// Silent division artifacts would corrupt every position, so the layout
// fails fast instead.
var ErrInvalidViewport = errors.New("viewport dimensions must be positive")

// Layout computes one deterministic position per node, in node order.
// The formula is keyed by node count:
//
//	n <= 3   single horizontal row at mid height
//	4..6     two rows, ceil(n/2) columns
//	n > 6    circle around the canvas center, node 0 at the top
func Layout(n int, width, height float64) ([]Position, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: got %gx%g", ErrInvalidViewport, width, height)
	}
	positions := make([]Position, 0, n)
	switch {
	case n <= 0:
	case n <= 3:
		for i := 0; i < n; i++ {
			positions = append(positions, Position{
				X: width / float64(n+1) * float64(i+1),
				Y: height / 2,
			})
		}
	case n <= 6:
		cols := (n + 1) / 2
		for i := 0; i < n; i++ {
			row := i / cols
			col := i % cols
			positions = append(positions, Position{
				X: width / float64(cols+1) * float64(col+1),
				Y: height / 3 * float64(row+1),
			})
		}
	default:
		cx := width / 2
		cy := height / 2
		r := 0.35 * math.Min(width, height)
		for i := 0; i < n; i++ {
			angle := float64(i)/float64(n)*2*math.Pi - math.Pi/2
			positions = append(positions, Position{
				X: cx + r*math.Cos(angle),
				Y: cy + r*math.Sin(angle),
			})
		}
	}
	return positions, nil
}
