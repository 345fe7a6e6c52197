package scene

const (
	MinZoom  = 0.5
	MaxZoom  = 3.0
	ZoomStep = 1.2
)

// View is the uniform zoom/pan transform applied when projecting scene
// coordinates onto a surface.
type View struct {
	Scale  float64
	Offset Position

	minZoom  float64
	maxZoom  float64
	zoomStep float64
}

func NewView() *View {
	return NewViewWithLimits(MinZoom, MaxZoom, ZoomStep)
}

// NewViewWithLimits builds a view with configured zoom bounds. Nonsensical
// values fall back to the package defaults.
func NewViewWithLimits(minZoom, maxZoom, zoomStep float64) *View {
	if minZoom <= 0 {
		minZoom = MinZoom
	}
	if maxZoom < minZoom {
		maxZoom = MaxZoom
	}
	if zoomStep <= 1 {
		zoomStep = ZoomStep
	}
	return &View{Scale: 1.0, minZoom: minZoom, maxZoom: maxZoom, zoomStep: zoomStep}
}

func (v *View) ZoomIn() {
	v.Scale = v.clampScale(v.Scale * v.zoomStep)
}

func (v *View) ZoomOut() {
	v.Scale = v.clampScale(v.Scale / v.zoomStep)
}

func (v *View) Reset() {
	v.Scale = 1.0
	v.Offset = Position{}
}

// Project maps a scene position into surface coordinates.
func (v *View) Project(p Position) Position {
	return Position{
		X: p.X*v.Scale + v.Offset.X,
		Y: p.Y*v.Scale + v.Offset.Y,
	}
}

// Unproject maps a surface position back into scene coordinates. Scale is
// never zero, the clamp keeps it inside [MinZoom, MaxZoom].
func (v *View) Unproject(p Position) Position {
	return Position{
		X: (p.X - v.Offset.X) / v.Scale,
		Y: (p.Y - v.Offset.Y) / v.Scale,
	}
}

func (v *View) clampScale(s float64) float64 {
	if s < v.minZoom {
		return v.minZoom
	}
	if s > v.maxZoom {
		return v.maxZoom
	}
	return s
}
