package scene

// Surface is the drawing capability a host adapter provides. The renderer
// holds no drawing primitives of its own; the terminal adapter (or a test
// fake) implements this.
type Surface interface {
	// Clear wipes everything drawn so far.
	Clear()
	// ClearEdges removes only the edge layer, leaving node visuals alone.
	ClearEdges()
	// DrawEdge draws a directed edge with an arrowhead at to.
	DrawEdge(from, to Position)
	// DrawNode draws one node with its current marker state.
	DrawNode(n Node, selected, highlighted bool)
}

// Renderer materializes a scene onto a surface. Edge endpoints are always
// resolved against the live node set at draw time; an edge whose endpoint
// id is missing is skipped without error.
type Renderer struct {
	surface Surface
	view    *View
}

func NewRenderer(surface Surface, view *View) *Renderer {
	if view == nil {
		view = NewView()
	}
	return &Renderer{surface: surface, view: view}
}

func (r *Renderer) View() *View { return r.view }

// Draw fully redraws the scene: clear, then all edges, then all nodes, so
// nodes occlude edge endpoints.
func (r *Renderer) Draw(sc *Scene) {
	r.surface.Clear()
	if sc == nil {
		return
	}
	r.drawEdges(sc)
	for _, n := range sc.Nodes() {
		r.drawNode(sc, n)
	}
}

// RedrawEdges rebuilds only the edge layer, re-reading node positions. Used
// after a drag so moved endpoints are picked up without touching nodes.
func (r *Renderer) RedrawEdges(sc *Scene) {
	r.surface.ClearEdges()
	if sc == nil {
		return
	}
	r.drawEdges(sc)
}

// RedrawNode redraws a single node in place. Missing ids are ignored.
func (r *Renderer) RedrawNode(sc *Scene, id string) {
	if sc == nil {
		return
	}
	n, ok := sc.Node(id)
	if !ok {
		return
	}
	r.drawNode(sc, n)
}

func (r *Renderer) drawEdges(sc *Scene) {
	for _, e := range sc.Edges() {
		from, okFrom := sc.Position(e.From)
		to, okTo := sc.Position(e.To)
		if !okFrom || !okTo {
			continue
		}
		r.surface.DrawEdge(r.view.Project(from), r.view.Project(to))
	}
}

func (r *Renderer) drawNode(sc *Scene, n *Node) {
	pos, ok := sc.Position(n.ID)
	if !ok {
		return
	}
	projected := *n
	projected.Pos = r.view.Project(pos)
	r.surface.DrawNode(projected, n.ID == sc.SelectedID(), sc.Highlighted(n.ID))
}
