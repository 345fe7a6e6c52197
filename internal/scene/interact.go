package scene

import (
	"strandviz/internal/event"
)

type pointerState int

const (
	stateIdle pointerState = iota
	stateDragging
)

// Controller converts pointer events into selection and drag mutations on
// the active scene. It is a two-state machine: Idle and Dragging. A second
// pointer-down while a drag is in progress is ignored; the original drag
// keeps running until its pointer-up.
type Controller struct {
	stage    *Stage
	renderer *Renderer
	bus      *event.Bus

	state  pointerState
	dragID string
	// offset between the pointer and the node origin at drag start, so the
	// node does not jump to the pointer on the first move.
	offset Position
}

func NewController(stage *Stage, renderer *Renderer, bus *event.Bus) *Controller {
	return &Controller{
		stage:    stage,
		renderer: renderer,
		bus:      bus,
	}
}

func (c *Controller) Dragging() bool { return c.state == stateDragging }

// PointerDown begins a drag on the named node.
func (c *Controller) PointerDown(nodeID string, pointer Position) {
	if c.state == stateDragging {
		return
	}
	sc := c.stage.Current()
	if sc == nil {
		return
	}
	pos, ok := sc.Position(nodeID)
	if !ok {
		return
	}
	c.state = stateDragging
	c.dragID = nodeID
	c.offset = Position{X: pointer.X - pos.X, Y: pointer.Y - pos.Y}
}

// PointerMove repositions the dragged node to pointer minus the recorded
// offset. No clamping: the node may leave the canvas. The edge layer is
// rebuilt so edges follow the node.
func (c *Controller) PointerMove(pointer Position) {
	if c.state != stateDragging {
		return
	}
	sc := c.stage.Current()
	if sc == nil {
		return
	}
	pos := Position{X: pointer.X - c.offset.X, Y: pointer.Y - c.offset.Y}
	if !sc.SetPosition(c.dragID, pos) {
		return
	}
	c.renderer.RedrawEdges(sc)
	c.renderer.RedrawNode(sc, c.dragID)
}

// PointerUp ends the drag. The node stays where the last move put it.
func (c *Controller) PointerUp() {
	c.state = stateIdle
	c.dragID = ""
	c.offset = Position{}
}

// Click selects the node and notifies observers with the full agent
// record. Exactly one node carries the selection marker afterwards.
func (c *Controller) Click(nodeID string) {
	if c.state == stateDragging {
		return
	}
	sc := c.stage.Current()
	if sc == nil {
		return
	}
	n, ok := sc.Node(nodeID)
	if !ok {
		return
	}
	previous := sc.Select(nodeID)
	if previous != "" && previous != nodeID {
		c.renderer.RedrawNode(sc, previous)
	}
	c.renderer.RedrawNode(sc, nodeID)
	if c.bus != nil {
		c.bus.Publish(event.Event{
			Kind:       event.KindNodeSelected,
			NodeID:     nodeID,
			Agent:      n.Agent,
			Generation: sc.Generation(),
		})
	}
}
