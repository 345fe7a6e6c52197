package main

import (
	"sort"
	"sync"

	"github.com/gdamore/tcell/v2"

	"strandviz/internal/scene"
)

type gridPoint struct {
	X int
	Y int
}

type boxSprite struct {
	id          string
	x, y        int
	width       int
	height      int
	label       string
	selected    bool
	highlighted bool
}

// Canvas rasterizes edges and node boxes onto a rune grid. Edges live in
// their own layer so a drag can rebuild them without disturbing the boxes;
// boxes are keyed by node id so redrawing a node replaces its old sprite.
type Canvas struct {
	mu    sync.Mutex
	edges map[gridPoint]rune
	boxes map[string]*boxSprite
}

func NewCanvas() *Canvas {
	return &Canvas{
		edges: make(map[gridPoint]rune),
		boxes: make(map[string]*boxSprite),
	}
}

func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edges = make(map[gridPoint]rune)
	c.boxes = make(map[string]*boxSprite)
}

func (c *Canvas) ClearEdges() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edges = make(map[gridPoint]rune)
}

// DrawEdge routes an elbow connector: horizontal from the source, then
// vertical into the target, with an arrowhead on the final segment.
func (c *Canvas) DrawEdge(from, to scene.Position) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fx, fy := int(from.X), int(from.Y)
	tx, ty := int(to.X), int(to.Y)

	step := 1
	if tx < fx {
		step = -1
	}
	for x := fx; x != tx; x += step {
		c.setEdge(x, fy, '─')
	}

	if fy == ty {
		arrow := '▶'
		if step < 0 {
			arrow = '◀'
		}
		c.setEdge(tx-step, ty, arrow)
		return
	}

	if fx != tx {
		c.setEdge(tx, fy, '+')
	}
	vstep := 1
	arrow := '▼'
	if ty < fy {
		vstep = -1
		arrow = '▲'
	}
	for y := fy + vstep; y != ty; y += vstep {
		c.setEdge(tx, y, '│')
	}
	c.setEdge(tx, ty-vstep, arrow)
}

func (c *Canvas) setEdge(x, y int, r rune) {
	if x < 0 || y < 0 {
		return
	}
	c.edges[gridPoint{X: x, Y: y}] = r
}

func (c *Canvas) DrawNode(n scene.Node, selected, highlighted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	label := n.Label
	if label == "" {
		label = n.ID
	}
	width := len([]rune(label)) + 4
	if width < 8 {
		width = 8
	}
	c.boxes[n.ID] = &boxSprite{
		id:          n.ID,
		x:           int(n.Pos.X) - width/2,
		y:           int(n.Pos.Y) - 1,
		width:       width,
		height:      3,
		label:       label,
		selected:    selected,
		highlighted: highlighted,
	}
}

// Blit paints the composited layers into the given screen region.
func (c *Canvas) Blit(screen tcell.Screen, ox, oy, width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	edgeStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)
	for p, r := range c.edges {
		if p.X >= width || p.Y >= height {
			continue
		}
		screen.SetContent(ox+p.X, oy+p.Y, r, nil, edgeStyle)
	}

	for _, b := range c.sortedBoxes() {
		c.blitBox(screen, b, ox, oy, width, height)
	}
}

func (c *Canvas) sortedBoxes() []*boxSprite {
	boxes := make([]*boxSprite, 0, len(c.boxes))
	for _, b := range c.boxes {
		boxes = append(boxes, b)
	}
	sort.Slice(boxes, func(i, j int) bool { return boxes[i].id < boxes[j].id })
	return boxes
}

func (c *Canvas) blitBox(screen tcell.Screen, b *boxSprite, ox, oy, width, height int) {
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	if b.highlighted {
		style = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	}

	horizontal, vertical := '─', '│'
	corners := [4]rune{'┌', '┐', '└', '┘'}
	if b.selected {
		horizontal, vertical = '#', '#'
		corners = [4]rune{'#', '#', '#', '#'}
	}

	set := func(x, y int, r rune) {
		if x < 0 || y < 0 || x >= width || y >= height {
			return
		}
		screen.SetContent(ox+x, oy+y, r, nil, style)
	}

	right := b.x + b.width - 1
	bottom := b.y + b.height - 1
	set(b.x, b.y, corners[0])
	set(right, b.y, corners[1])
	set(b.x, bottom, corners[2])
	set(right, bottom, corners[3])
	for x := b.x + 1; x < right; x++ {
		set(x, b.y, horizontal)
		set(x, bottom, horizontal)
	}
	for y := b.y + 1; y < bottom; y++ {
		set(b.x, y, vertical)
		set(right, y, vertical)
		for x := b.x + 1; x < right; x++ {
			set(x, y, ' ')
		}
	}

	inner := b.width - 2
	labelRow := b.y + b.height/2
	runes := []rune(b.label)
	start := b.x + 1 + (inner-len(runes))/2
	for i, r := range runes {
		set(start+i, labelRow, r)
	}
}

// HitTest resolves a canvas-space position to the node box under it.
func (c *Canvas) HitTest(x, y int) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	boxes := c.sortedBoxes()
	for i := len(boxes) - 1; i >= 0; i-- {
		b := boxes[i]
		if x >= b.x && x < b.x+b.width && y >= b.y && y < b.y+b.height {
			return b.id, true
		}
	}
	return "", false
}
