package scene

import (
	"sync"

	"strandviz/internal/domain"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Node struct {
	ID    string
	Label string
	Pos   Position
	// Agent is the full source record, carried through untouched for the
	// details panel.
	Agent domain.Agent
}

type Edge struct {
	From string
	To   string
}

// Scene holds the current node and edge set plus selection and highlight
// state. It is the only mutable state the canvas core owns; a new render
// replaces the whole Scene rather than merging into it. The node and edge
// sets are fixed at construction; the mutex covers positions, selection and
// highlights so a background playback run and the pointer handlers never
// race.
type Scene struct {
	generation uint64

	nodes []*Node
	index map[string]*Node
	edges []Edge

	mu          sync.RWMutex
	selectedID  string
	highlighted map[string]bool
}

// NewScene builds a scene from workflow data. Node order follows agent
// order; positions start at the zero value until a layout is applied.
func NewScene(agents []domain.Agent, comms []domain.Communication) *Scene {
	sc := &Scene{
		index:       make(map[string]*Node, len(agents)),
		highlighted: make(map[string]bool),
	}
	for _, a := range agents {
		n := &Node{ID: a.ID, Label: a.Name, Agent: a}
		sc.nodes = append(sc.nodes, n)
		sc.index[n.ID] = n
	}
	for _, c := range comms {
		sc.edges = append(sc.edges, Edge{From: c.From, To: c.To})
	}
	return sc
}

func (sc *Scene) Generation() uint64 { return sc.generation }

func (sc *Scene) Nodes() []*Node { return sc.nodes }

func (sc *Scene) Edges() []Edge { return sc.edges }

func (sc *Scene) Node(id string) (*Node, bool) {
	n, ok := sc.index[id]
	return n, ok
}

// ApplyLayout assigns positions from the layout engine, in node order.
func (sc *Scene) ApplyLayout(width, height float64) error {
	positions, err := Layout(len(sc.nodes), width, height)
	if err != nil {
		return err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for i, n := range sc.nodes {
		n.Pos = positions[i]
	}
	return nil
}

// SetPosition overwrites a node position. Only drag operations call this;
// layout never recomputes positions mid-session.
func (sc *Scene) SetPosition(id string, pos Position) bool {
	n, ok := sc.index[id]
	if !ok {
		return false
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	n.Pos = pos
	return true
}

// Position reads a node position under the lock. The renderer and the
// pointer handlers go through this so a drag on the host thread and a
// playback redraw never race on the raw field.
func (sc *Scene) Position(id string) (Position, bool) {
	n, ok := sc.index[id]
	if !ok {
		return Position{}, false
	}
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return n.Pos, true
}

// Select marks the node as the single selection and returns the previously
// selected id. Selecting an unknown id clears the selection.
func (sc *Scene) Select(id string) (previous string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	previous = sc.selectedID
	if _, ok := sc.index[id]; !ok {
		sc.selectedID = ""
		return previous
	}
	sc.selectedID = id
	return previous
}

func (sc *Scene) SelectedID() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.selectedID
}

func (sc *Scene) SetHighlight(id string, on bool) {
	if _, ok := sc.index[id]; !ok {
		return
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if on {
		sc.highlighted[id] = true
		return
	}
	delete(sc.highlighted, id)
}

func (sc *Scene) Highlighted(id string) bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.highlighted[id]
}

// Stage owns the single active scene. Swapping in a new scene bumps the
// generation counter, which is how in-flight playback detects that the
// scene it was started on is gone.
type Stage struct {
	mu      sync.Mutex
	current *Scene
	gen     uint64
}

func NewStage() *Stage {
	return &Stage{}
}

// Swap replaces the active scene wholesale and returns its generation.
func (st *Stage) Swap(sc *Scene) uint64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.gen++
	sc.generation = st.gen
	st.current = sc
	return st.gen
}

func (st *Stage) Current() *Scene {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.current
}

func (st *Stage) Generation() uint64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.gen
}
