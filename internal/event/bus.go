package event

import (
	"sync"

	"strandviz/internal/domain"
)

type Kind string

const (
	KindNodeSelected      Kind = "node_selected"
	KindNodeHighlighted   Kind = "node_highlighted"
	KindNodeUnhighlighted Kind = "node_unhighlighted"
	KindPlaybackStarted   Kind = "playback_started"
	KindPlaybackFinished  Kind = "playback_finished"
)

type Event struct {
	Kind       Kind
	NodeID     string
	Agent      domain.Agent
	Generation uint64
}

// Bus fans scene notifications out to registered observers. Delivery is
// non-blocking: an observer that stops draining its channel loses events
// rather than stalling the canvas.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]chan Event
	buffer int
}

func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		subs:   make(map[string]chan Event),
		buffer: buffer,
	}
}

func (b *Bus) Register(observerID string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[observerID]; ok {
		return ch
	}
	ch := make(chan Event, b.buffer)
	b.subs[observerID] = ch
	return ch
}

func (b *Bus) Unregister(observerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[observerID]
	if !ok {
		return
	}
	delete(b.subs, observerID)
	close(ch)
}

func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
