package scene

import (
	"context"
	"sync"
	"time"

	"strandviz/internal/event"
)

const DefaultPlaybackInterval = 500 * time.Millisecond

// Player walks an ordered list of communication events and highlights the
// endpoint nodes one event at a time. Playback is strictly sequential:
// highlight from, wait, highlight to, wait, clear both, next event.
//
// Each run is bound to the scene generation it started on. If the stage
// swaps in a new scene mid-run the remaining steps no-op instead of
// writing highlights into a scene they were never aimed at. Starting a new
// run cancels the previous one.
type Player struct {
	stage    *Stage
	renderer *Renderer
	bus      *event.Bus
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPlayer(stage *Stage, renderer *Renderer, bus *event.Bus, interval time.Duration) *Player {
	if interval <= 0 {
		interval = DefaultPlaybackInterval
	}
	return &Player{
		stage:    stage,
		renderer: renderer,
		bus:      bus,
		interval: interval,
	}
}

// Play starts playback in the background and returns a channel closed when
// the run finishes or is cancelled. Any run still in progress is cancelled
// first and fully drained before the new one begins.
func (p *Player) Play(ctx context.Context, events []Edge) <-chan struct{} {
	p.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	gen := p.stage.Generation()
	go func() {
		defer close(done)
		defer cancel()
		p.run(runCtx, gen, events)
	}()
	return done
}

// Stop cancels the active run, if any, and waits for it to unwind.
func (p *Player) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (p *Player) run(ctx context.Context, gen uint64, events []Edge) {
	p.publish(event.Event{Kind: event.KindPlaybackStarted, Generation: gen})
	defer p.publish(event.Event{Kind: event.KindPlaybackFinished, Generation: gen})

	for _, e := range events {
		sc := p.liveScene(gen)
		if sc == nil {
			return
		}
		from, okFrom := sc.Node(e.From)
		to, okTo := sc.Node(e.To)
		if !okFrom || !okTo {
			// Unresolvable endpoint: skip the event with no highlight and
			// no wait.
			continue
		}

		if !p.setHighlight(gen, from.ID, true) {
			return
		}
		if !p.wait(ctx, gen) {
			p.clearPair(gen, from.ID, to.ID)
			return
		}
		if !p.setHighlight(gen, to.ID, true) {
			return
		}
		if !p.wait(ctx, gen) {
			p.clearPair(gen, from.ID, to.ID)
			return
		}
		p.clearPair(gen, from.ID, to.ID)
	}
}

// liveScene returns the active scene only while it is still the one this
// run started on.
func (p *Player) liveScene(gen uint64) *Scene {
	sc := p.stage.Current()
	if sc == nil || sc.Generation() != gen {
		return nil
	}
	return sc
}

func (p *Player) setHighlight(gen uint64, id string, on bool) bool {
	sc := p.liveScene(gen)
	if sc == nil {
		return false
	}
	sc.SetHighlight(id, on)
	if p.renderer != nil {
		p.renderer.RedrawNode(sc, id)
	}
	kind := event.KindNodeHighlighted
	if !on {
		kind = event.KindNodeUnhighlighted
	}
	if n, ok := sc.Node(id); ok {
		p.publish(event.Event{Kind: kind, NodeID: id, Agent: n.Agent, Generation: gen})
	}
	return true
}

func (p *Player) clearPair(gen uint64, fromID, toID string) {
	p.setHighlight(gen, fromID, false)
	p.setHighlight(gen, toID, false)
}

func (p *Player) wait(ctx context.Context, gen uint64) bool {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return p.liveScene(gen) != nil
	}
}

func (p *Player) publish(ev event.Event) {
	if p.bus != nil {
		p.bus.Publish(ev)
	}
}
