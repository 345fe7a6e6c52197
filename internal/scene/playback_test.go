package scene

import (
	"context"
	"testing"
	"time"
)

func TestPlaybackSequentialHighlighting(t *testing.T) {
	sc := newTestScene(t, testAgents("a", "b", "c"), chain("a", "b", "c"))
	stage := newTestStage(t, sc)
	const interval = 60 * time.Millisecond
	p := NewPlayer(stage, NewRenderer(&fakeSurface{}, nil), nil, interval)

	start := time.Now()
	done := p.Play(context.Background(), []Edge{{From: "a", To: "b"}, {From: "b", To: "c"}})

	// Half-way through the first step both endpoints of event one are lit.
	time.Sleep(interval + interval/2)
	if !sc.Highlighted("a") || !sc.Highlighted("b") {
		t.Fatalf("mid-step: a=%t b=%t, want both highlighted", sc.Highlighted("a"), sc.Highlighted("b"))
	}
	if sc.Highlighted("c") {
		t.Fatalf("mid-step: c highlighted before its event")
	}

	<-done
	elapsed := time.Since(start)
	if elapsed < 4*interval {
		t.Fatalf("playback finished in %v, want at least %v", elapsed, 4*interval)
	}
	if elapsed > 4*interval+2*time.Second {
		t.Fatalf("playback took %v, far beyond 4 intervals", elapsed)
	}
	for _, id := range []string{"a", "b", "c"} {
		if sc.Highlighted(id) {
			t.Fatalf("node %s still highlighted after playback", id)
		}
	}
}

func TestPlaybackSkipsUnresolvableEvents(t *testing.T) {
	sc := newTestScene(t, testAgents("a", "b"), chain("a", "b"))
	stage := newTestStage(t, sc)
	const interval = 50 * time.Millisecond
	p := NewPlayer(stage, NewRenderer(&fakeSurface{}, nil), nil, interval)

	start := time.Now()
	done := p.Play(context.Background(), []Edge{
		{From: "ghost", To: "a"},
		{From: "a", To: "phantom"},
		{From: "a", To: "b"},
	})
	<-done
	elapsed := time.Since(start)

	// Only the single resolvable event pays the 2x interval cost.
	if elapsed < 2*interval {
		t.Fatalf("playback finished in %v, want at least %v", elapsed, 2*interval)
	}
	if elapsed >= 4*interval {
		t.Fatalf("playback took %v; unresolvable events must not wait", elapsed)
	}
}

func TestPlaybackStopsWhenSceneReplaced(t *testing.T) {
	sc := newTestScene(t, testAgents("a", "b"), chain("a", "b"))
	stage := newTestStage(t, sc)
	const interval = 40 * time.Millisecond
	p := NewPlayer(stage, NewRenderer(&fakeSurface{}, nil), nil, interval)

	done := p.Play(context.Background(), []Edge{{From: "a", To: "b"}, {From: "a", To: "b"}})

	time.Sleep(interval / 2)
	replacement := newTestScene(t, testAgents("a", "b"), chain("a", "b"))
	stage.Swap(replacement)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("playback did not stop after scene replacement")
	}

	// Stale steps must not write into the replacement scene.
	if replacement.Highlighted("a") || replacement.Highlighted("b") {
		t.Fatalf("stale playback wrote highlights into the new scene")
	}
}

func TestPlayCancelsPriorRun(t *testing.T) {
	sc := newTestScene(t, testAgents("a", "b", "c"), chain("a", "b", "c"))
	stage := newTestStage(t, sc)
	const interval = 40 * time.Millisecond
	p := NewPlayer(stage, NewRenderer(&fakeSurface{}, nil), nil, interval)

	first := p.Play(context.Background(), []Edge{
		{From: "a", To: "b"}, {From: "b", To: "c"}, {From: "a", To: "c"},
	})
	time.Sleep(interval / 2)
	second := p.Play(context.Background(), []Edge{{From: "b", To: "c"}})

	select {
	case <-first:
	default:
		t.Fatalf("starting a new run must cancel and drain the prior one")
	}

	<-second
	for _, id := range []string{"a", "b", "c"} {
		if sc.Highlighted(id) {
			t.Fatalf("node %s left highlighted after runs", id)
		}
	}
}

func TestDragDuringPlayback(t *testing.T) {
	sc := newTestScene(t, testAgents("a", "b", "c"), chain("a", "b", "c"))
	stage := newTestStage(t, sc)
	surface := &fakeSurface{}
	r := NewRenderer(surface, nil)
	c := NewController(stage, r, nil)
	p := NewPlayer(stage, r, nil, time.Millisecond)

	done := p.Play(context.Background(), []Edge{
		{From: "a", To: "b"}, {From: "b", To: "c"}, {From: "a", To: "c"},
		{From: "b", To: "a"}, {From: "c", To: "b"}, {From: "c", To: "a"},
	})

	// Drag a node while the playback goroutine keeps redrawing its
	// endpoints through the same scene.
	sc.SetPosition("a", Position{X: 10, Y: 10})
	c.PointerDown("a", Position{X: 12, Y: 14})
	for i := 0; i < 5000; i++ {
		c.PointerMove(Position{X: float64(i % 200), Y: float64(i % 120)})
	}
	c.PointerUp()

	<-done
	pos, ok := sc.Position("a")
	if !ok {
		t.Fatalf("dragged node disappeared")
	}
	want := Position{X: 4999%200 - 2, Y: 4999%120 - 4} // last pointer minus the (2,4) grab offset
	if pos != want {
		t.Fatalf("node ended at %+v, want %+v", pos, want)
	}
}

func TestStopWithoutActiveRun(t *testing.T) {
	sc := newTestScene(t, testAgents("a"), nil)
	stage := newTestStage(t, sc)
	p := NewPlayer(stage, NewRenderer(&fakeSurface{}, nil), nil, 10*time.Millisecond)
	p.Stop() // must not block or panic
}
