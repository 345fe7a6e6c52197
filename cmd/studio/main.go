package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"strandviz/internal/config"
	"strandviz/internal/domain"
	"strandviz/internal/event"
	"strandviz/internal/scene"
)

type client struct {
	baseURL string
	http    *http.Client
}

func main() {
	addr := flag.String("addr", "http://localhost:8090", "strandviz server base URL")
	configPath := flag.String("config", "", "path to config.toml (default: ~/.strandviz/config.toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	c := &client{
		baseURL: strings.TrimRight(*addr, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	if err := waitHealth(c, 15*time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "server health check failed: %v\n", err)
		os.Exit(1)
	}

	app := tview.NewApplication()

	canvas := NewCanvas()
	stage := scene.NewStage()
	bus := event.NewBus(32)
	view := scene.NewViewWithLimits(cfg.Canvas.MinZoom, cfg.Canvas.MaxZoom, cfg.Canvas.ZoomStep)
	renderer := scene.NewRenderer(canvas, view)
	controller := scene.NewController(stage, renderer, bus)
	interval := scene.DefaultPlaybackInterval
	if cfg.Playback.StepIntervalMS > 0 {
		interval = time.Duration(cfg.Playback.StepIntervalMS) * time.Millisecond
	}
	player := scene.NewPlayer(stage, renderer, bus, interval)

	var mu sync.Mutex
	var currentWF *domain.Workflow
	// Configured canvas size seeds the layout viewport until the first
	// draw reports the real terminal dimensions.
	canvasW, canvasH := 80, 24
	if cfg.Canvas.Width > 0 {
		canvasW = int(cfg.Canvas.Width)
	}
	if cfg.Canvas.Height > 0 {
		canvasH = int(cfg.Canvas.Height)
	}

	canvasBox := tview.NewBox()
	canvasBox.SetBorder(true).SetTitle("Canvas (drag nodes, click to inspect, r = playback, +/-/0 = zoom)")
	canvasBox.SetDrawFunc(func(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
		ix, iy, iw, ih := x+1, y+1, width-2, height-2
		mu.Lock()
		canvasW, canvasH = iw, ih
		mu.Unlock()
		canvas.Blit(screen, ix, iy, iw, ih)
		return ix, iy, iw, ih
	})

	detailsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true)
	detailsView.SetTitle("Agent Details").SetBorder(true)

	logView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	logView.SetTitle("Events").SetBorder(true)

	promptInput := tview.NewInputField().
		SetLabel("Describe a workflow: ")
	promptInput.SetBorder(true).SetTitle("Enter = generate")

	statusView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	statusView.SetBorder(true).SetTitle("Status")
	statusView.SetText(fmt.Sprintf(
		"Connected to %s | shortcuts: F10 quit, F5 redraw, r playback, x execute, Ctrl+L focus prompt",
		c.baseURL,
	))

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(detailsView, 0, 2, false).
		AddItem(logView, 0, 3, false)

	mainLayout := tview.NewFlex().
		AddItem(canvasBox, 0, 3, false).
		AddItem(right, 0, 1, false)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(mainLayout, 0, 12, false).
		AddItem(promptInput, 3, 0, true).
		AddItem(statusView, 3, 0, false)

	setStatusUI := func(msg string) {
		statusView.SetText(msg)
	}
	setStatusAsync := func(msg string) {
		app.QueueUpdateDraw(func() {
			statusView.SetText(msg)
		})
	}

	appendLogAsync := func(line string) {
		app.QueueUpdateDraw(func() {
			fmt.Fprintf(logView, "%s\n", line)
			logView.ScrollToEnd()
		})
	}

	// The details panel is driven entirely by bus events so it never reaches
	// into the scene itself.
	go func() {
		ch := bus.Register("studio")
		for ev := range ch {
			switch ev.Kind {
			case event.KindNodeSelected:
				agent := ev.Agent
				app.QueueUpdateDraw(func() {
					detailsView.SetText(fmt.Sprintf(
						"[yellow]%s[white]\n\nRole: %s\nIcon: %s\nTools: %s",
						agent.Name, agent.Role, agent.Icon, strings.Join(agent.Tools, ", "),
					))
				})
			case event.KindNodeHighlighted:
				appendLogAsync(fmt.Sprintf("[yellow]active[white] %s", ev.NodeID))
			case event.KindPlaybackStarted:
				appendLogAsync("[green]playback started[white]")
			case event.KindPlaybackFinished:
				appendLogAsync("[green]playback finished[white]")
			}
		}
	}()

	redraw := func() {
		renderer.Draw(stage.Current())
	}

	loadWorkflow := func(wf domain.Workflow) error {
		mu.Lock()
		w, h := canvasW, canvasH
		currentWF = &wf
		mu.Unlock()

		sc := scene.NewScene(wf.Agents, wf.Communications)
		if err := sc.ApplyLayout(float64(w), float64(h)); err != nil {
			return err
		}
		stage.Swap(sc)
		renderer.View().Reset()
		redraw()
		return nil
	}

	submitPrompt := func(prompt string) {
		prompt = strings.TrimSpace(prompt)
		if prompt == "" {
			return
		}
		setStatusUI("Generating workflow...")
		promptInput.SetText("")
		go func(description string) {
			wf, err := c.generateWorkflow(description)
			if err != nil {
				setStatusAsync("Generate failed: " + err.Error())
				return
			}
			app.QueueUpdateDraw(func() {
				if err := loadWorkflow(wf); err != nil {
					statusView.SetText("Layout failed: " + err.Error())
					return
				}
				statusView.SetText(fmt.Sprintf("Loaded %s (%d agents)", wf.SystemName, len(wf.Agents)))
			})
		}(prompt)
	}

	promptInput.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		submitPrompt(promptInput.GetText())
	})

	// Mouse positions arrive in screen space; convert through the canvas
	// origin and the view transform before handing them to the controller.
	var pointerMoved bool
	var pressedNode string
	canvasBox.SetMouseCapture(func(action tview.MouseAction, ev *tcell.EventMouse) (tview.MouseAction, *tcell.EventMouse) {
		x, y := ev.Position()
		bx, by, _, _ := canvasBox.GetInnerRect()
		cx, cy := x-bx, y-by
		scenePos := renderer.View().Unproject(scene.Position{X: float64(cx), Y: float64(cy)})

		switch action {
		case tview.MouseLeftDown:
			if id, ok := canvas.HitTest(cx, cy); ok {
				pressedNode = id
				pointerMoved = false
				controller.PointerDown(id, scenePos)
			}
		case tview.MouseMove:
			if controller.Dragging() {
				pointerMoved = true
				controller.PointerMove(scenePos)
			}
		case tview.MouseLeftUp:
			controller.PointerUp()
			if pressedNode != "" && !pointerMoved {
				controller.Click(pressedNode)
			}
			pressedNode = ""
		}
		return action, ev
	})

	startPlayback := func() {
		mu.Lock()
		wf := currentWF
		mu.Unlock()
		if wf == nil {
			setStatusUI("Nothing to play; generate a workflow first")
			return
		}
		edges := make([]scene.Edge, 0, len(wf.Communications))
		for _, comm := range wf.Communications {
			edges = append(edges, scene.Edge{From: comm.From, To: comm.To})
		}
		done := player.Play(context.Background(), edges)
		go func() {
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					app.Draw()
					return
				case <-ticker.C:
					app.Draw()
				}
			}
		}()
	}

	executeCurrent := func() {
		mu.Lock()
		wf := currentWF
		mu.Unlock()
		if wf == nil {
			setStatusUI("Nothing to execute; generate a workflow first")
			return
		}
		setStatusUI("Executing workflow...")
		go func(id string) {
			result, err := c.executeWorkflow(id, "sequential")
			if err != nil {
				setStatusAsync("Execute failed: " + err.Error())
				return
			}
			outcome := "succeeded"
			if !result.Success {
				outcome = "failed"
			}
			setStatusAsync(fmt.Sprintf("Execution %s in %dms (%d steps)", outcome, result.TotalDurationMS, len(result.Steps)))
			for _, step := range result.Steps {
				appendLogAsync(fmt.Sprintf("%s: %s (%dms)", step.AgentName, step.Status, step.DurationMS))
			}
		}(wf.ID)
	}

	app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if app.GetFocus() == promptInput {
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyTAB {
				app.SetFocus(canvasBox)
				setStatusUI("Focus -> canvas")
				return nil
			}
			return ev
		}

		switch ev.Key() {
		case tcell.KeyF10:
			player.Stop()
			app.Stop()
			return nil
		case tcell.KeyF5:
			redraw()
			return nil
		case tcell.KeyCtrlL:
			app.SetFocus(promptInput)
			setStatusUI("Focus -> prompt")
			return nil
		}
		if ev.Key() == tcell.KeyRune {
			switch ev.Rune() {
			case 'r':
				startPlayback()
				return nil
			case 'x':
				executeCurrent()
				return nil
			case '+', '=':
				renderer.View().ZoomIn()
				redraw()
				return nil
			case '-':
				renderer.View().ZoomOut()
				redraw()
				return nil
			case '0':
				renderer.View().Reset()
				redraw()
				return nil
			}
		}
		return ev
	})

	if err := app.SetRoot(root, true).EnableMouse(true).SetFocus(promptInput).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "studio failed: %v\n", err)
		os.Exit(1)
	}
}

func waitHealth(c *client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		resp, err := c.http.Get(c.baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		if time.Now().After(deadline) {
			if err != nil {
				return err
			}
			return fmt.Errorf("health endpoint returned %d", resp.StatusCode)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func (c *client) generateWorkflow(description string) (domain.Workflow, error) {
	payload, _ := json.Marshal(map[string]string{"description": description})
	resp, err := c.http.Post(c.baseURL+"/api/generate", "application/json", bytes.NewReader(payload))
	if err != nil {
		return domain.Workflow{}, fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return domain.Workflow{}, fmt.Errorf("generate returned %d", resp.StatusCode)
	}
	var wf domain.Workflow
	if err := json.NewDecoder(resp.Body).Decode(&wf); err != nil {
		return domain.Workflow{}, fmt.Errorf("decode workflow: %w", err)
	}
	return wf, nil
}

func (c *client) executeWorkflow(workflowID, mode string) (domain.ExecutionResult, error) {
	payload, _ := json.Marshal(map[string]string{"workflowId": workflowID, "mode": mode})
	resp, err := c.http.Post(c.baseURL+"/api/execute", "application/json", bytes.NewReader(payload))
	if err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.ExecutionResult{}, fmt.Errorf("execute returned %d", resp.StatusCode)
	}
	var result domain.ExecutionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("decode execution result: %w", err)
	}
	return result, nil
}
