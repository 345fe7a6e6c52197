package runner

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"strandviz/internal/domain"
)

// Store receives execution outcomes. Implementations may persist to sqlite
// or discard everything; the runner does not care.
type Store interface {
	SaveExecution(ctx context.Context, result domain.ExecutionResult) error
	RecordAgentRun(ctx context.Context, workflowID string, agent domain.Agent, success bool, durationMS int64) error
	AppendLog(ctx context.Context, entry domain.LogEntry) error
}

type Config struct {
	MinStepDelay time.Duration
	MaxStepDelay time.Duration
	FailureRate  float64
}

func (c Config) withDefaults() Config {
	if c.MinStepDelay <= 0 {
		c.MinStepDelay = 200 * time.Millisecond
	}
	if c.MaxStepDelay < c.MinStepDelay {
		c.MaxStepDelay = c.MinStepDelay + 600*time.Millisecond
	}
	if c.FailureRate < 0 || c.FailureRate >= 1 {
		c.FailureRate = 0.1
	}
	return c
}

// Runner walks a workflow's agents and simulates each one doing work.
// Durations are random within the configured window and a step fails with
// probability FailureRate. Nothing real executes.
type Runner struct {
	cfg    Config
	store  Store
	logger *log.Logger
	rng    *rand.Rand
	mu     sync.Mutex
}

func New(cfg Config, store Store, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		cfg:    cfg.withDefaults(),
		store:  store,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run executes the workflow in the given mode and returns the step-by-step
// result. The workflow itself is never mutated.
func (r *Runner) Run(ctx context.Context, wf domain.Workflow, mode domain.ExecutionMode) (domain.ExecutionResult, error) {
	if len(wf.Agents) == 0 {
		return domain.ExecutionResult{}, fmt.Errorf("workflow %s has no agents", wf.ID)
	}

	result := domain.ExecutionResult{
		ID:         uuid.NewString(),
		WorkflowID: wf.ID,
		Mode:       mode,
		StartedAt:  time.Now().UTC(),
	}

	var steps []domain.ExecutionStep
	var err error
	switch mode {
	case domain.ExecutionModeParallel:
		steps, err = r.runParallel(ctx, wf)
	case domain.ExecutionModeGraph:
		steps, err = r.runGraph(ctx, wf)
	case domain.ExecutionModeSequential, "":
		steps, err = r.runSequential(ctx, wf, wf.Agents)
	default:
		return domain.ExecutionResult{}, fmt.Errorf("unknown execution mode %q", mode)
	}
	if err != nil {
		return domain.ExecutionResult{}, err
	}

	result.Steps = steps
	result.FinishedAt = time.Now().UTC()
	result.TotalDurationMS = result.FinishedAt.Sub(result.StartedAt).Milliseconds()
	result.Success = true
	for _, s := range steps {
		if s.Status == domain.AgentStatusError {
			result.Success = false
			break
		}
	}

	if r.store != nil {
		if err := r.store.SaveExecution(ctx, result); err != nil {
			r.logger.Printf("save execution %s failed: %v", result.ID, err)
		}
	}
	return result, nil
}

func (r *Runner) runSequential(ctx context.Context, wf domain.Workflow, agents []domain.Agent) ([]domain.ExecutionStep, error) {
	steps := make([]domain.ExecutionStep, 0, len(agents))
	for _, a := range agents {
		step, err := r.runStep(ctx, wf, a)
		if err != nil {
			return steps, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func (r *Runner) runParallel(ctx context.Context, wf domain.Workflow) ([]domain.ExecutionStep, error) {
	steps := make([]domain.ExecutionStep, len(wf.Agents))
	errs := make([]error, len(wf.Agents))
	var wg sync.WaitGroup
	for i, a := range wf.Agents {
		wg.Add(1)
		go func(i int, a domain.Agent) {
			defer wg.Done()
			steps[i], errs[i] = r.runStep(ctx, wf, a)
		}(i, a)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return steps, nil
}

// runGraph follows the chain edges from the first agent, visiting each agent
// once. Feedback edges are cycle-formers and are not traversed. Agents
// unreachable from the chain are appended in declaration order so every
// agent still runs.
func (r *Runner) runGraph(ctx context.Context, wf domain.Workflow) ([]domain.ExecutionStep, error) {
	next := make(map[string]string, len(wf.Communications))
	for _, c := range wf.Communications {
		if c.Kind == domain.CommunicationKindFeedback {
			continue
		}
		if _, taken := next[c.From]; !taken {
			next[c.From] = c.To
		}
	}

	ordered := make([]domain.Agent, 0, len(wf.Agents))
	visited := make(map[string]bool, len(wf.Agents))
	for id := wf.Agents[0].ID; id != "" && !visited[id]; id = next[id] {
		a, ok := wf.Agent(id)
		if !ok {
			break
		}
		visited[id] = true
		ordered = append(ordered, a)
	}
	for _, a := range wf.Agents {
		if !visited[a.ID] {
			ordered = append(ordered, a)
		}
	}
	return r.runSequential(ctx, wf, ordered)
}

func (r *Runner) runStep(ctx context.Context, wf domain.Workflow, a domain.Agent) (domain.ExecutionStep, error) {
	step := domain.ExecutionStep{
		AgentID:   a.ID,
		AgentName: a.Name,
		StartedAt: time.Now().UTC(),
	}
	r.appendLog(ctx, wf.ID, a.ID, "info", fmt.Sprintf("%s started processing", a.Name))

	delay, success := r.roll()
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return domain.ExecutionStep{}, ctx.Err()
	case <-timer.C:
	}

	step.DurationMS = delay.Milliseconds()
	if success {
		step.Status = domain.AgentStatusCompleted
		r.appendLog(ctx, wf.ID, a.ID, "info", fmt.Sprintf("%s completed in %dms", a.Name, step.DurationMS))
	} else {
		step.Status = domain.AgentStatusError
		r.appendLog(ctx, wf.ID, a.ID, "error", fmt.Sprintf("%s failed after %dms", a.Name, step.DurationMS))
	}

	if r.store != nil {
		if err := r.store.RecordAgentRun(ctx, wf.ID, a, success, step.DurationMS); err != nil {
			r.logger.Printf("record agent run %s/%s failed: %v", wf.ID, a.ID, err)
		}
	}
	return step, nil
}

// roll draws the step duration and outcome under the lock; rand.Rand is not
// safe for concurrent use and parallel mode runs steps from many goroutines.
func (r *Runner) roll() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	window := r.cfg.MaxStepDelay - r.cfg.MinStepDelay
	delay := r.cfg.MinStepDelay
	if window > 0 {
		delay += time.Duration(r.rng.Int63n(int64(window)))
	}
	return delay, r.rng.Float64() > r.cfg.FailureRate
}

func (r *Runner) appendLog(ctx context.Context, workflowID, agentID, level, message string) {
	if r.store == nil {
		return
	}
	err := r.store.AppendLog(ctx, domain.LogEntry{
		WorkflowID: workflowID,
		AgentID:    agentID,
		Level:      level,
		Message:    message,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		r.logger.Printf("append log for %s/%s failed: %v", workflowID, agentID, err)
	}
}
