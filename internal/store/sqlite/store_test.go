package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"strandviz/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		store.Close()
		t.Fatalf("migrate store: %v", err)
	}
	return store
}

func sampleWorkflow() domain.Workflow {
	return domain.Workflow{
		ID:           uuid.NewString(),
		SystemName:   "support_strand",
		WorkflowType: "customer-support",
		Description:  "handle support tickets",
		Agents: []domain.Agent{
			{ID: "intake", Name: "Intake Agent", Role: "classify tickets", Icon: "inbox", Tools: []string{"classifier"}},
			{ID: "resolver", Name: "Resolver Agent", Role: "resolve tickets", Icon: "wrench"},
		},
		Communications: []domain.Communication{
			{From: "intake", To: "resolver", Protocol: "async-message", Trigger: "on-completion", Kind: domain.CommunicationKindChain},
		},
		Memory:    domain.MemoryConfig{Type: "shared", Strategy: "event-driven", Persistence: "in-memory"},
		Metrics:   domain.MetricsConfig{Enabled: true, TrackResponseTime: true, TrackSuccessRate: true},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestWorkflowRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	wf := sampleWorkflow()
	if err := store.SaveWorkflow(ctx, wf); err != nil {
		t.Fatalf("save workflow: %v", err)
	}

	got, err := store.GetWorkflow(ctx, wf.ID)
	if err != nil {
		t.Fatalf("get workflow: %v", err)
	}
	if got.SystemName != wf.SystemName || got.WorkflowType != wf.WorkflowType {
		t.Fatalf("got %s/%s, want %s/%s", got.SystemName, got.WorkflowType, wf.SystemName, wf.WorkflowType)
	}
	if len(got.Agents) != 2 || got.Agents[0].Tools[0] != "classifier" {
		t.Fatalf("agents did not survive round trip: %+v", got.Agents)
	}
	if len(got.Communications) != 1 || got.Communications[0].Kind != domain.CommunicationKindChain {
		t.Fatalf("communications did not survive round trip: %+v", got.Communications)
	}

	list, err := store.ListWorkflows(ctx)
	if err != nil {
		t.Fatalf("list workflows: %v", err)
	}
	if len(list) != 1 || list[0].ID != wf.ID {
		t.Fatalf("list = %+v, want single saved workflow", list)
	}
}

func TestSaveWorkflowReplacesExisting(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	wf := sampleWorkflow()
	if err := store.SaveWorkflow(ctx, wf); err != nil {
		t.Fatalf("save workflow: %v", err)
	}
	wf.Description = "updated description"
	if err := store.SaveWorkflow(ctx, wf); err != nil {
		t.Fatalf("save workflow again: %v", err)
	}

	got, err := store.GetWorkflow(ctx, wf.ID)
	if err != nil {
		t.Fatalf("get workflow: %v", err)
	}
	if got.Description != "updated description" {
		t.Fatalf("description = %q, want updated value", got.Description)
	}
}

func TestGetWorkflowNotFound(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	if _, err := store.GetWorkflow(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteWorkflowCascades(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	wf := sampleWorkflow()
	if err := store.SaveWorkflow(ctx, wf); err != nil {
		t.Fatalf("save workflow: %v", err)
	}
	if err := store.RecordAgentRun(ctx, wf.ID, wf.Agents[0], true, 120); err != nil {
		t.Fatalf("record agent run: %v", err)
	}
	if err := store.SaveExecution(ctx, domain.ExecutionResult{
		ID:         uuid.NewString(),
		WorkflowID: wf.ID,
		Mode:       domain.ExecutionModeSequential,
		Success:    true,
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("save execution: %v", err)
	}

	if err := store.DeleteWorkflow(ctx, wf.ID); err != nil {
		t.Fatalf("delete workflow: %v", err)
	}
	if _, err := store.GetWorkflow(ctx, wf.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	metrics, err := store.ListAgentMetrics(ctx, wf.ID)
	if err != nil {
		t.Fatalf("list metrics: %v", err)
	}
	if len(metrics) != 0 {
		t.Fatalf("metrics survived workflow delete: %+v", metrics)
	}
	executions, err := store.ListExecutions(ctx, wf.ID)
	if err != nil {
		t.Fatalf("list executions: %v", err)
	}
	if len(executions) != 0 {
		t.Fatalf("executions survived workflow delete: %+v", executions)
	}

	if err := store.DeleteWorkflow(ctx, wf.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestAgentMetricsAccumulate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	wf := sampleWorkflow()
	if err := store.SaveWorkflow(ctx, wf); err != nil {
		t.Fatalf("save workflow: %v", err)
	}

	agent := wf.Agents[0]
	for _, run := range []struct {
		success    bool
		durationMS int64
	}{
		{true, 100},
		{true, 300},
		{false, 200},
	} {
		if err := store.RecordAgentRun(ctx, wf.ID, agent, run.success, run.durationMS); err != nil {
			t.Fatalf("record agent run: %v", err)
		}
	}

	metrics, err := store.ListAgentMetrics(ctx, wf.ID)
	if err != nil {
		t.Fatalf("list metrics: %v", err)
	}
	if len(metrics) != 1 {
		t.Fatalf("got %d metric rows, want 1", len(metrics))
	}
	m := metrics[0]
	if m.TotalExecutions != 3 || m.SuccessfulExecutions != 2 || m.FailedExecutions != 1 {
		t.Fatalf("counters = %d/%d/%d, want 3/2/1", m.TotalExecutions, m.SuccessfulExecutions, m.FailedExecutions)
	}
	if m.SuccessRate < 66.6 || m.SuccessRate > 66.7 {
		t.Fatalf("success rate = %g%%, want about 66.7", m.SuccessRate)
	}
	if m.AverageDurationMS != 200 {
		t.Fatalf("average duration = %g, want 200", m.AverageDurationMS)
	}
}

func TestMetricsAndLogsAcrossWorkflows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	first := sampleWorkflow()
	second := sampleWorkflow()
	for _, wf := range []domain.Workflow{first, second} {
		if err := store.SaveWorkflow(ctx, wf); err != nil {
			t.Fatalf("save workflow: %v", err)
		}
		if err := store.RecordAgentRun(ctx, wf.ID, wf.Agents[0], true, 100); err != nil {
			t.Fatalf("record agent run: %v", err)
		}
		if err := store.AppendLog(ctx, domain.LogEntry{
			WorkflowID: wf.ID,
			AgentID:    wf.Agents[0].ID,
			Level:      "info",
			Message:    "started",
		}); err != nil {
			t.Fatalf("append log: %v", err)
		}
	}

	metrics, err := store.ListAllAgentMetrics(ctx)
	if err != nil {
		t.Fatalf("list all metrics: %v", err)
	}
	if len(metrics) != 2 {
		t.Fatalf("got %d metric rows across workflows, want 2", len(metrics))
	}
	seen := map[string]bool{}
	for _, m := range metrics {
		seen[m.WorkflowID] = true
		if m.SuccessRate != 100 {
			t.Fatalf("success rate = %g%%, want 100", m.SuccessRate)
		}
	}
	if !seen[first.ID] || !seen[second.ID] {
		t.Fatalf("metrics missing a workflow: %+v", metrics)
	}

	logs, err := store.ListAllLogs(ctx, 10)
	if err != nil {
		t.Fatalf("list all logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("got %d logs across workflows, want 2", len(logs))
	}

	limited, err := store.ListAllLogs(ctx, 1)
	if err != nil {
		t.Fatalf("list all logs with limit: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("got %d logs with limit 1, want 1", len(limited))
	}
}

func TestExecutionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	wf := sampleWorkflow()
	if err := store.SaveWorkflow(ctx, wf); err != nil {
		t.Fatalf("save workflow: %v", err)
	}

	started := time.Now().UTC().Truncate(time.Second)
	result := domain.ExecutionResult{
		ID:         uuid.NewString(),
		WorkflowID: wf.ID,
		Mode:       domain.ExecutionModeParallel,
		Steps: []domain.ExecutionStep{
			{AgentID: "intake", AgentName: "Intake Agent", Status: domain.AgentStatusCompleted, DurationMS: 90, StartedAt: started},
			{AgentID: "resolver", AgentName: "Resolver Agent", Status: domain.AgentStatusError, DurationMS: 40, StartedAt: started},
		},
		Success:         false,
		TotalDurationMS: 130,
		StartedAt:       started,
		FinishedAt:      started.Add(time.Second),
	}
	if err := store.SaveExecution(ctx, result); err != nil {
		t.Fatalf("save execution: %v", err)
	}

	got, err := store.ListExecutions(ctx, wf.ID)
	if err != nil {
		t.Fatalf("list executions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d executions, want 1", len(got))
	}
	if got[0].Mode != domain.ExecutionModeParallel || got[0].Success {
		t.Fatalf("execution mismatch: %+v", got[0])
	}
	if len(got[0].Steps) != 2 || got[0].Steps[1].Status != domain.AgentStatusError {
		t.Fatalf("steps did not survive round trip: %+v", got[0].Steps)
	}
}

func TestLogsNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	base := time.Now().UTC()
	for i, msg := range []string{"first", "second", "third"} {
		if err := store.AppendLog(ctx, domain.LogEntry{
			WorkflowID: "wf-1",
			AgentID:    "intake",
			Level:      "info",
			Message:    msg,
			CreatedAt:  base.Add(time.Duration(i) * time.Millisecond),
		}); err != nil {
			t.Fatalf("append log: %v", err)
		}
	}

	logs, err := store.ListLogs(ctx, "wf-1", 2)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("got %d logs, want 2", len(logs))
	}
	if logs[0].Message != "third" || logs[1].Message != "second" {
		t.Fatalf("logs out of order: %s, %s", logs[0].Message, logs[1].Message)
	}

	all, err := store.ListLogs(ctx, "wf-1", 0)
	if err != nil {
		t.Fatalf("list all logs: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d logs without limit, want 3", len(all))
	}
}
