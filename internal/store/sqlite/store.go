package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"strandviz/internal/domain"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS workflows (
	id TEXT PRIMARY KEY,
	system_name TEXT NOT NULL,
	workflow_type TEXT NOT NULL,
	description TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_workflows_created ON workflows(created_at);

CREATE TABLE IF NOT EXISTS executions (
	id TEXT PRIMARY KEY,
	workflow_id TEXT NOT NULL,
	mode TEXT NOT NULL,
	success INTEGER NOT NULL,
	total_duration_ms INTEGER NOT NULL,
	steps TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	FOREIGN KEY(workflow_id) REFERENCES workflows(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_executions_workflow ON executions(workflow_id, started_at);

CREATE TABLE IF NOT EXISTS agent_metrics (
	workflow_id TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	agent_name TEXT NOT NULL,
	total_executions INTEGER NOT NULL DEFAULT 0,
	successful_executions INTEGER NOT NULL DEFAULT 0,
	failed_executions INTEGER NOT NULL DEFAULT 0,
	total_duration_ms INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY(workflow_id, agent_id),
	FOREIGN KEY(workflow_id) REFERENCES workflows(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS run_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	workflow_id TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	level TEXT NOT NULL,
	message TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_logs_workflow ON run_logs(workflow_id, created_at);
`

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set sqlite pragma %q: %w", stmt, err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// SaveWorkflow stores the full workflow as a JSON payload next to the
// columns the list endpoint needs. Saving an existing id replaces it.
func (s *Store) SaveWorkflow(ctx context.Context, wf domain.Workflow) error {
	if wf.CreatedAt.IsZero() {
		wf.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("marshal workflow: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO workflows(id, system_name, workflow_type, description, payload, created_at)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			system_name=excluded.system_name,
			workflow_type=excluded.workflow_type,
			description=excluded.description,
			payload=excluded.payload`,
		wf.ID, wf.SystemName, wf.WorkflowType, wf.Description, string(payload), wf.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save workflow: %w", err)
	}
	return nil
}

func (s *Store) GetWorkflow(ctx context.Context, id string) (domain.Workflow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM workflows WHERE id = ?`, id)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Workflow{}, fmt.Errorf("workflow %s: %w", id, ErrNotFound)
		}
		return domain.Workflow{}, fmt.Errorf("get workflow: %w", err)
	}
	var wf domain.Workflow
	if err := json.Unmarshal([]byte(payload), &wf); err != nil {
		return domain.Workflow{}, fmt.Errorf("unmarshal workflow %s: %w", id, err)
	}
	return wf, nil
}

func (s *Store) ListWorkflows(ctx context.Context) ([]domain.Workflow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM workflows ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Workflow, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		var wf domain.Workflow
		if err := json.Unmarshal([]byte(payload), &wf); err != nil {
			return nil, fmt.Errorf("unmarshal workflow: %w", err)
		}
		result = append(result, wf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflows: %w", err)
	}
	return result, nil
}

func (s *Store) DeleteWorkflow(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete workflow rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("workflow %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) SaveExecution(ctx context.Context, result domain.ExecutionResult) error {
	steps, err := json.Marshal(result.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO executions(id, workflow_id, mode, success, total_duration_ms, steps, started_at, finished_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.WorkflowID, string(result.Mode), boolToInt(result.Success),
		result.TotalDurationMS, string(steps), result.StartedAt.Unix(), result.FinishedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save execution: %w", err)
	}
	return nil
}

func (s *Store) ListExecutions(ctx context.Context, workflowID string) ([]domain.ExecutionResult, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, workflow_id, mode, success, total_duration_ms, steps, started_at, finished_at
		FROM executions WHERE workflow_id = ? ORDER BY started_at DESC`,
		workflowID,
	)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	result := make([]domain.ExecutionResult, 0)
	for rows.Next() {
		var r domain.ExecutionResult
		var mode, steps string
		var success int
		var started, finished int64
		if err := rows.Scan(&r.ID, &r.WorkflowID, &mode, &success, &r.TotalDurationMS, &steps, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		r.Mode = domain.ExecutionMode(mode)
		r.Success = success != 0
		r.StartedAt = time.Unix(started, 0).UTC()
		r.FinishedAt = time.Unix(finished, 0).UTC()
		if err := json.Unmarshal([]byte(steps), &r.Steps); err != nil {
			return nil, fmt.Errorf("unmarshal steps for execution %s: %w", r.ID, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return result, nil
}

// RecordAgentRun folds one simulated run into the per-agent counters.
// Success rate (as a percentage) and average duration are derived at read
// time.
func (s *Store) RecordAgentRun(ctx context.Context, workflowID string, agent domain.Agent, success bool, durationMS int64) error {
	succ, fail := 0, 1
	if success {
		succ, fail = 1, 0
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO agent_metrics(workflow_id, agent_id, agent_name, total_executions,
			successful_executions, failed_executions, total_duration_ms)
		VALUES(?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT(workflow_id, agent_id) DO UPDATE SET
			agent_name=excluded.agent_name,
			total_executions=total_executions+1,
			successful_executions=successful_executions+excluded.successful_executions,
			failed_executions=failed_executions+excluded.failed_executions,
			total_duration_ms=total_duration_ms+excluded.total_duration_ms`,
		workflowID, agent.ID, agent.Name, succ, fail, durationMS,
	)
	if err != nil {
		return fmt.Errorf("record agent run: %w", err)
	}
	return nil
}

func (s *Store) ListAgentMetrics(ctx context.Context, workflowID string) ([]domain.AgentMetrics, error) {
	return s.queryAgentMetrics(
		ctx,
		`SELECT workflow_id, agent_id, agent_name, total_executions, successful_executions,
			failed_executions, total_duration_ms
		FROM agent_metrics WHERE workflow_id = ? ORDER BY agent_id`,
		workflowID,
	)
}

// ListAllAgentMetrics returns the metric rows for every workflow.
func (s *Store) ListAllAgentMetrics(ctx context.Context) ([]domain.AgentMetrics, error) {
	return s.queryAgentMetrics(
		ctx,
		`SELECT workflow_id, agent_id, agent_name, total_executions, successful_executions,
			failed_executions, total_duration_ms
		FROM agent_metrics ORDER BY workflow_id, agent_id`,
	)
}

func (s *Store) queryAgentMetrics(ctx context.Context, query string, args ...any) ([]domain.AgentMetrics, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list agent metrics: %w", err)
	}
	defer rows.Close()

	result := make([]domain.AgentMetrics, 0)
	for rows.Next() {
		var m domain.AgentMetrics
		var totalDuration int64
		if err := rows.Scan(
			&m.WorkflowID, &m.AgentID, &m.AgentName, &m.TotalExecutions,
			&m.SuccessfulExecutions, &m.FailedExecutions, &totalDuration,
		); err != nil {
			return nil, fmt.Errorf("scan agent metrics: %w", err)
		}
		if m.TotalExecutions > 0 {
			m.SuccessRate = float64(m.SuccessfulExecutions) / float64(m.TotalExecutions) * 100
			m.AverageDurationMS = float64(totalDuration) / float64(m.TotalExecutions)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agent metrics: %w", err)
	}
	return result, nil
}

func (s *Store) AppendLog(ctx context.Context, entry domain.LogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO run_logs(workflow_id, agent_id, level, message, created_at)
		VALUES(?, ?, ?, ?, ?)`,
		entry.WorkflowID, entry.AgentID, entry.Level, entry.Message, entry.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// ListLogs returns the newest entries first. A limit of zero or less means
// no limit.
func (s *Store) ListLogs(ctx context.Context, workflowID string, limit int) ([]domain.LogEntry, error) {
	query := `SELECT id, workflow_id, agent_id, level, message, created_at
		FROM run_logs WHERE workflow_id = ? ORDER BY created_at DESC, id DESC`
	args := []any{workflowID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryLogs(ctx, query, args...)
}

// ListAllLogs returns the newest entries across every workflow.
func (s *Store) ListAllLogs(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	query := `SELECT id, workflow_id, agent_id, level, message, created_at
		FROM run_logs ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryLogs(ctx, query, args...)
}

func (s *Store) queryLogs(ctx context.Context, query string, args ...any) ([]domain.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	result := make([]domain.LogEntry, 0)
	for rows.Next() {
		var e domain.LogEntry
		var created int64
		if err := rows.Scan(&e.ID, &e.WorkflowID, &e.AgentID, &e.Level, &e.Message, &created); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		e.CreatedAt = time.Unix(0, created).UTC()
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logs: %w", err)
	}
	return result, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
