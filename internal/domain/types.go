package domain

import (
	"time"
)

type AgentStatus string

const (
	AgentStatusIdle       AgentStatus = "idle"
	AgentStatusProcessing AgentStatus = "processing"
	AgentStatusCompleted  AgentStatus = "completed"
	AgentStatusError      AgentStatus = "error"
)

type ExecutionMode string

const (
	ExecutionModeSequential ExecutionMode = "sequential"
	ExecutionModeParallel   ExecutionMode = "parallel"
	ExecutionModeGraph      ExecutionMode = "graph"
)

type CommunicationKind string

const (
	CommunicationKindChain    CommunicationKind = "chain"
	CommunicationKindFeedback CommunicationKind = "feedback"
)

type Agent struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Role  string   `json:"role"`
	Icon  string   `json:"icon,omitempty"`
	Tools []string `json:"tools,omitempty"`
}

type Communication struct {
	From     string            `json:"from"`
	To       string            `json:"to"`
	Protocol string            `json:"protocol"`
	Trigger  string            `json:"trigger"`
	Kind     CommunicationKind `json:"kind"`
}

type MemoryConfig struct {
	Type        string `json:"type"`
	Strategy    string `json:"strategy"`
	Persistence string `json:"persistence"`
}

type MetricsConfig struct {
	Enabled           bool `json:"enabled"`
	TrackResponseTime bool `json:"trackResponseTime"`
	TrackSuccessRate  bool `json:"trackSuccessRate"`
}

type Workflow struct {
	ID             string          `json:"id"`
	SystemName     string          `json:"systemName"`
	WorkflowType   string          `json:"workflowType"`
	Description    string          `json:"description"`
	Agents         []Agent         `json:"agents"`
	Communications []Communication `json:"communications"`
	Memory         MemoryConfig    `json:"memory"`
	Metrics        MetricsConfig   `json:"metrics"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Agent returns the agent with the given id, if present.
func (w Workflow) Agent(id string) (Agent, bool) {
	for _, a := range w.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return Agent{}, false
}

type ExecutionStep struct {
	AgentID    string      `json:"agent_id"`
	AgentName  string      `json:"agent_name"`
	Status     AgentStatus `json:"status"`
	DurationMS int64       `json:"duration_ms"`
	StartedAt  time.Time   `json:"started_at"`
}

type ExecutionResult struct {
	ID              string          `json:"id"`
	WorkflowID      string          `json:"workflow_id"`
	Mode            ExecutionMode   `json:"mode"`
	Steps           []ExecutionStep `json:"steps"`
	Success         bool            `json:"success"`
	TotalDurationMS int64           `json:"total_duration_ms"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
}

type AgentMetrics struct {
	WorkflowID           string  `json:"workflow_id"`
	AgentID              string  `json:"agent_id"`
	AgentName            string  `json:"agent_name"`
	TotalExecutions      int     `json:"total_executions"`
	SuccessfulExecutions int     `json:"successful_executions"`
	FailedExecutions     int     `json:"failed_executions"`
	SuccessRate          float64 `json:"success_rate"`
	AverageDurationMS    float64 `json:"average_duration_ms"`
}

type LogEntry struct {
	ID         int64     `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	AgentID    string    `json:"agent_id"`
	Level      string    `json:"level"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}
