package model

import "time"

// RunStatus represents the current state of an enrichment run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusRetrying RunStatus = "retrying"
	RunStatusFallback RunStatus = "fallback"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Company is a single input row: the prospect to be enriched.
type Company struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Run represents a single enrichment run for a company.
type Run struct {
	ID        string    `json:"id"`
	Company   Company   `json:"company"`
	Status    RunStatus `json:"status"`
	Profile   *Profile  `json:"profile,omitempty"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenUsage tracks token consumption for a single model call.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates usage from another call.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// StageLog is the audit record written after every stage execution,
// including failed attempts.
type StageLog struct {
	ID        string     `json:"id"`
	RunID     string     `json:"run_id"`
	Stage     string     `json:"stage"`
	Company   string     `json:"company"`
	Attempt   int        `json:"attempt"`
	RawOutput string     `json:"raw_output"`
	Usage     TokenUsage `json:"usage"`
	Cost      float64    `json:"cost"`
	CreatedAt time.Time  `json:"created_at"`
}
