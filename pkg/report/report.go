// Package report collects the outcome of a replay run and writes it out as
// JSON and Markdown.
package report

import (
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of one action.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusNotFound  Status = "not_found"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Run status values.
const (
	RunCompleted = "completed"
	RunCancelled = "cancelled"
	RunFailed    = "failed"
)

// Action is the outcome of one cell.
type Action struct {
	Record   string `json:"record"`
	Row      int    `json:"row"`
	Title    string `json:"title"`
	Kind     string `json:"kind"`
	Target   string `json:"target,omitempty"`
	Payload  string `json:"payload,omitempty"`
	Status   Status `json:"status"`
	Attempts int    `json:"attempts"`
	Strategy string `json:"strategy,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Record groups the actions of one sequence key.
type Record struct {
	Key     string   `json:"key"`
	Actions []Action `json:"actions"`
}

// Metrics counts actions by status.
type Metrics struct {
	Records   int `json:"records"`
	Actions   int `json:"actions"`
	Succeeded int `json:"succeeded"`
	NotFound  int `json:"not_found"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Retried   int `json:"retried"`
}

// Summary is the complete result of a run.
type Summary struct {
	RunID     string        `json:"run_id"`
	Workbook  string        `json:"workbook"`
	TargetURL string        `json:"target_url,omitempty"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Records   []Record      `json:"records"`
	Metrics   Metrics       `json:"metrics"`
}

// NewSummary starts a summary for a run over workbook.
func NewSummary(workbook, targetURL string) *Summary {
	return &Summary{
		RunID:     uuid.New().String(),
		Workbook:  workbook,
		TargetURL: targetURL,
		StartTime: time.Now(),
	}
}

// BeginRecord opens a new record; later actions are added to it.
func (s *Summary) BeginRecord(key string) {
	s.Records = append(s.Records, Record{Key: key})
	s.Metrics.Records++
}

// Add appends an action to the current record, opening one if needed.
func (s *Summary) Add(a Action) {
	if len(s.Records) == 0 || s.Records[len(s.Records)-1].Key != a.Record {
		s.BeginRecord(a.Record)
	}
	rec := &s.Records[len(s.Records)-1]
	rec.Actions = append(rec.Actions, a)

	s.Metrics.Actions++
	switch a.Status {
	case StatusSucceeded:
		s.Metrics.Succeeded++
	case StatusNotFound:
		s.Metrics.NotFound++
	case StatusFailed:
		s.Metrics.Failed++
	case StatusSkipped:
		s.Metrics.Skipped++
	}
	if a.Attempts > 1 {
		s.Metrics.Retried++
	}
}

// Finish stamps the end time and the run status derived from err.
func (s *Summary) Finish(err error, cancelled bool) {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
	switch {
	case cancelled:
		s.Status = RunCancelled
	case err != nil:
		s.Status = RunFailed
	default:
		s.Status = RunCompleted
	}
	if err != nil {
		s.Error = err.Error()
	}
}

// Problems returns every action that did not succeed or was skipped.
func (s *Summary) Problems() []Action {
	var out []Action
	for _, rec := range s.Records {
		for _, a := range rec.Actions {
			if a.Status != StatusSucceeded {
				out = append(out, a)
			}
		}
	}
	return out
}
