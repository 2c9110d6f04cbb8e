package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunAborted   RunStatus = "aborted"
)

// Run is one pass over the flagged catalog.
type Run struct {
	ID         string     `db:"id" json:"id"`
	Tenant     string     `db:"tenant" json:"tenant"`
	Status     RunStatus  `db:"status" json:"status"`
	Error      string     `db:"error" json:"error,omitempty"`
	StartedAt  time.Time  `db:"started_at" json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`

	Pages     int `db:"pages" json:"pages"`
	Scanned   int `db:"scanned" json:"scanned"`
	Skipped   int `db:"skipped" json:"skipped"`
	Checked   int `db:"checked" json:"checked"`
	Passed    int `db:"passed" json:"passed"`
	Failed    int `db:"failed" json:"failed"`
	Errored   int `db:"errored" json:"errored"`
	Activated int `db:"activated" json:"activated"`
	Drafted   int `db:"drafted" json:"drafted"`

	APICalls      int     `db:"api_calls" json:"api_calls"`
	Throttled     int     `db:"throttled" json:"throttled"`
	RequestedCost float64 `db:"requested_cost" json:"requested_cost"`
	ActualCost    float64 `db:"actual_cost" json:"actual_cost"`
}

type Verdict string

const (
	VerdictNone Verdict = ""
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// ProductOutcome is what happened to one product during a run.
type ProductOutcome struct {
	ID           int64         `db:"id" json:"id"`
	RunID        string        `db:"run_id" json:"run_id"`
	ProductID    string        `db:"product_id" json:"product_id"`
	Title        string        `db:"title" json:"title"`
	StatusBefore ProductStatus `db:"status_before" json:"status_before"`
	StatusAfter  ProductStatus `db:"status_after" json:"status_after"`
	Verdict      Verdict       `db:"verdict" json:"verdict"`
	LabelsBefore LabelList     `db:"labels_before" json:"labels_before"`
	LabelsAfter  LabelList     `db:"labels_after" json:"labels_after"`
	Report       string        `db:"report" json:"report"`
	Error        string        `db:"error" json:"error,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// LabelList is stored as a JSON array in a text column.
type LabelList []string

func (l LabelList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *LabelList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("label list: unsupported type %T", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("label list: %w", err)
	}
	*l = out
	return nil
}
