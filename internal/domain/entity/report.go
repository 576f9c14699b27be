// internal/domain/entity/report.go
package entity

import (
	"time"
)

// Diagnostic stages
const (
	StageFetch        = "fetch"
	StageNormalize    = "normalize"
	StageOwners       = "owners"
	StageTransactions = "transactions"
	StageReconcile    = "reconcile"
)

// Diagnostic is a recoverable problem met during a run
type Diagnostic struct {
	Stage    string    `json:"stage"`
	LockID   int64     `json:"lockId,omitempty"`
	LockName string    `json:"lockName,omitempty"`
	Kind     GrantKind `json:"kind,omitempty"`
	Page     int       `json:"page,omitempty"`
	Row      int       `json:"row,omitempty"`
	Label    string    `json:"label,omitempty"`
	Reason   string    `json:"reason"`
}

// LockFailure records a stream that stopped early
type LockFailure struct {
	LockID   int64     `json:"lockId"`
	LockName string    `json:"lockName"`
	Kind     GrantKind `json:"kind"`
	Page     int       `json:"page"`
	Reason   string    `json:"reason"`
}

// RunReport summarises one sync run
type RunReport struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	Locks        int               `json:"locks"`
	Fetched      map[GrantKind]int `json:"fetched"`
	LockFailures []LockFailure     `json:"lockFailures"`

	OwnersLoaded   int `json:"ownersLoaded"`
	OwnersDropped  int `json:"ownersDropped"`
	PartnersMapped int `json:"partnersMapped"`

	Reconciled      int `json:"reconciled"`
	OwnerMatched    int `json:"ownerMatched"`
	OwnerUnmatched  int `json:"ownerUnmatched"`
	PartnerMatched  int `json:"partnerMatched"`
	LabelsUnmatched int `json:"labelsUnmatched"`
	LabelsUnknown   int `json:"labelsUnknown"`

	Collisions  []KeyCollision `json:"collisions"`
	Sinks       []string       `json:"sinks"`
	Diagnostics []Diagnostic   `json:"diagnostics"`
}

// TotalFetched returns the number of grants fetched across kinds
func (r *RunReport) TotalFetched() int {
	n := 0
	for _, c := range r.Fetched {
		n += c
	}
	return n
}

// Duration returns how long the run took
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
