// Package core contains the core domain types for podium.
package core

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a debate id is unknown.
var ErrNotFound = errors.New("debate not found")

// Status represents the current status of a debate.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Role identifies which participant produced a turn or completion.
type Role string

const (
	RoleModerator   Role = "moderator"
	RolePro         Role = "pro"
	RoleCon         Role = "con"
	RoleFactChecker Role = "fact_checker"

	// RoleScorekeeper issues the final evaluation. It never appears in a
	// transcript; its output becomes the Verdict.
	RoleScorekeeper Role = "scorekeeper"
)

// Winner is the scorekeeper's determination.
type Winner string

const (
	WinnerPro  Winner = "pro"
	WinnerCon  Winner = "con"
	WinnerDraw Winner = "draw"
)

// Turn represents a single contribution to a debate transcript.
// Seq is contiguous and strictly increasing within a debate, starting at 0.
type Turn struct {
	Role      Role      `json:"role"`
	Seq       int       `json:"seq"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Verdict is the scorekeeper's final evaluation. Produced at most once,
// after the final turn, and never mutated afterward.
type Verdict struct {
	Winner    Winner       `json:"winner"`
	Rationale string       `json:"rationale"`
	Scores    map[Role]int `json:"scores"`
}

// Debate represents one debate session and its accumulated state.
// A debate is only ever mutated by the single goroutine driving its turns;
// readers only see snapshot copies.
type Debate struct {
	ID         string `json:"id"`
	Topic      string `json:"topic"`
	Background string `json:"background,omitempty"`
	ProName    string `json:"pro_name"`
	ConName    string `json:"con_name"`
	Status     Status `json:"status"`
	Transcript []Turn `json:"transcript"`

	Verdict *Verdict `json:"verdict,omitempty"`

	// FailureReason is set when the debate ends in StatusFailed.
	FailureReason string `json:"failure_reason,omitempty"`

	// VerdictNote records why a completed debate has no verdict.
	VerdictNote string `json:"verdict_note,omitempty"`

	// StorageWarning is set when the terminal save to durable storage
	// failed. The debate remains queryable in memory.
	StorageWarning string `json:"storage_warning,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy of the debate, safe to hand to other goroutines.
func (d *Debate) Clone() *Debate {
	c := *d
	c.Transcript = make([]Turn, len(d.Transcript))
	copy(c.Transcript, d.Transcript)
	if d.Verdict != nil {
		v := *d.Verdict
		v.Scores = make(map[Role]int, len(d.Verdict.Scores))
		for k, s := range d.Verdict.Scores {
			v.Scores[k] = s
		}
		c.Verdict = &v
	}
	if d.CompletedAt != nil {
		t := *d.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Summary returns the lightweight listing representation of the debate.
func (d *Debate) Summary() *DebateSummary {
	return &DebateSummary{
		ID:        d.ID,
		Topic:     d.Topic,
		Status:    d.Status,
		TurnCount: len(d.Transcript),
		CreatedAt: d.CreatedAt,
	}
}

// DebateSummary is a lightweight representation for listing debates.
type DebateSummary struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Status    Status    `json:"status"`
	TurnCount int       `json:"turn_count"`
	CreatedAt time.Time `json:"created_at"`
}
