// Package storage provides durable persistence for finished debates.
package storage

import (
	"github.com/podiumlabs/podium/internal/core"
)

// Sink stores debate snapshots. Save is called exactly once per debate,
// at the terminal transition, with the full accumulated state. Reads let
// completed debates survive a process restart.
type Sink interface {
	// Initialize sets up the storage (creates tables, etc.)
	Initialize() error

	// Close closes the storage connection.
	Close() error

	// Save durably stores a debate snapshot, replacing any prior record.
	Save(debate *core.Debate) error

	// Get retrieves a stored debate by ID. Returns (nil, nil) when absent.
	Get(id string) (*core.Debate, error)

	// List returns stored debates, most-recently-created first.
	List(limit, offset int) ([]*core.DebateSummary, error)
}
