// Package feedback persists extraction outcomes so prompt and lexicon
// tuning can be grounded in real usage. Two stores are provided: an
// append-only JSON-lines file for single-instance deployments and a
// PostgreSQL store for anything bigger.
package feedback

import (
	"context"
	"time"

	"github.com/jingga-app/jingga/pkg/types"
)

// Record is a single extraction outcome.
type Record struct {
	Timestamp     time.Time    `json:"timestamp"`
	SessionID     string       `json:"session_id"`
	OriginalInput string       `json:"originalInput"`
	ExtractedData *types.Draft `json:"extractedData"`
	WasIncomplete bool         `json:"wasIncomplete"`
	AttemptsCount int          `json:"attemptsCount"`
	Success       bool         `json:"success"`
}

// Store persists feedback records. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save appends one record. A zero Timestamp is filled with the current
	// UTC time.
	Save(ctx context.Context, rec Record) error
}
