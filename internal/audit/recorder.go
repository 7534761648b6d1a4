// package audit keeps a durable trail of operator decisions. The trail is
// advisory: it must never change the outcome of the dispatch it records.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Decision is one recorded operator approve/reject.
type Decision struct {
	ID             string    `json:"id"`
	ProposalID     string    `json:"proposalId"`
	WorkflowID     string    `json:"workflowId"`
	Action         string    `json:"action"`
	UserID         string    `json:"userId"`
	IdempotencyKey string    `json:"idempotencyKey"`
	Ts             time.Time `json:"ts"`
}

// Archiver uploads decision envelopes to long-term object storage.
type Archiver interface {
	ArchiveDecision(ctx context.Context, d *Decision) error
}

// Recorder persists decisions into Postgres and optionally archives them.
// A nil db degrades to a log line so development setups without a decision
// table still work.
type Recorder struct {
	db       *sql.DB
	archiver Archiver
}

// NewRecorder constructs a Recorder. archiver may be nil.
func NewRecorder(db *sql.DB, archiver Archiver) *Recorder {
	return &Recorder{db: db, archiver: archiver}
}

// Record persists one decision. Archival failures are logged, not returned:
// the Postgres row is the source of truth and an S3 gap is recoverable.
func (r *Recorder) Record(ctx context.Context, d Decision) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Ts.IsZero() {
		d.Ts = time.Now().UTC()
	}

	if r == nil || r.db == nil {
		log.Printf("[audit] decision (no db): proposal=%s action=%s user=%s", d.ProposalID, d.Action, d.UserID)
		return nil
	}

	q := `
		INSERT INTO decision_audit (id, proposal_id, workflow_id, action, user_id, idempotency_key, ts)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	if _, err := r.db.ExecContext(ctx, q, d.ID, d.ProposalID, d.WorkflowID, d.Action, d.UserID, d.IdempotencyKey, d.Ts); err != nil {
		return fmt.Errorf("insert decision_audit: %w", err)
	}

	if r.archiver != nil {
		if err := r.archiver.ArchiveDecision(ctx, &d); err != nil {
			log.Printf("[audit] archive decision %s: %v", d.ID, err)
		}
	}
	return nil
}
