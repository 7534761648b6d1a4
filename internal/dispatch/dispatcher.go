// package dispatch translates operator decisions into orchestrator signals
// and reconciles the result with the proposal store.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/commandcenter/command-center/internal/audit"
	"github.com/commandcenter/command-center/internal/model"
	"github.com/commandcenter/command-center/internal/notify"
	"github.com/commandcenter/command-center/internal/orchestrator"
	"github.com/commandcenter/command-center/internal/store"
)

// ErrBusy is returned when a dispatch for the same proposal is already in
// flight. The caller surfaces this as disabled action affordances.
var ErrBusy = errors.New("dispatch already in flight for proposal")

// Dispatcher issues exactly one outbound signal per invocation and applies
// the optimistic store update only after the orchestrator acknowledges
// delivery. Dispatches are never retried automatically.
type Dispatcher struct {
	store    *store.Store
	client   orchestrator.Client
	bus      *notify.Bus
	recorder *audit.Recorder

	mu       sync.Mutex
	inflight map[string]struct{}

	now func() time.Time
}

// New constructs a Dispatcher. recorder may be nil when no decision trail
// is configured.
func New(st *store.Store, client orchestrator.Client, bus *notify.Bus, recorder *audit.Recorder) *Dispatcher {
	return &Dispatcher{
		store:    st,
		client:   client,
		bus:      bus,
		recorder: recorder,
		inflight: make(map[string]struct{}),
		now:      time.Now,
	}
}

// Busy reports whether a dispatch for the given proposal is in flight.
func (d *Dispatcher) Busy(proposalID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inflight[proposalID]
	return ok
}

// Dispatch sends the decision for one proposal to the orchestrator.
//
// The target workflow id is the proposal's own workflow_id when present,
// otherwise the deterministic fallback derived from the proposal id. Each
// attempt carries a fresh idempotency key in its signal args so the
// orchestrator can de-duplicate manual re-clicks after a timeout with
// unknown outcome.
//
// On acknowledged delivery the store row is optimistically moved to the
// action's target status and a success notification is queued. On any
// failure the store is untouched and exactly one error notification carries
// the most specific message available.
func (d *Dispatcher) Dispatch(ctx context.Context, p model.ProcessEvent, action model.Action, userID string) error {
	d.mu.Lock()
	if _, ok := d.inflight[p.ID]; ok {
		d.mu.Unlock()
		return ErrBusy
	}
	d.inflight[p.ID] = struct{}{}
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.inflight, p.ID)
		d.mu.Unlock()
	}()

	workflowID := p.TargetWorkflowID()
	idempotencyKey := uuid.New().String()
	ts := d.now().UTC()

	req := orchestrator.SignalRequest{
		WorkflowID: workflowID,
		SignalName: action.SignalName(),
		SignalArgs: map[string]interface{}{
			"proposalId":     p.ID,
			"userId":         userID,
			"action":         string(action),
			"timestamp":      ts.Format(time.RFC3339),
			"idempotencyKey": idempotencyKey,
		},
	}

	if err := d.client.Signal(ctx, req); err != nil {
		d.bus.Add(notify.Error, err.Error(), notify.DefaultTTL)
		return fmt.Errorf("dispatch %s for proposal %s: %w", action, p.ID, err)
	}

	if err := d.store.UpdateLocal(ctx, p.ID, map[string]interface{}{"status": action.TargetStatus()}); err != nil {
		d.bus.Add(notify.Error, err.Error(), notify.DefaultTTL)
		return err
	}

	verb := "approved"
	if action == model.ActionReject {
		verb = "rejected"
	}
	d.bus.Add(notify.Success, fmt.Sprintf("Proposal %s successfully", verb), 3*time.Second)

	if d.recorder != nil {
		if err := d.recorder.Record(ctx, audit.Decision{
			ProposalID:     p.ID,
			WorkflowID:     workflowID,
			Action:         string(action),
			UserID:         userID,
			IdempotencyKey: idempotencyKey,
			Ts:             ts,
		}); err != nil {
			log.Printf("[dispatch] record decision for %s: %v", p.ID, err)
		}
	}
	return nil
}
