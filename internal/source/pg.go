package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/commandcenter/command-center/internal/model"
)

// PGSource reads and mutates process_events rows in Postgres.
type PGSource struct {
	db *sql.DB
}

// NewPGSource constructs a Postgres-backed proposal source.
func NewPGSource(db *sql.DB) *PGSource {
	return &PGSource{db: db}
}

// Ping verifies connectivity to Postgres.
func (s *PGSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Query fetches a page of proposals ordered by created_at descending.
// Filter criteria compile to WHERE clauses: status and event_type are exact
// matches, search is a case-insensitive substring match over event_name
// and id.
func (s *PGSource) Query(ctx context.Context, params QueryParams) ([]model.ProcessEvent, error) {
	limit := params.Limit
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	var (
		conds []string
		args  []interface{}
	)
	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if params.Filter.Status != "" {
		conds = append(conds, "status = "+next(params.Filter.Status))
	}
	if params.Filter.EventType != "" {
		conds = append(conds, "event_type = "+next(params.Filter.EventType))
	}
	if params.Filter.Search != "" {
		p := next("%" + params.Filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(event_name ILIKE %s OR id ILIKE %s)", p, p))
	}

	q := "SELECT id, workflow_id, status, event_name, event_type, user_id, metadata, created_at FROM process_events"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC LIMIT " + next(limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query process_events: %w", err)
	}
	defer rows.Close()

	var out []model.ProcessEvent
	for rows.Next() {
		var (
			ev         model.ProcessEvent
			workflowID sql.NullString
			metaBytes  []byte
			createdAt  time.Time
		)
		if err := rows.Scan(&ev.ID, &workflowID, &ev.Status, &ev.EventName, &ev.EventType, &ev.UserID, &metaBytes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan process_event: %w", err)
		}
		if workflowID.Valid {
			ev.WorkflowID = workflowID.String
		}
		if len(metaBytes) > 0 && string(metaBytes) != "null" {
			// Malformed metadata is preserved rather than dropped.
			if err := json.Unmarshal(metaBytes, &ev.Metadata); err != nil {
				ev.Metadata = map[string]interface{}{"raw": string(metaBytes)}
			}
		}
		ev.CreatedAt = createdAt
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate process_events: %w", err)
	}
	return out, nil
}

// updatableColumns whitelists the fields a partial update may touch.
var updatableColumns = map[string]bool{
	"status":      true,
	"workflow_id": true,
	"event_name":  true,
	"event_type":  true,
	"user_id":     true,
	"metadata":    true,
}

// Update applies a partial field map to the row with matching id. Column
// order in the generated SET clause is deterministic so the statement is
// stable across calls. Updating a row that no longer exists is not an
// error: the row may simply have been deleted underneath us.
func (s *PGSource) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if id == "" {
		return fmt.Errorf("update process_event: id required")
	}
	if len(fields) == 0 {
		return nil
	}

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !updatableColumns[col] {
			return fmt.Errorf("update process_event: column %q not updatable", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols)+1)
	for i, col := range cols {
		v := fields[col]
		if col == "metadata" {
			b, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("marshal metadata: %w", err)
			}
			v = b
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, v)
	}
	args = append(args, id)

	q := fmt.Sprintf("UPDATE process_events SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("update process_event: %w", err)
	}
	return nil
}
