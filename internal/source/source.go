package source

import (
	"context"
	"errors"

	"github.com/commandcenter/command-center/internal/model"
)

// MaxPageSize caps how many rows a single Query may return regardless of the
// caller's requested limit.
const MaxPageSize = 1000

// ErrNotFound is returned when a requested proposal row cannot be located.
var ErrNotFound = errors.New("not found")

// QueryParams shape a proposal fetch. Limit <= 0 means "use MaxPageSize".
type QueryParams struct {
	Filter model.Filter
	Limit  int
}

// Source is the remote query/mutation surface for the process_events entity.
// Results are always ordered newest creation time first.
type Source interface {
	// Query returns up to a bounded page of proposals matching params.
	Query(ctx context.Context, params QueryParams) ([]model.ProcessEvent, error)

	// Update applies a partial field map to the row with the given id.
	Update(ctx context.Context, id string, fields map[string]interface{}) error

	// Ping validates the source is reachable.
	Ping(ctx context.Context) error
}
