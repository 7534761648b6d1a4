package source

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandcenter/command-center/internal/model"
)

var eventColumns = []string{"id", "workflow_id", "status", "event_name", "event_type", "user_id", "metadata", "created_at"}

func TestQueryNoFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	mock.ExpectQuery("SELECT id, workflow_id, status, event_name, event_type, user_id, metadata, created_at FROM process_events ORDER BY created_at DESC LIMIT").
		WithArgs(1000).
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("p2", "wf-2", "pending", "sync invoices", "connector.sync", "u1", []byte(`{"source":"crm"}`), t2).
			AddRow("p1", nil, "completed", "create lead", "crm.write", "u2", []byte(`null`), t1))

	src := NewPGSource(db)
	got, err := src.Query(context.Background(), QueryParams{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "p2", got[0].ID)
	assert.Equal(t, "wf-2", got[0].WorkflowID)
	assert.Equal(t, map[string]interface{}{"source": "crm"}, got[0].Metadata)

	// NULL workflow_id and null metadata come back as zero values.
	assert.Equal(t, "", got[1].WorkflowID)
	assert.Nil(t, got[1].Metadata)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryWithFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`WHERE status = \$1 AND event_type = \$2 AND \(event_name ILIKE \$3 OR id ILIKE \$3\) ORDER BY created_at DESC LIMIT \$4`).
		WithArgs("pending", "connector.sync", "%invoice%", 50).
		WillReturnRows(sqlmock.NewRows(eventColumns))

	src := NewPGSource(db)
	_, err = src.Query(context.Background(), QueryParams{
		Filter: model.Filter{Status: "pending", EventType: "connector.sync", Search: "invoice"},
		Limit:  50,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryLimitCapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM process_events ORDER BY created_at DESC LIMIT").
		WithArgs(MaxPageSize).
		WillReturnRows(sqlmock.NewRows(eventColumns))

	src := NewPGSource(db)
	_, err = src.Query(context.Background(), QueryParams{Limit: 5000})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePartialFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE process_events SET status = \$1 WHERE id = \$2`).
		WithArgs("completed", "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	src := NewPGSource(db)
	err = src.Update(context.Background(), "p1", map[string]interface{}{"status": "completed"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRejectsUnknownColumn(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	src := NewPGSource(db)
	err = src.Update(context.Background(), "p1", map[string]interface{}{"created_at": time.Now()})
	assert.Error(t, err)
}
