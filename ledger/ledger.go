// Package ledger implements the idempotency ledger described in spec.md
// section 4.4: a table of previously applied patch ids, checked before
// (and recorded after) a patch's write transaction.
package ledger

import (
	"context"
	"fmt"

	"github.com/a-h/patchkit/engine"
	"github.com/a-h/patchkit/model"
)

// Ledger is the idempotency manager interface the orchestrator depends
// on. It must tolerate being called with DDL disabled at the policy
// layer — it runs outside the Validator Chain, per spec.md section 4.4.
type Ledger interface {
	// Initialize creates the backing table/index if they don't already
	// exist. It must run outside the mutating transaction and be safe to
	// call repeatedly.
	Initialize(ctx context.Context, eng engine.Engine) error
	// HasBeenApplied reports whether patchID has a row in the ledger.
	HasBeenApplied(ctx context.Context, eng engine.Engine, patchID string) (bool, error)
	// RecordApplication inserts a row for patchID with the current time.
	// Called after the write transaction commits.
	RecordApplication(ctx context.Context, eng engine.Engine, patchID, metadata string) error
}

// SQLiteLedger is the default Ledger implementation: a single table named
// Table (default "_patchkit_applied") with columns
// (patch_id TEXT PRIMARY KEY, applied_at INTEGER NOT NULL, metadata TEXT)
// and a UNIQUE INDEX on patch_id, per spec.md section 4.4.
type SQLiteLedger struct {
	Table string
	Clock model.Clock
}

// NewSQLiteLedger builds a SQLiteLedger using the default table name
// "_patchkit_applied" and the system clock.
func NewSQLiteLedger() *SQLiteLedger {
	return &SQLiteLedger{Table: "_patchkit_applied", Clock: model.SystemClock}
}

// WithTable returns a copy of the ledger using a different backing table
// name, for callers that need to avoid a collision.
func (l *SQLiteLedger) WithTable(table string) *SQLiteLedger {
	return &SQLiteLedger{Table: table, Clock: l.Clock}
}

func (l *SQLiteLedger) table() string {
	if l.Table == "" {
		return "_patchkit_applied"
	}
	return l.Table
}

func (l *SQLiteLedger) clock() model.Clock {
	if l.Clock == nil {
		return model.SystemClock
	}
	return l.Clock
}

func (l *SQLiteLedger) Initialize(ctx context.Context, eng engine.Engine) error {
	table := l.table()
	createTable := fmt.Sprintf(
		`create table if not exists %s (patch_id text primary key, applied_at integer not null, metadata text);`,
		table,
	)
	if _, err := eng.Execute(ctx, createTable, nil); err != nil {
		return fmt.Errorf("ledger: initialize: create table: %w", err)
	}
	createIndex := fmt.Sprintf(
		`create unique index if not exists %s_patch_id on %s (patch_id);`,
		table, table,
	)
	if _, err := eng.Execute(ctx, createIndex, nil); err != nil {
		return fmt.Errorf("ledger: initialize: create index: %w", err)
	}
	return nil
}

func (l *SQLiteLedger) HasBeenApplied(ctx context.Context, eng engine.Engine, patchID string) (bool, error) {
	sql := fmt.Sprintf(`select count(*) from %s where patch_id = ?;`, l.table())
	scalar, err := eng.QueryScalar(ctx, sql, []model.SqlArg{model.NewTextArg(patchID)})
	if err != nil {
		return false, fmt.Errorf("ledger: has been applied: %w", err)
	}
	return scalar.AsLong() > 0, nil
}

func (l *SQLiteLedger) RecordApplication(ctx context.Context, eng engine.Engine, patchID, metadata string) error {
	sql := fmt.Sprintf(`insert into %s (patch_id, applied_at, metadata) values (?, ?, ?);`, l.table())
	args := []model.SqlArg{
		model.NewTextArg(patchID),
		model.NewInt64Arg(l.clock().NowMillis()),
		model.NewTextArg(metadata),
	}
	if _, err := eng.Execute(ctx, sql, args); err != nil {
		return fmt.Errorf("ledger: record application: %w", err)
	}
	return nil
}
