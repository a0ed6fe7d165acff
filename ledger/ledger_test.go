package ledger

import (
	"context"
	"testing"

	"github.com/a-h/patchkit/engine/sqliteengine"
)

func newTestEngine(t *testing.T) *sqliteengine.Engine {
	t.Helper()
	e, err := sqliteengine.Open("file::memory:?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestSQLiteLedgerLifecycle(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	l := NewSQLiteLedger()

	if err := l.Initialize(ctx, e); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	// Initialize must be idempotent.
	if err := l.Initialize(ctx, e); err != nil {
		t.Fatalf("second initialize: %v", err)
	}

	applied, err := l.HasBeenApplied(ctx, e, "patch-1")
	if err != nil {
		t.Fatalf("has been applied: %v", err)
	}
	if applied {
		t.Fatal("expected patch-1 to not yet be applied")
	}

	if err := l.RecordApplication(ctx, e, "patch-1", "{env=prod}"); err != nil {
		t.Fatalf("record application: %v", err)
	}

	applied, err = l.HasBeenApplied(ctx, e, "patch-1")
	if err != nil {
		t.Fatalf("has been applied: %v", err)
	}
	if !applied {
		t.Fatal("expected patch-1 to be recorded as applied")
	}

	// A different patch id must not be affected.
	applied, err = l.HasBeenApplied(ctx, e, "patch-2")
	if err != nil {
		t.Fatalf("has been applied: %v", err)
	}
	if applied {
		t.Fatal("expected patch-2 to not be applied")
	}
}

func TestSQLiteLedgerRejectsDuplicatePatchID(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	l := NewSQLiteLedger()
	if err := l.Initialize(ctx, e); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := l.RecordApplication(ctx, e, "dup", "{}"); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := l.RecordApplication(ctx, e, "dup", "{}"); err == nil {
		t.Fatal("expected the unique index on patch_id to reject a duplicate")
	}
}

func TestSQLiteLedgerWithTable(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	l := NewSQLiteLedger().WithTable("custom_ledger")
	if err := l.Initialize(ctx, e); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	scalar, err := e.QueryScalar(ctx, "select count(*) from custom_ledger", nil)
	if err != nil {
		t.Fatalf("query scalar: %v", err)
	}
	if scalar.AsLong() != 0 {
		t.Errorf("count = %d, want 0", scalar.AsLong())
	}
}
