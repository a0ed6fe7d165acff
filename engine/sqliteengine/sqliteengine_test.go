package sqliteengine

import (
	"context"
	"testing"

	"github.com/a-h/patchkit/model"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open("file::memory:?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestQueryScalarNoRows(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if _, err := e.Execute(ctx, "create table t (id integer primary key, v text)", nil); err != nil {
		t.Fatalf("create table: %v", err)
	}
	scalar, err := e.QueryScalar(ctx, "select v from t where id = 1", nil)
	if err != nil {
		t.Fatalf("query scalar: %v", err)
	}
	if !scalar.IsNull() {
		t.Errorf("expected Null for no rows, got %v", scalar)
	}
}

func TestExecuteBindsPositionalArgs(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if _, err := e.Execute(ctx, "create table t (id integer primary key, v text)", nil); err != nil {
		t.Fatalf("create table: %v", err)
	}
	rows, err := e.Execute(ctx, "insert into t (id, v) values (?, ?)", []model.SqlArg{
		model.NewInt64Arg(1), model.NewTextArg("hello"),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if rows != 1 {
		t.Errorf("rows = %d, want 1", rows)
	}
	scalar, err := e.QueryScalar(ctx, "select v from t where id = ?", []model.SqlArg{model.NewInt64Arg(1)})
	if err != nil {
		t.Fatalf("query scalar: %v", err)
	}
	if scalar.String() != "hello" {
		t.Errorf("got %q, want %q", scalar.String(), "hello")
	}
}

func TestInTransactionCommit(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if _, err := e.Execute(ctx, "create table t (id integer primary key, v integer)", nil); err != nil {
		t.Fatalf("create table: %v", err)
	}
	err := e.InTransaction(ctx, true, func(ctx context.Context) error {
		if _, err := e.Execute(ctx, "insert into t (id, v) values (1, 1)", nil); err != nil {
			return err
		}
		if _, err := e.Execute(ctx, "update t set v = v + 1 where id = 1", nil); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		t.Fatalf("in transaction: %v", err)
	}
	scalar, err := e.QueryScalar(ctx, "select v from t where id = 1", nil)
	if err != nil {
		t.Fatalf("query scalar: %v", err)
	}
	if scalar.AsLong() != 2 {
		t.Errorf("v = %d, want 2 (actions inside InTransaction must share one connection)", scalar.AsLong())
	}
}

func TestInTransactionRollsBackOnError(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if _, err := e.Execute(ctx, "create table t (id integer primary key, v integer)", nil); err != nil {
		t.Fatalf("create table: %v", err)
	}
	wantErr := errRollbackProbe{}
	err := e.InTransaction(ctx, true, func(ctx context.Context) error {
		if _, err := e.Execute(ctx, "insert into t (id, v) values (1, 1)", nil); err != nil {
			return err
		}
		return wantErr
	})
	if err == nil {
		t.Fatal("expected an error from InTransaction")
	}
	scalar, err := e.QueryScalar(ctx, "select count(*) from t", nil)
	if err != nil {
		t.Fatalf("query scalar: %v", err)
	}
	if scalar.AsLong() != 0 {
		t.Errorf("count = %d, want 0 (the transaction should have rolled back)", scalar.AsLong())
	}
}

type errRollbackProbe struct{}

func (errRollbackProbe) Error() string { return "forced rollback" }
