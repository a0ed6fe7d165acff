// Package sqliteengine adapts zombiezen.com/go/sqlite to the
// engine.Engine interface, the way the teacher repo's sqlite.go adapts
// the same driver to its own db.DB interface.
package sqliteengine

import (
	"context"
	"fmt"

	"github.com/a-h/patchkit/model"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Engine is the default engine.Engine implementation, backed by a pooled
// zombiezen.com/go/sqlite connection.
type Engine struct {
	pool *sqlitex.Pool
}

// New wraps an existing connection pool.
func New(pool *sqlitex.Pool) *Engine {
	return &Engine{pool: pool}
}

// Open opens a new pool for the given DSN (e.g. "file:data.db?mode=rwc")
// and wraps it, mirroring cmd/kv/main.go's sqlitex.NewPool call.
func Open(dsn string) (*Engine, error) {
	pool, err := sqlitex.NewPool(dsn, sqlitex.PoolOptions{})
	if err != nil {
		return nil, fmt.Errorf("sqliteengine: open %q: %w", dsn, err)
	}
	return New(pool), nil
}

// Close releases the underlying pool.
func (e *Engine) Close() error { return e.pool.Close() }

// connKey threads the connection that owns an open transaction through
// context.Context, so that QueryScalar/Execute called from inside an
// InTransaction closure reuse that connection instead of taking a fresh
// one from the pool. engine.Engine's contract forbids reentrant
// transactions, so at most one connKey is ever live per context chain.
type connKey struct{}

func withConn(ctx context.Context, conn *sqlite.Conn) context.Context {
	return context.WithValue(ctx, connKey{}, conn)
}

// borrowConn returns the transaction connection embedded in ctx, if any,
// along with a no-op release function; otherwise it takes a connection
// from the pool and returns a release function that puts it back.
func (e *Engine) borrowConn(ctx context.Context) (conn *sqlite.Conn, release func(), err error) {
	if conn, ok := ctx.Value(connKey{}).(*sqlite.Conn); ok {
		// Reusing the transaction's connection: still rebind the
		// interrupt channel to this call's ctx (e.g. a per-action
		// timeout narrower than the transaction's own), and restore it
		// on release so the transaction-level interrupt is intact for
		// whatever runs next on this connection.
		oldDone := conn.SetInterrupt(ctx.Done())
		return conn, func() { conn.SetInterrupt(oldDone) }, nil
	}
	conn, err = e.pool.Take(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("sqliteengine: take connection: %w", err)
	}
	oldDone := conn.SetInterrupt(ctx.Done())
	return conn, func() {
		conn.SetInterrupt(oldDone)
		e.pool.Put(conn)
	}, nil
}

func bindArgs(stmt *sqlite.Stmt, args []model.SqlArg) error {
	for i, a := range args {
		idx := i + 1 // 1-based positional binding, per spec.md section 6.
		switch a.Type {
		case model.SqlArgTypeNull:
			stmt.BindNull(idx)
		case model.SqlArgTypeText:
			stmt.BindText(idx, a.Text)
		case model.SqlArgTypeInt64:
			stmt.BindInt64(idx, a.I64)
		case model.SqlArgTypeReal:
			stmt.BindFloat(idx, a.Real)
		case model.SqlArgTypeBlob:
			stmt.BindBytes(idx, a.Blob)
		default:
			return fmt.Errorf("sqliteengine: unsupported arg type %q at position %d", a.Type, idx)
		}
	}
	return nil
}

func scalarFromColumn(stmt *sqlite.Stmt) model.SqlScalar {
	switch stmt.ColumnType(0) {
	case sqlite.TypeNull:
		return model.NullScalar()
	case sqlite.TypeInteger:
		return model.Int64Scalar(stmt.ColumnInt64(0))
	case sqlite.TypeFloat:
		return model.RealScalar(stmt.ColumnFloat(0))
	case sqlite.TypeText:
		return model.TextScalar(stmt.ColumnText(0))
	case sqlite.TypeBlob:
		buf := make([]byte, stmt.ColumnLen(0))
		stmt.ColumnBytes(0, buf)
		return model.BlobScalar(buf)
	default:
		return model.NullScalar()
	}
}

// QueryScalar implements engine.Engine: the first column of the first
// row, or Null when the statement yields no rows.
func (e *Engine) QueryScalar(ctx context.Context, sql string, args []model.SqlArg) (model.SqlScalar, error) {
	conn, release, err := e.borrowConn(ctx)
	if err != nil {
		return model.NullScalar(), err
	}
	defer release()

	stmt, _, err := conn.PrepareTransient(sql)
	if err != nil {
		return model.NullScalar(), fmt.Errorf("sqliteengine: prepare: %w", err)
	}
	defer stmt.Finalize()

	if err := bindArgs(stmt, args); err != nil {
		return model.NullScalar(), err
	}

	hasRow, err := stmt.Step()
	if err != nil {
		return model.NullScalar(), fmt.Errorf("sqliteengine: query scalar: %w", err)
	}
	if !hasRow {
		return model.NullScalar(), nil
	}
	return scalarFromColumn(stmt), nil
}

// Execute implements engine.Engine, returning changes() for the
// statement it ran.
func (e *Engine) Execute(ctx context.Context, sql string, args []model.SqlArg) (int64, error) {
	conn, release, err := e.borrowConn(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	stmt, _, err := conn.PrepareTransient(sql)
	if err != nil {
		return 0, fmt.Errorf("sqliteengine: prepare: %w", err)
	}
	defer stmt.Finalize()

	if err := bindArgs(stmt, args); err != nil {
		return 0, err
	}

	if _, err := stmt.Step(); err != nil {
		return 0, fmt.Errorf("sqliteengine: execute: %w", err)
	}
	return int64(conn.Changes()), nil
}

// InTransaction implements engine.Engine. It holds one pooled connection
// for the lifetime of fn, so every QueryScalar/Execute call fn makes
// (via a *patchkit* engine.Engine sharing this ctx) runs against the same
// physical connection the BEGIN/COMMIT/ROLLBACK ran on. Transactions are
// not reentrant: calling InTransaction again from within fn takes a
// second pooled connection and begins a separate transaction on it,
// rather than nesting inside this one.
func (e *Engine) InTransaction(ctx context.Context, immediate bool, fn func(ctx context.Context) error) (err error) {
	conn, err := e.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqliteengine: take connection: %w", err)
	}
	defer e.pool.Put(conn)
	oldDone := conn.SetInterrupt(ctx.Done())
	defer conn.SetInterrupt(oldDone)

	begin := "BEGIN;"
	if immediate {
		begin = "BEGIN IMMEDIATE;"
	}
	if execErr := sqlitex.ExecuteTransient(conn, begin, nil); execErr != nil {
		return fmt.Errorf("sqliteengine: %s: %w", begin, execErr)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlitex.ExecuteTransient(conn, "ROLLBACK;", nil)
			panic(p)
		}
		if err != nil {
			if rbErr := sqlitex.ExecuteTransient(conn, "ROLLBACK;", nil); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
			return
		}
		if commitErr := sqlitex.ExecuteTransient(conn, "COMMIT;", nil); commitErr != nil {
			err = fmt.Errorf("sqliteengine: commit: %w", commitErr)
		}
	}()

	err = fn(withConn(ctx, conn))
	return err
}
