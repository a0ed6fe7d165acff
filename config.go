package patchkit

import (
	"time"

	"github.com/a-h/patchkit/ledger"
	"github.com/a-h/patchkit/model"
)

// Config is the "Public API of the core" configuration described in
// spec.md section 6. Its zero value is not valid; use DefaultConfig and
// override the fields a caller needs to change.
type Config struct {
	// AllowDDL disables the DmlOnlyValidator when true. Default false.
	AllowDDL bool
	// MaxBytes is the SizeValidator's raw-byte ceiling. Default 512000.
	MaxBytes int
	// MaxActions is the SizeValidator's action-count ceiling. Default 200.
	MaxActions int
	// PerActionTimeout bounds a single action's Execute call. Default 10s.
	PerActionTimeout time.Duration
	// TotalTimeout bounds the executor run (checks and write
	// transaction); parsing, validation and the ledger calls are outside
	// it. Default 60s.
	TotalTimeout time.Duration
	// VerifyHash enables the HashValidator. Default true.
	VerifyHash bool
	// ChecksInReadTx wraps pre/postcondition phases in a deferred read
	// transaction for snapshot consistency. Default false.
	ChecksInReadTx bool
	// Idempotency is the ledger consulted before, and recorded to after,
	// a patch's write transaction. A nil Idempotency disables idempotency
	// tracking entirely: every Apply call re-executes the patch.
	Idempotency ledger.Ledger
	// Clock is the source of timestamps for the execution report.
	// Defaults to the system clock. It is not passed to Idempotency: a
	// SQLiteLedger stamps applied_at from its own Clock field.
	Clock model.Clock
}

// DefaultConfig returns the configuration spec.md section 6 specifies:
// DDL disallowed, a 500KB/200-action size ceiling, a 10s per-action and
// 60s total timeout, hash verification on, checks outside a read
// transaction, and a SQLite ledger table named "_patchkit_applied".
func DefaultConfig() Config {
	return Config{
		AllowDDL:         false,
		MaxBytes:         512_000,
		MaxActions:       200,
		PerActionTimeout: 10 * time.Second,
		TotalTimeout:     60 * time.Second,
		VerifyHash:       true,
		ChecksInReadTx:   false,
		Idempotency:      ledger.NewSQLiteLedger(),
		Clock:            model.SystemClock,
	}
}

func (c Config) clock() model.Clock {
	if c.Clock == nil {
		return model.SystemClock
	}
	return c.Clock
}
