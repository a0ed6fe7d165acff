// Package validate implements the pure, DB-free Validator Chain described
// in spec.md section 4.3: an ordered list of predicates over
// (patch, raw bytes) that short-circuits on the first failure.
package validate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/a-h/patchkit/model"
)

// Result is the outcome of running a Validator, or the whole Chain.
type Result struct {
	// Code is empty on success.
	Code    string
	Message string
}

// OK reports whether the result represents success.
func (r Result) OK() bool { return r.Code == "" }

func fail(code, format string, args ...any) Result {
	return Result{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validator is a pure predicate over (patch, raw bytes). raw may be nil
// when the caller has only a parsed Patch and not its original bytes.
type Validator interface {
	Validate(patch model.Patch, raw []byte) Result
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(patch model.Patch, raw []byte) Result

func (f ValidatorFunc) Validate(patch model.Patch, raw []byte) Result { return f(patch, raw) }

// Chain runs its validators in order, returning the first failure, or a
// success Result if all pass. Implementers can extend it by appending
// more Validators — spec.md section 4.3 requires this to stay an ordered
// list, not a fixed switch.
type Chain struct {
	validators []Validator
}

// NewChain builds a Chain from an ordered list of validators.
func NewChain(validators ...Validator) *Chain {
	return &Chain{validators: validators}
}

// Validate runs the chain in order and short-circuits on the first
// failure.
func (c *Chain) Validate(patch model.Patch, raw []byte) Result {
	for _, v := range c.validators {
		if r := v.Validate(patch, raw); !r.OK() {
			return r
		}
	}
	return Result{}
}

// DefaultChain builds the chain spec.md section 4.3 specifies, in order:
// size, multi-statement, hash (if cfg.VerifyHash), DML-only (if
// !cfg.AllowDDL).
func DefaultChain(maxBytes int, maxActions int, verifyHash, allowDDL bool) *Chain {
	validators := []Validator{
		SizeValidator{MaxBytes: maxBytes, MaxActions: maxActions},
		MultiStatementValidator{},
	}
	if verifyHash {
		validators = append(validators, HashValidator{})
	}
	if !allowDDL {
		validators = append(validators, DmlOnlyValidator{})
	}
	return NewChain(validators...)
}

// SizeValidator rejects patches whose raw byte size or action count
// exceeds configured limits, per spec.md section 4.3.1.
type SizeValidator struct {
	MaxBytes   int
	MaxActions int
}

func (v SizeValidator) Validate(patch model.Patch, raw []byte) Result {
	if raw != nil && len(raw) > v.MaxBytes {
		return fail("SIZE_EXCEEDED", "patch is %d bytes, exceeds limit of %d", len(raw), v.MaxBytes)
	}
	if len(patch.Actions) > v.MaxActions {
		return fail("TOO_MANY_ACTIONS", "patch has %d actions, exceeds limit of %d", len(patch.Actions), v.MaxActions)
	}
	return Result{}
}

// MultiStatementValidator rejects any action SQL containing a top-level
// semicolon other than a single optional trailing one, per spec.md
// section 4.3.2. "Top-level" excludes text inside single- or
// double-quoted strings; a backslash escapes the next character. It does
// not understand SQL comments (-- or /* */) — see spec.md section 9,
// "Single-statement parser".
type MultiStatementValidator struct{}

func (v MultiStatementValidator) Validate(patch model.Patch, _ []byte) Result {
	for i, a := range patch.Actions {
		if hasMultipleStatements(a.Sql) {
			return fail("MULTI_STATEMENT", "action %d contains more than one statement", i)
		}
	}
	return Result{}
}

func hasMultipleStatements(sql string) bool {
	trimmed := strings.TrimRight(sql, " \t\r\n")
	body := trimmed
	if strings.HasSuffix(body, ";") {
		body = body[:len(body)-1]
	}

	var inSingle, inDouble, escaped bool
	for _, r := range body {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case ';':
			if !inSingle && !inDouble {
				return true
			}
		}
	}
	return false
}

// HashValidator verifies the raw patch bytes against metadata["sha256"]
// when present, per spec.md section 4.3.3.
type HashValidator struct{}

func (v HashValidator) Validate(patch model.Patch, raw []byte) Result {
	expected, ok := patch.Metadata["sha256"]
	if !ok {
		return Result{}
	}
	if raw == nil {
		return fail("HASH_MISSING_BYTES", "metadata.sha256 is set but no raw bytes were supplied to verify against")
	}
	sum := sha256.Sum256(raw)
	actual := hex.EncodeToString(sum[:])
	if !strings.EqualFold(actual, expected) {
		return fail("HASH_MISMATCH", "metadata.sha256 %q does not match computed hash %q", expected, actual)
	}
	return Result{}
}

// DmlOnlyValidator rejects actions whose uppercased, left-trimmed SQL
// starts with CREATE, DROP, ALTER, or TRUNCATE, per spec.md section
// 4.3.4. It is enabled whenever Config.AllowDDL is false.
type DmlOnlyValidator struct{}

var ddlPrefixes = []string{"CREATE", "DROP", "ALTER", "TRUNCATE"}

func (v DmlOnlyValidator) Validate(patch model.Patch, _ []byte) Result {
	for i, a := range patch.Actions {
		leading := strings.ToUpper(strings.TrimLeft(a.Sql, " \t\r\n"))
		for _, prefix := range ddlPrefixes {
			if strings.HasPrefix(leading, prefix) {
				return fail("DDL_NOT_ALLOWED", "action %d begins with %s, which is a DDL statement", i, prefix)
			}
		}
	}
	return Result{}
}
