// Package executor implements the transactional state machine described
// in spec.md section 4.5: preconditions, a single write transaction of
// actions, postconditions, per-action and total timeouts, and a full
// event timeline.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/a-h/patchkit/engine"
	"github.com/a-h/patchkit/model"
)

// Options configures one Run of the executor.
type Options struct {
	PerActionTimeout time.Duration
	TotalTimeout     time.Duration
	// ChecksInReadTx wraps the pre- and post-check phases in a deferred
	// read transaction for a snapshot-consistent view. Write-phase
	// transactionality is unconditional regardless of this flag.
	ChecksInReadTx bool
	Clock          model.Clock
}

func (o Options) clock() model.Clock {
	if o.Clock == nil {
		return model.SystemClock
	}
	return o.Clock
}

// failKind names the terminal-event mapping for a phase failure, per
// spec.md section 4.5's FAIL(kind) pseudocode.
type failKind int

const (
	failPrecondition failKind = iota
	failPostcondition
	failOther
)

// Run drives patch against eng under opts.TotalTimeout, emitting a full
// event timeline and returning an ExecutionReport. Run never panics or
// returns a raw error for a patch-level failure — every outcome is
// reflected in the returned report, per spec.md section 7.
func Run(ctx context.Context, eng engine.Engine, patch model.Patch, opts Options) model.ExecutionReport {
	clock := opts.clock()
	startMillis := clock.NowMillis()

	ctx, cancel := context.WithTimeout(ctx, positiveOrMax(opts.TotalTimeout))
	defer cancel()

	st := &run{
		ctx:   ctx,
		eng:   eng,
		patch: patch,
		opts:  opts,
		clock: clock,
	}

	st.runPhases()

	return model.ExecutionReport{
		PatchID:      patch.ID,
		Events:       st.events,
		StartMillis:  startMillis,
		EndMillis:    clock.NowMillis(),
		AffectedRows: st.affectedRowsOnSuccess(),
	}
}

func positiveOrMax(d time.Duration) time.Duration {
	if d <= 0 {
		return 365 * 24 * time.Hour
	}
	return d
}

type run struct {
	ctx       context.Context
	eng       engine.Engine
	patch     model.Patch
	opts      Options
	clock     model.Clock
	events    []model.ExecutionEvent
	totalRows int64
	succeeded bool
}

func (r *run) affectedRowsOnSuccess() int32 {
	if !r.succeeded {
		return 0
	}
	return int32(r.totalRows)
}

func (r *run) emit(code model.EventCode, message string, detail map[string]string) {
	r.events = append(r.events, model.ExecutionEvent{
		TsMillis: r.clock.NowMillis(),
		Code:     code,
		Message:  message,
		Detail:   detailOrEmpty(detail),
	})
}

func detailOrEmpty(d map[string]string) map[string]string {
	if d == nil {
		return map[string]string{}
	}
	return d
}

func (r *run) runPhases() {
	if err := r.runCheckPhase(model.EventPrecheckStart, model.EventPrecheckOK, model.EventPrecheckFail, r.patch.Preconditions); err != nil {
		r.fail(failPrecondition, err)
		return
	}

	if err := r.runWriteTransaction(); err != nil {
		r.fail(failOther, err)
		return
	}

	if err := r.runCheckPhase(model.EventPostcheckStart, model.EventPostcheckOK, model.EventPostcheckFail, r.patch.Postconditions); err != nil {
		r.fail(failPostcondition, err)
		return
	}

	r.succeeded = true
	r.emit(model.EventPatchSuccess, "patch applied successfully", nil)
}

// checkFailure carries the detail of a failed precondition/postcondition
// so runPhases can route it to the right terminal event. engineError
// distinguishes a genuine condition mismatch (the query ran fine but
// didn't satisfy its operator) from a failure to even run the query
// (a SQL error, or the check itself timing out against total_timeout) —
// the two must not both be labeled PreconditionFailed/PostconditionFailed
// in the report's detail.exception, per spec.md section 7's EngineError
// and TimeoutExceeded kinds.
type checkFailure struct {
	err         error
	engineError bool
}

func (f checkFailure) Error() string { return f.err.Error() }
func (f checkFailure) Unwrap() error { return f.err }

func (r *run) runCheckPhase(startCode, okCode, failCode model.EventCode, conditions []model.Condition) error {
	run := func() error {
		r.emit(startCode, fmt.Sprintf("running %d check(s)", len(conditions)), nil)
		for i, c := range conditions {
			scalar, err := r.eng.QueryScalar(r.ctx, c.Sql, nil)
			if err != nil {
				return checkFailure{err: fmt.Errorf("check %d: %w", i, err), engineError: true}
			}
			actual := scalar.AsLong()
			op := c.Operator
			if op == "" {
				op = model.OpEquals
			}
			if !op.Evaluate(actual, c.Expected) {
				detail := map[string]string{
					"actual":   fmt.Sprintf("%d", actual),
					"expected": fmt.Sprintf("%d", c.Expected),
					"operator": string(op),
				}
				r.emit(failCode, checkLabel(c, i), detail)
				return checkFailure{err: fmt.Errorf("check %d failed: actual=%d expected=%d operator=%s", i, actual, c.Expected, op)}
			}
			r.emit(okCode, checkLabel(c, i), nil)
		}
		return nil
	}

	if !r.opts.ChecksInReadTx {
		return run()
	}
	return r.eng.InTransaction(r.ctx, false, func(ctx context.Context) error {
		prevCtx := r.ctx
		r.ctx = ctx
		defer func() { r.ctx = prevCtx }()
		return run()
	})
}

func checkLabel(c model.Condition, i int) string {
	if c.Description != "" {
		return c.Description
	}
	return fmt.Sprintf("check %d", i)
}

func (r *run) runWriteTransaction() error {
	return r.eng.InTransaction(r.ctx, true, func(ctx context.Context) error {
		prevCtx := r.ctx
		r.ctx = ctx
		defer func() { r.ctx = prevCtx }()

		r.emit(model.EventTxBegin, "write transaction started", nil)

		for i, a := range r.patch.Actions {
			label := a.Label()
			r.emit(model.EventActionStart, label, map[string]string{"index": fmt.Sprintf("%d", i)})

			rows, err := r.executeActionWithTimeout(a)
			if err != nil {
				r.emit(model.EventActionFail, label, map[string]string{
					"index":     fmt.Sprintf("%d", i),
					"exception": errorKind(err),
				})
				return fmt.Errorf("action %d (%s): %w", i, label, err)
			}
			r.totalRows += rows
			r.emit(model.EventActionOK, label, map[string]string{
				"index": fmt.Sprintf("%d", i),
				"rows":  fmt.Sprintf("%d", rows),
			})
		}

		r.emit(model.EventTxCommit, "write transaction committing", nil)
		return nil
	})
}

// executeActionWithTimeout runs a single action under a context bound
// to opts.PerActionTimeout. It relies on the Engine itself observing
// ctx cancellation (every engine.Engine implementation in this module
// does, via SetInterrupt or the HTTP client's own context plumbing)
// rather than racing a goroutine against ctx.Done(): running Execute
// from a second goroutine while the caller moves on to roll back the
// same shared connection would be a data race, not just a leaked
// goroutine.
func (r *run) executeActionWithTimeout(a model.Action) (int64, error) {
	if r.opts.PerActionTimeout <= 0 {
		return r.eng.Execute(r.ctx, a.Sql, a.Parameters)
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.opts.PerActionTimeout)
	defer cancel()

	rows, err := r.eng.Execute(ctx, a.Sql, a.Parameters)
	if err != nil && ctx.Err() != nil {
		return rows, fmt.Errorf("action exceeded per-action timeout of %s: %w", r.opts.PerActionTimeout, ctx.Err())
	}
	return rows, err
}

func errorKind(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "TimeoutExceeded"
	}
	return "ActionFailed"
}

// checkExceptionKind maps a check-phase failure to its detail.exception
// kind: a timeout (e.g. total_timeout expiring mid-check) is
// TimeoutExceeded, a checkFailure wrapping a QueryScalar error is
// EngineError, and only an actual operator mismatch is the given
// mismatchKind (PreconditionFailed/PostconditionFailed).
func checkExceptionKind(err error, mismatchKind string) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "TimeoutExceeded"
	}
	var cf checkFailure
	if errors.As(err, &cf) && cf.engineError {
		return "EngineError"
	}
	return mismatchKind
}

// fail emits the overall terminal PATCH_FAILURE event. For a condition
// mismatch or a failed action, the phase-specific event (PRECHECK_FAIL,
// POSTCHECK_FAIL, or ACTION_FAIL) has already been emitted by the phase
// that detected it; a check query that fails to run, or a failed
// BEGIN/COMMIT, gets only this event. This is the "emit
// terminal event with {exception}" step of spec.md section 4.5's
// FAIL(kind) pseudocode.
func (r *run) fail(kind failKind, err error) {
	var exceptionKind string
	switch kind {
	case failPrecondition:
		exceptionKind = checkExceptionKind(err, "PreconditionFailed")
	case failPostcondition:
		exceptionKind = checkExceptionKind(err, "PostconditionFailed")
	case failOther:
		if errors.Is(err, context.DeadlineExceeded) {
			exceptionKind = "TimeoutExceeded"
		} else {
			exceptionKind = "ActionFailed"
		}
	}
	r.emit(model.EventPatchFailure, err.Error(), map[string]string{"exception": exceptionKind})
}
