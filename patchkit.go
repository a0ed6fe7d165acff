package patchkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/a-h/patchkit/engine"
	"github.com/a-h/patchkit/executor"
	"github.com/a-h/patchkit/model"
	"github.com/a-h/patchkit/validate"
)

// PatchKit is the orchestrator described in spec.md section 4.6: it
// parses, validates, resolves a target engine, consults the idempotency
// ledger, and delegates to the executor, converting every failure mode
// into an ExecutionReport rather than a raw error.
type PatchKit struct {
	registry *engine.Registry
	config   Config
	chain    *validate.Chain
}

// New builds a PatchKit over a registry of target providers (see
// engine.NewRegistry) and a Config. The validator chain is built once,
// from cfg.MaxBytes/MaxActions/VerifyHash/AllowDDL, per spec.md section
// 4.3.
func New(registry *engine.Registry, cfg Config) *PatchKit {
	return &PatchKit{
		registry: registry,
		config:   cfg,
		chain:    validate.DefaultChain(cfg.MaxBytes, cfg.MaxActions, cfg.VerifyHash, cfg.AllowDDL),
	}
}

// Apply runs the full lifecycle in spec.md section 4.6 against raw
// patch bytes: parse, validate, resolve the target engine, check (and
// later record to) the idempotency ledger, and execute. It never
// panics or returns an error; every outcome, including a malformed
// patch or an unknown target, is reflected in the returned report.
func (pk *PatchKit) Apply(ctx context.Context, raw []byte) model.ExecutionReport {
	clock := pk.config.clock()
	startMillis := clock.NowMillis()

	patch, err := model.ParsePatch(raw)
	if err != nil {
		return singleEventReport("unknown", clock, startMillis, model.EventPatchFailure,
			fmt.Sprintf("failed to parse patch: %s", err), map[string]string{"exception": "ParseError"})
	}

	if result := pk.chain.Validate(patch, raw); !result.OK() {
		return singleEventReport(patch.ID, clock, startMillis, model.EventValidationFail,
			result.Message, map[string]string{"code": result.Code})
	}

	eng, err := pk.registry.Resolve(ctx, patch.Target)
	if err != nil {
		var unknown engine.ErrUnknownTarget
		detail := map[string]string{"exception": "EngineResolutionFailed"}
		if errors.As(err, &unknown) {
			detail["target"] = unknown.Target
		}
		return singleEventReport(patch.ID, clock, startMillis, model.EventPatchFailure, err.Error(), detail)
	}

	if idem := pk.config.Idempotency; idem != nil {
		if err := idem.Initialize(ctx, eng); err != nil {
			return singleEventReport(patch.ID, clock, startMillis, model.EventPatchFailure,
				fmt.Sprintf("failed to initialize idempotency ledger: %s", err), map[string]string{"exception": "LedgerError"})
		}
		applied, err := idem.HasBeenApplied(ctx, eng, patch.ID)
		if err != nil {
			return singleEventReport(patch.ID, clock, startMillis, model.EventPatchFailure,
				fmt.Sprintf("failed to check idempotency ledger: %s", err), map[string]string{"exception": "LedgerError"})
		}
		if applied {
			return singleEventReport(patch.ID, clock, startMillis, model.EventIdempotentSkip,
				fmt.Sprintf("patch %s has already been applied", patch.ID), nil)
		}
	}

	report := executor.Run(ctx, eng, patch, executor.Options{
		PerActionTimeout: pk.config.PerActionTimeout,
		TotalTimeout:     pk.config.TotalTimeout,
		ChecksInReadTx:   pk.config.ChecksInReadTx,
		Clock:            clock,
	})

	if report.Success() {
		if idem := pk.config.Idempotency; idem != nil {
			if err := idem.RecordApplication(ctx, eng, patch.ID, patch.MetadataString()); err != nil {
				report.Events = append(report.Events, model.ExecutionEvent{
					TsMillis: clock.NowMillis(),
					Code:     model.EventPatchFailure,
					Message:  fmt.Sprintf("patch applied but failed to record to idempotency ledger: %s", err),
					Detail:   map[string]string{"exception": "LedgerError"},
				})
				report.EndMillis = clock.NowMillis()
			}
		}
	}

	return report
}

func singleEventReport(patchID string, clock model.Clock, startMillis int64, code model.EventCode, message string, detail map[string]string) model.ExecutionReport {
	if detail == nil {
		detail = map[string]string{}
	}
	now := clock.NowMillis()
	return model.ExecutionReport{
		PatchID: patchID,
		Events: []model.ExecutionEvent{
			{TsMillis: now, Code: code, Message: message, Detail: detail},
		},
		StartMillis: startMillis,
		EndMillis:   now,
	}
}
