package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExecutionReportSuccess(t *testing.T) {
	r := ExecutionReport{Events: []ExecutionEvent{
		{Code: EventTxBegin}, {Code: EventActionOK}, {Code: EventTxCommit}, {Code: EventPatchSuccess},
	}}
	if !r.Success() {
		t.Error("expected success")
	}
	if !r.HasEvent(EventActionOK) {
		t.Error("expected HasEvent(ACTION_OK) to be true")
	}
	if r.HasEvent(EventPostcheckFail) {
		t.Error("expected HasEvent(POSTCHECK_FAIL) to be false")
	}
}

func TestExecutionReportFailureHasNoSuccessEvent(t *testing.T) {
	r := ExecutionReport{Events: []ExecutionEvent{
		{Code: EventPrecheckFail}, {Code: EventPatchFailure},
	}}
	if r.Success() {
		t.Error("expected failure")
	}
}

func TestExecutionReportEventsDeepEqual(t *testing.T) {
	want := ExecutionReport{
		PatchID: "credit-account-1",
		Events: []ExecutionEvent{
			{TsMillis: 100, Code: EventTxBegin, Message: "write transaction started", Detail: map[string]string{}},
			{TsMillis: 110, Code: EventActionOK, Message: "credit 50", Detail: map[string]string{"rows": "1"}},
			{TsMillis: 120, Code: EventTxCommit, Message: "write transaction committing", Detail: map[string]string{}},
			{TsMillis: 130, Code: EventPatchSuccess, Message: "patch applied successfully", Detail: map[string]string{}},
		},
		StartMillis:  90,
		EndMillis:    130,
		AffectedRows: 1,
	}
	got := want
	got.Events = append([]ExecutionEvent{}, want.Events...)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("identical reports should diff empty (-want +got):\n%s", diff)
	}

	got.Events[1].Detail = map[string]string{"rows": "2"}
	if diff := cmp.Diff(want, got); diff == "" {
		t.Error("expected a nested event detail change to produce a non-empty diff")
	}
}

func TestExecutionReportDuration(t *testing.T) {
	r := ExecutionReport{StartMillis: 1000, EndMillis: 1250}
	if got := r.DurationMillis(); got != 250 {
		t.Errorf("DurationMillis() = %d, want 250", got)
	}
}

func TestClocks(t *testing.T) {
	if (FixedClock(42)).NowMillis() != 42 {
		t.Error("FixedClock should always return its fixed value")
	}

	seq := &SequenceClock{Start: 100, StepMillis: 10}
	got := []int64{seq.NowMillis(), seq.NowMillis(), seq.NowMillis()}
	want := []int64{100, 110, 120}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: got %d, want %d", i, got[i], want[i])
		}
	}
}
