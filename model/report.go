package model

// EventCode is the closed set of audit-timeline event codes, per spec.md
// section 4.7.
type EventCode string

const (
	EventValidationFail   EventCode = "VALIDATION_FAIL"
	EventVerificationFail EventCode = "VERIFICATION_FAIL"
	EventIdempotentSkip   EventCode = "IDEMPOTENT_SKIP"
	EventTxBegin          EventCode = "TX_BEGIN"
	EventTxCommit         EventCode = "TX_COMMIT"
	EventTxRollback       EventCode = "TX_ROLLBACK"
	EventPrecheckStart    EventCode = "PRECHECK_START"
	EventPrecheckOK       EventCode = "PRECHECK_OK"
	EventPrecheckFail     EventCode = "PRECHECK_FAIL"
	EventActionStart      EventCode = "ACTION_START"
	EventActionOK         EventCode = "ACTION_OK"
	EventActionFail       EventCode = "ACTION_FAIL"
	EventPostcheckStart   EventCode = "POSTCHECK_START"
	EventPostcheckOK      EventCode = "POSTCHECK_OK"
	EventPostcheckFail    EventCode = "POSTCHECK_FAIL"
	EventPatchSuccess     EventCode = "PATCH_SUCCESS"
	EventPatchFailure     EventCode = "PATCH_FAILURE"
)

// ExecutionEvent is one timestamped entry in a patch's audit timeline.
type ExecutionEvent struct {
	TsMillis int64
	Code     EventCode
	Message  string
	Detail   map[string]string
}

func newEvent(clock Clock, code EventCode, message string, detail map[string]string) ExecutionEvent {
	if detail == nil {
		detail = map[string]string{}
	}
	return ExecutionEvent{TsMillis: clock.NowMillis(), Code: code, Message: message, Detail: detail}
}

// ExecutionReport is the result of PatchKit.Apply: a complete audit
// timeline plus derived success/duration, per spec.md section 3.
type ExecutionReport struct {
	PatchID      string
	Events       []ExecutionEvent
	StartMillis  int64
	EndMillis    int64
	AffectedRows int32
}

// DurationMillis is endTime - startTime.
func (r ExecutionReport) DurationMillis() int64 { return r.EndMillis - r.StartMillis }

// Success is true iff the timeline contains at least one PATCH_SUCCESS
// event, per spec.md section 3.
func (r ExecutionReport) Success() bool {
	for _, e := range r.Events {
		if e.Code == EventPatchSuccess {
			return true
		}
	}
	return false
}

// HasEvent reports whether the timeline contains an event of the given
// code.
func (r ExecutionReport) HasEvent(code EventCode) bool {
	for _, e := range r.Events {
		if e.Code == code {
			return true
		}
	}
	return false
}
