// Package patchkit applies declarative, JSON-encoded patches against a
// SQLite database with transactional safety, integrity checks,
// preconditions/postconditions, and exactly-once application.
//
// The value, action, and report types live in the model subpackage to
// keep this package free to import engine/validate/ledger/executor
// without an import cycle; they are aliased here so callers only need to
// import "github.com/a-h/patchkit".
package patchkit

import "github.com/a-h/patchkit/model"

type (
	SqlScalar          = model.SqlScalar
	SqlArg             = model.SqlArg
	SqlArgType         = model.SqlArgType
	Action             = model.Action
	ActionType         = model.ActionType
	Condition          = model.Condition
	ComparisonOperator = model.ComparisonOperator
	Patch              = model.Patch
	EventCode          = model.EventCode
	ExecutionEvent     = model.ExecutionEvent
	ExecutionReport    = model.ExecutionReport
	Clock              = model.Clock
	FixedClock         = model.FixedClock
	SequenceClock      = model.SequenceClock
)

const (
	ActionTypeSql              = model.ActionTypeSql
	ActionTypeParameterizedSql = model.ActionTypeParameterizedSql

	SqlArgTypeNull  = model.SqlArgTypeNull
	SqlArgTypeText  = model.SqlArgTypeText
	SqlArgTypeInt64 = model.SqlArgTypeInt64
	SqlArgTypeReal  = model.SqlArgTypeReal
	SqlArgTypeBlob  = model.SqlArgTypeBlob

	OpEquals         = model.OpEquals
	OpNotEquals      = model.OpNotEquals
	OpGreaterThan    = model.OpGreaterThan
	OpGreaterOrEqual = model.OpGreaterOrEqual
	OpLessThan       = model.OpLessThan
	OpLessOrEqual    = model.OpLessOrEqual

	EventValidationFail   = model.EventValidationFail
	EventVerificationFail = model.EventVerificationFail
	EventIdempotentSkip   = model.EventIdempotentSkip
	EventTxBegin          = model.EventTxBegin
	EventTxCommit         = model.EventTxCommit
	EventTxRollback       = model.EventTxRollback
	EventPrecheckStart    = model.EventPrecheckStart
	EventPrecheckOK       = model.EventPrecheckOK
	EventPrecheckFail     = model.EventPrecheckFail
	EventActionStart      = model.EventActionStart
	EventActionOK         = model.EventActionOK
	EventActionFail       = model.EventActionFail
	EventPostcheckStart   = model.EventPostcheckStart
	EventPostcheckOK      = model.EventPostcheckOK
	EventPostcheckFail    = model.EventPostcheckFail
	EventPatchSuccess     = model.EventPatchSuccess
	EventPatchFailure     = model.EventPatchFailure
)

var (
	NewNullArg  = model.NewNullArg
	NewTextArg  = model.NewTextArg
	NewInt64Arg = model.NewInt64Arg
	NewRealArg  = model.NewRealArg
	NewBlobArg  = model.NewBlobArg

	NewSqlAction              = model.NewSqlAction
	NewParameterizedSqlAction = model.NewParameterizedSqlAction

	ParsePatch = model.ParsePatch

	SystemClock = model.SystemClock
)
