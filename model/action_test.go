package model

import (
	"strings"
	"testing"
)

func TestActionMarshalEmitsBlankDescription(t *testing.T) {
	data, err := NewSqlAction("select 1", "").MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"description":""`) {
		t.Errorf("expected a blank description to still be emitted on the wire, got %s", data)
	}
}

func TestConditionMarshalEmitsBlankDescription(t *testing.T) {
	c := Condition{Sql: "select 1", Operator: OpEquals, Expected: 1}
	data, err := c.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"description":""`) {
		t.Errorf("expected a blank description to still be emitted on the wire, got %s", data)
	}
}

func TestActionLabel(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   string
	}{
		{"uses description when set", NewSqlAction("select 1", "bump counter"), "bump counter"},
		{"short sql with no description", NewSqlAction("select 1", ""), "select 1"},
		{
			"long sql is truncated to 50 chars",
			NewSqlAction("update accounts set balance = balance + 1000 where id = 1 and active = 1", ""),
			"update accounts set balance = balance + 1000 where",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.action.Label(); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionJSONPerType(t *testing.T) {
	sqlAction := NewSqlAction("select 1", "")
	data, err := sqlAction.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Action
	if err := got.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != ActionTypeSql || got.Sql != "select 1" {
		t.Errorf("got %+v", got)
	}

	param := NewParameterizedSqlAction("update t set v = ?", []SqlArg{NewInt64Arg(1)}, "")
	data, err = param.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var gotParam Action
	if err := gotParam.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(gotParam.Parameters) != 1 || gotParam.Parameters[0].I64 != 1 {
		t.Errorf("got %+v", gotParam)
	}
}

func TestActionUnmarshalRejectsParametersOnSqlAction(t *testing.T) {
	raw := []byte(`{"type":"SqlAction","sql":"select 1","parameters":[]}`)
	var a Action
	if err := a.UnmarshalJSON(raw); err == nil {
		t.Fatal("expected an error: SqlAction must not carry parameters")
	}
}

func TestConditionDefaultsToEquals(t *testing.T) {
	var c Condition
	if err := c.UnmarshalJSON([]byte(`{"sql":"select count(*) from t","expected":3}`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.Operator != OpEquals {
		t.Errorf("operator = %q, want %q", c.Operator, OpEquals)
	}
	if c.Expected != 3 {
		t.Errorf("expected = %d, want 3", c.Expected)
	}
}

func TestConditionUnmarshalRejectsUnknownOperator(t *testing.T) {
	raw := []byte(`{"sql":"select 1","operator":"BETWEEN","expected":1}`)
	var c Condition
	if err := c.UnmarshalJSON(raw); err == nil {
		t.Fatal("expected an error for an unknown operator")
	}
}

func TestComparisonOperatorEvaluate(t *testing.T) {
	tests := []struct {
		op       ComparisonOperator
		actual   int64
		expected int64
		want     bool
	}{
		{OpEquals, 5, 5, true},
		{OpEquals, 5, 6, false},
		{OpNotEquals, 5, 6, true},
		{OpGreaterThan, 6, 5, true},
		{OpGreaterOrEqual, 5, 5, true},
		{OpLessThan, 4, 5, true},
		{OpLessOrEqual, 5, 5, true},
	}
	for _, tt := range tests {
		if got := tt.op.Evaluate(tt.actual, tt.expected); got != tt.want {
			t.Errorf("%s.Evaluate(%d, %d) = %v, want %v", tt.op, tt.actual, tt.expected, got, tt.want)
		}
	}
}
