package model

import (
	"encoding/json"
	"fmt"
)

// ActionType is the wire discriminator for Action.
type ActionType string

const (
	ActionTypeSql              ActionType = "SqlAction"
	ActionTypeParameterizedSql ActionType = "ParameterizedSqlAction"
)

// Action is one SQL statement executed inside the write transaction,
// either raw (SqlAction) or bound to positional parameters
// (ParameterizedSqlAction), per spec.md section 3.
type Action struct {
	Type        ActionType
	Sql         string
	Parameters  []SqlArg
	Description string
}

func NewSqlAction(sql, description string) Action {
	return Action{Type: ActionTypeSql, Sql: sql, Description: description}
}

func NewParameterizedSqlAction(sql string, parameters []SqlArg, description string) Action {
	return Action{Type: ActionTypeParameterizedSql, Sql: sql, Parameters: parameters, Description: description}
}

// Label returns the action's description, or the first 50 characters of
// its SQL when no description is set, per spec.md section 4.5.
func (a Action) Label() string {
	if a.Description != "" {
		return a.Description
	}
	if len(a.Sql) <= 50 {
		return a.Sql
	}
	return a.Sql[:50]
}

type wireAction struct {
	Type        ActionType `json:"type"`
	Sql         string     `json:"sql"`
	Parameters  []SqlArg   `json:"parameters,omitempty"`
	Description string     `json:"description"`
}

func (a Action) MarshalJSON() ([]byte, error) {
	w := wireAction{Type: a.Type, Sql: a.Sql, Description: a.Description}
	if a.Type == ActionTypeParameterizedSql {
		w.Parameters = a.Parameters
		if w.Parameters == nil {
			w.Parameters = []SqlArg{}
		}
	}
	return strictMarshal(w)
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := strictUnmarshal(data, &raw); err != nil {
		return fmt.Errorf("patchkit: action: %w", err)
	}

	typeRaw, ok := raw["type"]
	if !ok {
		return fmt.Errorf("patchkit: action: missing \"type\" field")
	}
	var t ActionType
	if err := json.Unmarshal(typeRaw, &t); err != nil {
		return fmt.Errorf("patchkit: action: invalid \"type\" field: %w", err)
	}
	delete(raw, "type")

	sqlRaw, ok := raw["sql"]
	if !ok {
		return fmt.Errorf("patchkit: action: missing \"sql\" field")
	}
	var sql string
	if err := json.Unmarshal(sqlRaw, &sql); err != nil {
		return fmt.Errorf("patchkit: action: invalid \"sql\" field: %w", err)
	}
	delete(raw, "sql")

	var description string
	if descRaw, ok := raw["description"]; ok {
		if err := json.Unmarshal(descRaw, &description); err != nil {
			return fmt.Errorf("patchkit: action: invalid \"description\" field: %w", err)
		}
		delete(raw, "description")
	}

	switch t {
	case ActionTypeSql:
		if len(raw) > 0 {
			return fmt.Errorf("patchkit: action: unknown field %q for SqlAction", firstKey(raw))
		}
		*a = NewSqlAction(sql, description)
	case ActionTypeParameterizedSql:
		var parameters []SqlArg
		if paramsRaw, ok := raw["parameters"]; ok {
			if err := json.Unmarshal(paramsRaw, &parameters); err != nil {
				return fmt.Errorf("patchkit: action: invalid \"parameters\" field: %w", err)
			}
			delete(raw, "parameters")
		}
		if len(raw) > 0 {
			return fmt.Errorf("patchkit: action: unknown field %q for ParameterizedSqlAction", firstKey(raw))
		}
		*a = NewParameterizedSqlAction(sql, parameters, description)
	default:
		return fmt.Errorf("patchkit: action: unknown type %q", t)
	}
	return nil
}

// ComparisonOperator compares a precondition/postcondition's actual
// numeric result against its expected value.
type ComparisonOperator string

const (
	OpEquals         ComparisonOperator = "EQUALS"
	OpNotEquals      ComparisonOperator = "NOT_EQUALS"
	OpGreaterThan    ComparisonOperator = "GREATER_THAN"
	OpGreaterOrEqual ComparisonOperator = "GREATER_OR_EQUAL"
	OpLessThan       ComparisonOperator = "LESS_THAN"
	OpLessOrEqual    ComparisonOperator = "LESS_OR_EQUAL"
)

// Evaluate applies the operator to (actual, expected).
func (op ComparisonOperator) Evaluate(actual, expected int64) bool {
	switch op {
	case OpEquals:
		return actual == expected
	case OpNotEquals:
		return actual != expected
	case OpGreaterThan:
		return actual > expected
	case OpGreaterOrEqual:
		return actual >= expected
	case OpLessThan:
		return actual < expected
	case OpLessOrEqual:
		return actual <= expected
	default:
		return false
	}
}

func (op ComparisonOperator) valid() bool {
	switch op {
	case OpEquals, OpNotEquals, OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		return true
	default:
		return false
	}
}

// Condition is a single-column, single-row guard query compared against a
// literal expected value, used for both preconditions and postconditions.
type Condition struct {
	Sql         string
	Operator    ComparisonOperator
	Expected    int64
	Description string
}

type wireCondition struct {
	Sql         string             `json:"sql"`
	Operator    ComparisonOperator `json:"operator"`
	Expected    json.Number        `json:"expected"`
	Description string             `json:"description"`
}

func (c Condition) MarshalJSON() ([]byte, error) {
	op := c.Operator
	if op == "" {
		op = OpEquals
	}
	w := wireCondition{
		Sql:         c.Sql,
		Operator:    op,
		Expected:    json.Number(fmt.Sprintf("%d", c.Expected)),
		Description: c.Description,
	}
	return strictMarshal(w)
}

func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := strictUnmarshal(data, &raw); err != nil {
		return fmt.Errorf("patchkit: condition: %w", err)
	}

	sqlRaw, ok := raw["sql"]
	if !ok {
		return fmt.Errorf("patchkit: condition: missing \"sql\" field")
	}
	var sql string
	if err := json.Unmarshal(sqlRaw, &sql); err != nil {
		return fmt.Errorf("patchkit: condition: invalid \"sql\" field: %w", err)
	}
	delete(raw, "sql")

	op := OpEquals
	if opRaw, ok := raw["operator"]; ok {
		if err := json.Unmarshal(opRaw, &op); err != nil {
			return fmt.Errorf("patchkit: condition: invalid \"operator\" field: %w", err)
		}
		if !op.valid() {
			return fmt.Errorf("patchkit: condition: unknown operator %q", op)
		}
		delete(raw, "operator")
	}

	expectedRaw, ok := raw["expected"]
	if !ok {
		return fmt.Errorf("patchkit: condition: missing \"expected\" field")
	}
	expected, err := decodeJSONInt64(expectedRaw)
	if err != nil {
		return fmt.Errorf("patchkit: condition: invalid \"expected\" field: %w", err)
	}
	delete(raw, "expected")

	var description string
	if descRaw, ok := raw["description"]; ok {
		if err := json.Unmarshal(descRaw, &description); err != nil {
			return fmt.Errorf("patchkit: condition: invalid \"description\" field: %w", err)
		}
		delete(raw, "description")
	}

	if len(raw) > 0 {
		return fmt.Errorf("patchkit: condition: unknown field %q", firstKey(raw))
	}

	*c = Condition{Sql: sql, Operator: op, Expected: expected, Description: description}
	return nil
}
