package model

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SqlScalar is an engine-side value: the result of a scalar query, or the
// value read back from a row. It is never serialized directly; SqlArg is
// the wire-visible counterpart used for action parameters.
type SqlScalar struct {
	kind sqlKind
	i64  int64
	f64  float64
	text string
	blob []byte
}

type sqlKind int

const (
	sqlKindNull sqlKind = iota
	sqlKindInt64
	sqlKindReal
	sqlKindText
	sqlKindBlob
)

func NullScalar() SqlScalar          { return SqlScalar{kind: sqlKindNull} }
func Int64Scalar(v int64) SqlScalar  { return SqlScalar{kind: sqlKindInt64, i64: v} }
func RealScalar(v float64) SqlScalar { return SqlScalar{kind: sqlKindReal, f64: v} }
func TextScalar(v string) SqlScalar  { return SqlScalar{kind: sqlKindText, text: v} }
func BlobScalar(v []byte) SqlScalar  { return SqlScalar{kind: sqlKindBlob, blob: v} }

func (s SqlScalar) IsNull() bool { return s.kind == sqlKindNull }

// AsLong coerces the scalar to an integer for condition evaluation, per
// spec.md section 3: Int64 passes through, Real truncates, Text parses as
// a decimal integer (or 0 on failure to parse), Null and Blob are 0.
func (s SqlScalar) AsLong() int64 {
	switch s.kind {
	case sqlKindInt64:
		return s.i64
	case sqlKindReal:
		return int64(s.f64)
	case sqlKindText:
		v, err := strconv.ParseInt(strings.TrimSpace(s.text), 10, 64)
		if err != nil {
			return 0
		}
		return v
	default:
		return 0
	}
}

func (s SqlScalar) String() string {
	switch s.kind {
	case sqlKindNull:
		return "null"
	case sqlKindInt64:
		return strconv.FormatInt(s.i64, 10)
	case sqlKindReal:
		return strconv.FormatFloat(s.f64, 'g', -1, 64)
	case sqlKindText:
		return s.text
	case sqlKindBlob:
		return fmt.Sprintf("blob(%d bytes)", len(s.blob))
	default:
		return ""
	}
}

// SqlArgType is the wire discriminator used for the "type" field of a
// SqlArg.
type SqlArgType string

const (
	SqlArgTypeNull  SqlArgType = "Null"
	SqlArgTypeText  SqlArgType = "Text"
	SqlArgTypeInt64 SqlArgType = "Int64"
	SqlArgTypeReal  SqlArgType = "Real"
	SqlArgTypeBlob  SqlArgType = "Blob"
)

// SqlArg is a tagged, wire-serialized bind parameter. The JSON shape is
// {"type": "<Tag>", "v": <value>}, with Blob values Base64 (RFC 4648)
// encoded on the wire.
type SqlArg struct {
	Type SqlArgType
	Text string
	I64  int64
	Real float64
	Blob []byte
}

func NewNullArg() SqlArg          { return SqlArg{Type: SqlArgTypeNull} }
func NewTextArg(v string) SqlArg  { return SqlArg{Type: SqlArgTypeText, Text: v} }
func NewInt64Arg(v int64) SqlArg  { return SqlArg{Type: SqlArgTypeInt64, I64: v} }
func NewRealArg(v float64) SqlArg { return SqlArg{Type: SqlArgTypeReal, Real: v} }
func NewBlobArg(v []byte) SqlArg  { return SqlArg{Type: SqlArgTypeBlob, Blob: v} }

// AsScalar converts the wire argument into its engine-side counterpart, for
// engines that need to bind or compare it as a SqlScalar.
func (a SqlArg) AsScalar() SqlScalar {
	switch a.Type {
	case SqlArgTypeNull:
		return NullScalar()
	case SqlArgTypeText:
		return TextScalar(a.Text)
	case SqlArgTypeInt64:
		return Int64Scalar(a.I64)
	case SqlArgTypeReal:
		return RealScalar(a.Real)
	case SqlArgTypeBlob:
		return BlobScalar(a.Blob)
	default:
		return NullScalar()
	}
}

type wireSqlArg struct {
	Type SqlArgType `json:"type"`
	V    any        `json:"v"`
}

func (a SqlArg) MarshalJSON() ([]byte, error) {
	w := wireSqlArg{Type: a.Type}
	switch a.Type {
	case SqlArgTypeNull:
		w.V = nil
	case SqlArgTypeText:
		w.V = a.Text
	case SqlArgTypeInt64:
		w.V = a.I64
	case SqlArgTypeReal:
		w.V = a.Real
	case SqlArgTypeBlob:
		w.V = base64.StdEncoding.EncodeToString(a.Blob)
	default:
		return nil, fmt.Errorf("patchkit: sqlarg: unknown type %q", a.Type)
	}
	return strictMarshal(w)
}

func (a *SqlArg) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := strictUnmarshal(data, &raw); err != nil {
		return fmt.Errorf("patchkit: sqlarg: %w", err)
	}
	typeRaw, ok := raw["type"]
	if !ok {
		return fmt.Errorf("patchkit: sqlarg: missing \"type\" field")
	}
	var t SqlArgType
	if err := json.Unmarshal(typeRaw, &t); err != nil {
		return fmt.Errorf("patchkit: sqlarg: invalid \"type\" field: %w", err)
	}
	delete(raw, "type")
	vRaw, hasV := raw["v"]
	delete(raw, "v")
	if len(raw) > 0 {
		return fmt.Errorf("patchkit: sqlarg: unknown field %q", firstKey(raw))
	}

	switch t {
	case SqlArgTypeNull:
		*a = SqlArg{Type: SqlArgTypeNull}
	case SqlArgTypeText:
		var v string
		if hasV {
			if err := json.Unmarshal(vRaw, &v); err != nil {
				return fmt.Errorf("patchkit: sqlarg: text: %w", err)
			}
		}
		*a = SqlArg{Type: SqlArgTypeText, Text: v}
	case SqlArgTypeInt64:
		v, err := decodeJSONInt64(vRaw)
		if err != nil {
			return fmt.Errorf("patchkit: sqlarg: int64: %w", err)
		}
		*a = SqlArg{Type: SqlArgTypeInt64, I64: v}
	case SqlArgTypeReal:
		var v float64
		if hasV {
			if err := json.Unmarshal(vRaw, &v); err != nil {
				return fmt.Errorf("patchkit: sqlarg: real: %w", err)
			}
		}
		*a = SqlArg{Type: SqlArgTypeReal, Real: v}
	case SqlArgTypeBlob:
		var b64 string
		if hasV {
			if err := json.Unmarshal(vRaw, &b64); err != nil {
				return fmt.Errorf("patchkit: sqlarg: blob: %w", err)
			}
		}
		blob, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return fmt.Errorf("patchkit: sqlarg: blob: invalid base64: %w", err)
		}
		*a = SqlArg{Type: SqlArgTypeBlob, Blob: blob}
	default:
		return fmt.Errorf("patchkit: sqlarg: unknown type %q", t)
	}
	return nil
}
