package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// strictUnmarshal decodes data into v, rejecting unknown object keys, per
// spec.md section 4.1: "Strict input parsing: unknown object keys are
// rejected."
func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	return dec.Decode(v)
}

// strictMarshal is a thin wrapper kept for symmetry with strictUnmarshal;
// encoding/json has no "strict" output mode, so this is just json.Marshal.
func strictMarshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func firstKey(m map[string]json.RawMessage) string {
	for k := range m {
		return k
	}
	return ""
}

// decodeJSONInt64 parses a raw JSON value as an integer without losing
// precision above 2^53, per spec.md section 4.1 and the "i64 in JSON"
// design note in section 9. encoding/json's default float64 decoding
// truncates large integers; json.Number preserves the original digits so
// they can be parsed with strconv instead.
func decodeJSONInt64(data json.RawMessage) (int64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return 0, fmt.Errorf("expected integer, got %s", string(data))
	}
	return num.Int64()
}
