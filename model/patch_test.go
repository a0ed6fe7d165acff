package model

import (
	"strings"
	"testing"
)

const minimalPatchJSON = `{
	"version": 1,
	"id": "add-loyalty-column",
	"target": "primary",
	"preconditions": [],
	"actions": [{"type": "SqlAction", "sql": "select 1"}],
	"postconditions": [],
	"metadata": {}
}`

func TestParsePatchMinimal(t *testing.T) {
	p, err := ParsePatch([]byte(minimalPatchJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "add-loyalty-column" {
		t.Errorf("id = %q", p.ID)
	}
	if p.Target != "primary" {
		t.Errorf("target = %q", p.Target)
	}
	if len(p.Actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(p.Actions))
	}
}

func TestParsePatchRejectsUnknownField(t *testing.T) {
	raw := strings.Replace(minimalPatchJSON, `"metadata": {}`, `"metadata": {}, "bogus": 1`, 1)
	if _, err := ParsePatch([]byte(raw)); err == nil {
		t.Fatal("expected an error for an unknown top-level field")
	}
}

func TestParsePatchRejectsWrongVersion(t *testing.T) {
	raw := strings.Replace(minimalPatchJSON, `"version": 1`, `"version": 2`, 1)
	if _, err := ParsePatch([]byte(raw)); err == nil {
		t.Fatal("expected an error for version != 1")
	}
}

func TestParsePatchRejectsBlankID(t *testing.T) {
	raw := strings.Replace(minimalPatchJSON, `"id": "add-loyalty-column"`, `"id": "  "`, 1)
	if _, err := ParsePatch([]byte(raw)); err == nil {
		t.Fatal("expected an error for a blank id")
	}
}

func TestParsePatchRejectsBlankTarget(t *testing.T) {
	raw := strings.Replace(minimalPatchJSON, `"target": "primary"`, `"target": ""`, 1)
	if _, err := ParsePatch([]byte(raw)); err == nil {
		t.Fatal("expected an error for a blank target")
	}
}

func TestPatchMetadataString(t *testing.T) {
	p := Patch{Metadata: map[string]string{"b": "2", "a": "1"}}
	if got, want := p.MetadataString(), "{a=1, b=2}"; got != want {
		t.Errorf("MetadataString() = %q, want %q", got, want)
	}
	if got, want := (Patch{}).MetadataString(), "{}"; got != want {
		t.Errorf("MetadataString() on empty metadata = %q, want %q", got, want)
	}
}

func TestPatchEncodeEmitsBlankDescription(t *testing.T) {
	p, err := ParsePatch([]byte(minimalPatchJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	encoded, err := p.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(encoded), `"description":""`) {
		t.Errorf("expected a blank patch description to still be emitted on the wire, got %s", encoded)
	}
}

func TestPatchEncodeParseRoundTrip(t *testing.T) {
	p, err := ParsePatch([]byte(minimalPatchJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	encoded, err := p.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := ParsePatch(encoded)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if got.ID != p.ID || got.Target != p.Target || len(got.Actions) != len(p.Actions) {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, p)
	}
}
