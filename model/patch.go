package model

import (
	"fmt"
	"sort"
	"strings"
)

// Patch is a versioned, JSON-encoded bundle of preconditions, SQL actions,
// and postconditions with a stable id, per spec.md section 3. It is
// parsed once per PatchKit.Apply invocation and discarded after
// reporting — see the "Lifecycle" paragraph of section 3.
type Patch struct {
	Version        int32
	ID             string
	Target         string
	Description    string
	Preconditions  []Condition
	Actions        []Action
	Postconditions []Condition
	Metadata       map[string]string
}

// ParsePatch decodes raw as a UTF-8 JSON Patch using the strict wire codec
// described in spec.md section 4.1, then applies the constructor guards
// (version == 1, id and target non-blank).
func ParsePatch(raw []byte) (Patch, error) {
	var w wirePatch
	if err := strictUnmarshal(raw, &w); err != nil {
		return Patch{}, fmt.Errorf("patchkit: parse patch: %w", err)
	}
	p := Patch{
		Version:        w.Version,
		ID:             w.ID,
		Target:         w.Target,
		Description:    w.Description,
		Preconditions:  w.Preconditions,
		Actions:        w.Actions,
		Postconditions: w.Postconditions,
		Metadata:       w.Metadata,
	}
	if p.Preconditions == nil {
		p.Preconditions = []Condition{}
	}
	if p.Actions == nil {
		p.Actions = []Action{}
	}
	if p.Postconditions == nil {
		p.Postconditions = []Condition{}
	}
	if p.Metadata == nil {
		p.Metadata = map[string]string{}
	}
	if err := p.validateConstructorGuards(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

func (p Patch) validateConstructorGuards() error {
	if p.Version != 1 {
		return fmt.Errorf("patchkit: parse patch: unsupported version %d, want 1", p.Version)
	}
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("patchkit: parse patch: id must not be blank")
	}
	if strings.TrimSpace(p.Target) == "" {
		return fmt.Errorf("patchkit: parse patch: target must not be blank")
	}
	return nil
}

// Encode renders the patch back to its wire JSON form, emitting defaults
// rather than omitting fields, per spec.md section 4.1.
func (p Patch) Encode() ([]byte, error) {
	w := wirePatch{
		Version:        p.Version,
		ID:             p.ID,
		Target:         p.Target,
		Description:    p.Description,
		Preconditions:  p.Preconditions,
		Actions:        p.Actions,
		Postconditions: p.Postconditions,
		Metadata:       p.Metadata,
	}
	if w.Preconditions == nil {
		w.Preconditions = []Condition{}
	}
	if w.Actions == nil {
		w.Actions = []Action{}
	}
	if w.Postconditions == nil {
		w.Postconditions = []Condition{}
	}
	if w.Metadata == nil {
		w.Metadata = map[string]string{}
	}
	return strictMarshal(w)
}

// MetadataString renders the patch's metadata map as a stable string, for
// use as the ledger's recorded metadata column (spec.md section 4.6, step
// 7: "record_application(patch.id, engine, patch.metadata.toString())").
func (p Patch) MetadataString() string {
	if len(p.Metadata) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(p.Metadata))
	for k := range p.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%s", k, p.Metadata[k])
	}
	sb.WriteByte('}')
	return sb.String()
}

type wirePatch struct {
	Version        int32             `json:"version"`
	ID             string            `json:"id"`
	Target         string            `json:"target"`
	Description    string            `json:"description"`
	Preconditions  []Condition       `json:"preconditions"`
	Actions        []Action          `json:"actions"`
	Postconditions []Condition       `json:"postconditions"`
	Metadata       map[string]string `json:"metadata"`
}
