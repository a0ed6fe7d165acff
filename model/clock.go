package model

import "time"

// Clock is a single, injectable time source so that report timestamps and
// durations are deterministic in tests, per spec.md section 9 ("Time
// source"). It mirrors the teacher repo's db.TestTime package-level hook,
// but as an interface each PatchKit instance can be given its own,
// rather than a shared mutable global.
type Clock interface {
	NowMillis() int64
}

// systemClock is the default Clock, backed by time.Now.
type systemClock struct{}

func (systemClock) NowMillis() int64 { return time.Now().UnixMilli() }

// SystemClock is the default, wall-clock-backed Clock.
var SystemClock Clock = systemClock{}

// FixedClock is a Clock that always returns the same instant, useful for
// assembling fully deterministic tests.
type FixedClock int64

func (f FixedClock) NowMillis() int64 { return int64(f) }

// SequenceClock returns a strictly increasing sequence of millisecond
// timestamps, one per call, starting at Start and advancing by StepMillis
// each time. Useful for tests asserting event ordering without coupling
// to wall-clock time.
type SequenceClock struct {
	Start      int64
	StepMillis int64
	calls      int64
}

func (c *SequenceClock) NowMillis() int64 {
	v := c.Start + c.calls*c.StepMillis
	c.calls++
	return v
}
