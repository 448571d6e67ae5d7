// Package clock implements the datetime collaborator (spec.md §6): agents
// must obtain timestamps from here rather than hardcoding them, so report
// timestamps stay stable and testable. No teacher analogue exists for this
// collaborator; it is deliberately minimal (see SPEC_FULL.md component
// mapping table).
package clock

import "time"

// Clock is the datetime collaborator contract consumed by experts when
// they need a timestamp for a report or artifact.
type Clock interface {
	Now() time.Time
	FormatReportTimestamp(t time.Time) string
}

// System is the production Clock, backed by the wall clock.
type System struct {
	Layout string
}

// NewSystem returns a System clock using a stable RFC3339 layout unless
// layout is overridden.
func NewSystem(layout string) System {
	if layout == "" {
		layout = time.RFC3339
	}
	return System{Layout: layout}
}

func (s System) Now() time.Time { return time.Now().UTC() }

func (s System) FormatReportTimestamp(t time.Time) string {
	return t.UTC().Format(s.Layout)
}

// Frozen is a test Clock that always returns the same instant, used to
// make report-timestamp assertions deterministic in tests.
type Frozen struct {
	At     time.Time
	Layout string
}

func (f Frozen) Now() time.Time { return f.At }

func (f Frozen) FormatReportTimestamp(t time.Time) string {
	layout := f.Layout
	if layout == "" {
		layout = time.RFC3339
	}
	return t.Format(layout)
}
