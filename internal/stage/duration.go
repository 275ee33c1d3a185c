// Package stage derives elapsed-time metrics from a device's transition history.
package stage

import (
	"fmt"
	"math"
	"time"

	"repair-tracker-backend/internal/repair"
)

// Placeholder is rendered for a duration that cannot be computed.
const Placeholder = "-"

// TransitionTime returns the timestamp of the first transition into status.
func TransitionTime(transitions []repair.Transition, status repair.Status) (time.Time, bool) {
	for _, t := range transitions {
		if t.ToStatus == status {
			return t.Timestamp, true
		}
	}
	return time.Time{}, false
}

// Duration returns to-from. It is undefined when either end is missing or
// when to precedes from.
func Duration(from, to *time.Time) (time.Duration, bool) {
	if from == nil || to == nil {
		return 0, false
	}
	if to.Before(*from) {
		return 0, false
	}
	return to.Sub(*from), true
}

// Between is Duration over the (time, ok) pairs returned by TransitionTime.
func Between(from time.Time, okFrom bool, to time.Time, okTo bool) (time.Duration, bool) {
	if !okFrom || !okTo {
		return 0, false
	}
	return Duration(&from, &to)
}

// FormatDuration renders d as "1d 2h 3m", "2h 0m" or "30m". Seconds are
// truncated. An undefined or negative duration renders as Placeholder.
func FormatDuration(d time.Duration, ok bool) string {
	if !ok || d < 0 {
		return Placeholder
	}
	total := int64(d / time.Second)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// FormatMillis is FormatDuration for a millisecond count that may be absent or NaN.
func FormatMillis(ms *float64) string {
	if ms == nil || math.IsNaN(*ms) || math.IsInf(*ms, 0) || *ms < 0 {
		return Placeholder
	}
	return FormatDuration(time.Duration(*ms*float64(time.Millisecond)), true)
}

// Metric is a named interval between two stages.
type Metric struct {
	From     repair.Status
	To       repair.Status
	Duration time.Duration
	OK       bool
}

// Text returns the formatted duration.
func (m Metric) Text() string {
	return FormatDuration(m.Duration, m.OK)
}

// Millis returns the duration in milliseconds, or nil when undefined.
func (m Metric) Millis() *int64 {
	if !m.OK {
		return nil
	}
	ms := m.Duration.Milliseconds()
	return &ms
}

// Measure computes the interval between the first transitions into from and to.
func Measure(transitions []repair.Transition, from, to repair.Status) Metric {
	fromAt, okFrom := TransitionTime(transitions, from)
	toAt, okTo := TransitionTime(transitions, to)
	d, ok := Between(fromAt, okFrom, toAt, okTo)
	return Metric{From: from, To: to, Duration: d, OK: ok}
}

// TechnicianDuration is the time from in-repair to repair-complete.
func TechnicianDuration(transitions []repair.Transition) Metric {
	return Measure(transitions, repair.StatusInRepair, repair.StatusRepairComplete)
}

// HandoverDuration is the time from repair-complete to done.
func HandoverDuration(transitions []repair.Transition) Metric {
	return Measure(transitions, repair.StatusRepairComplete, repair.StatusDone)
}

// Report bundles the conventional metrics for a device.
type Report struct {
	Technician Metric
	Handover   Metric
}

func NewReport(transitions []repair.Transition) Report {
	return Report{
		Technician: TechnicianDuration(transitions),
		Handover:   HandoverDuration(transitions),
	}
}

// SinceEntered returns how long the device stayed in t.FromStatus before t,
// measured from the first transition that entered it.
func SinceEntered(transitions []repair.Transition, t repair.Transition) Metric {
	enteredAt, ok := TransitionTime(transitions, t.FromStatus)
	d, ok := Between(enteredAt, ok, t.Timestamp, true)
	return Metric{From: t.FromStatus, To: t.ToStatus, Duration: d, OK: ok}
}
