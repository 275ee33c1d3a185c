package stage

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"repair-tracker-backend/internal/repair"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 1, hour, minute, 0, 0, time.UTC)
}

func scenario() []repair.Transition {
	return []repair.Transition{
		{FromStatus: "", ToStatus: repair.StatusAssigned, Timestamp: at(10, 0)},
		{FromStatus: repair.StatusAssigned, ToStatus: repair.StatusInRepair, Timestamp: at(10, 5)},
		{FromStatus: repair.StatusInRepair, ToStatus: repair.StatusRepairComplete, Timestamp: at(12, 5)},
		{FromStatus: repair.StatusRepairComplete, ToStatus: repair.StatusDone, Timestamp: at(12, 35)},
	}
}

func TestTransitionTime(t *testing.T) {
	got, ok := TransitionTime(scenario(), repair.StatusInRepair)
	assert.True(t, ok)
	assert.Equal(t, at(10, 5), got)

	_, ok = TransitionTime(scenario(), repair.StatusFailed)
	assert.False(t, ok)
}

func TestTransitionTime_FirstOccurrence(t *testing.T) {
	transitions := []repair.Transition{
		{ToStatus: repair.StatusInRepair, Timestamp: at(9, 0)},
		{ToStatus: repair.StatusAwaitingParts, Timestamp: at(10, 0)},
		{ToStatus: repair.StatusInRepair, Timestamp: at(11, 0)},
	}
	got, ok := TransitionTime(transitions, repair.StatusInRepair)
	assert.True(t, ok)
	assert.Equal(t, at(9, 0), got)
}

func TestDuration(t *testing.T) {
	from, to := at(10, 0), at(11, 0)

	d, ok := Duration(&from, &to)
	assert.True(t, ok)
	assert.Equal(t, time.Hour, d)

	_, ok = Duration(&to, &from)
	assert.False(t, ok)

	_, ok = Duration(nil, &to)
	assert.False(t, ok)

	d, ok = Duration(&from, &from)
	assert.True(t, ok)
	assert.Zero(t, d)
}

func TestFormatDuration(t *testing.T) {
	testCases := []struct {
		name string
		d    time.Duration
		ok   bool
		want string
	}{
		{"undefined", 0, false, "-"},
		{"negative", -5 * time.Millisecond, true, "-"},
		{"zero", 0, true, "0m"},
		{"minutes only", 30 * time.Minute, true, "30m"},
		{"hours and minutes", 65 * time.Minute, true, "1h 5m"},
		{"whole hours", 120 * time.Minute, true, "2h 0m"},
		{"days", 26*time.Hour + 3*time.Minute + 59*time.Second, true, "1d 2h 3m"},
		{"seconds truncated", 59 * time.Second, true, "0m"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatDuration(tc.d, tc.ok))
		})
	}
}

func TestFormatMillis(t *testing.T) {
	ms := func(v float64) *float64 { return &v }

	assert.Equal(t, "-", FormatMillis(nil))
	assert.Equal(t, "-", FormatMillis(ms(-5)))
	assert.Equal(t, "-", FormatMillis(ms(math.NaN())))
	assert.Equal(t, "1h 5m", FormatMillis(ms(65*60*1000)))
}

func TestNamedMetrics(t *testing.T) {
	report := NewReport(scenario())

	assert.True(t, report.Technician.OK)
	assert.Equal(t, 120*time.Minute, report.Technician.Duration)
	assert.Equal(t, "2h 0m", report.Technician.Text())

	assert.True(t, report.Handover.OK)
	assert.Equal(t, 30*time.Minute, report.Handover.Duration)
	assert.Equal(t, "30m", report.Handover.Text())
	assert.Equal(t, int64(30*60*1000), *report.Handover.Millis())
}

func TestNamedMetrics_MissingTransitions(t *testing.T) {
	report := NewReport(scenario()[:2])

	assert.False(t, report.Technician.OK)
	assert.Equal(t, "-", report.Technician.Text())
	assert.Nil(t, report.Technician.Millis())
	assert.False(t, report.Handover.OK)
}

func TestSinceEntered(t *testing.T) {
	transitions := scenario()
	m := SinceEntered(transitions, transitions[2])
	assert.True(t, m.OK)
	assert.Equal(t, 2*time.Hour, m.Duration)

	m = SinceEntered(transitions, transitions[0])
	assert.False(t, m.OK)
}
