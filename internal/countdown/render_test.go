package countdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		target    time.Time
		wantText  string
		wantBand  Band
		wantClass string
	}{
		{"just passed", now.Add(-time.Millisecond), "Overdue", BandOverdue, "text-red-500"},
		{"exactly now", now, "Overdue", BandOverdue, "text-red-500"},
		{"two hours less a second", now.Add(2*time.Hour - time.Second), "1h.59m", BandUrgent, "text-orange-400"},
		{"whole hours", now.Add(2 * time.Hour), "2h", BandUrgent, "text-orange-400"},
		{"minutes and seconds", now.Add(5*time.Minute + 7*time.Second), "5m.7s", BandUrgent, "text-orange-400"},
		{"seconds only", now.Add(42 * time.Second), "42s", BandUrgent, "text-orange-400"},
		{"sub second", now.Add(300 * time.Millisecond), "0s", BandUrgent, "text-orange-400"},
		{"one day boundary", now.Add(24 * time.Hour), "1d.0h", BandOK, "text-green-500"},
		{"days and hours", now.Add(3*24*time.Hour + 4*time.Hour + 10*time.Minute), "3d.4h", BandOK, "text-green-500"},
		{"just under a day", now.Add(24*time.Hour - time.Second), "23h.59m", BandUrgent, "text-orange-400"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := Render(tc.target, now)
			assert.Equal(t, tc.wantText, r.Text)
			assert.Equal(t, tc.wantBand, r.Band)
			assert.Equal(t, tc.wantClass, r.Band.Class())
			assert.LessOrEqual(t, len(r.Units), 2)
		})
	}
}

func TestRender_TwoHoursAhead(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 30, 15, 0, time.UTC)
	r := Render(now.Add(2*time.Hour-time.Second), now)

	assert.Equal(t, BandUrgent, r.Band)
	assert.Len(t, r.Units, 2)
	assert.Equal(t, "1h", r.Units[0])
}

func TestBand(t *testing.T) {
	assert.Equal(t, "overdue", BandOverdue.String())
	assert.Equal(t, "urgent", BandUrgent.String())
	assert.Equal(t, "ok", BandOK.String())
	assert.Equal(t, "#ef4444", BandOverdue.Color())

	assert.Equal(t, BandUrgent, Classify(47*time.Hour, 48*time.Hour))
	assert.Equal(t, BandOK, Classify(48*time.Hour, 48*time.Hour))
}
