package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimestamp(t *testing.T) {
	want := time.Date(2024, 1, 2, 10, 5, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		raw       string
		expected  time.Time
		expectErr bool
	}{
		{name: "RFC3339 UTC", raw: "2024-01-02T10:05:00Z", expected: want},
		{name: "RFC3339 with offset", raw: "2024-01-02T13:05:00+03:00", expected: want},
		{name: "Fractional seconds", raw: "2024-01-02T10:05:00.250Z", expected: want.Add(250 * time.Millisecond)},
		{name: "Postgres text form", raw: "2024-01-02 10:05:00+00", expected: want},
		{name: "Postgres text form with micros", raw: "2024-01-02 13:05:00.000123+03", expected: want.Add(123 * time.Microsecond)},
		{name: "Postgres text form with full offset", raw: "2024-01-02 10:05:00+00:00", expected: want},
		{name: "Naive space separated", raw: "2024-01-02 10:05:00", expected: want},
		{name: "Naive T separated", raw: "2024-01-02T10:05:00", expected: want},
		{name: "Surrounding whitespace", raw: "  2024-01-02T10:05:00Z ", expected: want},
		{name: "Date only", raw: "2024-01-02", expected: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{name: "Empty", raw: "", expectErr: true},
		{name: "Garbage", raw: "yesterday", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Timestamp(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.True(t, tc.expected.Equal(parsed), "got %s", parsed)
			}
		})
	}
}

func TestTimestampIn(t *testing.T) {
	loc := time.FixedZone("EAT", 3*60*60)

	parsed, err := TimestampIn("2024-01-02 13:05:00", loc)
	assert.NoError(t, err)
	assert.True(t, time.Date(2024, 1, 2, 10, 5, 0, 0, time.UTC).Equal(parsed))

	// An explicit offset wins over loc.
	parsed, err = TimestampIn("2024-01-02T10:05:00Z", loc)
	assert.NoError(t, err)
	assert.True(t, time.Date(2024, 1, 2, 10, 5, 0, 0, time.UTC).Equal(parsed))
}

func TestFirstTimestamp(t *testing.T) {
	parsed, err := FirstTimestamp("", "2024-01-02T10:05:00Z")
	assert.NoError(t, err)
	assert.Equal(t, 10, parsed.Hour())

	_, err = FirstTimestamp("", " ")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	in := time.Date(2024, 1, 2, 13, 5, 0, 0, time.FixedZone("EAT", 3*60*60))
	s := Format(in)
	assert.Equal(t, "2024-01-02T10:05:00Z", s)

	back, err := Timestamp(s)
	assert.NoError(t, err)
	assert.True(t, in.Equal(back))
}
