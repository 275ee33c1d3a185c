// Package countdown renders the remaining time until a device's promised
// return date and drives live updates of that rendering.
package countdown

import (
	"strconv"
	"strings"
	"time"
)

// UrgentWithin is the remaining time under which a countdown turns orange.
const UrgentWithin = 24 * time.Hour

// OverdueText replaces the units once the target has passed.
const OverdueText = "Overdue"

// Separator is placed between units; the UI blinks it.
const Separator = "."

// Band classifies remaining time.
type Band int

const (
	BandOK Band = iota
	BandUrgent
	BandOverdue
)

func (b Band) String() string {
	switch b {
	case BandOverdue:
		return "overdue"
	case BandUrgent:
		return "urgent"
	default:
		return "ok"
	}
}

// Class returns the css color class for the band.
func (b Band) Class() string {
	switch b {
	case BandOverdue:
		return "text-red-500"
	case BandUrgent:
		return "text-orange-400"
	default:
		return "text-green-500"
	}
}

// Color returns the hex color for the band.
func (b Band) Color() string {
	switch b {
	case BandOverdue:
		return "#ef4444"
	case BandUrgent:
		return "#f59e42"
	default:
		return "#22c55e"
	}
}

// Classify places diff into a band given the urgent threshold.
func Classify(diff, urgentWithin time.Duration) Band {
	switch {
	case diff <= 0:
		return BandOverdue
	case diff < urgentWithin:
		return BandUrgent
	default:
		return BandOK
	}
}

// Reading is one evaluation of a countdown.
type Reading struct {
	Text  string
	Band  Band
	Units []string
}

// Render evaluates the countdown to target at now. At most the two most
// significant units are kept.
func Render(target, now time.Time) Reading {
	diff := target.Sub(now)
	band := Classify(diff, UrgentWithin)
	if diff <= 0 {
		return Reading{Text: OverdueText, Band: band}
	}

	total := int64(diff / time.Second)
	days := total / 86400
	hours := (total / 3600) % 24
	minutes := (total / 60) % 60
	seconds := total % 60

	units := make([]string, 0, 4)
	if days > 0 {
		units = append(units, strconv.FormatInt(days, 10)+"d")
	}
	if hours > 0 || days > 0 {
		units = append(units, strconv.FormatInt(hours, 10)+"h")
	}
	if minutes > 0 && days == 0 {
		units = append(units, strconv.FormatInt(minutes, 10)+"m")
	}
	if days == 0 && hours == 0 {
		units = append(units, strconv.FormatInt(seconds, 10)+"s")
	}
	if len(units) > 2 {
		units = units[:2]
	}

	return Reading{
		Text:  strings.Join(units, Separator),
		Band:  band,
		Units: units,
	}
}
