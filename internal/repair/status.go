package repair

import "strings"

// Status is the repair stage a device is currently in.
type Status string

const (
	StatusAssigned           Status = "assigned"
	StatusDiagnosisStarted   Status = "diagnosis-started"
	StatusAwaitingParts      Status = "awaiting-parts"
	StatusInRepair           Status = "in-repair"
	StatusReassembledTesting Status = "reassembled-testing"
	StatusRepairComplete     Status = "repair-complete"
	StatusProcessPayments    Status = "process-payments"
	StatusReadyForPickup     Status = "ready-for-pickup"
	StatusDone               Status = "done"
	StatusFailed             Status = "failed"
)

// DefaultStatus is the status of a freshly created device with no transitions.
const DefaultStatus = StatusAssigned

var allStatuses = []Status{
	StatusAssigned,
	StatusDiagnosisStarted,
	StatusAwaitingParts,
	StatusInRepair,
	StatusReassembledTesting,
	StatusRepairComplete,
	StatusProcessPayments,
	StatusReadyForPickup,
	StatusDone,
	StatusFailed,
}

// Progress percentages shown on the device card.
var statusProgress = map[Status]int{
	StatusAssigned:           0,
	StatusDiagnosisStarted:   20,
	StatusAwaitingParts:      30,
	StatusInRepair:           60,
	StatusReassembledTesting: 80,
	StatusRepairComplete:     90,
	StatusProcessPayments:    92,
	StatusReadyForPickup:     95,
	StatusDone:               100,
	StatusFailed:             0,
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := statusProgress[s]
	return ok
}

// Label returns the human readable form, e.g. "in repair".
func (s Status) Label() string {
	return strings.ReplaceAll(string(s), "-", " ")
}

// Progress returns the completion percentage associated with the status.
func (s Status) Progress() int {
	return statusProgress[s]
}

// Closed reports whether the shop treats the status as finished.
// Transitions out of a closed status are still accepted.
func (s Status) Closed() bool {
	return s == StatusDone || s == StatusFailed
}
