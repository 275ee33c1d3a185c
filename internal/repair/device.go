package repair

import "time"

// Role is the job function of an actor.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleTechnician   Role = "technician"
	RoleCustomerCare Role = "customer-care"
)

// Actor is a user or system identity that performs actions on a device.
type Actor struct {
	ID   string
	Name string
	Role Role
}

// Transition is an immutable record of a status change.
type Transition struct {
	ID          string
	DeviceID    string
	Seq         int // 1-based position in the device history
	FromStatus  Status
	ToStatus    Status
	Timestamp   time.Time
	PerformedBy string
	Signature   string
}

// Device is a repair job.
type Device struct {
	ID                 string
	CustomerID         string
	Brand              string
	Model              string
	SerialNumber       string
	Status             Status
	AssignedTo         string     // empty when unassigned
	ExpectedReturnDate *time.Time // nil when not promised
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Transitions        []Transition
}

// LastTransition returns the most recent transition, if any.
func (d Device) LastTransition() (Transition, bool) {
	if len(d.Transitions) == 0 {
		return Transition{}, false
	}
	return d.Transitions[len(d.Transitions)-1], true
}

// CurrentStatus derives the status from the transition list, falling back to
// the stored status (or the creation default) when there is no history.
func (d Device) CurrentStatus() Status {
	if t, ok := d.LastTransition(); ok {
		return t.ToStatus
	}
	if d.Status != "" {
		return d.Status
	}
	return DefaultStatus
}
