package repair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// PermissionFunc decides whether actor may change the status of device.
type PermissionFunc func(actor Actor, device Device) bool

// AssignedTechnicianOnly restricts technicians to devices assigned to them.
// Every other role is unconstrained.
func AssignedTechnicianOnly(actor Actor, device Device) bool {
	if actor.Role == RoleTechnician {
		return actor.ID != "" && actor.ID == device.AssignedTo
	}
	return true
}

// Apply validates a status change and returns the updated device together with
// the transition to persist. It performs no I/O and does not assign an ID.
func Apply(device Device, newStatus Status, actor Actor, signature string, at time.Time, allow PermissionFunc) (Device, Transition, error) {
	if strings.TrimSpace(signature) == "" {
		return device, Transition{}, fmt.Errorf("%w: signature is required", ErrValidation)
	}
	if !newStatus.Valid() {
		return device, Transition{}, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}
	if strings.TrimSpace(actor.ID) == "" {
		return device, Transition{}, fmt.Errorf("%w: performedBy is required", ErrValidation)
	}
	if allow == nil {
		allow = AssignedTechnicianOnly
	}
	if !allow(actor, device) {
		return device, Transition{}, fmt.Errorf("%w: %s %q may not update device %s", ErrPermission, actor.Role, actor.ID, device.ID)
	}

	// Keep timestamps non-decreasing even if the clock went backwards.
	if last, ok := device.LastTransition(); ok && at.Before(last.Timestamp) {
		at = last.Timestamp
	}

	t := Transition{
		DeviceID:    device.ID,
		Seq:         len(device.Transitions) + 1,
		FromStatus:  device.CurrentStatus(),
		ToStatus:    newStatus,
		Timestamp:   at,
		PerformedBy: actor.ID,
		Signature:   signature,
	}

	updated := device
	updated.Transitions = make([]Transition, 0, len(device.Transitions)+1)
	updated.Transitions = append(updated.Transitions, device.Transitions...)
	updated.Transitions = append(updated.Transitions, t)
	updated.Status = newStatus
	updated.UpdatedAt = at
	return updated, t, nil
}

// DeviceStore persists devices and their transition history.
type DeviceStore interface {
	// GetDevice returns the device with its transitions in timestamp order.
	GetDevice(ctx context.Context, id string) (Device, error)
	// AppendTransition stores t and sets the device status to t.ToStatus atomically.
	// It returns ErrConflict when another transition was stored after t.Seq-1.
	AppendTransition(ctx context.Context, t Transition) error
}

// ActorDirectory resolves actor identities.
type ActorDirectory interface {
	GetActor(ctx context.Context, id string) (Actor, error)
}

// Observer is notified after a transition has been persisted.
type Observer interface {
	TransitionApplied(ctx context.Context, device Device, t Transition)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, device Device, t Transition)

func (f ObserverFunc) TransitionApplied(ctx context.Context, device Device, t Transition) {
	f(ctx, device, t)
}

type MachineConfig struct {
	Logger     *slog.Logger
	Clock      clockwork.Clock
	Devices    DeviceStore
	Actors     ActorDirectory
	Permission PermissionFunc
	Observers  []Observer
}

func (cfg *MachineConfig) Validate() error {
	if cfg.Devices == nil {
		return errors.New("device store is required")
	}
	if cfg.Actors == nil {
		return errors.New("actor directory is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Permission == nil {
		cfg.Permission = AssignedTechnicianOnly
	}
	return nil
}

// Machine applies status transitions against the device store.
type Machine struct {
	log   *slog.Logger
	cfg   MachineConfig
	newID func() string
}

func NewMachine(cfg MachineConfig) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Machine{
		log:   cfg.Logger,
		cfg:   cfg,
		newID: uuid.NewString,
	}, nil
}

// Transition moves deviceID to newStatus on behalf of performedBy.
// Exactly one transition is appended on success.
func (m *Machine) Transition(ctx context.Context, deviceID string, newStatus Status, performedBy, signature string) (Transition, error) {
	if strings.TrimSpace(deviceID) == "" {
		return Transition{}, fmt.Errorf("%w: device id is required", ErrValidation)
	}
	if strings.TrimSpace(signature) == "" {
		return Transition{}, fmt.Errorf("%w: signature is required", ErrValidation)
	}

	device, err := m.cfg.Devices.GetDevice(ctx, deviceID)
	if err != nil {
		return Transition{}, err
	}

	actor, err := m.cfg.Actors.GetActor(ctx, performedBy)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Transition{}, fmt.Errorf("%w: unknown actor %q", ErrValidation, performedBy)
		}
		return Transition{}, err
	}

	updated, t, err := Apply(device, newStatus, actor, signature, m.cfg.Clock.Now().UTC(), m.cfg.Permission)
	if err != nil {
		return Transition{}, err
	}
	t.ID = m.newID()
	updated.Transitions[len(updated.Transitions)-1].ID = t.ID

	if err := m.cfg.Devices.AppendTransition(ctx, t); err != nil {
		return Transition{}, fmt.Errorf("failed to append transition for device %s: %w", deviceID, err)
	}

	m.log.Info("device status changed",
		"device_id", deviceID,
		"from", t.FromStatus,
		"to", t.ToStatus,
		"performed_by", t.PerformedBy,
	)

	for _, o := range m.cfg.Observers {
		o.TransitionApplied(ctx, updated, t)
	}
	return t, nil
}
