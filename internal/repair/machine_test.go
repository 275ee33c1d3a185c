package repair

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory DeviceStore and ActorDirectory.
type fakeStore struct {
	devices   map[string]Device
	actors    map[string]Actor
	appended  []Transition
	appendErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		devices: map[string]Device{},
		actors:  map[string]Actor{},
	}
}

func (f *fakeStore) GetDevice(_ context.Context, id string) (Device, error) {
	d, ok := f.devices[id]
	if !ok {
		return Device{}, ErrNotFound
	}
	return d, nil
}

func (f *fakeStore) AppendTransition(_ context.Context, t Transition) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	d := f.devices[t.DeviceID]
	d.Transitions = append(d.Transitions, t)
	d.Status = t.ToStatus
	f.devices[t.DeviceID] = d
	f.appended = append(f.appended, t)
	return nil
}

func (f *fakeStore) GetActor(_ context.Context, id string) (Actor, error) {
	a, ok := f.actors[id]
	if !ok {
		return Actor{}, ErrNotFound
	}
	return a, nil
}

func TestApply(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC)
	tech := Actor{ID: "tech-1", Role: RoleTechnician}
	other := Actor{ID: "tech-2", Role: RoleTechnician}
	admin := Actor{ID: "admin-1", Role: RoleAdmin}
	device := Device{ID: "d1", Status: StatusAssigned, AssignedTo: "tech-1"}

	testCases := []struct {
		name      string
		status    Status
		actor     Actor
		signature string
		wantErr   error
	}{
		{name: "assigned technician", status: StatusInRepair, actor: tech, signature: "sig"},
		{name: "admin on any device", status: StatusInRepair, actor: admin, signature: "sig"},
		{name: "empty signature", status: StatusInRepair, actor: tech, signature: "", wantErr: ErrValidation},
		{name: "blank signature", status: StatusInRepair, actor: tech, signature: "   ", wantErr: ErrValidation},
		{name: "unknown status", status: "shipped", actor: tech, signature: "sig", wantErr: ErrValidation},
		{name: "technician not assigned", status: StatusInRepair, actor: other, signature: "sig", wantErr: ErrPermission},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			updated, tr, err := Apply(device, tc.status, tc.actor, tc.signature, at, nil)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, device, updated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusAssigned, tr.FromStatus)
			assert.Equal(t, tc.status, tr.ToStatus)
			assert.Equal(t, tc.actor.ID, tr.PerformedBy)
			assert.Equal(t, at, tr.Timestamp)
			assert.Equal(t, 1, tr.Seq)
			assert.Equal(t, tc.status, updated.Status)
			require.Len(t, updated.Transitions, 1)
			assert.Empty(t, device.Transitions, "input device must not be mutated")
		})
	}
}

func TestApply_UnassignedDeviceRejectsTechnician(t *testing.T) {
	device := Device{ID: "d1", Status: StatusAssigned}
	_, _, err := Apply(device, StatusInRepair, Actor{ID: "tech-1", Role: RoleTechnician}, "sig", time.Now(), nil)
	assert.ErrorIs(t, err, ErrPermission)
}

func TestApply_ClampsBackwardsClock(t *testing.T) {
	last := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	device := Device{
		ID:         "d1",
		AssignedTo: "tech-1",
		Transitions: []Transition{
			{FromStatus: StatusAssigned, ToStatus: StatusInRepair, Timestamp: last},
		},
	}
	_, tr, err := Apply(device, StatusRepairComplete, Actor{ID: "tech-1", Role: RoleTechnician}, "sig", last.Add(-time.Minute), nil)
	require.NoError(t, err)
	assert.Equal(t, last, tr.Timestamp)
	assert.Equal(t, StatusInRepair, tr.FromStatus)
	assert.Equal(t, 2, tr.Seq)
}

func TestApply_TerminalStatusIsNotFinal(t *testing.T) {
	device := Device{ID: "d1", Status: StatusDone}
	updated, tr, err := Apply(device, StatusInRepair, Actor{ID: "a", Role: RoleAdmin}, "sig", time.Now(), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, tr.FromStatus)
	assert.Equal(t, StatusInRepair, updated.Status)
}

func TestApply_CustomPermission(t *testing.T) {
	denyAll := func(Actor, Device) bool { return false }
	_, _, err := Apply(Device{ID: "d1"}, StatusInRepair, Actor{ID: "a", Role: RoleAdmin}, "sig", time.Now(), denyAll)
	assert.ErrorIs(t, err, ErrPermission)
}

func newTestMachine(t *testing.T, store *fakeStore, clock clockwork.Clock, observers ...Observer) *Machine {
	t.Helper()
	m, err := NewMachine(MachineConfig{
		Clock:     clock,
		Devices:   store,
		Actors:    store,
		Observers: observers,
	})
	require.NoError(t, err)
	ids := 0
	m.newID = func() string {
		ids++
		return "tr-" + string(rune('0'+ids))
	}
	return m
}

func TestMachine_Transition(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)

	store := newFakeStore()
	store.devices["d1"] = Device{ID: "d1", Status: StatusAssigned, AssignedTo: "tech-1"}
	store.actors["tech-1"] = Actor{ID: "tech-1", Name: "Alice", Role: RoleTechnician}
	store.actors["tech-2"] = Actor{ID: "tech-2", Name: "Bob", Role: RoleTechnician}

	var observed []Transition
	m := newTestMachine(t, store, clock, ObserverFunc(func(_ context.Context, d Device, tr Transition) {
		assert.Equal(t, tr.ToStatus, d.Status)
		observed = append(observed, tr)
	}))

	ctx := context.Background()

	t.Run("appends exactly one transition", func(t *testing.T) {
		clock.Advance(5 * time.Minute)
		tr, err := m.Transition(ctx, "d1", StatusInRepair, "tech-1", "sig")
		require.NoError(t, err)

		assert.Equal(t, "tr-1", tr.ID)
		assert.Equal(t, StatusAssigned, tr.FromStatus)
		assert.Equal(t, StatusInRepair, tr.ToStatus)
		assert.Equal(t, start.Add(5*time.Minute), tr.Timestamp)
		require.Len(t, store.appended, 1)
		assert.Equal(t, StatusInRepair, store.devices["d1"].Status)
		assert.Len(t, observed, 1)
	})

	t.Run("unknown device", func(t *testing.T) {
		_, err := m.Transition(ctx, "missing", StatusInRepair, "tech-1", "sig")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Len(t, store.appended, 1)
	})

	t.Run("unknown actor", func(t *testing.T) {
		_, err := m.Transition(ctx, "d1", StatusRepairComplete, "ghost", "sig")
		assert.ErrorIs(t, err, ErrValidation)
		assert.Len(t, store.appended, 1)
	})

	t.Run("wrong technician", func(t *testing.T) {
		_, err := m.Transition(ctx, "d1", StatusRepairComplete, "tech-2", "sig")
		assert.ErrorIs(t, err, ErrPermission)
		assert.Len(t, store.appended, 1)
		assert.Equal(t, StatusInRepair, store.devices["d1"].Status)
	})

	t.Run("missing signature", func(t *testing.T) {
		_, err := m.Transition(ctx, "d1", StatusRepairComplete, "tech-1", "")
		assert.ErrorIs(t, err, ErrValidation)
		assert.Len(t, store.appended, 1)
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		store.appendErr = errors.New("db down")
		defer func() { store.appendErr = nil }()

		_, err := m.Transition(ctx, "d1", StatusRepairComplete, "tech-1", "sig")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
		assert.Len(t, observed, 1)
	})

	t.Run("concurrent change surfaces as conflict", func(t *testing.T) {
		store.appendErr = ErrConflict
		defer func() { store.appendErr = nil }()

		_, err := m.Transition(ctx, "d1", StatusRepairComplete, "tech-1", "sig")
		assert.ErrorIs(t, err, ErrConflict)
		assert.Len(t, observed, 1, "observers only see stored transitions")
	})
}

func TestNewMachine_RequiresCollaborators(t *testing.T) {
	_, err := NewMachine(MachineConfig{})
	assert.Error(t, err)

	_, err = NewMachine(MachineConfig{Devices: newFakeStore()})
	assert.Error(t, err)
}
