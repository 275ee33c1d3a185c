package store

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repair-tracker-backend/config"
	"repair-tracker-backend/internal/db"
	"repair-tracker-backend/internal/model"
	"repair-tracker-backend/internal/repair"
	"repair-tracker-backend/internal/timeline"
)

func newSQLiteStore(t *testing.T, name string) Store {
	t.Helper()
	gormDB, err := db.Init(&config.DatabaseConfig{
		DSN:                    "sqlite:file:" + name + "?mode=memory&cache=shared",
		MaxOpenConns:           1,
		MaxIdleConns:           1,
		ConnMaxLifetimeMinutes: 5,
		LogLevel:               "silent",
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewGormStore(gormDB)
}

func seedDevice(t *testing.T, s Store, id string, at time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.UpsertUser(ctx, model.User{ID: "admin-1", FullName: "Ada Admin", Role: string(repair.RoleAdmin)}))
	require.NoError(t, s.UpsertUser(ctx, model.User{ID: "tech-1", FullName: "Tom Tech", Role: string(repair.RoleTechnician)}))
	require.NoError(t, s.CreateDevice(ctx, repair.Device{
		ID: id, CustomerID: "c1", AssignedTo: "tech-1", CreatedAt: at, UpdatedAt: at,
		Transitions: []repair.Transition{
			{ID: id + "-t0", ToStatus: repair.StatusAssigned, Timestamp: at, PerformedBy: "admin-1", Signature: "intake"},
		},
	}))
}

// assertConsistentHistory checks that the stored status matches the last
// transition and that the history forms an unbroken chain.
func assertConsistentHistory(t *testing.T, d repair.Device) {
	t.Helper()
	require.NotEmpty(t, d.Transitions)
	last, _ := d.LastTransition()
	assert.Equal(t, last.ToStatus, d.Status, "stored status follows the last transition")
	for i, tr := range d.Transitions {
		assert.Equal(t, i+1, tr.Seq)
		if i == 0 {
			continue
		}
		prev := d.Transitions[i-1]
		assert.False(t, tr.Timestamp.Before(prev.Timestamp), "timestamps are non-decreasing")
		assert.Equal(t, prev.ToStatus, tr.FromStatus, "transition %d starts where %d ended", i, i-1)
	}
}

func TestGormStore_HistoryWithFrozenClock(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t, "history_frozen")
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	machine, err := repair.NewMachine(repair.MachineConfig{
		Clock:   clockwork.NewFakeClockAt(at),
		Devices: s,
		Actors:  s,
	})
	require.NoError(t, err)

	steps := []repair.Status{
		repair.StatusDiagnosisStarted,
		repair.StatusInRepair,
		repair.StatusRepairComplete,
		repair.StatusDone,
	}
	for i := 0; i < 10; i++ {
		id := "d" + string(rune('a'+i))
		seedDevice(t, s, id, at)
		for _, st := range steps {
			_, err := machine.Transition(ctx, id, st, "tech-1", "sig")
			require.NoError(t, err)
		}

		d, err := s.GetDevice(ctx, id)
		require.NoError(t, err)
		require.Len(t, d.Transitions, 5)
		assert.Equal(t, repair.StatusDone, d.Status)
		assertConsistentHistory(t, d)

		records, err := s.ListTransitions(ctx, id)
		require.NoError(t, err)
		got := make([]string, 0, len(records))
		for _, r := range records {
			got = append(got, r.ToStatus)
		}
		assert.Equal(t, []string{"assigned", "diagnosis-started", "in-repair", "repair-complete", "done"}, got)
	}
}

func TestGormStore_HistoryOrderInTimeline(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t, "history_timeline")
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	seedDevice(t, s, "d1", at)

	machine, err := repair.NewMachine(repair.MachineConfig{Clock: clockwork.NewFakeClockAt(at), Devices: s, Actors: s})
	require.NoError(t, err)
	for _, st := range []repair.Status{repair.StatusInRepair, repair.StatusRepairComplete, repair.StatusDone} {
		_, err := machine.Transition(ctx, "d1", st, "tech-1", "sig")
		require.NoError(t, err)
	}

	records, err := s.ListTransitions(ctx, "d1")
	require.NoError(t, err)
	agg, err := timeline.NewAggregator(nil)
	require.NoError(t, err)
	entries := agg.Merge(ctx, timeline.NormalizeTransitions(timeline.ToTransitions(records)), nil)

	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.Description)
	}
	assert.Equal(t, []string{
		"Changed to done",
		"Changed to repair complete",
		"Changed to in repair",
		"Changed to assigned",
	}, got)
}

func TestGormStore_AppendTransitionFromStaleRead(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t, "history_stale")
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	seedDevice(t, s, "d1", at)

	snapshot, err := s.GetDevice(ctx, "d1")
	require.NoError(t, err)
	tech := repair.Actor{ID: "tech-1", Role: repair.RoleTechnician}

	_, first, err := repair.Apply(snapshot, repair.StatusInRepair, tech, "sig", at.Add(time.Minute), nil)
	require.NoError(t, err)
	first.ID = "tr-first"
	_, second, err := repair.Apply(snapshot, repair.StatusFailed, tech, "sig", at.Add(2*time.Minute), nil)
	require.NoError(t, err)
	second.ID = "tr-second"

	require.NoError(t, s.AppendTransition(ctx, first))
	err = s.AppendTransition(ctx, second)
	assert.ErrorIs(t, err, repair.ErrConflict)

	d, err := s.GetDevice(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, d.Transitions, 2)
	assert.Equal(t, repair.StatusInRepair, d.Status)
	assertConsistentHistory(t, d)

	t.Run("unknown device is not a conflict", func(t *testing.T) {
		ghost := first
		ghost.ID = "tr-ghost"
		ghost.DeviceID = "missing"
		assert.ErrorIs(t, s.AppendTransition(ctx, ghost), repair.ErrNotFound)
	})
}
