// Package monitor periodically classifies open devices by countdown band and
// sends a single overdue notice per missed return date.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"repair-tracker-backend/internal/countdown"
	"repair-tracker-backend/internal/metrics"
	"repair-tracker-backend/internal/notification"
	"repair-tracker-backend/internal/repair"
)

// Store lists the devices to watch and remembers which notices went out.
type Store interface {
	ListOpenDevices(ctx context.Context) ([]repair.Device, error)
	MarkOverdueNotified(ctx context.Context, deviceID string, returnDate, at time.Time) (bool, error)
}

// Dispatcher queues a notification.
type Dispatcher interface {
	Dispatch(msg notification.Message) bool
}

type Config struct {
	Logger        *slog.Logger
	Clock         clockwork.Clock
	Store         Store
	Notifier      Dispatcher
	Interval      time.Duration
	UrgentWithin  time.Duration
	NotifyOverdue bool
}

func (cfg *Config) Validate() error {
	if cfg.Store == nil {
		return errors.New("store is required")
	}
	if cfg.NotifyOverdue && cfg.Notifier == nil {
		return errors.New("notifier is required when overdue notices are enabled")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.UrgentWithin <= 0 {
		cfg.UrgentWithin = countdown.UrgentWithin
	}
	return nil
}

// Summary is the outcome of one sweep.
type Summary struct {
	Bands    map[countdown.Band]int
	Notified []string
}

type Monitor struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Monitor{log: cfg.Logger.With("component", "monitor"), cfg: cfg}, nil
}

// Run sweeps once immediately and then every Interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.log.Info("starting overdue monitor", "interval", m.cfg.Interval)
	m.sweep(ctx)

	timer := m.cfg.Clock.NewTimer(m.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("overdue monitor shutting down")
			return
		case <-timer.Chan():
			m.sweep(ctx)
			timer.Reset(m.cfg.Interval)
		}
	}
}

func (m *Monitor) sweep(ctx context.Context) {
	if _, err := m.SweepOnce(ctx); err != nil {
		m.log.Error("sweep failed", "error", err)
	}
}

// SweepOnce classifies every open device and updates the band gauges.
func (m *Monitor) SweepOnce(ctx context.Context) (Summary, error) {
	devices, err := m.cfg.Store.ListOpenDevices(ctx)
	if err != nil {
		return Summary{}, err
	}

	now := m.cfg.Clock.Now()
	sum := Summary{Bands: map[countdown.Band]int{
		countdown.BandOK:      0,
		countdown.BandUrgent:  0,
		countdown.BandOverdue: 0,
	}}

	for _, d := range devices {
		if d.ExpectedReturnDate == nil || d.Status.Closed() {
			continue
		}
		band := countdown.Classify(d.ExpectedReturnDate.Sub(now), m.cfg.UrgentWithin)
		sum.Bands[band]++

		if band != countdown.BandOverdue || !m.cfg.NotifyOverdue || d.CustomerID == "" {
			continue
		}
		first, err := m.cfg.Store.MarkOverdueNotified(ctx, d.ID, *d.ExpectedReturnDate, now)
		if err != nil {
			m.log.Warn("failed to record overdue notice", "device_id", d.ID, "error", err)
			continue
		}
		if !first {
			continue
		}
		if m.cfg.Notifier.Dispatch(notification.OverdueMessage(d)) {
			sum.Notified = append(sum.Notified, d.ID)
		}
	}

	for band, n := range sum.Bands {
		metrics.DevicesByBand.WithLabelValues(band.String()).Set(float64(n))
	}
	m.log.Debug("sweep complete",
		"ok", sum.Bands[countdown.BandOK],
		"urgent", sum.Bands[countdown.BandUrgent],
		"overdue", sum.Bands[countdown.BandOverdue],
		"notified", len(sum.Notified),
	)
	return sum, nil
}
