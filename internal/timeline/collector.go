package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"repair-tracker-backend/internal/metrics"
	"repair-tracker-backend/internal/repair"
)

// AuditEntityDevice is the audit log entity type of device records.
const AuditEntityDevice = "device"

// Sources is the read side of every record store feeding the timeline.
type Sources interface {
	GetDevice(ctx context.Context, id string) (repair.Device, error)
	ListTransitions(ctx context.Context, deviceID string) ([]TransitionRecord, error)
	ListPayments(ctx context.Context, deviceID string) ([]PaymentRecord, error)
	ListAttachments(ctx context.Context, deviceID string) ([]AttachmentRecord, error)
	ListRatings(ctx context.Context, deviceID string) ([]RatingRecord, error)
	ListAuditLogs(ctx context.Context, entityType, entityID string) ([]AuditLogRecord, error)
	ListPointsTransactions(ctx context.Context, deviceID string) ([]PointsRecord, error)
	ListSmsLogs(ctx context.Context, deviceID string) ([]SmsRecord, error)
}

// Collection is the result of reading every source for one device.
type Collection struct {
	Device        repair.Device
	Transitions   []repair.Transition
	Events        []NormalizedEvent
	FailedSources []SourceType
}

type CollectorConfig struct {
	Logger  *slog.Logger
	Sources Sources
	// SourceTimeout bounds each source read; zero means no bound.
	SourceTimeout time.Duration
}

func (cfg *CollectorConfig) Validate() error {
	if cfg.Sources == nil {
		return errors.New("sources are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SourceTimeout < 0 {
		return fmt.Errorf("source timeout must not be negative, got %s", cfg.SourceTimeout)
	}
	return nil
}

// Collector reads the event sources of a device concurrently.
type Collector struct {
	log *slog.Logger
	cfg CollectorConfig
}

func NewCollector(cfg CollectorConfig) (*Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Collector{log: cfg.Logger, cfg: cfg}, nil
}

type sourceRead struct {
	source SourceType
	read   func(ctx context.Context) ([]NormalizedEvent, error)
}

// Collect reads and normalizes every source of deviceID. Only an unknown
// device is an error; failing sources are listed in FailedSources.
func (c *Collector) Collect(ctx context.Context, deviceID string) (Collection, error) {
	device, err := c.cfg.Sources.GetDevice(ctx, deviceID)
	if err != nil {
		return Collection{}, fmt.Errorf("failed to load device %s: %w", deviceID, err)
	}

	src := c.cfg.Sources
	var transitions []repair.Transition

	reads := []sourceRead{
		{SourceStatus, func(ctx context.Context) ([]NormalizedEvent, error) {
			recs, err := src.ListTransitions(ctx, deviceID)
			if err != nil {
				return nil, err
			}
			transitions = ToTransitions(recs)
			return NormalizeTransitions(transitions), nil
		}},
		{SourcePayment, func(ctx context.Context) ([]NormalizedEvent, error) {
			recs, err := src.ListPayments(ctx, deviceID)
			return mapAll(recs, NormalizePayment), err
		}},
		{SourceAttachment, func(ctx context.Context) ([]NormalizedEvent, error) {
			recs, err := src.ListAttachments(ctx, deviceID)
			return mapAll(recs, NormalizeAttachment), err
		}},
		{SourceRating, func(ctx context.Context) ([]NormalizedEvent, error) {
			recs, err := src.ListRatings(ctx, deviceID)
			return mapAll(recs, NormalizeRating), err
		}},
		{SourceAudit, func(ctx context.Context) ([]NormalizedEvent, error) {
			recs, err := src.ListAuditLogs(ctx, AuditEntityDevice, deviceID)
			return mapAll(recs, NormalizeAuditLog), err
		}},
		{SourcePoints, func(ctx context.Context) ([]NormalizedEvent, error) {
			recs, err := src.ListPointsTransactions(ctx, deviceID)
			return mapAll(recs, NormalizePoints), err
		}},
		{SourceSMS, func(ctx context.Context) ([]NormalizedEvent, error) {
			recs, err := src.ListSmsLogs(ctx, deviceID)
			return mapAll(recs, NormalizeSms), err
		}},
	}

	results := make([][]NormalizedEvent, len(reads))
	failed := make([]bool, len(reads))

	// Every goroutine returns nil so Wait only joins; one failing source
	// never cancels the others.
	var g errgroup.Group
	for i, r := range reads {
		g.Go(func() error {
			events, err := c.readOne(ctx, deviceID, r)
			if err != nil {
				failed[i] = true
				return nil
			}
			results[i] = events
			return nil
		})
	}
	_ = g.Wait()

	out := Collection{Device: device, Transitions: transitions}
	for i, r := range reads {
		if failed[i] {
			out.FailedSources = append(out.FailedSources, r.source)
			continue
		}
		out.Events = append(out.Events, results[i]...)
	}
	if out.Transitions == nil {
		out.Transitions = device.Transitions
	}
	return out, nil
}

func (c *Collector) readOne(ctx context.Context, deviceID string, r sourceRead) (events []NormalizedEvent, err error) {
	if c.cfg.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.SourceTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		if err != nil {
			err = fmt.Errorf("%w: %s: %v", repair.ErrSourceUnavailable, r.source, err)
			c.log.Warn("timeline source failed", "device_id", deviceID, "source", r.source, "error", err)
		}
		metrics.RecordSourceRead(string(r.source), time.Since(start), err)
	}()

	return r.read(ctx)
}

func mapAll[T any](recs []T, fn func(T) NormalizedEvent) []NormalizedEvent {
	out := make([]NormalizedEvent, 0, len(recs))
	for _, r := range recs {
		out = append(out, fn(r))
	}
	return out
}
