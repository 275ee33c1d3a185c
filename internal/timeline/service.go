package timeline

import (
	"context"
	"errors"
	"sync/atomic"
)

// Service builds complete timelines.
type Service struct {
	collector  *Collector
	aggregator *Aggregator
	resolver   NameResolver
}

func NewService(collector *Collector, aggregator *Aggregator, resolver NameResolver) (*Service, error) {
	if collector == nil || aggregator == nil {
		return nil, errors.New("collector and aggregator are required")
	}
	return &Service{collector: collector, aggregator: aggregator, resolver: resolver}, nil
}

// Build collects and merges the events of deviceID.
func (s *Service) Build(ctx context.Context, deviceID string) (Timeline, error) {
	col, err := s.collector.Collect(ctx, deviceID)
	if err != nil {
		return Timeline{}, err
	}
	entries := s.aggregator.Merge(ctx, col.Events, s.resolver)
	failed := col.FailedSources
	if failed == nil {
		failed = []SourceType{}
	}
	return Timeline{DeviceID: deviceID, Entries: entries, FailedSources: failed}, nil
}

// Builder produces a timeline for a device.
type Builder interface {
	Build(ctx context.Context, deviceID string) (Timeline, error)
}

// Loader serializes the view of a single long-lived consumer, such as an
// embedding UI model that reloads one device view: only the result of the most
// recent Load is delivered. HTTP handlers build per request through Service and
// do not need it.
type Loader struct {
	builder Builder
	gen     atomic.Uint64
}

func NewLoader(b Builder) *Loader {
	return &Loader{builder: b}
}

// Load builds the timeline of deviceID. ok is false when a later Load started
// before this one finished; the result must then be discarded.
func (l *Loader) Load(ctx context.Context, deviceID string) (tl Timeline, ok bool, err error) {
	gen := l.gen.Add(1)
	tl, err = l.builder.Build(ctx, deviceID)
	if l.gen.Load() != gen {
		return Timeline{}, false, nil
	}
	return tl, true, err
}

// Cancel invalidates any Load in progress.
func (l *Loader) Cancel() {
	l.gen.Add(1)
}
