package timeline

import (
	"context"
	"fmt"
	"sort"
)

// NameResolver maps actor ids to display names. Ids it cannot resolve are
// absent from the result.
type NameResolver interface {
	Resolve(ctx context.Context, ids []string) map[string]string
}

// Fallback labels for actors without a resolved name.
const (
	UnknownActorName = "Unknown"
	SystemActorName  = "System"
)

// Aggregator orders, deduplicates and labels normalized events.
type Aggregator struct {
	rank map[SourceType]int
}

// NewAggregator builds an aggregator with the given tie-break priority.
// An empty priority uses DefaultPriority; source types missing from it rank
// after the listed ones in default order.
func NewAggregator(priority []SourceType) (*Aggregator, error) {
	if len(priority) == 0 {
		priority = DefaultPriority
	}
	rank := make(map[SourceType]int, len(DefaultPriority))
	for i, s := range priority {
		if !s.Valid() {
			return nil, fmt.Errorf("unknown source type %q in priority", s)
		}
		if _, dup := rank[s]; dup {
			return nil, fmt.Errorf("duplicate source type %q in priority", s)
		}
		rank[s] = i
	}
	next := len(priority)
	for _, s := range DefaultPriority {
		if _, ok := rank[s]; !ok {
			rank[s] = next
			next++
		}
	}
	return &Aggregator{rank: rank}, nil
}

// Sort orders events in place: newest first, then by source priority, later
// position within the source, source id and description.
func (a *Aggregator) Sort(events []NormalizedEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		ei, ej := events[i], events[j]
		if !ei.Timestamp.Equal(ej.Timestamp) {
			return ei.Timestamp.After(ej.Timestamp)
		}
		ri, rj := a.rank[ei.SourceType], a.rank[ej.SourceType]
		if ri != rj {
			return ri < rj
		}
		if ei.Seq != ej.Seq {
			return ei.Seq > ej.Seq
		}
		if ei.SourceID != ej.SourceID {
			return ei.SourceID < ej.SourceID
		}
		return ei.Description < ej.Description
	})
}

// Dedup drops events whose (source type, source id) was already seen.
// Events without a source id are always kept.
func Dedup(events []NormalizedEvent) []NormalizedEvent {
	seen := make(map[string]struct{}, len(events))
	out := events[:0:0]
	for _, e := range events {
		if e.SourceID != "" {
			key := string(e.SourceType) + "\x00" + e.SourceID
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, e)
	}
	return out
}

// Merge sorts, deduplicates and labels events. The input slice is not modified.
func (a *Aggregator) Merge(ctx context.Context, events []NormalizedEvent, resolver NameResolver) []Entry {
	sorted := make([]NormalizedEvent, len(events))
	copy(sorted, events)
	a.Sort(sorted)
	sorted = Dedup(sorted)

	var names map[string]string
	if resolver != nil {
		names = resolver.Resolve(ctx, actorIDs(sorted))
	}

	entries := make([]Entry, 0, len(sorted))
	for _, e := range sorted {
		p := e.SourceType.Presentation()
		entries = append(entries, Entry{
			NormalizedEvent: e,
			ActorName:       DisplayName(e.ActorID, names),
			Label:           p.Label,
			Icon:            p.Icon,
		})
	}
	return entries
}

// DisplayName labels an actor id using resolved names and the fallbacks.
func DisplayName(id string, names map[string]string) string {
	if id == "" {
		return UnknownActorName
	}
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	if id == SystemActor {
		return SystemActorName
	}
	return truncateID(id)
}

func truncateID(id string) string {
	runes := []rune(id)
	if len(runes) > 8 {
		runes = runes[:8]
	}
	return string(runes) + "..."
}

func actorIDs(events []NormalizedEvent) []string {
	seen := make(map[string]struct{}, len(events))
	var ids []string
	for _, e := range events {
		if e.ActorID == "" || e.ActorID == SystemActor {
			continue
		}
		if _, ok := seen[e.ActorID]; ok {
			continue
		}
		seen[e.ActorID] = struct{}{}
		ids = append(ids, e.ActorID)
	}
	return ids
}
