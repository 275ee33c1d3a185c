// Package timeline collects device events from independent record stores and
// merges them into one ordered, labelled timeline.
package timeline

import (
	"fmt"
	"strings"
	"time"
)

// SourceType identifies the record store an event came from.
type SourceType string

const (
	SourceStatus     SourceType = "status"
	SourcePayment    SourceType = "payment"
	SourceAttachment SourceType = "attachment"
	SourceRating     SourceType = "rating"
	SourceAudit      SourceType = "audit"
	SourcePoints     SourceType = "points"
	SourceSMS        SourceType = "sms"
)

// DefaultPriority breaks timestamp ties, highest priority first.
var DefaultPriority = []SourceType{
	SourceStatus,
	SourcePayment,
	SourceAttachment,
	SourceRating,
	SourceAudit,
	SourcePoints,
	SourceSMS,
}

// Presentation is how a source type is shown.
type Presentation struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

var presentations = map[SourceType]Presentation{
	SourceStatus:     {Label: "Status Change", Icon: "clock"},
	SourcePayment:    {Label: "Payment", Icon: "credit-card"},
	SourceAttachment: {Label: "Attachment", Icon: "upload"},
	SourceRating:     {Label: "Rating", Icon: "star"},
	SourceAudit:      {Label: "Audit", Icon: "activity"},
	SourcePoints:     {Label: "Points", Icon: "award"},
	SourceSMS:        {Label: "SMS", Icon: "message-square"},
}

// SourceTypes returns every source type in default priority order.
func SourceTypes() []SourceType {
	out := make([]SourceType, len(DefaultPriority))
	copy(out, DefaultPriority)
	return out
}

func (s SourceType) Valid() bool {
	_, ok := presentations[s]
	return ok
}

// Presentation returns the label and icon for s.
func (s SourceType) Presentation() Presentation {
	if p, ok := presentations[s]; ok {
		return p
	}
	return Presentation{Label: string(s), Icon: "circle"}
}

// ParseSourceType validates a configured source type name.
func ParseSourceType(raw string) (SourceType, error) {
	s := SourceType(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown source type %q", raw)
	}
	return s, nil
}

// Metadata keys set by the normalizers.
const (
	MetaFromStatus       = "from_status"
	MetaToStatus         = "to_status"
	MetaStageDuration    = "stage_duration"
	MetaStageDurationMs  = "stage_duration_ms"
	MetaTimestampInvalid = "timestamp_invalid"
	MetaAmount           = "amount"
	MetaMethod           = "method"
	MetaPaymentType      = "payment_type"
	MetaStatus           = "status"
	MetaFileName         = "file_name"
	MetaScore            = "score"
	MetaAction           = "action"
	MetaPointsChange     = "points_change"
	MetaDirection        = "direction"
)

// SystemActor is the actor id used for events without a recorded actor.
const SystemActor = "system"

// NormalizedEvent is a source record reduced to the fields the timeline needs.
type NormalizedEvent struct {
	SourceType  SourceType        `json:"source_type"`
	SourceID    string            `json:"source_id,omitempty"`
	Seq         int               `json:"-"` // order within the source, 0 when unordered
	Timestamp   time.Time         `json:"timestamp"`
	ActorID     string            `json:"actor_id"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Entry is a merged timeline row with its actor resolved to a display name.
type Entry struct {
	NormalizedEvent
	ActorName string `json:"actor_name"`
	Label     string `json:"label"`
	Icon      string `json:"icon"`
}

// Timeline is the merged view of a device, most recent entry first.
type Timeline struct {
	DeviceID      string       `json:"device_id"`
	Entries       []Entry      `json:"entries"`
	FailedSources []SourceType `json:"failed_sources"`
}

// Partial reports whether any source could not be read.
func (t Timeline) Partial() bool {
	return len(t.FailedSources) > 0
}
