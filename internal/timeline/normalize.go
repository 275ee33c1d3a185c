package timeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"repair-tracker-backend/internal/parse"
	"repair-tracker-backend/internal/repair"
	"repair-tracker-backend/internal/stage"
)

// Raw records as returned by the record stores. Timestamps are ISO-8601 strings.

type TransitionRecord struct {
	ID          string
	DeviceID    string
	Seq         int
	FromStatus  string
	ToStatus    string
	Timestamp   string
	PerformedBy string
	Signature   string
}

type PaymentRecord struct {
	ID          string
	Amount      float64
	Method      string
	PaymentType string
	Status      string
	PaymentDate string
	CreatedBy   string
}

type AttachmentRecord struct {
	ID         string
	FileName   string
	UploadedAt string
	UploadedBy string
}

type RatingRecord struct {
	ID           string
	Score        int
	Comment      string
	CreatedAt    string
	TechnicianID string
}

type AuditLogRecord struct {
	ID        string
	Action    string
	Timestamp string
	UserID    string
	Details   map[string]any
}

type PointsRecord struct {
	ID              string
	PointsChange    int
	TransactionType string
	Reason          string
	CreatedAt       string
	CreatedBy       string
}

type SmsRecord struct {
	ID        string
	Message   string
	Direction string
	SentAt    string
	CreatedAt string
	SentBy    string
	CreatedBy string
}

const smsPreviewLen = 50

func actorOrSystem(candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return SystemActor
}

// stamp parses the first non-empty candidate. A missing or malformed value
// yields the zero time and marks meta.
func stamp(meta map[string]string, candidates ...string) time.Time {
	t, err := parse.FirstTimestamp(candidates...)
	if err != nil {
		meta[MetaTimestampInvalid] = "true"
		return time.Time{}
	}
	return t
}

// ToTransitions converts transition records, preserving their order.
func ToTransitions(records []TransitionRecord) []repair.Transition {
	out := make([]repair.Transition, 0, len(records))
	for _, r := range records {
		ts, err := parse.Timestamp(r.Timestamp)
		if err != nil {
			ts = time.Time{}
		}
		out = append(out, repair.Transition{
			ID:          r.ID,
			DeviceID:    r.DeviceID,
			Seq:         r.Seq,
			FromStatus:  repair.Status(r.FromStatus),
			ToStatus:    repair.Status(r.ToStatus),
			Timestamp:   ts,
			PerformedBy: r.PerformedBy,
			Signature:   r.Signature,
		})
	}
	return out
}

// NormalizeTransitions maps every transition to a status event. Each event
// records how long the device stayed in the status it left.
func NormalizeTransitions(transitions []repair.Transition) []NormalizedEvent {
	out := make([]NormalizedEvent, 0, len(transitions))
	for _, t := range transitions {
		meta := map[string]string{
			MetaFromStatus: string(t.FromStatus),
			MetaToStatus:   string(t.ToStatus),
		}
		if t.Timestamp.IsZero() {
			meta[MetaTimestampInvalid] = "true"
		} else if m := stage.SinceEntered(transitions, t); m.OK {
			meta[MetaStageDuration] = m.Text()
			meta[MetaStageDurationMs] = strconv.FormatInt(m.Duration.Milliseconds(), 10)
		}

		to := t.ToStatus.Label()
		if to == "" {
			to = "unknown"
		}
		out = append(out, NormalizedEvent{
			SourceType:  SourceStatus,
			SourceID:    t.ID,
			Seq:         t.Seq,
			Timestamp:   t.Timestamp,
			ActorID:     actorOrSystem(t.PerformedBy),
			Description: "Changed to " + to,
			Metadata:    meta,
		})
	}
	return out
}

func NormalizePayment(r PaymentRecord) NormalizedEvent {
	meta := map[string]string{
		MetaAmount:      strconv.FormatFloat(r.Amount, 'f', 2, 64),
		MetaMethod:      r.Method,
		MetaPaymentType: r.PaymentType,
		MetaStatus:      r.Status,
	}
	kind := "Refund"
	switch r.PaymentType {
	case "payment":
		kind = "Payment"
	case "deposit":
		kind = "Deposit"
	}
	return NormalizedEvent{
		SourceType:  SourcePayment,
		SourceID:    r.ID,
		Timestamp:   stamp(meta, r.PaymentDate),
		ActorID:     actorOrSystem(r.CreatedBy),
		Description: fmt.Sprintf("%s: %.2f (%s) [%s]", kind, r.Amount, r.Method, r.Status),
		Metadata:    meta,
	}
}

func NormalizeAttachment(r AttachmentRecord) NormalizedEvent {
	meta := map[string]string{MetaFileName: r.FileName}
	return NormalizedEvent{
		SourceType:  SourceAttachment,
		SourceID:    r.ID,
		Timestamp:   stamp(meta, r.UploadedAt),
		ActorID:     actorOrSystem(r.UploadedBy),
		Description: "Attachment uploaded: " + r.FileName,
		Metadata:    meta,
	}
}

func NormalizeRating(r RatingRecord) NormalizedEvent {
	meta := map[string]string{MetaScore: strconv.Itoa(r.Score)}
	desc := fmt.Sprintf("Device rated %d star", r.Score)
	if r.Score != 1 {
		desc += "s"
	}
	if r.Comment != "" {
		desc += ": " + r.Comment
	}
	return NormalizedEvent{
		SourceType:  SourceRating,
		SourceID:    r.ID,
		Timestamp:   stamp(meta, r.CreatedAt),
		ActorID:     actorOrSystem(r.TechnicianID),
		Description: desc,
		Metadata:    meta,
	}
}

func NormalizeAuditLog(r AuditLogRecord) NormalizedEvent {
	meta := map[string]string{MetaAction: r.Action}
	desc := "[Audit] " + strings.ReplaceAll(r.Action, "_", " ")
	if name := detailString(r.Details, "fileName", "file_name"); name != "" {
		meta[MetaFileName] = name
		desc += ": " + name
	}
	return NormalizedEvent{
		SourceType:  SourceAudit,
		SourceID:    r.ID,
		Timestamp:   stamp(meta, r.Timestamp),
		ActorID:     actorOrSystem(r.UserID),
		Description: desc,
		Metadata:    meta,
	}
}

func detailString(details map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := details[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func NormalizePoints(r PointsRecord) NormalizedEvent {
	meta := map[string]string{MetaPointsChange: strconv.Itoa(r.PointsChange)}
	verb := "adjusted"
	switch {
	case r.PointsChange > 0:
		verb = "earned"
	case r.PointsChange < 0:
		verb = "spent"
	}
	return NormalizedEvent{
		SourceType:  SourcePoints,
		SourceID:    r.ID,
		Timestamp:   stamp(meta, r.CreatedAt),
		ActorID:     actorOrSystem(r.CreatedBy),
		Description: fmt.Sprintf("Points %s: %d (%s) - %s", verb, r.PointsChange, r.TransactionType, r.Reason),
		Metadata:    meta,
	}
}

func NormalizeSms(r SmsRecord) NormalizedEvent {
	meta := map[string]string{MetaDirection: r.Direction}
	verb := "received"
	if r.Direction == "outbound" {
		verb = "sent"
	}
	return NormalizedEvent{
		SourceType:  SourceSMS,
		SourceID:    r.ID,
		Timestamp:   stamp(meta, r.SentAt, r.CreatedAt),
		ActorID:     actorOrSystem(r.SentBy, r.CreatedBy),
		Description: fmt.Sprintf("SMS %s: %s", verb, preview(r.Message, smsPreviewLen)),
		Metadata:    meta,
	}
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
