package store

import (
	"encoding/json"

	"repair-tracker-backend/internal/model"
	"repair-tracker-backend/internal/parse"
	"repair-tracker-backend/internal/repair"
	"repair-tracker-backend/internal/timeline"
)

func deviceFromModel(m model.Device) repair.Device {
	d := repair.Device{
		ID:                 m.ID,
		CustomerID:         m.CustomerID,
		Brand:              m.Brand,
		Model:              m.Model,
		SerialNumber:       m.SerialNumber,
		Status:             repair.Status(m.Status),
		ExpectedReturnDate: m.ExpectedReturnDate,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	if m.AssignedTo != nil {
		d.AssignedTo = *m.AssignedTo
	}
	return d
}

func deviceToModel(d repair.Device) model.Device {
	m := model.Device{
		ID:                 d.ID,
		CustomerID:         d.CustomerID,
		Brand:              d.Brand,
		Model:              d.Model,
		SerialNumber:       d.SerialNumber,
		Status:             string(d.CurrentStatus()),
		ExpectedReturnDate: d.ExpectedReturnDate,
		LastSeq:            len(d.Transitions),
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
	if d.AssignedTo != "" {
		assignee := d.AssignedTo
		m.AssignedTo = &assignee
	}
	return m
}

func transitionFromModel(m model.Transition) repair.Transition {
	return repair.Transition{
		ID:          m.ID,
		DeviceID:    m.DeviceID,
		Seq:         m.Seq,
		FromStatus:  repair.Status(m.FromStatus),
		ToStatus:    repair.Status(m.ToStatus),
		Timestamp:   m.CreatedAt,
		PerformedBy: m.PerformedBy,
		Signature:   m.Signature,
	}
}

func transitionToModel(t repair.Transition) model.Transition {
	return model.Transition{
		ID:          t.ID,
		DeviceID:    t.DeviceID,
		Seq:         t.Seq,
		FromStatus:  string(t.FromStatus),
		ToStatus:    string(t.ToStatus),
		PerformedBy: t.PerformedBy,
		Signature:   t.Signature,
		CreatedAt:   t.Timestamp,
	}
}

// Records handed to the timeline carry ISO-8601 strings, as a remote record
// store would return them.

func transitionRecord(m model.Transition) timeline.TransitionRecord {
	return timeline.TransitionRecord{
		ID:          m.ID,
		DeviceID:    m.DeviceID,
		Seq:         m.Seq,
		FromStatus:  m.FromStatus,
		ToStatus:    m.ToStatus,
		Timestamp:   parse.Format(m.CreatedAt),
		PerformedBy: m.PerformedBy,
		Signature:   m.Signature,
	}
}

func paymentRecord(m model.Payment) timeline.PaymentRecord {
	return timeline.PaymentRecord{
		ID:          m.ID,
		Amount:      m.Amount,
		Method:      m.Method,
		PaymentType: m.PaymentType,
		Status:      m.Status,
		PaymentDate: parse.Format(m.PaymentDate),
		CreatedBy:   m.CreatedBy,
	}
}

func attachmentRecord(m model.Attachment) timeline.AttachmentRecord {
	return timeline.AttachmentRecord{
		ID:         m.ID,
		FileName:   m.FileName,
		UploadedAt: parse.Format(m.UploadedAt),
		UploadedBy: m.UploadedBy,
	}
}

func ratingRecord(m model.Rating) timeline.RatingRecord {
	return timeline.RatingRecord{
		ID:           m.ID,
		Score:        m.Score,
		Comment:      m.Comment,
		CreatedAt:    parse.Format(m.CreatedAt),
		TechnicianID: m.TechnicianID,
	}
}

func auditLogRecord(m model.AuditLog) timeline.AuditLogRecord {
	r := timeline.AuditLogRecord{
		ID:        m.ID,
		Action:    m.Action,
		Timestamp: parse.Format(m.Timestamp),
		UserID:    m.UserID,
	}
	if m.Details != "" {
		// Details that are not a JSON object are dropped.
		if err := json.Unmarshal([]byte(m.Details), &r.Details); err != nil {
			r.Details = nil
		}
	}
	return r
}

func pointsRecord(m model.PointsTransaction) timeline.PointsRecord {
	return timeline.PointsRecord{
		ID:              m.ID,
		PointsChange:    m.PointsChange,
		TransactionType: m.TransactionType,
		Reason:          m.Reason,
		CreatedAt:       parse.Format(m.CreatedAt),
		CreatedBy:       m.CreatedBy,
	}
}

func smsRecord(m model.SmsLog) timeline.SmsRecord {
	r := timeline.SmsRecord{
		ID:        m.ID,
		Message:   m.MessageContent,
		Direction: m.Direction,
		CreatedAt: parse.Format(m.CreatedAt),
		SentBy:    m.SentBy,
		CreatedBy: m.CreatedBy,
	}
	if m.SentAt != nil {
		r.SentAt = parse.Format(*m.SentAt)
	}
	return r
}

func mapRows[M any, R any](rows []M, fn func(M) R) []R {
	out := make([]R, 0, len(rows))
	for _, r := range rows {
		out = append(out, fn(r))
	}
	return out
}
