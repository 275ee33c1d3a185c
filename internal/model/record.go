package model

import "time"

// Payment is a payment, deposit or refund recorded against a device.
type Payment struct {
	ID          string    `gorm:"primaryKey;size:36"`
	DeviceID    string    `gorm:"index;size:36;not null"`
	Amount      float64   `gorm:"not null"`
	Method      string    `gorm:"size:32"`
	PaymentType string    `gorm:"size:16;not null"`
	Status      string    `gorm:"size:16"`
	PaymentDate time.Time `gorm:"not null"`
	CreatedBy   string    `gorm:"size:36"`
}

// Attachment is a file uploaded for a device.
type Attachment struct {
	ID         string    `gorm:"primaryKey;size:36"`
	DeviceID   string    `gorm:"index;size:36;not null"`
	FileName   string    `gorm:"size:256;not null"`
	UploadedAt time.Time `gorm:"not null"`
	UploadedBy string    `gorm:"size:36"`
}

// Rating is a customer rating of a repair.
type Rating struct {
	ID           string    `gorm:"primaryKey;size:36"`
	DeviceID     string    `gorm:"index;size:36;not null"`
	Score        int       `gorm:"not null"`
	Comment      string    `gorm:"type:text"`
	TechnicianID string    `gorm:"size:36"`
	CreatedAt    time.Time `gorm:"not null"`
}

// AuditLog is a generic audit entry; Details holds a JSON object.
type AuditLog struct {
	ID         string    `gorm:"primaryKey;size:36"`
	EntityType string    `gorm:"index:idx_audit_entity,priority:1;size:32;not null"`
	EntityID   string    `gorm:"index:idx_audit_entity,priority:2;size:36;not null"`
	Action     string    `gorm:"size:64;not null"`
	UserID     string    `gorm:"size:36"`
	Details    string    `gorm:"type:text"`
	Timestamp  time.Time `gorm:"not null"`
}

// PointsTransaction is a loyalty points change linked to a device.
type PointsTransaction struct {
	ID              string    `gorm:"primaryKey;size:36"`
	DeviceID        string    `gorm:"index;size:36;not null"`
	PointsChange    int       `gorm:"not null"`
	TransactionType string    `gorm:"size:32"`
	Reason          string    `gorm:"type:text"`
	CreatedBy       string    `gorm:"size:36"`
	CreatedAt       time.Time `gorm:"not null"`
}

// SmsLog is an inbound or outbound SMS about a device.
type SmsLog struct {
	ID             string     `gorm:"primaryKey;size:36"`
	DeviceID       string     `gorm:"index;size:36;not null"`
	MessageContent string     `gorm:"type:text"`
	Direction      string     `gorm:"size:16"`
	SentAt         *time.Time `gorm:"index"`
	SentBy         string     `gorm:"size:36"`
	CreatedBy      string     `gorm:"size:36"`
	CreatedAt      time.Time  `gorm:"not null"`
}
