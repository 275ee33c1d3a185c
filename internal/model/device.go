package model

import "time"

// Device represents a repair job.
type Device struct {
	ID                 string     `gorm:"primaryKey;size:36"`
	CustomerID         string     `gorm:"index;size:36"`
	Brand              string     `gorm:"size:128"`
	Model              string     `gorm:"size:128"`
	SerialNumber       string     `gorm:"size:128"`
	Status             string     `gorm:"index;size:32;not null"`
	AssignedTo         *string    `gorm:"index;size:36"`
	ExpectedReturnDate *time.Time `gorm:"index"`
	LastSeq            int        `gorm:"not null;default:0"`
	CreatedAt          time.Time  `gorm:"not null"`
	UpdatedAt          time.Time  `gorm:"not null"`

	// Associations
	Transitions []Transition `gorm:"foreignKey:DeviceID"`
}

// Transition is an append-only record of a device status change.
type Transition struct {
	ID          string    `gorm:"primaryKey;size:36"`
	DeviceID    string    `gorm:"index:idx_transitions_device_created,priority:1;uniqueIndex:idx_transitions_device_seq,priority:1;size:36;not null"`
	Seq         int       `gorm:"uniqueIndex:idx_transitions_device_seq,priority:2;not null"`
	FromStatus  string    `gorm:"size:32"`
	ToStatus    string    `gorm:"size:32;not null"`
	PerformedBy string    `gorm:"size:36;not null"`
	Signature   string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"index:idx_transitions_device_created,priority:2;not null"`
}

// OverdueNotice marks a device whose overdue notification has been sent.
type OverdueNotice struct {
	DeviceID   string    `gorm:"primaryKey;size:36"`
	ReturnDate time.Time `gorm:"primaryKey"`
	NotifiedAt time.Time `gorm:"not null"`
}
