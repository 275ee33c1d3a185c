package model

// User is a staff member or customer who can appear as an actor.
type User struct {
	ID       string `gorm:"primaryKey;size:36"`
	FullName string `gorm:"size:256"`
	Email    string `gorm:"size:256"`
	Role     string `gorm:"size:32;not null"`
}
