package model

import "time"

// Machine is a roasting machine as stored in the database.
type Machine struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Name      string    `gorm:"size:128;not null"`
	Active    bool      `gorm:"not null;default:true"`
	Seq       int64     `gorm:"not null;index"` // Creation order
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
