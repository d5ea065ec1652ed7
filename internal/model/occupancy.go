package model

import (
	"time"
)

// CookOutcome records how a cook left its slot.
type CookOutcome string

const (
	OutcomeReleased  CookOutcome = "released"
	OutcomeDiscarded CookOutcome = "discarded"
)

// SlotOpen is an occupied slot (hot table). Free slots have no row.
type SlotOpen struct {
	MachineID        string    `gorm:"primaryKey;size:64"`
	Position         int       `gorm:"primaryKey"`
	OrderID          int64     `gorm:"not null;uniqueIndex"`
	CustomerName     string    `gorm:"size:255;not null"`
	StartedAt        time.Time `gorm:"not null"`
	EstimatedMinutes int       `gorm:"not null"`
	Notes            string    `gorm:"size:500;not null;default:''"`
}

// CookHistory is the log of finished or abandoned cooks (cold table).
type CookHistory struct {
	ID               int64       `gorm:"primaryKey;autoIncrement"`
	MachineID        string      `gorm:"size:64;not null;index"`
	Position         int         `gorm:"not null"`
	OrderID          int64       `gorm:"not null;index"`
	CustomerName     string      `gorm:"size:255;not null"`
	StartedAt        time.Time   `gorm:"not null"`
	EndedAt          time.Time   `gorm:"not null;index"`
	EstimatedMinutes int         `gorm:"not null"`
	Outcome          CookOutcome `gorm:"size:16;not null"`
}
