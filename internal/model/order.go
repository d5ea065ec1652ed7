package model

import "time"

// OrderStage tracks where an order is in the kitchen.
type OrderStage string

const (
	// StagePending orders wait in the queue to be placed on a machine.
	StagePending OrderStage = "pending"
	// StageCooking orders occupy a machine slot.
	StageCooking OrderStage = "cooking"
)

// Order is a customer's request for one or more chickens.
type Order struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	CustomerID  int64      `gorm:"index;not null" json:"customerId"`
	Quantity    int        `gorm:"not null;default:1" json:"quantity"`
	UnitPrice   float64    `gorm:"type:numeric(10,2);not null" json:"unitPrice"`
	Description string     `gorm:"size:255" json:"description"`
	Notes       string     `gorm:"size:500" json:"notes"`
	Paid        bool       `gorm:"not null;default:false" json:"paid"`
	Delivered   bool       `gorm:"not null;default:false" json:"delivered"`
	Stage       OrderStage `gorm:"size:16;not null;default:pending;index" json:"stage"`
	OrderedAt   time.Time  `gorm:"not null;index" json:"orderedAt"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updatedAt"`

	// Associations
	Customer Customer `gorm:"constraint:OnDelete:RESTRICT" json:"customer"`
}

// Total is the amount due for the order.
func (o Order) Total() float64 {
	return float64(o.Quantity) * o.UnitPrice
}
