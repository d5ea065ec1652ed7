package board

import "time"

// SlotsPerMachine is the number of roasting positions on every machine.
const SlotsPerMachine = 12

// Occupancy is the cook currently running in a slot.
type Occupancy struct {
	OrderID          int64     `json:"orderId"`
	CustomerName     string    `json:"customerName"`
	StartedAt        time.Time `json:"startedAt"`
	EstimatedMinutes int       `json:"estimatedMinutes"`
	Notes            string    `json:"notes"`
}

// Progress returns the cook progress at now.
func (o Occupancy) Progress(now time.Time) Progress {
	return ComputeProgress(o.StartedAt, o.EstimatedMinutes, now)
}

// Slot is one roasting position on a machine. A nil Occupancy means the slot is free,
// so a slot is never partially filled.
type Slot struct {
	Position  int        `json:"position"`
	Occupancy *Occupancy `json:"occupancy,omitempty"`
}

// Occupied reports whether an order is cooking in the slot.
func (s Slot) Occupied() bool {
	return s.Occupancy != nil
}

// Status returns the slot status at now.
func (s Slot) Status(now time.Time) Status {
	if s.Occupancy == nil {
		return StatusFree
	}
	return Classify(true, s.Occupancy.Progress(now).Percent)
}

func (s Slot) clone() Slot {
	if s.Occupancy == nil {
		return Slot{Position: s.Position}
	}
	occ := *s.Occupancy
	return Slot{Position: s.Position, Occupancy: &occ}
}
