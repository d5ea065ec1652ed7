package board

import "fmt"

// Machine is a roasting machine with a fixed row of slots.
type Machine struct {
	ID     string                `json:"id"`
	Name   string                `json:"name"`
	Active bool                  `json:"active"`
	Slots  [SlotsPerMachine]Slot `json:"slots"`
}

func newMachine(id, name string) *Machine {
	m := &Machine{ID: id, Name: name, Active: true}
	for i := range m.Slots {
		m.Slots[i] = Slot{Position: i + 1}
	}
	return m
}

// Slot returns a copy of the slot at position.
func (m Machine) Slot(position int) (Slot, bool) {
	if position < 1 || position > SlotsPerMachine {
		return Slot{}, false
	}
	return m.Slots[position-1].clone(), true
}

// OccupiedCount counts the slots with an order cooking.
func (m Machine) OccupiedCount() int {
	n := 0
	for _, s := range m.Slots {
		if s.Occupied() {
			n++
		}
	}
	return n
}

func (m *Machine) slot(position int) (*Slot, error) {
	if position < 1 || position > SlotsPerMachine {
		return nil, fmt.Errorf("%w: machine %s has no slot %d", ErrNotFound, m.ID, position)
	}
	return &m.Slots[position-1], nil
}

func (m *Machine) clone() Machine {
	c := Machine{ID: m.ID, Name: m.Name, Active: m.Active}
	for i, s := range m.Slots {
		c.Slots[i] = s.clone()
	}
	return c
}

// validate checks the invariants a restored machine must satisfy.
func (m Machine) validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: machine id is empty", ErrInvalidInput)
	}
	if err := validateName(m.Name); err != nil {
		return err
	}
	for i, s := range m.Slots {
		if s.Position != i+1 {
			return fmt.Errorf("%w: machine %s slot %d has position %d", ErrInvalidInput, m.ID, i+1, s.Position)
		}
		if s.Occupancy != nil && s.Occupancy.EstimatedMinutes <= 0 {
			return fmt.Errorf("%w: machine %s slot %d has non-positive estimate", ErrInvalidInput, m.ID, s.Position)
		}
	}
	return nil
}
