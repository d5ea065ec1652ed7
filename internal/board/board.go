// Package board models the roasting machines of the shop: which slots are
// cooking which order, and how far along each cook is.
//
// A Board holds no clock. Every operation that depends on time takes the
// current instant from the caller, and nothing runs in the background.
package board

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Board owns the machines of the shop. It is safe for concurrent use; all
// mutations are serialized and reads return copies.
type Board struct {
	mu       sync.RWMutex
	machines []*Machine
	newID    func() string
}

// Option configures a Board.
type Option func(*Board)

// WithIDGenerator overrides how new machine ids are produced.
func WithIDGenerator(fn func() string) Option {
	return func(b *Board) {
		b.newID = fn
	}
}

// New creates an empty board.
func New(opts ...Option) *Board {
	b := &Board{newID: uuid.NewString}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Released describes a slot that was just emptied.
type Released struct {
	MachineID  string       `json:"machineId"`
	Position   int          `json:"position"`
	Occupancy  Occupancy    `json:"occupancy"`
	Returned   PendingOrder `json:"returned"`
	ReleasedAt time.Time    `json:"releasedAt"`
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: machine name is empty", ErrInvalidInput)
	}
	return nil
}

// AddMachine appends a new active machine with all slots free.
func (b *Board) AddMachine(name string) (Machine, error) {
	if err := validateName(name); err != nil {
		return Machine{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.newID()
	if _, err := b.find(id); err == nil {
		return Machine{}, fmt.Errorf("%w: machine id %s already in use", ErrInvalidInput, id)
	}

	m := newMachine(id, strings.TrimSpace(name))
	b.machines = append(b.machines, m)
	return m.clone(), nil
}

// RenameMachine changes the display name of a machine.
func (b *Board) RenameMachine(machineID, name string) (Machine, error) {
	if err := validateName(name); err != nil {
		return Machine{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	m, err := b.find(machineID)
	if err != nil {
		return Machine{}, err
	}
	m.Name = strings.TrimSpace(name)
	return m.clone(), nil
}

// RemoveMachine deletes a machine together with whatever is cooking on it.
// The occupied slots that were dropped are returned so the caller can record them.
func (b *Board) RemoveMachine(machineID string) ([]Slot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := -1
	otherActive := 0
	for i, m := range b.machines {
		if m.ID == machineID {
			idx = i
			continue
		}
		if m.Active {
			otherActive++
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: machine %s", ErrNotFound, machineID)
	}
	if otherActive == 0 {
		return nil, fmt.Errorf("%w: machine %s", ErrLastMachine, machineID)
	}

	var discarded []Slot
	for _, s := range b.machines[idx].Slots {
		if s.Occupied() {
			discarded = append(discarded, s.clone())
		}
	}
	b.machines = append(b.machines[:idx], b.machines[idx+1:]...)
	return discarded, nil
}

// OccupySlot starts cooking order in a free slot. The caller is responsible for
// taking the order out of the pending queue in the same step.
func (b *Board) OccupySlot(machineID string, position int, order PendingOrder, estimatedMinutes int, notes string, now time.Time) (Slot, error) {
	if estimatedMinutes <= 0 {
		return Slot{}, fmt.Errorf("%w: estimated minutes must be positive, got %d", ErrInvalidInput, estimatedMinutes)
	}
	if order.ID == 0 {
		return Slot{}, fmt.Errorf("%w: order id is empty", ErrInvalidInput)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	m, err := b.find(machineID)
	if err != nil {
		return Slot{}, err
	}
	s, err := m.slot(position)
	if err != nil {
		return Slot{}, err
	}
	if s.Occupied() {
		return Slot{}, fmt.Errorf("%w: machine %s slot %d holds order %d", ErrSlotOccupied, machineID, position, s.Occupancy.OrderID)
	}

	s.Occupancy = &Occupancy{
		OrderID:          order.ID,
		CustomerName:     order.CustomerName,
		StartedAt:        now,
		EstimatedMinutes: estimatedMinutes,
		Notes:            notes,
	}
	return s.clone(), nil
}

// ReleaseSlot empties an occupied slot and returns the order descriptor that
// must go back to the pending queue.
func (b *Board) ReleaseSlot(machineID string, position int, now time.Time) (Released, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, err := b.find(machineID)
	if err != nil {
		return Released{}, err
	}
	s, err := m.slot(position)
	if err != nil {
		return Released{}, err
	}
	if !s.Occupied() {
		return Released{}, fmt.Errorf("%w: machine %s slot %d", ErrSlotNotOccupied, machineID, position)
	}

	occ := *s.Occupancy
	s.Occupancy = nil
	return Released{
		MachineID:  machineID,
		Position:   position,
		Occupancy:  occ,
		Returned:   occ.Returned(),
		ReleasedAt: now,
	}, nil
}

// Restore replaces the board contents, typically with machines loaded from storage.
// The board is left untouched if any machine is invalid.
func (b *Board) Restore(machines []Machine) error {
	seen := make(map[string]struct{}, len(machines))
	restored := make([]*Machine, 0, len(machines))
	for _, m := range machines {
		if err := m.validate(); err != nil {
			return err
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("%w: duplicate machine id %s", ErrInvalidInput, m.ID)
		}
		seen[m.ID] = struct{}{}
		c := m.clone()
		restored = append(restored, &c)
	}

	b.mu.Lock()
	b.machines = restored
	b.mu.Unlock()
	return nil
}

// Machines returns copies of all machines in creation order.
func (b *Board) Machines() []Machine {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Machine, len(b.machines))
	for i, m := range b.machines {
		out[i] = m.clone()
	}
	return out
}

// Machine returns a copy of one machine.
func (b *Board) Machine(machineID string) (Machine, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	m, err := b.find(machineID)
	if err != nil {
		return Machine{}, err
	}
	return m.clone(), nil
}

// Len returns the number of machines.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.machines)
}

// OccupiedCount counts occupied slots across all machines.
func (b *Board) OccupiedCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, m := range b.machines {
		n += m.OccupiedCount()
	}
	return n
}

// ReadyCount counts slots whose cook has reached its estimate at now.
func (b *Board) ReadyCount(now time.Time) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, m := range b.machines {
		for _, s := range m.Slots {
			if s.Status(now) == StatusReady {
				n++
			}
		}
	}
	return n
}

// TotalCapacity is the number of slots on the board.
func (b *Board) TotalCapacity() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.machines) * SlotsPerMachine
}

// find must be called with b.mu held.
func (b *Board) find(machineID string) (*Machine, error) {
	for _, m := range b.machines {
		if m.ID == machineID {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: machine %s", ErrNotFound, machineID)
}
