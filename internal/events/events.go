// Package events announces board changes to other processes.
package events

import (
	"context"
	"sync"
	"time"
)

// Type enumerates event categories.
type Type string

const (
	MachineAdded   Type = "machine.added"
	MachineRenamed Type = "machine.renamed"
	MachineRemoved Type = "machine.removed"
	SlotOccupied   Type = "slot.occupied"
	SlotReleased   Type = "slot.released"
	SlotReady      Type = "slot.ready"
)

// Event describes one change on the board. Slot fields are zero for machine events.
type Event struct {
	Type         Type      `json:"type"`
	MachineID    string    `json:"machineId"`
	MachineName  string    `json:"machineName,omitempty"`
	Position     int       `json:"position,omitempty"`
	OrderID      int64     `json:"orderId,omitempty"`
	CustomerName string    `json:"customerName,omitempty"`
	At           time.Time `json:"at"`
}

// Publisher delivers events. Publishing is best effort: callers log failures
// and carry on.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the type of every published event in order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]Type, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}
