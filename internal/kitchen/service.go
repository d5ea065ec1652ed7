// Package kitchen keeps the in-memory board and the database in step.
package kitchen

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"rotisserie-backend/config"
	"rotisserie-backend/internal/board"
	"rotisserie-backend/internal/clock"
	"rotisserie-backend/internal/events"
	"rotisserie-backend/internal/model"
	"rotisserie-backend/internal/store"
	"rotisserie-backend/internal/telemetry"
)

// Store is the persistence the kitchen needs.
type Store interface {
	store.OrderQueue
	store.BoardStore
}

// CookOptions are the cook times offered when placing an order on a slot.
type CookOptions struct {
	Minutes        []int `json:"minutes"`
	DefaultMinutes int   `json:"defaultMinutes"`
}

// Service applies board operations and persists them. Each mutation is applied
// to the board first and undone if persisting it fails.
type Service struct {
	mu      sync.Mutex
	board   *board.Board
	store   Store
	clock   clock.Clock
	events  events.Publisher
	metrics *telemetry.Metrics
	cfg     config.BoardConfig
	logger  zerolog.Logger
}

// NewService wires a kitchen service. Call Load before serving requests.
func NewService(b *board.Board, s Store, clk clock.Clock, pub events.Publisher, metrics *telemetry.Metrics, cfg config.BoardConfig, logger zerolog.Logger) *Service {
	return &Service{
		board:   b,
		store:   s,
		clock:   clk,
		events:  pub,
		metrics: metrics,
		cfg:     cfg,
		logger:  logger.With().Str("component", "kitchen").Logger(),
	}
}

// Load rebuilds the board from storage. When no machine is stored yet the
// default machine is created.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.store.ListMachines(ctx)
	if err != nil {
		return err
	}
	open, err := s.store.ListOpenSlots(ctx)
	if err != nil {
		return err
	}

	machines := make([]board.Machine, 0, len(stored))
	index := make(map[string]int, len(stored))
	for _, m := range stored {
		bm := board.Machine{ID: m.ID, Name: m.Name, Active: m.Active}
		for i := range bm.Slots {
			bm.Slots[i].Position = i + 1
		}
		index[m.ID] = len(machines)
		machines = append(machines, bm)
	}
	for _, o := range open {
		i, ok := index[o.MachineID]
		if !ok || o.Position < 1 || o.Position > board.SlotsPerMachine {
			s.logger.Warn().Str("machine_id", o.MachineID).Int("position", o.Position).Msg("skipping open slot that does not fit the board")
			continue
		}
		machines[i].Slots[o.Position-1].Occupancy = &board.Occupancy{
			OrderID:          o.OrderID,
			CustomerName:     o.CustomerName,
			StartedAt:        o.StartedAt,
			EstimatedMinutes: o.EstimatedMinutes,
			Notes:            o.Notes,
		}
	}

	if err := s.board.Restore(machines); err != nil {
		return fmt.Errorf("failed to restore board: %w", err)
	}

	if len(machines) == 0 {
		if _, err := s.addMachine(ctx, s.cfg.DefaultMachineName); err != nil {
			return fmt.Errorf("failed to create default machine: %w", err)
		}
	}

	s.logger.Info().Int("machines", s.board.Len()).Int("occupied", s.board.OccupiedCount()).Msg("board loaded")
	s.observe()
	return nil
}

// AddMachine appends a machine to the board.
func (s *Service) AddMachine(ctx context.Context, name string) (board.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addMachine(ctx, name)
}

func (s *Service) addMachine(ctx context.Context, name string) (board.Machine, error) {
	before := s.board.Machines()
	m, err := s.board.AddMachine(name)
	if err != nil {
		return board.Machine{}, err
	}

	if err := s.store.CreateMachine(ctx, &model.Machine{ID: m.ID, Name: m.Name, Active: m.Active}); err != nil {
		s.rollback(before)
		return board.Machine{}, err
	}

	s.publish(ctx, events.Event{Type: events.MachineAdded, MachineID: m.ID, MachineName: m.Name})
	s.observe()
	return m, nil
}

// RenameMachine changes a machine's display name.
func (s *Service) RenameMachine(ctx context.Context, machineID, name string) (board.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.board.Machines()
	m, err := s.board.RenameMachine(machineID, name)
	if err != nil {
		return board.Machine{}, err
	}
	if err := s.store.RenameMachine(ctx, m.ID, m.Name); err != nil {
		s.rollback(before)
		return board.Machine{}, err
	}

	s.publish(ctx, events.Event{Type: events.MachineRenamed, MachineID: m.ID, MachineName: m.Name})
	return m, nil
}

// RemoveMachine deletes a machine. Orders cooking on it go back to the queue
// and the dropped slots are returned.
func (s *Service) RemoveMachine(ctx context.Context, machineID string) ([]board.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.board.Machines()
	discarded, err := s.board.RemoveMachine(machineID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteMachine(ctx, machineID, s.clock.Now()); err != nil {
		s.rollback(before)
		return nil, err
	}

	if len(discarded) > 0 {
		s.logger.Warn().Str("machine_id", machineID).Int("discarded", len(discarded)).Msg("removed machine with orders still cooking")
	}
	s.publish(ctx, events.Event{Type: events.MachineRemoved, MachineID: machineID})
	s.observe()
	return discarded, nil
}

// Occupy places a pending order on a free slot. Zero minutes means the
// configured default cook time.
func (s *Service) Occupy(ctx context.Context, machineID string, position int, orderID int64, minutes int, notes string) (board.Slot, error) {
	if minutes == 0 {
		minutes = s.cfg.DefaultCookMinutes
	}
	if orderID <= 0 {
		return board.Slot{}, fmt.Errorf("%w: order id must be positive, got %d", board.ErrInvalidInput, orderID)
	}
	if minutes < 0 {
		return board.Slot{}, fmt.Errorf("%w: estimated minutes must be positive, got %d", board.ErrInvalidInput, minutes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.findPending(ctx, orderID)
	if err != nil {
		return board.Slot{}, err
	}

	now := s.clock.Now()
	slot, err := s.board.OccupySlot(machineID, position, order, minutes, notes, now)
	if err != nil {
		return board.Slot{}, err
	}

	occ := slot.Occupancy
	err = s.store.OpenSlot(ctx, model.SlotOpen{
		MachineID:        machineID,
		Position:         position,
		OrderID:          occ.OrderID,
		CustomerName:     occ.CustomerName,
		StartedAt:        occ.StartedAt,
		EstimatedMinutes: occ.EstimatedMinutes,
		Notes:            occ.Notes,
	})
	if err != nil {
		if _, undoErr := s.board.ReleaseSlot(machineID, position, now); undoErr != nil {
			s.logger.Error().Err(undoErr).Str("machine_id", machineID).Int("position", position).Msg("failed to undo occupy")
		}
		return board.Slot{}, err
	}

	s.logger.Info().Str("machine_id", machineID).Int("position", position).Int64("order_id", orderID).Int("minutes", minutes).Msg("slot occupied")
	s.publish(ctx, events.Event{
		Type:         events.SlotOccupied,
		MachineID:    machineID,
		Position:     position,
		OrderID:      occ.OrderID,
		CustomerName: occ.CustomerName,
	})
	s.metrics.SlotOperation(telemetry.OpOccupy)
	s.observe()
	return slot, nil
}

func (s *Service) findPending(ctx context.Context, orderID int64) (board.PendingOrder, error) {
	pending, err := s.store.ListPending(ctx)
	if err != nil {
		return board.PendingOrder{}, err
	}
	for _, o := range pending {
		if o.ID == orderID {
			return o, nil
		}
	}
	return board.PendingOrder{}, fmt.Errorf("%w: order %d is not waiting for a slot", board.ErrNotFound, orderID)
}

// Release empties a slot and puts its order back on the queue.
func (s *Service) Release(ctx context.Context, machineID string, position int) (board.Released, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	released, err := s.board.ReleaseSlot(machineID, position, now)
	if err != nil {
		return board.Released{}, err
	}

	if err := s.store.CloseSlot(ctx, machineID, position, released.Returned, now); err != nil {
		occ := released.Occupancy
		order := board.PendingOrder{ID: occ.OrderID, CustomerName: occ.CustomerName}
		if _, undoErr := s.board.OccupySlot(machineID, position, order, occ.EstimatedMinutes, occ.Notes, occ.StartedAt); undoErr != nil {
			s.logger.Error().Err(undoErr).Str("machine_id", machineID).Int("position", position).Msg("failed to undo release")
		}
		return board.Released{}, err
	}

	s.logger.Info().Str("machine_id", machineID).Int("position", position).Int64("order_id", released.Occupancy.OrderID).Msg("slot released")
	s.publish(ctx, events.Event{
		Type:         events.SlotReleased,
		MachineID:    machineID,
		Position:     position,
		OrderID:      released.Occupancy.OrderID,
		CustomerName: released.Occupancy.CustomerName,
	})
	s.metrics.SlotOperation(telemetry.OpRelease)
	s.observe()
	return released, nil
}

// Snapshot evaluates the board at the current time.
func (s *Service) Snapshot() board.Snapshot {
	return s.board.Snapshot(s.clock.Now())
}

// Machine returns one machine as it is now.
func (s *Service) Machine(machineID string) (board.Machine, error) {
	return s.board.Machine(machineID)
}

// CookOptions returns the configured cook times.
func (s *Service) CookOptions() CookOptions {
	return CookOptions{
		Minutes:        append([]int(nil), s.cfg.CookMinutesOptions...),
		DefaultMinutes: s.cfg.DefaultCookMinutes,
	}
}

func (s *Service) rollback(before []board.Machine) {
	if err := s.board.Restore(before); err != nil {
		s.logger.Error().Err(err).Msg("failed to roll back board")
	}
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if e.At.IsZero() {
		e.At = s.clock.Now()
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(e.Type)).Msg("failed to publish event")
	}
}

func (s *Service) observe() {
	s.metrics.ObserveSnapshot(s.board.Snapshot(s.clock.Now()))
}
