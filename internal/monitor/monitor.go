// Package monitor watches the board for cooks that become ready.
package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"rotisserie-backend/internal/board"
	"rotisserie-backend/internal/events"
	"rotisserie-backend/internal/notification"
	"rotisserie-backend/internal/telemetry"
)

// Snapshotter provides the current board state.
type Snapshotter interface {
	Snapshot() board.Snapshot
}

// Dispatcher queues ready alerts for delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert notification.ReadyAlert) bool
}

// slotKey identifies one cook. A new order in the same slot is a new key.
type slotKey struct {
	machineID string
	position  int
	orderID   int64
}

// Service periodically checks the board and announces newly ready slots.
type Service struct {
	board      Snapshotter
	interval   time.Duration
	events     events.Publisher
	dispatcher Dispatcher
	metrics    *telemetry.Metrics
	logger     zerolog.Logger

	ready map[slotKey]struct{}
}

// NewService creates a monitor. dispatcher may be nil when push is disabled.
func NewService(b Snapshotter, interval time.Duration, pub events.Publisher, dispatcher Dispatcher, metrics *telemetry.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		board:      b,
		interval:   interval,
		events:     pub,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger.With().Str("component", "monitor").Logger(),
		ready:      make(map[slotKey]struct{}),
	}
}

// Run checks the board every interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("starting readiness monitor")

	s.CheckOnce(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("readiness monitor shutting down")
			return
		case <-timer.C:
			s.CheckOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

// Seed marks every slot that is already Ready as announced, without alerting.
// Call it once at startup so a restart does not repeat alerts the previous
// process already sent. It returns how many slots were marked.
func (s *Service) Seed() int {
	snap := s.board.Snapshot()
	for _, m := range snap.Machines {
		for _, slot := range m.Slots {
			if slot.Status == board.StatusReady && slot.Occupancy != nil {
				s.ready[slotKey{machineID: m.ID, position: slot.Position, orderID: slot.Occupancy.OrderID}] = struct{}{}
			}
		}
	}
	if len(s.ready) > 0 {
		s.logger.Info().Int("ready", len(s.ready)).Msg("slots already ready at startup, not alerting again")
	}
	return len(s.ready)
}

// CheckOnce takes one snapshot, refreshes the gauges and announces every slot
// that turned ready since the previous check. It returns the new alerts.
func (s *Service) CheckOnce(ctx context.Context) []notification.ReadyAlert {
	snap := s.board.Snapshot()
	s.metrics.ObserveSnapshot(snap)

	current := make(map[slotKey]struct{}, snap.ReadyCount)
	var alerts []notification.ReadyAlert
	for _, m := range snap.Machines {
		for _, slot := range m.Slots {
			if slot.Status != board.StatusReady || slot.Occupancy == nil {
				continue
			}
			key := slotKey{machineID: m.ID, position: slot.Position, orderID: slot.Occupancy.OrderID}
			current[key] = struct{}{}
			if _, seen := s.ready[key]; seen {
				continue
			}
			alerts = append(alerts, notification.ReadyAlert{
				MachineID:    m.ID,
				MachineName:  m.Name,
				Position:     slot.Position,
				OrderID:      slot.Occupancy.OrderID,
				CustomerName: slot.Occupancy.CustomerName,
			})
		}
	}
	// Released slots drop out so a later cook in the same slot alerts again.
	s.ready = current

	for _, a := range alerts {
		s.announce(ctx, a, snap.At)
	}
	if len(alerts) > 0 {
		s.logger.Info().Int("ready", len(alerts)).Msg("slots became ready")
	}
	return alerts
}

func (s *Service) announce(ctx context.Context, a notification.ReadyAlert, at time.Time) {
	s.metrics.SlotOperation(telemetry.OpReady)

	err := s.events.Publish(ctx, events.Event{
		Type:         events.SlotReady,
		MachineID:    a.MachineID,
		MachineName:  a.MachineName,
		Position:     a.Position,
		OrderID:      a.OrderID,
		CustomerName: a.CustomerName,
		At:           at,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("machine_id", a.MachineID).Int("position", a.Position).Msg("failed to publish ready event")
	}

	if s.dispatcher != nil && !s.dispatcher.Dispatch(ctx, a) {
		s.logger.Warn().Str("machine_id", a.MachineID).Int("position", a.Position).Msg("ready alert dropped")
	}
}
