package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"rotisserie-backend/internal/board"
	"rotisserie-backend/internal/model"
)

// ListMachines returns every stored machine in creation order.
func (s *gormStore) ListMachines(ctx context.Context) ([]model.Machine, error) {
	var machines []model.Machine
	if err := s.db.WithContext(ctx).Order("seq").Find(&machines).Error; err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	return machines, nil
}

// CreateMachine inserts a machine and assigns it the next sequence number.
func (s *gormStore) CreateMachine(ctx context.Context, m *model.Machine) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		if err := tx.Model(&model.Machine{}).Select("COALESCE(MAX(seq), 0)").Scan(&maxSeq).Error; err != nil {
			return fmt.Errorf("failed to read machine sequence: %w", err)
		}
		m.Seq = maxSeq + 1
		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("failed to create machine %s: %w", m.ID, err)
		}
		return nil
	})
}

func (s *gormStore) RenameMachine(ctx context.Context, machineID, name string) error {
	res := s.db.WithContext(ctx).Model(&model.Machine{}).Where("id = ?", machineID).Update("name", name)
	if res.Error != nil {
		return fmt.Errorf("failed to rename machine %s: %w", machineID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: machine %s", ErrNotFound, machineID)
	}
	return nil
}

// DeleteMachine removes a machine. Any cooks still on it are archived as
// discarded and their orders go back to the queue.
func (s *gormStore) DeleteMachine(ctx context.Context, machineID string, now time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		queue := &gormStore{db: tx}
		var open []model.SlotOpen
		if err := tx.Where("machine_id = ?", machineID).Order("position").Find(&open).Error; err != nil {
			return fmt.Errorf("failed to fetch open slots of machine %s: %w", machineID, err)
		}
		for _, slot := range open {
			if err := archiveCook(tx, slot, now, model.OutcomeDiscarded); err != nil {
				return err
			}
			if err := queue.Enqueue(ctx, occupancyOf(slot).Returned()); err != nil {
				return err
			}
		}
		if err := tx.Where("machine_id = ?", machineID).Delete(&model.SlotOpen{}).Error; err != nil {
			return fmt.Errorf("failed to delete open slots of machine %s: %w", machineID, err)
		}
		if err := tx.Exec("DELETE FROM subscription_machine_mapping WHERE machine_id = ?", machineID).Error; err != nil {
			return fmt.Errorf("failed to unlink subscriptions from machine %s: %w", machineID, err)
		}

		res := tx.Delete(&model.Machine{}, "id = ?", machineID)
		if res.Error != nil {
			return fmt.Errorf("failed to delete machine %s: %w", machineID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: machine %s", ErrNotFound, machineID)
		}
		return nil
	})
}

func (s *gormStore) ListOpenSlots(ctx context.Context) ([]model.SlotOpen, error) {
	var open []model.SlotOpen
	if err := s.db.WithContext(ctx).Order("machine_id").Order("position").Find(&open).Error; err != nil {
		return nil, fmt.Errorf("failed to list open slots: %w", err)
	}
	return open, nil
}

// OpenSlot takes the order off the queue and records it on the slot in one transaction.
func (s *gormStore) OpenSlot(ctx context.Context, slot model.SlotOpen) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := (&gormStore{db: tx}).Remove(ctx, slot.OrderID); err != nil {
			return err
		}
		if err := tx.Create(&slot).Error; err != nil {
			return fmt.Errorf("failed to open slot %d on machine %s: %w", slot.Position, slot.MachineID, err)
		}
		return nil
	})
}

// CloseSlot archives the cook on a slot as released and enqueues returned, the
// descriptor of the order that was cooking there.
func (s *gormStore) CloseSlot(ctx context.Context, machineID string, position int, returned board.PendingOrder, now time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slot model.SlotOpen
		if err := tx.Where("machine_id = ? AND position = ?", machineID, position).First(&slot).Error; err != nil {
			if notFound(err) {
				return fmt.Errorf("%w: open slot %d on machine %s", ErrNotFound, position, machineID)
			}
			return fmt.Errorf("failed to fetch slot %d on machine %s: %w", position, machineID, err)
		}
		if slot.OrderID != returned.ID {
			return fmt.Errorf("%w: slot %d on machine %s holds order %d, not %d", ErrInvalid, position, machineID, slot.OrderID, returned.ID)
		}
		if err := archiveCook(tx, slot, now, model.OutcomeReleased); err != nil {
			return err
		}
		if err := tx.Where("machine_id = ? AND position = ?", machineID, position).Delete(&model.SlotOpen{}).Error; err != nil {
			return fmt.Errorf("failed to delete slot %d on machine %s: %w", position, machineID, err)
		}
		return (&gormStore{db: tx}).Enqueue(ctx, returned)
	})
}

// archiveCook moves a finished or abandoned cook into the history table.
func archiveCook(tx *gorm.DB, slot model.SlotOpen, endedAt time.Time, outcome model.CookOutcome) error {
	history := model.CookHistory{
		MachineID:        slot.MachineID,
		Position:         slot.Position,
		OrderID:          slot.OrderID,
		CustomerName:     slot.CustomerName,
		StartedAt:        slot.StartedAt,
		EndedAt:          endedAt,
		EstimatedMinutes: slot.EstimatedMinutes,
		Outcome:          outcome,
	}
	if err := tx.Create(&history).Error; err != nil {
		return fmt.Errorf("failed to archive cook of order %d: %w", slot.OrderID, err)
	}
	return nil
}

func occupancyOf(slot model.SlotOpen) board.Occupancy {
	return board.Occupancy{
		OrderID:          slot.OrderID,
		CustomerName:     slot.CustomerName,
		StartedAt:        slot.StartedAt,
		EstimatedMinutes: slot.EstimatedMinutes,
		Notes:            slot.Notes,
	}
}
