package store

import (
	"context"
	"fmt"

	"rotisserie-backend/internal/board"
	"rotisserie-backend/internal/model"
)

// ListPending returns the orders waiting for a slot, oldest first.
func (s *gormStore) ListPending(ctx context.Context) ([]board.PendingOrder, error) {
	var orders []model.Order
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Where("stage = ? AND delivered = ?", model.StagePending, false).
		Order("ordered_at").Order("id").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending orders: %w", err)
	}

	pending := make([]board.PendingOrder, 0, len(orders))
	for _, o := range orders {
		pending = append(pending, toPendingOrder(o))
	}
	return pending, nil
}

func toPendingOrder(o model.Order) board.PendingOrder {
	return board.PendingOrder{
		ID:           o.ID,
		CustomerName: o.Customer.Name,
		Description:  o.Description,
		Price:        o.Total(),
		Paid:         o.Paid,
		Delivered:    o.Delivered,
	}
}

// Remove takes a pending order off the queue by moving it to the cooking stage.
func (s *gormStore) Remove(ctx context.Context, orderID int64) error {
	res := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND stage = ?", orderID, model.StagePending).
		Update("stage", model.StageCooking)
	if res.Error != nil {
		return fmt.Errorf("failed to dequeue order %d: %w", orderID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: pending order %d", ErrNotFound, orderID)
	}
	return nil
}

// Enqueue puts an order back on the queue. The stored order keeps its own
// description, price and payment state; only its stage changes.
func (s *gormStore) Enqueue(ctx context.Context, order board.PendingOrder) error {
	res := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", order.ID).
		Update("stage", model.StagePending)
	if res.Error != nil {
		return fmt.Errorf("failed to enqueue order %d: %w", order.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: order %d", ErrNotFound, order.ID)
	}
	return nil
}
