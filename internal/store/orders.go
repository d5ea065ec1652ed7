package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"rotisserie-backend/internal/model"
)

func validateOrder(o *model.Order) error {
	o.Description = strings.TrimSpace(o.Description)
	o.Notes = strings.TrimSpace(o.Notes)
	switch {
	case o.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive", ErrInvalid)
	case o.UnitPrice <= 0:
		return fmt.Errorf("%w: unit price must be positive", ErrInvalid)
	case len(o.Notes) > maxNotesLength:
		return fmt.Errorf("%w: notes longer than %d characters", ErrInvalid, maxNotesLength)
	}
	return nil
}

// CreateOrder validates and inserts a new pending order for an existing customer.
func (s *gormStore) CreateOrder(ctx context.Context, o *model.Order) error {
	if err := validateOrder(o); err != nil {
		return err
	}
	if _, err := s.GetCustomer(ctx, o.CustomerID); err != nil {
		return err
	}
	if o.OrderedAt.IsZero() {
		o.OrderedAt = time.Now().UTC()
	}
	o.Stage = model.StagePending
	o.Delivered = false

	if err := s.db.WithContext(ctx).Omit("Customer").Create(o).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (s *gormStore) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	var o model.Order
	if err := s.db.WithContext(ctx).Preload("Customer").First(&o, id).Error; err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	return &o, nil
}

// ListOrders returns orders newest first, narrowed by filter.
func (s *gormStore) ListOrders(ctx context.Context, filter OrderFilter) ([]model.Order, error) {
	if !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status filter %q", ErrInvalid, filter.Status)
	}

	tx := s.db.WithContext(ctx).Model(&model.Order{}).Preload("Customer")
	tx = applyStatusFilter(tx, filter.Status)
	if filter.CustomerID != 0 {
		tx = tx.Where("orders.customer_id = ?", filter.CustomerID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Joins("JOIN customers ON customers.id = orders.customer_id").
			Where("LOWER(customers.name) LIKE ? OR LOWER(orders.description) LIKE ? OR CAST(orders.id AS TEXT) LIKE ?", like, like, like)
	}

	var orders []model.Order
	if err := tx.Order("orders.ordered_at DESC").Order("orders.id DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func applyStatusFilter(tx *gorm.DB, status OrderStatusFilter) *gorm.DB {
	switch status {
	case FilterUnpaid:
		return tx.Where("orders.paid = ?", false)
	case FilterUndelivered:
		return tx.Where("orders.delivered = ?", false)
	case FilterOpen:
		return tx.Where("orders.paid = ? OR orders.delivered = ?", false, false)
	case FilterAwaitingDelivery:
		return tx.Where("orders.paid = ? AND orders.delivered = ?", true, false)
	case FilterFinished:
		return tx.Where("orders.paid = ? AND orders.delivered = ?", true, true)
	}
	return tx
}

// UpdateOrder applies a partial update. An order cannot be marked delivered
// while it is still cooking; the stage is checked again by the write itself.
func (s *gormStore) UpdateOrder(ctx context.Context, id int64, upd OrderUpdate) (*model.Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o model.Order
		if err := tx.First(&o, id).Error; err != nil {
			if notFound(err) {
				return fmt.Errorf("%w: order %d", ErrNotFound, id)
			}
			return fmt.Errorf("failed to fetch order %d: %w", id, err)
		}

		if upd.Quantity != nil {
			o.Quantity = *upd.Quantity
		}
		if upd.UnitPrice != nil {
			o.UnitPrice = *upd.UnitPrice
		}
		if upd.Description != nil {
			o.Description = *upd.Description
		}
		if upd.Notes != nil {
			o.Notes = *upd.Notes
		}
		if upd.Paid != nil {
			o.Paid = *upd.Paid
		}
		if upd.Delivered != nil {
			o.Delivered = *upd.Delivered
		}
		if err := validateOrder(&o); err != nil {
			return err
		}
		if o.Delivered && o.Stage == model.StageCooking {
			return fmt.Errorf("%w: order %d is still cooking", ErrInUse, id)
		}

		q := tx.Model(&model.Order{}).Where("id = ?", id)
		if o.Delivered {
			q = q.Where("stage <> ?", model.StageCooking)
		}
		res := q.Updates(map[string]any{
			"quantity":    o.Quantity,
			"unit_price":  o.UnitPrice,
			"description": o.Description,
			"notes":       o.Notes,
			"paid":        o.Paid,
			"delivered":   o.Delivered,
		})
		if res.Error != nil {
			return fmt.Errorf("failed to update order %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: order %d went on a machine", ErrInUse, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, id)
}

// DeleteOrder removes an order that is not on a machine.
func (s *gormStore) DeleteOrder(ctx context.Context, id int64) (*model.Order, error) {
	var o model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Customer").First(&o, id).Error; err != nil {
			if notFound(err) {
				return fmt.Errorf("%w: order %d", ErrNotFound, id)
			}
			return fmt.Errorf("failed to fetch order %d: %w", id, err)
		}
		if o.Stage == model.StageCooking {
			return fmt.Errorf("%w: order %d is cooking", ErrInUse, id)
		}

		res := tx.Where("id = ? AND stage <> ?", id, model.StageCooking).Delete(&model.Order{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete order %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: order %d went on a machine", ErrInUse, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}
