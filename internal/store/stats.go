package store

import (
	"context"
	"fmt"
	"time"

	"rotisserie-backend/internal/model"
)

// Stats computes the dashboard headline numbers. "Today" starts at midnight in
// now's location.
func (s *gormStore) Stats(ctx context.Context, now time.Time) (DashboardStats, error) {
	var stats DashboardStats
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	db := s.db.WithContext(ctx)

	if err := db.Model(&model.Customer{}).Count(&stats.TotalCustomers).Error; err != nil {
		return stats, fmt.Errorf("failed to count customers: %w", err)
	}

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.OrdersToday, "ordered_at >= ?", []any{startOfDay}},
		{&stats.OpenOrders, "paid = ? OR delivered = ?", []any{false, false}},
		{&stats.PendingOrders, "stage = ? AND delivered = ?", []any{model.StagePending, false}},
		{&stats.UnpaidOrders, "paid = ?", []any{false}},
		{&stats.DeliveredOrders, "delivered = ?", []any{true}},
	}
	for _, c := range counts {
		if err := db.Model(&model.Order{}).Where(c.query, c.args...).Count(c.dst).Error; err != nil {
			return stats, fmt.Errorf("failed to count orders (%s): %w", c.query, err)
		}
	}

	if err := db.Model(&model.Order{}).
		Select("COALESCE(SUM(quantity * unit_price), 0)").
		Where("paid = ? AND ordered_at >= ?", true, startOfDay).
		Scan(&stats.RevenueToday).Error; err != nil {
		return stats, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return stats, nil
}
