package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rotisserie-backend/internal/model"
)

// PutSubscription creates or replaces a push subscription together with the
// machines it wants ready alerts for. Unknown machine ids are ignored.
func (s *gormStore) PutSubscription(ctx context.Context, sub *model.PushSubscription, machineIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Machines").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(sub).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		machines := []*model.Machine{}
		if len(machineIDs) > 0 {
			if err := tx.Where("id IN ?", machineIDs).Order("seq").Find(&machines).Error; err != nil {
				return fmt.Errorf("failed to fetch subscribed machines: %w", err)
			}
		}

		if err := tx.Model(sub).Association("Machines").Replace(machines); err != nil {
			return fmt.Errorf("failed to link subscribed machines: %w", err)
		}
		sub.Machines = machines
		return nil
	})
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Preload("Machines").First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%w: subscription", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

// DeleteSubscription removes a subscription and its machine links. Deleting an
// unknown endpoint is not an error.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	sub := model.PushSubscription{Endpoint: endpoint}
	if err := s.db.WithContext(ctx).Select("Machines").Delete(&sub).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// ListSubscriptionsForMachine returns the subscriptions that follow a machine.
func (s *gormStore) ListSubscriptionsForMachine(ctx context.Context, machineID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_machine_mapping ON subscription_machine_mapping.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("subscription_machine_mapping.machine_id = ?", machineID).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions for machine %s: %w", machineID, err)
	}
	return subs, nil
}
