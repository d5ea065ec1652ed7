package store

import (
	"context"
	"fmt"
	"strings"

	"rotisserie-backend/internal/model"
	"rotisserie-backend/internal/parse"
)

func normalizeCustomer(c *model.Customer) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("%w: customer name is required", ErrInvalid)
	}
	phone, err := parse.ParsePhone(c.Phone)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	c.Phone = phone.Digits()
	return nil
}

// CreateCustomer validates and inserts a customer. The phone is stored as national digits.
func (s *gormStore) CreateCustomer(ctx context.Context, c *model.Customer) error {
	if err := normalizeCustomer(c); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func (s *gormStore) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	var c model.Customer
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%w: customer %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get customer %d: %w", id, err)
	}
	return &c, nil
}

// FindCustomerByPhone looks a customer up by any spelling of their phone number.
func (s *gormStore) FindCustomerByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	parsed, err := parse.ParsePhone(phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var c model.Customer
	if err := s.db.WithContext(ctx).Where("phone = ?", parsed.Digits()).Order("id").First(&c).Error; err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%w: customer with phone %s", ErrNotFound, parsed)
		}
		return nil, fmt.Errorf("failed to find customer by phone: %w", err)
	}
	return &c, nil
}

// ListCustomers returns customers ordered by name, optionally filtered by a
// case-insensitive name fragment or a phone fragment.
func (s *gormStore) ListCustomers(ctx context.Context, query string) ([]model.Customer, error) {
	tx := s.db.WithContext(ctx).Order("name").Order("id")
	if q := strings.TrimSpace(query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		if digits := parse.DigitsOnly(q); digits != "" {
			tx = tx.Where("LOWER(name) LIKE ? OR phone LIKE ?", like, "%"+digits+"%")
		} else {
			tx = tx.Where("LOWER(name) LIKE ?", like)
		}
	}

	var customers []model.Customer
	if err := tx.Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

func (s *gormStore) UpdateCustomer(ctx context.Context, id int64, upd CustomerUpdate) (*model.Customer, error) {
	c, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.Phone != nil {
		c.Phone = *upd.Phone
	}
	if err := normalizeCustomer(c); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(c).Updates(map[string]any{
		"name":  c.Name,
		"phone": c.Phone,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to update customer %d: %w", id, err)
	}
	return c, nil
}

// DeleteCustomer removes a customer who has no orders.
func (s *gormStore) DeleteCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	c, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	var orders int64
	if err := s.db.WithContext(ctx).Model(&model.Order{}).Where("customer_id = ?", id).Count(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders of customer %d: %w", id, err)
	}
	if orders > 0 {
		return nil, fmt.Errorf("%w: customer %d has %d orders", ErrInUse, id, orders)
	}

	if err := s.db.WithContext(ctx).Delete(&model.Customer{}, id).Error; err != nil {
		return nil, fmt.Errorf("failed to delete customer %d: %w", id, err)
	}
	return c, nil
}
