package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"rotisserie-backend/internal/board"
	"rotisserie-backend/internal/model"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInUse is returned when a record cannot be deleted because others depend on it.
	ErrInUse = errors.New("record in use")
	// ErrInvalid is returned for records that fail validation.
	ErrInvalid = errors.New("invalid record")
)

// CustomerStore manages customers.
type CustomerStore interface {
	CreateCustomer(ctx context.Context, c *model.Customer) error
	GetCustomer(ctx context.Context, id int64) (*model.Customer, error)
	FindCustomerByPhone(ctx context.Context, phone string) (*model.Customer, error)
	ListCustomers(ctx context.Context, query string) ([]model.Customer, error)
	UpdateCustomer(ctx context.Context, id int64, upd CustomerUpdate) (*model.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) (*model.Customer, error)
}

// OrderStore manages orders.
type OrderStore interface {
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]model.Order, error)
	UpdateOrder(ctx context.Context, id int64, upd OrderUpdate) (*model.Order, error)
	DeleteOrder(ctx context.Context, id int64) (*model.Order, error)
}

// OrderQueue is the queue of orders waiting for a machine slot.
type OrderQueue interface {
	ListPending(ctx context.Context) ([]board.PendingOrder, error)
	Remove(ctx context.Context, orderID int64) error
	Enqueue(ctx context.Context, order board.PendingOrder) error
}

// BoardStore persists machines and the slots cooking on them.
type BoardStore interface {
	ListMachines(ctx context.Context) ([]model.Machine, error)
	CreateMachine(ctx context.Context, m *model.Machine) error
	RenameMachine(ctx context.Context, machineID, name string) error
	DeleteMachine(ctx context.Context, machineID string, now time.Time) error
	ListOpenSlots(ctx context.Context) ([]model.SlotOpen, error)
	OpenSlot(ctx context.Context, slot model.SlotOpen) error
	CloseSlot(ctx context.Context, machineID string, position int, returned board.PendingOrder, now time.Time) error
}

// SubscriptionStore manages web push subscriptions.
type SubscriptionStore interface {
	PutSubscription(ctx context.Context, sub *model.PushSubscription, machineIDs []string) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	ListSubscriptionsForMachine(ctx context.Context, machineID string) ([]model.PushSubscription, error)
}

// Store defines the interface for all database operations.
type Store interface {
	CustomerStore
	OrderStore
	OrderQueue
	BoardStore
	SubscriptionStore
	Stats(ctx context.Context, now time.Time) (DashboardStats, error)
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying connection for health checks.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
