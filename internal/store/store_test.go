package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"rotisserie-backend/internal/board"
	"rotisserie-backend/internal/db/dbtest"
	"rotisserie-backend/internal/model"
)

var baseTime = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func newTestStore(t *testing.T) Store {
	return NewGormStore(dbtest.NewSQLite(t))
}

func seedCustomer(t *testing.T, s Store, name, phone string) *model.Customer {
	c := &model.Customer{Name: name, Phone: phone}
	require.NoError(t, s.CreateCustomer(context.Background(), c))
	return c
}

func seedOrder(t *testing.T, s Store, customerID int64, qty int, price float64, orderedAt time.Time) *model.Order {
	o := &model.Order{CustomerID: customerID, Quantity: qty, UnitPrice: price, Description: "whole chicken", OrderedAt: orderedAt}
	require.NoError(t, s.CreateOrder(context.Background(), o))
	return o
}

func seedMachine(t *testing.T, s Store, id, name string) *model.Machine {
	m := &model.Machine{ID: id, Name: name, Active: true}
	require.NoError(t, s.CreateMachine(context.Background(), m))
	return m
}

func TestCustomers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ana := seedCustomer(t, s, "  Ana Souza ", "+55 (11) 98765-4321")
	assert.Equal(t, "Ana Souza", ana.Name)
	assert.Equal(t, "11987654321", ana.Phone)
	seedCustomer(t, s, "Bruno Lima", "(21) 3456-7890")

	t.Run("invalid phone", func(t *testing.T) {
		err := s.CreateCustomer(ctx, &model.Customer{Name: "X", Phone: "123"})
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("blank name", func(t *testing.T) {
		err := s.CreateCustomer(ctx, &model.Customer{Name: "  ", Phone: "11987654321"})
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("find by phone in any format", func(t *testing.T) {
		found, err := s.FindCustomerByPhone(ctx, "011 98765 4321")
		require.NoError(t, err)
		assert.Equal(t, ana.ID, found.ID)

		_, err = s.FindCustomerByPhone(ctx, "(31) 99999-0000")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list with query", func(t *testing.T) {
		all, err := s.ListCustomers(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Ana Souza", all[0].Name)

		byName, err := s.ListCustomers(ctx, "bruno")
		require.NoError(t, err)
		require.Len(t, byName, 1)
		assert.Equal(t, "Bruno Lima", byName[0].Name)

		byPhone, err := s.ListCustomers(ctx, "98765")
		require.NoError(t, err)
		require.Len(t, byPhone, 1)
		assert.Equal(t, ana.ID, byPhone[0].ID)
	})

	t.Run("update", func(t *testing.T) {
		name := "Ana S. Souza"
		updated, err := s.UpdateCustomer(ctx, ana.ID, CustomerUpdate{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, name, updated.Name)
		assert.Equal(t, "11987654321", updated.Phone)

		bad := "12"
		_, err = s.UpdateCustomer(ctx, ana.ID, CustomerUpdate{Phone: &bad})
		assert.ErrorIs(t, err, ErrInvalid)

		_, err = s.UpdateCustomer(ctx, 9999, CustomerUpdate{Name: &name})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete refuses customers with orders", func(t *testing.T) {
		seedOrder(t, s, ana.ID, 1, 50, baseTime)
		_, err := s.DeleteCustomer(ctx, ana.ID)
		assert.ErrorIs(t, err, ErrInUse)

		all, err := s.ListCustomers(ctx, "bruno")
		require.NoError(t, err)
		deleted, err := s.DeleteCustomer(ctx, all[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "Bruno Lima", deleted.Name)

		_, err = s.GetCustomer(ctx, all[0].ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestOrders(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ana := seedCustomer(t, s, "Ana Souza", "11987654321")
	bruno := seedCustomer(t, s, "Bruno Lima", "2134567890")

	first := seedOrder(t, s, ana.ID, 2, 45.5, baseTime.Add(-2*time.Hour))
	second := seedOrder(t, s, bruno.ID, 1, 50, baseTime.Add(-time.Hour))

	t.Run("create validates", func(t *testing.T) {
		testCases := []struct {
			name  string
			order model.Order
			err   error
		}{
			{"zero quantity", model.Order{CustomerID: ana.ID, Quantity: 0, UnitPrice: 10}, ErrInvalid},
			{"negative price", model.Order{CustomerID: ana.ID, Quantity: 1, UnitPrice: -1}, ErrInvalid},
			{"unknown customer", model.Order{CustomerID: 999, Quantity: 1, UnitPrice: 10}, ErrNotFound},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				o := tc.order
				assert.ErrorIs(t, s.CreateOrder(ctx, &o), tc.err)
			})
		}
	})

	t.Run("get preloads customer", func(t *testing.T) {
		o, err := s.GetOrder(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ana Souza", o.Customer.Name)
		assert.Equal(t, model.StagePending, o.Stage)
		assert.InDelta(t, 91.0, o.Total(), 0.001)
	})

	t.Run("list newest first with filters", func(t *testing.T) {
		all, err := s.ListOrders(ctx, OrderFilter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, second.ID, all[0].ID)
		assert.Equal(t, "Bruno Lima", all[0].Customer.Name)

		paid := true
		_, err = s.UpdateOrder(ctx, first.ID, OrderUpdate{Paid: &paid})
		require.NoError(t, err)

		unpaid, err := s.ListOrders(ctx, OrderFilter{Status: FilterUnpaid})
		require.NoError(t, err)
		require.Len(t, unpaid, 1)
		assert.Equal(t, second.ID, unpaid[0].ID)

		awaiting, err := s.ListOrders(ctx, OrderFilter{Status: FilterAwaitingDelivery})
		require.NoError(t, err)
		require.Len(t, awaiting, 1)
		assert.Equal(t, first.ID, awaiting[0].ID)

		byName, err := s.ListOrders(ctx, OrderFilter{Query: "ANA"})
		require.NoError(t, err)
		require.Len(t, byName, 1)
		assert.Equal(t, first.ID, byName[0].ID)
		assert.Equal(t, "Ana Souza", byName[0].Customer.Name)

		byCustomer, err := s.ListOrders(ctx, OrderFilter{CustomerID: bruno.ID})
		require.NoError(t, err)
		require.Len(t, byCustomer, 1)

		_, err = s.ListOrders(ctx, OrderFilter{Status: "bogus"})
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("cooking orders cannot be delivered or deleted", func(t *testing.T) {
		require.NoError(t, s.Remove(ctx, second.ID))

		delivered := true
		_, err := s.UpdateOrder(ctx, second.ID, OrderUpdate{Delivered: &delivered})
		assert.ErrorIs(t, err, ErrInUse)
		_, err = s.DeleteOrder(ctx, second.ID)
		assert.ErrorIs(t, err, ErrInUse)

		require.NoError(t, s.Enqueue(ctx, board.PendingOrder{ID: second.ID}))
		deleted, err := s.DeleteOrder(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, deleted.ID)
	})
}

func TestOrderQueue(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ana := seedCustomer(t, s, "Ana Souza", "11987654321")

	late := seedOrder(t, s, ana.ID, 1, 40, baseTime)
	early := seedOrder(t, s, ana.ID, 3, 10, baseTime.Add(-time.Hour))

	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, early.ID, pending[0].ID)
	assert.Equal(t, "Ana Souza", pending[0].CustomerName)
	assert.InDelta(t, 30.0, pending[0].Price, 0.001)

	require.NoError(t, s.Remove(ctx, early.ID))
	assert.ErrorIs(t, s.Remove(ctx, early.ID), ErrNotFound, "already off the queue")

	pending, err = s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, late.ID, pending[0].ID)

	// The returned descriptor does not overwrite the stored order.
	require.NoError(t, s.Enqueue(ctx, board.PendingOrder{ID: early.ID, Description: board.ReturnedDescription}))
	o, err := s.GetOrder(ctx, early.ID)
	require.NoError(t, err)
	assert.Equal(t, "whole chicken", o.Description)
	assert.InDelta(t, 10.0, o.UnitPrice, 0.001)
	assert.Equal(t, model.StagePending, o.Stage)

	assert.ErrorIs(t, s.Enqueue(ctx, board.PendingOrder{ID: 424242}), ErrNotFound)
}

func TestMachinesAndSlots(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ana := seedCustomer(t, s, "Ana Souza", "11987654321")
	order := seedOrder(t, s, ana.ID, 1, 50, baseTime)

	m1 := seedMachine(t, s, "m-1", "Main Machine")
	m2 := seedMachine(t, s, "m-2", "Second")
	assert.Equal(t, int64(1), m1.Seq)
	assert.Equal(t, int64(2), m2.Seq)

	require.NoError(t, s.RenameMachine(ctx, "m-2", "Back Oven"))
	assert.ErrorIs(t, s.RenameMachine(ctx, "nope", "x"), ErrNotFound)

	machines, err := s.ListMachines(ctx)
	require.NoError(t, err)
	require.Len(t, machines, 2)
	assert.Equal(t, "m-1", machines[0].ID)
	assert.Equal(t, "Back Oven", machines[1].Name)

	slot := model.SlotOpen{MachineID: "m-1", Position: 3, OrderID: order.ID, CustomerName: "Ana Souza", StartedAt: baseTime, EstimatedMinutes: 45}

	t.Run("open slot dequeues the order", func(t *testing.T) {
		require.NoError(t, s.OpenSlot(ctx, slot))

		o, err := s.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StageCooking, o.Stage)

		pending, err := s.ListPending(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)

		open, err := s.ListOpenSlots(ctx)
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, 3, open[0].Position)
	})

	t.Run("open slot with a non pending order fails atomically", func(t *testing.T) {
		other := slot
		other.Position = 4
		err := s.OpenSlot(ctx, other)
		assert.ErrorIs(t, err, ErrNotFound)

		open, err := s.ListOpenSlots(ctx)
		require.NoError(t, err)
		assert.Len(t, open, 1)
	})

	t.Run("close slot archives and requeues", func(t *testing.T) {
		returned := board.PendingOrder{ID: order.ID, CustomerName: "Ana Souza", Description: board.ReturnedDescription}
		assert.ErrorIs(t, s.CloseSlot(ctx, "m-1", 3, board.PendingOrder{ID: order.ID + 100}, baseTime), ErrInvalid,
			"the returned order must be the one on the slot")

		require.NoError(t, s.CloseSlot(ctx, "m-1", 3, returned, baseTime.Add(50*time.Minute)))
		assert.ErrorIs(t, s.CloseSlot(ctx, "m-1", 3, returned, baseTime), ErrNotFound)

		open, err := s.ListOpenSlots(ctx)
		require.NoError(t, err)
		assert.Empty(t, open)

		var history []model.CookHistory
		require.NoError(t, s.DB().Find(&history).Error)
		require.Len(t, history, 1)
		assert.Equal(t, model.OutcomeReleased, history[0].Outcome)
		assert.Equal(t, order.ID, history[0].OrderID)

		o, err := s.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StagePending, o.Stage)
	})

	t.Run("delete machine discards its cooks", func(t *testing.T) {
		onSecond := slot
		onSecond.MachineID = "m-2"
		require.NoError(t, s.OpenSlot(ctx, onSecond))
		require.NoError(t, s.PutSubscription(ctx, &model.PushSubscription{Endpoint: "https://push/1", P256DH: "k", Auth: "a"}, []string{"m-2"}))

		require.NoError(t, s.DeleteMachine(ctx, "m-2", baseTime.Add(time.Hour)))
		assert.ErrorIs(t, s.DeleteMachine(ctx, "m-2", baseTime), ErrNotFound)

		var discarded []model.CookHistory
		require.NoError(t, s.DB().Where("outcome = ?", model.OutcomeDiscarded).Find(&discarded).Error)
		require.Len(t, discarded, 1)

		o, err := s.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StagePending, o.Stage)

		sub, err := s.GetSubscription(ctx, "https://push/1")
		require.NoError(t, err)
		assert.Empty(t, sub.Machines)

		machines, err := s.ListMachines(ctx)
		require.NoError(t, err)
		assert.Len(t, machines, 1)
	})
}

func TestSubscriptions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedMachine(t, s, "m-1", "Main Machine")
	seedMachine(t, s, "m-2", "Second")

	sub := &model.PushSubscription{Endpoint: "https://push.example/abc", P256DH: "p256", Auth: "auth"}
	require.NoError(t, s.PutSubscription(ctx, sub, []string{"m-1", "m-2", "ghost"}))

	got, err := s.GetSubscription(ctx, sub.Endpoint)
	require.NoError(t, err)
	assert.Len(t, got.Machines, 2)

	// Replacing narrows the machine list and refreshes keys.
	replacement := &model.PushSubscription{Endpoint: sub.Endpoint, P256DH: "new", Auth: "new-auth"}
	require.NoError(t, s.PutSubscription(ctx, replacement, []string{"m-2"}))
	got, err = s.GetSubscription(ctx, sub.Endpoint)
	require.NoError(t, err)
	require.Len(t, got.Machines, 1)
	assert.Equal(t, "m-2", got.Machines[0].ID)
	assert.Equal(t, "new", got.P256DH)

	followers, err := s.ListSubscriptionsForMachine(ctx, "m-2")
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, sub.Endpoint, followers[0].Endpoint)

	followers, err = s.ListSubscriptionsForMachine(ctx, "m-1")
	require.NoError(t, err)
	assert.Empty(t, followers)

	require.NoError(t, s.DeleteSubscription(ctx, sub.Endpoint))
	require.NoError(t, s.DeleteSubscription(ctx, sub.Endpoint))
	_, err = s.GetSubscription(ctx, sub.Endpoint)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ana := seedCustomer(t, s, "Ana Souza", "11987654321")
	seedCustomer(t, s, "Bruno Lima", "2134567890")

	yesterday := seedOrder(t, s, ana.ID, 1, 100, baseTime.Add(-24*time.Hour))
	paidToday := seedOrder(t, s, ana.ID, 2, 45, baseTime.Add(-time.Hour))
	seedOrder(t, s, ana.ID, 1, 50, baseTime.Add(-30*time.Minute))

	paid, delivered := true, true
	_, err := s.UpdateOrder(ctx, paidToday.ID, OrderUpdate{Paid: &paid})
	require.NoError(t, err)
	_, err = s.UpdateOrder(ctx, yesterday.ID, OrderUpdate{Paid: &paid, Delivered: &delivered})
	require.NoError(t, err)

	stats, err := s.Stats(ctx, baseTime)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalCustomers)
	assert.Equal(t, int64(2), stats.OrdersToday)
	assert.InDelta(t, 90.0, stats.RevenueToday, 0.001)
	assert.Equal(t, int64(2), stats.OpenOrders)
	assert.Equal(t, int64(2), stats.PendingOrders)
	assert.Equal(t, int64(1), stats.UnpaidOrders)
	assert.Equal(t, int64(1), stats.DeliveredOrders)
}

func TestListPending_QueryError(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WillReturnError(errors.New("connection reset"))

	_, err := s.ListPending(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list pending orders")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseSlot_RollsBackOnArchiveFailure(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "slot_opens"`)).
		WithArgs("m-1", 2, 1).
		WillReturnRows(sqlmock.NewRows([]string{"machine_id", "position", "order_id", "customer_name", "started_at", "estimated_minutes", "notes"}).
			AddRow("m-1", 2, 7, "Ana", baseTime, 45, ""))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "cook_histories"`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.CloseSlot(context.Background(), "m-1", 2, board.PendingOrder{ID: 7}, baseTime)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to archive cook of order 7")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func orderRows(stage model.OrderStage) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "customer_id", "quantity", "unit_price", "description", "notes", "paid", "delivered", "stage", "ordered_at", "updated_at"}).
		AddRow(5, 1, 1, 50.0, "whole chicken", "", true, false, stage, baseTime, baseTime)
}

// An order that goes on a machine between the read and the write must not
// end up delivered while cooking.
func TestUpdateOrder_DeliveredRejectedWhenStageChanges(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WillReturnRows(orderRows(model.StagePending))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	delivered := true
	_, err := s.UpdateOrder(context.Background(), 5, OrderUpdate{Delivered: &delivered})
	assert.ErrorIs(t, err, ErrInUse)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOrder_RejectedWhenStageChanges(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WillReturnRows(orderRows(model.StagePending))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "customers"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "phone", "created_at", "updated_at"}).
			AddRow(1, "Ana", "11987654321", baseTime, baseTime))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "orders"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.DeleteOrder(context.Background(), 5)
	assert.ErrorIs(t, err, ErrInUse)
	assert.NoError(t, mock.ExpectationsWereMet())
}
