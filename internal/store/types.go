package store

// CustomerUpdate carries the fields of a partial customer update; nil fields are left alone.
type CustomerUpdate struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// OrderUpdate carries the fields of a partial order update; nil fields are left alone.
type OrderUpdate struct {
	Quantity    *int     `json:"quantity"`
	UnitPrice   *float64 `json:"unitPrice"`
	Description *string  `json:"description"`
	Notes       *string  `json:"notes"`
	Paid        *bool    `json:"paid"`
	Delivered   *bool    `json:"delivered"`
}

// OrderStatusFilter selects orders by payment and delivery state.
type OrderStatusFilter string

const (
	FilterAll         OrderStatusFilter = "all"
	FilterUnpaid      OrderStatusFilter = "unpaid"
	FilterUndelivered OrderStatusFilter = "undelivered"
	// FilterOpen matches orders not yet paid or not yet delivered.
	FilterOpen OrderStatusFilter = "open"
	// FilterAwaitingDelivery matches paid orders still to be handed over.
	FilterAwaitingDelivery OrderStatusFilter = "awaiting_delivery"
	// FilterFinished matches paid and delivered orders.
	FilterFinished OrderStatusFilter = "finished"
)

// Valid reports whether f is a known filter. The empty filter means all.
func (f OrderStatusFilter) Valid() bool {
	switch f {
	case "", FilterAll, FilterOpen, FilterUnpaid, FilterUndelivered, FilterAwaitingDelivery, FilterFinished:
		return true
	}
	return false
}

// OrderFilter narrows ListOrders.
type OrderFilter struct {
	Status     OrderStatusFilter
	Query      string // matches customer name, description or order id
	CustomerID int64
}

// DashboardStats are the headline numbers shown to the shop owner.
type DashboardStats struct {
	TotalCustomers  int64   `json:"totalCustomers"`
	OrdersToday     int64   `json:"ordersToday"`
	RevenueToday    float64 `json:"revenueToday"`
	OpenOrders      int64   `json:"openOrders"`
	PendingOrders   int64   `json:"pendingOrders"`
	UnpaidOrders    int64   `json:"unpaidOrders"`
	DeliveredOrders int64   `json:"deliveredOrders"`
}

const maxNotesLength = 500
