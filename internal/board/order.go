package board

// ReturnedDescription replaces the description of an order sent back from a machine.
const ReturnedDescription = "Returned from machine"

// PendingOrder is an order waiting to be placed on a machine.
type PendingOrder struct {
	ID           int64   `json:"id"`
	CustomerName string  `json:"customerName"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	Paid         bool    `json:"paid"`
	Delivered    bool    `json:"delivered"`
}

// Returned builds the descriptor handed back to the order queue when the cook
// leaves its slot. Only the order id and customer name survive; the cook time is dropped.
func (o Occupancy) Returned() PendingOrder {
	return PendingOrder{
		ID:           o.OrderID,
		CustomerName: o.CustomerName,
		Description:  ReturnedDescription,
		Price:        0,
		Paid:         false,
		Delivered:    false,
	}
}
