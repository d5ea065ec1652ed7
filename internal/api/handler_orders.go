package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rotisserie-backend/internal/model"
	"rotisserie-backend/internal/store"
)

type createOrderRequest struct {
	CustomerID  int64   `json:"customerId" binding:"required"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice" binding:"required"`
	Description string  `json:"description"`
	Notes       string  `json:"notes"`
	Paid        bool    `json:"paid"`
}

type flagRequest struct {
	Value *bool `json:"value"`
}

// ListOrders handles GET /api/orders?status=&q=.
func (h *Handler) ListOrders(c *gin.Context) {
	filter := store.OrderFilter{
		Status: store.OrderStatusFilter(c.Query("status")),
		Query:  c.Query("q"),
	}
	h.listOrders(c, filter)
}

func (h *Handler) listOrders(c *gin.Context, filter store.OrderFilter) {
	orders, err := h.store.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// ListUnpaidOrders handles GET /api/orders/unpaid.
func (h *Handler) ListUnpaidOrders(c *gin.Context) {
	h.listOrders(c, store.OrderFilter{Status: store.FilterUnpaid})
}

// ListAwaitingDelivery handles GET /api/orders/awaiting-delivery.
func (h *Handler) ListAwaitingDelivery(c *gin.Context) {
	h.listOrders(c, store.OrderFilter{Status: store.FilterAwaitingDelivery})
}

// ListCustomerOrders handles GET /api/customers/:id/orders.
func (h *Handler) ListCustomerOrders(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.store.GetCustomer(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	h.listOrders(c, store.OrderFilter{CustomerID: id})
}

// ListPendingOrders handles GET /api/orders/pending, the queue of orders waiting for a slot.
func (h *Handler) ListPendingOrders(c *gin.Context) {
	pending, err := h.store.ListPending(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

// CreateOrder handles POST /api/orders.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	order := model.Order{
		CustomerID:  req.CustomerID,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Description: req.Description,
		Notes:       req.Notes,
		Paid:        req.Paid,
		OrderedAt:   h.clock.Now(),
	}
	ctx := c.Request.Context()
	if err := h.store.CreateOrder(ctx, &order); err != nil {
		h.respondError(c, err)
		return
	}

	created, err := h.store.GetOrder(ctx, order.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	order, err := h.store.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrder handles PUT /api/orders/:id with a partial update body.
func (h *Handler) UpdateOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req store.OrderUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	h.updateOrder(c, id, req)
}

func (h *Handler) updateOrder(c *gin.Context, id int64, upd store.OrderUpdate) {
	order, err := h.store.UpdateOrder(c.Request.Context(), id, upd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// flag reads an optional {"value": bool} body. A missing body means true.
func flag(c *gin.Context) (*bool, bool) {
	value := true
	if c.Request.ContentLength == 0 {
		return &value, true
	}
	var req flagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return nil, false
	}
	if req.Value != nil {
		value = *req.Value
	}
	return &value, true
}

// MarkPaid handles PATCH /api/orders/:id/paid.
func (h *Handler) MarkPaid(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	paid, ok := flag(c)
	if !ok {
		return
	}
	h.updateOrder(c, id, store.OrderUpdate{Paid: paid})
}

// MarkDelivered handles PATCH /api/orders/:id/delivered.
func (h *Handler) MarkDelivered(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	delivered, ok := flag(c)
	if !ok {
		return
	}
	h.updateOrder(c, id, store.OrderUpdate{Delivered: delivered})
}

// DeleteOrder handles DELETE /api/orders/:id. Orders on a machine cannot be deleted.
func (h *Handler) DeleteOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.store.DeleteOrder(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
