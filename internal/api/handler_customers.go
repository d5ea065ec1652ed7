package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rotisserie-backend/internal/model"
	"rotisserie-backend/internal/store"
)

type createCustomerRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone" binding:"required"`
}

// ListCustomers handles GET /api/customers?q=.
func (h *Handler) ListCustomers(c *gin.Context) {
	customers, err := h.store.ListCustomers(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

// CreateCustomer handles POST /api/customers.
func (h *Handler) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	customer := model.Customer{Name: req.Name, Phone: req.Phone}
	if err := h.store.CreateCustomer(c.Request.Context(), &customer); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *Handler) GetCustomer(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	customer, err := h.store.GetCustomer(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// FindCustomerByPhone handles GET /api/customers/phone/:phone.
func (h *Handler) FindCustomerByPhone(c *gin.Context) {
	customer, err := h.store.FindCustomerByPhone(c.Request.Context(), c.Param("phone"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) UpdateCustomer(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req store.CustomerUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	customer, err := h.store.UpdateCustomer(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer handles DELETE /api/customers/:id. Customers with orders are kept.
func (h *Handler) DeleteCustomer(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.store.DeleteCustomer(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
