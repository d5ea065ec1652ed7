package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rotisserie-backend/internal/board"
)

type machineNameRequest struct {
	Name string `json:"name" binding:"required"`
}

type occupySlotRequest struct {
	OrderID          int64  `json:"order_id" binding:"required"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	Notes            string `json:"notes"`
}

type removeMachineResponse struct {
	MachineID string       `json:"machineId"`
	Discarded []board.Slot `json:"discarded"`
}

// GetBoard handles GET /api/machines with every slot's progress and the board totals.
func (h *Handler) GetBoard(c *gin.Context) {
	c.JSON(http.StatusOK, h.kitchen.Snapshot())
}

// AddMachine handles POST /api/machines.
func (h *Handler) AddMachine(c *gin.Context) {
	var req machineNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	m, err := h.kitchen.AddMachine(c.Request.Context(), req.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// RenameMachine handles PATCH /api/machines/:id.
func (h *Handler) RenameMachine(c *gin.Context) {
	var req machineNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	m, err := h.kitchen.RenameMachine(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// RemoveMachine handles DELETE /api/machines/:id. The last machine cannot be removed.
func (h *Handler) RemoveMachine(c *gin.Context) {
	machineID := c.Param("id")
	discarded, err := h.kitchen.RemoveMachine(c.Request.Context(), machineID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if discarded == nil {
		discarded = []board.Slot{}
	}
	c.JSON(http.StatusOK, removeMachineResponse{MachineID: machineID, Discarded: discarded})
}

// OccupySlot handles PUT /api/machines/:id/slots/:position.
func (h *Handler) OccupySlot(c *gin.Context) {
	position, ok := positionParam(c)
	if !ok {
		return
	}
	var req occupySlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	slot, err := h.kitchen.Occupy(c.Request.Context(), c.Param("id"), position, req.OrderID, req.EstimatedMinutes, req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// ReleaseSlot handles DELETE /api/machines/:id/slots/:position and returns the
// order descriptor sent back to the queue.
func (h *Handler) ReleaseSlot(c *gin.Context) {
	position, ok := positionParam(c)
	if !ok {
		return
	}
	released, err := h.kitchen.Release(c.Request.Context(), c.Param("id"), position)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, released)
}

// GetCookOptions handles GET /api/cook-options.
func (h *Handler) GetCookOptions(c *gin.Context) {
	c.JSON(http.StatusOK, h.kitchen.CookOptions())
}
