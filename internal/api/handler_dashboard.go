package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rotisserie-backend/internal/store"
)

type boardSummary struct {
	Machines      int `json:"machines"`
	OccupiedCount int `json:"occupiedCount"`
	ReadyCount    int `json:"readyCount"`
	TotalCapacity int `json:"totalCapacity"`
}

type dashboardResponse struct {
	store.DashboardStats
	Board boardSummary `json:"board"`
}

// GetDashboard handles GET /api/dashboard.
func (h *Handler) GetDashboard(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context(), h.clock.Now())
	if err != nil {
		h.respondError(c, err)
		return
	}

	snap := h.kitchen.Snapshot()
	c.JSON(http.StatusOK, dashboardResponse{
		DashboardStats: stats,
		Board: boardSummary{
			Machines:      len(snap.Machines),
			OccupiedCount: snap.OccupiedCount,
			ReadyCount:    snap.ReadyCount,
			TotalCapacity: snap.TotalCapacity,
		},
	})
}
