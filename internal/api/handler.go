package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"rotisserie-backend/internal/board"
	"rotisserie-backend/internal/clock"
	"rotisserie-backend/internal/kitchen"
	"rotisserie-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	kitchen *kitchen.Service
	clock   clock.Clock
	webpush *webpush.Options
	logger  zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, k *kitchen.Service, clk clock.Clock, webpushOptions *webpush.Options, logger zerolog.Logger) *Handler {
	return &Handler{
		store:   s,
		kitchen: k,
		clock:   clk,
		webpush: webpushOptions,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, board.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, board.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, board.ErrSlotOccupied),
		errors.Is(err, board.ErrSlotNotOccupied),
		errors.Is(err, board.ErrLastMachine),
		errors.Is(err, store.ErrInUse):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func positionParam(c *gin.Context) (int, bool) {
	position, err := strconv.Atoi(c.Param("position"))
	if err != nil {
		badRequest(c, "invalid position")
		return 0, false
	}
	return position, true
}
