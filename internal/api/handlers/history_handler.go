package handlers

import (
	"net/http"
	"strconv"

	"github.com/Corgi239/Speech-Command-Recognition/internal/services"
	"github.com/gin-gonic/gin"
)

type HistoryHandler struct {
	svc services.HistoryService
}

func NewHistoryHandler(svc services.HistoryService) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

func (h *HistoryHandler) List(c *gin.Context) {
	limit := 50
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	offset := 0
	if s := c.Query("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			offset = n
		}
	}

	rows, err := h.svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"predictions": rows,
		"limit":       limit,
		"offset":      offset,
	})
}

func (h *HistoryHandler) Get(c *gin.Context) {
	row, err := h.svc.Get(c.Request.Context(), c.Param("prediction_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// Similar returns past predictions whose clip embedding is closest to the
// given prediction's embedding.
func (h *HistoryHandler) Similar(c *gin.Context) {
	k := 5
	if s := c.Query("k"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 50 {
			k = n
		}
	}

	rows, err := h.svc.Similar(c.Request.Context(), c.Param("prediction_id"), k)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"prediction_id": c.Param("prediction_id"),
		"similar":       rows,
	})
}

func (h *HistoryHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("prediction_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("prediction_id")})
}
