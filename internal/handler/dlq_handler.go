package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-reminder-service/internal/dlq"
	"github.com/vhvplatform/go-reminder-service/internal/gateway"
	"github.com/vhvplatform/go-reminder-service/internal/shared/errors"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
)

// DLQHandler handles dead letter queue operations
type DLQHandler struct {
	dlq     *dlq.DeadLetterQueue
	gateway gateway.Gateway
	log     *logger.Logger
}

// NewDLQHandler creates a new DLQ handler
func NewDLQHandler(dlq *dlq.DeadLetterQueue, gateway gateway.Gateway, log *logger.Logger) *DLQHandler {
	return &DLQHandler{
		dlq:     dlq,
		gateway: gateway,
		log:     log,
	}
}

// GetFailedReminders retrieves failed reminders from the DLQ
func (h *DLQHandler) GetFailedReminders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	failed, total, err := h.dlq.GetAll(c.Request.Context(), page, pageSize)
	if err != nil {
		h.log.Error("Failed to get failed reminders", "error", err)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to get failed reminders", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      failed,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// RetryReminder re-sends a failed reminder through the delivery gateway
func (h *DLQHandler) RetryReminder(c *gin.Context) {
	id := c.Param("id")

	if err := h.dlq.Retry(c.Request.Context(), id, h.gateway); err != nil {
		h.log.Error("Failed to retry reminder", "error", err, "id", id)
		c.JSON(http.StatusInternalServerError, errors.NewInternalError("Failed to retry reminder", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reminder retried successfully",
	})
}
