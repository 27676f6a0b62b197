package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
)

// SweepTrigger requests an immediate due-user sweep.
type SweepTrigger interface {
	TriggerSweep()
}

// SweepHandler exposes the operator endpoint for manual sweeps.
type SweepHandler struct {
	poller SweepTrigger
	log    *logger.Logger
}

// NewSweepHandler creates a new sweep handler
func NewSweepHandler(poller SweepTrigger, log *logger.Logger) *SweepHandler {
	return &SweepHandler{
		poller: poller,
		log:    log,
	}
}

// TriggerSweep schedules a sweep outside the regular polling cadence.
// The sweep runs asynchronously; this returns as soon as it is queued.
func (h *SweepHandler) TriggerSweep(c *gin.Context) {
	h.log.Info("manual sweep requested")
	h.poller.TriggerSweep()

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Sweep triggered",
	})
}
