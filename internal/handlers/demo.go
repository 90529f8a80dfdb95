package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DemoReset wipes and reseeds the demo tenant on user request. Same backend
// routine as the daily timer, just user-triggered.
func (h HandlerSet) DemoReset(c *gin.Context) {
	if h.demo == nil || !h.demo.State().IsDemoMode {
		c.JSON(http.StatusNotFound, gin.H{"error": "demo mode is not active"})
		return
	}

	if err := h.demo.ResetNow(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("manual demo reset failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "demo_reset_failed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "reset_scheduled"})
}
