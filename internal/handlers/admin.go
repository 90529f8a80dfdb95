package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminDemoEvents lists recent demo usage events from the maintenance
// stream. Admin-only.
func (h HandlerSet) AdminDemoEvents(c *gin.Context) {
	msgs, err := h.cache.XRevRangeN(c.Request.Context(), h.cfg.Redis.Stream, "+", "-", 50).Result()
	if err != nil {
		h.log.Error().Err(err).Msg("demo event read failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event_read_failed"})
		return
	}

	events := make([]gin.H, 0, len(msgs))
	for _, msg := range msgs {
		events = append(events, gin.H{
			"id":     msg.ID,
			"values": msg.Values,
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
