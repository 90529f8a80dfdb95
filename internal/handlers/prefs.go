package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stagedesk/internal/middleware"
	"stagedesk/internal/prefs"
)

func (h HandlerSet) GetPrefs(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	preferences, err := h.prefs.Get(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("preferences load failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "preferences_load_failed"})
		return
	}
	c.JSON(http.StatusOK, preferences)
}

func (h HandlerSet) PutPrefs(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var preferences prefs.Preferences
	if err := c.ShouldBindJSON(&preferences); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.prefs.Set(c.Request.Context(), user.ID, preferences); err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("preferences save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "preferences_save_failed"})
		return
	}
	c.JSON(http.StatusOK, preferences)
}
