package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"stagedesk/internal/middleware"
	"stagedesk/internal/models"
	"stagedesk/internal/repository"
)

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

func userResponseFrom(user models.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName(),
		Role:        user.Role,
	}
}

// Shell is the post-login landing payload: everything the sidebar and
// layout chrome need. Feature pages load their own data.
func (h HandlerSet) Shell(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	resp := gin.H{"user": userResponseFrom(user)}

	profile, err := h.profiles.GetByUserID(c.Request.Context(), user.ID)
	switch {
	case err == nil:
		resp["profile"] = gin.H{
			"displayName": profile.DisplayName,
			"company":     profile.Company,
			"avatarUrl":   profile.AvatarURL,
		}
	case errors.Is(err, repository.ErrProfileNotFound):
		// Orphanable two-step sign-up: an identity can exist without a
		// profile row.
	default:
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("profile load failed")
	}

	preferences, err := h.prefs.Get(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("preferences load failed")
	} else {
		resp["preferences"] = preferences
	}

	if h.demo != nil {
		resp["demo"] = h.demo.State()
	} else {
		resp["demo"] = models.DemoState{}
	}

	c.JSON(http.StatusOK, resp)
}
