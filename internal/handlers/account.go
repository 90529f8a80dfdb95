package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"stagedesk/internal/middleware"
	"stagedesk/internal/repository"
)

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userResponseFrom(user)})
}

type updatePasswordRequest struct {
	NewPassword string `form:"newPassword" json:"newPassword" binding:"required,min=8"`
}

func (h HandlerSet) UpdatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.auth.UpdatePassword(c.Request.Context(), sess.AccessToken, req.NewPassword); err != nil {
		h.log.Error().Err(err).Msg("password update failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type updateProfileRequest struct {
	DisplayName string `form:"displayName" json:"displayName" binding:"required"`
}

// UpdateProfile renames the signed-in user. The display name lives in two
// places (identity metadata and the profile row); both are updated, the
// profile row tolerantly.
func (h HandlerSet) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if _, err := h.auth.UpdateMetadata(c.Request.Context(), sess.AccessToken, map[string]any{
		"display_name": req.DisplayName,
	}); err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("display name metadata update failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	if err := h.profiles.UpdateDisplayName(c.Request.Context(), user.ID, req.DisplayName); err != nil {
		if !errors.Is(err, repository.ErrProfileNotFound) {
			h.log.Error().Err(err).Str("user_id", user.ID).Msg("profile display name update failed")
		}
	}

	c.JSON(http.StatusOK, gin.H{"displayName": req.DisplayName})
}

const maxAvatarSize = 4 << 20 // 4 MiB

// UploadAvatar stores the image in the avatar bucket, then writes the
// public URL into both the identity metadata and the profile row.
func (h HandlerSet) UploadAvatar(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file required"})
		return
	}
	if fileHeader.Size > maxAvatarSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "avatar too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable avatar file"})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	url, err := h.objects.PutAvatar(c.Request.Context(), user.ID, file, fileHeader.Size, contentType)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("avatar upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "avatar_upload_failed"})
		return
	}

	if _, err := h.auth.UpdateMetadata(c.Request.Context(), sess.AccessToken, map[string]any{
		"avatar_url": url,
	}); err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("avatar metadata update failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	if err := h.profiles.UpdateAvatar(c.Request.Context(), user.ID, url); err != nil {
		if !errors.Is(err, repository.ErrProfileNotFound) {
			h.log.Error().Err(err).Str("user_id", user.ID).Msg("profile avatar update failed")
		}
	}

	c.JSON(http.StatusOK, gin.H{"avatarUrl": url})
}
