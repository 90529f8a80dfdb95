package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"stagedesk/internal/middleware"
	"stagedesk/internal/platform"
	"stagedesk/internal/session"
)

const (
	pkceCookie = "stagedesk_pkce"
	// User-facing substitution for the one classified credential failure.
	// Every other platform message passes through verbatim.
	msgInvalidCredentials = "Invalid email or password"
)

// LoginPage reports the flags the login screen renders from the query
// string: a fresh registration or an expired demo.
func (h HandlerSet) LoginPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"registered":  c.Query("registered") == "true",
		"demoExpired": c.Query("demo") == "expired",
		"error":       c.Query("error"),
	})
}

type loginRequest struct {
	Email    string `form:"email" json:"email" binding:"required,email"`
	Password string `form:"password" json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, user, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, platform.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": msgInvalidCredentials})
			return
		}
		h.log.Error().Err(err).Str("email", req.Email).Msg("sign-in failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	sid, err := h.store.Save(c.Request.Context(), sess)
	if err != nil {
		h.log.Error().Err(err).Msg("session store write failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_store_failed"})
		return
	}
	h.setSessionCookie(c, sid)

	if middleware.WantsHTML(c) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":     userResponseFrom(user),
		"redirect": "/",
	})
}

type registerRequest struct {
	Email       string `form:"email" json:"email" binding:"required,email"`
	Password    string `form:"password" json:"password" binding:"required,min=8"`
	DisplayName string `form:"displayName" json:"displayName" binding:"required"`
	Company     string `form:"company" json:"company"`
}

// Register creates the identity, then its profile row. A profile-row
// failure surfaces as an error and leaves no signed-in state.
func (h HandlerSet) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, err := h.auth.SignUp(c.Request.Context(), req.Email, req.Password, session.ProfileFields{
		DisplayName: req.DisplayName,
		Company:     req.Company,
	})
	if err != nil {
		if errors.Is(err, platform.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.log.Error().Err(err).Str("email", req.Email).Msg("sign-up failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	if middleware.WantsHTML(c) {
		c.Redirect(http.StatusSeeOther, "/login?registered=true")
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirect": "/login?registered=true"})
}

type resetPasswordRequest struct {
	Email string `form:"email" json:"email" binding:"required,email"`
}

func (h HandlerSet) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Email); err != nil {
		h.log.Error().Err(err).Str("email", req.Email).Msg("password reset failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

// GoogleRedirect sends the browser into the platform's OAuth flow. The PKCE
// verifier waits in a short-lived cookie for the callback.
func (h HandlerSet) GoogleRedirect(c *gin.Context) {
	authURL, verifier := h.auth.GoogleAuthURL()
	c.SetCookie(pkceCookie, verifier, 600, "/", "", h.cfg.Security.CookieSecure, true)
	c.Redirect(http.StatusFound, authURL)
}

// OAuthCallback is the OAuth landing route: exchange the code for a session
// and land on the dashboard.
func (h HandlerSet) OAuthCallback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		h.log.Warn().Str("error", errParam).Str("description", c.Query("error_description")).Msg("oauth flow denied")
		c.Redirect(http.StatusSeeOther, "/login?error=oauth")
		return
	}

	code := c.Query("code")
	verifier, err := c.Cookie(pkceCookie)
	if code == "" || err != nil || verifier == "" {
		c.Redirect(http.StatusSeeOther, "/login?error=oauth")
		return
	}
	c.SetCookie(pkceCookie, "", -1, "/", "", h.cfg.Security.CookieSecure, true)

	sess, _, err := h.auth.ExchangeCode(c.Request.Context(), code, verifier)
	if err != nil {
		h.log.Error().Err(err).Msg("oauth code exchange failed")
		c.Redirect(http.StatusSeeOther, "/login?error=oauth")
		return
	}

	sid, err := h.store.Save(c.Request.Context(), sess)
	if err != nil {
		h.log.Error().Err(err).Msg("session store write failed")
		c.Redirect(http.StatusSeeOther, "/login?error=oauth")
		return
	}
	h.setSessionCookie(c, sid)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h HandlerSet) Logout(c *gin.Context) {
	sid, err := c.Cookie(h.cfg.Security.CookieName)
	if err != nil || sid == "" {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	sess, err := h.store.Load(c.Request.Context(), sid)
	if err == nil {
		if err := h.auth.SignOut(c.Request.Context(), sess.AccessToken); err != nil {
			h.log.Error().Err(err).Msg("sign-out failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
	}

	_ = h.store.Delete(c.Request.Context(), sid)
	h.clearSessionCookie(c)

	if middleware.WantsHTML(c) {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirect": "/login"})
}

// Unauthorized is the denial screen for authenticated-but-unauthorized
// navigation.
func (h HandlerSet) Unauthorized(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{
		"error": "You do not have access to this area.",
	})
}

func (h HandlerSet) setSessionCookie(c *gin.Context, sid string) {
	c.SetCookie(
		h.cfg.Security.CookieName,
		sid,
		int(h.cfg.Security.SessionTTL.Seconds()),
		"/",
		"",
		h.cfg.Security.CookieSecure,
		true,
	)
}

func (h HandlerSet) clearSessionCookie(c *gin.Context) {
	c.SetCookie(h.cfg.Security.CookieName, "", -1, "/", "", h.cfg.Security.CookieSecure, true)
}
