package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"stagedesk/internal/config"
	"stagedesk/internal/models"
	"stagedesk/internal/security"
	"stagedesk/internal/session"
)

const (
	ContextUser    = "current_user"
	ContextClaims  = "access_claims"
	ContextSession = "current_session"
	ContextSID     = "session_id"
)

// DemoStatus lets the guard redirect expired demo visitors. Nil when demo
// mode is off.
type DemoStatus interface {
	Expired() bool
}

// Guard decides, per navigation, whether the protected content may render.
// No resolvable session redirects browsers to /login (API callers get 401).
// An expired access token is refreshed transparently; a failed refresh is
// treated as signed out.
func Guard(cfg *config.AppConfig, store *session.Store, auth *session.AuthService, demo DemoStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		if demo != nil && demo.Expired() {
			deny(c, "/login?demo=expired", "demo_expired")
			return
		}

		sid, err := c.Cookie(cfg.Security.CookieName)
		if err != nil || sid == "" {
			deny(c, "/login", "unauthorized")
			return
		}

		sess, err := store.Load(c.Request.Context(), sid)
		if err != nil {
			deny(c, "/login", "unauthorized")
			return
		}

		claims, parseErr := security.ParseAccessToken(sess.AccessToken, cfg.Platform.JWTSecret)
		if parseErr != nil || sess.ExpiresWithin(0) {
			refreshed, _, refreshErr := auth.Refresh(c.Request.Context(), sess.RefreshToken)
			if refreshErr != nil {
				_ = store.Delete(c.Request.Context(), sid)
				deny(c, "/login", "unauthorized")
				return
			}
			if err := store.Update(c.Request.Context(), sid, refreshed); err != nil {
				deny(c, "/login", "unauthorized")
				return
			}
			sess = refreshed
			claims, parseErr = security.ParseAccessToken(sess.AccessToken, cfg.Platform.JWTSecret)
			if parseErr != nil {
				deny(c, "/login", "unauthorized")
				return
			}
		}

		c.Set(ContextSID, sid)
		c.Set(ContextSession, sess)
		c.Set(ContextClaims, *claims)
		c.Set(ContextUser, userFromClaims(claims))

		c.Next()
	}
}

func userFromClaims(claims *security.AccessClaims) models.User {
	return models.User{
		ID:       claims.Subject,
		Email:    claims.Email,
		Role:     claims.Role,
		Metadata: claims.UserMetadata,
	}
}

// deny redirects browsers and returns JSON to API callers.
func deny(c *gin.Context, location string, code string) {
	if WantsHTML(c) {
		c.Redirect(http.StatusFound, location)
		c.Abort()
		return
	}
	status := http.StatusUnauthorized
	if code == "forbidden" {
		status = http.StatusForbidden
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code})
}

// WantsHTML reports whether the request negotiates an HTML response; denial
// and post-action navigation redirect for browsers and return JSON
// otherwise.
func WantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}

// CurrentUser returns the user the guard attached to the request.
func CurrentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get(ContextUser)
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}

// CurrentSession returns the token bundle the guard attached to the request.
func CurrentSession(c *gin.Context) (models.Session, bool) {
	val, exists := c.Get(ContextSession)
	if !exists {
		return models.Session{}, false
	}
	sess, ok := val.(models.Session)
	return sess, ok
}
