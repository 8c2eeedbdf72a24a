// internal/handlers/session.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront/internal/config"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/utils"
)

// SessionResolver turns the session cookie into a session key, issuing a new
// cookie whenever a new session is started.
type SessionResolver struct {
	sessions *services.SessionService
	cfg      config.SessionConfig
}

func NewSessionResolver(sessions *services.SessionService, cfg config.SessionConfig) *SessionResolver {
	return &SessionResolver{sessions: sessions, cfg: cfg}
}

// Resolve writes an error response and returns false when no session could
// be established.
func (r *SessionResolver) Resolve(c *gin.Context) (string, bool) {
	token, _ := c.Cookie(r.cfg.CookieName)

	resolved, err := r.sessions.Resolve(c.Request.Context(), token)
	if err != nil {
		logrus.WithError(err).Error("Failed to resolve session")
		utils.InternalErrorResponse(c, "")
		return "", false
	}

	if resolved.Token != "" {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(r.cfg.CookieName, resolved.Token, int(r.sessions.TTL().Seconds()), "/", "", r.cfg.Secure, true)
	}

	return resolved.Key, true
}
