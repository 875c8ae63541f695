package gateway

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/shopdash/pkg/models"
	"github.com/example/shopdash/pkg/repository"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderSessionID = "X-Session-ID"
	CookieSession   = "shopdash_session"

	ctxKeyRequestID = "request_id"
	ctxKeySession   = "session"
)

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("request_id", c.GetString(ctxKeyRequestID)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, rid)
		c.Writer.Header().Set(HeaderRequestID, rid)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(HeaderSessionID)); id != "" {
		return id
	}
	if id, err := c.Cookie(CookieSession); err == nil {
		return id
	}
	return ""
}

// requireSession loads the caller's session or sends them to the login view.
func (g *Gateway) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := sessionID(c)
		if id == "" {
			g.unauthorized(c)
			return
		}
		sess, err := g.sessions.GetSession(c.Request.Context(), id, g.config.Session.TTL)
		if errors.Is(err, repository.ErrNotFound) {
			g.unauthorized(c)
			return
		}
		if err != nil {
			g.logger.Error("Failed to load session", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
			return
		}
		c.Set(ctxKeySession, sess)
		c.Next()
	}
}

func requireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		if sess == nil || !slices.Contains(roles, sess.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not allowed for this role"})
			return
		}
		c.Next()
	}
}

func currentSession(c *gin.Context) *repository.Session {
	v, ok := c.Get(ctxKeySession)
	if !ok {
		return nil
	}
	s, _ := v.(*repository.Session)
	return s
}

// unauthorized redirects GET requests to the login view and tells every
// other caller where to go.
func (g *Gateway) unauthorized(c *gin.Context) {
	login := g.config.Gateway.LoginPath
	if c.Request.Method == http.MethodGet {
		c.Redirect(http.StatusFound, login)
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "redirect": login})
}
