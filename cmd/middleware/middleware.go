package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"picnichub/internal/auth"
	"picnichub/internal/dto"
)

func LoggingMiddleware() gin.HandlerFunc {
	return func(c *ginext.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		event := zlog.Logger.Info()
		if status >= 500 {
			event = zlog.Logger.Error()
		} else if status >= 400 {
			event = zlog.Logger.Warn()
		}
		event.
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("method", method).
			Str("path", path).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

// AdminOnly lets a request through only with a valid admin session cookie.
func AdminOnly(sessions *auth.Sessions) gin.HandlerFunc {
	return func(c *ginext.Context) {
		token, err := c.Cookie(auth.CookieName)
		if err != nil || token == "" {
			dto.UnauthorizedError(c)
			c.Abort()
			return
		}
		claims, err := sessions.Validate(token)
		if err != nil {
			dto.UnauthorizedError(c)
			c.Abort()
			return
		}
		c.Set(auth.ContextAdminID, claims.AdminID)
		c.Next()
	}
}
