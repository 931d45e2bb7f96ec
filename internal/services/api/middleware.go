package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/NordCoder/tifi/internal/obs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ctxUserID = "user_id"

// Recovery turns a handler panic into a 500 envelope.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				obs.WithTrace(c.Request.Context(), log).Error("panic in handler",
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("panic", fmt.Sprint(r)),
					zap.Stack("stack"),
				)
				fail(c, http.StatusInternalServerError, "An unexpected error occurred")
			}
		}()
		c.Next()
	}
}

// AccessLog writes one line per request: ip - "METHOD path HTTP/x" status - latency.
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		r := c.Request
		fields := []zap.Field{
			zap.String("ip", c.ClientIP()),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", elapsed),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}
		line := fmt.Sprintf("%s - %q %d - %.3fs",
			c.ClientIP(), r.Method+" "+r.URL.Path+" "+r.Proto, c.Writer.Status(), elapsed.Seconds())

		l := obs.WithTrace(r.Context(), log)
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			l.Error(line, fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			l.Warn(line, fields...)
		default:
			l.Info(line, fields...)
		}
	}
}

func CORS(allowedOrigins []string) gin.HandlerFunc {
	originsSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := originsSet[origin]; ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Access-Control-Max-Age", "86400")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequireUser rejects requests without a valid bearer access token.
func RequireUser(parse func(token string) (string, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found || token == "" {
			fail(c, http.StatusUnauthorized, "Not authenticated")
			return
		}
		uid, err := parse(token)
		if err != nil {
			fail(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		c.Set(ctxUserID, uid)
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
