package logger

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Request-Id"
	ginLoggerKey    = "logger"
)

// Middleware tags every request with a request_id and logs one summary line.
// The request logger is stored on the gin context and on the request context,
// so code below the HTTP layer can use From(ctx).
//
// Level follows the outcome: 5xx or handler errors log at error, 4xx at warn.
// Successful requests to a quiet path (health checks, polled endpoints) log
// at debug.
func Middleware(l *slog.Logger, quiet ...string) gin.HandlerFunc {
	quietPaths := make(map[string]struct{}, len(quiet))
	for _, p := range quiet {
		quietPaths[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()

		rid := c.GetHeader(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(headerRequestID, rid)

		reqLogger := l.With("request_id", rid)
		c.Set(ginLoggerKey, reqLogger)
		c.Request = c.Request.WithContext(With(c.Request.Context(), reqLogger))

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := c.Writer.Status()

		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", float64(time.Since(start).Milliseconds()),
		}
		if uid, ok := c.Get("user_id"); ok {
			attrs = append(attrs, "user_id", uid)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		reqLogger.Log(c.Request.Context(), requestLevel(status, len(c.Errors) > 0, path, quietPaths), "request", attrs...)
	}
}

func requestLevel(status int, hasErrors bool, path string, quiet map[string]struct{}) slog.Level {
	switch {
	case status >= 500 || hasErrors:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	}
	if _, ok := quiet[path]; ok {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// FromGin pulls the request-scoped logger from Gin context.
func FromGin(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(ginLoggerKey); ok {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
