// Package middleware holds the gin middleware shared by every floor route:
// request ids, request-scoped logging with PII scrubbing, panic recovery,
// security headers, Prometheus HTTP metrics, Idempotency-Key validation and
// rate limiting (in-process or Redis-backed).
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	loggerKey       = "logger"
	requestIDHeader = "X-Request-ID"

	// StationHeader names the host-stand terminal making the request. It is
	// optional and used for log fields and rate-limit keys.
	StationHeader = "X-Host-Station"

	maxQueryLogLength = 2048
)

// RequestID echoes X-Request-ID or mints a UUID, and exposes it in the gin
// context and the response headers.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// RequestIDFrom returns the id set by RequestID, or "".
func RequestIDFrom(c *gin.Context) string {
	v, _ := c.Get(requestIDKey)
	return asString(v)
}

// Logger builds a request-scoped zerolog logger, stores it in the gin
// context and in the request context (so services can use zerolog.Ctx), and
// writes one access line when the request finishes.
//
// Query strings and header values are passed through the scrubber before
// being logged, so guest phone numbers and emails never reach the logs.
func Logger(opts RedactOptions) gin.HandlerFunc {
	r := newRedactor(opts)

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		l := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("station", c.GetHeader(StationHeader)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("remote_ip", c.ClientIP()).
			Logger()

		c.Set(loggerKey, &l)
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))

		query := truncate(r.scrub(c.Request.URL.RawQuery), maxQueryLogLength)
		headers := r.headers(c.Request.Header)

		c.Next()

		status := c.Writer.Status()
		ev := l.Info()
		switch {
		case len(c.Errors) > 0:
			ev = l.Error().Str("errors", r.scrub(c.Errors.String()))
		case status >= 500:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		}
		ev.Str("query", query).
			Interface("headers", headers).
			Int("status", status).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// Recovery turns a panic into a 500 error envelope and logs the stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			abort(c, http.StatusInternalServerError, "internal_error", GenericErrorMessage)
		}()
		c.Next()
	}
}

// LoggerFrom returns the request logger, or a child of the global logger
// outside a request.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// GenericErrorMessage is shown for every server-side failure.
const GenericErrorMessage = "Something went wrong. Please try again or contact staff."

// abort writes the shared error envelope. Handlers use the same shape.
func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success":    false,
		"request_id": RequestIDFrom(c),
		"code":       code,
		"error":      msg,
	})
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
