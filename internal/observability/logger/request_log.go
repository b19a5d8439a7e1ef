package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/repairdesk/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const RequestIDHeader = "X-Request-Id"

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug bool
	// ErrorClassifier returns the error type and code the client received.
	ErrorClassifier func(err error) (string, string)
	// QuietRoutes are logged at debug level only.
	QuietRoutes []string
}

type requestLine struct {
	start    time.Time
	method   string
	path     string
	route    string
	status   int
	bytesIn  int64
	bytesOut int

	errType string
	errCode string
}

// GinMiddleware assigns a request id, then writes one "http.request" line per
// call once the handler chain has finished. The line is built from the final
// request context so it carries the actor resolved further down the chain.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	quiet := map[string]struct{}{"/health": {}, "/metrics": {}}
	for _, route := range cfg.QuietRoutes {
		quiet[route] = struct{}{}
	}

	return func(c *gin.Context) {
		line := requestLine{
			start:  time.Now(),
			method: c.Request.Method,
			path:   c.Request.URL.Path,
		}

		requestID := requestIDFor(c)
		c.Request = c.Request.WithContext(obscontext.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		line.route = c.FullPath()
		if line.route == "" {
			line.route = "unmatched"
		}
		line.status = c.Writer.Status()
		line.bytesIn = max(c.Request.ContentLength, 0)
		line.bytesOut = max(c.Writer.Size(), 0)
		if lastErr := c.Errors.Last(); lastErr != nil && cfg.ErrorClassifier != nil {
			line.errType, line.errCode = cfg.ErrorClassifier(lastErr.Err)
		}

		level := line.level()
		if _, ok := quiet[line.route]; ok {
			level = zapcore.DebugLevel
		}
		fields := line.fields()
		if cfg.Debug && level == zapcore.ErrorLevel {
			fields = append(fields, zap.Stack("stack"))
		}
		if ce := FromContext(c.Request.Context()).Check(level, "http.request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

// requestIDFor reuses the caller's X-Request-Id when present.
func requestIDFor(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
	if requestID == "" || len(requestID) > 128 {
		requestID = uuid.NewString()
	}
	c.Header(RequestIDHeader, requestID)
	return requestID
}

// level keeps client mistakes out of the info stream: validation failures are
// debug, other 4xx info, 5xx error.
func (l requestLine) level() zapcore.Level {
	switch {
	case l.status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case l.errType == "validation_error":
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l requestLine) fields() []zap.Field {
	fields := []zap.Field{
		zap.String("method", l.method),
		zap.String("path", l.path),
		zap.String("route", l.route),
		zap.Int("status", l.status),
		zap.Duration("elapsed", time.Since(l.start)),
		zap.Int64("bytes_in", l.bytesIn),
		zap.Int("bytes_out", l.bytesOut),
	}
	if l.errType != "" {
		fields = append(fields, zap.String("error_type", l.errType), zap.String("error_code", l.errCode))
	}
	return fields
}
