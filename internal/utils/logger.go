package utils

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

const loggerContextKey = "logger"

// Logger is the logging facade used by handlers and wiring code
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	Slog() *slog.Logger
}

type slogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps a slog.Logger
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogLogger{logger: logger}
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}

func (l *slogLogger) Slog() *slog.Logger {
	return l.logger
}

// ContextLogger stores a request scoped logger (tagged with request_id and device_id) in the gin context
func ContextLogger(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		scoped := logger
		if requestID := c.GetString("request_id"); requestID != "" {
			scoped = scoped.With("request_id", requestID)
		}
		if deviceID := c.GetString("device_id"); deviceID != "" {
			scoped = scoped.With("device_id", deviceID)
		}
		c.Set(loggerContextKey, scoped)
		c.Next()
	}
}

// FromContext returns the request scoped logger, or fallback when none is set
func FromContext(c *gin.Context, fallback Logger) Logger {
	if v, ok := c.Get(loggerContextKey); ok {
		if l, ok := v.(Logger); ok {
			return l
		}
	}
	return fallback
}

// LoggerMiddleware logs one line per request
func LoggerMiddleware(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		l := FromContext(c, logger)
		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			args = append(args, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			l.Error("Request failed", args...)
		case status >= 400:
			l.Warn("Request rejected", args...)
		default:
			l.Info("Request completed", args...)
		}
	}
}
