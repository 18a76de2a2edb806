// Package logging builds the process logger and the HTTP access log.
package logging

import (
	"strconv"
	"strings"
	"time"

	"github.com/blendle/zapdriver"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ServiceName = "armline-api"

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "requestID"

// New returns a colored console logger in dev mode and a JSON logger with the
// Stackdriver field layout otherwise.
func New(dev bool, version string) (*zap.Logger, error) {
	if dev {
		cfg := zap.Config{
			Level:       zap.NewAtomicLevelAt(zap.DebugLevel),
			Development: true,
			Encoding:    "console",
			EncoderConfig: zapcore.EncoderConfig{
				TimeKey:        "T",
				LevelKey:       "L",
				NameKey:        "N",
				CallerKey:      "C",
				MessageKey:     "M",
				StacktraceKey:  "S",
				LineEnding:     zapcore.DefaultLineEnding,
				EncodeLevel:    zapcore.CapitalColorLevelEncoder,
				EncodeTime:     zapcore.ISO8601TimeEncoder,
				EncodeDuration: zapcore.StringDurationEncoder,
				EncodeCaller:   zapcore.ShortCallerEncoder,
			},
			OutputPaths:      []string{"stderr"},
			ErrorOutputPaths: []string{"stderr"},
		}
		return cfg.Build()
	}
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapcore.InfoLevel),
		Encoding:         "json",
		EncoderConfig:    zapdriver.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	logger, err := cfg.Build(zapdriver.WrapCore(zapdriver.ReportAllErrors(true), zapdriver.ServiceName(ServiceName)))
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("version", version)), nil
}

// AccessLog logs one line per request. Health and metrics probes are skipped.
func AccessLog(logger *zap.Logger, dev bool) gin.HandlerFunc {
	logger = logger.Named("access_log")
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		req := c.Request
		status := c.Writer.Status()
		if dev {
			logger.Sugar().Infof("%3d | %s | %s %s %d", status, latency, req.Method, req.URL, c.Writer.Size())
			return
		}

		fields := []zap.Field{
			zap.String("requestId", c.GetString(RequestIDKey)),
			zapdriver.HTTP(&zapdriver.HTTPPayload{
				RequestMethod: req.Method,
				Status:        status,
				UserAgent:     req.UserAgent(),
				RemoteIP:      c.ClientIP(),
				Referer:       req.Referer(),
				Protocol:      req.Proto,
				RequestURL:    req.URL.String(),
				RequestSize:   req.Header.Get("Content-Length"),
				ResponseSize:  strconv.Itoa(c.Writer.Size()),
				Latency:       strconv.FormatFloat(latency.Seconds(), 'f', 9, 64) + "s",
			}),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", strings.TrimSpace(c.Errors.String())))
		}
		switch {
		case status >= 500:
			logger.Error("", fields...)
		default:
			logger.Info("", fields...)
		}
	}
}
