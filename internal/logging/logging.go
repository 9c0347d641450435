package logging

import (
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/util"
	"github.com/rs/zerolog"

	"github.com/michaelbrown/sshmcp/internal/config"
)

// New builds the process logger. It always writes to stderr because stdout
// carries the MCP stdio channel.
func New(cfg config.LogConfig, app string) zerolog.Logger {
	return newWithWriter(cfg, app, os.Stderr)
}

func newWithWriter(cfg config.LogConfig, app string, w io.Writer) zerolog.Logger {
	out := w
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("app", app).Logger()
}

// StdLogger adapts a zerolog logger for libraries that want a *log.Logger.
func StdLogger(logger zerolog.Logger) *log.Logger {
	return log.New(logger, "", 0)
}

// RequestLogger logs one event per HTTP request.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			event := logger.Info()
			if status >= 500 {
				event = logger.Error()
			} else if status >= 400 {
				event = logger.Warn()
			}

			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Int("bytes", ww.BytesWritten()).
				Msg("http_request")
		})
	}
}

// MCPLogger adapts a zerolog logger to mcp-go's util.Logger.
func MCPLogger(logger zerolog.Logger) util.Logger {
	return mcpLogger{logger: logger}
}

type mcpLogger struct {
	logger zerolog.Logger
}

func (l mcpLogger) Infof(format string, v ...any) {
	l.logger.Info().Msgf(format, v...)
}

func (l mcpLogger) Errorf(format string, v ...any) {
	l.logger.Error().Msgf(format, v...)
}
