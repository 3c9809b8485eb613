package logger

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

func Setup(dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

// AccessLog attaches a request scoped logger with a request id to every request and
// writes one access line when the handler returns. Handlers log through hlog.FromRequest.
func AccessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		h := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			var evt *zerolog.Event
			switch {
			case status >= http.StatusInternalServerError:
				evt = hlog.FromRequest(r).Error()
			case status >= http.StatusBadRequest:
				evt = hlog.FromRequest(r).Warn()
			default:
				evt = hlog.FromRequest(r).Info()
			}
			evt.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("http request")
		})(next)

		h = hlog.UserAgentHandler("user_agent")(h)
		h = hlog.RemoteAddrHandler("remote_addr")(h)
		h = hlog.RequestIDHandler("request_id", "X-Request-Id")(h)

		return hlog.NewHandler(logger)(h)
	}
}
