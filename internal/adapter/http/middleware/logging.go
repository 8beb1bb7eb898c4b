package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/clienttx/internal/domain"
	"github.com/iho/clienttx/internal/infrastructure/logger"
)

// LoggingMiddleware logs one line per request, tagged with the request id,
// the matched route and, on client transaction routes, the transaction key.
type LoggingMiddleware struct {
	logger zerolog.Logger
}

// NewLoggingMiddleware creates a new LoggingMiddleware.
func NewLoggingMiddleware(l zerolog.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: l}
}

// Wrap wraps an http.Handler with logging.
func (m *LoggingMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		// Route params are only known once the router has matched.
		log := m.logger
		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
			ctid, accountID := rctx.URLParam("ctid"), rctx.URLParam("accountID")
			switch {
			case ctid != "":
				log = logger.ForClientTransaction(log, domain.ClientTransactionKey{ClientTransactionID: ctid, AccountID: accountID})
			case accountID != "":
				log = log.With().Str("account_id", accountID).Logger()
			}
		}

		var event *zerolog.Event
		switch {
		case wrapped.statusCode >= http.StatusInternalServerError:
			event = log.Error()
		case wrapped.statusCode >= http.StatusBadRequest:
			event = log.Warn()
		default:
			event = log.Info()
		}

		event.
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Int("status", wrapped.statusCode).
			Bool("idempotent_replay", w.Header().Get(IdempotencyReplayHeader) == "true").
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("request completed")
	})
}

type statusRecorder struct {
	http.ResponseWriter

	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
