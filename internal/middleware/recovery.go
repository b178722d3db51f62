package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/2beens/fittracker/internal/apierr"
	"github.com/2beens/fittracker/internal/telemetry/metrics"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const msgInternalServerError = "Internal server error"

// PanicRecovery turns a handler panic into a 500 with the usual error body.
// http.ErrAbortHandler keeps propagating so net/http can drop the connection.
func PanicRecovery(metricsManager *metrics.Manager, errs apierr.Responder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(recovered)
				}

				panicErr := fmt.Errorf("panic: %v", recovered)
				log.WithFields(log.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				}).Errorf("%s\n%s", panicErr, debug.Stack())

				span := trace.SpanFromContext(r.Context())
				span.RecordError(panicErr)
				span.SetStatus(codes.Error, "panic")

				if metricsManager != nil {
					metricsManager.CounterHandleRequestPanic.Inc()
				}
				errs.Write(w, apierr.Unexpected(msgInternalServerError, panicErr))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
