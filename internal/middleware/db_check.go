package middleware

import (
	"net/http"

	"github.com/2beens/fittracker/internal/apierr"

	log "github.com/sirupsen/logrus"
)

type readinessChecker interface {
	IsReady() bool
}

// DBCheck answers 503 while the database is unreachable. Paths in skipPaths
// are always served.
func DBCheck(readiness readinessChecker, errs apierr.Responder, skipPaths ...string) func(next http.Handler) http.Handler {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] || readiness.IsReady() {
				next.ServeHTTP(w, r)
				return
			}

			log.Warnf("database not ready, rejecting [%s] %s", r.Method, r.URL.Path)
			errs.Write(w, apierr.Unavailable())
		})
	}
}
