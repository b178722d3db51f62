package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/2beens/fittracker/internal/apierr"
	"github.com/2beens/fittracker/internal/auth"
	"github.com/2beens/fittracker/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=middleware_mocks_test.go -package=middleware_test

type loginChecker interface {
	IsLogged(ctx context.Context, token string) (ownerID uuid.UUID, logged bool, err error)
}

type usersGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error)
}

type AuthMiddlewareHandler struct {
	loginChecker loginChecker
	users        usersGetter
	errs         apierr.Responder
	allowedPaths map[string]bool
}

func NewAuthMiddlewareHandler(
	loginChecker loginChecker,
	users usersGetter,
	errs apierr.Responder,
) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		loginChecker: loginChecker,
		users:        users,
		errs:         errs,
		allowedPaths: map[string]bool{
			"/api/health": true,

			// register-login:
			"/api/auth/register": true,
			"/api/auth/login":    true,
		},
	}
}

// AuthCheck resolves the bearer token to its user and puts the user into the
// request context as auth.Owner.
func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, PUT, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			if h.allowedPaths[r.URL.Path] {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			authToken := auth.BearerToken(r)
			if authToken == "" {
				log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
				h.errs.Write(w, apierr.Unauthorized(auth.MsgNoToken))
				span.SetStatus(codes.Error, "missing-auth-token")
				return
			}

			ownerID, isLogged, err := h.loginChecker.IsLogged(ctx, authToken)
			if err != nil {
				log.Errorf("[failed login check] => %s: %s", r.URL.Path, err)
				h.errs.Write(w, apierr.Unauthorized(auth.MsgInvalidToken))
				span.SetStatus(codes.Error, "check-logged-err")
				span.RecordError(err)
				return
			}
			if !isLogged {
				log.Tracef("[invalid token] [auth middleware] unauthorized => %s", r.URL.Path)
				h.errs.Write(w, apierr.Unauthorized(auth.MsgInvalidToken))
				span.SetStatus(codes.Error, "not-logged")
				return
			}

			user, err := h.users.GetByID(ctx, ownerID)
			if err != nil {
				if errors.Is(err, auth.ErrUserNotFound) {
					log.Tracef("[unknown user] [auth middleware] unauthorized => %s", r.URL.Path)
					h.errs.Write(w, apierr.Unauthorized(auth.MsgInvalidToken))
					span.SetStatus(codes.Error, "user-gone")
					return
				}
				log.Errorf("[auth middleware] get user %s: %s", ownerID, err)
				h.errs.Write(w, apierr.Unexpected("Server error during authentication", err))
				span.SetStatus(codes.Error, "get-user-err")
				span.RecordError(err)
				return
			}

			span.SetAttributes(attribute.String("owner.id", user.ID.String()))
			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(auth.ContextWithOwner(ctx, user.Owner())))
		})
	}
}
