package auth

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/2beens/fittracker/internal/apierr"
	"github.com/2beens/fittracker/internal/telemetry/metrics"
	"github.com/2beens/fittracker/internal/telemetry/tracing"
	"github.com/2beens/fittracker/pkg"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=auth_mocks_test.go -package=auth_test

type usersRepo interface {
	Add(ctx context.Context, user User) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) (*User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type sessionService interface {
	Login(ctx context.Context, ownerID uuid.UUID, createdAt time.Time) (string, error)
	Logout(ctx context.Context, token string) (bool, error)
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Name string `json:"name"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type SessionResponse struct {
	Message string     `json:"message"`
	User    PublicUser `json:"user"`
	Token   string     `json:"token"`
}

type UserResponse struct {
	Message string     `json:"message"`
	User    PublicUser `json:"user"`
}

type ProfileResponse struct {
	User Profile `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type Handler struct {
	users    usersRepo
	sessions sessionService
	checker  Checker
	metrics  *metrics.Manager
	errs     apierr.Responder
	now      func() time.Time

	// PasswordHashCost is the bcrypt cost used for new password hashes.
	PasswordHashCost int
}

func NewHandler(
	users usersRepo,
	sessions sessionService,
	checker Checker,
	metricsManager *metrics.Manager,
	errs apierr.Responder,
) *Handler {
	return &Handler{
		users:            users,
		sessions:         sessions,
		checker:          checker,
		metrics:          metricsManager,
		errs:             errs,
		now:              time.Now,
		PasswordHashCost: pkg.DefaultPasswordHashCost,
	}
}

func (handler *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.register")
	defer span.End()

	var req RegisterRequest
	if err := pkg.DecodeJSONBody(r, &req); err != nil {
		log.Tracef("register, decode body: %s", err)
		handler.errs.Write(w, apierr.Validation(bodyErrorMessage(err)))
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		handler.errs.Write(w, apierr.Validation("All fields are required"))
		return
	}
	if len(req.Password) < MinPasswordLength {
		handler.errs.Write(w, apierr.Validation("Password must be at least 6 characters long"))
		return
	}

	var problems []string
	if len(req.Password) > MaxPasswordLength {
		problems = append(problems, "Password cannot exceed 72 characters")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		problems = append(problems, "Name cannot exceed 100 characters")
	}
	email := NormalizeEmail(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		problems = append(problems, "Please enter a valid email")
	}
	if len(problems) > 0 {
		handler.errs.Write(w, apierr.Validation(apierr.ValidationErrorMessage, problems...))
		return
	}

	passwordHash, err := pkg.HashPasswordWithCost(req.Password, handler.PasswordHashCost)
	if err != nil {
		log.Errorf("register, hash password: %s", err)
		handler.errs.Write(w, apierr.Unexpected("Server error during registration", err))
		return
	}

	user, err := handler.users.Add(ctx, User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    handler.now(),
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			handler.errs.Write(w, apierr.Validation("User with this email already exists"))
			return
		}
		log.Errorf("register, add user: %s", err)
		handler.errs.Write(w, apierr.Unexpected("Server error during registration", err))
		return
	}
	span.SetAttributes(attribute.String("user.id", user.ID.String()))

	token, err := handler.sessions.Login(ctx, user.ID, handler.now())
	if err != nil {
		log.Errorf("register, new session for [%s]: %s", user.ID, err)
		handler.errs.Write(w, apierr.Unexpected("Server error during registration", err))
		return
	}

	log.Debugf("new user registered: [%s]", user.ID)
	pkg.WriteJSON(w, SessionResponse{
		Message: "User registered successfully",
		User:    user.Public(),
		Token:   token,
	}, http.StatusCreated)
}

func (handler *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.login")
	defer span.End()

	var req LoginRequest
	if err := pkg.DecodeJSONBody(r, &req); err != nil {
		log.Tracef("login, decode body: %s", err)
		handler.errs.Write(w, apierr.Validation(bodyErrorMessage(err)))
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		handler.errs.Write(w, apierr.Validation("Email and password are required"))
		return
	}

	user, err := handler.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Tracef("[email] failed login attempt")
			handler.metrics.CounterLogins.WithLabelValues("failed").Inc()
			handler.errs.Write(w, apierr.Unauthorized("Invalid email or password"))
			return
		}
		log.Errorf("login, get user: %s", err)
		handler.errs.Write(w, apierr.Unexpected("Server error during login", err))
		return
	}

	if !pkg.CheckPasswordHash(req.Password, user.PasswordHash) {
		log.Tracef("[password] failed login attempt for user: %s", user.ID)
		handler.metrics.CounterLogins.WithLabelValues("failed").Inc()
		handler.errs.Write(w, apierr.Unauthorized("Invalid email or password"))
		return
	}

	token, err := handler.sessions.Login(ctx, user.ID, handler.now())
	if err != nil {
		log.Errorf("login, new session for [%s]: %s", user.ID, err)
		handler.errs.Write(w, apierr.Unexpected("Server error during login", err))
		return
	}

	handler.metrics.CounterLogins.WithLabelValues("success").Inc()
	log.Tracef("new login success: [%s]", user.ID)
	pkg.WriteJSONResponseOK(w, SessionResponse{
		Message: "Login successful",
		User:    user.Public(),
		Token:   token,
	})
}

func (handler *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.logout")
	defer span.End()

	token := BearerToken(r)
	if token == "" {
		handler.errs.Write(w, apierr.Unauthorized(MsgNoToken))
		return
	}

	loggedOut, err := handler.sessions.Logout(ctx, token)
	if err != nil {
		log.Errorf("logout: %s", err)
		handler.errs.Write(w, apierr.Unexpected("Server error during logout", err))
		return
	}
	handler.checker.Forget(token)

	if !loggedOut {
		log.Tracef("logout of an unknown session")
	}
	pkg.WriteJSONResponseOK(w, MessageResponse{Message: "Logged out successfully"})
}

func (handler *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.profile")
	defer span.End()

	owner, ok := handler.owner(w, r)
	if !ok {
		return
	}

	user, err := handler.users.GetByID(ctx, owner.ID)
	if err != nil {
		handler.writeRepoErr(w, err, "Server error while fetching profile")
		return
	}

	pkg.WriteJSONResponseOK(w, ProfileResponse{User: user.Profile()})
}

func (handler *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.profile.update")
	defer span.End()

	owner, ok := handler.owner(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := pkg.DecodeJSONBody(r, &req); err != nil {
		log.Tracef("update profile, decode body: %s", err)
		handler.errs.Write(w, apierr.Validation(bodyErrorMessage(err)))
		return
	}

	name := strings.TrimSpace(req.Name)
	if utf8.RuneCountInString(name) < MinNameLength {
		handler.errs.Write(w, apierr.Validation("Name must be at least 2 characters long"))
		return
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		handler.errs.Write(w, apierr.Validation(apierr.ValidationErrorMessage, "Name cannot exceed 100 characters"))
		return
	}

	user, err := handler.users.UpdateName(ctx, owner.ID, name)
	if err != nil {
		handler.writeRepoErr(w, err, "Server error while updating profile")
		return
	}

	pkg.WriteJSONResponseOK(w, UserResponse{
		Message: "Profile updated successfully",
		User:    user.Public(),
	})
}

func (handler *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.change_password")
	defer span.End()

	owner, ok := handler.owner(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := pkg.DecodeJSONBody(r, &req); err != nil {
		log.Tracef("change password, decode body: %s", err)
		handler.errs.Write(w, apierr.Validation(bodyErrorMessage(err)))
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		handler.errs.Write(w, apierr.Validation("Current password and new password are required"))
		return
	}
	if len(req.NewPassword) < MinPasswordLength {
		handler.errs.Write(w, apierr.Validation("New password must be at least 6 characters long"))
		return
	}
	if len(req.NewPassword) > MaxPasswordLength {
		handler.errs.Write(w, apierr.Validation(apierr.ValidationErrorMessage, "Password cannot exceed 72 characters"))
		return
	}

	user, err := handler.users.GetByID(ctx, owner.ID)
	if err != nil {
		handler.writeRepoErr(w, err, "Server error while changing password")
		return
	}

	if !pkg.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		log.Tracef("change password, wrong current password for: %s", user.ID)
		handler.errs.Write(w, apierr.Unauthorized("Current password is incorrect"))
		return
	}

	passwordHash, err := pkg.HashPasswordWithCost(req.NewPassword, handler.PasswordHashCost)
	if err != nil {
		log.Errorf("change password, hash password: %s", err)
		handler.errs.Write(w, apierr.Unexpected("Server error while changing password", err))
		return
	}

	if err := handler.users.UpdatePasswordHash(ctx, user.ID, passwordHash); err != nil {
		handler.writeRepoErr(w, err, "Server error while changing password")
		return
	}

	pkg.WriteJSONResponseOK(w, MessageResponse{Message: "Password changed successfully"})
}

func (handler *Handler) owner(w http.ResponseWriter, r *http.Request) (Owner, bool) {
	owner, ok := OwnerFromContext(r.Context())
	if !ok {
		handler.errs.Write(w, apierr.Unauthorized(MsgNoToken))
	}
	return owner, ok
}

// a session whose user is gone is treated like an invalid token
func (handler *Handler) writeRepoErr(w http.ResponseWriter, err error, unexpectedMsg string) {
	if errors.Is(err, ErrUserNotFound) {
		handler.errs.Write(w, apierr.Unauthorized(MsgInvalidToken))
		return
	}
	log.Errorf("users repo: %s", err)
	handler.errs.Write(w, apierr.Unexpected(unexpectedMsg, err))
}

func bodyErrorMessage(err error) string {
	if errors.Is(err, pkg.ErrInvalidContentType) {
		return "Content-Type must be application/json"
	}
	return "Invalid JSON body"
}
