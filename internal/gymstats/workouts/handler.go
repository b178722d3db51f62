package workouts

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/2beens/fittracker/internal/apierr"
	"github.com/2beens/fittracker/internal/auth"
	"github.com/2beens/fittracker/internal/pagination"
	"github.com/2beens/fittracker/internal/telemetry/metrics"
	"github.com/2beens/fittracker/internal/telemetry/tracing"
	"github.com/2beens/fittracker/pkg"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=workouts_mocks_test.go -package=workouts_test

type workoutsRepo interface {
	Add(ctx context.Context, workout Workout) (*Workout, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*Workout, error)
	Update(ctx context.Context, workout *Workout) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	List(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (_ []Workout, total int, err error)
	ListAll(ctx context.Context, ownerID uuid.UUID) ([]Workout, error)
}

const (
	DefaultListLimit = 20
	msgNotFound      = "Workout not found"
)

type WorkoutResponse struct {
	Message string   `json:"message,omitempty"`
	Workout *Workout `json:"workout"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type Pagination struct {
	CurrentPage   int  `json:"currentPage"`
	TotalPages    int  `json:"totalPages"`
	TotalWorkouts int  `json:"totalWorkouts"`
	HasNext       bool `json:"hasNext"`
	HasPrev       bool `json:"hasPrev"`
}

type ListResponse struct {
	Workouts   []Workout  `json:"workouts"`
	Pagination Pagination `json:"pagination"`
}

type Handler struct {
	repo     workoutsRepo
	analyzer *Analyzer
	metrics  *metrics.Manager
	errs     apierr.Responder
	now      func() time.Time
}

func NewHandler(repo workoutsRepo, metricsManager *metrics.Manager, errs apierr.Responder) *Handler {
	return &Handler{
		repo:     repo,
		analyzer: NewAnalyzer(repo),
		metrics:  metricsManager,
		errs:     errs,
		now:      time.Now,
	}
}

func (handler *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.create")
	defer span.End()

	owner, ok := handler.owner(w, r)
	if !ok {
		return
	}

	var req WorkoutRequest
	if err := pkg.DecodeJSONBody(r, &req); err != nil {
		log.Tracef("create workout, decode body: %s", err)
		handler.errs.Write(w, apierr.Validation(bodyErrorMessage(err)))
		return
	}

	input, err := ValidateNew(req, handler.now())
	if err != nil {
		log.Tracef("create workout rejected: %s", err)
		handler.errs.Write(w, err)
		return
	}

	workout := input.Workout()
	workout.OwnerID = owner.ID
	added, err := handler.repo.Add(ctx, workout)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			log.Tracef("create workout, owner [%s] is gone", owner.ID)
			handler.errs.Write(w, apierr.Unauthorized(auth.MsgInvalidToken))
			return
		}
		log.Errorf("failed to add workout for [%s]: %s", owner.ID, err)
		handler.errs.Write(w, apierr.Unexpected("Server error while creating workout", err))
		return
	}

	handler.metrics.CounterWorkouts.WithLabelValues("created").Inc()
	span.SetAttributes(attribute.String("workout.id", added.ID.String()))
	log.Debugf("new workout added: [%s] with %d exercises", added.ID, len(added.Exercises))

	pkg.WriteJSON(w, WorkoutResponse{
		Message: "Workout created successfully",
		Workout: added,
	}, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	owner, ok := handler.owner(w, r)
	if !ok {
		return
	}

	params, err := pagination.ParseParams(r.URL.Query(), DefaultListLimit)
	if err != nil {
		handler.errs.Write(w, err)
		return
	}

	list, total, err := handler.repo.List(ctx, owner.ID, params)
	if err != nil {
		log.Errorf("failed to list workouts for [%s]: %s", owner.ID, err)
		handler.errs.Write(w, apierr.Unexpected("Server error while fetching workouts", err))
		return
	}
	if list == nil {
		list = []Workout{}
	}

	info := pagination.NewInfo(params.Page, params.Limit, total)
	pkg.WriteJSONResponseOK(w, ListResponse{
		Workouts: list,
		Pagination: Pagination{
			CurrentPage:   info.CurrentPage,
			TotalPages:    info.TotalPages,
			TotalWorkouts: info.Total,
			HasNext:       info.HasNext,
			HasPrev:       info.HasPrev,
		},
	})
}

func (handler *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.stats")
	defer span.End()

	owner, ok := handler.owner(w, r)
	if !ok {
		return
	}

	stats, err := handler.analyzer.Stats(ctx, owner.ID)
	if err != nil {
		log.Errorf("failed to compute workout stats for [%s]: %s", owner.ID, err)
		handler.errs.Write(w, apierr.Unexpected("Server error while fetching workout statistics", err))
		return
	}

	pkg.WriteJSONResponseOK(w, stats)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get")
	defer span.End()

	owner, ok := handler.owner(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		handler.errs.Write(w, apierr.NotFound(msgNotFound))
		return
	}

	workout, err := handler.repo.Get(ctx, owner.ID, id)
	if err != nil {
		handler.writeRepoErr(w, err, "Server error while fetching workout")
		return
	}

	pkg.WriteJSONResponseOK(w, WorkoutResponse{Workout: workout})
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.update")
	defer span.End()

	owner, ok := handler.owner(w, r)
	if !ok {
		return
	}

	var req WorkoutRequest
	if err := pkg.DecodeJSONBody(r, &req); err != nil {
		log.Tracef("update workout, decode body: %s", err)
		handler.errs.Write(w, apierr.Validation(bodyErrorMessage(err)))
		return
	}

	input, err := ValidateUpdate(req)
	if err != nil {
		handler.errs.Write(w, err)
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		handler.errs.Write(w, apierr.NotFound(msgNotFound))
		return
	}
	span.SetAttributes(attribute.String("workout.id", id.String()))

	workout, err := handler.repo.Get(ctx, owner.ID, id)
	if err != nil {
		handler.writeRepoErr(w, err, "Server error while updating workout")
		return
	}

	input.Apply(workout)
	if err := workout.Validate(); err != nil {
		handler.errs.Write(w, err)
		return
	}

	if err := handler.repo.Update(ctx, workout); err != nil {
		handler.writeRepoErr(w, err, "Server error while updating workout")
		return
	}

	handler.metrics.CounterWorkouts.WithLabelValues("updated").Inc()
	pkg.WriteJSONResponseOK(w, WorkoutResponse{
		Message: "Workout updated successfully",
		Workout: workout,
	})
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	owner, ok := handler.owner(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		handler.errs.Write(w, apierr.NotFound(msgNotFound))
		return
	}

	if err := handler.repo.Delete(ctx, owner.ID, id); err != nil {
		handler.writeRepoErr(w, err, "Server error while deleting workout")
		return
	}

	handler.metrics.CounterWorkouts.WithLabelValues("deleted").Inc()
	log.Debugf("workout [%s] deleted", id)
	pkg.WriteJSONResponseOK(w, MessageResponse{Message: "Workout deleted successfully"})
}

func (handler *Handler) owner(w http.ResponseWriter, r *http.Request) (auth.Owner, bool) {
	owner, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		handler.errs.Write(w, apierr.Unauthorized(auth.MsgNoToken))
	}
	return owner, ok
}

func (handler *Handler) writeRepoErr(w http.ResponseWriter, err error, unexpectedMsg string) {
	if errors.Is(err, ErrWorkoutNotFound) {
		handler.errs.Write(w, apierr.NotFound(msgNotFound))
		return
	}
	log.Errorf("workouts repo: %s", err)
	handler.errs.Write(w, apierr.Unexpected(unexpectedMsg, err))
}

func bodyErrorMessage(err error) string {
	if errors.Is(err, pkg.ErrInvalidContentType) {
		return "Content-Type must be application/json"
	}
	return "Invalid JSON body"
}
