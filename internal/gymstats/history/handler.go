package history

import (
	"context"
	"net/http"
	"time"

	"github.com/2beens/fittracker/internal/apierr"
	"github.com/2beens/fittracker/internal/auth"
	"github.com/2beens/fittracker/internal/gymstats/weight"
	"github.com/2beens/fittracker/internal/gymstats/workouts"
	"github.com/2beens/fittracker/internal/pagination"
	"github.com/2beens/fittracker/internal/telemetry/tracing"
	"github.com/2beens/fittracker/pkg"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

//go:generate mockgen -source=$GOFILE -destination=history_mocks_test.go -package=history_test

type workoutsLister interface {
	List(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (_ []workouts.Workout, total int, err error)
}

type weightLister interface {
	List(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (_ []weight.Entry, total int, err error)
}

const DefaultLimit = 50

type Response struct {
	Activities []Activity `json:"activities"`
	Groups     []Group    `json:"groups,omitempty"`
	Summary    Summary    `json:"summary"`
}

type Handler struct {
	workouts workoutsLister
	weight   weightLister
	errs     apierr.Responder
	now      func() time.Time
}

func NewHandler(workoutsRepo workoutsLister, weightRepo weightLister, errs apierr.Responder) *Handler {
	return &Handler{
		workouts: workoutsRepo,
		weight:   weightRepo,
		errs:     errs,
		now:      time.Now,
	}
}

// HandleList answers the newest workouts and weight entries as one timeline.
// The summary is computed before type and search filters are applied.
func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.history.list")
	defer span.End()

	owner, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		handler.errs.Write(w, apierr.Unauthorized(auth.MsgNoToken))
		return
	}

	query := r.URL.Query()
	filter := Filter{
		Type:  query.Get("type"),
		Query: query.Get("q"),
	}
	if filter.Type == "" {
		filter.Type = FilterAll
	}
	if filter.Type != FilterAll && filter.Type != FilterWorkouts && filter.Type != FilterWeight {
		handler.errs.Write(w, apierr.Validation(apierr.ValidationErrorMessage, "Type must be one of all, workouts, weight"))
		return
	}
	groupBy := query.Get("groupBy")
	if groupBy != GroupByNone && groupBy != GroupByDate && groupBy != GroupByType {
		handler.errs.Write(w, apierr.Validation(apierr.ValidationErrorMessage, "groupBy must be date or type"))
		return
	}
	params := pagination.Params{
		Page:  pagination.DefaultPage,
		Limit: min(pagination.ParsePositiveInt(query.Get("limit"), DefaultLimit), pagination.MaxLimit),
	}
	span.SetAttributes(attribute.String("type", filter.Type))
	span.SetAttributes(attribute.String("group_by", groupBy))

	var (
		workoutList []workouts.Workout
		entries     []weight.Entry
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		workoutList, _, err = handler.workouts.List(gCtx, owner.ID, params)
		return err
	})
	g.Go(func() error {
		var err error
		entries, _, err = handler.weight.List(gCtx, owner.ID, params)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Errorf("failed to load history for [%s]: %s", owner.ID, err)
		handler.errs.Write(w, apierr.Unexpected("Server error while fetching history", err))
		return
	}

	now := handler.now()
	all := Merge(workoutList, entries)
	filtered := filter.Apply(all)

	resp := Response{
		Activities: filtered,
		Summary:    Summarize(all, now),
	}
	switch groupBy {
	case GroupByDate:
		resp.Groups = GroupByDay(filtered, now)
	case GroupByType:
		resp.Groups = GroupByKind(filtered)
	}

	pkg.WriteJSONResponseOK(w, resp)
}
