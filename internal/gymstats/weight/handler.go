package weight

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

//go:generate mockgen -source=$GOFILE -destination=weight_mocks_test.go -package=weight_test

type weightRepo interface {
	Upsert(ctx context.Context, entry Entry) (_ *Entry, inserted bool, err error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*Entry, error)
	Update(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	List(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (_ []Entry, total int, err error)
	ListAll(ctx context.Context, ownerID uuid.UUID) ([]Entry, error)
}

const (
	DefaultListLimit = 50
	msgNotFound      = "Weight entry not found"
)

type EntryResponse struct {
	Message     string `json:"message,omitempty"`
	WeightEntry *Entry `json:"weightEntry"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalEntries int  `json:"totalEntries"`
	HasNext      bool `json:"hasNext"`
	HasPrev      bool `json:"hasPrev"`
}

type ListResponse struct {
	WeightEntries []Entry    `json:"weightEntries"`
	Pagination    Pagination `json:"pagination"`
}

type Handler struct {
	repo     weightRepo
	analyzer *Analyzer
	metrics  *metrics.Manager
	errs     apierr.Responder
	now      func() time.Time
}

func NewHandler(repo weightRepo, metricsManager *metrics.Manager, errs apierr.Responder) *Handler {
	return &Handler{
		repo:     repo,
		analyzer: NewAnalyzer(repo),
		metrics:  metricsManager,
		errs:     errs,
		now:      time.Now,
	}
}

// HandleCreate stores one reading per day: a second reading on the same day
// overwrites the first and answers 200 instead of 201.
func (handler *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weight.create")
	defer span.End()

	owner, ok := handler.owner(w, r)
	if !ok {
		return
	}

	var req EntryRequest
	if err := pkg.DecodeJSONBody(r, &req); err != nil {
		log.Tracef("create weight entry, decode body: %s", err)
		handler.errs.Write(w, apierr.Validation(bodyErrorMessage(err)))
		return
	}

	input, err := ValidateNew(req, handler.now())
	if err != nil {
		log.Tracef("create weight entry rejected: %s", err)
		handler.errs.Write(w, err)
		return
	}

	entry := input.Entry()
	entry.OwnerID = owner.ID
	stored, inserted, err := handler.repo.Upsert(ctx, entry)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			log.Tracef("create weight entry, owner [%s] is gone", owner.ID)
			handler.errs.Write(w, apierr.Unauthorized(auth.MsgInvalidToken))
			return
		}
		log.Errorf("failed to upsert weight entry for [%s]: %s", owner.ID, err)
		handler.errs.Write(w, apierr.Unexpected("Server error while creating weight entry", err))
		return
	}
	span.SetAttributes(attribute.Bool("inserted", inserted))

	if !inserted {
		handler.metrics.CounterWeightEntries.WithLabelValues("overwritten").Inc()
		log.Debugf("weight entry [%s] overwritten for %s", stored.ID, stored.Date.Format(pkg.DateLayout))
		pkg.WriteJSON(w, EntryResponse{
			Message:     "Weight entry updated successfully",
			WeightEntry: stored,
		}, http.StatusOK)
		return
	}

	handler.metrics.CounterWeightEntries.WithLabelValues("created").Inc()
	log.Debugf("new weight entry [%s] for %s", stored.ID, stored.Date.Format(pkg.DateLayout))
	pkg.WriteJSON(w, EntryResponse{
		Message:     "Weight entry created successfully",
		WeightEntry: stored,
	}, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weight.list")
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

	entries, total, err := handler.repo.List(ctx, owner.ID, params)
	if err != nil {
		log.Errorf("failed to list weight entries for [%s]: %s", owner.ID, err)
		handler.errs.Write(w, apierr.Unexpected("Server error while fetching weight entries", err))
		return
	}
	if entries == nil {
		entries = []Entry{}
	}

	info := pagination.NewInfo(params.Page, params.Limit, total)
	pkg.WriteJSONResponseOK(w, ListResponse{
		WeightEntries: entries,
		Pagination: Pagination{
			CurrentPage:  info.CurrentPage,
			TotalPages:   info.TotalPages,
			TotalEntries: info.Total,
			HasNext:      info.HasNext,
			HasPrev:      info.HasPrev,
		},
	})
}

func (handler *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weight.stats")
	defer span.End()

	owner, ok := handler.owner(w, r)
	if !ok {
		return
	}

	stats, err := handler.analyzer.Stats(ctx, owner.ID)
	if err != nil {
		log.Errorf("failed to compute weight stats for [%s]: %s", owner.ID, err)
		handler.errs.Write(w, apierr.Unexpected("Server error while fetching weight statistics", err))
		return
	}

	pkg.WriteJSONResponseOK(w, stats)
}

func (handler *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weight.progress")
	defer span.End()

	owner, ok := handler.owner(w, r)
	if !ok {
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = DefaultPeriod
	}

	progress, err := handler.analyzer.Progress(ctx, owner.ID, period)
	if err != nil {
		if apierr.StatusOf(err) == http.StatusBadRequest {
			handler.errs.Write(w, err)
			return
		}
		log.Errorf("failed to compute weight progress for [%s]: %s", owner.ID, err)
		handler.errs.Write(w, apierr.Unexpected("Server error while fetching weight progress", err))
		return
	}

	pkg.WriteJSONResponseOK(w, progress)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weight.get")
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

	entry, err := handler.repo.Get(ctx, owner.ID, id)
	if err != nil {
		handler.writeRepoErr(w, err, "Server error while fetching weight entry")
		return
	}

	pkg.WriteJSONResponseOK(w, EntryResponse{WeightEntry: entry})
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weight.update")
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
	span.SetAttributes(attribute.String("entry.id", id.String()))

	entry, err := handler.repo.Get(ctx, owner.ID, id)
	if err != nil {
		handler.writeRepoErr(w, err, "Server error while updating weight entry")
		return
	}

	var req EntryRequest
	if err := pkg.DecodeJSONBody(r, &req); err != nil {
		log.Tracef("update weight entry, decode body: %s", err)
		handler.errs.Write(w, apierr.Validation(bodyErrorMessage(err)))
		return
	}

	input, err := ValidateUpdate(req)
	if err != nil {
		handler.errs.Write(w, err)
		return
	}

	input.Apply(entry)
	if err := entry.Validate(); err != nil {
		handler.errs.Write(w, err)
		return
	}

	if err := handler.repo.Update(ctx, entry); err != nil {
		handler.writeRepoErr(w, err, "Server error while updating weight entry")
		return
	}

	handler.metrics.CounterWeightEntries.WithLabelValues("updated").Inc()
	pkg.WriteJSONResponseOK(w, EntryResponse{
		Message:     "Weight entry updated successfully",
		WeightEntry: entry,
	})
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weight.delete")
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
		handler.writeRepoErr(w, err, "Server error while deleting weight entry")
		return
	}

	handler.metrics.CounterWeightEntries.WithLabelValues("deleted").Inc()
	log.Debugf("weight entry [%s] deleted", id)
	pkg.WriteJSONResponseOK(w, MessageResponse{Message: "Weight entry deleted successfully"})
}

func (handler *Handler) owner(w http.ResponseWriter, r *http.Request) (auth.Owner, bool) {
	owner, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		handler.errs.Write(w, apierr.Unauthorized(auth.MsgNoToken))
	}
	return owner, ok
}

func (handler *Handler) writeRepoErr(w http.ResponseWriter, err error, unexpectedMsg string) {
	switch {
	case errors.Is(err, ErrWeightEntryNotFound):
		handler.errs.Write(w, apierr.NotFound(msgNotFound))
	case errors.Is(err, ErrDateTaken):
		handler.errs.Write(w, apierr.Validation("A weight entry already exists for this date"))
	default:
		log.Errorf("weight repo: %s", err)
		handler.errs.Write(w, apierr.Unexpected(unexpectedMsg, err))
	}
}

func bodyErrorMessage(err error) string {
	if errors.Is(err, pkg.ErrInvalidContentType) {
		return "Content-Type must be application/json"
	}
	return "Invalid JSON body"
}
