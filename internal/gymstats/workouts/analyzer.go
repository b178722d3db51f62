package workouts

import (
	"context"
	"sort"
	"time"

	"github.com/2beens/fittracker/internal/telemetry/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const recentWorkoutsCount = 5

// Stats is the workout summary of one owner. The month and week counts
// cover the trailing 30 and 7 days.
type Stats struct {
	TotalWorkouts        int       `json:"totalWorkouts"`
	WorkoutsThisMonth    int       `json:"workoutsThisMonth"`
	WorkoutsThisWeek     int       `json:"workoutsThisWeek"`
	TotalVolumeThisMonth float64   `json:"totalVolumeThisMonth"`
	RecentWorkouts       []Workout `json:"recentWorkouts"`
}

// SortByDateDesc sorts in place, newest first; equal dates keep the most
// recently created first.
func SortByDateDesc(list []Workout) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.After(list[j].Date)
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

// ComputeStats aggregates the workouts of one owner. The input is not modified.
func ComputeStats(list []Workout, now time.Time) Stats {
	sorted := make([]Workout, len(list))
	copy(sorted, list)
	SortByDateDesc(sorted)

	monthAgo := now.AddDate(0, 0, -30)
	weekAgo := now.AddDate(0, 0, -7)

	stats := Stats{
		TotalWorkouts:  len(sorted),
		RecentWorkouts: sorted[:min(recentWorkoutsCount, len(sorted))],
	}
	for _, w := range sorted {
		if !w.Date.Before(monthAgo) {
			stats.WorkoutsThisMonth++
			stats.TotalVolumeThisMonth += w.TotalVolume()
		}
		if !w.Date.Before(weekAgo) {
			stats.WorkoutsThisWeek++
		}
	}
	return stats
}

type Analyzer struct {
	repo workoutsRepo
	now  func() time.Time
}

func NewAnalyzer(repo workoutsRepo) *Analyzer {
	return &Analyzer{
		repo: repo,
		now:  time.Now,
	}
}

func (a *Analyzer) Stats(ctx context.Context, ownerID uuid.UUID) (_ *Stats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.stats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	list, err := a.repo.ListAll(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("workouts", len(list)))

	stats := ComputeStats(list, a.now())
	return &stats, nil
}
