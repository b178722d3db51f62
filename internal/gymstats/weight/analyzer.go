package weight

import (
	"context"
	"sort"
	"time"

	"github.com/2beens/fittracker/internal/apierr"
	"github.com/2beens/fittracker/internal/telemetry/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	recentEntriesCount = 5
	trendWindow        = 4
	DefaultPeriod      = "3m"
)

// periodMonths maps a progress period to how many calendar months it looks
// back; 0 means no cutoff.
var periodMonths = map[string]int{
	"1m":  1,
	"3m":  3,
	"6m":  6,
	"all": 0,
}

const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// Stats summarizes an owner's readings. Every weight field is null when there is no data for it.
type Stats struct {
	TotalEntries   int      `json:"totalEntries"`
	CurrentWeight  *float64 `json:"currentWeight"`
	PreviousWeight *float64 `json:"previousWeight"`
	WeightChange   *float64 `json:"weightChange"`
	HighestWeight  *float64 `json:"highestWeight"`
	LowestWeight   *float64 `json:"lowestWeight"`
	TotalChange    *float64 `json:"totalChange"`
	RecentEntries  []Entry  `json:"recentEntries"`
}

type Insights struct {
	Trend         string  `json:"trend"`
	TrendChange   float64 `json:"trendChange"`
	AverageChange float64 `json:"averageChange"`
}

// Progress describes the weight trend over one period. Insights is null
// with fewer than two entries in the period.
type Progress struct {
	Period        string    `json:"period"`
	CurrentWeight *float64  `json:"currentWeight"`
	StartWeight   *float64  `json:"startWeight"`
	TotalChange   float64   `json:"totalChange"`
	Insights      *Insights `json:"insights"`
	Entries       []Entry   `json:"entries"`
}

func SortByDateDesc(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
}

func ComputeStats(entries []Entry) Stats {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	SortByDateDesc(sorted)

	stats := Stats{
		TotalEntries:  len(sorted),
		RecentEntries: sorted[:min(recentEntriesCount, len(sorted))],
	}
	if len(sorted) == 0 {
		return stats
	}

	current := sorted[0].Weight
	stats.CurrentWeight = &current

	highest, lowest := current, current
	for _, e := range sorted[1:] {
		highest = max(highest, e.Weight)
		lowest = min(lowest, e.Weight)
	}
	stats.HighestWeight = &highest
	stats.LowestWeight = &lowest

	if len(sorted) > 1 {
		previous := sorted[1].Weight
		change := current - previous
		total := current - sorted[len(sorted)-1].Weight
		stats.PreviousWeight = &previous
		stats.WeightChange = &change
		stats.TotalChange = &total
	}

	return stats
}

func ValidPeriod(period string) bool {
	_, ok := periodMonths[period]
	return ok
}

func invalidPeriodErr() error {
	return apierr.Validation(apierr.ValidationErrorMessage, "Period must be one of 1m, 3m, 6m, all")
}

// ComputeProgress looks at the entries of a period, oldest first. The
// current weight is the latest reading overall, the start weight the first
// one inside the period.
func ComputeProgress(entries []Entry, period string, now time.Time) (Progress, error) {
	months, ok := periodMonths[period]
	if !ok {
		return Progress{}, invalidPeriodErr()
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	SortByDateDesc(sorted)
	// oldest first
	for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}

	filtered := sorted
	if months > 0 {
		cutoff := now.AddDate(0, -months, 0)
		filtered = make([]Entry, 0, len(sorted))
		for _, e := range sorted {
			if !e.Date.Before(cutoff) {
				filtered = append(filtered, e)
			}
		}
	}

	progress := Progress{
		Period:  period,
		Entries: filtered,
	}
	if len(sorted) > 0 {
		current := sorted[len(sorted)-1].Weight
		progress.CurrentWeight = &current
	}
	if len(filtered) > 0 {
		start := filtered[0].Weight
		progress.StartWeight = &start
	}
	if progress.CurrentWeight != nil && progress.StartWeight != nil {
		progress.TotalChange = *progress.CurrentWeight - *progress.StartWeight
	}

	if len(filtered) >= 2 {
		window := filtered[max(0, len(filtered)-trendWindow):]
		change := window[len(window)-1].Weight - window[0].Weight
		trend := TrendStable
		switch {
		case change > 0:
			trend = TrendIncreasing
		case change < 0:
			trend = TrendDecreasing
		}
		progress.Insights = &Insights{
			Trend:         trend,
			TrendChange:   change,
			AverageChange: progress.TotalChange / float64(len(filtered)),
		}
	}

	return progress, nil
}

type Analyzer struct {
	repo weightRepo
	now  func() time.Time
}

func NewAnalyzer(repo weightRepo) *Analyzer {
	return &Analyzer{
		repo: repo,
		now:  time.Now,
	}
}

func (a *Analyzer) Stats(ctx context.Context, ownerID uuid.UUID) (_ *Stats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.weight.stats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := a.repo.ListAll(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("entries", len(entries)))

	stats := ComputeStats(entries)
	return &stats, nil
}

func (a *Analyzer) Progress(ctx context.Context, ownerID uuid.UUID, period string) (_ *Progress, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.weight.progress")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("period", period))

	if !ValidPeriod(period) {
		return nil, invalidPeriodErr()
	}

	entries, err := a.repo.ListAll(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	progress, err := ComputeProgress(entries, period, a.now())
	if err != nil {
		return nil, err
	}
	return &progress, nil
}
