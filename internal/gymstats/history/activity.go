// Package history merges workouts and weight entries into one timeline.
package history

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/fittracker/internal/gymstats/weight"
	"github.com/2beens/fittracker/internal/gymstats/workouts"
	"github.com/2beens/fittracker/pkg"

	"github.com/google/uuid"
)

const (
	TypeWorkout = "workout"
	TypeWeight  = "weight"

	FilterAll      = "all"
	FilterWorkouts = "workouts"
	FilterWeight   = "weight"

	GroupByNone = ""
	GroupByDate = "date"
	GroupByType = "type"
)

type Activity struct {
	ID       uuid.UUID `json:"id"`
	Type     string    `json:"type"`
	Date     time.Time `json:"date"`
	Title    string    `json:"title"`
	Subtitle string    `json:"subtitle"`
	Value    float64   `json:"value"`
	Notes    string    `json:"notes"`
}

func FromWorkout(w workouts.Workout) Activity {
	n := len(w.Exercises)
	title := fmt.Sprintf("%d exercise", n)
	if n != 1 {
		title += "s"
	}

	names := make([]string, 0, 2)
	for _, e := range w.Exercises[:min(2, n)] {
		names = append(names, e.Name)
	}
	subtitle := strings.Join(names, ", ")
	if subtitle == "" {
		subtitle = "No exercises"
	}

	return Activity{
		ID:       w.ID,
		Type:     TypeWorkout,
		Date:     w.Date,
		Title:    title,
		Subtitle: subtitle,
		Value:    w.TotalVolume(),
		Notes:    w.Notes,
	}
}

func FromWeightEntry(e weight.Entry) Activity {
	return Activity{
		ID:       e.ID,
		Type:     TypeWeight,
		Date:     e.Date,
		Title:    strconv.FormatFloat(e.Weight, 'f', -1, 64) + " lbs",
		Subtitle: "Weight entry",
		Value:    e.Weight,
		Notes:    e.Notes,
	}
}

// Merge builds one timeline, newest first.
func Merge(workoutList []workouts.Workout, entries []weight.Entry) []Activity {
	activities := make([]Activity, 0, len(workoutList)+len(entries))
	for _, w := range workoutList {
		activities = append(activities, FromWorkout(w))
	}
	for _, e := range entries {
		activities = append(activities, FromWeightEntry(e))
	}
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Date.After(activities[j].Date)
	})
	return activities
}

type Filter struct {
	Type  string
	Query string
}

// Apply keeps the activities of the requested type whose title, subtitle or
// notes contain the query, ignoring case.
func (f Filter) Apply(activities []Activity) []Activity {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	filtered := make([]Activity, 0, len(activities))
	for _, a := range activities {
		if f.Type == FilterWorkouts && a.Type != TypeWorkout {
			continue
		}
		if f.Type == FilterWeight && a.Type != TypeWeight {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(a.Title), query) &&
			!strings.Contains(strings.ToLower(a.Subtitle), query) &&
			!strings.Contains(strings.ToLower(a.Notes), query) {
			continue
		}
		filtered = append(filtered, a)
	}
	return filtered
}

type Group struct {
	Key        string     `json:"key"`
	Title      string     `json:"title"`
	Activities []Activity `json:"activities"`
}

// GroupByDay buckets activities by calendar day, newest day first. The
// input must already be sorted newest first.
func GroupByDay(activities []Activity, now time.Time) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, a := range activities {
		key := a.Date.UTC().Format(pkg.DateLayout)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key, Title: dayLabel(a.Date, now)})
		}
		groups[i].Activities = append(groups[i].Activities, a)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Key > groups[j].Key
	})
	return groups
}

// GroupByKind splits activities into workouts and weight entries; empty
// groups are left out.
func GroupByKind(activities []Activity) []Group {
	workoutGroup := Group{Key: TypeWorkout, Title: "Workouts"}
	weightGroup := Group{Key: TypeWeight, Title: "Weight Tracking"}
	for _, a := range activities {
		switch a.Type {
		case TypeWorkout:
			workoutGroup.Activities = append(workoutGroup.Activities, a)
		case TypeWeight:
			weightGroup.Activities = append(weightGroup.Activities, a)
		}
	}

	var groups []Group
	for _, g := range []Group{workoutGroup, weightGroup} {
		if len(g.Activities) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

func dayLabel(date, now time.Time) string {
	d, today := pkg.Midnight(date), pkg.Midnight(now)
	switch days := int(today.Sub(d).Hours() / 24); {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days > 1 && days <= 7:
		return fmt.Sprintf("%d days ago", days)
	case days > 7 && days <= 30:
		return fmt.Sprintf("%d weeks ago", (days+6)/7)
	}
	if d.Year() != today.Year() {
		return d.Format("January 2, 2006")
	}
	return d.Format("January 2")
}

type Summary struct {
	Total    int `json:"total"`
	Workouts int `json:"workouts"`
	Weights  int `json:"weights"`
	ThisWeek int `json:"thisWeek"`
}

// Summarize counts the unfiltered timeline; ThisWeek covers the last 7 days.
func Summarize(activities []Activity, now time.Time) Summary {
	weekAgo := now.AddDate(0, 0, -7)
	summary := Summary{Total: len(activities)}
	for _, a := range activities {
		switch a.Type {
		case TypeWorkout:
			summary.Workouts++
		case TypeWeight:
			summary.Weights++
		}
		if !a.Date.Before(weekAgo) {
			summary.ThisWeek++
		}
	}
	return summary
}
