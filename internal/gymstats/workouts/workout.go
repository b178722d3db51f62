package workouts

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/2beens/fittracker/internal/apierr"

	"github.com/google/uuid"
)

var ErrWorkoutNotFound = errors.New("workout not found")

const (
	MaxExerciseNameLength = 100
	MaxNotesLength        = 500
)

type Set struct {
	Reps   int     `json:"reps"`
	Weight float64 `json:"weight"`
}

// Volume is reps*weight; sets without a usable value count as 0.
func (s Set) Volume() float64 {
	if s.Reps <= 0 || math.IsNaN(s.Weight) || math.IsInf(s.Weight, 0) {
		return 0
	}
	return float64(s.Reps) * s.Weight
}

type Exercise struct {
	Name string `json:"name"`
	Sets []Set  `json:"sets"`
}

type Workout struct {
	ID        uuid.UUID  `json:"_id"`
	OwnerID   uuid.UUID  `json:"user"`
	Date      time.Time  `json:"date"`
	Exercises []Exercise `json:"exercises"`
	Notes     string     `json:"notes"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (w Workout) TotalVolume() float64 {
	return TotalVolume(w)
}

// TotalVolume sums reps*weight over every set of every exercise.
func TotalVolume(w Workout) float64 {
	total := 0.0
	for _, e := range w.Exercises {
		for _, s := range e.Sets {
			total += s.Volume()
		}
	}
	return total
}

// MarshalJSON adds the derived totalVolume next to the stored fields.
func (w Workout) MarshalJSON() ([]byte, error) {
	type plain Workout
	return json.Marshal(struct {
		plain
		TotalVolume float64 `json:"totalVolume"`
	}{
		plain:       plain(w),
		TotalVolume: w.TotalVolume(),
	})
}

// Validate checks the stored shape of a workout and reports every problem at once.
func (w Workout) Validate() error {
	var problems []string
	if len(w.Exercises) == 0 {
		problems = append(problems, msgExercisesRequired)
	}
	for _, e := range w.Exercises {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			problems = append(problems, "Exercise name is required")
		} else if utf8.RuneCountInString(name) > MaxExerciseNameLength {
			problems = append(problems, "Exercise name cannot exceed 100 characters")
		}
		if len(e.Sets) == 0 {
			problems = append(problems, "At least one set is required")
		}
		for _, s := range e.Sets {
			if s.Reps < 1 {
				problems = append(problems, "Reps must be at least 1")
			}
			if s.Weight < 0 {
				problems = append(problems, "Weight cannot be negative")
			}
		}
	}
	if utf8.RuneCountInString(w.Notes) > MaxNotesLength {
		problems = append(problems, "Notes cannot exceed 500 characters")
	}

	if len(problems) > 0 {
		return apierr.Validation(apierr.ValidationErrorMessage, problems...)
	}
	return nil
}
