package workouts_test

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/2beens/fittracker/internal/apierr"
	"github.com/2beens/fittracker/internal/gymstats/workouts"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTotalVolume(t *testing.T) {
	w := workouts.Workout{
		Exercises: []workouts.Exercise{
			{Name: "Bench", Sets: []workouts.Set{{Reps: 10, Weight: 100}, {Reps: 8, Weight: 110}}},
			{Name: "Row", Sets: []workouts.Set{{Reps: 12, Weight: 50}}},
		},
	}
	assert.Equal(t, 2480.0, workouts.TotalVolume(w))
	assert.Equal(t, 2480.0, w.TotalVolume())

	assert.Zero(t, workouts.TotalVolume(workouts.Workout{}))

	w.Exercises = append(w.Exercises, workouts.Exercise{
		Name: "Broken",
		Sets: []workouts.Set{{Reps: 10, Weight: math.NaN()}, {Reps: 0, Weight: 20}, {Reps: 5, Weight: math.Inf(1)}},
	})
	assert.Equal(t, 2480.0, w.TotalVolume())
}

func TestWorkout_MarshalJSON(t *testing.T) {
	w := workouts.Workout{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Date:      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Exercises: []workouts.Exercise{{Name: "Squat", Sets: []workouts.Set{{Reps: 5, Weight: 100}}}},
		Notes:     "heavy",
	}

	raw, err := json.Marshal(w)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, w.ID.String(), fields["_id"])
	assert.Equal(t, w.OwnerID.String(), fields["user"])
	assert.Equal(t, 500.0, fields["totalVolume"])
	assert.Equal(t, "heavy", fields["notes"])
	assert.Contains(t, fields, "createdAt")
	assert.Contains(t, fields, "updatedAt")

	var decoded workouts.Workout
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, w.ID, decoded.ID)
	assert.Equal(t, w.Exercises, decoded.Exercises)
}

func TestWorkout_Validate(t *testing.T) {
	valid := workouts.Workout{
		Exercises: []workouts.Exercise{{Name: "Deadlift", Sets: []workouts.Set{{Reps: 1, Weight: 0}}}},
	}
	assert.NoError(t, valid.Validate())

	invalid := workouts.Workout{
		Exercises: []workouts.Exercise{
			{Name: strings.Repeat("x", 101), Sets: []workouts.Set{{Reps: 0, Weight: -1}}},
			{Name: " ", Sets: nil},
		},
		Notes: strings.Repeat("n", 501),
	}
	err := invalid.Validate()
	require.Error(t, err)

	var apiErr *apierr.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.Status)
	assert.Equal(t, apierr.ValidationErrorMessage, apiErr.Message)
	assert.Equal(t, []string{
		"Exercise name cannot exceed 100 characters",
		"Reps must be at least 1",
		"Weight cannot be negative",
		"Exercise name is required",
		"At least one set is required",
		"Notes cannot exceed 500 characters",
	}, apiErr.Details)

	err = workouts.Workout{}.Validate()
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, []string{"At least one exercise is required"}, apiErr.Details)
}
