package workouts

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/2beens/fittracker/internal/apierr"
	"github.com/2beens/fittracker/pkg"
)

const (
	msgExercisesRequired = "At least one exercise is required"
	msgExerciseShape     = "Each exercise must have a name and at least one set"
	msgSetShape          = "Each set must have valid reps (>= 1) and weight (>= 0)"
	msgInvalidDate       = "Date must be a valid date"
	msgInvalidNotes      = "Notes must be a string"
)

// WorkoutRequest is the raw create/update body. Fields stay raw so the
// JSON type of each value can be checked, not only its Go conversion.
type WorkoutRequest struct {
	Date      json.RawMessage `json:"date"`
	Exercises json.RawMessage `json:"exercises"`
	Notes     json.RawMessage `json:"notes"`
}

type exerciseRequest struct {
	Name json.RawMessage `json:"name"`
	Sets json.RawMessage `json:"sets"`
}

type setRequest struct {
	Reps   json.RawMessage `json:"reps"`
	Weight json.RawMessage `json:"weight"`
}

type NewWorkoutInput struct {
	Date      time.Time
	Exercises []Exercise
	Notes     string
}

func (in NewWorkoutInput) Workout() Workout {
	return Workout{
		Date:      in.Date,
		Exercises: in.Exercises,
		Notes:     in.Notes,
	}
}

// UpdateWorkoutInput holds only the fields the client sent.
type UpdateWorkoutInput struct {
	Date      *time.Time
	Exercises []Exercise
	Notes     *string
}

// Apply merges the sent fields into w.
func (in UpdateWorkoutInput) Apply(w *Workout) {
	if in.Date != nil {
		w.Date = *in.Date
	}
	if in.Exercises != nil {
		w.Exercises = in.Exercises
	}
	if in.Notes != nil {
		w.Notes = *in.Notes
	}
}

// ValidateNew checks a create request. The first shape violation rejects the
// whole request; the built workout is then checked against the stored constraints.
// A missing date defaults to now.
func ValidateNew(req WorkoutRequest, now time.Time) (NewWorkoutInput, error) {
	elems, ok := pkg.JSONArray(req.Exercises)
	if !ok || len(elems) == 0 {
		return NewWorkoutInput{}, apierr.Validation(msgExercisesRequired)
	}

	exercises := make([]Exercise, 0, len(elems))
	for _, elem := range elems {
		var er exerciseRequest
		if err := json.Unmarshal(elem, &er); err != nil {
			return NewWorkoutInput{}, apierr.Validation(msgExerciseShape)
		}
		name, ok := pkg.JSONString(er.Name)
		if !ok || strings.TrimSpace(name) == "" {
			return NewWorkoutInput{}, apierr.Validation(msgExerciseShape)
		}
		setElems, ok := pkg.JSONArray(er.Sets)
		if !ok || len(setElems) == 0 {
			return NewWorkoutInput{}, apierr.Validation(msgExerciseShape)
		}

		sets := make([]Set, 0, len(setElems))
		for _, setElem := range setElems {
			var sr setRequest
			if err := json.Unmarshal(setElem, &sr); err != nil {
				return NewWorkoutInput{}, apierr.Validation(msgSetShape)
			}
			reps, repsOK := pkg.JSONInt(sr.Reps)
			weight, weightOK := pkg.JSONNumber(sr.Weight)
			if !repsOK || !weightOK || reps < 1 || weight < 0 {
				return NewWorkoutInput{}, apierr.Validation(msgSetShape)
			}
			sets = append(sets, Set{Reps: reps, Weight: weight})
		}

		exercises = append(exercises, Exercise{Name: strings.TrimSpace(name), Sets: sets})
	}

	date := now
	if parsed, sent, err := parseDate(req.Date); err != nil {
		return NewWorkoutInput{}, err
	} else if sent {
		date = parsed
	}

	notes, _, err := parseNotes(req.Notes)
	if err != nil {
		return NewWorkoutInput{}, err
	}

	in := NewWorkoutInput{
		Date:      date,
		Exercises: exercises,
		Notes:     notes,
	}
	if err := in.Workout().Validate(); err != nil {
		return NewWorkoutInput{}, err
	}
	return in, nil
}

// ValidateUpdate only rejects an empty exercises list outright; the remaining
// shape checks run on the merged workout via Workout.Validate.
func ValidateUpdate(req WorkoutRequest) (UpdateWorkoutInput, error) {
	var in UpdateWorkoutInput

	if pkg.JSONPresent(req.Exercises) {
		elems, ok := pkg.JSONArray(req.Exercises)
		if !ok || len(elems) == 0 {
			return UpdateWorkoutInput{}, apierr.Validation(msgExercisesRequired)
		}
		exercises, problems := parseExercisesLoose(elems)
		if len(problems) > 0 {
			return UpdateWorkoutInput{}, apierr.Validation(apierr.ValidationErrorMessage, problems...)
		}
		in.Exercises = exercises
	}

	if date, sent, err := parseDate(req.Date); err != nil {
		return UpdateWorkoutInput{}, err
	} else if sent {
		in.Date = &date
	}

	notes, sent, err := parseNotes(req.Notes)
	if err != nil {
		return UpdateWorkoutInput{}, err
	}
	if sent {
		in.Notes = &notes
	}

	return in, nil
}

// parseExercisesLoose converts exercises without enforcing bounds. Values of
// the wrong JSON type cannot be stored at all and are reported here.
func parseExercisesLoose(elems []json.RawMessage) ([]Exercise, []string) {
	var problems []string
	exercises := make([]Exercise, 0, len(elems))
	for _, elem := range elems {
		var er exerciseRequest
		if err := json.Unmarshal(elem, &er); err != nil {
			problems = append(problems, "Exercise must be an object")
			continue
		}

		var e Exercise
		if name, ok := pkg.JSONString(er.Name); ok {
			e.Name = strings.TrimSpace(name)
		} else if pkg.JSONPresent(er.Name) {
			problems = append(problems, "Exercise name must be a string")
		}

		if pkg.JSONPresent(er.Sets) {
			setElems, ok := pkg.JSONArray(er.Sets)
			if !ok {
				problems = append(problems, "Sets must be a list")
			}
			for _, setElem := range setElems {
				var sr setRequest
				if err := json.Unmarshal(setElem, &sr); err != nil {
					problems = append(problems, "Set must be an object")
					continue
				}
				reps, ok := pkg.JSONInt(sr.Reps)
				if !ok {
					problems = append(problems, "Reps must be a whole number")
				}
				weight, ok := pkg.JSONNumber(sr.Weight)
				if !ok {
					problems = append(problems, "Weight must be a number")
				}
				e.Sets = append(e.Sets, Set{Reps: reps, Weight: weight})
			}
		}

		exercises = append(exercises, e)
	}
	return exercises, problems
}

// parseDate reads an optional date; sent is false for a missing, null or empty value.
func parseDate(raw json.RawMessage) (_ time.Time, sent bool, _ error) {
	if !pkg.JSONPresent(raw) {
		return time.Time{}, false, nil
	}
	s, ok := pkg.JSONString(raw)
	if !ok {
		return time.Time{}, false, apierr.Validation(apierr.ValidationErrorMessage, msgInvalidDate)
	}
	if strings.TrimSpace(s) == "" {
		return time.Time{}, false, nil
	}
	date, _, err := pkg.ParseDate(s)
	if err != nil {
		return time.Time{}, false, apierr.Validation(apierr.ValidationErrorMessage, msgInvalidDate)
	}
	return date, true, nil
}

// parseNotes reads optional notes; a null value counts as not sent.
func parseNotes(raw json.RawMessage) (_ string, sent bool, _ error) {
	if !pkg.JSONPresent(raw) {
		return "", false, nil
	}
	s, ok := pkg.JSONString(raw)
	if !ok {
		return "", false, apierr.Validation(apierr.ValidationErrorMessage, msgInvalidNotes)
	}
	return strings.TrimSpace(s), true, nil
}
