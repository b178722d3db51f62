package weight

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/2beens/fittracker/internal/apierr"
	"github.com/2beens/fittracker/pkg"
)

const (
	msgWeightRequired    = "Valid weight is required"
	msgWeightRange       = "Weight must be between 0 and 1000"
	msgUpdateWeightRange = "Weight must be a number between 0 and 1000"
	msgInvalidDate       = "Date must be a valid date"
	msgInvalidNotes      = "Notes must be a string"
)

type EntryRequest struct {
	Weight json.RawMessage `json:"weight"`
	Date   json.RawMessage `json:"date"`
	Notes  json.RawMessage `json:"notes"`
}

// NewEntryInput is a validated create request; Date is already normalized to midnight.
type NewEntryInput struct {
	Weight float64
	Date   time.Time
	Notes  string
}

func (in NewEntryInput) Entry() Entry {
	return Entry{
		Weight: in.Weight,
		Date:   in.Date,
		Notes:  in.Notes,
	}
}

// UpdateEntryInput holds only the fields the client sent.
type UpdateEntryInput struct {
	Weight *float64
	Date   *time.Time
	Notes  *string
}

func (in UpdateEntryInput) Apply(e *Entry) {
	if in.Weight != nil {
		e.Weight = *in.Weight
	}
	if in.Date != nil {
		e.Date = *in.Date
	}
	if in.Notes != nil {
		e.Notes = *in.Notes
	}
}

// ValidateNew checks a create request. A missing date defaults to the day of now.
func ValidateNew(req EntryRequest, now time.Time) (NewEntryInput, error) {
	weight, ok := pkg.JSONNumber(req.Weight)
	if !ok || weight == 0 {
		return NewEntryInput{}, apierr.Validation(msgWeightRequired)
	}
	if weight <= 0 || weight > MaxWeight {
		return NewEntryInput{}, apierr.Validation(msgWeightRange)
	}

	date := now
	if parsed, sent, err := parseDate(req.Date); err != nil {
		return NewEntryInput{}, err
	} else if sent {
		date = parsed
	}

	notes, _, err := parseNotes(req.Notes)
	if err != nil {
		return NewEntryInput{}, err
	}

	in := NewEntryInput{
		Weight: weight,
		Date:   pkg.Midnight(date),
		Notes:  notes,
	}
	if err := in.Entry().Validate(); err != nil {
		return NewEntryInput{}, err
	}
	return in, nil
}

// ValidateUpdate checks only the fields present in the request. A weight
// that is sent, null included, must be a number in (0, 1000].
func ValidateUpdate(req EntryRequest) (UpdateEntryInput, error) {
	var in UpdateEntryInput

	if pkg.JSONSent(req.Weight) {
		weight, ok := pkg.JSONNumber(req.Weight)
		if !ok || weight <= 0 || weight > MaxWeight {
			return UpdateEntryInput{}, apierr.Validation(msgUpdateWeightRange)
		}
		in.Weight = &weight
	}

	if date, sent, err := parseDate(req.Date); err != nil {
		return UpdateEntryInput{}, err
	} else if sent {
		date = pkg.Midnight(date)
		in.Date = &date
	}

	notes, sent, err := parseNotes(req.Notes)
	if err != nil {
		return UpdateEntryInput{}, err
	}
	if sent {
		in.Notes = &notes
	}

	return in, nil
}

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

// parseNotes trims sent notes; an explicit null clears them.
func parseNotes(raw json.RawMessage) (_ string, sent bool, _ error) {
	if !pkg.JSONSent(raw) {
		return "", false, nil
	}
	if !pkg.JSONPresent(raw) {
		return "", true, nil
	}
	s, ok := pkg.JSONString(raw)
	if !ok {
		return "", false, apierr.Validation(apierr.ValidationErrorMessage, msgInvalidNotes)
	}
	return strings.TrimSpace(s), true, nil
}
