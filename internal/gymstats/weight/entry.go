package weight

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/2beens/fittracker/internal/apierr"

	"github.com/google/uuid"
)

var (
	ErrWeightEntryNotFound = errors.New("weight entry not found")
	// ErrDateTaken is returned when an update would move an entry onto a day
	// that already has one.
	ErrDateTaken = errors.New("weight entry already exists for this date")
)

const (
	MaxWeight      = 1000
	MaxNotesLength = 500
)

// Entry is one body weight reading. Date is always a UTC midnight, and an
// owner has at most one entry per date.
type Entry struct {
	ID        uuid.UUID `json:"_id"`
	OwnerID   uuid.UUID `json:"user"`
	Weight    float64   `json:"weight"`
	Date      time.Time `json:"date"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (e Entry) Validate() error {
	var problems []string
	if e.Weight <= 0 {
		problems = append(problems, "Weight must be a positive number")
	} else if e.Weight > MaxWeight {
		problems = append(problems, "Weight seems unrealistic")
	}
	if e.Date.IsZero() {
		problems = append(problems, "Date is required")
	}
	if utf8.RuneCountInString(e.Notes) > MaxNotesLength {
		problems = append(problems, "Notes cannot exceed 500 characters")
	}

	if len(problems) > 0 {
		return apierr.Validation(apierr.ValidationErrorMessage, problems...)
	}
	return nil
}
