// Package pagination parses page/limit/date-range query parameters and
// computes the page block returned by the list endpoints.
package pagination

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/fittracker/internal/apierr"
	"github.com/2beens/fittracker/pkg"
)

const (
	DefaultPage = 1
	// MaxLimit caps a single page so one request cannot pull a whole table.
	MaxLimit = 500
)

type Params struct {
	Page  int
	Limit int
	// From and To bound the entry date, both inclusive; nil means unbounded.
	From *time.Time
	To   *time.Time
}

// ParseParams reads page, limit, startDate and endDate from the query.
// Malformed page/limit fall back to their defaults; an unparseable date is
// a validation error.
func ParseParams(query url.Values, defaultLimit int) (Params, error) {
	limit := min(ParsePositiveInt(query.Get("limit"), defaultLimit), MaxLimit)
	params := Params{
		// (Page-1)*Limit must stay within int.
		Page:  min(ParsePositiveInt(query.Get("page"), DefaultPage), math.MaxInt/limit),
		Limit: limit,
	}

	from, to, err := ParseDateRange(query.Get("startDate"), query.Get("endDate"))
	if err != nil {
		return Params{}, err
	}
	params.From, params.To = from, to

	return params, nil
}

// ParsePositiveInt parses raw as an integer, falls back to def when it
// cannot be parsed and clamps the result to at least 1.
func ParsePositiveInt(raw string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		v = def
	}
	return max(v, 1)
}

// ParseDateRange parses optional inclusive bounds. A date-only endDate
// covers that whole day.
func ParseDateRange(startRaw, endRaw string) (from, to *time.Time, err error) {
	if strings.TrimSpace(startRaw) != "" {
		start, _, err := pkg.ParseDate(startRaw)
		if err != nil {
			return nil, nil, apierr.Validation(apierr.ValidationErrorMessage, "startDate must be a valid date")
		}
		from = &start
	}

	if strings.TrimSpace(endRaw) != "" {
		end, dateOnly, err := pkg.ParseDate(endRaw)
		if err != nil {
			return nil, nil, apierr.Validation(apierr.ValidationErrorMessage, "endDate must be a valid date")
		}
		if dateOnly {
			end = pkg.EndOfDay(end)
		}
		to = &end
	}

	return from, to, nil
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// InRange reports whether t falls inside the inclusive date filter.
func (p Params) InRange(t time.Time) bool {
	if p.From != nil && t.Before(*p.From) {
		return false
	}
	if p.To != nil && t.After(*p.To) {
		return false
	}
	return true
}

type Info struct {
	CurrentPage int
	TotalPages  int
	Total       int
	HasNext     bool
	HasPrev     bool
}

func NewInfo(page, limit, total int) Info {
	totalPages := 0
	if total > 0 && limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Info{
		CurrentPage: page,
		TotalPages:  totalPages,
		Total:       total,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// Slice returns the requested page of items, which must already be
// filtered and sorted. Pages past the end are empty.
func Slice[T any](items []T, p Params) []T {
	start := p.Offset()
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := min(start+p.Limit, len(items))
	return items[start:end]
}
