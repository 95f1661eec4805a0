package models

import "time"

// DateRange bounds queries by QSO date. Zero ends are open; both ends are
// inclusive.
type DateRange struct {
	From time.Time
	To   time.Time
}

// HasFrom reports whether the lower bound is set.
func (r DateRange) HasFrom() bool { return !r.From.IsZero() }

// HasTo reports whether the upper bound is set.
func (r DateRange) HasTo() bool { return !r.To.IsZero() }

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d time.Time) bool {
	if r.HasFrom() && d.Before(r.From) {
		return false
	}
	if r.HasTo() && d.After(r.To) {
		return false
	}
	return true
}
