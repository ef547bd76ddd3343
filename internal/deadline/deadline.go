// Package deadline computes submission deadlines from ceremony dates.
// Pure calendar-day arithmetic; no business-day exceptions.
package deadline

import (
	"time"

	"marriage-compliance/pkg/catalog"
)

// Compute returns ceremony date minus the requirement's lead time, truncated
// to a UTC calendar day, or nil while the ceremony date is unknown.
func Compute(ceremonyDate *time.Time, req catalog.FormRequirement) *time.Time {
	if ceremonyDate == nil {
		return nil
	}
	d := Day(*ceremonyDate).AddDate(0, 0, -req.LeadTimeDays)
	return &d
}

// Day truncates a timestamp to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysUntil returns the whole calendar days from today until the deadline.
// Zero means the deadline is today; negative means overdue.
func DaysUntil(deadline, today time.Time) int {
	return int(Day(deadline).Sub(Day(today)).Hours() / 24)
}
