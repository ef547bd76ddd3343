package reminderdispatch

import (
	"time"

	"marriage-compliance/internal/models"
)

// dueStages returns the reminder stages whose trigger day (deadline minus
// offset) is on or before today and which have no log row yet. A recomputed
// deadline never revives an already-logged stage.
func dueStages(deadlineDate, today time.Time, sent map[int]bool) []int {
	var due []int
	for _, stage := range models.ReminderStages {
		if sent[stage] {
			continue
		}
		trigger := deadlineDate.AddDate(0, 0, -stage)
		if trigger.After(today) {
			continue
		}
		due = append(due, stage)
	}
	return due
}
