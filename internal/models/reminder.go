// internal/models/reminder.go
package models

import "time"

// ReminderStages are the fixed day-offsets before a deadline at which a
// reminder becomes due, most distant first.
var ReminderStages = []int{30, 14, 7, 3, 1}

// ReminderLog records a dispatched reminder. The (submission, stage) pair is
// unique forever; this row is the idempotency guarantee for reminder sends.
type ReminderLog struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submissionId"`
	Stage        int       `json:"stage"` // days before deadline: 30, 14, 7, 3 or 1
	SentAt       time.Time `json:"sentAt"`
}
