// internal/models/submission.go
package models

import "time"

// SubmissionStatus is the lifecycle state of a tracked legal form.
type SubmissionStatus string

const (
	StatusRequired    SubmissionStatus = "required"
	StatusSubmitted   SubmissionStatus = "submitted"
	StatusUnderReview SubmissionStatus = "under_review"
	StatusApproved    SubmissionStatus = "approved"
	StatusRejected    SubmissionStatus = "rejected"
	StatusExpired     SubmissionStatus = "expired"
)

// Terminal reports whether the status ends normal tracking. Expired can still
// be reopened by an explicit celebrant override.
func (s SubmissionStatus) Terminal() bool {
	return s == StatusApproved || s == StatusExpired
}

// FormSubmission is the persisted record for one couple/document pair.
// Owned exclusively by the tracker; every mutation goes through a lifecycle
// transition with an optimistic version check.
type FormSubmission struct {
	ID            string           `json:"id"`
	CoupleID      string           `json:"coupleId"`
	DocumentType  string           `json:"documentType"` // catalog key, e.g. "notice", "declaration"
	Status        SubmissionStatus `json:"status"`
	DeadlineDate  *time.Time       `json:"deadlineDate,omitempty"` // nil until ceremony date known
	SubmittedDate *time.Time       `json:"submittedDate,omitempty"`
	DecisionDate  *time.Time       `json:"decisionDate,omitempty"`
	FileReference string           `json:"fileReference,omitempty"` // opaque handle owned by external storage
	ReviewNotes   string           `json:"reviewNotes,omitempty"`
	Version       int64            `json:"version"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// TransitionLog records explicit lifecycle changes for audit, including the
// rare manual reopen of an expired submission.
type TransitionLog struct {
	ID           string           `json:"id"`
	SubmissionID string           `json:"submissionId"`
	FromStatus   SubmissionStatus `json:"fromStatus"`
	ToStatus     SubmissionStatus `json:"toStatus"`
	Actor        string           `json:"actor"` // "sweep" for automatic transitions
	Note         string           `json:"note,omitempty"`
	OccurredAt   time.Time        `json:"occurredAt"`
}
