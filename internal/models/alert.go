// internal/models/alert.go
package models

import "time"

// AlertSeverity is the urgency classification assigned by the sweep.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// SeverityForDaysLeft classifies urgency by remaining lead time. The empty
// severity means the submission is not yet at risk.
func SeverityForDaysLeft(daysLeft int) AlertSeverity {
	switch {
	case daysLeft <= 0:
		return SeverityCritical
	case daysLeft <= 7:
		return SeverityWarning
	case daysLeft <= 14:
		return SeverityInfo
	default:
		return ""
	}
}

// Rank orders severities so the sweep can tell escalation from noise.
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// ComplianceAlert is the single open urgency marker for a submission.
// Invariant: at most one row per submission with resolved_at IS NULL.
type ComplianceAlert struct {
	ID             string        `json:"id"`
	SubmissionID   string        `json:"submissionId"`
	Severity       AlertSeverity `json:"severity"`
	ManualReview   bool          `json:"manualReview"`   // scheduling conflict: needs a human decision
	DeliveryFailed bool          `json:"deliveryFailed"` // reminder dispatch exhausted retries
	OpenedAt       time.Time     `json:"openedAt"`
	ResolvedAt     *time.Time    `json:"resolvedAt,omitempty"`
}

// Open reports whether the alert is still unresolved.
func (a ComplianceAlert) Open() bool {
	return a.ResolvedAt == nil
}
