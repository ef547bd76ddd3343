package compliancesweep

import "marriage-compliance/internal/models"

// Result is one submission's sweep outcome, handed to the dashboard
// projection after the cycle. Alert is the open alert left standing after
// reconciliation, nil when none is open.
type Result struct {
	Submission models.FormSubmission
	DaysLeft   int
	Severity   models.AlertSeverity
	Expired    bool
	Alert      *models.ComplianceAlert
}

// Outcome labels for the evaluation counter.
const (
	OutcomeOK      = "ok"
	OutcomeExpired = "expired"
	OutcomeError   = "error"
)

func classifySeverity(daysLeft int) models.AlertSeverity {
	return models.SeverityForDaysLeft(daysLeft)
}
