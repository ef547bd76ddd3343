package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubmissionStatusTerminal(t *testing.T) {
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusExpired.Terminal())

	assert.False(t, StatusRequired.Terminal())
	assert.False(t, StatusSubmitted.Terminal())
	assert.False(t, StatusUnderReview.Terminal())
	assert.False(t, StatusRejected.Terminal())
}

func TestAlertSeverityRank(t *testing.T) {
	assert.Greater(t, SeverityCritical.Rank(), SeverityWarning.Rank())
	assert.Greater(t, SeverityWarning.Rank(), SeverityInfo.Rank())
	assert.Equal(t, 0, AlertSeverity("").Rank())
}

func TestAlertOpen(t *testing.T) {
	alert := ComplianceAlert{SubmissionID: "sub-1", Severity: SeverityWarning}
	assert.True(t, alert.Open())

	now := time.Now().UTC()
	alert.ResolvedAt = &now
	assert.False(t, alert.Open())
}

func TestReportTotalTracked(t *testing.T) {
	report := ComplianceReport{
		StatusCounts: map[SubmissionStatus]int{
			StatusRequired:  4,
			StatusSubmitted: 2,
			StatusApproved:  7,
		},
	}
	assert.Equal(t, 13, report.TotalTracked())
	assert.Equal(t, 0, ComplianceReport{}.TotalTracked())
}
