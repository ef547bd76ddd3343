package weeklyreport

import (
	"fmt"
	"strconv"

	"marriage-compliance/internal/models"
)

// reportVariables flattens a report into template placeholders.
func reportVariables(report *models.ComplianceReport) map[string]string {
	return map[string]string{
		"periodStart": report.PeriodStart.Format("2006-01-02"),
		"periodEnd":   report.PeriodEnd.Format("2006-01-02"),
		"total":       strconv.Itoa(report.TotalTracked()),
		"overdue":     strconv.Itoa(report.OverdueCount),
		"upcoming7":   strconv.Itoa(report.Upcoming7),
		"upcoming14":  strconv.Itoa(report.Upcoming14),
		"upcoming30":  strconv.Itoa(report.Upcoming30),
		"trendDelta":  fmt.Sprintf("%+d", report.TrendDelta),
	}
}
