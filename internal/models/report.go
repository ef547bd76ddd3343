// internal/models/report.go
package models

import "time"

// ComplianceReport is the weekly rollup for one celebrant scope. Generated
// fresh each cycle and never mutated after creation.
type ComplianceReport struct {
	ID           string                   `json:"id"`
	CelebrantID  string                   `json:"celebrantId"`
	PeriodStart  time.Time                `json:"periodStart"`
	PeriodEnd    time.Time                `json:"periodEnd"`
	StatusCounts map[SubmissionStatus]int `json:"statusCounts"`
	OverdueCount int                      `json:"overdueCount"`
	Upcoming7    int                      `json:"upcoming7"`  // deadlines within 7 days
	Upcoming14   int                      `json:"upcoming14"` // deadlines within 14 days
	Upcoming30   int                      `json:"upcoming30"` // deadlines within 30 days
	TrendDelta   int                      `json:"trendDelta"` // overdue count change vs prior period
	CreatedAt    time.Time                `json:"createdAt"`
}

// TotalTracked sums the status counts.
func (r ComplianceReport) TotalTracked() int {
	total := 0
	for _, n := range r.StatusCounts {
		total += n
	}
	return total
}
