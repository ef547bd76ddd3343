// internal/store/reports.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"marriage-compliance/internal/common/errors"
	"marriage-compliance/internal/models"
)

// InsertReport persists a freshly generated weekly rollup.
func (s *Store) InsertReport(ctx context.Context, report *models.ComplianceReport) error {
	counts, err := json.Marshal(report.StatusCounts)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}

	query := `INSERT INTO compliance_reports
		(id, celebrant_id, period_start, period_end, status_counts,
		 overdue_count, upcoming_7, upcoming_14, upcoming_30, trend_delta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = s.db.ExecContext(ctx, query,
		report.ID, report.CelebrantID, report.PeriodStart, report.PeriodEnd, counts,
		report.OverdueCount, report.Upcoming7, report.Upcoming14, report.Upcoming30,
		report.TrendDelta, report.CreatedAt)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

// LatestReport returns the most recent report for a celebrant created before
// the given instant, or nil when this is the first cycle.
func (s *Store) LatestReport(ctx context.Context, celebrantID string, before time.Time) (*models.ComplianceReport, error) {
	query := `SELECT id, celebrant_id, period_start, period_end, status_counts,
			overdue_count, upcoming_7, upcoming_14, upcoming_30, trend_delta, created_at
		FROM compliance_reports
		WHERE celebrant_id = $1 AND created_at < $2
		ORDER BY created_at DESC LIMIT 1`

	var report models.ComplianceReport
	var counts []byte
	err := s.db.QueryRowContext(ctx, query, celebrantID, before).Scan(
		&report.ID, &report.CelebrantID, &report.PeriodStart, &report.PeriodEnd, &counts,
		&report.OverdueCount, &report.Upcoming7, &report.Upcoming14, &report.Upcoming30,
		&report.TrendDelta, &report.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("latest_report", err)
	}

	if err := json.Unmarshal(counts, &report.StatusCounts); err != nil {
		return nil, errors.NewQueryExecutionFailedError("latest_report", err)
	}
	return &report, nil
}

// CountByStatus aggregates a celebrant's submissions per lifecycle state.
func (s *Store) CountByStatus(ctx context.Context, celebrantID string) (map[models.SubmissionStatus]int, error) {
	query := `SELECT fs.status, COUNT(*)
		FROM form_submissions fs
		JOIN couples c ON c.id = fs.couple_id
		WHERE c.celebrant_id = $1
		GROUP BY fs.status`

	rows, err := s.db.QueryContext(ctx, query, celebrantID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("count_by_status", err)
	}
	defer rows.Close()

	counts := map[models.SubmissionStatus]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errors.NewQueryExecutionFailedError("count_by_status", err)
		}
		counts[models.SubmissionStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("count_by_status", err)
	}
	return counts, nil
}

// CountOverdue counts non-approved submissions whose deadline has passed.
func (s *Store) CountOverdue(ctx context.Context, celebrantID string, today time.Time) (int, error) {
	query := `SELECT COUNT(*)
		FROM form_submissions fs
		JOIN couples c ON c.id = fs.couple_id
		WHERE c.celebrant_id = $1
		  AND fs.status <> $2
		  AND fs.deadline_date IS NOT NULL
		  AND fs.deadline_date <= $3`

	var n int
	err := s.db.QueryRowContext(ctx, query, celebrantID, string(models.StatusApproved), today).Scan(&n)
	if err != nil {
		return 0, errors.NewQueryExecutionFailedError("count_overdue", err)
	}
	return n, nil
}

// CountUpcoming counts active submissions with a deadline inside the horizon.
func (s *Store) CountUpcoming(ctx context.Context, celebrantID string, today time.Time, horizonDays int) (int, error) {
	query := `SELECT COUNT(*)
		FROM form_submissions fs
		JOIN couples c ON c.id = fs.couple_id
		WHERE c.celebrant_id = $1
		  AND fs.status NOT IN ($2, $3)
		  AND fs.deadline_date IS NOT NULL
		  AND fs.deadline_date > $4
		  AND fs.deadline_date <= $5`

	horizon := today.AddDate(0, 0, horizonDays)
	var n int
	err := s.db.QueryRowContext(ctx, query, celebrantID,
		string(models.StatusApproved), string(models.StatusExpired), today, horizon).Scan(&n)
	if err != nil {
		return 0, errors.NewQueryExecutionFailedError("count_upcoming", err)
	}
	return n, nil
}

// ListCelebrantIDs returns every celebrant with at least one couple on file.
func (s *Store) ListCelebrantIDs(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT celebrant_id FROM couples ORDER BY celebrant_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_celebrants", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewQueryExecutionFailedError("list_celebrants", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_celebrants", err)
	}
	return out, nil
}

// GetCelebrantEmail reads the delivery address for a celebrant's weekly
// report.
func (s *Store) GetCelebrantEmail(ctx context.Context, celebrantID string) (string, error) {
	query := `SELECT email FROM celebrants WHERE id = $1`

	var email string
	err := s.db.QueryRowContext(ctx, query, celebrantID).Scan(&email)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.NewQueryExecutionFailedError("get_celebrant_email", err)
	}
	return email, nil
}
