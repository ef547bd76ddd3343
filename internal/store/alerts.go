// internal/store/alerts.go
package store

import (
	"context"
	"database/sql"
	"time"

	"marriage-compliance/internal/common/errors"
	"marriage-compliance/internal/models"
)

// GetOpenAlert returns the single unresolved alert for a submission, or nil
// when none is open.
func (s *Store) GetOpenAlert(ctx context.Context, submissionID string) (*models.ComplianceAlert, error) {
	query := `SELECT id, submission_id, severity, manual_review, delivery_failed, opened_at, resolved_at
		FROM compliance_alerts
		WHERE submission_id = $1 AND resolved_at IS NULL`

	var alert models.ComplianceAlert
	var resolved sql.NullTime
	err := s.db.QueryRowContext(ctx, query, submissionID).Scan(
		&alert.ID, &alert.SubmissionID, &alert.Severity,
		&alert.ManualReview, &alert.DeliveryFailed, &alert.OpenedAt, &resolved,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_open_alert", err)
	}
	if resolved.Valid {
		t := resolved.Time
		alert.ResolvedAt = &t
	}
	return &alert, nil
}

// InsertAlert opens a new alert. The partial unique index on
// (submission_id) WHERE resolved_at IS NULL enforces the one-open-alert
// invariant; a concurrent open is reported as a conflict.
func (s *Store) InsertAlert(ctx context.Context, alert *models.ComplianceAlert) error {
	query := `INSERT INTO compliance_alerts
		(id, submission_id, severity, manual_review, delivery_failed, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query,
		alert.ID, alert.SubmissionID, string(alert.Severity),
		alert.ManualReview, alert.DeliveryFailed, alert.OpenedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.NewConcurrentUpdateConflictError(alert.SubmissionID, 0)
		}
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

// UpdateAlertSeverity escalates (or corrects) an open alert in place.
func (s *Store) UpdateAlertSeverity(ctx context.Context, alertID string, severity models.AlertSeverity) error {
	query := `UPDATE compliance_alerts SET severity = $1 WHERE id = $2 AND resolved_at IS NULL`

	return s.execAlertUpdate(ctx, "update_alert_severity", query, string(severity), alertID)
}

// ResolveAlert closes an open alert.
func (s *Store) ResolveAlert(ctx context.Context, alertID string, at time.Time) error {
	query := `UPDATE compliance_alerts SET resolved_at = $1 WHERE id = $2 AND resolved_at IS NULL`

	return s.execAlertUpdate(ctx, "resolve_alert", query, at, alertID)
}

// MarkAlertManualReview flags an open alert for human follow-up after a
// scheduling conflict.
func (s *Store) MarkAlertManualReview(ctx context.Context, alertID string) error {
	query := `UPDATE compliance_alerts SET manual_review = TRUE WHERE id = $1 AND resolved_at IS NULL`

	return s.execAlertUpdate(ctx, "mark_alert_manual_review", query, alertID)
}

// MarkAlertDeliveryFailed surfaces an exhausted reminder dispatch on the
// submission's open alert.
func (s *Store) MarkAlertDeliveryFailed(ctx context.Context, alertID string) error {
	query := `UPDATE compliance_alerts SET delivery_failed = TRUE WHERE id = $1 AND resolved_at IS NULL`

	return s.execAlertUpdate(ctx, "mark_alert_delivery_failed", query, alertID)
}

func (s *Store) execAlertUpdate(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.NewQueryExecutionFailedError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewQueryExecutionFailedError(op, err)
	}
	if n == 0 {
		// Already resolved or gone; idempotent sweeps treat this as done.
		return nil
	}
	return nil
}

// CountOpenAlertsBySeverity feeds the open-alerts gauge.
func (s *Store) CountOpenAlertsBySeverity(ctx context.Context) (map[models.AlertSeverity]int, error) {
	query := `SELECT severity, COUNT(*) FROM compliance_alerts
		WHERE resolved_at IS NULL GROUP BY severity`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("count_open_alerts", err)
	}
	defer rows.Close()

	counts := map[models.AlertSeverity]int{}
	for rows.Next() {
		var severity string
		var n int
		if err := rows.Scan(&severity, &n); err != nil {
			return nil, errors.NewQueryExecutionFailedError("count_open_alerts", err)
		}
		counts[models.AlertSeverity(severity)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("count_open_alerts", err)
	}
	return counts, nil
}
