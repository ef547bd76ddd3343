// internal/store/submissions.go
package store

import (
	"context"
	"database/sql"
	"time"

	"marriage-compliance/internal/common/errors"
	"marriage-compliance/internal/models"
)

const submissionColumns = `id, couple_id, document_type, status, deadline_date,
	submitted_date, decision_date, file_reference, review_notes, version,
	created_at, updated_at`

func scanSubmission(row interface {
	Scan(dest ...interface{}) error
}) (*models.FormSubmission, error) {
	var sub models.FormSubmission
	var deadline, submitted, decision sql.NullTime
	var fileRef, notes sql.NullString

	err := row.Scan(
		&sub.ID, &sub.CoupleID, &sub.DocumentType, &sub.Status,
		&deadline, &submitted, &decision, &fileRef, &notes,
		&sub.Version, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if deadline.Valid {
		d := deadline.Time
		sub.DeadlineDate = &d
	}
	if submitted.Valid {
		s := submitted.Time
		sub.SubmittedDate = &s
	}
	if decision.Valid {
		d := decision.Time
		sub.DecisionDate = &d
	}
	sub.FileReference = fileRef.String
	sub.ReviewNotes = notes.String

	return &sub, nil
}

// GetSubmission fetches one submission by id.
func (s *Store) GetSubmission(ctx context.Context, id string) (*models.FormSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM form_submissions WHERE id = $1`

	sub, err := scanSubmission(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewSubmissionNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_submission", err)
	}
	return sub, nil
}

// ListByCouple returns all of a couple's submissions.
func (s *Store) ListByCouple(ctx context.Context, coupleID string) ([]models.FormSubmission, error) {
	query := `SELECT ` + submissionColumns + `
		FROM form_submissions WHERE couple_id = $1 ORDER BY document_type`

	return s.querySubmissions(ctx, "list_by_couple", query, coupleID)
}

// ListActiveWithDeadline returns every submission still being tracked with a
// known deadline: the sweep and reminder working set.
func (s *Store) ListActiveWithDeadline(ctx context.Context) ([]models.FormSubmission, error) {
	query := `SELECT ` + submissionColumns + `
		FROM form_submissions
		WHERE status NOT IN ($1, $2) AND deadline_date IS NOT NULL
		ORDER BY deadline_date`

	return s.querySubmissions(ctx, "list_active", query,
		string(models.StatusApproved), string(models.StatusExpired))
}

// ListResolvedWithOpenAlert returns submissions that left active tracking
// (approved, or lost their deadline) but still have an unresolved alert.
func (s *Store) ListResolvedWithOpenAlert(ctx context.Context) ([]models.FormSubmission, error) {
	query := `SELECT ` + submissionColumns + `
		FROM form_submissions fs
		WHERE EXISTS (
			SELECT 1 FROM compliance_alerts ca
			WHERE ca.submission_id = fs.id AND ca.resolved_at IS NULL
		) AND (fs.status = $1 OR fs.deadline_date IS NULL)`

	return s.querySubmissions(ctx, "list_resolved_open_alert", query,
		string(models.StatusApproved))
}

func (s *Store) querySubmissions(ctx context.Context, op, query string, args ...interface{}) ([]models.FormSubmission, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(op, err)
	}
	defer rows.Close()

	var out []models.FormSubmission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError(op, err)
		}
		out = append(out, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError(op, err)
	}
	return out, nil
}

// InsertSubmission creates a required-state submission for a couple/document
// pair. Idempotent: an existing pair is left untouched and reported as not
// inserted.
func (s *Store) InsertSubmission(ctx context.Context, sub *models.FormSubmission) (bool, error) {
	query := `INSERT INTO form_submissions
		(id, couple_id, document_type, status, deadline_date, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, NOW(), NOW())
		ON CONFLICT (couple_id, document_type) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query,
		sub.ID, sub.CoupleID, sub.DocumentType, string(sub.Status), nullTime(sub.DeadlineDate))
	if err != nil {
		return false, errors.NewDatabaseInsertFailedError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewDatabaseInsertFailedError(err)
	}
	if n > 0 {
		sub.Version = 1
		return true, nil
	}
	return false, nil
}

// UpdateSubmission persists a transitioned submission. The WHERE clause pins
// the version the caller read; losing a race yields
// CONCURRENT_UPDATE_CONFLICT and no mutation.
func (s *Store) UpdateSubmission(ctx context.Context, sub *models.FormSubmission) error {
	query := `UPDATE form_submissions SET
			status = $1, deadline_date = $2, submitted_date = $3, decision_date = $4,
			file_reference = $5, review_notes = $6, version = version + 1, updated_at = NOW()
		WHERE id = $7 AND version = $8`

	res, err := s.db.ExecContext(ctx, query,
		string(sub.Status), nullTime(sub.DeadlineDate), nullTime(sub.SubmittedDate),
		nullTime(sub.DecisionDate), nullString(sub.FileReference), nullString(sub.ReviewNotes),
		sub.ID, sub.Version)
	if err != nil {
		return errors.NewQueryExecutionFailedError("update_submission", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewQueryExecutionFailedError("update_submission", err)
	}
	if n == 0 {
		// Stale version or missing row; tell them apart for the caller.
		var exists bool
		check := `SELECT EXISTS(SELECT 1 FROM form_submissions WHERE id = $1)`
		if err := s.db.QueryRowContext(ctx, check, sub.ID).Scan(&exists); err != nil {
			return errors.NewQueryExecutionFailedError("update_submission", err)
		}
		if !exists {
			return errors.NewSubmissionNotFoundError(sub.ID)
		}
		return errors.NewConcurrentUpdateConflictError(sub.ID, sub.Version)
	}

	sub.Version++
	return nil
}

// UpdateDeadline recomputes only the deadline column, bumping the version so
// concurrent transitions notice.
func (s *Store) UpdateDeadline(ctx context.Context, submissionID string, deadline *time.Time) error {
	query := `UPDATE form_submissions
		SET deadline_date = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2`

	res, err := s.db.ExecContext(ctx, query, nullTime(deadline), submissionID)
	if err != nil {
		return errors.NewQueryExecutionFailedError("update_deadline", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewQueryExecutionFailedError("update_deadline", err)
	}
	if n == 0 {
		return errors.NewSubmissionNotFoundError(submissionID)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
