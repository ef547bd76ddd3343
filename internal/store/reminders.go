// internal/store/reminders.go
package store

import (
	"context"

	"marriage-compliance/internal/common/errors"
	"marriage-compliance/internal/models"
)

// ListReminderStages returns the set of stages already logged for a
// submission.
func (s *Store) ListReminderStages(ctx context.Context, submissionID string) (map[int]bool, error) {
	query := `SELECT stage FROM reminder_logs WHERE submission_id = $1`

	rows, err := s.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_reminder_stages", err)
	}
	defer rows.Close()

	stages := map[int]bool{}
	for rows.Next() {
		var stage int
		if err := rows.Scan(&stage); err != nil {
			return nil, errors.NewQueryExecutionFailedError("list_reminder_stages", err)
		}
		stages[stage] = true
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_reminder_stages", err)
	}
	return stages, nil
}

// InsertReminderLog writes the sent marker for one stage. Returns false when
// the (submission, stage) row already exists: a concurrent or retried run
// beat us to it, which is exactly the idempotency contract.
func (s *Store) InsertReminderLog(ctx context.Context, log *models.ReminderLog) (bool, error) {
	query := `INSERT INTO reminder_logs (id, submission_id, stage, sent_at)
		VALUES ($1, $2, $3, $4)`

	_, err := s.db.ExecContext(ctx, query, log.ID, log.SubmissionID, log.Stage, log.SentAt)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, errors.NewDatabaseInsertFailedError(err)
	}
	return true, nil
}
