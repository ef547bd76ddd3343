// internal/store/transitions.go
package store

import (
	"context"

	"marriage-compliance/internal/common/errors"
	"marriage-compliance/internal/models"
)

// InsertTransitionLog appends one lifecycle audit row.
func (s *Store) InsertTransitionLog(ctx context.Context, log *models.TransitionLog) error {
	query := `INSERT INTO submission_transitions
		(id, submission_id, from_status, to_status, actor, note, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query,
		log.ID, log.SubmissionID, string(log.FromStatus), string(log.ToStatus),
		log.Actor, nullString(log.Note), log.OccurredAt)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}
