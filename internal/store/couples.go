// internal/store/couples.go
package store

import (
	"context"
	"database/sql"

	"marriage-compliance/internal/common/errors"
	"marriage-compliance/internal/models"
)

// GetCouple reads the external couple/ceremony record. The engine never
// writes this table.
func (s *Store) GetCouple(ctx context.Context, coupleID string) (*models.Couple, error) {
	query := `SELECT id, celebrant_id, ceremony_date, ceremony_type, email, phone
		FROM couples WHERE id = $1`

	var couple models.Couple
	var ceremony sql.NullTime
	var phone sql.NullString
	err := s.db.QueryRowContext(ctx, query, coupleID).Scan(
		&couple.ID, &couple.CelebrantID, &ceremony, &couple.CeremonyType,
		&couple.Email, &phone,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewCoupleNotFoundError(coupleID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_couple", err)
	}

	if ceremony.Valid {
		d := ceremony.Time
		couple.CeremonyDate = &d
	}
	couple.Phone = phone.String

	return &couple, nil
}
