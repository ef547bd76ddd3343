package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marriage-compliance/internal/common/errors"
	"marriage-compliance/internal/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func submissionRows(subs ...models.FormSubmission) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "couple_id", "document_type", "status", "deadline_date",
		"submitted_date", "decision_date", "file_reference", "review_notes",
		"version", "created_at", "updated_at",
	})
	for _, sub := range subs {
		rows.AddRow(sub.ID, sub.CoupleID, sub.DocumentType, string(sub.Status),
			sub.DeadlineDate, sub.SubmittedDate, sub.DecisionDate,
			sub.FileReference, sub.ReviewNotes, sub.Version, sub.CreatedAt, sub.UpdatedAt)
	}
	return rows
}

func TestGetSubmission(t *testing.T) {
	st, mock := newMockStore(t)
	deadline := time.Date(2025, time.May, 30, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM form_submissions WHERE id").
		WithArgs("sub-1").
		WillReturnRows(submissionRows(models.FormSubmission{
			ID: "sub-1", CoupleID: "couple-1", DocumentType: "notice",
			Status: models.StatusRequired, DeadlineDate: &deadline, Version: 3,
		}))

	sub, err := st.GetSubmission(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "notice", sub.DocumentType)
	assert.Equal(t, models.StatusRequired, sub.Status)
	require.NotNil(t, sub.DeadlineDate)
	assert.Equal(t, deadline, *sub.DeadlineDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSubmissionNotFound(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM form_submissions WHERE id").
		WithArgs("missing").
		WillReturnRows(submissionRows())

	_, err := st.GetSubmission(context.Background(), "missing")
	assert.True(t, errors.HasCode(err, errors.ErrCodeSubmissionNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSubmissionVersionConflict(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("UPDATE form_submissions SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := st.UpdateSubmission(context.Background(), &models.FormSubmission{
		ID: "sub-1", Status: models.StatusSubmitted, Version: 2,
	})
	assert.True(t, errors.HasCode(err, errors.ErrCodeConcurrentUpdateConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSubmissionMissingRow(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("UPDATE form_submissions SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := st.UpdateSubmission(context.Background(), &models.FormSubmission{
		ID: "gone", Status: models.StatusSubmitted, Version: 1,
	})
	assert.True(t, errors.HasCode(err, errors.ErrCodeSubmissionNotFound))
}

func TestUpdateSubmissionBumpsVersion(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("UPDATE form_submissions SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	sub := &models.FormSubmission{ID: "sub-1", Status: models.StatusSubmitted, Version: 2}
	require.NoError(t, st.UpdateSubmission(context.Background(), sub))
	assert.Equal(t, int64(3), sub.Version)
}

func TestInsertSubmissionIdempotent(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO form_submissions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO form_submissions").
		WillReturnResult(sqlmock.NewResult(0, 0)) // ON CONFLICT DO NOTHING hit

	sub := &models.FormSubmission{
		ID: "sub-1", CoupleID: "couple-1", DocumentType: "notice",
		Status: models.StatusRequired,
	}
	inserted, err := st.InsertSubmission(context.Background(), sub)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = st.InsertSubmission(context.Background(), sub)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestInsertReminderLogDuplicateIsNotAnError(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO reminder_logs").
		WillReturnError(&pq.Error{Code: "23505"})

	inserted, err := st.InsertReminderLog(context.Background(), &models.ReminderLog{
		ID: "rem-1", SubmissionID: "sub-1", Stage: 14, SentAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestGetOpenAlertNone(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM compliance_alerts").
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "submission_id", "severity", "manual_review", "delivery_failed",
			"opened_at", "resolved_at",
		}))

	alert, err := st.GetOpenAlert(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestInsertAlertConcurrentOpenRejected(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO compliance_alerts").
		WillReturnError(&pq.Error{Code: "23505"})

	err := st.InsertAlert(context.Background(), &models.ComplianceAlert{
		ID: "alert-1", SubmissionID: "sub-1",
		Severity: models.SeverityInfo, OpenedAt: time.Now().UTC(),
	})
	assert.True(t, errors.HasCode(err, errors.ErrCodeConcurrentUpdateConflict))
}

func TestCountOpenAlertsBySeverity(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT severity, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"severity", "count"}).
			AddRow("warning", 4).
			AddRow("critical", 2))

	counts, err := st.CountOpenAlertsBySeverity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, counts[models.SeverityWarning])
	assert.Equal(t, 2, counts[models.SeverityCritical])
}
