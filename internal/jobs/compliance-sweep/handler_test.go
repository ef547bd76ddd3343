package compliancesweep

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marriage-compliance/internal/common/errors"
	"marriage-compliance/internal/common/logger"
	"marriage-compliance/internal/models"
)

type fakeStore struct {
	active   []models.FormSubmission
	resolved []models.FormSubmission
	alerts   map[string]*models.ComplianceAlert

	alertErr        map[string]error
	inserts         int
	severityUpdates int
	resolves        int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		alerts:   make(map[string]*models.ComplianceAlert),
		alertErr: make(map[string]error),
	}
}

func (f *fakeStore) ListActiveWithDeadline(ctx context.Context) ([]models.FormSubmission, error) {
	var out []models.FormSubmission
	for _, sub := range f.active {
		if !sub.Status.Terminal() && sub.DeadlineDate != nil {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (f *fakeStore) ListResolvedWithOpenAlert(ctx context.Context) ([]models.FormSubmission, error) {
	return f.resolved, nil
}

func (f *fakeStore) GetOpenAlert(ctx context.Context, submissionID string) (*models.ComplianceAlert, error) {
	if err := f.alertErr[submissionID]; err != nil {
		return nil, err
	}
	alert, ok := f.alerts[submissionID]
	if !ok {
		return nil, nil
	}
	copied := *alert
	return &copied, nil
}

func (f *fakeStore) InsertAlert(ctx context.Context, alert *models.ComplianceAlert) error {
	if _, ok := f.alerts[alert.SubmissionID]; ok {
		return errors.NewConcurrentUpdateConflictError(alert.SubmissionID, 0)
	}
	f.inserts++
	copied := *alert
	f.alerts[alert.SubmissionID] = &copied
	return nil
}

func (f *fakeStore) UpdateAlertSeverity(ctx context.Context, alertID string, severity models.AlertSeverity) error {
	f.severityUpdates++
	for _, alert := range f.alerts {
		if alert.ID == alertID {
			alert.Severity = severity
		}
	}
	return nil
}

func (f *fakeStore) ResolveAlert(ctx context.Context, alertID string, at time.Time) error {
	f.resolves++
	for subID, alert := range f.alerts {
		if alert.ID == alertID {
			delete(f.alerts, subID)
		}
	}
	return nil
}

func (f *fakeStore) CountOpenAlertsBySeverity(ctx context.Context) (map[models.AlertSeverity]int, error) {
	counts := make(map[models.AlertSeverity]int)
	for _, alert := range f.alerts {
		counts[alert.Severity]++
	}
	return counts, nil
}

type fakeTracker struct {
	expired     []string
	conflictFor map[string]bool
}

func (f *fakeTracker) Expire(ctx context.Context, sub *models.FormSubmission) error {
	if f.conflictFor[sub.ID] {
		return errors.NewConcurrentUpdateConflictError(sub.ID, sub.Version)
	}
	f.expired = append(f.expired, sub.ID)
	sub.Status = models.StatusExpired
	return nil
}

func dateOf(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func noticeSubmission(status models.SubmissionStatus) models.FormSubmission {
	return models.FormSubmission{
		ID:           uuid.New().String(),
		CoupleID:     "couple-1",
		DocumentType: "notice",
		Status:       status,
		DeadlineDate: dateOf(2025, time.May, 30),
		Version:      1,
	}
}

func newSweep(st *fakeStore, tr *fakeTracker, today time.Time) *Handler {
	h := NewHandler(LoadConfig(), st, tr, nil, logger.NewNoOpLogger())
	h.now = func() time.Time { return today }
	return h
}

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		daysLeft int
		want     models.AlertSeverity
	}{
		{daysLeft: 30, want: ""},
		{daysLeft: 15, want: ""},
		{daysLeft: 14, want: models.SeverityInfo},
		{daysLeft: 8, want: models.SeverityInfo},
		{daysLeft: 7, want: models.SeverityWarning},
		{daysLeft: 1, want: models.SeverityWarning},
		{daysLeft: 0, want: models.SeverityCritical},
		{daysLeft: -5, want: models.SeverityCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifySeverity(tt.daysLeft), "daysLeft=%d", tt.daysLeft)
	}
}

// Fourteen days before the deadline the submission gets an info alert and
// keeps its status.
func TestSweepRaisesInfoAlertAtFourteenDays(t *testing.T) {
	st := newFakeStore()
	sub := noticeSubmission(models.StatusRequired)
	st.active = []models.FormSubmission{sub}
	tr := &fakeTracker{}

	h := newSweep(st, tr, time.Date(2025, time.May, 16, 9, 0, 0, 0, time.UTC))
	require.NoError(t, h.Run(context.Background()))

	alert := st.alerts[sub.ID]
	require.NotNil(t, alert)
	assert.Equal(t, models.SeverityInfo, alert.Severity)
	assert.Empty(t, tr.expired)
}

// On deadline day a still-required submission expires and its alert goes
// critical.
func TestSweepExpiresOnDeadlineDay(t *testing.T) {
	st := newFakeStore()
	sub := noticeSubmission(models.StatusRequired)
	st.active = []models.FormSubmission{sub}
	tr := &fakeTracker{}

	h := newSweep(st, tr, time.Date(2025, time.May, 30, 9, 0, 0, 0, time.UTC))
	require.NoError(t, h.Run(context.Background()))

	alert := st.alerts[sub.ID]
	require.NotNil(t, alert)
	assert.Equal(t, models.SeverityCritical, alert.Severity)
	assert.Equal(t, []string{sub.ID}, tr.expired)
}

// An approved submission's open alert is resolved on the next sweep.
func TestSweepResolvesApprovedSubmissionAlert(t *testing.T) {
	st := newFakeStore()
	sub := noticeSubmission(models.StatusApproved)
	st.resolved = []models.FormSubmission{sub}
	st.alerts[sub.ID] = &models.ComplianceAlert{
		ID: "alert-1", SubmissionID: sub.ID,
		Severity: models.SeverityWarning, OpenedAt: time.Now().UTC(),
	}

	h := newSweep(st, &fakeTracker{}, time.Date(2025, time.May, 21, 9, 0, 0, 0, time.UTC))
	require.NoError(t, h.Run(context.Background()))

	assert.Empty(t, st.alerts)
	assert.Equal(t, 1, st.resolves)
}

func TestSweepEscalatesInPlace(t *testing.T) {
	st := newFakeStore()
	sub := noticeSubmission(models.StatusRequired)
	st.active = []models.FormSubmission{sub}
	st.alerts[sub.ID] = &models.ComplianceAlert{
		ID: "alert-1", SubmissionID: sub.ID,
		Severity: models.SeverityInfo, OpenedAt: time.Now().UTC(),
	}

	// Seven days out: info escalates to warning on the same alert.
	h := newSweep(st, &fakeTracker{}, time.Date(2025, time.May, 23, 9, 0, 0, 0, time.UTC))
	require.NoError(t, h.Run(context.Background()))

	assert.Equal(t, models.SeverityWarning, st.alerts[sub.ID].Severity)
	assert.Equal(t, 1, st.severityUpdates)
	assert.Zero(t, st.inserts)
}

func TestSweepIsIdempotent(t *testing.T) {
	st := newFakeStore()
	sub := noticeSubmission(models.StatusRequired)
	st.active = []models.FormSubmission{sub}

	h := newSweep(st, &fakeTracker{}, time.Date(2025, time.May, 16, 9, 0, 0, 0, time.UTC))
	require.NoError(t, h.Run(context.Background()))
	require.NoError(t, h.Run(context.Background()))
	require.NoError(t, h.Run(context.Background()))

	assert.Equal(t, 1, st.inserts)
	assert.Zero(t, st.severityUpdates)
	assert.Zero(t, st.resolves)
	assert.Len(t, st.alerts, 1)
}

func TestSweepLeavesManualReviewAlertsAlone(t *testing.T) {
	st := newFakeStore()
	sub := noticeSubmission(models.StatusRequired)
	// Deadline pushed far out; severity would normally clear the alert.
	sub.DeadlineDate = dateOf(2025, time.August, 30)
	st.active = []models.FormSubmission{sub}
	st.alerts[sub.ID] = &models.ComplianceAlert{
		ID: "alert-1", SubmissionID: sub.ID,
		Severity: models.SeverityCritical, ManualReview: true,
		OpenedAt: time.Now().UTC(),
	}

	h := newSweep(st, &fakeTracker{}, time.Date(2025, time.May, 16, 9, 0, 0, 0, time.UTC))
	require.NoError(t, h.Run(context.Background()))

	require.NotNil(t, st.alerts[sub.ID])
	assert.Equal(t, models.SeverityCritical, st.alerts[sub.ID].Severity)
	assert.Zero(t, st.resolves)
}

// A delivery failure marker must stay visible even when the deadline moves
// far enough out that the severity would otherwise clear the alert.
func TestSweepKeepsDeliveryFailedAlertOpen(t *testing.T) {
	st := newFakeStore()
	sub := noticeSubmission(models.StatusRequired)
	sub.DeadlineDate = dateOf(2025, time.August, 30)
	st.active = []models.FormSubmission{sub}
	st.alerts[sub.ID] = &models.ComplianceAlert{
		ID: "alert-1", SubmissionID: sub.ID,
		Severity: models.SeverityInfo, DeliveryFailed: true,
		OpenedAt: time.Now().UTC(),
	}

	h := newSweep(st, &fakeTracker{}, time.Date(2025, time.May, 16, 9, 0, 0, 0, time.UTC))
	require.NoError(t, h.Run(context.Background()))

	require.NotNil(t, st.alerts[sub.ID])
	assert.True(t, st.alerts[sub.ID].DeliveryFailed)
	assert.Zero(t, st.resolves)
}

type fakeProjector struct {
	results []Result
}

func (f *fakeProjector) IndexSweepResults(ctx context.Context, results []Result) error {
	f.results = results
	return nil
}

// The dashboard projection receives the open alert's markers alongside the
// classification.
func TestSweepHandsAlertStateToProjection(t *testing.T) {
	st := newFakeStore()
	sub := noticeSubmission(models.StatusRequired)
	st.active = []models.FormSubmission{sub}
	st.alerts[sub.ID] = &models.ComplianceAlert{
		ID: "alert-1", SubmissionID: sub.ID,
		Severity: models.SeverityInfo, DeliveryFailed: true,
		OpenedAt: time.Now().UTC(),
	}
	proj := &fakeProjector{}

	h := NewHandler(LoadConfig(), st, &fakeTracker{}, proj, logger.NewNoOpLogger())
	h.now = func() time.Time { return time.Date(2025, time.May, 16, 9, 0, 0, 0, time.UTC) }
	require.NoError(t, h.Run(context.Background()))

	require.Len(t, proj.results, 1)
	require.NotNil(t, proj.results[0].Alert)
	assert.True(t, proj.results[0].Alert.DeliveryFailed)
	assert.Equal(t, models.SeverityInfo, proj.results[0].Alert.Severity)
}

func TestSweepIsolatesPerSubmissionFailures(t *testing.T) {
	st := newFakeStore()
	broken := noticeSubmission(models.StatusRequired)
	healthy := noticeSubmission(models.StatusRequired)
	st.active = []models.FormSubmission{broken, healthy}
	st.alertErr[broken.ID] = fmt.Errorf("connection reset")

	h := newSweep(st, &fakeTracker{}, time.Date(2025, time.May, 16, 9, 0, 0, 0, time.UTC))
	require.NoError(t, h.Run(context.Background()))

	assert.Nil(t, st.alerts[broken.ID])
	assert.NotNil(t, st.alerts[healthy.ID])
}

func TestSweepToleratesExpiryConflict(t *testing.T) {
	st := newFakeStore()
	sub := noticeSubmission(models.StatusSubmitted)
	st.active = []models.FormSubmission{sub}
	tr := &fakeTracker{conflictFor: map[string]bool{sub.ID: true}}

	h := newSweep(st, tr, time.Date(2025, time.May, 30, 9, 0, 0, 0, time.UTC))
	require.NoError(t, h.Run(context.Background()))

	assert.Empty(t, tr.expired)
}
