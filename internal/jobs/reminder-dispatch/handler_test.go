package reminderdispatch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marriage-compliance/internal/common/config"
	"marriage-compliance/internal/common/errors"
	"marriage-compliance/internal/common/logger"
	"marriage-compliance/internal/dispatch"
	"marriage-compliance/internal/models"
	"marriage-compliance/pkg/catalog"
)

type fakeStore struct {
	subs           []models.FormSubmission
	sentStages     map[string]map[int]bool
	alert          *models.ComplianceAlert
	deliveryFailed []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{sentStages: make(map[string]map[int]bool)}
}

func (f *fakeStore) ListActiveWithDeadline(ctx context.Context) ([]models.FormSubmission, error) {
	return f.subs, nil
}

func (f *fakeStore) ListReminderStages(ctx context.Context, submissionID string) (map[int]bool, error) {
	out := make(map[int]bool)
	for stage := range f.sentStages[submissionID] {
		out[stage] = true
	}
	return out, nil
}

func (f *fakeStore) InsertReminderLog(ctx context.Context, log *models.ReminderLog) (bool, error) {
	if f.sentStages[log.SubmissionID] == nil {
		f.sentStages[log.SubmissionID] = make(map[int]bool)
	}
	if f.sentStages[log.SubmissionID][log.Stage] {
		return false, nil
	}
	f.sentStages[log.SubmissionID][log.Stage] = true
	return true, nil
}

func (f *fakeStore) GetCouple(ctx context.Context, coupleID string) (*models.Couple, error) {
	return &models.Couple{
		ID: coupleID, CelebrantID: "celebrant-9",
		Email: "couple@example.org", Phone: "+61400000000",
	}, nil
}

func (f *fakeStore) GetOpenAlert(ctx context.Context, submissionID string) (*models.ComplianceAlert, error) {
	return f.alert, nil
}

func (f *fakeStore) InsertAlert(ctx context.Context, alert *models.ComplianceAlert) error {
	if f.alert != nil {
		return errors.NewConcurrentUpdateConflictError(alert.SubmissionID, 0)
	}
	copied := *alert
	f.alert = &copied
	return nil
}

func (f *fakeStore) MarkAlertDeliveryFailed(ctx context.Context, alertID string) error {
	f.deliveryFailed = append(f.deliveryFailed, alertID)
	return nil
}

type recordingDispatcher struct {
	requests []dispatch.Request
	fail     bool
}

func (d *recordingDispatcher) Send(ctx context.Context, req dispatch.Request) error {
	if d.fail {
		return fmt.Errorf("downstream unavailable")
	}
	d.requests = append(d.requests, req)
	return nil
}

func (d *recordingDispatcher) sentStages() []string {
	var stages []string
	for _, req := range d.requests {
		stages = append(stages, req.Variables["stage"])
	}
	return stages
}

func dateOf(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func noticeSubmission() models.FormSubmission {
	return models.FormSubmission{
		ID:           "sub-1",
		CoupleID:     "couple-1",
		DocumentType: "notice",
		Status:       models.StatusRequired,
		DeadlineDate: dateOf(2025, time.May, 30),
	}
}

func newReminderHandler(t *testing.T, st Storage, d dispatch.Dispatcher, today time.Time) *Handler {
	t.Helper()
	cat, err := catalog.New(catalog.Default())
	require.NoError(t, err)

	var notifCfg config.NotificationConfig
	notifCfg.MaxAttempts = 2
	notifCfg.RetryBackoff = 1

	h := NewHandler(LoadConfig(), notifCfg, st, d, cat, logger.NewNoOpLogger())
	h.now = func() time.Time { return today }
	return h
}

func TestDueStages(t *testing.T) {
	deadlineDate := time.Date(2025, time.May, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		today time.Time
		sent  map[int]bool
		want  []int
	}{
		{
			name:  "nothing due a month early",
			today: time.Date(2025, time.April, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "thirty day stage crossed",
			today: time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC),
			want:  []int{30},
		},
		{
			name:  "two stages crossed, one already sent",
			today: time.Date(2025, time.May, 16, 0, 0, 0, 0, time.UTC),
			sent:  map[int]bool{30: true},
			want:  []int{14},
		},
		{
			name:  "late catch-up covers all unsent stages",
			today: time.Date(2025, time.May, 30, 0, 0, 0, 0, time.UTC),
			sent:  map[int]bool{30: true, 14: true},
			want:  []int{7, 3, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dueStages(deadlineDate, tt.today, tt.sent))
		})
	}
}

// Fourteen days out with stage 30 already logged, exactly the stage-14
// reminder goes out and is logged.
func TestRunSendsFourteenDayReminder(t *testing.T) {
	st := newFakeStore()
	sub := noticeSubmission()
	st.subs = []models.FormSubmission{sub}
	st.sentStages[sub.ID] = map[int]bool{30: true}
	d := &recordingDispatcher{}

	h := newReminderHandler(t, st, d, time.Date(2025, time.May, 16, 9, 0, 0, 0, time.UTC))
	require.NoError(t, h.Run(context.Background()))

	assert.Equal(t, []string{"14"}, d.sentStages())
	assert.True(t, st.sentStages[sub.ID][14])

	req := d.requests[0]
	assert.Equal(t, "couple@example.org", req.Recipient.Email)
	assert.Equal(t, "Notice of Intended Marriage", req.Variables["displayName"])
	assert.Equal(t, "2025-05-30", req.Variables["deadlineDate"])
	assert.False(t, req.Critical)
}

func TestRunIsIdempotent(t *testing.T) {
	st := newFakeStore()
	sub := noticeSubmission()
	st.subs = []models.FormSubmission{sub}
	d := &recordingDispatcher{}

	h := newReminderHandler(t, st, d, time.Date(2025, time.May, 16, 9, 0, 0, 0, time.UTC))
	require.NoError(t, h.Run(context.Background()))
	first := len(d.requests)
	require.NoError(t, h.Run(context.Background()))

	assert.Equal(t, first, len(d.requests))
}

// A postponed deadline never resends logged stages; only stages newly
// crossed under the recomputed deadline fire.
func TestRunAfterPostponementSkipsLoggedStages(t *testing.T) {
	st := newFakeStore()
	sub := noticeSubmission()
	sub.DeadlineDate = dateOf(2025, time.July, 15)
	st.subs = []models.FormSubmission{sub}
	st.sentStages[sub.ID] = map[int]bool{30: true, 14: true}
	d := &recordingDispatcher{}

	h := newReminderHandler(t, st, d, time.Date(2025, time.July, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, h.Run(context.Background()))

	assert.Equal(t, []string{"7"}, d.sentStages())
}

// Exhausted dispatch leaves the log row unwritten and flags the open alert,
// so the next cycle retries the stage.
func TestRunDispatchFailureDefersStage(t *testing.T) {
	st := newFakeStore()
	sub := noticeSubmission()
	st.subs = []models.FormSubmission{sub}
	st.alert = &models.ComplianceAlert{ID: "alert-1", SubmissionID: sub.ID,
		Severity: models.SeverityInfo, OpenedAt: time.Now().UTC()}
	d := &recordingDispatcher{fail: true}

	h := newReminderHandler(t, st, d, time.Date(2025, time.May, 16, 9, 0, 0, 0, time.UTC))
	require.NoError(t, h.Run(context.Background()))

	assert.Empty(t, st.sentStages[sub.ID])
	assert.Contains(t, st.deliveryFailed, "alert-1")

	// Dispatch recovers; the stages go out on the next cycle.
	d.fail = false
	require.NoError(t, h.Run(context.Background()))
	assert.Equal(t, []string{"30", "14"}, d.sentStages())
}

// An early-stage failure arrives before the sweep has anything open, so the
// scheduler opens the alert itself with the delivery failure marker set.
func TestRunDispatchFailureOpensAlert(t *testing.T) {
	st := newFakeStore()
	sub := noticeSubmission()
	st.subs = []models.FormSubmission{sub}
	d := &recordingDispatcher{fail: true}

	h := newReminderHandler(t, st, d, time.Date(2025, time.April, 30, 9, 0, 0, 0, time.UTC))
	require.NoError(t, h.Run(context.Background()))

	assert.Empty(t, st.sentStages[sub.ID])
	require.NotNil(t, st.alert)
	assert.Equal(t, sub.ID, st.alert.SubmissionID)
	assert.True(t, st.alert.DeliveryFailed)
	assert.Equal(t, models.SeverityInfo, st.alert.Severity)
}

func TestRunLastStageIsCritical(t *testing.T) {
	st := newFakeStore()
	sub := noticeSubmission()
	st.subs = []models.FormSubmission{sub}
	st.sentStages[sub.ID] = map[int]bool{30: true, 14: true, 7: true, 3: true}
	d := &recordingDispatcher{}

	h := newReminderHandler(t, st, d, time.Date(2025, time.May, 29, 9, 0, 0, 0, time.UTC))
	require.NoError(t, h.Run(context.Background()))

	require.Len(t, d.requests, 1)
	assert.Equal(t, "1", d.requests[0].Variables["stage"])
	assert.True(t, d.requests[0].Critical)
}
