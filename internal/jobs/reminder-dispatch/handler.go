package reminderdispatch

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"marriage-compliance/internal/common/config"
	"marriage-compliance/internal/common/errors"
	"marriage-compliance/internal/common/logger"
	"marriage-compliance/internal/common/metrics"
	"marriage-compliance/internal/deadline"
	"marriage-compliance/internal/dispatch"
	"marriage-compliance/internal/models"
	"marriage-compliance/pkg/catalog"
)

// Storage is the store surface the scheduler needs.
type Storage interface {
	ListActiveWithDeadline(ctx context.Context) ([]models.FormSubmission, error)
	ListReminderStages(ctx context.Context, submissionID string) (map[int]bool, error)
	InsertReminderLog(ctx context.Context, log *models.ReminderLog) (bool, error)
	GetCouple(ctx context.Context, coupleID string) (*models.Couple, error)
	GetOpenAlert(ctx context.Context, submissionID string) (*models.ComplianceAlert, error)
	InsertAlert(ctx context.Context, alert *models.ComplianceAlert) error
	MarkAlertDeliveryFailed(ctx context.Context, alertID string) error
}

type Handler struct {
	config     *Config
	notifCfg   config.NotificationConfig
	store      Storage
	dispatcher dispatch.Dispatcher
	catalog    *catalog.Catalog
	logger     logger.Logger
	now        func() time.Time
}

func NewHandler(cfg *Config, notifCfg config.NotificationConfig, st Storage, d dispatch.Dispatcher, cat *catalog.Catalog, log logger.Logger) *Handler {
	return &Handler{
		config:     cfg,
		notifCfg:   notifCfg,
		store:      st,
		dispatcher: d,
		catalog:    cat,
		logger:     log.WithFields(map[string]interface{}{"job": JobName}),
		now:        time.Now,
	}
}

func (h *Handler) Name() string { return JobName }

// Run walks every active submission and sends the reminders whose stage is
// due. Dispatch happens before the log write; the log row's uniqueness
// constraint makes re-runs skip stages that already went out.
func (h *Handler) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	subs, err := h.store.ListActiveWithDeadline(ctx)
	if err != nil {
		return err
	}

	today := deadline.Day(h.now())
	for i := range subs {
		if err := h.processSubmission(ctx, &subs[i], today); err != nil {
			h.logger.WithError(err).Error("reminder processing failed", map[string]interface{}{
				"submissionId": subs[i].ID,
			})
		}
	}
	return nil
}

func (h *Handler) processSubmission(ctx context.Context, sub *models.FormSubmission, today time.Time) error {
	sent, err := h.store.ListReminderStages(ctx, sub.ID)
	if err != nil {
		return err
	}

	due := dueStages(*sub.DeadlineDate, today, sent)
	if len(due) == 0 {
		return nil
	}

	couple, err := h.store.GetCouple(ctx, sub.CoupleID)
	if err != nil {
		return err
	}

	daysLeft := deadline.DaysUntil(*sub.DeadlineDate, today)
	for _, stage := range due {
		if err := h.sendStage(ctx, sub, couple, stage, daysLeft); err != nil {
			h.logger.WithError(err).Error("reminder dispatch exhausted", map[string]interface{}{
				"submissionId": sub.ID,
				"stage":        stage,
			})
			h.recordDeliveryFailure(ctx, sub.ID, daysLeft)
		}
	}
	return nil
}

// sendStage dispatches one stage and, only on acknowledgment, writes its log
// row. A crash between the two leaves the stage eligible for the next cycle.
func (h *Handler) sendStage(ctx context.Context, sub *models.FormSubmission, couple *models.Couple, stage, daysLeft int) error {
	req := dispatch.Request{
		Recipient:   dispatch.Recipient{Email: couple.Email, Phone: couple.Phone},
		TemplateKey: dispatch.TemplateDeadlineReminder,
		Variables: map[string]string{
			"displayName":  h.displayName(sub.DocumentType),
			"deadlineDate": sub.DeadlineDate.Format("2006-01-02"),
			"daysLeft":     strconv.Itoa(daysLeft),
			"stage":        strconv.Itoa(stage),
		},
		Critical: daysLeft <= 1,
	}

	backoff := config.GetDuration(h.notifCfg.RetryBackoff)
	if err := dispatch.SendWithRetry(ctx, h.dispatcher, req, h.notifCfg.MaxAttempts, backoff, h.logger); err != nil {
		return err
	}

	inserted, err := h.store.InsertReminderLog(ctx, &models.ReminderLog{
		ID:           uuid.New().String(),
		SubmissionID: sub.ID,
		Stage:        stage,
		SentAt:       h.now().UTC(),
	})
	if err != nil {
		return err
	}
	if !inserted {
		// Another instance logged this stage between our read and write.
		h.logger.Warn("reminder stage already logged", map[string]interface{}{
			"submissionId": sub.ID,
			"stage":        stage,
		})
		return nil
	}

	metrics.RemindersSent.WithLabelValues(strconv.Itoa(stage)).Inc()
	h.logger.Info("reminder sent", map[string]interface{}{
		"submissionId": sub.ID,
		"stage":        stage,
		"daysLeft":     daysLeft,
	})
	return nil
}

func (h *Handler) displayName(documentType string) string {
	if req, ok := h.catalog.Lookup(documentType); ok && req.DisplayName != "" {
		return req.DisplayName
	}
	return documentType
}

// recordDeliveryFailure surfaces dispatch exhaustion on the submission's
// open alert so the dashboard shows it. Early stages run before the sweep
// opens anything, so an alert carrying the marker is opened when none
// exists. The reminder log stays unwritten so a later cycle retries the
// stage.
func (h *Handler) recordDeliveryFailure(ctx context.Context, submissionID string, daysLeft int) {
	alert, err := h.store.GetOpenAlert(ctx, submissionID)
	if err != nil {
		h.logger.WithError(err).Warn("open alert lookup failed", map[string]interface{}{
			"submissionId": submissionID,
		})
		return
	}
	if alert == nil {
		severity := models.SeverityForDaysLeft(daysLeft)
		if severity == "" {
			severity = models.SeverityInfo
		}
		newAlert := &models.ComplianceAlert{
			ID:             uuid.New().String(),
			SubmissionID:   submissionID,
			Severity:       severity,
			DeliveryFailed: true,
			OpenedAt:       h.now().UTC(),
		}
		insErr := h.store.InsertAlert(ctx, newAlert)
		if insErr == nil {
			return
		}
		if !errors.HasCode(insErr, errors.ErrCodeConcurrentUpdateConflict) {
			h.logger.WithError(insErr).Warn("opening delivery failure alert failed", map[string]interface{}{
				"submissionId": submissionID,
			})
			return
		}
		// A sweep opened one concurrently; mark that row.
		alert, err = h.store.GetOpenAlert(ctx, submissionID)
		if err != nil || alert == nil {
			return
		}
	}
	if err := h.store.MarkAlertDeliveryFailed(ctx, alert.ID); err != nil {
		h.logger.WithError(err).Warn("marking delivery failure failed", map[string]interface{}{
			"alertId": alert.ID,
		})
	}
}
