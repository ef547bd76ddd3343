package compliancesweep

import (
	"context"
	"time"

	"github.com/google/uuid"

	"marriage-compliance/internal/common/errors"
	"marriage-compliance/internal/common/logger"
	"marriage-compliance/internal/common/metrics"
	"marriage-compliance/internal/deadline"
	"marriage-compliance/internal/models"
)

// Storage is the store surface the sweep needs.
type Storage interface {
	ListActiveWithDeadline(ctx context.Context) ([]models.FormSubmission, error)
	ListResolvedWithOpenAlert(ctx context.Context) ([]models.FormSubmission, error)
	GetOpenAlert(ctx context.Context, submissionID string) (*models.ComplianceAlert, error)
	InsertAlert(ctx context.Context, alert *models.ComplianceAlert) error
	UpdateAlertSeverity(ctx context.Context, alertID string, severity models.AlertSeverity) error
	ResolveAlert(ctx context.Context, alertID string, at time.Time) error
	CountOpenAlertsBySeverity(ctx context.Context) (map[models.AlertSeverity]int, error)
}

// Expirer drives the overdue state transition. *tracker.Tracker satisfies it.
type Expirer interface {
	Expire(ctx context.Context, sub *models.FormSubmission) error
}

// Projector receives the cycle's results for the read-side dashboard index.
type Projector interface {
	IndexSweepResults(ctx context.Context, results []Result) error
}

type Handler struct {
	config    *Config
	store     Storage
	tracker   Expirer
	projector Projector
	logger    logger.Logger
	now       func() time.Time
}

func NewHandler(cfg *Config, st Storage, tr Expirer, proj Projector, log logger.Logger) *Handler {
	return &Handler{
		config:    cfg,
		store:     st,
		tracker:   tr,
		projector: proj,
		logger:    log.WithFields(map[string]interface{}{"job": JobName}),
		now:       time.Now,
	}
}

func (h *Handler) Name() string { return JobName }

// Run evaluates every active submission with a known deadline. One
// submission's failure is logged and skipped; the cycle always visits the
// whole batch. Re-running a cycle changes nothing that is already correct.
func (h *Handler) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	subs, err := h.store.ListActiveWithDeadline(ctx)
	if err != nil {
		return err
	}

	today := deadline.Day(h.now())
	results := make([]Result, 0, len(subs))
	for i := range subs {
		result, err := h.evaluate(ctx, &subs[i], today)
		if err != nil {
			metrics.SubmissionsEvaluated.WithLabelValues(JobName, OutcomeError).Inc()
			h.logger.WithError(err).Error("submission evaluation failed", map[string]interface{}{
				"submissionId": subs[i].ID,
			})
			continue
		}
		outcome := OutcomeOK
		if result.Expired {
			outcome = OutcomeExpired
		}
		metrics.SubmissionsEvaluated.WithLabelValues(JobName, outcome).Inc()
		results = append(results, result)
	}

	if err := h.resolveFinished(ctx); err != nil {
		h.logger.WithError(err).Error("resolving finished submissions failed", nil)
	}

	h.updateAlertGauge(ctx)

	if h.projector != nil {
		if err := h.projector.IndexSweepResults(ctx, results); err != nil {
			h.logger.WithError(err).Warn("dashboard projection failed", nil)
		}
	}

	return nil
}

// evaluate classifies one submission, reconciles its open alert, and drives
// the expiry transition when the deadline has passed.
func (h *Handler) evaluate(ctx context.Context, sub *models.FormSubmission, today time.Time) (Result, error) {
	daysLeft := deadline.DaysUntil(*sub.DeadlineDate, today)
	severity := classifySeverity(daysLeft)

	result := Result{Submission: *sub, DaysLeft: daysLeft, Severity: severity}

	alert, err := h.reconcileAlert(ctx, sub.ID, severity)
	if err != nil {
		return result, err
	}
	result.Alert = alert

	if daysLeft <= 0 && sub.Status != models.StatusApproved {
		if err := h.tracker.Expire(ctx, sub); err != nil {
			if errors.HasCode(err, errors.ErrCodeConcurrentUpdateConflict) {
				// A celebrant decision landed first; next cycle sees the
				// final state.
				h.logger.Info("expiry lost to a concurrent decision", map[string]interface{}{
					"submissionId": sub.ID,
				})
				return result, nil
			}
			return result, err
		}
		result.Expired = true
		result.Submission = *sub
	}

	return result, nil
}

// reconcileAlert enforces the one-open-alert invariant: raise when missing,
// adjust severity in place, resolve when the submission is no longer at
// risk. Alerts parked for manual review or carrying a delivery failure are
// never resolved automatically. Returns the alert left open, nil when none.
func (h *Handler) reconcileAlert(ctx context.Context, submissionID string, severity models.AlertSeverity) (*models.ComplianceAlert, error) {
	alert, err := h.store.GetOpenAlert(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	if severity == "" {
		if alert == nil || alert.ManualReview || alert.DeliveryFailed {
			return alert, nil
		}
		return nil, h.store.ResolveAlert(ctx, alert.ID, h.now().UTC())
	}

	if alert == nil {
		newAlert := &models.ComplianceAlert{
			ID:           uuid.New().String(),
			SubmissionID: submissionID,
			Severity:     severity,
			OpenedAt:     h.now().UTC(),
		}
		err := h.store.InsertAlert(ctx, newAlert)
		if err == nil {
			return newAlert, nil
		}
		if errors.HasCode(err, errors.ErrCodeConcurrentUpdateConflict) {
			// A parallel cycle opened it first; report that row.
			return h.store.GetOpenAlert(ctx, submissionID)
		}
		return nil, err
	}

	if alert.ManualReview || alert.Severity == severity {
		return alert, nil
	}
	if err := h.store.UpdateAlertSeverity(ctx, alert.ID, severity); err != nil {
		return nil, err
	}
	alert.Severity = severity
	return alert, nil
}

// resolveFinished closes open alerts on submissions that no longer need
// tracking, approved ones foremost.
func (h *Handler) resolveFinished(ctx context.Context) error {
	subs, err := h.store.ListResolvedWithOpenAlert(ctx)
	if err != nil {
		return err
	}

	for i := range subs {
		alert, err := h.store.GetOpenAlert(ctx, subs[i].ID)
		if err != nil {
			h.logger.WithError(err).Error("open alert lookup failed", map[string]interface{}{
				"submissionId": subs[i].ID,
			})
			continue
		}
		if alert == nil {
			continue
		}
		if err := h.store.ResolveAlert(ctx, alert.ID, h.now().UTC()); err != nil {
			h.logger.WithError(err).Error("alert resolution failed", map[string]interface{}{
				"alertId": alert.ID,
			})
		}
	}
	return nil
}

func (h *Handler) updateAlertGauge(ctx context.Context) {
	counts, err := h.store.CountOpenAlertsBySeverity(ctx)
	if err != nil {
		h.logger.WithError(err).Warn("open alert count failed", nil)
		return
	}
	for _, severity := range []models.AlertSeverity{models.SeverityInfo, models.SeverityWarning, models.SeverityCritical} {
		metrics.AlertsOpen.WithLabelValues(string(severity)).Set(float64(counts[severity]))
	}
}
