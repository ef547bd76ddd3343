package weeklyreport

import (
	"context"
	"time"

	"github.com/google/uuid"

	"marriage-compliance/internal/common/logger"
	"marriage-compliance/internal/deadline"
	"marriage-compliance/internal/dispatch"
	"marriage-compliance/internal/models"
)

// Storage is the store surface the aggregator needs.
type Storage interface {
	ListCelebrantIDs(ctx context.Context) ([]string, error)
	CountByStatus(ctx context.Context, celebrantID string) (map[models.SubmissionStatus]int, error)
	CountOverdue(ctx context.Context, celebrantID string, today time.Time) (int, error)
	CountUpcoming(ctx context.Context, celebrantID string, today time.Time, horizonDays int) (int, error)
	LatestReport(ctx context.Context, celebrantID string, before time.Time) (*models.ComplianceReport, error)
	InsertReport(ctx context.Context, report *models.ComplianceReport) error
	GetCelebrantEmail(ctx context.Context, celebrantID string) (string, error)
}

type Handler struct {
	config     *Config
	store      Storage
	dispatcher dispatch.Dispatcher
	logger     logger.Logger
	now        func() time.Time
}

func NewHandler(cfg *Config, st Storage, d dispatch.Dispatcher, log logger.Logger) *Handler {
	return &Handler{
		config:     cfg,
		store:      st,
		dispatcher: d,
		logger:     log.WithFields(map[string]interface{}{"job": JobName}),
		now:        time.Now,
	}
}

func (h *Handler) Name() string { return JobName }

// Run produces one immutable report per celebrant and hands it to the
// dispatcher. Delivery gets a single attempt here; a failed send is logged
// and the persisted report remains the source of truth.
func (h *Handler) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	celebrants, err := h.store.ListCelebrantIDs(ctx)
	if err != nil {
		return err
	}

	for _, celebrantID := range celebrants {
		if err := h.reportFor(ctx, celebrantID); err != nil {
			h.logger.WithError(err).Error("report generation failed", map[string]interface{}{
				"celebrantId": celebrantID,
			})
		}
	}
	return nil
}

func (h *Handler) reportFor(ctx context.Context, celebrantID string) error {
	report, err := h.build(ctx, celebrantID)
	if err != nil {
		return err
	}

	if err := h.store.InsertReport(ctx, report); err != nil {
		return err
	}

	h.deliver(ctx, celebrantID, report)
	return nil
}

func (h *Handler) build(ctx context.Context, celebrantID string) (*models.ComplianceReport, error) {
	today := deadline.Day(h.now())

	counts, err := h.store.CountByStatus(ctx, celebrantID)
	if err != nil {
		return nil, err
	}
	overdue, err := h.store.CountOverdue(ctx, celebrantID, today)
	if err != nil {
		return nil, err
	}

	horizons := make(map[int]int, 3)
	for _, days := range []int{7, 14, 30} {
		n, err := h.store.CountUpcoming(ctx, celebrantID, today, days)
		if err != nil {
			return nil, err
		}
		horizons[days] = n
	}

	report := &models.ComplianceReport{
		ID:           uuid.New().String(),
		CelebrantID:  celebrantID,
		PeriodStart:  today.Add(-h.config.Period),
		PeriodEnd:    today,
		StatusCounts: counts,
		OverdueCount: overdue,
		Upcoming7:    horizons[7],
		Upcoming14:   horizons[14],
		Upcoming30:   horizons[30],
		CreatedAt:    h.now().UTC(),
	}

	prior, err := h.store.LatestReport(ctx, celebrantID, report.PeriodStart)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		report.TrendDelta = report.OverdueCount - prior.OverdueCount
	}

	return report, nil
}

// deliver sends the summary email. No retry: the aggregator's contract ends
// at a single dispatch attempt.
func (h *Handler) deliver(ctx context.Context, celebrantID string, report *models.ComplianceReport) {
	email, err := h.store.GetCelebrantEmail(ctx, celebrantID)
	if err != nil {
		h.logger.WithError(err).Warn("celebrant contact lookup failed", map[string]interface{}{
			"celebrantId": celebrantID,
		})
		return
	}
	if email == "" {
		h.logger.Warn("celebrant has no delivery address", map[string]interface{}{
			"celebrantId": celebrantID,
		})
		return
	}

	req := dispatch.Request{
		Recipient:   dispatch.Recipient{Email: email},
		TemplateKey: dispatch.TemplateWeeklyReport,
		Variables:   reportVariables(report),
	}
	if err := h.dispatcher.Send(ctx, req); err != nil {
		h.logger.WithError(err).Error("report delivery failed", map[string]interface{}{
			"celebrantId": celebrantID,
			"reportId":    report.ID,
		})
	}
}
