package tracker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"marriage-compliance/internal/common/errors"
	"marriage-compliance/internal/common/logger"
	"marriage-compliance/internal/deadline"
	"marriage-compliance/internal/models"
	"marriage-compliance/pkg/catalog"
)

// ActorSweep marks transitions driven by the periodic sweep rather than a
// person.
const ActorSweep = "sweep"

// Storage is the slice of the store the tracker needs. *store.Store satisfies
// it.
type Storage interface {
	GetSubmission(ctx context.Context, id string) (*models.FormSubmission, error)
	ListByCouple(ctx context.Context, coupleID string) ([]models.FormSubmission, error)
	InsertSubmission(ctx context.Context, sub *models.FormSubmission) (bool, error)
	UpdateSubmission(ctx context.Context, sub *models.FormSubmission) error
	UpdateDeadline(ctx context.Context, submissionID string, deadline *time.Time) error
	InsertTransitionLog(ctx context.Context, log *models.TransitionLog) error
	GetCouple(ctx context.Context, coupleID string) (*models.Couple, error)
	GetOpenAlert(ctx context.Context, submissionID string) (*models.ComplianceAlert, error)
	InsertAlert(ctx context.Context, alert *models.ComplianceAlert) error
	MarkAlertManualReview(ctx context.Context, alertID string) error
}

// Tracker owns every FormSubmission mutation. All status changes pass through
// the lifecycle machine; the store's version check serializes concurrent
// writers.
type Tracker struct {
	store   Storage
	catalog *catalog.Catalog
	logger  logger.Logger
	now     func() time.Time
}

func New(st Storage, cat *catalog.Catalog, log logger.Logger) *Tracker {
	return &Tracker{
		store:   st,
		catalog: cat,
		logger:  log.WithFields(map[string]interface{}{"component": "tracker"}),
		now:     time.Now,
	}
}

// Submit records an upload against a required submission. The file reference
// and the document type's payload schema are validated before any mutation.
func (t *Tracker) Submit(ctx context.Context, submissionID, fileReference string, payload map[string]interface{}) (*models.FormSubmission, error) {
	if err := validateFileReference(fileReference); err != nil {
		return nil, err
	}

	sub, err := t.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	if err := t.catalog.ValidatePayload(sub.DocumentType, payload); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	next, err := applyEvent(sub.Status, EventSubmit)
	if err != nil {
		return nil, err
	}

	from := sub.Status
	now := t.now().UTC()
	sub.Status = next
	sub.SubmittedDate = &now
	sub.FileReference = fileReference

	if err := t.store.UpdateSubmission(ctx, sub); err != nil {
		return nil, err
	}
	t.logTransition(ctx, sub.ID, from, sub.Status, "uploader", "")

	return sub, nil
}

// OpenReview moves a submitted document into the celebrant's review queue.
func (t *Tracker) OpenReview(ctx context.Context, submissionID, actor string) (*models.FormSubmission, error) {
	return t.transition(ctx, submissionID, EventOpenReview, actor, "", nil)
}

// Approve records the celebrant's positive decision. Approved is terminal.
func (t *Tracker) Approve(ctx context.Context, submissionID, actor, notes string) (*models.FormSubmission, error) {
	return t.transition(ctx, submissionID, EventApprove, actor, notes, t.setDecision)
}

// Reject records a negative decision and immediately applies the automatic
// reset back to required so the couple can resubmit. Both edges are checked
// against the lifecycle but only the final state is persisted; the
// intermediate rejected state is visible in the transition log.
func (t *Tracker) Reject(ctx context.Context, submissionID, actor, notes string) (*models.FormSubmission, error) {
	sub, err := t.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	rejected, err := applyEvent(sub.Status, EventReject)
	if err != nil {
		return nil, err
	}
	reset, err := applyEvent(rejected, EventReset)
	if err != nil {
		return nil, err
	}

	from := sub.Status
	now := t.now().UTC()
	sub.Status = reset
	sub.DecisionDate = &now
	sub.ReviewNotes = notes
	sub.SubmittedDate = nil
	sub.FileReference = ""

	if err := t.store.UpdateSubmission(ctx, sub); err != nil {
		return nil, err
	}
	t.logTransition(ctx, sub.ID, from, rejected, actor, notes)
	t.logTransition(ctx, sub.ID, rejected, reset, actor, "automatic reset")

	return sub, nil
}

// Expire pushes an already-loaded overdue submission into the expired state.
// The sweep calls this with the row it just evaluated; the version check
// loses cleanly to a racing celebrant decision.
func (t *Tracker) Expire(ctx context.Context, sub *models.FormSubmission) error {
	next, err := applyEvent(sub.Status, EventExpire)
	if err != nil {
		return err
	}

	from := sub.Status
	sub.Status = next
	if err := t.store.UpdateSubmission(ctx, sub); err != nil {
		sub.Status = from
		return err
	}
	t.logTransition(ctx, sub.ID, from, next, ActorSweep, "deadline passed")

	return nil
}

// Reopen is the celebrant override that pulls an expired submission back to
// required. Rare, explicit, and always audit-logged with the actor.
func (t *Tracker) Reopen(ctx context.Context, submissionID, actor, note string) (*models.FormSubmission, error) {
	if actor == "" {
		return nil, errors.NewValidationError("reopen requires an actor")
	}
	sub, err := t.transition(ctx, submissionID, EventReopen, actor, note, nil)
	if err != nil {
		return nil, err
	}
	t.logger.Info("expired submission reopened", map[string]interface{}{
		"submissionId": submissionID,
		"actor":        actor,
		"note":         note,
	})
	return sub, nil
}

// EnsureForCouple creates a required submission for every document type that
// applies to the couple's ceremony. Safe to call repeatedly; existing rows
// are left alone.
func (t *Tracker) EnsureForCouple(ctx context.Context, coupleID string) ([]models.FormSubmission, error) {
	couple, err := t.store.GetCouple(ctx, coupleID)
	if err != nil {
		return nil, err
	}

	var created []models.FormSubmission
	for _, req := range t.catalog.ApplicableTo(couple.CeremonyType) {
		now := t.now().UTC()
		sub := models.FormSubmission{
			ID:           uuid.New().String(),
			CoupleID:     couple.ID,
			DocumentType: req.DocumentType,
			Status:       models.StatusRequired,
			DeadlineDate: deadline.Compute(couple.CeremonyDate, req),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		inserted, err := t.store.InsertSubmission(ctx, &sub)
		if err != nil {
			return created, err
		}
		if inserted {
			created = append(created, sub)
		}
	}
	return created, nil
}

// RescheduleCeremony recomputes every deadline for the couple after a
// ceremony date change. A submission that already expired under the old
// deadline is not silently revived: its deadline is left untouched, its open
// alert is flagged for manual review, and the caller gets a
// SchedulingConflict naming the first such submission.
func (t *Tracker) RescheduleCeremony(ctx context.Context, coupleID string) error {
	couple, err := t.store.GetCouple(ctx, coupleID)
	if err != nil {
		return err
	}
	subs, err := t.store.ListByCouple(ctx, coupleID)
	if err != nil {
		return err
	}

	today := deadline.Day(t.now())
	var conflict *errors.StandardError
	for i := range subs {
		sub := &subs[i]
		req, ok := t.catalog.Lookup(sub.DocumentType)
		if !ok {
			t.logger.Warn("submission references unknown document type", map[string]interface{}{
				"submissionId": sub.ID,
				"documentType": sub.DocumentType,
			})
			continue
		}
		newDeadline := deadline.Compute(couple.CeremonyDate, req)

		if sub.Status == models.StatusExpired && newDeadline != nil && newDeadline.After(today) {
			if err := t.flagManualReview(ctx, sub.ID); err != nil {
				return err
			}
			if conflict == nil {
				conflict = errors.NewSchedulingConflictError(sub.ID)
			}
			continue
		}

		if err := t.store.UpdateDeadline(ctx, sub.ID, newDeadline); err != nil {
			return err
		}
	}

	if conflict != nil {
		return conflict
	}
	return nil
}

// transition is the common read-validate-write path for single-edge events.
func (t *Tracker) transition(ctx context.Context, submissionID, event, actor, notes string, mutate func(*models.FormSubmission)) (*models.FormSubmission, error) {
	sub, err := t.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	next, err := applyEvent(sub.Status, event)
	if err != nil {
		return nil, err
	}

	from := sub.Status
	sub.Status = next
	if notes != "" {
		sub.ReviewNotes = notes
	}
	if mutate != nil {
		mutate(sub)
	}

	if err := t.store.UpdateSubmission(ctx, sub); err != nil {
		return nil, err
	}
	t.logTransition(ctx, sub.ID, from, next, actor, notes)

	return sub, nil
}

func (t *Tracker) setDecision(sub *models.FormSubmission) {
	now := t.now().UTC()
	sub.DecisionDate = &now
}

// flagManualReview keeps the expired submission's alert open at critical and
// marks it for a human to resolve.
func (t *Tracker) flagManualReview(ctx context.Context, submissionID string) error {
	alert, err := t.store.GetOpenAlert(ctx, submissionID)
	if err != nil {
		return err
	}
	if alert == nil {
		alert = &models.ComplianceAlert{
			ID:           uuid.New().String(),
			SubmissionID: submissionID,
			Severity:     models.SeverityCritical,
			OpenedAt:     t.now().UTC(),
		}
		if insErr := t.store.InsertAlert(ctx, alert); insErr != nil {
			if !errors.HasCode(insErr, errors.ErrCodeConcurrentUpdateConflict) {
				return insErr
			}
			// A sweep opened the alert between our read and the insert; the
			// flag belongs on that row, not the one we never wrote.
			alert, err = t.store.GetOpenAlert(ctx, submissionID)
			if err != nil {
				return err
			}
			if alert == nil {
				return insErr
			}
		}
	}
	return t.store.MarkAlertManualReview(ctx, alert.ID)
}

// logTransition writes the audit row. Audit failures are logged, not
// propagated; the state change itself has already committed.
func (t *Tracker) logTransition(ctx context.Context, submissionID string, from, to models.SubmissionStatus, actor, note string) {
	entry := &models.TransitionLog{
		ID:           uuid.New().String(),
		SubmissionID: submissionID,
		FromStatus:   from,
		ToStatus:     to,
		Actor:        actor,
		Note:         note,
		OccurredAt:   t.now().UTC(),
	}
	if err := t.store.InsertTransitionLog(ctx, entry); err != nil {
		t.logger.WithError(err).Error("failed to write transition log", map[string]interface{}{
			"submissionId": submissionID,
			"from":         string(from),
			"to":           string(to),
		})
	}
}
