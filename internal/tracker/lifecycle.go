package tracker

import (
	"sync"

	"github.com/anggasct/fluo"

	"marriage-compliance/internal/common/errors"
	"marriage-compliance/internal/models"
)

// Lifecycle events. Every status change goes through one of these; there is
// no other way to move a submission between states.
const (
	EventSubmit     = "submit"
	EventOpenReview = "open_review"
	EventApprove    = "approve"
	EventReject     = "reject"
	EventExpire     = "expire"
	EventReset      = "reset"
	EventReopen     = "reopen"
)

var (
	lifecycleOnce sync.Once
	lifecycleDef  fluo.MachineDefinition
)

// lifecycle returns the shared submission state machine definition. Instances
// are cheap; the definition is built once.
func lifecycle() fluo.MachineDefinition {
	lifecycleOnce.Do(func() {
		lifecycleDef = fluo.NewMachine().
			State(string(models.StatusRequired)).Initial().
			To(string(models.StatusSubmitted)).On(EventSubmit).
			To(string(models.StatusExpired)).On(EventExpire).
			State(string(models.StatusSubmitted)).
			To(string(models.StatusUnderReview)).On(EventOpenReview).
			To(string(models.StatusApproved)).On(EventApprove).
			To(string(models.StatusRejected)).On(EventReject).
			To(string(models.StatusExpired)).On(EventExpire).
			State(string(models.StatusUnderReview)).
			To(string(models.StatusApproved)).On(EventApprove).
			To(string(models.StatusRejected)).On(EventReject).
			To(string(models.StatusExpired)).On(EventExpire).
			State(string(models.StatusRejected)).
			To(string(models.StatusRequired)).On(EventReset).
			To(string(models.StatusExpired)).On(EventExpire).
			State(string(models.StatusExpired)).
			To(string(models.StatusRequired)).On(EventReopen).
			State(string(models.StatusApproved)).Final().
			Build()
	})
	return lifecycleDef
}

// applyEvent runs one event against a fresh machine instance positioned at
// the submission's current status and returns the resulting status. Rejected
// or unprocessed events come back as an InvalidTransition error with no
// state produced.
func applyEvent(from models.SubmissionStatus, event string) (models.SubmissionStatus, error) {
	machine := lifecycle().CreateInstance()
	if err := machine.Start(); err != nil {
		return "", errors.NewInvalidTransitionError(string(from), event)
	}
	if err := machine.SetState(string(from)); err != nil {
		return "", errors.NewInvalidTransitionError(string(from), event)
	}

	result := machine.HandleEvent(event, nil)
	if result == nil || result.Error != nil || !result.Processed || !result.StateChanged {
		return "", errors.NewInvalidTransitionError(string(from), event)
	}
	return models.SubmissionStatus(result.CurrentState), nil
}
