package dispatch

import (
	"context"
	"time"

	"marriage-compliance/internal/common/errors"
	"marriage-compliance/internal/common/logger"
	"marriage-compliance/internal/common/metrics"
)

// SendWithRetry attempts a dispatch up to maxAttempts times with exponential
// backoff. Exhaustion returns a DISPATCH_FAILED error; the caller must not
// record the notification as sent in that case.
func SendWithRetry(ctx context.Context, d Dispatcher, req Request, maxAttempts int, initialBackoff time.Duration, log logger.Logger) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	delay := initialBackoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = d.Send(ctx, req); err == nil {
			return nil
		}

		if attempt < maxAttempts {
			log.WithError(err).Warn("dispatch failed, retrying", map[string]interface{}{
				"template":    req.TemplateKey,
				"attempt":     attempt,
				"maxAttempts": maxAttempts,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	metrics.DispatchFailures.WithLabelValues(req.TemplateKey).Inc()
	log.WithError(err).Error("dispatch attempts exhausted", map[string]interface{}{
		"template":    req.TemplateKey,
		"maxAttempts": maxAttempts,
	})
	return errors.NewDispatchFailedError(req.TemplateKey, err)
}
