package dispatch

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"marriage-compliance/internal/common/aws"
	"marriage-compliance/internal/common/config"
	"marriage-compliance/internal/common/logger"
)

// Recipient carries the contact points the external couple/celebrant record
// exposes. Either field may be empty.
type Recipient struct {
	Email string
	Phone string
}

// Request is one notification to deliver. Critical requests are eligible for
// the SMS channel when it is restricted to critical traffic.
type Request struct {
	Recipient   Recipient
	TemplateKey string
	Variables   map[string]string
	Critical    bool
}

// Dispatcher is the notification boundary. Callers treat a nil error as a
// delivery acknowledgment.
type Dispatcher interface {
	Send(ctx context.Context, req Request) error
}

// Interfaces for mocking the AWS clients.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// AWSDispatcher delivers over SES email and SNS SMS.
type AWSDispatcher struct {
	config    config.NotificationConfig
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
}

func NewAWSDispatcher(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*AWSDispatcher, error) {
	sesClient, err := aws.NewSESClient(ctx, cfg.AWS.Region)
	if err != nil {
		return nil, fmt.Errorf("init SES client: %w", err)
	}
	snsClient, err := aws.NewSNSClient(ctx, cfg.AWS.Region)
	if err != nil {
		return nil, fmt.Errorf("init SNS client: %w", err)
	}

	return &AWSDispatcher{
		config:    cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "dispatch"}),
		sesClient: sesClient,
		snsClient: snsClient,
	}, nil
}

// Send renders the template and delivers on every eligible channel. At least
// one channel must succeed for the request to count as dispatched.
func (d *AWSDispatcher) Send(ctx context.Context, req Request) error {
	tmpl, ok := lookupTemplate(req.TemplateKey)
	if !ok {
		return fmt.Errorf("unknown template %q", req.TemplateKey)
	}

	subject := render(tmpl.Subject, req.Variables)
	body := render(tmpl.Body, req.Variables)

	delivered := false

	if d.config.Email.Enabled && req.Recipient.Email != "" {
		input := aws.BuildEmailInput(d.config.Email.FromEmail, req.Recipient.Email, subject, body)
		if _, err := d.sesClient.SendEmail(ctx, input); err != nil {
			d.logger.WithError(err).Error("email send failed", map[string]interface{}{
				"template": req.TemplateKey,
			})
			return fmt.Errorf("send email: %w", err)
		}
		delivered = true
	}

	if d.smsEligible(req) {
		sms := render(tmpl.SMS, req.Variables)
		if _, err := d.snsClient.Publish(ctx, aws.BuildSMSInput(req.Recipient.Phone, sms)); err != nil {
			d.logger.WithError(err).Error("SMS send failed", map[string]interface{}{
				"template": req.TemplateKey,
			})
			return fmt.Errorf("send SMS: %w", err)
		}
		delivered = true
	}

	if !delivered {
		return fmt.Errorf("no deliverable channel for template %q", req.TemplateKey)
	}
	return nil
}

func (d *AWSDispatcher) smsEligible(req Request) bool {
	if !d.config.SMS.Enabled || req.Recipient.Phone == "" {
		return false
	}
	if d.config.SMS.CriticalOnly && !req.Critical {
		return false
	}
	return true
}
