// Package notify delivers applicant notifications by email (SES) and SMS
// (SNS) after a lifecycle transition commits.
package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"

	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/common/logger"
	"hostel-admissions/internal/common/metrics"
	"hostel-admissions/internal/identity"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/models"
)

// SESService and SNSService are the SDK calls used, narrowed for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	SenderID     string
	CountryCode  string
	Timeout      time.Duration
}

// Result summarizes one dispatch.
type Result struct {
	NotificationID string
	Status         string
}

type Dispatcher struct {
	config    Config
	ses       SESService
	sns       SNSService
	templates map[models.AuditAction]models.NotificationTemplate
	logger    logger.Logger
	now       func() time.Time
}

var _ lifecycle.Hook = (*Dispatcher)(nil)

func NewDispatcher(cfg Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.CountryCode = strings.TrimPrefix(cfg.CountryCode, "+")
	if cfg.CountryCode == "" {
		cfg.CountryCode = "91"
	}
	return &Dispatcher{
		config:    cfg,
		ses:       sesClient,
		sns:       snsClient,
		templates: DefaultTemplates(),
		logger:    log.WithFields(map[string]interface{}{"component": "notify"}),
		now:       time.Now,
	}
}

func (d *Dispatcher) Name() string { return "notify" }

// AfterCommit notifies the applicant for actions that have a template.
func (d *Dispatcher) AfterCommit(ctx context.Context, evt lifecycle.Event) error {
	if evt.Application == nil {
		return nil
	}
	if _, ok := d.templates[evt.Action]; !ok {
		return nil
	}

	app := evt.Application
	data := map[string]string{
		"vertical": app.Vertical.Label(),
		"remarks":  evt.Entry.Remarks,
	}
	for k, v := range interviewData(evt.Interview) {
		data[k] = v
	}
	_, err := d.Send(ctx, d.notificationFor(app, evt.Action, data))
	return err
}

// SendCredentials mails the initial login of an approved applicant.
func (d *Dispatcher) SendCredentials(ctx context.Context, app *models.Application, username, password string) error {
	_, err := d.Send(ctx, d.notificationFor(app, templateCredentials, map[string]string{
		"username": username,
		"password": password,
	}))
	return err
}

func (d *Dispatcher) notificationFor(app *models.Application, action models.AuditAction, data map[string]string) models.Notification {
	phone := app.ApplicantMobile
	if phone == "" {
		phone = app.FatherMobile
	}
	if phone == "" {
		phone = app.MotherMobile
	}
	return models.Notification{
		ID:             uuid.New().String(),
		ApplicationID:  app.ID,
		TrackingNumber: app.TrackingNumber,
		Event:          action,
		RecipientName:  app.ApplicantName,
		Email:          app.ApplicantEmail,
		Phone:          phone,
		Data:           data,
		CreatedAt:      d.now().UTC(),
	}
}

// Send renders n and delivers it on every enabled channel with a contact.
// A channel failure does not stop the other channel; the joined error is
// returned with status failed.
func (d *Dispatcher) Send(ctx context.Context, n models.Notification) (*Result, error) {
	tmpl, ok := d.templates[n.Event]
	if !ok {
		return nil, apperrors.NewNotFoundError("notification template", string(n.Event))
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	data := templateData(n)
	subject := renderTemplate(tmpl.Subject, data)
	body := renderTemplate(tmpl.Body, data)

	var (
		errs []error
		sent bool
	)

	if d.config.EmailEnabled && d.ses != nil && n.Email != "" {
		if err := d.sendEmail(ctx, n.Email, subject, body); err != nil {
			d.logger.Error("email send failed", map[string]interface{}{
				"notificationId": n.ID,
				"applicationId":  n.ApplicationID,
				"error":          err,
			})
			metrics.NotificationsSent.WithLabelValues("email", models.DeliveryFailed).Inc()
			errs = append(errs, apperrors.NewUpstreamUnavailableError("ses", err))
		} else {
			metrics.NotificationsSent.WithLabelValues("email", models.DeliverySent).Inc()
			sent = true
		}
	}

	if d.config.SMSEnabled && d.sns != nil && identity.Normalize(n.Phone) != "" {
		if err := d.sendSMS(ctx, d.e164(n.Phone), body); err != nil {
			d.logger.Error("SMS send failed", map[string]interface{}{
				"notificationId": n.ID,
				"applicationId":  n.ApplicationID,
				"error":          err,
			})
			metrics.NotificationsSent.WithLabelValues("sms", models.DeliveryFailed).Inc()
			errs = append(errs, apperrors.NewUpstreamUnavailableError("sns", err))
		} else {
			metrics.NotificationsSent.WithLabelValues("sms", models.DeliverySent).Inc()
			sent = true
		}
	}

	result := &Result{NotificationID: n.ID, Status: models.DeliveryDisabled}
	switch {
	case len(errs) > 0:
		result.Status = models.DeliveryFailed
	case sent:
		result.Status = models.DeliverySent
	default:
		d.logger.Debug("no channel available", map[string]interface{}{
			"applicationId": n.ApplicationID,
			"event":         n.Event,
		})
	}
	return result, errors.Join(errs...)
}

func (d *Dispatcher) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := d.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(d.config.FromEmail),
	})
	return err
}

func (d *Dispatcher) sendSMS(ctx context.Context, to, message string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	}
	if d.config.SenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {DataType: aws.String("String"), StringValue: aws.String(d.config.SenderID)},
		}
	}
	_, err := d.sns.Publish(ctx, input)
	return err
}

// e164 formats a stored mobile for SNS using the configured country code.
func (d *Dispatcher) e164(mobile string) string {
	return "+" + d.config.CountryCode + identity.Normalize(mobile)
}
