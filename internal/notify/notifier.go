// Package notify sends one-way email and SMS notifications through SES and SNS.
package notify

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/common/metrics"
	"financing-workers/internal/common/validation"
	"financing-workers/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

var ErrNotificationSendFailed = stderrors.New("NOTIFICATION_SEND_FAILED")

// SESService is the subset of the SES client used here.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SNSService is the subset of the SNS client used here.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

// Recipient types.
const (
	RecipientBusiness = "business"
	RecipientInvestor = "investor"
	RecipientAdmin    = "admin"
)

type Recipient struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Message is one event to deliver. Data fills the {{placeholders}} of the event's template.
type Message struct {
	Recipient Recipient                `json:"recipient"`
	Event     models.NotificationEvent `json:"event"`
	Data      map[string]interface{}   `json:"data,omitempty"`
}

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	SMSSenderID  string
}

type Notifier struct {
	config Config
	ses    SESService
	sns    SNSService
	log    logger.Logger
}

// NewNotifier builds a notifier. A nil client disables its channel.
func NewNotifier(config Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Notifier {
	if sesClient == nil {
		config.EmailEnabled = false
	}
	if snsClient == nil {
		config.SMSEnabled = false
	}
	return &Notifier{
		config: config,
		ses:    sesClient,
		sns:    snsClient,
		log:    log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// Notify delivers msg on every channel its template uses. Each attempt is
// reported; the error wraps ErrNotificationSendFailed when any send failed.
func (n *Notifier) Notify(ctx context.Context, msg Message) ([]models.Notification, error) {
	tmpl, ok := templates[msg.Event]
	if !ok {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed,
			"Unknown notification event", string(msg.Event))
	}

	data := map[string]interface{}{
		"recipientName": msg.Recipient.Name,
	}
	for k, v := range msg.Data {
		data[k] = v
	}

	results := make([]models.Notification, 0, 2)
	var failed []string

	email := n.attempt(ChannelEmail, msg, n.config.EmailEnabled && validation.ValidateEmail(msg.Recipient.Email), func() (string, error) {
		return n.sendEmail(ctx, msg.Recipient.Email, renderTemplate(tmpl.Subject, data), renderTemplate(tmpl.Body, data))
	})
	results = append(results, email)
	if email.Status == StatusFailed {
		failed = append(failed, "email: "+email.Error)
	}

	if tmpl.SMS {
		sms := n.attempt(ChannelSMS, msg, n.config.SMSEnabled && validation.ValidatePhone(msg.Recipient.Phone), func() (string, error) {
			return n.sendSMS(ctx, msg.Recipient.Phone, renderTemplate(tmpl.Body, data))
		})
		results = append(results, sms)
		if sms.Status == StatusFailed {
			failed = append(failed, "sms: "+sms.Error)
		}
	}

	if len(failed) > 0 {
		return results, errors.NewDependencyError(errors.ErrCodeNotificationSendFailed, "notifications",
			fmt.Errorf("%w: %s", ErrNotificationSendFailed, strings.Join(failed, "; ")))
	}
	return results, nil
}

func (n *Notifier) attempt(channel Channel, msg Message, enabled bool, send func() (string, error)) models.Notification {
	out := models.Notification{
		RecipientID:   msg.Recipient.ID,
		RecipientType: msg.Recipient.Type,
		Event:         msg.Event,
		Channel:       string(channel),
		Status:        StatusDisabled,
	}
	if !enabled {
		metrics.NotificationsSent.WithLabelValues(string(channel), StatusDisabled).Inc()
		return out
	}

	id, err := send()
	if err != nil {
		n.log.Error("notification send failed", map[string]interface{}{
			"channel":     string(channel),
			"event":       string(msg.Event),
			"recipientId": msg.Recipient.ID,
			"error":       err.Error(),
		})
		out.Status = StatusFailed
		out.Error = err.Error()
	} else {
		out.Status = StatusSent
		out.MessageID = id
	}
	metrics.NotificationsSent.WithLabelValues(string(channel), out.Status).Inc()
	return out
}

func (n *Notifier) sendEmail(ctx context.Context, to, subject, body string) (string, error) {
	out, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.config.FromEmail),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}

func (n *Notifier) sendSMS(ctx context.Context, to, message string) (string, error) {
	in := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	}
	if n.config.SMSSenderID != "" {
		in.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {DataType: aws.String("String"), StringValue: aws.String(n.config.SMSSenderID)},
		}
	}
	out, err := n.sns.Publish(ctx, in)
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}
