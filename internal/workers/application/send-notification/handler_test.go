// internal/workers/application/send-notification/handler_test.go
package sendnotification

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/models"
	"financing-workers/internal/notify"
	"financing-workers/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

func okSES(sent *[]*ses.SendEmailInput) *MockSESService {
	return &MockSESService{
		SendEmailFunc: func(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			*sent = append(*sent, params)
			return &ses.SendEmailOutput{MessageId: aws.String("email-1")}, nil
		},
	}
}

func okSNS(sent *[]*sns.PublishInput) *MockSNSService {
	return &MockSNSService{
		PublishFunc: func(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			*sent = append(*sent, params)
			return &sns.PublishOutput{MessageId: aws.String("sms-1")}, nil
		},
	}
}

func newTestStore(t *testing.T) store.Store {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return store.NewRedisStore(client, "test", time.Second, logger.NewNoOpLogger())
}

func newTestHandler(t *testing.T, s store.Store, sesClient notify.SESService, snsClient notify.SNSService) *Handler {
	log := logger.NewTestLogger(t)
	n := notify.NewNotifier(notify.Config{
		EmailEnabled: true,
		SMSEnabled:   true,
		FromEmail:    "noreply@financing.test",
	}, sesClient, snsClient, log)
	h := NewHandler(LoadConfig(), n, s, log)
	h.now = func() time.Time { return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) }
	return h
}

func seed(t *testing.T, s store.Store, collection, key string, v interface{}) {
	_, err := s.Set(context.Background(), collection, key, v, 0)
	require.NoError(t, err)
}

func TestHandler_Execute_BusinessRecipient(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, models.CollectionApplications, "app-001", models.Application{
		ID:           "app-001",
		BusinessID:   "biz-001",
		BusinessName: "Kano Agro Ltd",
		ContactEmail: "ops@kanoagro.test",
		ContactPhone: "+2348000000001",
	})

	var emails []*ses.SendEmailInput
	var texts []*sns.PublishInput
	h := newTestHandler(t, s, okSES(&emails), okSNS(&texts))

	output, err := h.Execute(context.Background(), &Input{
		RecipientType: "business",
		ApplicationID: "app-001",
		Event:         "application_approved",
		Data:          map[string]interface{}{"amount": "₦2,000,000"},
	})
	require.NoError(t, err)

	assert.Equal(t, "sent", output.Status)
	assert.Equal(t, "2026-03-04T10:00:00Z", output.SentAt)
	assert.NotEmpty(t, output.NotificationID)
	require.Len(t, output.Deliveries, 2)
	assert.Equal(t, "biz-001", output.Deliveries[0].RecipientID)

	require.Len(t, emails, 1)
	assert.Equal(t, []string{"ops@kanoagro.test"}, emails[0].Destination.ToAddresses)
	assert.Equal(t,
		"Hello Kano Agro Ltd, your application app-001 for ₦2,000,000 has been approved.",
		aws.ToString(emails[0].Message.Body.Text.Data))
	require.Len(t, texts, 1)
	assert.Equal(t, "+2348000000001", aws.ToString(texts[0].PhoneNumber))
}

func TestHandler_Execute_InvestorAndAdmin(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, models.CollectionInvestors, "inv-001", models.Investor{ID: "inv-001", Name: "Tunde", Email: "tunde@example.test"})
	seed(t, s, models.CollectionAdminProfiles, "adm-001", models.AdminProfile{ID: "adm-001", Name: "Ngozi", Email: "ngozi@example.test"})

	var emails []*ses.SendEmailInput
	var texts []*sns.PublishInput
	h := newTestHandler(t, s, okSES(&emails), okSNS(&texts))

	output, err := h.Execute(context.Background(), &Input{
		RecipientID:   "inv-001",
		RecipientType: "investor",
		Event:         "investment_confirmed",
	})
	require.NoError(t, err)
	assert.Equal(t, "sent", output.Status)
	require.Len(t, output.Deliveries, 2)
	// no phone on file
	assert.Equal(t, notify.StatusDisabled, output.Deliveries[1].Status)

	output, err = h.Execute(context.Background(), &Input{
		RecipientID:   "adm-001",
		RecipientType: "admin",
		Event:         "reviewer_assigned",
		ApplicationID: "app-001",
	})
	require.NoError(t, err)
	assert.Equal(t, "sent", output.Status)

	require.Len(t, emails, 2)
	assert.Equal(t, []string{"ngozi@example.test"}, emails[1].Destination.ToAddresses)
	assert.Empty(t, texts)
}

func TestHandler_Execute_RecipientNotFound(t *testing.T) {
	sesClient := &MockSESService{
		SendEmailFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			t.Fatal("no email expected")
			return nil, nil
		},
	}
	h := newTestHandler(t, newTestStore(t), sesClient, nil)

	output, err := h.Execute(context.Background(), &Input{
		RecipientID:   "inv-404",
		RecipientType: "investor",
		Event:         "investment_confirmed",
	})
	require.NoError(t, err)
	assert.Equal(t, "disabled", output.Status)
	assert.Empty(t, output.Deliveries)
}

func TestHandler_Execute_EmailFailure(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, models.CollectionInvestors, "inv-001", models.Investor{ID: "inv-001", Name: "Tunde", Email: "tunde@example.test"})

	sesClient := &MockSESService{
		SendEmailFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	h := newTestHandler(t, s, sesClient, nil)

	output, err := h.Execute(context.Background(), &Input{
		RecipientID:   "inv-001",
		RecipientType: "investor",
		Event:         "profit_distributed",
	})
	assert.Nil(t, output)
	require.Error(t, err)
	assert.True(t, errors.Is(err, notify.ErrNotificationSendFailed))
	assert.Equal(t, apperrors.KindDependency, apperrors.KindOf(err))
}

func TestHandler_Execute_UnknownEvent(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, models.CollectionInvestors, "inv-001", models.Investor{ID: "inv-001", Name: "Tunde"})
	h := newTestHandler(t, s, nil, nil)

	_, err := h.Execute(context.Background(), &Input{
		RecipientID:   "inv-001",
		RecipientType: "investor",
		Event:         "welcome_aboard",
	})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name       string
		deliveries []models.Notification
		want       string
	}{
		{"none", nil, "disabled"},
		{"all disabled", []models.Notification{{Status: "disabled"}, {Status: "disabled"}}, "disabled"},
		{"one sent", []models.Notification{{Status: "disabled"}, {Status: "sent"}}, "sent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, overallStatus(tt.deliveries))
		})
	}
}
