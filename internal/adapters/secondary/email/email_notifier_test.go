package email_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/lorrc/avisos-backend/internal/adapters/secondary/email"
	"github.com/lorrc/avisos-backend/internal/core/domain"
	"github.com/lorrc/avisos-backend/internal/core/mocks"
	"github.com/lorrc/avisos-backend/internal/core/ports"
	"github.com/stretchr/testify/assert"
)

func TestMockSMTPNotifier_LogsEmail(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	users := mocks.NewMockUserRepository()
	users.On("GetByID", context.Background(), int64(1)).
		Return(&domain.User{ID: 1, Name: "Owner", Email: "owner@example.com"}, nil)

	n := email.NewMockSMTPNotifier(users, logger)
	n.Notify(context.Background(), ports.NotificationParams{
		RecipientUserID: 1,
		Subject:         "New comment",
		AnnouncementID:  42,
	})

	assert.Contains(t, buf.String(), `"to_email":"owner@example.com"`)
	assert.Contains(t, buf.String(), `"announcement_id":42`)
}

func TestMockSMTPNotifier_UnknownRecipient(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	users := mocks.NewMockUserRepository()
	users.On("GetByID", context.Background(), int64(9)).Return(nil, errors.New("not found"))

	email.NewMockSMTPNotifier(users, logger).Notify(context.Background(), ports.NotificationParams{RecipientUserID: 9})

	assert.Contains(t, buf.String(), "failed to get user for notification")
	assert.NotContains(t, buf.String(), "mock email sent")
}
