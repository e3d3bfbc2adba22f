package email

import (
	"context"
	"log/slog"

	"github.com/lorrc/avisos-backend/internal/core/ports"
)

// MockSMTPNotifier is a secondary adapter that logs emails instead of
// sending them. It implements the ports.Notifier interface.
type MockSMTPNotifier struct {
	userRepo ports.UserRepository
	logger   *slog.Logger
}

// NewMockSMTPNotifier creates a new mock notifier. It requires a
// UserRepository to fetch recipient details.
func NewMockSMTPNotifier(userRepo ports.UserRepository, logger *slog.Logger) ports.Notifier {
	return &MockSMTPNotifier{
		userRepo: userRepo,
		logger:   logger.With("component", "email_notifier"),
	}
}

// Notify logs the notification. Callers run it off the request goroutine
// with a context that outlives the request.
func (n *MockSMTPNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	user, err := n.userRepo.GetByID(ctx, params.RecipientUserID)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to get user for notification",
			"user_id", params.RecipientUserID,
			"error", err,
		)
		return
	}

	n.logger.InfoContext(ctx, "mock email sent",
		"to_name", user.Name,
		"to_email", user.Email,
		"subject", params.Subject,
		"announcement_id", params.AnnouncementID,
	)
}
