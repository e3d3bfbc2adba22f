package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lorrc/avisos-backend/internal/core/domain"
	"github.com/lorrc/avisos-backend/internal/core/ports"
)

// CommentNotifier emails the announcement's creator when someone else
// comments on it.
type CommentNotifier struct {
	comments ports.CommentRepository
	notifier ports.Notifier
	logger   *slog.Logger
	tasks    *backgroundTasks
	sub      ports.Subscription
}

// NewCommentNotifier creates a notifier listener.
func NewCommentNotifier(
	comments ports.CommentRepository,
	notifier ports.Notifier,
	logger *slog.Logger,
	timeout time.Duration,
) *CommentNotifier {
	return &CommentNotifier{
		comments: comments,
		notifier: notifier,
		logger:   logger.With("component", "comment_notifier"),
		tasks:    newBackgroundTasks(timeout),
	}
}

// Subscribe registers the notifier on the bus.
func (n *CommentNotifier) Subscribe(bus ports.EventBus) {
	n.sub = bus.Subscribe(domain.TopicCommentCreated, n.HandleCommentCreated)
}

// HandleCommentCreated is the bus listener.
func (n *CommentNotifier) HandleCommentCreated(ctx context.Context, payload any) error {
	commentID, ok := payload.(int64)
	if !ok || commentID <= 0 {
		return fmt.Errorf("comment notifier: unexpected payload %T(%v)", payload, payload)
	}

	n.tasks.Go(ctx, func(ctx context.Context) { n.notify(ctx, commentID) })
	return nil
}

func (n *CommentNotifier) notify(ctx context.Context, commentID int64) {
	comment, err := n.comments.GetWithContext(ctx, commentID)
	if err != nil {
		n.logger.WarnContext(ctx, "skipping notification", "comment_id", commentID, "error", err)
		return
	}
	if !comment.HasContext() {
		return
	}

	announcement := comment.Announcement
	if announcement.CreatedBy == comment.AuthorID {
		return
	}

	n.notifier.Notify(ctx, ports.NotificationParams{
		RecipientUserID: announcement.CreatedBy,
		Subject:         fmt.Sprintf("New comment on %q", announcement.Title),
		Message:         fmt.Sprintf("%s commented: %s", comment.Author.Name, comment.Body),
		AnnouncementID:  announcement.ID,
	})
}

// Shutdown unsubscribes and waits for pending notifications.
func (n *CommentNotifier) Shutdown(ctx context.Context) error {
	if n.sub != nil {
		n.sub.Unsubscribe()
	}
	return n.tasks.Shutdown(ctx)
}
