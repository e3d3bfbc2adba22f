package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lorrc/avisos-backend/internal/core/domain"
	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
	"github.com/lorrc/avisos-backend/internal/core/ports"
)

// CommentBroadcaster turns comment:created events into new_comment pushes.
// It re-reads the comment so the push reflects state at send time.
type CommentBroadcaster struct {
	comments ports.CommentRepository
	gateway  ports.EventBroadcaster
	logger   *slog.Logger
	tasks    *backgroundTasks
	sub      ports.Subscription
}

// NewCommentBroadcaster creates a broadcaster. timeout bounds each re-fetch
// and send.
func NewCommentBroadcaster(
	comments ports.CommentRepository,
	gateway ports.EventBroadcaster,
	logger *slog.Logger,
	timeout time.Duration,
) *CommentBroadcaster {
	return &CommentBroadcaster{
		comments: comments,
		gateway:  gateway,
		logger:   logger.With("component", "comment_broadcaster"),
		tasks:    newBackgroundTasks(timeout),
	}
}

// Subscribe registers the broadcaster on the bus.
func (b *CommentBroadcaster) Subscribe(bus ports.EventBus) {
	b.sub = bus.Subscribe(domain.TopicCommentCreated, b.HandleCommentCreated)
}

// HandleCommentCreated is the bus listener. It returns immediately; the
// lookup and fan-out happen on a background goroutine.
func (b *CommentBroadcaster) HandleCommentCreated(ctx context.Context, payload any) error {
	commentID, ok := payload.(int64)
	if !ok || commentID <= 0 {
		return fmt.Errorf("comment broadcaster: unexpected payload %T(%v)", payload, payload)
	}

	if !b.tasks.Go(ctx, func(ctx context.Context) { b.broadcast(ctx, commentID) }) {
		b.logger.WarnContext(ctx, "broadcaster stopped, dropping event", "comment_id", commentID)
	}
	return nil
}

func (b *CommentBroadcaster) broadcast(ctx context.Context, commentID int64) {
	comment, err := b.comments.GetWithContext(ctx, commentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrCommentNotFound) {
			b.logger.WarnContext(ctx, "comment vanished before broadcast", "comment_id", commentID)
			return
		}
		b.logger.ErrorContext(ctx, "failed to load comment for broadcast",
			"comment_id", commentID,
			"error", err,
		)
		return
	}

	snapshot, err := domain.NewCommentSnapshot(comment)
	if err != nil {
		b.logger.ErrorContext(ctx, "comment missing context, not broadcasting",
			"comment_id", commentID,
			"error", err,
		)
		return
	}

	if err := b.gateway.Broadcast(domain.NewCommentEvent{Comment: snapshot}); err != nil {
		b.logger.ErrorContext(ctx, "failed to broadcast comment",
			"comment_id", commentID,
			"error", err,
		)
		return
	}

	b.logger.DebugContext(ctx, "comment broadcast",
		"comment_id", commentID,
		"announcement_id", comment.AnnouncementID,
	)
}

// Shutdown unsubscribes and waits for in-flight broadcasts.
func (b *CommentBroadcaster) Shutdown(ctx context.Context) error {
	if b.sub != nil {
		b.sub.Unsubscribe()
	}
	return b.tasks.Shutdown(ctx)
}
