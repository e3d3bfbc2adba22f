package domain

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
)

// BroadcastType is the discriminator of a real-time message.
type BroadcastType string

const (
	BroadcastWelcome    BroadcastType = "welcome"
	BroadcastNewComment BroadcastType = "new_comment"
)

// BroadcastEvent is a message carried on the comments channel. The set of
// implementations is closed: WelcomeEvent and NewCommentEvent.
type BroadcastEvent interface {
	Type() BroadcastType
	sealed()
}

// WelcomeEvent is the first frame a connection receives.
type WelcomeEvent struct {
	Message string
}

// NewCommentEvent announces a persisted comment. The same shape is used by
// clients to echo their own comment after a REST write.
type NewCommentEvent struct {
	Comment CommentSnapshot
}

func (WelcomeEvent) Type() BroadcastType { return BroadcastWelcome }
func (WelcomeEvent) sealed()             {}

func (NewCommentEvent) Type() BroadcastType { return BroadcastNewComment }
func (NewCommentEvent) sealed()             {}

type welcomeFrame struct {
	Type    BroadcastType `json:"type"`
	Message string        `json:"message"`
}

type newCommentFrame struct {
	Type    BroadcastType   `json:"type"`
	Comment CommentSnapshot `json:"comment"`
}

type inboundFrame struct {
	Type    BroadcastType   `json:"type"`
	Message *string         `json:"message"`
	Comment json.RawMessage `json:"comment"`
}

// EncodeBroadcast serializes an event into its wire form.
func EncodeBroadcast(event BroadcastEvent) ([]byte, error) {
	switch e := event.(type) {
	case WelcomeEvent:
		return json.Marshal(welcomeFrame{Type: BroadcastWelcome, Message: e.Message})
	case NewCommentEvent:
		if err := e.Comment.Validate(); err != nil {
			return nil, err
		}
		return json.Marshal(newCommentFrame{Type: BroadcastNewComment, Comment: e.Comment})
	default:
		return nil, fmt.Errorf("%w: %T", apperrors.ErrUnknownBroadcastType, event)
	}
}

// DecodeBroadcast parses and validates a wire message. Unknown types,
// malformed JSON and comments without full context are rejected.
func DecodeBroadcast(data []byte) (BroadcastEvent, error) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedBroadcast, err)
	}

	switch frame.Type {
	case BroadcastWelcome:
		if frame.Message == nil {
			return nil, fmt.Errorf("%w: welcome without message", apperrors.ErrMalformedBroadcast)
		}
		return WelcomeEvent{Message: *frame.Message}, nil

	case BroadcastNewComment:
		if len(frame.Comment) == 0 || string(frame.Comment) == "null" {
			return nil, fmt.Errorf("%w: new_comment without comment", apperrors.ErrMalformedBroadcast)
		}
		var snap CommentSnapshot
		if err := json.Unmarshal(frame.Comment, &snap); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedBroadcast, err)
		}
		if err := snap.Validate(); err != nil {
			return nil, err
		}
		return NewCommentEvent{Comment: snap}, nil

	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownBroadcastType, frame.Type)
	}
}
