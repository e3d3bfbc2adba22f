package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/lorrc/avisos-backend/internal/core/domain"
	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() domain.CommentSnapshot {
	return domain.CommentSnapshot{
		ID:             11,
		AnnouncementID: 2,
		Body:           "see you there",
		CreatedAt:      "2024-03-05T10:00:00Z",
		Author:         &domain.UserInfo{ID: 3, Name: "Ana", Email: "ana@example.com"},
	}
}

func TestEncodeBroadcast_WireShape(t *testing.T) {
	data, err := domain.EncodeBroadcast(domain.WelcomeEvent{Message: "Connected to comments stream"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"welcome","message":"Connected to comments stream"}`, string(data))

	data, err = domain.EncodeBroadcast(domain.NewCommentEvent{Comment: sampleSnapshot()})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "new_comment",
		"comment": {
			"id": 11,
			"announcement_id": 2,
			"body": "see you there",
			"created_at": "2024-03-05T10:00:00Z",
			"author": {"id": 3, "name": "Ana", "email": "ana@example.com"}
		}
	}`, string(data))
}

func TestEncodeBroadcast_RejectsIncompleteComment(t *testing.T) {
	snap := sampleSnapshot()
	snap.Author = nil

	_, err := domain.EncodeBroadcast(domain.NewCommentEvent{Comment: snap})
	assert.ErrorIs(t, err, apperrors.ErrCommentContextMissing)
}

func TestDecodeBroadcast(t *testing.T) {
	t.Run("welcome", func(t *testing.T) {
		ev, err := domain.DecodeBroadcast([]byte(`{"type":"welcome","message":"hi"}`))
		require.NoError(t, err)
		assert.Equal(t, domain.WelcomeEvent{Message: "hi"}, ev)
	})

	t.Run("new comment", func(t *testing.T) {
		data, err := domain.EncodeBroadcast(domain.NewCommentEvent{Comment: sampleSnapshot()})
		require.NoError(t, err)

		ev, err := domain.DecodeBroadcast(data)
		require.NoError(t, err)
		nc, ok := ev.(domain.NewCommentEvent)
		require.True(t, ok)
		assert.Equal(t, sampleSnapshot(), nc.Comment)
	})

	rejected := []struct {
		name    string
		payload string
		wantErr error
	}{
		{"not json", `{"type":`, apperrors.ErrMalformedBroadcast},
		{"array", `[1,2]`, apperrors.ErrMalformedBroadcast},
		{"unknown type", `{"type":"typing"}`, apperrors.ErrUnknownBroadcastType},
		{"missing type", `{"message":"x"}`, apperrors.ErrUnknownBroadcastType},
		{"welcome without message", `{"type":"welcome"}`, apperrors.ErrMalformedBroadcast},
		{"comment missing", `{"type":"new_comment"}`, apperrors.ErrMalformedBroadcast},
		{"comment null", `{"type":"new_comment","comment":null}`, apperrors.ErrMalformedBroadcast},
		{"comment wrong shape", `{"type":"new_comment","comment":"text"}`, apperrors.ErrMalformedBroadcast},
		{"comment without author", `{"type":"new_comment","comment":{"id":1,"announcement_id":2,"body":"x","created_at":"2024-03-05T10:00:00Z"}}`, apperrors.ErrCommentContextMissing},
		{"comment without announcement", `{"type":"new_comment","comment":{"id":1,"body":"x","created_at":"2024-03-05T10:00:00Z","author":{"id":1,"name":"A","email":"a@x.io"}}}`, apperrors.ErrCommentContextMissing},
	}

	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := domain.DecodeBroadcast([]byte(tt.payload))
			assert.Nil(t, ev)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeBroadcast_AcceptsClientEcho(t *testing.T) {
	snap := sampleSnapshot()
	raw, err := json.Marshal(map[string]any{"type": "new_comment", "comment": snap})
	require.NoError(t, err)

	ev, err := domain.DecodeBroadcast(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.BroadcastNewComment, ev.Type())
}
