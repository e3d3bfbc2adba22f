package domain

// Event bus topics.
const (
	// TopicCommentCreated carries the new comment's id (int64).
	TopicCommentCreated = "comment:created"
)
