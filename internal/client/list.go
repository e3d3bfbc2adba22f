package client

import (
	"cmp"
	"slices"
	"sync"
)

// CommentList is an announcement's comments, newest first, with at most one
// entry per comment id.
type CommentList struct {
	mu    sync.RWMutex
	items []Comment
	ids   map[int64]struct{}
}

// NewCommentList creates an empty list.
func NewCommentList() *CommentList {
	return &CommentList{ids: make(map[int64]struct{})}
}

// Prepend puts c at the head of the list. It reports false and leaves the
// list untouched when a comment with the same id is already present.
func (l *CommentList) Prepend(c Comment) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.ids[c.ID]; ok {
		return false
	}
	l.ids[c.ID] = struct{}{}
	l.items = slices.Insert(l.items, 0, c)
	return true
}

// Merge adds the comments that are not present yet and restores newest
// first order. Ids are assigned in creation order.
func (l *CommentList) Merge(comments []Comment) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, c := range comments {
		if _, ok := l.ids[c.ID]; ok {
			continue
		}
		l.ids[c.ID] = struct{}{}
		l.items = append(l.items, c)
	}
	slices.SortStableFunc(l.items, func(a, b Comment) int {
		return cmp.Compare(b.ID, a.ID)
	})
}

// Snapshot returns a copy of the list.
func (l *CommentList) Snapshot() []Comment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}
