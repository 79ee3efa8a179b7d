package redis

import (
	"time"

	"github.com/edgeee/activityfeed/feed"
)

// A comment represents a cached comment. CreatedAt is stored as unix nanoseconds.
type comment struct {
	ID         string `redis:"id"`
	ActivityID string `redis:"activity_id"`
	UserID     string `redis:"user_id"`
	Content    string `redis:"content"`
	CreatedAt  int64  `redis:"created_at"`
}

// reaction represents a cached reaction.
type reaction struct {
	ID         string `redis:"id"`
	ActivityID string `redis:"activity_id"`
	UserID     string `redis:"user_id"`
	Type       string `redis:"type"`
}

func newComment(c feed.Comment) *comment {
	out := &comment{
		ID:         c.ID,
		ActivityID: c.ActivityID,
		UserID:     c.UserID,
		Content:    c.Content,
	}
	if !c.CreatedAt.IsZero() {
		out.CreatedAt = c.CreatedAt.UnixNano()
	}
	return out
}

func (c comment) FeedComment() feed.Comment {
	out := feed.Comment{
		ID:         c.ID,
		ActivityID: c.ActivityID,
		UserID:     c.UserID,
		Content:    c.Content,
	}
	if c.CreatedAt != 0 {
		out.CreatedAt = time.Unix(0, c.CreatedAt).UTC()
	}
	return out
}

func newReaction(r feed.Reaction) *reaction {
	return &reaction{
		ID:         r.ID,
		ActivityID: r.ActivityID,
		UserID:     r.UserID,
		Type:       string(r.Type),
	}
}

func (r reaction) FeedReaction() feed.Reaction {
	return feed.Reaction{
		ID:         r.ID,
		ActivityID: r.ActivityID,
		UserID:     r.UserID,
		Type:       feed.ReactionType(r.Type),
	}
}
