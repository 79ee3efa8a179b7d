package feed

import (
	"context"
	"io"
)

// A Gateway is the remote data service that owns activities, comments,
// reactions and share counts. The feed only ever consumes it.
type Gateway interface {
	Activities(ctx context.Context) ([]Activity, error)
	Activity(ctx context.Context, activityID string) (Activity, error)
	CommentsByActivity(ctx context.Context, activityID string) (CommentPage, error)
	ReactionsByActivity(ctx context.Context, activityID string) (ReactionPage, error)
	ShareCount(ctx context.Context, activityID string) (int, error)

	CreateActivity(ctx context.Context, in NewActivity) (Activity, error)
	UpdateActivity(ctx context.Context, in ActivityEdit) (string, error)
	DeleteActivity(ctx context.Context, activityID string) (string, error)
	CreateComment(ctx context.Context, in NewComment) (Comment, error)
	CreateReaction(ctx context.Context, in NewReaction) (Reaction, error)
	DeleteReaction(ctx context.Context, reactionID string) error
	// UpdateShareCount records one share and returns the new share count.
	UpdateShareCount(ctx context.Context, activityID string) (int, error)
}

// A Cache keeps the last fetched comment and reaction pages per activity.
// The bool result reports whether the page was cached.
type Cache interface {
	Comments(ctx context.Context, activityID string) (CommentPage, bool, error)
	SetComments(ctx context.Context, activityID string, page CommentPage) error
	Reactions(ctx context.Context, activityID string) (ReactionPage, bool, error)
	SetReactions(ctx context.Context, activityID string, page ReactionPage) error
	Invalidate(ctx context.Context, activityID string) error
}

// A Shortener turns a long URL into a short one.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}

// A Clipboard receives copied text.
type Clipboard interface {
	Copy(ctx context.Context, text string) error
}

// An Attachment is a file uploaded alongside a new activity.
type Attachment struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// An Uploader stores attachments and returns their paths, in order.
type Uploader interface {
	Upload(ctx context.Context, files []Attachment) ([]string, error)
}

// NopCache caches nothing.
type NopCache struct{}

func (NopCache) Comments(context.Context, string) (CommentPage, bool, error) {
	return CommentPage{}, false, nil
}

func (NopCache) SetComments(context.Context, string, CommentPage) error { return nil }

func (NopCache) Reactions(context.Context, string) (ReactionPage, bool, error) {
	return ReactionPage{}, false, nil
}

func (NopCache) SetReactions(context.Context, string, ReactionPage) error { return nil }

func (NopCache) Invalidate(context.Context, string) error { return nil }
