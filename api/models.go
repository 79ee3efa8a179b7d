package api

import (
	"context"

	"github.com/edgeee/activityfeed/feed"
)

// A Feed holds the activity cards the API exposes.
type Feed interface {
	Activities(ctx context.Context) ([]feed.Activity, error)
	CreateActivity(ctx context.Context, in feed.NewActivity, files []feed.Attachment) (feed.Activity, error)
	UpdateActivity(ctx context.Context, in feed.ActivityEdit) error
	DeleteActivity(ctx context.Context, activityID string) error

	View(ctx context.Context, viewerID, activityID string) feed.CardView
	Panel(ctx context.Context, viewerID, activityID string, p feed.Panel, action feed.PanelAction) (feed.CardView, error)
	SubmitComment(ctx context.Context, viewerID, activityID, content string) (feed.Comment, error)
	SubmitReaction(ctx context.Context, viewerID, activityID string, t feed.ReactionType) (feed.ReactionOutcome, error)
	Share(ctx context.Context, viewerID, activityID string) (feed.ShareResult, error)
}

// An activityRequest is the body of POST /activities.
type activityRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	ImgURLs     []string `json:"img_urls"`
	Files       []string `json:"files"`
}

// An activityEditRequest is the body of PATCH /activities/{activityID}.
type activityEditRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

type commentRequest struct {
	Content string `json:"content" validate:"required"`
}

type reactionRequest struct {
	Type string `json:"type" validate:"required"`
}

type reactionResponse struct {
	Outcome feed.ReactionOutcome `json:"outcome"`
	Card    feed.CardView        `json:"card"`
}
