// Package gateway implements feed.Gateway over the activity GraphQL API.
package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/machinebox/graphql"

	"github.com/edgeee/activityfeed/feed"
)

// Client talks to the GraphQL endpoint.
type Client struct {
	gql *graphql.Client
}

// An Option configures a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.httpClient = &http.Client{Timeout: d} }
}

// WithLogger routes the request log of the GraphQL client to logger at
// debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New returns a client for the GraphQL endpoint at url.
func New(url string, opts ...Option) *Client {
	o := options{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	gql := graphql.NewClient(url, graphql.WithHTTPClient(o.httpClient))
	gql.Log = func(s string) {
		o.logger.Debug("GraphQL", "message", s)
	}
	return &Client{gql: gql}
}

func (c *Client) run(ctx context.Context, op string, q string, vars map[string]any, resp any) error {
	req := graphql.NewRequest(q)
	for k, v := range vars {
		req.Var(k, v)
	}
	if err := c.gql.Run(ctx, req, resp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Activities lists every activity.
func (c *Client) Activities(ctx context.Context) ([]feed.Activity, error) {
	var resp struct {
		Activities []activity `json:"activities"`
	}
	if err := c.run(ctx, "activities", queryActivities, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]feed.Activity, len(resp.Activities))
	for i, a := range resp.Activities {
		out[i] = a.toFeed()
	}
	return out, nil
}

// Activity fetches one activity. A null result is feed.ErrNotFound.
func (c *Client) Activity(ctx context.Context, activityID string) (feed.Activity, error) {
	var resp struct {
		Activity *activity `json:"activity"`
	}
	vars := map[string]any{"activityId": activityID}
	if err := c.run(ctx, "activity", queryActivity, vars, &resp); err != nil {
		return feed.Activity{}, err
	}
	if resp.Activity == nil {
		return feed.Activity{}, fmt.Errorf("activity %s: %w", activityID, feed.ErrNotFound)
	}
	return resp.Activity.toFeed(), nil
}

// CommentsByActivity fetches the comment page of an activity.
func (c *Client) CommentsByActivity(ctx context.Context, activityID string) (feed.CommentPage, error) {
	var resp struct {
		Page struct {
			Comments      []comment `json:"comments"`
			TotalComments *int      `json:"totalComments"`
		} `json:"commentsByActivity"`
	}
	vars := map[string]any{"activityId": activityID}
	if err := c.run(ctx, "commentsByActivity", queryComments, vars, &resp); err != nil {
		return feed.CommentPage{}, err
	}

	page := feed.CommentPage{Comments: make([]feed.Comment, len(resp.Page.Comments))}
	for i, cm := range resp.Page.Comments {
		page.Comments[i] = cm.toFeed()
	}
	page.TotalComments = len(page.Comments)
	if resp.Page.TotalComments != nil {
		page.TotalComments = *resp.Page.TotalComments
	}
	return page, nil
}

// ReactionsByActivity fetches the reaction page of an activity.
func (c *Client) ReactionsByActivity(ctx context.Context, activityID string) (feed.ReactionPage, error) {
	var resp struct {
		Page struct {
			Reactions      []reaction `json:"reactions"`
			TotalReactions *int       `json:"totalReactions"`
		} `json:"reactionsByActivity"`
	}
	vars := map[string]any{"activityId": activityID}
	if err := c.run(ctx, "reactionsByActivity", queryReactions, vars, &resp); err != nil {
		return feed.ReactionPage{}, err
	}

	page := feed.ReactionPage{Reactions: make([]feed.Reaction, len(resp.Page.Reactions))}
	for i, r := range resp.Page.Reactions {
		page.Reactions[i] = r.toFeed()
	}
	page.TotalReactions = len(page.Reactions)
	if resp.Page.TotalReactions != nil {
		page.TotalReactions = *resp.Page.TotalReactions
	}
	return page, nil
}

// ShareCount fetches how often an activity was shared.
func (c *Client) ShareCount(ctx context.Context, activityID string) (int, error) {
	var resp struct {
		ShareCount *int `json:"shareCount"`
	}
	vars := map[string]any{"activityId": activityID}
	if err := c.run(ctx, "shareCount", queryShareCount, vars, &resp); err != nil {
		return 0, err
	}
	if resp.ShareCount == nil {
		return 0, nil
	}
	return *resp.ShareCount, nil
}

// CreateActivity creates an activity.
func (c *Client) CreateActivity(ctx context.Context, in feed.NewActivity) (feed.Activity, error) {
	var resp struct {
		Activity activity `json:"createActivity"`
	}
	vars := map[string]any{
		"title":       in.Title,
		"description": in.Description,
		"userId":      in.UserID,
		"imgUrls":     nonNil(in.ImgURLs),
		"files":       nonNil(in.Files),
	}
	if err := c.run(ctx, "createActivity", mutationCreateActivity, vars, &resp); err != nil {
		return feed.Activity{}, err
	}
	return resp.Activity.toFeed(), nil
}

// UpdateActivity changes the title and description and returns the id.
func (c *Client) UpdateActivity(ctx context.Context, in feed.ActivityEdit) (string, error) {
	var resp struct {
		Activity *struct {
			ID string `json:"_id"`
		} `json:"updateActivity"`
	}
	vars := map[string]any{
		"activityId":  in.ID,
		"title":       in.Title,
		"description": in.Description,
	}
	if err := c.run(ctx, "updateActivity", mutationUpdateActivity, vars, &resp); err != nil {
		return "", err
	}
	if resp.Activity == nil {
		return "", fmt.Errorf("updateActivity %s: %w", in.ID, feed.ErrNotFound)
	}
	return resp.Activity.ID, nil
}

// DeleteActivity deletes an activity and returns its id.
func (c *Client) DeleteActivity(ctx context.Context, activityID string) (string, error) {
	var resp struct {
		Activity *struct {
			ID string `json:"_id"`
		} `json:"deleteActivity"`
	}
	vars := map[string]any{"activityId": activityID}
	if err := c.run(ctx, "deleteActivity", mutationDeleteActivity, vars, &resp); err != nil {
		return "", err
	}
	if resp.Activity == nil {
		return "", fmt.Errorf("deleteActivity %s: %w", activityID, feed.ErrNotFound)
	}
	return resp.Activity.ID, nil
}

// CreateComment posts a comment.
func (c *Client) CreateComment(ctx context.Context, in feed.NewComment) (feed.Comment, error) {
	var resp struct {
		Comment comment `json:"createComment"`
	}
	vars := map[string]any{
		"content":    in.Content,
		"userId":     in.UserID,
		"activityId": in.ActivityID,
	}
	if err := c.run(ctx, "createComment", mutationCreateComment, vars, &resp); err != nil {
		return feed.Comment{}, err
	}
	return resp.Comment.toFeed(), nil
}

// CreateReaction adds a reaction.
func (c *Client) CreateReaction(ctx context.Context, in feed.NewReaction) (feed.Reaction, error) {
	var resp struct {
		Reaction reaction `json:"createReaction"`
	}
	vars := map[string]any{
		"userId":     in.UserID,
		"activityId": in.ActivityID,
		"type":       string(in.Type),
	}
	if err := c.run(ctx, "createReaction", mutationCreateReaction, vars, &resp); err != nil {
		return feed.Reaction{}, err
	}
	return resp.Reaction.toFeed(), nil
}

// DeleteReaction removes a reaction. The API answers with a boolean or the
// deleted id; false or null is feed.ErrNotDeleted.
func (c *Client) DeleteReaction(ctx context.Context, reactionID string) error {
	var resp struct {
		Deleted deleted `json:"deleteReaction"`
	}
	vars := map[string]any{"reactionId": reactionID}
	if err := c.run(ctx, "deleteReaction", mutationDeleteReaction, vars, &resp); err != nil {
		return err
	}
	if !resp.Deleted {
		return fmt.Errorf("deleteReaction %s: %w", reactionID, feed.ErrNotDeleted)
	}
	return nil
}

// UpdateShareCount records a share and returns the new count.
func (c *Client) UpdateShareCount(ctx context.Context, activityID string) (int, error) {
	var resp struct {
		Activity *struct {
			ID         string `json:"_id"`
			ShareCount int    `json:"shareCount"`
		} `json:"updateShareCount"`
	}
	vars := map[string]any{"activityId": activityID}
	if err := c.run(ctx, "updateShareCount", mutationUpdateShareCount, vars, &resp); err != nil {
		return 0, err
	}
	if resp.Activity == nil {
		return 0, fmt.Errorf("updateShareCount %s: %w", activityID, feed.ErrNotFound)
	}
	return resp.Activity.ShareCount, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
