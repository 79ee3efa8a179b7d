// Package feed holds the client-side state of an activity feed: one Card
// per viewer and activity, kept in step with a remote Gateway.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/edgeee/activityfeed/feed/validator"
)

// Defaults applied by Feed to unset fields.
const (
	DefaultSharePath         = "/activities"
	DefaultNoticeTTL         = 5 * time.Second
	DefaultBackgroundTimeout = 10 * time.Second
)

// Feed is the process-wide data-access service. It owns the open cards and
// the collaborators they share.
type Feed struct {
	Logger    *slog.Logger
	Gateway   Gateway
	Cache     Cache
	Shortener Shortener
	Clipboard Clipboard
	Uploader  Uploader
	Val       *validator.Validator

	// ShareOrigin and SharePath prefix the activity id in share links.
	ShareOrigin       string
	SharePath         string
	NoticeTTL         time.Duration
	BackgroundTimeout time.Duration
	Now               func() time.Time

	once  sync.Once
	mu    sync.Mutex
	cards map[cardKey]*Card
}

type cardKey struct {
	viewerID   string
	activityID string
}

// NewValidator returns a validator that knows the `reaction` tag.
func NewValidator() *validator.Validator {
	types := lo.Map(ReactionTypes, func(t ReactionType, _ int) string { return string(t) })
	return validator.New(validator.WithAlias("reaction", "oneof="+strings.Join(types, " ")))
}

func (f *Feed) init() {
	f.once.Do(func() {
		if f.Logger == nil {
			f.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		if f.Cache == nil {
			f.Cache = NopCache{}
		}
		if f.Val == nil {
			f.Val = NewValidator()
		}
		if f.SharePath == "" {
			f.SharePath = DefaultSharePath
		}
		if f.NoticeTTL <= 0 {
			f.NoticeTTL = DefaultNoticeTTL
		}
		if f.BackgroundTimeout <= 0 {
			f.BackgroundTimeout = DefaultBackgroundTimeout
		}
		if f.Now == nil {
			f.Now = time.Now
		}
		f.cards = make(map[cardKey]*Card)
	})
}

// Activities lists every activity.
func (f *Feed) Activities(ctx context.Context) ([]Activity, error) {
	f.init()
	acts, err := f.Gateway.Activities(ctx)
	if err != nil {
		f.Logger.Error("Could not list activities", "error", err.Error())
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return acts, nil
}

// Card returns the viewer's card for an activity, opening and loading it
// if needed. A card whose activity query failed is loaded again.
func (f *Feed) Card(ctx context.Context, viewerID, activityID string) *Card {
	f.init()
	key := cardKey{viewerID: viewerID, activityID: activityID}

	f.mu.Lock()
	c, ok := f.cards[key]
	if !ok {
		c = newCard(f, viewerID, activityID)
		f.cards[key] = c
	}
	f.mu.Unlock()

	if !ok {
		f.Logger.Debug("Opened card", "activity_id", activityID, "viewer_id", viewerID)
		c.Load(ctx)
	} else if c.View().Status.Activity.State == StateError {
		c.Load(ctx)
	}
	if c.View().Status.Activity.NotFound {
		f.forget(key, c)
	}
	return c
}

// forget drops c from the open cards if it is still held under key. The
// caller keeps its reference.
func (f *Feed) forget(key cardKey, c *Card) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cards[key] == c {
		delete(f.cards, key)
	}
}

// Lookup returns an open card without loading anything.
func (f *Feed) Lookup(viewerID, activityID string) (*Card, bool) {
	f.init()
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[cardKey{viewerID: viewerID, activityID: activityID}]
	return c, ok
}

// cardsFor returns the open cards showing activityID.
func (f *Feed) cardsFor(activityID string) []*Card {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Card
	for k, c := range f.cards {
		if k.activityID == activityID {
			out = append(out, c)
		}
	}
	return out
}

// CreateActivity uploads the attachments, if any, and creates the
// activity. Image attachments land in ImgURLs, everything else in Files.
func (f *Feed) CreateActivity(ctx context.Context, in NewActivity, files []Attachment) (Activity, error) {
	f.init()
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := f.Val.Check(in); err != nil {
		return Activity{}, err
	}

	if len(files) > 0 {
		if f.Uploader == nil {
			return Activity{}, errors.New("upload attachments: no uploader configured")
		}
		paths, err := f.Uploader.Upload(ctx, files)
		if err != nil {
			f.Logger.Error("Could not upload attachments", "count", len(files), "error", err.Error())
			return Activity{}, fmt.Errorf("upload attachments: %w", err)
		}
		if len(paths) != len(files) {
			return Activity{}, fmt.Errorf("upload attachments: got %d paths for %d files", len(paths), len(files))
		}
		for i, file := range files {
			if isImage(file) {
				in.ImgURLs = append(in.ImgURLs, paths[i])
			} else {
				in.Files = append(in.Files, paths[i])
			}
		}
	}

	a, err := f.Gateway.CreateActivity(ctx, in)
	if err != nil {
		f.Logger.Error("Could not create activity", "user_id", in.UserID, "error", err.Error())
		return Activity{}, fmt.Errorf("create activity: %w", err)
	}
	f.Logger.Info("Created activity", "activity_id", a.ID, "user_id", a.UserID)
	return a, nil
}

func isImage(a Attachment) bool {
	return strings.HasPrefix(strings.ToLower(a.ContentType), "image/")
}

// UpdateActivity changes the title and description of an activity. Open
// cards for it show the new values.
func (f *Feed) UpdateActivity(ctx context.Context, in ActivityEdit) error {
	f.init()
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := f.Val.Check(in); err != nil {
		return err
	}
	if _, err := f.Gateway.UpdateActivity(ctx, in); err != nil {
		f.Logger.Error("Could not update activity", "activity_id", in.ID, "error", err.Error())
		return fmt.Errorf("update activity: %w", err)
	}
	for _, c := range f.cardsFor(in.ID) {
		c.setActivity(in)
	}
	return nil
}

// DeleteActivity deletes an activity and closes every card showing it.
func (f *Feed) DeleteActivity(ctx context.Context, activityID string) error {
	f.init()
	if _, err := f.Gateway.DeleteActivity(ctx, activityID); err != nil {
		f.Logger.Error("Could not delete activity", "activity_id", activityID, "error", err.Error())
		return fmt.Errorf("delete activity: %w", err)
	}

	f.mu.Lock()
	var closing []*Card
	for k, c := range f.cards {
		if k.activityID == activityID {
			closing = append(closing, c)
			delete(f.cards, k)
		}
	}
	f.mu.Unlock()
	for _, c := range closing {
		c.Close()
	}

	if err := f.Cache.Invalidate(ctx, activityID); err != nil {
		f.Logger.Warn("Could not invalidate cache", "activity_id", activityID, "error", err.Error())
	}
	return nil
}

// SubmitComment posts a comment on the viewer's card.
func (f *Feed) SubmitComment(ctx context.Context, viewerID, activityID, content string) (Comment, error) {
	return f.Card(ctx, viewerID, activityID).SubmitComment(ctx, content)
}

// SubmitReaction applies a reaction tap on the viewer's card.
func (f *Feed) SubmitReaction(ctx context.Context, viewerID, activityID string, t ReactionType) (ReactionOutcome, error) {
	return f.Card(ctx, viewerID, activityID).SubmitReaction(ctx, t)
}

// Share shares an activity from the viewer's card.
func (f *Feed) Share(ctx context.Context, viewerID, activityID string) (ShareResult, error) {
	return f.Card(ctx, viewerID, activityID).Share(ctx)
}

// View returns a snapshot of the viewer's card, opening it if needed.
func (f *Feed) View(ctx context.Context, viewerID, activityID string) CardView {
	return f.Card(ctx, viewerID, activityID).View()
}

// Refresh refetches the lists behind the viewer's visible panel and
// returns the resulting view.
func (f *Feed) Refresh(ctx context.Context, viewerID, activityID string) (CardView, error) {
	c := f.Card(ctx, viewerID, activityID)
	if err := c.Refresh(ctx); err != nil {
		return c.View(), err
	}
	return c.View(), nil
}

// A PanelAction is a pointer or click event aimed at one panel of a card.
type PanelAction string

const (
	// ActionToggle is a click on the panel's button.
	ActionToggle PanelAction = "toggle"
	// ActionOpen is the pointer entering the reaction button.
	ActionOpen PanelAction = "open"
	// ActionClose is the pointer leaving, or a click outside, the panel.
	ActionClose PanelAction = "close"
)

// Panel applies action to panel p on the viewer's card and returns the
// resulting view.
func (f *Feed) Panel(ctx context.Context, viewerID, activityID string, p Panel, action PanelAction) (CardView, error) {
	c := f.Card(ctx, viewerID, activityID)

	var err error
	switch {
	case action == ActionClose && p != PanelNone:
		_, err = c.ClosePanel(p)
	case action == ActionOpen && p == PanelReactionForm:
		_, err = c.OpenReactionForm()
	case action == ActionToggle && p == PanelComments:
		_, err = c.ToggleComments()
	case action == ActionToggle && p == PanelReactionForm:
		_, err = c.ToggleReactionForm()
	case action == ActionToggle && p == PanelReactionList:
		_, err = c.ToggleReactionList()
	default:
		return CardView{}, fmt.Errorf("%w: %s %s", ErrInvalidPanelAction, action, p)
	}
	if err != nil {
		return CardView{}, err
	}
	return c.View(), nil
}

// CloseCard closes the viewer's card, if open, and forgets it.
func (f *Feed) CloseCard(viewerID, activityID string) {
	f.init()
	key := cardKey{viewerID: viewerID, activityID: activityID}
	f.mu.Lock()
	c, ok := f.cards[key]
	delete(f.cards, key)
	f.mu.Unlock()
	if ok {
		c.Close()
	}
}

// Prune closes the cards nobody touched for maxIdle and returns how many
// it closed.
func (f *Feed) Prune(maxIdle time.Duration) int {
	f.init()
	cutoff := f.Now().Add(-maxIdle)

	f.mu.Lock()
	var idle []*Card
	for k, c := range f.cards {
		if c.idleSince().Before(cutoff) {
			idle = append(idle, c)
			delete(f.cards, k)
		}
	}
	f.mu.Unlock()

	for _, c := range idle {
		c.Close()
	}
	if len(idle) > 0 {
		f.Logger.Info("Pruned idle cards", "count", len(idle))
	}
	return len(idle)
}

// Len returns the number of open cards.
func (f *Feed) Len() int {
	f.init()
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cards)
}

// Close closes every card and waits for their background work.
func (f *Feed) Close() {
	f.init()
	f.mu.Lock()
	cards := lo.Values(f.cards)
	f.cards = make(map[cardKey]*Card)
	f.mu.Unlock()
	for _, c := range cards {
		c.Close()
	}
}
