package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// A Card is the client-side state of one activity as seen by one viewer:
// the fetched activity, comment and reaction pages, the displayed counters,
// the visible panel and the share confirmation.
//
// Network calls run outside the card lock. Their results are applied when
// they settle, unless the card was closed in the meantime.
type Card struct {
	activityID string
	viewerID   string
	feed       *Feed

	mu         sync.Mutex
	activity   Activity
	activityQ  Query
	comments   CommentPage
	commentsQ  Query
	reactions  ReactionPage
	reactionsQ Query
	hasReacts  bool
	counters   Counters
	panels     Panels
	notice     *Notice
	closed     bool
	touched    time.Time

	// reactMu serializes reaction submissions so two taps cannot both see
	// "no reaction" and create two.
	reactMu sync.Mutex
	bg      sync.WaitGroup
}

func newCard(f *Feed, viewerID, activityID string) *Card {
	return &Card{
		activityID: activityID,
		viewerID:   viewerID,
		feed:       f,
		activityQ:  Query{State: StateLoading},
		commentsQ:  Query{State: StateLoading},
		reactionsQ: Query{State: StateLoading},
		touched:    f.Now(),
	}
}

// ActivityID returns the id of the activity the card shows.
func (c *Card) ActivityID() string { return c.activityID }

// ViewerID returns the id of the user looking at the card.
func (c *Card) ViewerID() string { return c.viewerID }

func (c *Card) log() *slog.Logger {
	return c.feed.Logger.With("activity_id", c.activityID, "viewer_id", c.viewerID)
}

// apply runs fn under the card lock unless the card is closed. It reports
// whether fn ran.
func (c *Card) apply(fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.touched = c.feed.Now()
	fn()
	return true
}

// Load runs the activity, comment and reaction queries concurrently. Each
// query settles into its own state; a failing query does not affect the others.
// Comment and reaction pages come from the cache when it has them.
func (c *Card) Load(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		_ = c.fetchActivity(ctx)
	}()
	go func() {
		defer wg.Done()
		c.loadComments(ctx)
	}()
	go func() {
		defer wg.Done()
		c.loadReactions(ctx)
	}()
	wg.Wait()
}

func (c *Card) fetchActivity(ctx context.Context) error {
	c.apply(c.activityQ.loading)
	a, err := c.feed.Gateway.Activity(ctx, c.activityID)
	if err != nil {
		c.log().Error("Could not fetch activity", "error", err.Error())
		c.apply(func() { c.activityQ.failed(err) })
		return err
	}
	c.apply(func() {
		c.activity = a
		c.activityQ.ready()
		c.counters.ReconcileShares(a.ShareCount)
	})
	return nil
}

func (c *Card) loadComments(ctx context.Context) {
	page, ok, err := c.feed.Cache.Comments(ctx, c.activityID)
	if err != nil {
		c.log().Warn("Could not read cached comments", "error", err.Error())
	}
	if ok {
		c.apply(func() { c.setComments(page) })
		return
	}
	_ = c.refetchComments(ctx)
}

// refetchComments reads the comment page from the gateway and makes it the
// card's truth, overwriting any local increment.
func (c *Card) refetchComments(ctx context.Context) error {
	page, err := c.feed.Gateway.CommentsByActivity(ctx, c.activityID)
	if err != nil {
		c.log().Error("Could not fetch comments", "error", err.Error())
		c.apply(func() { c.commentsQ.failed(err) })
		return err
	}
	if err := c.feed.Cache.SetComments(ctx, c.activityID, page); err != nil {
		c.log().Warn("Could not cache comments", "error", err.Error())
	}
	c.apply(func() { c.setComments(page) })
	return nil
}

func (c *Card) setComments(page CommentPage) {
	c.comments = page
	c.commentsQ.ready()
	c.counters.ReconcileComments(page.TotalComments)
}

func (c *Card) loadReactions(ctx context.Context) {
	page, ok, err := c.feed.Cache.Reactions(ctx, c.activityID)
	if err != nil {
		c.log().Warn("Could not read cached reactions", "error", err.Error())
	}
	if ok {
		c.apply(func() { c.setReactions(page) })
		return
	}
	_ = c.refetchReactions(ctx)
}

func (c *Card) refetchReactions(ctx context.Context) error {
	page, err := c.feed.Gateway.ReactionsByActivity(ctx, c.activityID)
	if err != nil {
		c.log().Error("Could not fetch reactions", "error", err.Error())
		c.apply(func() {
			c.reactionsQ.failed(err)
			// The held page may predate a mutation; the next submit fetches first.
			c.hasReacts = false
		})
		return err
	}
	if err := c.feed.Cache.SetReactions(ctx, c.activityID, page); err != nil {
		c.log().Warn("Could not cache reactions", "error", err.Error())
	}
	c.apply(func() { c.setReactions(page) })
	return nil
}

func (c *Card) setReactions(page ReactionPage) {
	c.reactions = page
	c.hasReacts = true
	c.reactionsQ.ready()
	c.counters.ReconcileReactions(page.TotalReactions)
}

// Refresh refetches what the visible panel shows: the comment page for the
// comment panel, the reaction page for either reaction panel.
func (c *Card) Refresh(ctx context.Context) error {
	switch c.Panel() {
	case PanelComments:
		return c.refetchComments(ctx)
	case PanelReactionForm, PanelReactionList:
		return c.refetchReactions(ctx)
	}
	return nil
}

// Panel returns the visible panel.
func (c *Card) Panel() Panel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.panels.Current()
}

func (c *Card) panel(fn func(*Panels)) (Panel, error) {
	var cur Panel
	if !c.apply(func() {
		fn(&c.panels)
		cur = c.panels.Current()
	}) {
		return PanelNone, ErrCardClosed
	}
	return cur, nil
}

// ToggleComments shows or hides the comment panel and returns the visible panel.
func (c *Card) ToggleComments() (Panel, error) {
	return c.panel((*Panels).ToggleComments)
}

// ToggleReactionForm shows or hides the reaction picker.
func (c *Card) ToggleReactionForm() (Panel, error) {
	return c.panel((*Panels).ToggleReactionForm)
}

// OpenReactionForm shows the reaction picker.
func (c *Card) OpenReactionForm() (Panel, error) {
	return c.panel((*Panels).OpenReactionForm)
}

// ToggleReactionList shows or hides the reaction list.
func (c *Card) ToggleReactionList() (Panel, error) {
	return c.panel((*Panels).ToggleReactionList)
}

// ClosePanel hides p if it is visible.
func (c *Card) ClosePanel(p Panel) (Panel, error) {
	return c.panel(func(ps *Panels) { ps.Close(p) })
}

// SubmitComment posts content as the viewer. The comment counter goes up
// at once; the refetched comment page then overwrites it. A failed
// mutation takes the local increment back.
func (c *Card) SubmitComment(ctx context.Context, content string) (Comment, error) {
	in := NewComment{
		Content:    strings.TrimSpace(content),
		UserID:     c.viewerID,
		ActivityID: c.activityID,
	}
	if err := c.feed.Val.Check(in); err != nil {
		return Comment{}, err
	}
	if !c.apply(c.counters.BumpComments) {
		return Comment{}, ErrCardClosed
	}

	cm, err := c.feed.Gateway.CreateComment(ctx, in)
	if err != nil {
		c.log().Error("Could not create comment", "error", err.Error())
		c.apply(c.counters.UnbumpComments)
		return Comment{}, fmt.Errorf("create comment: %w", err)
	}
	_ = c.refetchComments(ctx)
	return cm, nil
}

// A ReactionOutcome says what SubmitReaction did.
type ReactionOutcome string

const (
	OutcomeCreated  ReactionOutcome = "created"
	OutcomeRemoved  ReactionOutcome = "removed"
	OutcomeSwitched ReactionOutcome = "switched"
)

// SubmitReaction applies a tap on the reaction button t:
//
//   - no reaction from the viewer yet: create one of type t;
//   - a reaction of type t: delete it;
//   - a reaction of another type: delete it, then create one of type t.
//
// The existing reaction is looked up in the most recently fetched reaction
// page. After every mutation the page is refetched. Nothing is applied
// before the gateway confirms, and a failed delete stops a switch before
// the create.
func (c *Card) SubmitReaction(ctx context.Context, t ReactionType) (ReactionOutcome, error) {
	in := NewReaction{UserID: c.viewerID, ActivityID: c.activityID, Type: t}
	if err := c.feed.Val.Check(in); err != nil {
		return "", err
	}

	c.reactMu.Lock()
	defer c.reactMu.Unlock()

	page, fetched, ok := c.reactionSnapshot()
	if !ok {
		return "", ErrCardClosed
	}
	if !fetched {
		if err := c.refetchReactions(ctx); err != nil {
			return "", fmt.Errorf("fetch reactions: %w", err)
		}
		if page, _, ok = c.reactionSnapshot(); !ok {
			return "", ErrCardClosed
		}
	}

	existing, found := page.ByUser(c.viewerID)
	switch {
	case !found:
		if err := c.createReaction(ctx, in); err != nil {
			return "", err
		}
		return OutcomeCreated, nil
	case existing.Type == t:
		if err := c.deleteReaction(ctx, existing); err != nil {
			return "", err
		}
		return OutcomeRemoved, nil
	default:
		if err := c.deleteReaction(ctx, existing); err != nil {
			return "", err
		}
		if err := c.createReaction(ctx, in); err != nil {
			return "", err
		}
		return OutcomeSwitched, nil
	}
}

func (c *Card) reactionSnapshot() (ReactionPage, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ReactionPage{}, false, false
	}
	return c.reactions, c.hasReacts, true
}

func (c *Card) createReaction(ctx context.Context, in NewReaction) error {
	if _, err := c.feed.Gateway.CreateReaction(ctx, in); err != nil {
		c.log().Error("Could not create reaction", "type", string(in.Type), "error", err.Error())
		return fmt.Errorf("create reaction: %w", err)
	}
	_ = c.refetchReactions(ctx)
	return nil
}

func (c *Card) deleteReaction(ctx context.Context, r Reaction) error {
	if err := c.feed.Gateway.DeleteReaction(ctx, r.ID); err != nil {
		c.log().Error("Could not delete reaction", "reaction_id", r.ID, "error", err.Error())
		return fmt.Errorf("delete reaction: %w", err)
	}
	_ = c.refetchReactions(ctx)
	return nil
}

// setActivity replaces the editable fields after an update went through.
func (c *Card) setActivity(in ActivityEdit) {
	c.apply(func() {
		c.activity.Title = in.Title
		c.activity.Description = in.Description
	})
}

// Close unmounts the card. Results that settle afterwards are dropped.
// Close waits for the card's background work to finish.
func (c *Card) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.bg.Wait()
}

// Closed reports whether Close was called.
func (c *Card) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Wait blocks until the card's background work, such as share count
// updates, has settled.
func (c *Card) Wait() { c.bg.Wait() }

func (c *Card) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touched
}

// Counters returns the displayed totals.
func (c *Card) Counters() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters
}

// A CardView is a snapshot of a card for presentation. Comment and
// reaction lists are only filled in for the panel that shows them.
type CardView struct {
	ActivityID      string          `json:"activity_id"`
	ViewerID        string          `json:"viewer_id"`
	Activity        *Activity       `json:"activity,omitempty"`
	Status          CardStatus      `json:"status"`
	Counters        Counters        `json:"counters"`
	Panel           Panel           `json:"panel"`
	ViewerReaction  ReactionType    `json:"viewer_reaction,omitempty"`
	Comments        []Comment       `json:"comments,omitempty"`
	Reactions       []Reaction      `json:"reactions,omitempty"`
	ReactionSummary []ReactionCount `json:"reaction_summary,omitempty"`
	Notice          *Notice         `json:"notice,omitempty"`
}

// CardStatus holds the state of each query behind a card.
type CardStatus struct {
	Activity  Query `json:"activity"`
	Comments  Query `json:"comments"`
	Reactions Query `json:"reactions"`
}

// View returns a snapshot of the card.
func (c *Card) View() CardView {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := CardView{
		ActivityID: c.activityID,
		ViewerID:   c.viewerID,
		Status: CardStatus{
			Activity:  c.activityQ,
			Comments:  c.commentsQ,
			Reactions: c.reactionsQ,
		},
		Counters: c.counters,
		Panel:    c.panels.Current(),
		Notice:   c.currentNotice(),
	}
	if c.activityQ.State == StateReady {
		a := c.activity
		v.Activity = &a
	}
	if r, ok := c.reactions.ByUser(c.viewerID); ok {
		v.ViewerReaction = r.Type
	}
	switch v.Panel {
	case PanelComments:
		v.Comments = append([]Comment(nil), c.comments.Comments...)
	case PanelReactionList:
		v.Reactions = append([]Reaction(nil), c.reactions.Reactions...)
		v.ReactionSummary = c.reactions.Summary()
	}
	return v
}
