package feed

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// A Notice is a transient confirmation shown on a card until ExpiresAt.
type Notice struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ShareResult is what Card.Share hands back to the presentation layer.
type ShareResult struct {
	URL    string  `json:"url"`
	Copied bool    `json:"copied"`
	Notice *Notice `json:"notice,omitempty"`
}

const shareNotice = "Link copied to clipboard"

// ShareURL returns the canonical link to an activity.
func (f *Feed) ShareURL(activityID string) (string, error) {
	f.init()
	u, err := url.JoinPath(f.ShareOrigin, f.SharePath, activityID)
	if err != nil {
		return "", fmt.Errorf("build share url: %w", err)
	}
	return u, nil
}

// Share generates the activity link, shortens it when a shortener is set
// and copies it when a clipboard is set. The share is recorded in the
// background and the displayed count goes up at once.
//
// A failed copy is returned and shows no notice. Without a clipboard the
// caller copies the returned URL itself and the notice is still set.
func (c *Card) Share(ctx context.Context) (ShareResult, error) {
	if c.Closed() {
		return ShareResult{}, ErrCardClosed
	}
	link, err := c.feed.ShareURL(c.activityID)
	if err != nil {
		return ShareResult{}, err
	}
	if c.feed.Shortener != nil {
		short, err := c.feed.Shortener.Shorten(ctx, link)
		if err != nil {
			c.log().Warn("Could not shorten share link", "error", err.Error())
		} else {
			link = short
		}
	}

	c.recordShare()

	res := ShareResult{URL: link}
	if c.feed.Clipboard != nil {
		if err := c.feed.Clipboard.Copy(ctx, link); err != nil {
			c.log().Error("Could not copy share link", "error", err.Error())
			return res, fmt.Errorf("copy share link: %w", err)
		}
		res.Copied = true
	}

	n := &Notice{Message: shareNotice, ExpiresAt: c.feed.Now().Add(c.feed.NoticeTTL)}
	c.apply(func() { c.notice = n })
	res.Notice = n
	return res, nil
}

// recordShare bumps the displayed share count and sends updateShareCount
// without waiting for it. The call outlives the request that triggered it.
func (c *Card) recordShare() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.counters.BumpShares()
	c.bg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.feed.BackgroundTimeout)
		defer cancel()

		total, err := c.feed.Gateway.UpdateShareCount(ctx, c.activityID)
		if err != nil {
			c.log().Error("Could not update share count", "error", err.Error())
			return
		}
		c.apply(func() { c.counters.ReconcileShares(total) })
	}()
}

// currentNotice returns the notice unless it has expired. Callers hold c.mu.
func (c *Card) currentNotice() *Notice {
	if c.notice == nil {
		return nil
	}
	if !c.feed.Now().Before(c.notice.ExpiresAt) {
		c.notice = nil
		return nil
	}
	n := *c.notice
	return &n
}
