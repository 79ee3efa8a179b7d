// Package memory caches comment and reaction pages in process.
package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"

	"github.com/edgeee/activityfeed/feed"
)

// Cache keeps pages in a ristretto cache. Values are stored marshaled, so
// callers never share slices with the cache.
type Cache struct {
	rc      *ristretto.Cache
	marshal *marshaler.Marshaler
	ttl     time.Duration
}

// New returns a cache holding up to maxItems pages for ttl each.
func New(maxItems int64, ttl time.Duration) (*Cache, error) {
	if maxItems <= 0 {
		maxItems = 1000
	}
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("new ristretto cache: %w", err)
	}
	manager := cache.New[any](ristretto_store.NewRistretto(rc))
	return &Cache{
		rc:      rc,
		marshal: marshaler.New(manager),
		ttl:     ttl,
	}, nil
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.rc.Close()
}

func commentsKey(activityID string) string {
	return fmt.Sprintf("activity-comments#%s", activityID)
}

func reactionsKey(activityID string) string {
	return fmt.Sprintf("activity-reactions#%s", activityID)
}

// Comments returns the cached comment page. An absent key is a miss; a
// value that cannot be decoded is an error.
func (c *Cache) Comments(ctx context.Context, activityID string) (feed.CommentPage, bool, error) {
	key := commentsKey(activityID)
	v, err := c.marshal.Get(ctx, key, new(feed.CommentPage))
	if isMiss(err) {
		return feed.CommentPage{}, false, nil
	}
	if err != nil {
		return feed.CommentPage{}, false, fmt.Errorf("get %s: %w", key, err)
	}
	return *v.(*feed.CommentPage), true, nil
}

// SetComments stores the comment page. It is visible to Comments once
// SetComments returns.
func (c *Cache) SetComments(ctx context.Context, activityID string, page feed.CommentPage) error {
	return c.set(ctx, commentsKey(activityID), page)
}

// Reactions returns the cached reaction page.
func (c *Cache) Reactions(ctx context.Context, activityID string) (feed.ReactionPage, bool, error) {
	key := reactionsKey(activityID)
	v, err := c.marshal.Get(ctx, key, new(feed.ReactionPage))
	if isMiss(err) {
		return feed.ReactionPage{}, false, nil
	}
	if err != nil {
		return feed.ReactionPage{}, false, fmt.Errorf("get %s: %w", key, err)
	}
	return *v.(*feed.ReactionPage), true, nil
}

// SetReactions stores the reaction page.
func (c *Cache) SetReactions(ctx context.Context, activityID string, page feed.ReactionPage) error {
	return c.set(ctx, reactionsKey(activityID), page)
}

// Invalidate drops both pages of an activity.
func (c *Cache) Invalidate(ctx context.Context, activityID string) error {
	for _, key := range []string{commentsKey(activityID), reactionsKey(activityID)} {
		if err := c.marshal.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	c.rc.Wait()
	return nil
}

func isMiss(err error) bool {
	var nf *store.NotFound
	return errors.As(err, &nf)
}

func (c *Cache) set(ctx context.Context, key string, v any) error {
	opts := []store.Option{store.WithCost(1)}
	if c.ttl > 0 {
		opts = append(opts, store.WithExpiration(c.ttl))
	}
	if err := c.marshal.Set(ctx, key, v, opts...); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	c.rc.Wait()
	return nil
}
