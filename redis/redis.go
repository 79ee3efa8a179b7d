// Package redis caches comment and reaction pages in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edgeee/activityfeed/feed"
)

// Redis provides caching in Redis.
type Redis struct {
	cli *redis.Client
	ttl time.Duration
}

// Connect connects to the Redis server and pings the server to ensure the
// connection is working. Cached pages expire after ttl; zero keeps them
// until they are replaced or invalidated.
func Connect(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{
		cli: cli,
		ttl: ttl,
	}, nil
}

// Close closes the connection.
func (r *Redis) Close() error {
	return r.cli.Close()
}

const (
	activityPrefix = "activities"
	kindComments   = "comments"
	kindReactions  = "reactions"
)

// listKey is the sorted set holding the item keys of one page, in fetch order.
func listKey(activityID, kind string) string {
	return fmt.Sprintf("%s:%s:%s", activityPrefix, activityID, kind)
}

func itemKey(activityID, kind, id string) string {
	return fmt.Sprintf("%s:%s", listKey(activityID, kind), id)
}

// totalKey holds the server total of one page. A page is cached while its
// total is present; the total, list and items share one expiry.
func totalKey(activityID, kind string) string {
	return fmt.Sprintf("%s:%s:totals:%s", activityPrefix, activityID, kind)
}

type item struct {
	id  string
	val any
}

// Comments returns the cached comment page of an activity.
func (r *Redis) Comments(ctx context.Context, activityID string) (feed.CommentPage, bool, error) {
	total, keys, ok, err := r.list(ctx, activityID, kindComments)
	if err != nil || !ok {
		return feed.CommentPage{}, false, err
	}

	page := feed.CommentPage{Comments: make([]feed.Comment, len(keys)), TotalComments: total}
	for i, key := range keys {
		var c comment
		if err := r.cli.HGetAll(ctx, key).Scan(&c); err != nil {
			return feed.CommentPage{}, false, fmt.Errorf("hgetall: %w", err)
		}
		if c.ID == "" {
			// Item expired ahead of the page.
			return feed.CommentPage{}, false, nil
		}
		page.Comments[i] = c.FeedComment()
	}
	return page, true, nil
}

// SetComments replaces the cached comment page of an activity.
func (r *Redis) SetComments(ctx context.Context, activityID string, page feed.CommentPage) error {
	items := make([]item, len(page.Comments))
	for i, c := range page.Comments {
		items[i] = item{id: c.ID, val: newComment(c)}
	}
	if err := r.replace(ctx, activityID, kindComments, page.TotalComments, items); err != nil {
		return fmt.Errorf("redis set comments: %w", err)
	}
	return nil
}

// Reactions returns the cached reaction page of an activity.
func (r *Redis) Reactions(ctx context.Context, activityID string) (feed.ReactionPage, bool, error) {
	total, keys, ok, err := r.list(ctx, activityID, kindReactions)
	if err != nil || !ok {
		return feed.ReactionPage{}, false, err
	}

	page := feed.ReactionPage{Reactions: make([]feed.Reaction, len(keys)), TotalReactions: total}
	for i, key := range keys {
		var rc reaction
		if err := r.cli.HGetAll(ctx, key).Scan(&rc); err != nil {
			return feed.ReactionPage{}, false, fmt.Errorf("hgetall: %w", err)
		}
		if rc.ID == "" {
			return feed.ReactionPage{}, false, nil
		}
		page.Reactions[i] = rc.FeedReaction()
	}
	return page, true, nil
}

// SetReactions replaces the cached reaction page of an activity.
func (r *Redis) SetReactions(ctx context.Context, activityID string, page feed.ReactionPage) error {
	items := make([]item, len(page.Reactions))
	for i, rc := range page.Reactions {
		items[i] = item{id: rc.ID, val: newReaction(rc)}
	}
	if err := r.replace(ctx, activityID, kindReactions, page.TotalReactions, items); err != nil {
		return fmt.Errorf("redis set reactions: %w", err)
	}
	return nil
}

// Invalidate drops both cached pages of an activity.
func (r *Redis) Invalidate(ctx context.Context, activityID string) error {
	var keys []string
	for _, kind := range []string{kindComments, kindReactions} {
		members, err := r.cli.ZRange(ctx, listKey(activityID, kind), 0, -1).Result()
		if err != nil {
			return fmt.Errorf("zrange: %w", err)
		}
		keys = append(keys, totalKey(activityID, kind), listKey(activityID, kind))
		keys = append(keys, members...)
	}
	if err := r.cli.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return nil
}

// list returns the total and item keys of a cached page.
func (r *Redis) list(ctx context.Context, activityID, kind string) (int, []string, bool, error) {
	total, err := r.cli.Get(ctx, totalKey(activityID, kind)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, fmt.Errorf("get total: %w", err)
	}

	keys, err := r.cli.ZRange(ctx, listKey(activityID, kind), 0, -1).Result()
	if err != nil {
		return 0, nil, false, fmt.Errorf("zrange: %w", err)
	}
	if len(keys) == 0 && total > 0 {
		// The list expired ahead of its total.
		return 0, nil, false, nil
	}
	return total, keys, true, nil
}

// replace swaps the page of kind for items in one transaction: the old item
// hashes are deleted, the new ones written and ranked by position.
func (r *Redis) replace(ctx context.Context, activityID, kind string, total int, items []item) error {
	list := listKey(activityID, kind)
	totalK := totalKey(activityID, kind)

	return r.cli.Watch(ctx, func(tx *redis.Tx) error {
		old, err := tx.ZRange(ctx, list, 0, -1).Result()
		if err != nil {
			return fmt.Errorf("zrange: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, append(old, list)...)
			for i, it := range items {
				key := itemKey(activityID, kind, it.id)
				pipe.HSet(ctx, key, it.val)
				pipe.ZAdd(ctx, list, redis.Z{
					Score:  float64(i),
					Member: key,
				})
				if r.ttl > 0 {
					pipe.Expire(ctx, key, r.ttl)
				}
			}
			pipe.Set(ctx, totalK, total, r.ttl)
			if r.ttl > 0 {
				pipe.Expire(ctx, list, r.ttl)
			}
			return nil
		})
		return err
	}, list, totalK)
}
