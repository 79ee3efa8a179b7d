// Package pagecache opens the page cache selected by configuration.
package pagecache

import (
	"context"
	"fmt"

	"github.com/edgeee/activityfeed/config"
	"github.com/edgeee/activityfeed/feed"
	"github.com/edgeee/activityfeed/memory"
	"github.com/edgeee/activityfeed/redis"
)

// Open returns the page cache selected by cache.driver and a function
// releasing it. The "none" driver caches nothing.
func Open(ctx context.Context, cfg *config.Config) (feed.Cache, func(), error) {
	switch cfg.Cache.Driver {
	case "memory":
		c, err := memory.New(cfg.Cache.MaxItems, cfg.Cache.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("memory cache: %w", err)
		}
		return c, c.Close, nil
	case "redis":
		c, err := redis.Connect(ctx, cfg.Redis.Addr, cfg.Cache.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, func() { _ = c.Close() }, nil
	case "none", "":
		return feed.NopCache{}, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
}
