// Command feedctl is an interactive terminal client for the activity feed.
// It keeps the same per-card state the HTTP server does and prints it
// after every command.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"

	"github.com/edgeee/activityfeed/clipboard"
	"github.com/edgeee/activityfeed/config"
	"github.com/edgeee/activityfeed/feed"
	"github.com/edgeee/activityfeed/gateway"
	"github.com/edgeee/activityfeed/pagecache"
	"github.com/edgeee/activityfeed/shortener"
	"github.com/edgeee/activityfeed/upload"
)

func main() {
	user := flag.String("user", os.Getenv("FEED_USER"), "id of the viewing user")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, color.RedString("A user is required: pass -user or set FEED_USER"))
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Could not load settings: %v", err))
		os.Exit(1)
	}
	logger := cfg.Log.Logger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cache, closeCache, err := pagecache.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Could not open cache: %v", err))
		os.Exit(1)
	}
	defer closeCache()

	f := &feed.Feed{
		Logger:      logger,
		Gateway:     gateway.New(cfg.Gateway.URL, gateway.WithTimeout(cfg.Gateway.Timeout)),
		Cache:       cache,
		ShareOrigin: cfg.Share.Origin,
		SharePath:   cfg.Share.Path,
		NoticeTTL:   cfg.Share.NoticeTTL,
	}
	if clip, err := clipboard.New(); err != nil {
		logger.Warn("Clipboard disabled", "error", err.Error())
	} else {
		f.Clipboard = clip
	}
	if cfg.Shortener.URL != "" {
		f.Shortener = shortener.New(cfg.Shortener.URL, cfg.Shortener.RPS, nil)
	}
	if cfg.Upload.URL != "" {
		f.Uploader = upload.New(cfg.Upload.URL, nil)
	}
	defer f.Close()

	r := &repl{feed: f, user: *user, in: os.Stdin, out: os.Stdout}
	if err := r.run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("%v", err))
		os.Exit(1)
	}
}
