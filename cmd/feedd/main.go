// Command feedd serves the activity feed cards over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/robfig/cron/v3"

	"github.com/edgeee/activityfeed/api"
	"github.com/edgeee/activityfeed/config"
	"github.com/edgeee/activityfeed/feed"
	"github.com/edgeee/activityfeed/gateway"
	"github.com/edgeee/activityfeed/pagecache"
	"github.com/edgeee/activityfeed/shortener"
	"github.com/edgeee/activityfeed/upload"
)

const AppVersion = "0.3.0"

func main() {
	// Booting screen
	fmt.Println(color.YellowString(" _____              _\n|  ___|__  ___  __| |\n| |_ / _ \\/ _ \\/ _` |\n|  _|  __/  __/ (_| |\n|_|  \\___|\\___|\\__,_|"))
	fmt.Printf("%s v%s\n", color.New(color.FgHiYellow).Add(color.Bold).Sprintf("Activity Feed"), AppVersion)
	color.HiBlack("=====================================================\n")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Could not load settings: %v", err))
		os.Exit(1)
	}
	logger := cfg.Log.Logger(os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache, closeCache, err := pagecache.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()
	logger.Info("Cache ready", "driver", cfg.Cache.Driver)

	f := &feed.Feed{
		Logger: logger,
		Gateway: gateway.New(cfg.Gateway.URL,
			gateway.WithTimeout(cfg.Gateway.Timeout),
			gateway.WithLogger(logger),
		),
		Cache:       cache,
		ShareOrigin: cfg.Share.Origin,
		SharePath:   cfg.Share.Path,
		NoticeTTL:   cfg.Share.NoticeTTL,
	}
	if cfg.Shortener.URL != "" {
		f.Shortener = shortener.New(cfg.Shortener.URL, cfg.Shortener.RPS, &http.Client{Timeout: cfg.Gateway.Timeout})
	}
	if cfg.Upload.URL != "" {
		f.Uploader = upload.New(cfg.Upload.URL, nil)
	}
	defer f.Close()

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cronLogger{logger}))
	if _, err := quartz.AddFunc(cfg.Cards.PruneSchedule, func() {
		f.Prune(cfg.Cards.MaxIdle)
	}); err != nil {
		return fmt.Errorf("schedule card pruning: %w", err)
	}
	quartz.Start()
	defer func() { <-quartz.Stop().Done() }()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           &api.API{Logger: logger, Feed: f, Val: feed.NewValidator()},
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", cfg.HTTP.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// cronLogger reports cron events through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("Cron "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("Cron "+msg, append(keysAndValues, "error", err.Error())...)
}
