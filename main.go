package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"splatbot/internal/bot"
	"splatbot/internal/cache"
	"splatbot/internal/config"
	"splatbot/internal/intent"
	"splatbot/internal/kvstore"
	"splatbot/internal/line"
)

var (
	v          = config.NewViper()
	configFile string

	rootCmd = &cobra.Command{
		Use:   "splatbot",
		Short: "LINE bot answering Splatoon 3 schedule questions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), p)
		},
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "path to a config file (yaml, json or toml)")
	flags.String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	flags.String("addr", "", "address of server")
	flags.Int("port", 8050, "port of server")
	flags.String("driver", "memory", "cache store driver, can be \"memory\" or \"sqlite\"")
	flags.String("dsn", "", "sqlite database path")
	flags.String("data", "", "data directory for the sqlite database")
	flags.String("keywords-file", "", "keyword JSON file overriding the built-in keywords")
	flags.Int("max-next", 5, "how many slots ahead a query may reach")

	for key, flag := range map[string]string{
		"mode":          "mode",
		"addr":          "addr",
		"port":          "port",
		"driver":        "driver",
		"dsn":           "dsn",
		"data":          "data",
		"keywords_file": "keywords-file",
		"max_next":      "max-next",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// resources lists every upstream document the cache tracks, schedules and locale first.
func resources(p *config.Profile) []cache.Resource {
	return []cache.Resource{
		{Key: "schedules", URL: p.SchedulesURL},
		{Key: "locale_ja_JP", URL: p.LocaleURL},
		{Key: "festivals", URL: p.FestivalsURL},
		{Key: "coop", URL: p.CoopURL},
	}
}

func run(ctx context.Context, p *config.Profile) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if p.IsDev() {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	if p.ChannelAccessToken == "" {
		slog.Warn("channel access token is not set; webhook deliveries will be rejected")
	}

	store, err := kvstore.New(p.Driver, p.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	cacheLoc, err := p.CacheLocation()
	if err != nil {
		return err
	}
	displayLoc, err := p.Location()
	if err != nil {
		return err
	}

	c := cache.New(store,
		cache.WithHTTPClient(&http.Client{Timeout: p.HTTPTimeout}),
		cache.WithLocation(cacheLoc),
	)

	classifier := intent.NewClassifier(nil)
	var watcher *intent.RuleWatcher
	if p.KeywordsFile != "" {
		watcher, err = intent.NewRuleWatcher(p.KeywordsFile, classifier)
		if err != nil {
			return errors.Wrap(err, "failed to initialize keyword rules")
		}
		defer watcher.Close()
		go watcher.Watch(ctx)
	}

	replier := line.NewClient(line.ClientConfig{
		AccessToken: p.ChannelAccessToken,
		ReplyURL:    p.ReplyURL,
		Timeout:     p.HTTPTimeout,
	})

	res := resources(p)
	b := bot.New(bot.Config{
		Schedules:        res[0],
		Locale:           res[1],
		MaxNext:          p.MaxNext,
		Location:         displayLoc,
		EventConcurrency: p.EventConcurrency,
	}, classifier, c, replier)

	s := newServer(b, c, classifier, res, watcher, p.ChannelAccessToken, 3*p.HTTPTimeout)

	e := echo.New()
	e.HideBanner = true
	e.Debug = p.IsDev()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	s.routes(e)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shut down server", "error", err)
		}
	}()

	slog.Info("splatbot started", "addr", p.ListenAddr(), "mode", p.Mode, "driver", p.Driver, "keywords_file", p.KeywordsFile)
	err = e.Start(p.ListenAddr())
	// Deliveries still answering must finish before the store closes.
	s.drain()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server stopped")
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("splatbot exited", "error", err)
		os.Exit(1)
	}
}
