package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"splatbot/internal/bot"
	"splatbot/internal/cache"
	"splatbot/internal/intent"
	"splatbot/internal/line"
	"splatbot/internal/schedule"
)

// server holds what the HTTP handlers need. Everything is built once in main.
type server struct {
	bot         *bot.Bot
	cache       *cache.Cache
	classifier  *intent.Classifier
	resources   []cache.Resource
	watcher     *intent.RuleWatcher
	accessToken string
	// process runs a webhook delivery; it is replaced in tests to run synchronously.
	process func(events []line.Event)
	// inflight tracks background deliveries so drain can wait for them.
	inflight sync.WaitGroup
}

func newServer(b *bot.Bot, c *cache.Cache, classifier *intent.Classifier, resources []cache.Resource, watcher *intent.RuleWatcher, accessToken string, timeout time.Duration) *server {
	s := &server{
		bot:         b,
		cache:       c,
		classifier:  classifier,
		resources:   resources,
		watcher:     watcher,
		accessToken: accessToken,
	}
	s.process = func(events []line.Event) {
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if failed := b.ProcessEvents(ctx, events); failed > 0 {
				slog.Warn("webhook delivery finished with failures", "events", len(events), "failed", failed)
			}
		}()
	}
	return s
}

// drain blocks until every background delivery has finished. Each delivery is
// bounded by the timeout given to newServer, so drain returns within it.
func (s *server) drain() {
	s.inflight.Wait()
}

func (s *server) routes(e *echo.Echo) {
	e.GET("/", s.handleIndex)
	e.GET("/health", s.handleHealth)
	e.POST("/webhook", s.handleWebhook)

	e.POST("/match", s.handleMatch)
	e.GET("/match", s.handleMatch)

	e.GET("/admin/cache-info", s.handleCacheInfo)
	e.POST("/admin/refresh/:resource", s.handleRefresh)
	e.POST("/admin/reload-keywords", s.handleReloadKeywords)
}

func (s *server) handleIndex(c echo.Context) error {
	return c.String(http.StatusOK, "Hello splatbot!")
}

func (s *server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"timestamp":   time.Now(),
		"auto_reload": s.watcher != nil,
	})
}

// handleWebhook acknowledges the delivery at once and answers events in the background.
func (s *server) handleWebhook(c echo.Context) error {
	if s.accessToken == "" {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Channel access token is not set"})
	}

	var req line.WebhookRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if len(req.Events) > 0 {
		s.process(req.Events)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Webhook received"})
}

func (s *server) handleMatch(c echo.Context) error {
	var req MatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.Text == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "text is required"})
	}

	resolved, index, err := s.bot.Lookup(c.Request().Context(), req.Text)
	resp := MatchResponse{Text: req.Text, Index: index}
	switch {
	case errors.Is(err, bot.ErrInvalidIntent):
		resp.Result = "unknown"
	case errors.Is(err, bot.ErrNotFound):
		resp.Result = "not_found"
	case err != nil:
		slog.Error("match lookup failed", "text", req.Text, "error", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		resp.Result = "found"
		resp.Category = resolved.Category.String()
		resp.Schedule = resolved
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *server) handleCacheInfo(c echo.Context) error {
	ctx := c.Request().Context()
	info := CacheInfoResponse{
		Resources: make([]cache.Info, 0, len(s.resources)),
		Timestamp: time.Now(),
	}
	for _, r := range s.resources {
		info.Resources = append(info.Resources, s.cache.Info(ctx, r))
	}
	if s.classifier != nil {
		rules := s.classifier.Rules()
		info.Keywords = make(map[string][]string)
		for _, category := range schedule.Categories() {
			info.Keywords[category.String()] = rules.Keywords(category)
		}
	}
	if s.watcher != nil {
		loadedAt := s.watcher.LoadedAt()
		info.KeywordsFile = s.watcher.Path()
		info.KeywordsLoadedAt = &loadedAt
	}
	return c.JSON(http.StatusOK, info)
}

func (s *server) handleRefresh(c echo.Context) error {
	key := c.Param("resource")
	for _, r := range s.resources {
		if r.Key != key {
			continue
		}
		if _, err := s.cache.Refresh(c.Request().Context(), r.Key, r.URL); err != nil {
			slog.Error("cache refresh failed", "resource", key, "error", err)
			return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, ReloadResponse{
			Message:    fmt.Sprintf("Resource '%s' refreshed", key),
			Resource:   key,
			ReloadedAt: time.Now(),
		})
	}
	return c.JSON(http.StatusNotFound, map[string]string{
		"error": fmt.Sprintf("Resource not found: %s", key),
	})
}

func (s *server) handleReloadKeywords(c echo.Context) error {
	if s.watcher == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No keywords file configured"})
	}
	if err := s.watcher.Reload(); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, ReloadResponse{
		Message:    fmt.Sprintf("Keywords reloaded from %s", s.watcher.Path()),
		ReloadedAt: s.watcher.LoadedAt(),
	})
}
