// Package bot answers a chat message with the schedule it asks about.
package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"splatbot/internal/cache"
	"splatbot/internal/card"
	"splatbot/internal/intent"
	"splatbot/internal/line"
	"splatbot/internal/schedule"
)

var (
	// ErrInvalidIntent means no category could be read from the text.
	ErrInvalidIntent = errors.New("no schedule category in text")
	// ErrNotFound means the category is valid but nothing is scheduled at the requested slot.
	ErrNotFound = errors.New("no schedule at requested slot")
)

const (
	replyNotUnderstood = "ごめんなさい、よくわかりませんでした。"
	replyNotFound      = "スケジュールが見つかりませんでした。"
)

// Fetcher returns a cached or freshly fetched upstream document.
type Fetcher interface {
	Get(ctx context.Context, r cache.Resource) (json.RawMessage, error)
}

// Replier delivers messages for a reply token.
type Replier interface {
	Reply(ctx context.Context, replyToken string, messages []line.Message) error
}

type Config struct {
	Schedules cache.Resource
	Locale    cache.Resource
	// MaxNext caps how many slots ahead a query can reach.
	MaxNext int
	// Location is the zone times are shown in.
	Location *time.Location
	// EventConcurrency caps events of one delivery processed at once; 0 means no limit.
	EventConcurrency int
}

type Bot struct {
	config     Config
	classifier *intent.Classifier
	fetcher    Fetcher
	replier    Replier
	logger     *slog.Logger

	// Decoded locale, reused while the cached document bytes are unchanged.
	localeMu  sync.Mutex
	localeRaw []byte
	locale    *schedule.Locale
}

func New(config Config, classifier *intent.Classifier, fetcher Fetcher, replier Replier) *Bot {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if classifier == nil {
		classifier = intent.NewClassifier(nil)
	}
	return &Bot{
		config:     config,
		classifier: classifier,
		fetcher:    fetcher,
		replier:    replier,
		logger:     slog.Default(),
	}
}

// Lookup is the shared path of every query: classify, pick the slot, fetch
// and resolve. It returns ErrInvalidIntent or ErrNotFound for the soft failures.
func (b *Bot) Lookup(ctx context.Context, text string) (*schedule.Resolved, int, error) {
	category, ok := b.classifier.Classify(text)
	if !ok {
		return nil, 0, ErrInvalidIntent
	}
	index := b.classifier.CountNext(text, b.config.MaxNext)

	doc, err := b.fetcher.Get(ctx, b.config.Schedules)
	if err != nil {
		return nil, index, errors.Wrap(err, "failed to get schedules")
	}
	locale, err := b.loadLocale(ctx)
	if err != nil {
		return nil, index, err
	}

	resolved, found, err := schedule.Resolve(category, index, doc, locale)
	if err != nil {
		return nil, index, err
	}
	if !found {
		return nil, index, ErrNotFound
	}
	return resolved, index, nil
}

func (b *Bot) loadLocale(ctx context.Context) (*schedule.Locale, error) {
	raw, err := b.fetcher.Get(ctx, b.config.Locale)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get locale")
	}

	b.localeMu.Lock()
	defer b.localeMu.Unlock()
	if b.locale != nil && bytes.Equal(raw, b.localeRaw) {
		return b.locale, nil
	}
	locale, err := schedule.DecodeLocale(raw)
	if err != nil {
		return nil, err
	}
	b.localeRaw = append([]byte(nil), raw...)
	b.locale = locale
	return locale, nil
}

// HandleIncomingText returns the card for the schedule the text asks about.
func (b *Bot) HandleIncomingText(ctx context.Context, text string) ([]line.Message, error) {
	resolved, _, err := b.Lookup(ctx, text)
	if err != nil {
		return nil, err
	}
	c := card.Project(resolved, b.config.Location)
	return []line.Message{line.FlexFromCard(c)}, nil
}

// Answer is HandleIncomingText with the soft failures turned into plain text replies.
func (b *Bot) Answer(ctx context.Context, text string) ([]line.Message, error) {
	messages, err := b.HandleIncomingText(ctx, text)
	switch {
	case errors.Is(err, ErrInvalidIntent):
		return []line.Message{line.NewTextMessage(replyNotUnderstood)}, nil
	case errors.Is(err, ErrNotFound):
		return []line.Message{line.NewTextMessage(replyNotFound)}, nil
	case err != nil:
		return nil, err
	}
	return messages, nil
}

// ProcessEvents answers every text event of one webhook delivery. Events run
// concurrently; a failing event is logged and never stops its siblings.
// It returns the number of events that failed.
func (b *Bot) ProcessEvents(ctx context.Context, events []line.Event) int {
	var g errgroup.Group
	if b.config.EventConcurrency > 0 {
		g.SetLimit(b.config.EventConcurrency)
	}

	failed := make([]bool, len(events))
	for i, event := range events {
		g.Go(func() error {
			if err := b.processEvent(ctx, event); err != nil {
				failed[i] = true
				b.logger.Error("failed to process event", "type", event.Type, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	count := 0
	for _, f := range failed {
		if f {
			count++
		}
	}
	return count
}

func (b *Bot) processEvent(ctx context.Context, event line.Event) error {
	if !event.IsText() {
		b.logger.Debug("skipping non-text event", "type", event.Type)
		return nil
	}

	messages, err := b.Answer(ctx, event.Message.Text)
	if err != nil {
		return err
	}
	if err := b.replier.Reply(ctx, event.ReplyToken, messages); err != nil {
		return errors.Wrap(err, "failed to deliver reply")
	}
	return nil
}
