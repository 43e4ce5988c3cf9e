package push

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/user/news-push-bot/internal/messaging"
	"github.com/user/news-push-bot/internal/metrics"
	"github.com/user/news-push-bot/internal/news"
	"github.com/user/news-push-bot/internal/store"
	"golang.org/x/time/rate"
)

// Options tunes delivery
type Options struct {
	NewsLimit   int     // headlines per topic
	Concurrency int     // parallel lookups per user
	RateLimit   float64 // outbound push messages per second
}

// Service delivers scheduled news carousels to users
type Service struct {
	store   store.Store
	lookup  news.Lookup
	client  messaging.Client
	limiter *rate.Limiter
	opts    Options
}

// NewService creates a new push service
func NewService(store store.Store, lookup news.Lookup, client messaging.Client, opts Options) *Service {
	if opts.NewsLimit <= 0 {
		opts.NewsLimit = 3
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	return &Service{
		store:   store,
		lookup:  lookup,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		opts:    opts,
	}
}

// EnabledTopics returns the user's subscribed topics whose push flag is on.
// Push choices left over from removed subscriptions are ignored.
func EnabledTopics(ctx context.Context, s store.Store, userID string) ([]string, error) {
	subs, err := s.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, err
	}
	choices, err := s.ListPushTopics(ctx, userID)
	if err != nil {
		return nil, err
	}

	var enabled []string
	for _, topic := range subs {
		if choices[topic] && !slices.Contains(enabled, topic) {
			enabled = append(enabled, topic)
		}
	}
	return enabled, nil
}

// DeliverToUser fetches headlines for every enabled topic of a user and pushes them
// in carousels of at most ten bubbles. It returns the number of messages sent.
// Users with nothing to send get no message.
func (s *Service) DeliverToUser(ctx context.Context, userID string) (int, error) {
	topics, err := EnabledTopics(ctx, s.store, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load push topics: %w", err)
	}
	if len(topics) == 0 {
		log.Debug().Str("userID", userID).Msg("No enabled push topics, skipping")
		return 0, nil
	}

	results := news.FetchAll(ctx, s.lookup, topics, s.opts.NewsLimit, s.opts.Concurrency)
	bubbles := BuildBubbles(results)
	if len(bubbles) == 0 {
		log.Info().Str("userID", userID).Strs("topics", topics).Msg("No headlines found, skipping push")
		metrics.RecordPush("empty")
		return 0, nil
	}

	sent := 0
	for _, chunk := range messaging.ChunkBubbles(bubbles, messaging.MaxCarouselBubbles) {
		if err := s.limiter.Wait(ctx); err != nil {
			return sent, fmt.Errorf("rate limiter error: %w", err)
		}
		if err := s.client.PushCarousel(userID, AltTextScheduled, chunk); err != nil {
			metrics.RecordPush("failed")
			return sent, fmt.Errorf("failed to push news: %w", err)
		}
		metrics.RecordPush("success")
		sent++
	}

	log.Info().
		Str("userID", userID).
		Int("bubbles", len(bubbles)).
		Int("messages", sent).
		Msg("Successfully pushed news")
	return sent, nil
}
