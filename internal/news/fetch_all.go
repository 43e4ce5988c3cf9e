package news

import (
	"context"

	"github.com/user/news-push-bot/internal/model"
	"golang.org/x/sync/errgroup"
)

// TopicHeadlines groups the headlines found for one topic
type TopicHeadlines struct {
	Topic     string
	Headlines []model.Headline
}

// FetchAll looks up every topic concurrently and waits for all of them.
// Results keep the order of topics; topics with no headlines are omitted.
// concurrency <= 0 means no limit.
func FetchAll(ctx context.Context, lookup Lookup, topics []string, limit, concurrency int) []TopicHeadlines {
	results := make([][]model.Headline, len(topics))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, topic := range topics {
		g.Go(func() error {
			results[i] = lookup.Fetch(gctx, topic, limit)
			return nil
		})
	}
	// Lookups swallow their own failures, so Wait never reports one.
	_ = g.Wait()

	found := make([]TopicHeadlines, 0, len(topics))
	for i, topic := range topics {
		if len(results[i]) == 0 {
			continue
		}
		found = append(found, TopicHeadlines{Topic: topic, Headlines: results[i]})
	}
	return found
}
