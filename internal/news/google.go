package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"
	"github.com/user/news-push-bot/internal/config"
	"github.com/user/news-push-bot/internal/metrics"
	"github.com/user/news-push-bot/internal/model"
	"golang.org/x/time/rate"
)

// GoogleNews looks up headlines through the Google News RSS search feed
type GoogleNews struct {
	parser  *gofeed.Parser
	limiter *rate.Limiter
	config  config.NewsConfig
}

var _ Lookup = (*GoogleNews)(nil)

// NewGoogleNews creates a feed lookup with connection pooling and an outbound rate limit
func NewGoogleNews(cfg config.NewsConfig) *GoogleNews {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	parser := gofeed.NewParser()
	parser.Client = &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
	parser.UserAgent = cfg.UserAgent

	return &GoogleNews{
		parser: parser,
		// rate.Limit is events per second
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		config:  cfg,
	}
}

// SearchURL builds the feed URL for a topic
func (g *GoogleNews) SearchURL(topic string) string {
	q := url.Values{}
	q.Set("q", topic)
	q.Set("hl", g.config.Language)
	q.Set("gl", g.config.Region)
	q.Set("ceid", g.config.Edition)
	return g.config.FeedURL + "?" + q.Encode()
}

// Fetch returns at most limit headlines for topic, or nothing if the lookup fails
func (g *GoogleNews) Fetch(ctx context.Context, topic string, limit int) []model.Headline {
	headlines, err := g.fetch(ctx, topic, limit)
	if err != nil {
		metrics.RecordNewsFetch("error")
		log.Warn().Err(err).Str("topic", topic).Msg("News lookup failed")
		return []model.Headline{}
	}
	if len(headlines) == 0 {
		metrics.RecordNewsFetch("empty")
	} else {
		metrics.RecordNewsFetch("ok")
	}
	log.Debug().Str("topic", topic).Int("count", len(headlines)).Msg("News lookup completed")
	return headlines
}

func (g *GoogleNews) fetch(ctx context.Context, topic string, limit int) ([]model.Headline, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{Topic: topic, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	feed, err := g.parser.ParseURLWithContext(g.SearchURL(topic), ctx)
	if err != nil {
		return nil, &FetchError{Topic: topic, Err: err}
	}

	headlines := make([]model.Headline, 0, limit)
	for _, item := range feed.Items {
		if len(headlines) >= limit {
			break
		}
		title := cleanText(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}
		headlines = append(headlines, model.Headline{Title: title, URL: link})
	}
	return headlines, nil
}

// cleanText strips any markup left in a feed title
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
