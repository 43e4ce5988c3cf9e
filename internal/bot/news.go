package bot

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/user/news-push-bot/internal/metrics"
	"github.com/user/news-push-bot/internal/news"
	"github.com/user/news-push-bot/internal/push"
)

const replyNoNewsFound = "目前找不到相關新聞"

// handleNewsNow fetches every subscribed topic concurrently and replies with headline carousels
func (h *Handler) handleNewsNow(ctx context.Context, ev TextEvent) {
	topics, err := h.store.ListSubscriptions(ctx, ev.UserID)
	if err != nil {
		h.respond(ev, Reply{}, err)
		return
	}
	if len(topics) == 0 {
		h.respond(ev, noSubscriptionsReply(), nil)
		return
	}

	results := news.FetchAll(ctx, h.lookup, topics, h.opts.NewsLimit, h.opts.Concurrency)
	bubbles := push.BuildBubbles(results)

	log.Info().
		Str("userID", ev.UserID).
		Int("topics", len(topics)).
		Int("count", len(bubbles)).
		Msg("News lookup for user completed")

	if len(bubbles) == 0 {
		h.respond(ev, Reply{Text: replyNoNewsFound}, nil)
		return
	}
	if err := h.client.ReplyCarousel(ev.ReplyToken, push.AltTextNow, bubbles); err != nil {
		metrics.RecordError("reply")
		log.Error().Err(err).Str("userID", ev.UserID).Msg("Failed to reply news carousel")
	}
}
