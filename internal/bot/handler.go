package bot

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/user/news-push-bot/internal/conversation"
	"github.com/user/news-push-bot/internal/messaging"
	"github.com/user/news-push-bot/internal/metrics"
	"github.com/user/news-push-bot/internal/news"
	"github.com/user/news-push-bot/internal/store"
)

// Text commands
const (
	textNewsNow            = "即時新聞"
	textManageSubscription = "管理我的訂閱"
	textPushSettings       = "推播訊息"
)

const replyStorageFailure = "系統忙碌中，請稍後再試"

// Reply is a text reply with an optional quick menu
type Reply struct {
	Text string
	Menu messaging.QuickMenu
}

// Options tunes the handler
type Options struct {
	NewsLimit   int
	Concurrency int
	Location    *time.Location
	Clock       clockwork.Clock
}

// Handler routes inbound events to the subscription and push dialogues
type Handler struct {
	store    store.Store
	modes    *conversation.Tracker
	lookup   news.Lookup
	client   messaging.Client
	clock    clockwork.Clock
	location *time.Location
	opts     Options
}

// NewHandler creates a new event handler
func NewHandler(
	store store.Store,
	modes *conversation.Tracker,
	lookup news.Lookup,
	client messaging.Client,
	opts Options,
) *Handler {
	if opts.NewsLimit <= 0 {
		opts.NewsLimit = 3
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Handler{
		store:    store,
		modes:    modes,
		lookup:   lookup,
		client:   client,
		clock:    opts.Clock,
		location: opts.Location,
		opts:     opts,
	}
}

// HandleEvent processes one inbound event
func (h *Handler) HandleEvent(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case TextEvent:
		metrics.RecordWebhookEvent("text")
		h.HandleText(ctx, e)
	case PostbackEvent:
		metrics.RecordWebhookEvent("postback")
		h.HandlePostback(ctx, e)
	default:
		log.Debug().Str("userID", ev.User()).Msg("Ignoring unsupported event")
	}
}

// HandleText routes a text message
func (h *Handler) HandleText(ctx context.Context, ev TextEvent) {
	text := strings.TrimSpace(ev.Text)

	log.Info().
		Str("userID", ev.UserID).
		Str("text", text).
		Str("mode", h.modes.Get(ev.UserID).String()).
		Msg("Received text")

	switch text {
	case textNewsNow:
		h.handleNewsNow(ctx, ev)
	case textManageSubscription:
		reply, err := h.OpenManagementView(ctx, ev.UserID)
		h.respond(ev, reply, err)
	case textPushSettings:
		reply, err := h.OpenPushView(ctx, ev.UserID)
		h.respond(ev, reply, err)
	default:
		reply, consumed, err := h.HandleFreeText(ctx, ev.UserID, text)
		if !consumed && err == nil {
			reply = Reply{Text: text}
		}
		h.respond(ev, reply, err)
	}
}

// HandlePostback decodes the action data and dispatches it
func (h *Handler) HandlePostback(ctx context.Context, ev PostbackEvent) {
	cmd, err := ParseCommand(ev.Data)
	if err != nil {
		metrics.RecordError("invalid_action")
		log.Debug().Err(err).Str("userID", ev.UserID).Msg("Ignoring postback")
		return
	}

	log.Info().
		Str("userID", ev.UserID).
		Str("action", ev.Data).
		Msg("Received postback")

	var reply Reply
	switch {
	case cmd.IsSubscription():
		reply, err = h.handleSubscriptionCommand(ctx, ev.UserID, cmd)
	case cmd.IsPush():
		reply, err = h.handlePushCommand(ctx, ev.UserID, cmd, ev.Params)
	default:
		return
	}
	h.respond(ev, reply, err)
}

// respond sends reply, or a generic failure notice when the dialogue hit a storage error
func (h *Handler) respond(ev Event, reply Reply, err error) {
	if err != nil {
		if store.IsStorageError(err) {
			metrics.RecordError("storage")
		}
		log.Error().Err(err).Str("userID", ev.User()).Msg("Failed to handle event")
		reply = Reply{Text: replyStorageFailure}
	}
	if reply.Text == "" {
		return
	}
	if err := h.client.ReplyText(ev.Token(), reply.Text, reply.Menu); err != nil {
		metrics.RecordError("reply")
		log.Error().Err(err).Str("userID", ev.User()).Msg("Failed to send reply")
	}
}

// joinTopics renders topics for display
func joinTopics(topics []string) string {
	return strings.Join(topics, "、")
}
