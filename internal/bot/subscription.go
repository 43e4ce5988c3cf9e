package bot

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog/log"
	"github.com/user/news-push-bot/internal/conversation"
	"github.com/user/news-push-bot/internal/messaging"
	"github.com/user/news-push-bot/internal/metrics"
	"github.com/user/news-push-bot/internal/model"
)

// Catalog is the fixed list of topics offered by the add menu
var Catalog = []string{"大雨", "土石流", "地震", "颱風", "海嘯", "火災", "洪水", "暴風雪"}

// Recommendations is the static list shown by "recommend keywords"
var Recommendations = []string{"AI", "疫情", "豪大雨", "農業部", "缺電預警"}

// Menu labels
const (
	labelRecommend    = "🔥 推薦關鍵字"
	labelAdd          = "＋ 新增訂閱"
	labelRemove       = "🚫 取消訂閱"
	labelConfirmSetup = "✅ 完成設定"
	labelConfirmSubs  = "✅ 完成訂閱設定"
	labelBack         = "⬅ 返回"
)

const noSubscriptions = "目前沒有訂閱任何主題"

var removeDelimiters = regexp.MustCompile(`[、,，]`)

// OpenManagementView resets the user's mode and shows the subscription overview
func (h *Handler) OpenManagementView(ctx context.Context, userID string) (Reply, error) {
	h.modes.Reset(userID)

	current, err := h.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return Reply{}, err
	}

	menu := messaging.QuickMenu{messaging.Postback(labelRecommend, actionData(actionRecommendKeywords))}
	if len(availableTopics(current)) > 0 {
		menu = append(menu, messaging.Postback(labelAdd, actionData(actionStartAddSubscription)))
	}
	if len(current) > 0 {
		menu = append(menu, messaging.Postback(labelRemove, actionData(actionStartRemoveSubscription)))
	}
	menu = append(menu, messaging.Postback(labelConfirmSetup, actionData(actionConfirmSubscription)))

	return Reply{
		Text: fmt.Sprintf("你目前的訂閱：\n%s\n請選擇操作：", summary(current)),
		Menu: menu,
	}, nil
}

// handleSubscriptionCommand runs a subscription postback
func (h *Handler) handleSubscriptionCommand(ctx context.Context, userID string, cmd Command) (Reply, error) {
	switch cmd.Kind {
	case CmdRecommendKeywords:
		menu := make(messaging.QuickMenu, 0, len(Recommendations)+1)
		for _, k := range Recommendations {
			menu = append(menu, messaging.Postback(k, subscribeData(k)))
		}
		menu = append(menu, messaging.Postback(labelBack, actionData(actionManageSubscription)))
		return Reply{Text: "系統推薦關鍵字，請選擇要訂閱：", Menu: menu}, nil

	case CmdManageSubscription:
		return h.OpenManagementView(ctx, userID)

	case CmdStartAddSubscription:
		h.modes.Set(userID, conversation.Adding)
		current, err := h.store.ListSubscriptions(ctx, userID)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: "請選擇要新增的訂閱主題：", Menu: addMenu(current)}, nil

	case CmdSubscribe:
		current, err := h.subscribe(ctx, userID, cmd.Topic)
		if err != nil {
			return Reply{}, err
		}
		return Reply{
			Text: fmt.Sprintf("你目前的訂閱：\n%s\n請選擇操作：", summary(current)),
			Menu: addMenu(current),
		}, nil

	case CmdStartRemoveSubscription:
		h.modes.Set(userID, conversation.Removing)
		current, err := h.store.ListSubscriptions(ctx, userID)
		if err != nil {
			return Reply{}, err
		}
		if len(current) == 0 {
			return Reply{Text: "目前沒有訂閱任何主題可以取消"}, nil
		}
		menu := make(messaging.QuickMenu, 0, len(current)+1)
		for _, t := range current {
			menu = append(menu, messaging.Postback(t, unsubscribeData(t)))
		}
		menu = append(menu, messaging.Postback(labelConfirmSubs, actionData(actionConfirmSubscription)).Pin())
		return Reply{Text: "請選擇要取消的訂閱主題：", Menu: menu}, nil

	case CmdUnsubscribe:
		if err := h.store.RemoveSubscription(ctx, userID, cmd.Topic); err != nil {
			return Reply{}, err
		}
		metrics.RecordSubscriptionChange("remove")
		current, err := h.store.ListSubscriptions(ctx, userID)
		if err != nil {
			return Reply{}, err
		}
		return Reply{
			Text: fmt.Sprintf("你目前的訂閱：\n%s\n請選擇操作：", summary(current)),
			Menu: unsubscribeMenu(current),
		}, nil

	case CmdConfirmSubscription:
		h.modes.Reset(userID)
		current, err := h.store.ListSubscriptions(ctx, userID)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: fmt.Sprintf("你目前的訂閱：\n%s\n已完成訂閱設定", summary(current))}, nil
	}
	return Reply{}, nil
}

// HandleFreeText consumes text only while the user is adding or removing topics.
// It returns consumed=false otherwise so the caller can fall back to echoing.
func (h *Handler) HandleFreeText(ctx context.Context, userID, text string) (Reply, bool, error) {
	switch h.modes.Get(userID) {
	case conversation.Adding:
		reply, err := h.addFromText(ctx, userID, strings.TrimSpace(text))
		return reply, true, err
	case conversation.Removing:
		reply, err := h.removeFromText(ctx, userID, text)
		return reply, true, err
	default:
		return Reply{}, false, nil
	}
}

// addFromText subscribes to the whole text as one topic and stays in Adding
func (h *Handler) addFromText(ctx context.Context, userID, topic string) (Reply, error) {
	current, err := h.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return Reply{}, err
	}

	if topic == "" {
		return Reply{Text: "未偵測到有效主題。", Menu: addMenu(current)}, nil
	}
	if err := validation.Validate(topic, validation.RuneLength(1, model.MaxTopicRunes)); err != nil {
		log.Debug().Str("userID", userID).Int("runes", len([]rune(topic))).Msg("Rejected topic")
		return Reply{Text: fmt.Sprintf("主題過長，請輸入 %d 字以內的主題。", model.MaxTopicRunes), Menu: addMenu(current)}, nil
	}

	var actionMsg string
	if slices.Contains(current, topic) {
		actionMsg = fmt.Sprintf("你已經訂閱過「%s」。", topic)
	} else {
		if current, err = h.subscribe(ctx, userID, topic); err != nil {
			return Reply{}, err
		}
		actionMsg = fmt.Sprintf("你已成功訂閱「%s」。", topic)
	}

	return Reply{
		Text: fmt.Sprintf("%s\n你目前的訂閱：\n%s\n請繼續新增或其他操作：", actionMsg, summary(current)),
		Menu: addMenu(current),
	}, nil
}

// removeFromText unsubscribes every listed topic, then returns to the management view
func (h *Handler) removeFromText(ctx context.Context, userID, text string) (Reply, error) {
	current, err := h.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return Reply{}, err
	}

	var removed, missing []string
	for _, token := range splitTopics(text) {
		if !slices.Contains(current, token) {
			missing = append(missing, token)
			continue
		}
		if err := h.store.RemoveSubscription(ctx, userID, token); err != nil {
			return Reply{}, err
		}
		metrics.RecordSubscriptionChange("remove")
		current = slices.DeleteFunc(current, func(t string) bool { return t == token })
		removed = append(removed, token)
	}

	log.Info().
		Str("userID", userID).
		Strs("removed", removed).
		Strs("missing", missing).
		Msg("Removed subscriptions from text")

	view, err := h.OpenManagementView(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	view.Text = removalReport(removed, missing) + "\n" + view.Text
	return view, nil
}

func (h *Handler) subscribe(ctx context.Context, userID, topic string) ([]string, error) {
	if err := h.store.AddSubscription(ctx, userID, topic); err != nil {
		return nil, err
	}
	metrics.RecordSubscriptionChange("add")
	log.Info().Str("userID", userID).Str("topic", topic).Msg("Subscription added")
	return h.store.ListSubscriptions(ctx, userID)
}

// addMenu lists unsubscribed catalog topics followed by remove and confirm shortcuts
func addMenu(current []string) messaging.QuickMenu {
	available := availableTopics(current)
	menu := make(messaging.QuickMenu, 0, len(available)+2)
	for _, t := range available {
		menu = append(menu, messaging.Postback(t, subscribeData(t)))
	}
	if len(current) > 0 {
		menu = append(menu, messaging.Postback(labelRemove, actionData(actionStartRemoveSubscription)).Pin())
	}
	return append(menu, messaging.Postback(labelConfirmSubs, actionData(actionConfirmSubscription)).Pin())
}

// unsubscribeMenu lists remaining subscriptions, an add shortcut and confirm
func unsubscribeMenu(current []string) messaging.QuickMenu {
	menu := make(messaging.QuickMenu, 0, len(current)+2)
	for _, t := range current {
		menu = append(menu, messaging.Postback(t, unsubscribeData(t)))
	}
	if len(current) == 0 || len(availableTopics(current)) > 0 {
		menu = append(menu, messaging.Postback(labelAdd, actionData(actionStartAddSubscription)).Pin())
	}
	return append(menu, messaging.Postback(labelConfirmSubs, actionData(actionConfirmSubscription)).Pin())
}

// availableTopics returns catalog topics the user is not subscribed to, in catalog order
func availableTopics(current []string) []string {
	var available []string
	for _, t := range Catalog {
		if !slices.Contains(current, t) {
			available = append(available, t)
		}
	}
	return available
}

func summary(current []string) string {
	if len(current) == 0 {
		return noSubscriptions
	}
	return joinTopics(current)
}

// splitTopics splits free text on 、 , and ，, dropping blanks
func splitTopics(text string) []string {
	var tokens []string
	for _, t := range removeDelimiters.Split(text, -1) {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

func removalReport(removed, missing []string) string {
	var parts []string
	if len(removed) > 0 {
		parts = append(parts, fmt.Sprintf("已取消訂閱「%s」", joinTopics(removed)))
	}
	if len(missing) > 0 {
		parts = append(parts, fmt.Sprintf("未訂閱過「%s」", joinTopics(missing)))
	}
	if len(parts) == 0 {
		return "未偵測到有效主題。"
	}
	return strings.Join(parts, "；")
}
