package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/user/news-push-bot/internal/messaging"
	"github.com/user/news-push-bot/internal/push"
)

// ErrMissingTime is reported when set_push_time arrives without a usable time
var ErrMissingTime = errors.New("push time parameter missing")

const (
	labelSetPushTime  = "設定推播時間"
	labelConfirmPush  = "完成推播設定"
	pushTimeParam     = "time"
	pickerMin         = "00:00"
	pickerMax         = "23:59"
	pushTimeLayout    = "15:04"
	replyNoSubsToPush = "目前沒有訂閱主題，請先新增訂閱"
	replyPushTimeFail = "設定推播時間失敗"
)

// OpenPushView shows which subscribed topics are pushed and when
func (h *Handler) OpenPushView(ctx context.Context, userID string) (Reply, error) {
	subs, err := h.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	if len(subs) == 0 {
		return noSubscriptionsReply(), nil
	}
	return h.pushStatus(ctx, userID)
}

// handlePushCommand runs a push settings postback
func (h *Handler) handlePushCommand(ctx context.Context, userID string, cmd Command, params map[string]string) (Reply, error) {
	switch cmd.Kind {
	case CmdSetPushChoice:
		if err := h.store.SetPushChoice(ctx, userID, cmd.Topic, cmd.Enabled()); err != nil {
			return Reply{}, err
		}
		enabled, err := push.EnabledTopics(ctx, h.store, userID)
		if err != nil {
			return Reply{}, err
		}
		if len(enabled) == 0 {
			if err := h.store.SetPushTime(ctx, userID, nil); err != nil {
				return Reply{}, err
			}
		}
		log.Info().
			Str("userID", userID).
			Str("topic", cmd.Topic).
			Bool("enabled", cmd.Enabled()).
			Msg("Push choice updated")
		return h.pushStatus(ctx, userID)

	case CmdSetPushTime:
		return h.setPushTime(ctx, userID, params)

	case CmdConfirmPush:
		enabled, err := push.EnabledTopics(ctx, h.store, userID)
		if err != nil {
			return Reply{}, err
		}
		if len(enabled) == 0 {
			return Reply{Text: "已完成所有推播設定，但目前沒有任何主題設定為推播。"}, nil
		}
		pushTime, err := h.store.GetPushTime(ctx, userID)
		if err != nil {
			return Reply{}, err
		}
		ts := joinTopics(enabled)
		if pushTime == nil {
			return Reply{Text: fmt.Sprintf("設定 %s 推播的訂閱主題\n尚未設定推播時間\n已完成所有推播設定", ts)}, nil
		}
		return Reply{Text: fmt.Sprintf("設定 %s 推播的訂閱主題\n%s 將會推播 %s 的資訊\n已完成所有推播設定", ts, *pushTime, ts)}, nil

	case CmdCancelPush:
		if err := h.cancelPush(ctx, userID); err != nil {
			return Reply{}, err
		}
		return Reply{Text: "已取消推播設定"}, nil
	}
	return Reply{}, nil
}

// setPushTime stores the picked time. Without a valid time, or without any enabled
// topic to push, nothing changes and a failure notice is returned.
func (h *Handler) setPushTime(ctx context.Context, userID string, params map[string]string) (Reply, error) {
	t, err := parsePushTime(params)
	if err != nil {
		log.Warn().Err(err).Str("userID", userID).Msg("Rejected push time")
		return Reply{Text: replyPushTimeFail}, nil
	}

	enabled, err := push.EnabledTopics(ctx, h.store, userID)
	if err != nil {
		return Reply{}, err
	}
	if len(enabled) == 0 {
		log.Warn().Str("userID", userID).Msg("Push time set without enabled topics")
		return Reply{Text: replyPushTimeFail}, nil
	}

	if err := h.store.SetPushTime(ctx, userID, &t); err != nil {
		return Reply{}, err
	}
	log.Info().Str("userID", userID).Str("time", t).Msg("Push time updated")

	menu, err := h.pushMenu(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Text: fmt.Sprintf("%s 將會傳送 %s 的資訊給你", t, joinTopics(enabled)),
		Menu: menu,
	}, nil
}

// cancelPush disables every topic the user has and clears the schedule
func (h *Handler) cancelPush(ctx context.Context, userID string) error {
	subs, err := h.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return err
	}
	choices, err := h.store.ListPushTopics(ctx, userID)
	if err != nil {
		return err
	}

	topics := subs
	for topic, enabled := range choices {
		if enabled {
			topics = append(topics, topic)
		}
	}
	seen := make(map[string]bool, len(topics))
	for _, topic := range topics {
		if seen[topic] {
			continue
		}
		seen[topic] = true
		if err := h.store.SetPushChoice(ctx, userID, topic, false); err != nil {
			return err
		}
	}

	log.Info().Str("userID", userID).Msg("Push settings cancelled")
	return h.store.SetPushTime(ctx, userID, nil)
}

// pushStatus composes the status text and the toggle menu
func (h *Handler) pushStatus(ctx context.Context, userID string) (Reply, error) {
	enabled, err := push.EnabledTopics(ctx, h.store, userID)
	if err != nil {
		return Reply{}, err
	}

	text := "請選擇要推播的訂閱主題:"
	if len(enabled) > 0 {
		for _, t := range enabled {
			text += fmt.Sprintf("\n%s: 推播", t)
		}
		pushTime, err := h.store.GetPushTime(ctx, userID)
		if err != nil {
			return Reply{}, err
		}
		if pushTime != nil {
			text += fmt.Sprintf("\n%s 將會傳送 %s 的資訊給你", *pushTime, joinTopics(enabled))
		}
	}

	menu, err := h.pushMenu(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: text, Menu: menu}, nil
}

// pushMenu builds one toggle per subscription, a time picker while something
// is enabled, and a confirm action. A toggle's label describes the current state.
func (h *Handler) pushMenu(ctx context.Context, userID string) (messaging.QuickMenu, error) {
	subs, err := h.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, err
	}
	choices, err := h.store.ListPushTopics(ctx, userID)
	if err != nil {
		return nil, err
	}

	menu := make(messaging.QuickMenu, 0, len(subs)+2)
	anyEnabled := false
	for _, t := range subs {
		if choices[t] {
			anyEnabled = true
			menu = append(menu, messaging.Postback(t+"主題不推播", pushChoiceData(t, ChoiceCancel)))
		} else {
			menu = append(menu, messaging.Postback(t+"主題推播", pushChoiceData(t, ChoicePush)))
		}
	}

	if anyEnabled {
		initial, err := h.pickerInitial(ctx, userID)
		if err != nil {
			return nil, err
		}
		menu = append(menu, messaging.TimePicker(labelSetPushTime, actionData(actionSetPushTime), initial, pickerMin, pickerMax).Pin())
	}
	return append(menu, messaging.Postback(labelConfirmPush, actionData(actionConfirmPush)).Pin()), nil
}

// pickerInitial is the stored push time, or one minute from now
func (h *Handler) pickerInitial(ctx context.Context, userID string) (string, error) {
	pushTime, err := h.store.GetPushTime(ctx, userID)
	if err != nil {
		return "", err
	}
	if pushTime != nil {
		return *pushTime, nil
	}
	return h.clock.Now().In(h.location).Add(time.Minute).Format(pushTimeLayout), nil
}

// parsePushTime extracts and normalizes the "HH:MM" picker value
func parsePushTime(params map[string]string) (string, error) {
	raw := params[pushTimeParam]
	if raw == "" {
		return "", ErrMissingTime
	}
	t, err := time.Parse(pushTimeLayout, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMissingTime, raw)
	}
	return t.Format(pushTimeLayout), nil
}

func noSubscriptionsReply() Reply {
	return Reply{
		Text: replyNoSubsToPush,
		Menu: messaging.QuickMenu{messaging.Postback(labelAdd, actionData(actionStartAddSubscription))},
	}
}
