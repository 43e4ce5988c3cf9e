package messaging

import (
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/rs/zerolog/log"
)

const (
	// maxReplyMessages is the most messages one reply token may carry
	maxReplyMessages = 5
	// maxQuickReplyItems is the most quick reply buttons per message
	maxQuickReplyItems = 13
	// maxLabelRunes is the longest action label the platform accepts
	maxLabelRunes = 20
)

// LineClient implements Client with the LINE Messaging API
type LineClient struct {
	api *messaging_api.MessagingApiAPI
}

var _ Client = (*LineClient)(nil)

// NewLineClient creates a LINE messaging client
func NewLineClient(channelAccessToken string, options ...messaging_api.MessagingApiAPIOption) (*LineClient, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelAccessToken, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LINE client: %w", err)
	}
	return &LineClient{api: api}, nil
}

// ReplyText replies with a text message and an optional quick menu
func (c *LineClient) ReplyText(replyToken, text string, menu QuickMenu) error {
	msg := &messaging_api.TextMessage{
		Text:       text,
		QuickReply: quickReply(menu),
	}
	_, err := c.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   []messaging_api.MessageInterface{msg},
	})
	if err != nil {
		return fmt.Errorf("failed to reply text: %w", err)
	}
	return nil
}

// ReplyCarousel replies with bubbles split into carousels of at most ten.
// A reply carries at most five messages, so anything beyond fifty bubbles is dropped.
func (c *LineClient) ReplyCarousel(replyToken, altText string, bubbles []Bubble) error {
	chunks := ChunkBubbles(bubbles, MaxCarouselBubbles)
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) > maxReplyMessages {
		log.Warn().
			Int("bubbles", len(bubbles)).
			Int("kept", maxReplyMessages*MaxCarouselBubbles).
			Msg("Reply carousel truncated")
		chunks = chunks[:maxReplyMessages]
	}

	messages := make([]messaging_api.MessageInterface, 0, len(chunks))
	for _, chunk := range chunks {
		messages = append(messages, flexMessage(altText, chunk))
	}

	_, err := c.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	if err != nil {
		return fmt.Errorf("failed to reply carousel: %w", err)
	}
	return nil
}

// PushCarousel pushes a single carousel of at most ten bubbles to a user
func (c *LineClient) PushCarousel(to, altText string, bubbles []Bubble) error {
	if len(bubbles) == 0 {
		return nil
	}
	if len(bubbles) > MaxCarouselBubbles {
		return fmt.Errorf("carousel has %d bubbles, limit is %d", len(bubbles), MaxCarouselBubbles)
	}

	_, err := c.api.PushMessage(&messaging_api.PushMessageRequest{
		To:       to,
		Messages: []messaging_api.MessageInterface{flexMessage(altText, bubbles)},
	}, "")
	if err != nil {
		return fmt.Errorf("failed to push carousel: %w", err)
	}
	return nil
}

// flexMessage wraps bubbles into one carousel message
func flexMessage(altText string, bubbles []Bubble) *messaging_api.FlexMessage {
	return &messaging_api.FlexMessage{
		AltText:  altText,
		Contents: &messaging_api.FlexCarousel{Contents: bubbles},
	}
}

// quickReply renders a menu trimmed to the platform limit, keeping pinned actions
func quickReply(menu QuickMenu) *messaging_api.QuickReply {
	if len(menu) == 0 {
		return nil
	}
	if len(menu) > maxQuickReplyItems {
		log.Warn().Int("items", len(menu)).Msg("Quick reply trimmed")
		menu = menu.Trim(maxQuickReplyItems)
	}

	items := make([]messaging_api.QuickReplyItem, 0, len(menu))
	for _, a := range menu {
		items = append(items, messaging_api.QuickReplyItem{Action: toAction(a)})
	}
	return &messaging_api.QuickReply{Items: items}
}

func toAction(a Action) messaging_api.ActionInterface {
	label := truncateLabel(a.Label)
	switch a.Kind {
	case TimePickerAction:
		return &messaging_api.DatetimePickerAction{
			Label:   label,
			Data:    a.Data,
			Mode:    messaging_api.DatetimePickerActionMODE_TIME,
			Initial: a.Initial,
			Min:     a.Min,
			Max:     a.Max,
		}
	default:
		return &messaging_api.PostbackAction{
			Label: label,
			Data:  a.Data,
		}
	}
}

func truncateLabel(label string) string {
	runes := []rune(label)
	if len(runes) <= maxLabelRunes {
		return label
	}
	return string(runes[:maxLabelRunes])
}
