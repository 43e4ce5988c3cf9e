package push

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/user/news-push-bot/internal/messaging"
	"github.com/user/news-push-bot/internal/model"
	"github.com/user/news-push-bot/internal/news"
)

// Alt texts shown by clients that cannot render flex messages
const (
	AltTextNow       = "即時新聞"
	AltTextScheduled = "定時新聞推播"
)

const openNewsLabel = "開啟新聞"

// HeadlineBubble renders one headline as a micro bubble with an "open" button
func HeadlineBubble(topic string, h model.Headline) messaging.Bubble {
	return messaging.Bubble{
		Size: messaging_api.FlexBubbleSIZE_MICRO,
		Body: &messaging_api.FlexBox{
			Layout: messaging_api.FlexBoxLAYOUT_VERTICAL,
			Contents: []messaging_api.FlexComponentInterface{
				&messaging_api.FlexText{Text: topic, Weight: messaging_api.FlexTextWEIGHT_BOLD, Size: "md", Margin: "md"},
				&messaging_api.FlexText{Text: h.Title, Size: "sm", Weight: messaging_api.FlexTextWEIGHT_BOLD, Wrap: true, Margin: "sm"},
			},
		},
		Footer: &messaging_api.FlexBox{
			Layout: messaging_api.FlexBoxLAYOUT_VERTICAL,
			Contents: []messaging_api.FlexComponentInterface{
				&messaging_api.FlexButton{
					Action:  &messaging_api.UriAction{Label: openNewsLabel, Uri: h.URL},
					Style:   messaging_api.FlexButtonSTYLE_PRIMARY,
					Height:  messaging_api.FlexButtonHEIGHT_SM,
					Gravity: messaging_api.FlexButtonGRAVITY_CENTER,
					Margin:  "md",
				},
			},
			Spacing:    "sm",
			PaddingAll: "10px",
		},
	}
}

// BuildBubbles flattens per-topic results into bubbles, topic by topic
func BuildBubbles(results []news.TopicHeadlines) []messaging.Bubble {
	var bubbles []messaging.Bubble
	for _, r := range results {
		for _, h := range r.Headlines {
			bubbles = append(bubbles, HeadlineBubble(r.Topic, h))
		}
	}
	return bubbles
}
