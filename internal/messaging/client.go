package messaging

import "github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

// MaxCarouselBubbles is the most bubbles one carousel message may carry
const MaxCarouselBubbles = 10

// Bubble is one card of a flex carousel
type Bubble = messaging_api.FlexBubble

// ActionKind tells how a quick menu action is rendered
type ActionKind int

const (
	// PostbackAction sends Data back as a postback event
	PostbackAction ActionKind = iota
	// TimePickerAction opens a time picker and posts Data with the chosen time
	TimePickerAction
)

// Action is one labeled entry of a quick menu
type Action struct {
	Kind  ActionKind
	Label string
	Data  string

	// Time picker bounds, "HH:MM"
	Initial string
	Min     string
	Max     string

	// Pinned actions survive trimming when a menu exceeds the platform limit
	Pinned bool
}

// Pin marks the action as one that must never be trimmed
func (a Action) Pin() Action {
	a.Pinned = true
	return a
}

// QuickMenu is an ordered list of actions attached to a reply
type QuickMenu []Action

// Postback creates a postback action
func Postback(label, data string) Action {
	return Action{Kind: PostbackAction, Label: label, Data: data}
}

// TimePicker creates a time picker action bounded by min and max
func TimePicker(label, data, initial, min, max string) Action {
	return Action{Kind: TimePickerAction, Label: label, Data: data, Initial: initial, Min: min, Max: max}
}

// Trim returns at most limit actions. Every pinned action is kept and the
// remaining room goes to unpinned actions in menu order.
func (m QuickMenu) Trim(limit int) QuickMenu {
	if len(m) <= limit {
		return m
	}
	pinned := 0
	for _, a := range m {
		if a.Pinned {
			pinned++
		}
	}
	room := max(limit-pinned, 0)

	trimmed := make(QuickMenu, 0, limit)
	for _, a := range m {
		switch {
		case a.Pinned:
			trimmed = append(trimmed, a)
		case room > 0:
			trimmed = append(trimmed, a)
			room--
		}
	}
	if len(trimmed) > limit {
		trimmed = trimmed[len(trimmed)-limit:]
	}
	return trimmed
}

// Client sends replies and pushes through the messaging platform
type Client interface {
	ReplyText(replyToken, text string, menu QuickMenu) error
	ReplyCarousel(replyToken, altText string, bubbles []Bubble) error
	PushCarousel(to, altText string, bubbles []Bubble) error
}

// ChunkBubbles splits bubbles into groups of at most size
func ChunkBubbles(bubbles []Bubble, size int) [][]Bubble {
	if size <= 0 {
		size = MaxCarouselBubbles
	}
	var chunks [][]Bubble
	for start := 0; start < len(bubbles); start += size {
		end := min(start+size, len(bubbles))
		chunks = append(chunks, bubbles[start:end])
	}
	return chunks
}
