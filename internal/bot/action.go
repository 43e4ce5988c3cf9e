package bot

import (
	"fmt"
	"strings"
)

// CommandKind identifies a postback action
type CommandKind int

const (
	CmdUnknown CommandKind = iota
	CmdRecommendKeywords
	CmdManageSubscription
	CmdStartAddSubscription
	CmdSubscribe
	CmdStartRemoveSubscription
	CmdUnsubscribe
	CmdConfirmSubscription
	CmdSetPushChoice
	CmdSetPushTime
	CmdConfirmPush
	CmdCancelPush
)

// Action names as they appear on the wire
const (
	actionRecommendKeywords       = "recommend_keywords"
	actionManageSubscription      = "manage_subscription"
	actionStartAddSubscription    = "start_add_subscription"
	actionSubscribe               = "subscribe"
	actionStartRemoveSubscription = "start_remove_subscription"
	actionUnsubscribe             = "unsubscribe"
	actionConfirmSubscription     = "confirm_subscription"
	actionSetPushChoice           = "set_push_choice"
	actionSetPushTime             = "set_push_time"
	actionConfirmPush             = "confirm_push"
	actionCancelPush              = "cancel_push"
)

var commandKinds = map[string]CommandKind{
	actionRecommendKeywords:       CmdRecommendKeywords,
	actionManageSubscription:      CmdManageSubscription,
	actionStartAddSubscription:    CmdStartAddSubscription,
	actionSubscribe:               CmdSubscribe,
	actionStartRemoveSubscription: CmdStartRemoveSubscription,
	actionUnsubscribe:             CmdUnsubscribe,
	actionConfirmSubscription:     CmdConfirmSubscription,
	actionSetPushChoice:           CmdSetPushChoice,
	actionSetPushTime:             CmdSetPushTime,
	actionConfirmPush:             CmdConfirmPush,
	actionCancelPush:              CmdCancelPush,
}

// Topic values escape only the characters that would break "key=value&..."
// framing, so ordinary topics travel unchanged.
var (
	valueEscaper   = strings.NewReplacer("%", "%25", "&", "%26", "=", "%3D")
	valueUnescaper = strings.NewReplacer("%25", "%", "%26", "&", "%3D", "=", "%3d", "=")
)

// Push choices carried by set_push_choice
const (
	ChoicePush   = "push"
	ChoiceCancel = "cancel"
)

// Command is a decoded postback action
type Command struct {
	Kind   CommandKind
	Topic  string
	Choice string
}

// IsSubscription reports whether the command belongs to the subscription dialogue
func (c Command) IsSubscription() bool {
	return c.Kind >= CmdRecommendKeywords && c.Kind <= CmdConfirmSubscription
}

// IsPush reports whether the command belongs to the push settings dialogue
func (c Command) IsPush() bool {
	return c.Kind >= CmdSetPushChoice && c.Kind <= CmdCancelPush
}

// Enabled reports whether a set_push_choice command turns push on
func (c Command) Enabled() bool {
	return c.Choice == ChoicePush
}

// InvalidActionError is returned for postback data that cannot be decoded
type InvalidActionError struct {
	Data   string
	Reason string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action %q: %s", e.Data, e.Reason)
}

// ParseCommand decodes an "action=...&key=value" postback string.
// Topics are unescaped; a segment without "=" still belongs to the previous
// value so hand-written data such as "topic=R&D" keeps working.
func ParseCommand(data string) (Command, error) {
	fields := map[string]string{}
	var order []string
	for _, seg := range strings.Split(data, "&") {
		key, value, ok := strings.Cut(seg, "=")
		if !ok {
			if len(order) == 0 {
				return Command{}, &InvalidActionError{Data: data, Reason: "malformed segment"}
			}
			last := order[len(order)-1]
			fields[last] += "&" + seg
			continue
		}
		if _, dup := fields[key]; dup {
			return Command{}, &InvalidActionError{Data: data, Reason: "duplicate key " + key}
		}
		fields[key] = value
		order = append(order, key)
	}

	if len(order) == 0 || order[0] != "action" {
		return Command{}, &InvalidActionError{Data: data, Reason: "missing action"}
	}
	kind, ok := commandKinds[fields["action"]]
	if !ok {
		return Command{}, &InvalidActionError{Data: data, Reason: "unknown action"}
	}

	cmd := Command{
		Kind:   kind,
		Topic:  valueUnescaper.Replace(fields["topic"]),
		Choice: fields["choice"],
	}
	switch kind {
	case CmdSubscribe, CmdUnsubscribe:
		if cmd.Topic == "" {
			return Command{}, &InvalidActionError{Data: data, Reason: "missing topic"}
		}
	case CmdSetPushChoice:
		if cmd.Topic == "" {
			return Command{}, &InvalidActionError{Data: data, Reason: "missing topic"}
		}
		if cmd.Choice != ChoicePush && cmd.Choice != ChoiceCancel {
			return Command{}, &InvalidActionError{Data: data, Reason: "unknown choice"}
		}
	}
	return cmd, nil
}

func actionData(action string) string {
	return "action=" + action
}

func subscribeData(topic string) string {
	return actionData(actionSubscribe) + "&topic=" + valueEscaper.Replace(topic)
}

func unsubscribeData(topic string) string {
	return actionData(actionUnsubscribe) + "&topic=" + valueEscaper.Replace(topic)
}

func pushChoiceData(topic, choice string) string {
	return actionData(actionSetPushChoice) + "&topic=" + valueEscaper.Replace(topic) + "&choice=" + choice
}
