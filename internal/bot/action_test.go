package bot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		data string
		want Command
	}{
		{data: "action=recommend_keywords", want: Command{Kind: CmdRecommendKeywords}},
		{data: "action=manage_subscription", want: Command{Kind: CmdManageSubscription}},
		{data: "action=start_add_subscription", want: Command{Kind: CmdStartAddSubscription}},
		{data: "action=subscribe&topic=地震", want: Command{Kind: CmdSubscribe, Topic: "地震"}},
		{data: "action=start_remove_subscription", want: Command{Kind: CmdStartRemoveSubscription}},
		{data: "action=unsubscribe&topic=颱風", want: Command{Kind: CmdUnsubscribe, Topic: "颱風"}},
		{data: "action=confirm_subscription", want: Command{Kind: CmdConfirmSubscription}},
		{data: "action=set_push_choice&topic=大雨&choice=push", want: Command{Kind: CmdSetPushChoice, Topic: "大雨", Choice: ChoicePush}},
		{data: "action=set_push_choice&topic=大雨&choice=cancel", want: Command{Kind: CmdSetPushChoice, Topic: "大雨", Choice: ChoiceCancel}},
		{data: "action=set_push_time", want: Command{Kind: CmdSetPushTime}},
		{data: "action=confirm_push", want: Command{Kind: CmdConfirmPush}},
		{data: "action=cancel_push", want: Command{Kind: CmdCancelPush}},
		{data: "action=subscribe&topic=R&D", want: Command{Kind: CmdSubscribe, Topic: "R&D"}},
		{data: "action=set_push_choice&topic=A&B&choice=push", want: Command{Kind: CmdSetPushChoice, Topic: "A&B", Choice: ChoicePush}},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			got, err := ParseCommand(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommand_Invalid(t *testing.T) {
	tests := []struct {
		data   string
		reason string
	}{
		{data: "", reason: "malformed segment"},
		{data: "hello", reason: "malformed segment"},
		{data: "topic=地震&action=subscribe", reason: "missing action"},
		{data: "action=dance", reason: "unknown action"},
		{data: "action=subscribe", reason: "missing topic"},
		{data: "action=unsubscribe&topic=", reason: "missing topic"},
		{data: "action=set_push_choice&topic=地震", reason: "unknown choice"},
		{data: "action=set_push_choice&choice=push", reason: "missing topic"},
		{data: "action=subscribe&topic=a&topic=b", reason: "duplicate key topic"},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			_, err := ParseCommand(tt.data)
			var invalid *InvalidActionError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Equal(t, tt.reason, invalid.Reason)
			assert.Equal(t, tt.data, invalid.Data)
		})
	}
}

func TestCommandGroups(t *testing.T) {
	assert.True(t, Command{Kind: CmdSubscribe}.IsSubscription())
	assert.False(t, Command{Kind: CmdSubscribe}.IsPush())
	assert.True(t, Command{Kind: CmdCancelPush}.IsPush())
	assert.False(t, Command{Kind: CmdUnknown}.IsSubscription())
	assert.False(t, Command{Kind: CmdUnknown}.IsPush())
	assert.True(t, Command{Kind: CmdSetPushChoice, Choice: ChoicePush}.Enabled())
	assert.False(t, Command{Kind: CmdSetPushChoice, Choice: ChoiceCancel}.Enabled())
}

func TestBuiltDataRoundTrips(t *testing.T) {
	cmd, err := ParseCommand(pushChoiceData("R&D", ChoiceCancel))
	require.NoError(t, err)
	assert.Equal(t, Command{Kind: CmdSetPushChoice, Topic: "R&D", Choice: ChoiceCancel}, cmd)

	cmd, err = ParseCommand(unsubscribeData("地震"))
	require.NoError(t, err)
	assert.Equal(t, Command{Kind: CmdUnsubscribe, Topic: "地震"}, cmd)
}

func TestActionData_EscapesFramingCharacters(t *testing.T) {
	assert.Equal(t, "action=subscribe&topic=地震", subscribeData("地震"))
	assert.Equal(t, "action=set_push_choice&topic=颱風&choice=push", pushChoiceData("颱風", ChoicePush))
	assert.Equal(t, "action=unsubscribe&topic=a%26choice%3Dpush", unsubscribeData("a&choice=push"))

	for _, topic := range []string{"a&choice=push", "x=y", "100%", "%26", "R&D=研發"} {
		cmd, err := ParseCommand(pushChoiceData(topic, ChoiceCancel))
		require.NoError(t, err, topic)
		assert.Equal(t, Command{Kind: CmdSetPushChoice, Topic: topic, Choice: ChoiceCancel}, cmd)

		cmd, err = ParseCommand(subscribeData(topic))
		require.NoError(t, err, topic)
		assert.Equal(t, topic, cmd.Topic)
	}
}
