package bot

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/news-push-bot/internal/messaging"
	"github.com/user/news-push-bot/internal/push"
)

func TestOpenPushView_NoSubscriptions(t *testing.T) {
	f := newFixture(t, nil)

	f.text("U1", "推播訊息")

	reply := f.client.last(t)
	assert.Equal(t, "目前沒有訂閱主題，請先新增訂閱", reply.text)
	assert.Equal(t, []string{"action=start_add_subscription"}, menuData(reply.menu))
}

func TestOpenPushView_NothingEnabled(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "U1", "颱風", "地震")

	f.text("U1", "推播訊息")

	reply := f.client.last(t)
	assert.Equal(t, "請選擇要推播的訂閱主題:", reply.text)
	assert.Equal(t, []string{"颱風主題推播", "地震主題推播", "完成推播設定"}, menuLabels(reply.menu))
	assert.Equal(t, []string{
		"action=set_push_choice&topic=颱風&choice=push",
		"action=set_push_choice&topic=地震&choice=push",
		"action=confirm_push",
	}, menuData(reply.menu))
}

// Toggle 颱風 on, pick 14:30, toggle it off again.
func TestScenario_PushToggleAndTime(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "U1", "颱風", "地震")

	f.postback("U1", "action=set_push_choice&topic=颱風&choice=push", nil)

	reply := f.client.last(t)
	assert.Equal(t, "請選擇要推播的訂閱主題:\n颱風: 推播", reply.text)
	assert.Equal(t, []string{"颱風主題不推播", "地震主題推播", "設定推播時間", "完成推播設定"}, menuLabels(reply.menu))
	picker := reply.menu[2]
	assert.Equal(t, messaging.TimePickerAction, picker.Kind)
	assert.Equal(t, "action=set_push_time", picker.Data)
	assert.Equal(t, "09:01", picker.Initial)
	assert.Equal(t, "00:00", picker.Min)
	assert.Equal(t, "23:59", picker.Max)

	f.postback("U1", "action=set_push_time", map[string]string{"time": "14:30"})

	require.NotNil(t, f.pushTime(t, "U1"))
	assert.Equal(t, "14:30", *f.pushTime(t, "U1"))
	reply = f.client.last(t)
	assert.Equal(t, "14:30 將會傳送 颱風 的資訊給你", reply.text)
	assert.Equal(t, "14:30", reply.menu[2].Initial)

	f.text("U1", "推播訊息")
	assert.Equal(t, "請選擇要推播的訂閱主題:\n颱風: 推播\n14:30 將會傳送 颱風 的資訊給你", f.client.last(t).text)

	f.postback("U1", "action=set_push_choice&topic=颱風&choice=cancel", nil)

	assert.Nil(t, f.pushTime(t, "U1"))
	assert.Equal(t, map[string]bool{"颱風": false}, f.choices(t, "U1"))
	reply = f.client.last(t)
	assert.Equal(t, "請選擇要推播的訂閱主題:", reply.text)
	assert.Equal(t, []string{"颱風主題推播", "地震主題推播", "完成推播設定"}, menuLabels(reply.menu))
}

func TestSetPushChoice_KeepsTimeWhileAnotherTopicEnabled(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "U1", "颱風", "地震")

	f.postback("U1", "action=set_push_choice&topic=颱風&choice=push", nil)
	f.postback("U1", "action=set_push_choice&topic=地震&choice=push", nil)
	f.postback("U1", "action=set_push_time", map[string]string{"time": "08:00"})
	f.postback("U1", "action=set_push_choice&topic=颱風&choice=cancel", nil)

	require.NotNil(t, f.pushTime(t, "U1"))
	assert.Equal(t, "08:00", *f.pushTime(t, "U1"))
	assert.Equal(t, "請選擇要推播的訂閱主題:\n地震: 推播\n08:00 將會傳送 地震 的資訊給你", f.client.last(t).text)
}

func TestSetPushTime_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		enable bool
		params map[string]string
	}{
		{name: "missing params", enable: true, params: nil},
		{name: "missing time", enable: true, params: map[string]string{"date": "2025-06-01"}},
		{name: "invalid time", enable: true, params: map[string]string{"time": "25:99"}},
		{name: "no enabled topic", enable: false, params: map[string]string{"time": "07:15"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.seed(t, "U1", "颱風")
			if tt.enable {
				require.NoError(t, f.store.MemoryStore.SetPushChoice(f.ctx, "U1", "颱風", true))
			}

			f.postback("U1", "action=set_push_time", tt.params)

			reply := f.client.last(t)
			assert.Equal(t, "設定推播時間失敗", reply.text)
			assert.Empty(t, reply.menu)
			assert.Nil(t, f.pushTime(t, "U1"))
		})
	}
}

func TestConfirmPush(t *testing.T) {
	t.Run("nothing enabled", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seed(t, "U1", "颱風")

		f.postback("U1", "action=confirm_push", nil)
		assert.Equal(t, "已完成所有推播設定，但目前沒有任何主題設定為推播。", f.client.last(t).text)
	})

	t.Run("enabled without time", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seed(t, "U1", "颱風", "地震")
		require.NoError(t, f.store.MemoryStore.SetPushChoice(f.ctx, "U1", "颱風", true))
		require.NoError(t, f.store.MemoryStore.SetPushChoice(f.ctx, "U1", "地震", true))

		f.postback("U1", "action=confirm_push", nil)
		assert.Equal(t, "設定 颱風、地震 推播的訂閱主題\n尚未設定推播時間\n已完成所有推播設定", f.client.last(t).text)
	})

	t.Run("enabled with time", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seed(t, "U1", "颱風")
		f.postback("U1", "action=set_push_choice&topic=颱風&choice=push", nil)
		f.postback("U1", "action=set_push_time", map[string]string{"time": "07:05"})

		f.postback("U1", "action=confirm_push", nil)
		assert.Equal(t, "設定 颱風 推播的訂閱主題\n07:05 將會推播 颱風 的資訊\n已完成所有推播設定", f.client.last(t).text)
	})
}

func TestCancelPush(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "U1", "颱風", "地震")
	f.postback("U1", "action=set_push_choice&topic=颱風&choice=push", nil)
	f.postback("U1", "action=set_push_choice&topic=地震&choice=push", nil)
	f.postback("U1", "action=set_push_time", map[string]string{"time": "21:00"})

	f.postback("U1", "action=cancel_push", nil)

	assert.Equal(t, "已取消推播設定", f.client.last(t).text)
	assert.Nil(t, f.pushTime(t, "U1"))
	assert.Equal(t, map[string]bool{"颱風": false, "地震": false}, f.choices(t, "U1"))

	enabled, err := push.EnabledTopics(f.ctx, f.store, "U1")
	require.NoError(t, err)
	assert.Empty(t, enabled)
}

func TestParsePushTime(t *testing.T) {
	got, err := parsePushTime(map[string]string{"time": "7:05"})
	require.NoError(t, err)
	assert.Equal(t, "07:05", got)

	_, err = parsePushTime(map[string]string{"time": "noon"})
	assert.ErrorIs(t, err, ErrMissingTime)

	_, err = parsePushTime(nil)
	assert.ErrorIs(t, err, ErrMissingTime)
}

// Property: after any sequence of push dialogue actions, a user with no
// enabled topic has no push time.
func TestProperty_NoEnabledTopicMeansNoPushTime(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	topics := []string{"颱風", "地震", "大雨"}
	actions := []func(f *fixture, topic string){
		func(f *fixture, topic string) {
			f.postback("U1", pushChoiceData(topic, ChoicePush), nil)
		},
		func(f *fixture, topic string) {
			f.postback("U1", pushChoiceData(topic, ChoiceCancel), nil)
		},
		func(f *fixture, topic string) {
			f.postback("U1", actionData(actionSetPushTime), map[string]string{"time": "06:30"})
		},
		func(f *fixture, topic string) {
			f.postback("U1", actionData(actionCancelPush), nil)
		},
		func(f *fixture, topic string) {
			f.postback("U1", actionData(actionConfirmPush), nil)
		},
	}

	properties.Property("no enabled topic implies no push time", prop.ForAll(
		func(steps []int) bool {
			f := newFixture(t, nil)
			f.seed(t, "U1", topics...)

			for _, step := range steps {
				actions[step%len(actions)](f, topics[(step/len(actions))%len(topics)])

				enabled, err := push.EnabledTopics(f.ctx, f.store, "U1")
				if err != nil {
					return false
				}
				if len(enabled) == 0 && f.pushTime(t, "U1") != nil {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(actions)*len(topics)-1)),
	))

	properties.TestingRun(t)
}

// Thirteen subscriptions: the rendered menu still offers the time picker and confirm.
func TestPushMenu_ManySubscriptionsKeepsPicker(t *testing.T) {
	f := newFixture(t, nil)
	topics := append(append([]string{}, Catalog...), Recommendations...)
	require.Len(t, topics, 13)
	f.seed(t, "U1", topics...)

	f.postback("U1", pushChoiceData("缺電預警", ChoicePush), nil)

	menu := f.client.last(t).menu
	require.Len(t, menu, 15)
	trimmed := menu.Trim(13)
	require.Len(t, trimmed, 13)
	assert.Equal(t, messaging.TimePickerAction, trimmed[11].Kind)
	assert.Equal(t, "action=set_push_time", trimmed[11].Data)
	assert.Equal(t, "action=confirm_push", trimmed[12].Data)
	assert.Equal(t, pushChoiceData("豪大雨", ChoicePush), trimmed[10].Data)
}
