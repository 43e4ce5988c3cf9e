package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/news-push-bot/internal/conversation"
	"github.com/user/news-push-bot/internal/model"
)

func TestManagementView_Menus(t *testing.T) {
	tests := []struct {
		name     string
		subs     []string
		wantText string
		wantData []string
	}{
		{
			name:     "no subscriptions",
			wantText: "你目前的訂閱：\n目前沒有訂閱任何主題\n請選擇操作：",
			wantData: []string{"action=recommend_keywords", "action=start_add_subscription", "action=confirm_subscription"},
		},
		{
			name:     "some subscriptions",
			subs:     []string{"地震", "AI"},
			wantText: "你目前的訂閱：\n地震、AI\n請選擇操作：",
			wantData: []string{"action=recommend_keywords", "action=start_add_subscription", "action=start_remove_subscription", "action=confirm_subscription"},
		},
		{
			name:     "catalog exhausted",
			subs:     Catalog,
			wantText: "你目前的訂閱：\n大雨、土石流、地震、颱風、海嘯、火災、洪水、暴風雪\n請選擇操作：",
			wantData: []string{"action=recommend_keywords", "action=start_remove_subscription", "action=confirm_subscription"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.seed(t, "U1", tt.subs...)
			f.modes.Set("U1", conversation.Removing)

			f.text("U1", "管理我的訂閱")

			reply := f.client.last(t)
			assert.Equal(t, tt.wantText, reply.text)
			assert.Equal(t, tt.wantData, menuData(reply.menu))
			assert.Equal(t, conversation.None, f.modes.Get("U1"))
		})
	}
}

func TestRecommendKeywords(t *testing.T) {
	f := newFixture(t, nil)

	f.postback("U1", "action=recommend_keywords", nil)

	reply := f.client.last(t)
	assert.Equal(t, "系統推薦關鍵字，請選擇要訂閱：", reply.text)
	assert.Equal(t, []string{"AI", "疫情", "豪大雨", "農業部", "缺電預警", "⬅ 返回"}, menuLabels(reply.menu))
	assert.Equal(t, "action=subscribe&topic=AI", reply.menu[0].Data)
	assert.Equal(t, "action=manage_subscription", reply.menu[5].Data)

	f.postback("U1", "action=subscribe&topic=豪大雨", nil)
	assert.Equal(t, []string{"豪大雨"}, f.subs(t, "U1"))

	f.postback("U1", "action=manage_subscription", nil)
	assert.Equal(t, "你目前的訂閱：\n豪大雨\n請選擇操作：", f.client.last(t).text)
}

// Manage, start add, free text "地震", confirm.
func TestScenario_AddByFreeText(t *testing.T) {
	f := newFixture(t, nil)

	f.text("U1", "管理我的訂閱")
	assert.Equal(t, conversation.None, f.modes.Get("U1"))

	f.postback("U1", "action=start_add_subscription", nil)
	assert.Equal(t, conversation.Adding, f.modes.Get("U1"))
	reply := f.client.last(t)
	assert.Equal(t, "請選擇要新增的訂閱主題：", reply.text)
	assert.Len(t, reply.menu, len(Catalog)+1)

	f.text("U1", "地震")
	assert.Equal(t, []string{"地震"}, f.subs(t, "U1"))
	assert.Equal(t, conversation.Adding, f.modes.Get("U1"))
	reply = f.client.last(t)
	assert.Equal(t, "你已成功訂閱「地震」。\n你目前的訂閱：\n地震\n請繼續新增或其他操作：", reply.text)
	assert.NotContains(t, menuLabels(reply.menu), "地震")
	assert.Contains(t, menuData(reply.menu), "action=start_remove_subscription")
	assert.Equal(t, "action=confirm_subscription", reply.menu[len(reply.menu)-1].Data)

	f.text("U1", "地震")
	assert.Equal(t, []string{"地震"}, f.subs(t, "U1"))
	assert.Contains(t, f.client.last(t).text, "你已經訂閱過「地震」。")

	f.postback("U1", "action=confirm_subscription", nil)
	assert.Equal(t, conversation.None, f.modes.Get("U1"))
	assert.Equal(t, "你目前的訂閱：\n地震\n已完成訂閱設定", f.client.last(t).text)

	// Back to idle, text is echoed and not subscribed.
	f.text("U1", "颱風")
	assert.Equal(t, "颱風", f.client.last(t).text)
	assert.Equal(t, []string{"地震"}, f.subs(t, "U1"))
}

func TestSubscribePostback_RedrawsAddMenu(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "U1", "大雨")

	f.postback("U1", "action=subscribe&topic=颱風", nil)

	assert.Equal(t, []string{"大雨", "颱風"}, f.subs(t, "U1"))
	reply := f.client.last(t)
	assert.Equal(t, "你目前的訂閱：\n大雨、颱風\n請選擇操作：", reply.text)
	assert.Equal(t, []string{"土石流", "地震", "海嘯", "火災", "洪水", "暴風雪", "🚫 取消訂閱", "✅ 完成訂閱設定"}, menuLabels(reply.menu))
}

func TestStartRemove(t *testing.T) {
	t.Run("nothing to remove", func(t *testing.T) {
		f := newFixture(t, nil)
		f.postback("U1", "action=start_remove_subscription", nil)

		reply := f.client.last(t)
		assert.Equal(t, "目前沒有訂閱任何主題可以取消", reply.text)
		assert.Empty(t, reply.menu)
		assert.Equal(t, conversation.Removing, f.modes.Get("U1"))
	})

	t.Run("lists every subscription", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seed(t, "U1", "颱風", "自訂主題")
		f.postback("U1", "action=start_remove_subscription", nil)

		reply := f.client.last(t)
		assert.Equal(t, "請選擇要取消的訂閱主題：", reply.text)
		assert.Equal(t, []string{
			"action=unsubscribe&topic=颱風",
			"action=unsubscribe&topic=自訂主題",
			"action=confirm_subscription",
		}, menuData(reply.menu))
	})
}

func TestUnsubscribePostback(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "U1", "颱風", "地震")

	f.postback("U1", "action=unsubscribe&topic=颱風", nil)
	assert.Equal(t, []string{"地震"}, f.subs(t, "U1"))
	reply := f.client.last(t)
	assert.Equal(t, "你目前的訂閱：\n地震\n請選擇操作：", reply.text)
	assert.Equal(t, []string{"action=unsubscribe&topic=地震", "action=start_add_subscription", "action=confirm_subscription"}, menuData(reply.menu))

	// Removing something already gone is a no-op.
	f.postback("U1", "action=unsubscribe&topic=颱風", nil)
	assert.Equal(t, []string{"地震"}, f.subs(t, "U1"))

	f.postback("U1", "action=unsubscribe&topic=地震", nil)
	reply = f.client.last(t)
	assert.Equal(t, "你目前的訂閱：\n目前沒有訂閱任何主題\n請選擇操作：", reply.text)
	assert.Equal(t, []string{"action=start_add_subscription", "action=confirm_subscription"}, menuData(reply.menu))
}

// Current subs {大雨, 地震, 颱風}; Removing; "大雨,颱風" leaves {地震}.
func TestScenario_RemoveBatch(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "U1", "大雨", "地震", "颱風")
	f.postback("U1", "action=start_remove_subscription", nil)
	require.Equal(t, conversation.Removing, f.modes.Get("U1"))

	f.text("U1", "大雨,颱風")

	assert.Equal(t, []string{"地震"}, f.subs(t, "U1"))
	assert.Equal(t, conversation.None, f.modes.Get("U1"))
	reply := f.client.last(t)
	assert.Equal(t, "已取消訂閱「大雨、颱風」\n你目前的訂閱：\n地震\n請選擇操作：", reply.text)
	assert.Equal(t, "action=recommend_keywords", reply.menu[0].Data)
}

func TestRemoveBatch_Reports(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		remain []string
	}{
		{name: "mixed delimiters", text: "大雨、地震，颱風", want: "已取消訂閱「大雨、地震、颱風」", remain: nil},
		{name: "some missing", text: "大雨, 海嘯", want: "已取消訂閱「大雨」；未訂閱過「海嘯」", remain: []string{"地震", "颱風"}},
		{name: "all missing", text: "火災", want: "未訂閱過「火災」", remain: []string{"大雨", "地震", "颱風"}},
		{name: "only delimiters", text: "、 ,，", want: "未偵測到有效主題。", remain: []string{"大雨", "地震", "颱風"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.seed(t, "U1", "大雨", "地震", "颱風")
			f.modes.Set("U1", conversation.Removing)

			f.text("U1", tt.text)

			assert.ElementsMatch(t, tt.remain, f.subs(t, "U1"))
			assert.Contains(t, f.client.last(t).text, tt.want+"\n你目前的訂閱：")
			assert.Equal(t, conversation.None, f.modes.Get("U1"))
		})
	}
}

func TestSplitTopics(t *testing.T) {
	assert.Equal(t, []string{"大雨", "颱風", "地震"}, splitTopics(" 大雨 、颱風,,地震，"))
	assert.Empty(t, splitTopics("   "))
}

// A free-text topic that looks like action data still round-trips through every menu.
func TestFreeTextTopic_WithFramingCharacters(t *testing.T) {
	const topic = "a&choice=push"
	f := newFixture(t, nil)
	f.modes.Set("U1", conversation.Adding)

	f.text("U1", topic)
	require.Equal(t, []string{topic}, f.subs(t, "U1"))

	f.text("U1", "推播訊息")
	toggle := f.client.last(t).menu[0]
	assert.Equal(t, "a&choice=push主題推播", toggle.Label)

	f.postback("U1", toggle.Data, nil)
	assert.Equal(t, map[string]bool{topic: true}, f.choices(t, "U1"))
	assert.Equal(t, "請選擇要推播的訂閱主題:\n"+topic+": 推播", f.client.last(t).text)

	f.postback("U1", "action=start_remove_subscription", nil)
	remove := f.client.last(t).menu[0]
	f.postback("U1", remove.Data, nil)
	assert.Empty(t, f.subs(t, "U1"))
}

func TestAddFromText_TopicLength(t *testing.T) {
	f := newFixture(t, nil)
	f.modes.Set("U1", conversation.Adding)

	f.text("U1", strings.Repeat("長", model.MaxTopicRunes+1))

	reply := f.client.last(t)
	assert.Equal(t, "主題過長，請輸入 80 字以內的主題。", reply.text)
	assert.Equal(t, "action=confirm_subscription", reply.menu[len(reply.menu)-1].Data)
	assert.Empty(t, f.subs(t, "U1"))
	assert.Equal(t, conversation.Adding, f.modes.Get("U1"))

	longest := strings.Repeat("長", model.MaxTopicRunes)
	f.text("U1", longest)
	assert.Equal(t, []string{longest}, f.subs(t, "U1"))
}
