package service

import (
	"context"
	"errors"
	"guardbot/cache"
	"guardbot/client"
	"guardbot/config"
	"guardbot/model"
	"guardbot/telegram"
	"guardbot/telegram/telegramtest"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChatID int64 = -1001546229241

var (
	alice = tgbotapi.User{ID: 1, FirstName: "Alice"}
	bob   = tgbotapi.User{ID: 2, FirstName: "Bob"}
	carol = tgbotapi.User{ID: 3, FirstName: "Carol"}
	sam   = tgbotapi.User{ID: 9, FirstName: "Sam"}
	self  = tgbotapi.User{ID: 777, FirstName: "Guard", UserName: "guardbot", IsBot: true}
)

type harness struct {
	t        *testing.T
	api      *telegramtest.Fake
	bot      *Bot
	admins   *cache.Admins
	store    *cache.MemoryStore
	settings *client.MemorySettings
	members  *cache.MemoryMembers
	scores   *cache.MemoryScores
	nextMsg  int
}

// newHarness builds a bot around a fake API where alice is the only admin and
// sam is sudo.
func newHarness(t *testing.T) *harness {
	t.Helper()
	api := telegramtest.New()
	api.Handle(tgbotapi.ChatAdministratorsConfig{}, telegramtest.JSON(telegramtest.Admins(alice)))
	conf := config.Default()
	conf.BotToken = "test"
	conf.SupportChat = "guardsupport"
	h := &harness{
		t:        t,
		api:      api,
		store:    cache.NewMemoryStore(),
		settings: client.NewMemorySettings(),
		members:  cache.NewMemoryMembers(),
		scores:   cache.NewMemoryScores(),
		nextMsg:  1,
	}
	h.admins = cache.NewAdmins(h.store, telegram.NewAdminFetcher(api), cache.NewMemoryCooldown(), conf.CooldownWindow())
	h.bot = New(Options{
		API:      api,
		Self:     self,
		Config:   conf,
		Staff:    config.NewStaff(config.StaffIDs{Sudo: []int64{sam.ID}}),
		Admins:   h.admins,
		Members:  h.members,
		Scores:   h.scores,
		Settings: h.settings,
	})
	return h
}

func (h *harness) message(from tgbotapi.User, text string) *tgbotapi.Message {
	h.nextMsg++
	u := from
	return &tgbotapi.Message{
		MessageID: h.nextMsg,
		From:      &u,
		Chat:      &tgbotapi.Chat{ID: testChatID, Type: "supergroup", Title: "gophers"},
		Date:      int(time.Now().Unix()),
		Text:      text,
	}
}

// send pushes a message through member tracking, AFK and the command filter.
func (h *harness) send(msg *tgbotapi.Message) {
	h.t.Helper()
	ctx := context.Background()
	c := h.bot.NewBotConfig(ctx, tgbotapi.Update{Message: msg})
	chat := NewChat(c)
	chat.TrackMember()
	match, ok := h.bot.Filter().Check(ctx, msg)
	chat.HandleAFK(ok && match.Command == "afk")
	if ok {
		NewCommandConfig(c, match).RunCommand()
	}
}

func (h *harness) say(from tgbotapi.User, text string) {
	h.t.Helper()
	h.send(h.message(from, text))
}

func (h *harness) replyTo(from tgbotapi.User, target *tgbotapi.Message, text string) {
	h.t.Helper()
	msg := h.message(from, text)
	msg.ReplyToMessage = target
	h.send(msg)
}

func (h *harness) callback(from tgbotapi.User, data string) {
	h.t.Helper()
	u := from
	update := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &u,
		Message: &tgbotapi.Message{
			MessageID: 5000,
			Chat:      &tgbotapi.Chat{ID: testChatID, Type: "supergroup"},
		},
		Data: data,
	}}
	NewCallBack(h.bot.NewBotConfig(context.Background(), update)).HandleCallback()
}

func (h *harness) lastText() string {
	texts := h.api.Texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

// buttons returns the callback data of the last keyboard sent.
func (h *harness) buttons() []string {
	h.t.Helper()
	msgs := telegramtest.CallsOf[tgbotapi.MessageConfig](h.api)
	for i := len(msgs) - 1; i >= 0; i-- {
		markup, ok := msgs[i].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		if !ok {
			continue
		}
		var data []string
		for _, row := range markup.InlineKeyboard {
			for _, b := range row {
				data = append(data, *b.CallbackData)
			}
		}
		return data
	}
	h.t.Fatal("no keyboard sent")
	return nil
}

func (h *harness) answers() []string {
	var res []string
	for _, c := range telegramtest.CallsOf[tgbotapi.CallbackConfig](h.api) {
		res = append(res, c.Text)
	}
	return res
}

func (h *harness) edits() []string {
	var res []string
	for _, c := range telegramtest.CallsOf[tgbotapi.EditMessageTextConfig](h.api) {
		res = append(res, c.Text)
	}
	return res
}

func TestBotConfig_SendMessage(t *testing.T) {
	h := newHarness(t)
	c := h.bot.NewBotConfig(context.Background(), tgbotapi.Update{Message: h.message(bob, "hi")})
	require.NoError(t, c.reply("hello"))

	msgs := telegramtest.CallsOf[tgbotapi.MessageConfig](h.api)
	require.Len(t, msgs, 1)
	assert.Equal(t, testChatID, msgs[0].ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msgs[0].ParseMode)
	assert.Equal(t, 2, msgs[0].ReplyToMessageID)
	assert.NotZero(t, c.botMessageID)
}

func TestBotConfig_SendMessageDropsMissingReply(t *testing.T) {
	h := newHarness(t)
	h.api.Handle(tgbotapi.MessageConfig{}, func(ch tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
		if ch.(tgbotapi.MessageConfig).ReplyToMessageID != 0 {
			return telegramtest.Fail(400, "Bad Request: replied message not found", 0)(ch)
		}
		return &tgbotapi.APIResponse{Ok: true, Result: []byte(`{"message_id":42}`)}, nil
	})
	c := h.bot.NewBotConfig(context.Background(), tgbotapi.Update{Message: h.message(bob, "hi")})
	require.NoError(t, c.reply("hello"))
	assert.Equal(t, 42, c.botMessageID)
	assert.Len(t, h.api.Texts(), 2)
}

func TestSendMessageRetriesFloodWait(t *testing.T) {
	h := newHarness(t)
	h.api.Handle(tgbotapi.MessageConfig{}, telegramtest.FailOnce(429, "Too Many Requests: retry after 1", 1))
	h.say(bob, "/toss")

	texts := h.api.Texts()
	require.Len(t, texts, 2)
	assert.Regexp(t, "^🪙 (Heads|Tails)$", texts[1])
	assert.Equal(t, texts[0], texts[1])
}

func TestCallbackAnswerRetriesFloodWait(t *testing.T) {
	h := newHarness(t)
	h.api.Handle(tgbotapi.CallbackConfig{}, telegramtest.FailOnce(429, "Too Many Requests: retry after 1", 1))
	h.callback(bob, "what_is_this")
	assert.Equal(t, []string{"", ""}, h.answers())
	assert.Empty(t, h.api.Texts())
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"user", userErr("Use on or off."), "Use on or off."},
		{"permission", &tgbotapi.Error{Code: 400, Message: "Bad Request: not enough rights"}, "I don't have enough rights to do that here."},
		{"flood", &tgbotapi.Error{Code: 429, Message: "Too Many Requests", ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 7}}, "try again in 7 seconds"},
		{"unknown", errors.New("boom"), "Please report this in @guardsupport."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			c := h.bot.NewBotConfig(context.Background(), tgbotapi.Update{Message: h.message(bob, "/x")})
			c.handleError("test", tt.err)
			assert.Contains(t, h.lastText(), tt.want)
		})
	}
}

func TestHandleErrorNil(t *testing.T) {
	h := newHarness(t)
	c := h.bot.NewBotConfig(context.Background(), tgbotapi.Update{Message: h.message(bob, "/x")})
	c.handleError("test", nil)
	assert.Empty(t, h.api.Calls())
}

func TestUpdateSettingsSkipsUnchanged(t *testing.T) {
	h := newHarness(t)
	c := h.bot.NewBotConfig(context.Background(), tgbotapi.Update{Message: h.message(bob, "hi")})
	require.NoError(t, c.updateSettings(func(s *model.ChatSettings) bool { return false }))
	require.NoError(t, c.updateSettings(func(s *model.ChatSettings) bool { return s.Disable("roll") }))

	s, err := h.settings.GetSettings(context.Background(), testChatID)
	require.NoError(t, err)
	assert.Equal(t, []string{"roll"}, s.Disabled)
}

func TestIsAdminCountsStaffAndAnonymous(t *testing.T) {
	h := newHarness(t)
	msg := h.message(bob, "hi")
	c := h.bot.NewBotConfig(context.Background(), tgbotapi.Update{Message: msg})
	assert.False(t, c.isAdmin(bob.ID))
	assert.True(t, c.isAdmin(alice.ID))
	assert.True(t, c.isAdmin(sam.ID))

	msg.SenderChat = &tgbotapi.Chat{ID: testChatID}
	assert.True(t, c.isAdmin(bob.ID))
}

func TestCommandRegistry(t *testing.T) {
	for _, name := range []string{"start", "help", "admins", "admincache", "promote", "demote", "disable",
		"enable", "disabled", "disabledel", "afk", "tagall", "rps", "ttt", "gametop", "calc", "slap",
		"roll", "toss", "meme", "autojoin", "stats", "flushadmins", "leave"} {
		fn, ok := commandsFunc[name]
		if assert.True(t, ok, name) {
			assert.NotEmpty(t, fn.Help, name)
			assert.Equal(t, strings.ToLower(name), fn.Name)
		}
	}
	assert.Equal(t, config.RoleSudo, commandsFunc["stats"].Role)
	assert.Equal(t, config.RoleSudo, commandsFunc["flushadmins"].Role)
	assert.Equal(t, config.RoleDev, commandsFunc["leave"].Role)
}
