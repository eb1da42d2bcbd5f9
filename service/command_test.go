package service

import (
	"context"
	"guardbot/cache"
	"guardbot/model"
	"guardbot/telegram/telegramtest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartIsCaseInsensitive(t *testing.T) {
	h := newHarness(t)
	h.say(bob, "/start")
	h.say(bob, "/START")
	h.say(bob, "!Start@guardbot")
	h.say(bob, "/start@otherbot")

	texts := h.api.Texts()
	require.Len(t, texts, 3)
	assert.Equal(t, texts[0], texts[1])
	assert.Equal(t, texts[0], texts[2])
}

func TestHelpHidesStaffCommands(t *testing.T) {
	h := newHarness(t)
	h.say(bob, "/help")
	assert.NotContains(t, h.lastText(), "stats")
	assert.Contains(t, h.lastText(), "/promote")

	h.say(sam, "/help")
	assert.Contains(t, h.lastText(), "/stats")
	assert.NotContains(t, h.lastText(), "/leave")

	h.say(bob, "!help")
	assert.Contains(t, h.lastText(), "!promote")
	assert.NotContains(t, h.lastText(), "/promote")
}

func TestAdminsListsCachedAdmins(t *testing.T) {
	h := newHarness(t)
	h.say(bob, "/admins")
	assert.Contains(t, h.lastText(), "Alice")

	admins, err := h.store.Get(context.Background(), testChatID)
	require.NoError(t, err)
	assert.Equal(t, []model.Admin{{UserID: alice.ID, Name: "Alice"}}, admins)
}

func TestAdminCacheCooldown(t *testing.T) {
	h := newHarness(t)
	h.say(bob, "/admincache")
	assert.Contains(t, h.lastText(), "Admin list reloaded, 1 admins.")

	h.say(bob, "/admincache")
	assert.Contains(t, h.lastText(), "try again in")
	assert.Contains(t, h.lastText(), "seconds")

	// staff bypass the window
	h.say(sam, "/admincache")
	assert.Contains(t, h.lastText(), "Admin list reloaded")
	assert.Len(t, telegramtest.CallsOf[tgbotapi.ChatAdministratorsConfig](h.api), 2)
}

func TestPromoteAndDemote(t *testing.T) {
	h := newHarness(t)
	target := h.message(bob, "promote me")
	h.say(bob, "/admins") // fill the cache

	h.replyTo(alice, target, `/promote "Chief Gopher"`)
	promotes := telegramtest.CallsOf[tgbotapi.PromoteChatMemberConfig](h.api)
	require.Len(t, promotes, 1)
	assert.Equal(t, bob.ID, promotes[0].UserID)
	assert.True(t, promotes[0].CanDeleteMessages)
	titles := telegramtest.CallsOf[tgbotapi.SetChatAdministratorCustomTitle](h.api)
	require.Len(t, titles, 1)
	assert.Equal(t, "Chief Gopher", titles[0].CustomTitle)
	assert.Contains(t, h.lastText(), "is now an admin")

	admins, err := h.store.Get(context.Background(), testChatID)
	require.NoError(t, err)
	assert.Contains(t, admins, model.Admin{UserID: bob.ID, Name: "Bob"})

	h.replyTo(alice, target, "/demote")
	promotes = telegramtest.CallsOf[tgbotapi.PromoteChatMemberConfig](h.api)
	require.Len(t, promotes, 2)
	assert.False(t, promotes[1].CanDeleteMessages)
	admins, err = h.store.Get(context.Background(), testChatID)
	require.NoError(t, err)
	assert.NotContains(t, admins, model.Admin{UserID: bob.ID, Name: "Bob"})
}

func TestPromoteByID(t *testing.T) {
	h := newHarness(t)
	h.api.Handle(tgbotapi.GetChatMemberConfig{}, telegramtest.JSON(map[string]any{
		"status": "member",
		"user":   map[string]any{"id": carol.ID, "first_name": "Carol"},
	}))
	h.say(alice, "/promote 3")
	require.Len(t, telegramtest.CallsOf[tgbotapi.PromoteChatMemberConfig](h.api), 1)
	assert.Contains(t, h.lastText(), "Carol")

	admins, err := h.store.Get(context.Background(), testChatID)
	require.NoError(t, err)
	assert.Contains(t, admins, model.Admin{UserID: carol.ID, Name: "Carol"})
}

func TestPromoteRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	target := h.message(carol, "hi")
	h.replyTo(bob, target, "/promote")
	assert.Empty(t, telegramtest.CallsOf[tgbotapi.PromoteChatMemberConfig](h.api))
	assert.Equal(t, "You need to be an admin to do this.", h.lastText())
}

func TestPromoteWithoutRights(t *testing.T) {
	h := newHarness(t)
	h.api.Handle(tgbotapi.PromoteChatMemberConfig{}, telegramtest.Fail(400, "Bad Request: not enough rights", 0))
	target := h.message(bob, "hi")
	h.replyTo(alice, target, "/promote")
	assert.Equal(t, "I don't have enough rights to do that here.", h.lastText())
}

func TestDisabledCommandDeleted(t *testing.T) {
	h := newHarness(t)
	h.say(alice, "/disable roll toss")
	assert.Contains(t, h.lastText(), "roll toss")
	h.say(alice, "/disabledel on")

	h.api.Reset()
	h.say(bob, "/roll")
	deletes := telegramtest.CallsOf[tgbotapi.DeleteMessageConfig](h.api)
	require.Len(t, deletes, 1)
	assert.Equal(t, testChatID, deletes[0].ChatID)
	assert.Empty(t, h.api.Texts())

	h.say(alice, "/roll")
	assert.True(t, strings.HasPrefix(h.lastText(), "🎲"))

	h.say(alice, "/disabled")
	assert.Contains(t, h.lastText(), "action: delete")
	assert.Contains(t, h.lastText(), "<code>roll</code>")
}

func TestDisabledCommandIgnored(t *testing.T) {
	h := newHarness(t)
	h.say(alice, "/disable toss")
	h.api.Reset()

	h.say(bob, "/toss")
	assert.Empty(t, h.api.Calls())
}

func TestDisableRejectsUnknownAndProtected(t *testing.T) {
	h := newHarness(t)
	h.say(alice, "/disable nope")
	assert.Contains(t, h.lastText(), "can't be disabled: nope")
	h.say(alice, "/disable enable")
	assert.Contains(t, h.lastText(), "can't be disabled: enable")
	h.say(alice, "/disable stats")
	assert.Contains(t, h.lastText(), "can't be disabled: stats")
}

func TestEnable(t *testing.T) {
	h := newHarness(t)
	h.say(alice, "/disable roll toss calc")
	h.say(alice, "/enable roll")
	assert.Contains(t, h.lastText(), "Enabled: <code>roll</code>")
	h.say(alice, "/enable roll")
	assert.Equal(t, "None of those commands were disabled.", h.lastText())
	h.say(alice, "/enable all")

	s, err := h.settings.GetSettings(context.Background(), testChatID)
	require.NoError(t, err)
	assert.Empty(t, s.Disabled)
}

func TestDisabledDelValidatesArgument(t *testing.T) {
	h := newHarness(t)
	h.say(alice, "/disabledel maybe")
	assert.Equal(t, "Use on or off.", h.lastText())
}

func TestStaffCommandsAreSilentForMembers(t *testing.T) {
	h := newHarness(t)
	h.say(bob, "/stats")
	assert.Empty(t, h.api.Calls())

	h.say(sam, "/stats")
	assert.Contains(t, h.lastText(), "Stats")
	assert.Contains(t, h.lastText(), "Chats with cached admins: 0")

	h.say(sam, "/leave -100")
	assert.Empty(t, telegramtest.CallsOf[tgbotapi.LeaveChatConfig](h.api))
}

func TestFlushAdmins(t *testing.T) {
	h := newHarness(t)
	h.say(bob, "/admins")
	_, err := h.store.Get(context.Background(), testChatID)
	require.NoError(t, err)

	h.api.Reset()
	h.say(bob, "/flushadmins")
	assert.Empty(t, h.api.Calls())

	h.say(sam, "/flushadmins")
	assert.Equal(t, "Admin cache of <code>-1001546229241</code> dropped.", h.lastText())
	_, err = h.store.Get(context.Background(), testChatID)
	assert.ErrorIs(t, err, cache.ErrMiss)

	h.say(sam, "/flushadmins here")
	assert.Equal(t, "Give me a numeric chat id.", h.lastText())

	// the next lookup refills the entry
	h.say(bob, "/admins")
	assert.Contains(t, h.lastText(), "Alice")
}

func TestAFK(t *testing.T) {
	h := newHarness(t)
	afkMsg := h.message(bob, "/afk lunch break")
	h.send(afkMsg)
	assert.Contains(t, h.lastText(), "is now AFK")

	h.replyTo(carol, afkMsg, "are you there?")
	assert.Contains(t, h.lastText(), "Bob is AFK since")
	assert.Contains(t, h.lastText(), "Reason: lunch break")

	h.say(bob, "back")
	assert.Contains(t, h.lastText(), "is back after")

	s, err := h.settings.GetSettings(context.Background(), testChatID)
	require.NoError(t, err)
	assert.Empty(t, s.AFK)
}

func TestAFKTextMention(t *testing.T) {
	h := newHarness(t)
	h.say(bob, "/afk")
	msg := h.message(carol, "ping Bob")
	msg.Entities = []tgbotapi.MessageEntity{{Type: "text_mention", Offset: 5, Length: 3, User: &bob}}
	h.send(msg)
	assert.Contains(t, h.lastText(), "Bob is AFK since")
	assert.NotContains(t, h.lastText(), "Reason")
}

func TestAFKUserNameMention(t *testing.T) {
	h := newHarness(t)
	bobby := bob
	bobby.UserName = "Bob_Gopher"
	h.say(bobby, "/afk lunch")
	h.api.Reset()

	msg := h.message(carol, "😀 hey @bob_gopher are you there")
	msg.Entities = []tgbotapi.MessageEntity{{Type: "mention", Offset: 7, Length: 11}}
	h.send(msg)
	require.Len(t, h.api.Texts(), 1)
	assert.Contains(t, h.lastText(), "Bob is AFK since")
	assert.Contains(t, h.lastText(), "Reason: lunch")

	h.api.Reset()
	msg = h.message(carol, "hey @someone_else")
	msg.Entities = []tgbotapi.MessageEntity{{Type: "mention", Offset: 4, Length: 13}}
	h.send(msg)
	assert.Empty(t, h.api.Texts())
}

func TestUTF16Sub(t *testing.T) {
	assert.Equal(t, "@bob", utf16Sub("😀 @bob!", 3, 4))
	assert.Equal(t, "", utf16Sub("ab", 1, 5))
}

func TestExtractUserFromTextMention(t *testing.T) {
	h := newHarness(t)
	msg := h.message(alice, "/promote Bob boss")
	msg.Entities = []tgbotapi.MessageEntity{{Type: "text_mention", Offset: 9, Length: 3, User: &bob}}
	h.send(msg)
	promotes := telegramtest.CallsOf[tgbotapi.PromoteChatMemberConfig](h.api)
	require.Len(t, promotes, 1)
	assert.Equal(t, bob.ID, promotes[0].UserID)
	titles := telegramtest.CallsOf[tgbotapi.SetChatAdministratorCustomTitle](h.api)
	require.Len(t, titles, 1)
	assert.Equal(t, "boss", titles[0].CustomTitle)
}

func TestUTF16Slice(t *testing.T) {
	assert.Equal(t, " rest", utf16Slice("😀ab rest", 4))
	assert.Equal(t, "", utf16Slice("ab", 5))
}

func TestTrackMember(t *testing.T) {
	h := newHarness(t)
	h.say(bob, "hello")
	h.say(carol, "hi")
	msg := h.message(alice, "")
	msg.LeftChatMember = &carol
	h.send(msg)

	members, err := h.members.List(context.Background(), testChatID)
	require.NoError(t, err)
	assert.Equal(t, []model.Admin{{UserID: bob.ID, Name: "Bob"}, {UserID: alice.ID, Name: "Alice"}}, members)
}
