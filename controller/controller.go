package controller

import (
	"context"
	"guardbot/filter"
	"guardbot/service"
	"guardbot/util"
	"runtime/debug"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// ChatOf returns the chat an update belongs to, or nil.
func ChatOf(update tgbotapi.Update) *tgbotapi.Chat {
	switch {
	case update.Message != nil:
		return update.Message.Chat
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.Message.Chat
	case update.ChatJoinRequest != nil:
		return &update.ChatJoinRequest.Chat
	}
	return nil
}

func Controller(ctx context.Context, bot *service.Bot, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("panic update_id=%v err=%v\n%s", update.UpdateID, r, debug.Stack())
		}
	}()
	logrus.DebugFn(util.LogMarshalFn(update))
	if update.InlineQuery != nil {
		service.NewInlineQueryConfig(bot.NewBotConfig(ctx, update)).HandleInlineQuery()
		return
	}
	chat := ChatOf(update)
	if chat == nil {
		return
	}
	conf := bot.Config()
	if !chat.IsPrivate() && !conf.InWhitelist(chat.UserName, chat.ID) {
		logrus.Debugf("chat=%v not in whitelist", chat.ID)
		return
	}
	c := bot.NewBotConfig(ctx, update)
	switch {
	case update.CallbackQuery != nil:
		service.NewCallBack(c).HandleCallback()
	case update.ChatJoinRequest != nil:
		service.NewJoinRequest(c).HandleJoinRequest()
	case update.Message != nil:
		handleMessage(ctx, bot, c, update.Message)
	}
}

func handleMessage(ctx context.Context, bot *service.Bot, c *service.BotConfig, msg *tgbotapi.Message) {
	conf := bot.Config()
	chat := service.NewChat(c)
	chat.TrackMember()
	var (
		match *filter.Match
		ok    bool
	)
	if conf.Modules.EnableCommand {
		match, ok = bot.Filter().Check(ctx, msg)
	}
	if conf.Modules.EnableAFK {
		chat.HandleAFK(ok && match.Command == "afk")
	}
	if ok {
		service.NewCommandConfig(c, match).RunCommand()
	}
}
