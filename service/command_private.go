package service

import (
	"guardbot/config"
	"guardbot/util"
	"sort"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func init() {
	register(commandFunc{Command: noDisable("start"), Help: "say hello", Run: (*CommandConfig).startCommand})
	register(commandFunc{Command: noDisable("help"), Help: "this list", Run: (*CommandConfig).helpCommand})
	register(commandFunc{Command: staffOnly("stats", config.RoleSudo), Help: "bot statistics", Run: (*CommandConfig).statsCommand})
	register(commandFunc{Command: staffOnly("flushadmins", config.RoleSudo), Help: "drop a chat's cached admin list", Run: (*CommandConfig).flushAdminsCommand})
	register(commandFunc{Command: staffOnly("leave", config.RoleDev), Help: "make me leave a chat", Run: (*CommandConfig).leaveCommand})
}

func (c *CommandConfig) startCommand() error {
	name := util.Escape(c.self.FirstName)
	if !c.isPrivate() {
		return c.reply(util.StrBuilder("Hi, ", name, " is up and running."))
	}
	return c.reply(util.StrBuilder("Hi ", mention(c.from()), ", I'm ", name,
		". Add me to a group and make me admin to manage it.\nSend /help to see what I can do."))
}

// helpCommand lists the commands the caller is allowed to run.
func (c *CommandConfig) helpCommand() error {
	role := c.staff.Role(c.from().ID)
	names := make([]string, 0, len(commandsFunc))
	for name, fn := range commandsFunc {
		if fn.Role > role {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	// list commands with the prefix the caller typed
	prefix := c.match.Prefix
	text := "<b>Commands</b>"
	for _, name := range names {
		text = util.StrBuilder(text, "\n", util.Escape(prefix), name, " - ", util.Escape(commandsFunc[name].Help))
	}
	return c.reply(text)
}

func (c *CommandConfig) statsCommand() error {
	chats := "n/a"
	if c.admins != nil {
		n, err := c.admins.Chats(c.ctx)
		if err != nil {
			return err
		}
		chats = util.NumToStr(n)
	}
	uptime := time.Since(c.started).Round(time.Second)
	return c.reply(util.StrBuilder("<b>Stats</b>\nChats with cached admins: ", chats,
		"\nUptime: ", uptime.String(),
		"\nStaff: ", util.NumToStr(c.staff.Count())))
}

func (c *CommandConfig) flushAdminsCommand() error {
	if c.admins == nil {
		return userErr("The admin cache is not configured.")
	}
	chatID := c.chatID
	if arg := c.arg(0); arg != "" {
		id, err := parseChatID(arg)
		if err != nil {
			return userErr("Give me a numeric chat id.")
		}
		chatID = id
	} else if c.isPrivate() {
		return userErr("Give me a chat id.")
	}
	if err := c.admins.Invalidate(c.ctx, chatID); err != nil {
		return err
	}
	return c.reply(util.StrBuilder("Admin cache of <code>", util.NumToStr(chatID), "</code> dropped."))
}

func (c *CommandConfig) leaveCommand() error {
	chatID := c.chatID
	if arg := c.arg(0); arg != "" {
		id, err := parseChatID(arg)
		if err != nil {
			return userErr("Give me a numeric chat id.")
		}
		chatID = id
	} else if c.isPrivate() {
		return userErr("Give me a chat id.")
	}
	if err := c.request(tgbotapi.LeaveChatConfig{ChatID: chatID}); err != nil {
		return err
	}
	if chatID == c.chatID {
		return nil
	}
	return c.reply(util.StrBuilder("Left chat <code>", util.NumToStr(chatID), "</code>."))
}
