package service

import (
	"guardbot/model"
	"guardbot/util"
	"time"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const afkReasonMax = 100

func init() {
	register(commandFunc{Command: cmd("afk"), Help: "mark yourself away, optionally with a reason", Run: (*CommandConfig).afkCommand})
}

type Chat struct {
	*BotConfig
}

func NewChat(botConfig *BotConfig) *Chat {
	return &Chat{BotConfig: botConfig}
}

// HandleAFK clears the sender's AFK status and tells repliers and mentioners
// when their target is away. skipSelf is set for the afk command itself.
func (c *Chat) HandleAFK(skipSelf bool) {
	msg := c.update.Message
	if msg == nil || msg.From == nil || msg.Chat.IsPrivate() {
		return
	}
	s, err := c.getSettings()
	if err != nil {
		logrus.Errorf("afk chat=%v err=%v", c.chatID, err)
		return
	}
	if len(s.AFK) == 0 {
		return
	}
	if !skipSelf {
		if afk, ok := s.GetAFK(msg.From.ID); ok {
			err := c.updateSettings(func(s *model.ChatSettings) bool {
				return s.ClearAFK(msg.From.ID)
			})
			if err != nil {
				logrus.Errorf("afk clear chat=%v user=%v err=%v", c.chatID, msg.From.ID, err)
				return
			}
			_ = c.reply(util.StrBuilder(mention(msg.From), " is back after ", humanDuration(time.Since(afk.Since)), "."))
		}
	}
	for _, afk := range mentionedAFK(msg, s) {
		if afk.UserID == msg.From.ID {
			continue
		}
		text := util.StrBuilder(util.Escape(util.TruncateName(afk.Name, 32)), " is AFK since ", humanDuration(time.Since(afk.Since)), ".")
		if afk.Reason != "" {
			text = util.StrBuilder(text, "\nReason: ", util.Escape(afk.Reason))
		}
		if err := c.reply(text); err != nil {
			logrus.Errorf("afk notice chat=%v err=%v", c.chatID, err)
		}
	}
}

// mentionedAFK returns the AFK records of the replied-to user and of every
// text_mention or @username mention, once each.
func mentionedAFK(msg *tgbotapi.Message, s *model.ChatSettings) []model.AFK {
	var res []model.AFK
	seen := make(map[int64]bool)
	add := func(afk model.AFK, ok bool) {
		if ok && !seen[afk.UserID] {
			seen[afk.UserID] = true
			res = append(res, afk)
		}
	}
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		add(s.GetAFK(msg.ReplyToMessage.From.ID))
	}
	text, entities := msg.Text, msg.Entities
	if len(entities) == 0 {
		text, entities = msg.Caption, msg.CaptionEntities
	}
	for _, e := range entities {
		switch {
		case e.Type == "text_mention" && e.User != nil:
			add(s.GetAFK(e.User.ID))
		case e.Type == "mention":
			add(s.AFKByUserName(utf16Sub(text, e.Offset, e.Length)))
		}
	}
	return res
}

// utf16Sub cuts s by UTF-16 code unit offsets, the unit Telegram entities use.
func utf16Sub(s string, offset, length int) string {
	units := utf16.Encode([]rune(s))
	if offset < 0 || length < 0 || offset+length > len(units) {
		return ""
	}
	return string(utf16.Decode(units[offset : offset+length]))
}

func humanDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return util.StrBuilder(util.NumToStr(int(d.Seconds())), "s")
	case d < time.Hour:
		return util.StrBuilder(util.NumToStr(int(d.Minutes())), "m")
	case d < 24*time.Hour:
		return util.StrBuilder(util.NumToStr(int(d.Hours())), "h", util.NumToStr(int(d.Minutes())%60), "m")
	}
	return util.StrBuilder(util.NumToStr(int(d.Hours()/24)), "d", util.NumToStr(int(d.Hours())%24), "h")
}

func (c *CommandConfig) afkCommand() error {
	if err := c.requireGroup(); err != nil {
		return err
	}
	if !c.conf.Modules.EnableAFK {
		return nil
	}
	from := c.from()
	reason := c.commandArg
	if len([]rune(reason)) > afkReasonMax {
		reason = string([]rune(reason)[:afkReasonMax])
	}
	err := c.updateSettings(func(s *model.ChatSettings) bool {
		s.SetAFK(model.AFK{UserID: from.ID, Name: userName(from), UserName: from.UserName, Reason: reason, Since: time.Now()})
		return true
	})
	if err != nil {
		return err
	}
	text := util.StrBuilder(mention(from), " is now AFK.")
	if reason != "" {
		text = util.StrBuilder(text, "\nReason: ", util.Escape(reason))
	}
	return c.reply(text)
}
