package service

import (
	"encoding/json"
	"guardbot/filter"
	"guardbot/telegram"
	"guardbot/util"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type CommandConfig struct {
	*BotConfig
	match      *filter.Match
	command    string
	commandArg string
	args       []string
}

func NewCommandConfig(botConfig *BotConfig, match *filter.Match) *CommandConfig {
	return &CommandConfig{
		BotConfig:  botConfig,
		match:      match,
		command:    match.Command,
		commandArg: match.RawArgs,
		args:       match.Args,
	}
}

// RunCommand dispatches the matched command. Handler errors are reported in chat.
func (c *CommandConfig) RunCommand() {
	fn, ok := commandsFunc[c.command]
	if !ok {
		return
	}
	logrus.Infof("command_user=%v command=%s command_arg=%s", c.update.Message.From.ID, c.command, c.commandArg)
	c.handleError(c.command, fn.Run(c))
}

func (c *CommandConfig) arg(i int) string {
	if i < len(c.args) {
		return c.args[i]
	}
	return ""
}

func (c *CommandConfig) requireGroup() error {
	if c.isPrivate() {
		return userErr("This command is meant to be used in groups.")
	}
	return nil
}

func (c *CommandConfig) requireAdmin() error {
	if err := c.requireGroup(); err != nil {
		return err
	}
	if !c.isAdmin(c.update.Message.From.ID) {
		return userErr("You need to be an admin to do this.")
	}
	return nil
}

// extractUser resolves the command target from a reply, a text mention or a
// numeric id argument. It returns the remaining arguments.
func (c *CommandConfig) extractUser() (*tgbotapi.User, []string, error) {
	msg := c.update.Message
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		return msg.ReplyToMessage.From, c.args, nil
	}
	for _, entity := range msg.Entities {
		if entity.Type == "text_mention" && entity.User != nil {
			return entity.User, c.argsAfterMention(entity), nil
		}
	}
	if len(c.args) == 0 {
		return nil, nil, userErr("Reply to a user or give their user id.")
	}
	id, err := strconv.ParseInt(c.args[0], 10, 64)
	if err != nil {
		return nil, nil, userErr("I can't resolve that user, reply to one of their messages or give their user id.")
	}
	member, err := c.getChatMember(id)
	if err != nil {
		return nil, nil, err
	}
	return member.User, c.args[1:], nil
}

// argsAfterMention drops the words covered by a text_mention entity.
func (c *CommandConfig) argsAfterMention(entity tgbotapi.MessageEntity) []string {
	runes := utf16Slice(c.update.Message.Text, entity.Offset+entity.Length)
	return filter.SplitArgs(strings.TrimSpace(runes))
}

func (c *BotConfig) getChatMember(userID int64) (tgbotapi.ChatMember, error) {
	var chatMember tgbotapi.ChatMember
	err := c.requestInto(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: c.chatID,
			UserID: userID,
		},
	}, &chatMember)
	if err != nil {
		return chatMember, err
	}
	if chatMember.User == nil {
		return chatMember, errors.Errorf("chat member %v has no user", userID)
	}
	return chatMember, nil
}

func (c *BotConfig) requestInto(chattable tgbotapi.Chattable, v any) error {
	var resp *tgbotapi.APIResponse
	err := telegram.FloodRetry(c.ctx, func() error {
		var err error
		resp, err = c.api.Request(chattable)
		return err
	})
	if err != nil {
		return err
	}
	return errors.Wrap(json.Unmarshal(resp.Result, v), "decode response")
}

func userName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return util.FullName(u.FirstName, u.LastName)
}

func mention(u *tgbotapi.User) string {
	return util.Mention(u.ID, userName(u))
}

// utf16Slice returns s from the given UTF-16 offset on; Telegram entity
// offsets count UTF-16 code units.
func utf16Slice(s string, offset int) string {
	var n int
	for i, r := range s {
		if n >= offset {
			return s[i:]
		}
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return ""
}
