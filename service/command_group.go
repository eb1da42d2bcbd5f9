package service

import (
	"errors"
	"guardbot/cache"
	"guardbot/model"
	"guardbot/util"
	"math"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// customTitleMax is the Bot API limit for admin custom titles.
const customTitleMax = 16

func init() {
	register(commandFunc{Command: cmd("admins"), Help: "list the chat admins", Run: (*CommandConfig).adminsCommand})
	register(commandFunc{Command: cmd("admincache"), Help: "reload the admin list", Run: (*CommandConfig).adminCacheCommand})
	register(commandFunc{Command: cmd("promote"), Help: "promote the replied user, optionally with a title", Run: (*CommandConfig).promoteCommand})
	register(commandFunc{Command: cmd("demote"), Help: "demote the replied user", Run: (*CommandConfig).demoteCommand})
	register(commandFunc{Command: noDisable("disable"), Help: "disable commands in this chat", Run: (*CommandConfig).disableCommand})
	register(commandFunc{Command: noDisable("enable"), Help: "enable commands again, or all", Run: (*CommandConfig).enableCommand})
	register(commandFunc{Command: noDisable("disabled"), Help: "list disabled commands", Run: (*CommandConfig).disabledCommand})
	register(commandFunc{Command: noDisable("disabledel"), Help: "on/off: delete disabled commands sent by members", Run: (*CommandConfig).disabledDelCommand})
}

func (c *CommandConfig) adminsCommand() error {
	if err := c.requireGroup(); err != nil {
		return err
	}
	if c.admins == nil {
		return userErr("The admin cache is not available.")
	}
	admins, err := c.admins.Lookup(c.ctx, c.chatID)
	if err != nil {
		return err
	}
	text := util.StrBuilder("<b>Admins in this chat</b> (", util.NumToStr(len(admins)), "):")
	for _, admin := range admins {
		text = util.StrBuilder(text, "\n- ", util.Escape(util.TruncateName(admin.Name, 32)))
	}
	return c.reply(text)
}

func (c *CommandConfig) adminCacheCommand() error {
	if err := c.requireGroup(); err != nil {
		return err
	}
	if c.admins == nil {
		return userErr("The admin cache is not available.")
	}
	admins, err := c.admins.RequestReload(c.ctx, c.chatID, c.staff.IsSupport(c.from().ID))
	var cooldown *cache.CooldownError
	if errors.As(err, &cooldown) {
		wait := int(math.Ceil(cooldown.Wait.Seconds()))
		return userErr(util.StrBuilder("The admin list was refreshed recently, try again in ", util.NumToStr(wait), " seconds."))
	}
	if err != nil {
		return err
	}
	return c.reply(util.StrBuilder("Admin list reloaded, ", util.NumToStr(len(admins)), " admins."))
}

func (c *CommandConfig) promoteCommand() error {
	if err := c.requireAdmin(); err != nil {
		return err
	}
	user, rest, err := c.extractUser()
	if err != nil {
		return err
	}
	if user.ID == c.self.ID {
		return userErr("I can't promote myself.")
	}
	err = c.request(tgbotapi.PromoteChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: c.chatID,
			UserID: user.ID,
		},
		CanManageChat:       true,
		CanDeleteMessages:   true,
		CanManageVoiceChats: true,
		CanInviteUsers:      true,
		CanRestrictMembers:  true,
		CanPinMessages:      true,
	})
	if err != nil {
		return err
	}
	title := strings.Join(rest, " ")
	if title != "" {
		title = util.TruncateName(title, customTitleMax)
		err := c.request(tgbotapi.SetChatAdministratorCustomTitle{
			ChatMemberConfig: tgbotapi.ChatMemberConfig{
				ChatID: c.chatID,
				UserID: user.ID,
			},
			CustomTitle: strings.TrimSuffix(title, "…"),
		})
		if err != nil {
			logrus.Warnf("custom_title chat=%v user=%v err=%v", c.chatID, user.ID, err)
		}
	}
	c.mutateAdmins(cache.OpAdd, model.Admin{UserID: user.ID, Name: userName(user)})
	logrus.Infof("handle_user:%v promoted", user.ID)
	return c.reply(util.StrBuilder(mention(user), " is now an admin."))
}

func (c *CommandConfig) demoteCommand() error {
	if err := c.requireAdmin(); err != nil {
		return err
	}
	user, _, err := c.extractUser()
	if err != nil {
		return err
	}
	if user.ID == c.self.ID {
		return userErr("I can't demote myself.")
	}
	err = c.request(tgbotapi.PromoteChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: c.chatID,
			UserID: user.ID,
		},
	})
	if err != nil {
		return err
	}
	c.mutateAdmins(cache.OpRemove, model.Admin{UserID: user.ID, Name: userName(user)})
	logrus.Infof("handle_user:%v demoted", user.ID)
	return c.reply(util.StrBuilder(mention(user), " is no longer an admin."))
}

// mutateAdmins keeps a cached entry in step with a promotion. A chat that is
// not cached stays uncached.
func (c *BotConfig) mutateAdmins(op cache.Op, admin model.Admin) {
	if c.admins == nil {
		return
	}
	err := c.admins.Mutate(c.ctx, c.chatID, op, admin)
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		logrus.Errorf("admin_cache %v chat=%v user=%v err=%v", op, c.chatID, admin.UserID, err)
	}
}

func (c *CommandConfig) disableCommand() error {
	if err := c.requireAdmin(); err != nil {
		return err
	}
	if len(c.args) == 0 {
		return userErr("Tell me which commands to disable.")
	}
	names, unknown := c.disableableArgs()
	if len(unknown) > 0 {
		return userErr(util.StrBuilder("These commands can't be disabled: ", strings.Join(unknown, ", ")))
	}
	err := c.updateSettings(func(s *model.ChatSettings) bool {
		changed := false
		for _, name := range names {
			changed = s.Disable(name) || changed
		}
		return changed
	})
	if err != nil {
		return err
	}
	return c.reply(util.StrBuilder("Disabled: <code>", util.Escape(strings.Join(names, " ")), "</code>"))
}

func (c *CommandConfig) enableCommand() error {
	if err := c.requireAdmin(); err != nil {
		return err
	}
	if len(c.args) == 0 {
		return userErr("Tell me which commands to enable, or all.")
	}
	if strings.EqualFold(c.args[0], "all") {
		err := c.updateSettings(func(s *model.ChatSettings) bool {
			changed := len(s.Disabled) > 0
			s.Disabled = nil
			return changed
		})
		if err != nil {
			return err
		}
		return c.reply("All commands are enabled.")
	}
	names, _ := c.disableableArgs()
	var enabled []string
	err := c.updateSettings(func(s *model.ChatSettings) bool {
		for _, name := range names {
			if s.Enable(name) {
				enabled = append(enabled, name)
			}
		}
		return len(enabled) > 0
	})
	if err != nil {
		return err
	}
	if len(enabled) == 0 {
		return userErr("None of those commands were disabled.")
	}
	return c.reply(util.StrBuilder("Enabled: <code>", util.Escape(strings.Join(enabled, " ")), "</code>"))
}

// disableableArgs splits the arguments into commands that can be disabled and the rest.
func (c *CommandConfig) disableableArgs() (names, unknown []string) {
	allowed := make(map[string]struct{})
	for _, name := range c.filter.Disableable() {
		allowed[name] = struct{}{}
	}
	for _, arg := range c.args {
		name := strings.ToLower(strings.TrimLeft(arg, strings.Join(c.conf.CommandPrefixes, "")))
		if _, ok := allowed[name]; ok {
			names = append(names, name)
		} else {
			unknown = append(unknown, arg)
		}
	}
	return names, unknown
}

func (c *CommandConfig) disabledCommand() error {
	if err := c.requireGroup(); err != nil {
		return err
	}
	s, err := c.getSettings()
	if err != nil {
		return err
	}
	if len(s.Disabled) == 0 {
		return c.reply("No commands are disabled here.")
	}
	disabled := append([]string(nil), s.Disabled...)
	sort.Strings(disabled)
	text := util.StrBuilder("<b>Disabled commands</b> (action: ", string(s.DisabledAction), "):")
	for _, name := range disabled {
		text = util.StrBuilder(text, "\n- <code>", util.Escape(name), "</code>")
	}
	return c.reply(text)
}

func (c *CommandConfig) disabledDelCommand() error {
	if err := c.requireAdmin(); err != nil {
		return err
	}
	var action model.DisabledAction
	switch strings.ToLower(c.arg(0)) {
	case "on", "yes", "true":
		action = model.DisabledDelete
	case "off", "no", "false":
		action = model.DisabledIgnore
	default:
		return userErr("Use on or off.")
	}
	err := c.updateSettings(func(s *model.ChatSettings) bool {
		if s.DisabledAction == action {
			return false
		}
		s.DisabledAction = action
		return true
	})
	if err != nil {
		return err
	}
	if action == model.DisabledDelete {
		return c.reply("Disabled commands sent by members will be deleted.")
	}
	return c.reply("Disabled commands sent by members will be ignored.")
}
