package service

import (
	"guardbot/model"
	"guardbot/util"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

func init() {
	register(commandFunc{Command: cmd("autojoin"), Help: "off, auto or manual: how join requests are handled", Run: (*CommandConfig).autoJoinCommand})
}

func (c *CommandConfig) autoJoinCommand() error {
	if err := c.requireAdmin(); err != nil {
		return err
	}
	if len(c.args) == 0 {
		s, err := c.getSettings()
		if err != nil {
			return err
		}
		return c.reply(util.StrBuilder("Join requests are set to <b>", string(s.JoinMode), "</b>."))
	}
	mode, ok := model.ParseJoinMode(strings.ToLower(c.arg(0)))
	if !ok {
		return userErr("Use off, auto or manual.")
	}
	err := c.updateSettings(func(s *model.ChatSettings) bool {
		if s.JoinMode == mode {
			return false
		}
		s.JoinMode = mode
		return true
	})
	if err != nil {
		return err
	}
	return c.reply(util.StrBuilder("Join requests are now set to <b>", string(mode), "</b>."))
}

type JoinRequest struct {
	*BotConfig
	req *tgbotapi.ChatJoinRequest
}

func NewJoinRequest(botConfig *BotConfig) *JoinRequest {
	return &JoinRequest{BotConfig: botConfig, req: botConfig.update.ChatJoinRequest}
}

// HandleJoinRequest applies the chat's join policy to a pending request.
func (c *JoinRequest) HandleJoinRequest() {
	if c.req == nil || !c.conf.Modules.EnableAutoJoin {
		return
	}
	s, err := c.getSettings()
	if err != nil {
		c.handleError("join_request", err)
		return
	}
	user := &c.req.From
	logrus.Infof("join_request chat=%v user=%v mode=%s", c.chatID, user.ID, s.JoinMode)
	switch s.JoinMode {
	case model.JoinAuto:
		err = c.request(tgbotapi.ApproveChatJoinRequestConfig{
			ChatConfig: tgbotapi.ChatConfig{ChatID: c.chatID},
			UserID:     user.ID,
		})
	case model.JoinManual:
		uid := util.NumToStr(user.ID)
		markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Approve", callbackData(cbAccept, cbJoinReq, uid)),
			tgbotapi.NewInlineKeyboardButtonData("Decline", callbackData(cbDecline, cbJoinReq, uid)),
		))
		err = c.replyWithMarkup(util.StrBuilder(mention(user), " wants to join this chat."), markup)
	}
	c.handleError("join_request", err)
}

func (c *CallBack) joinRequestDecision(userID int64, approve bool) error {
	from := c.query.From
	if !c.isAdmin(from.ID) {
		return c.answer("Only admins can do this.")
	}
	var chattable tgbotapi.Chattable
	verb := "declined"
	if approve {
		verb = "approved"
		chattable = tgbotapi.ApproveChatJoinRequestConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: c.chatID}, UserID: userID}
	} else {
		chattable = tgbotapi.DeclineChatJoinRequest{ChatConfig: tgbotapi.ChatConfig{ChatID: c.chatID}, UserID: userID}
	}
	if err := c.request(chattable); err != nil {
		// the request was already handled elsewhere
		if strings.Contains(err.Error(), "HIDE_REQUESTER_MISSING") {
			_ = c.answer("This request is no longer pending.")
			return c.editText("This join request was already handled.", nil)
		}
		return err
	}
	if err := c.answer(""); err != nil {
		logrus.Warnf("answer_callback err=%v", err)
	}
	logrus.Infof("join_request chat=%v user=%v %s_by=%v", c.chatID, userID, verb, from.ID)
	return c.editText(util.StrBuilder("Join request of ", util.Mention(userID, ""), " ", verb, " by ", mention(from), "."), nil)
}
