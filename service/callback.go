package service

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

type CallBack struct {
	*BotConfig
	query *tgbotapi.CallbackQuery
}

func NewCallBack(botConfig *BotConfig) *CallBack {
	return &CallBack{
		BotConfig: botConfig,
		query:     botConfig.update.CallbackQuery,
	}
}

// HandleCallback routes "_"-joined callback data to its handler.
func (c *CallBack) HandleCallback() {
	if c.query == nil || c.query.Message == nil {
		return
	}
	logrus.Infof("callback_user=%v data=%s", c.query.From.ID, c.query.Data)
	parts := parseCallbackData(c.query.Data)
	var err error
	switch {
	case len(parts) == 3 && parts[1] == cbJoinReq && (parts[0] == cbAccept || parts[0] == cbDecline):
		userID, perr := strconv.ParseInt(parts[2], 10, 64)
		if perr != nil {
			err = c.answer("Bad request.")
			break
		}
		err = c.joinRequestDecision(userID, parts[0] == cbAccept)
	case len(parts) == 3 && parts[0] == cbRPS:
		err = c.rpsMove(parts[1], parts[2])
	case len(parts) == 3 && parts[0] == cbTTT:
		err = c.tttMove(parts[1], parts[2])
	case len(parts) == 2 && parts[0] == cbTagAll && parts[1] == cbCancel:
		err = c.tagAllCancel()
	default:
		logrus.Warnf("unknown callback data=%s", c.query.Data)
		err = c.answer("")
	}
	c.handleError("callback", err)
}

func (c *CallBack) answer(text string) error {
	return c.request(tgbotapi.NewCallback(c.query.ID, text))
}

// editText replaces the text of the message carrying the keyboard. A nil
// markup removes the keyboard.
func (c *CallBack) editText(text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageText(c.chatID, c.query.Message.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	edit.ReplyMarkup = markup
	return c.request(edit)
}
