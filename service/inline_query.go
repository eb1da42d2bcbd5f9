package service

import (
	"errors"
	"guardbot/util"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

type InlineQueryConfig struct {
	*BotConfig
}

func NewInlineQueryConfig(botConfig *BotConfig) *InlineQueryConfig {
	return &InlineQueryConfig{
		BotConfig: botConfig,
	}
}

// HandleInlineQuery answers "@bot <expr>" with the calc result.
func (c *InlineQueryConfig) HandleInlineQuery() {
	q := c.update.InlineQuery
	if q == nil || q.Query == "" {
		return
	}
	var article tgbotapi.InlineQueryResultArticle
	res, err := calc(q.Query)
	if err != nil {
		var ue *userError
		if !errors.As(err, &ue) {
			logrus.Errorf("inline_calc err=%v", err)
			return
		}
		article = tgbotapi.NewInlineQueryResultArticle(q.ID, ue.msg, q.Query)
	} else {
		text := util.StrBuilder(q.Query, " = ", res)
		article = tgbotapi.NewInlineQueryResultArticle(q.ID, res, text)
		article.Description = text
	}
	err = c.request(tgbotapi.InlineConfig{
		InlineQueryID: q.ID,
		Results:       []interface{}{article},
		CacheTime:     60,
		IsPersonal:    false,
	})
	if err != nil {
		logrus.Warnf("inline_query user=%v err=%v", q.From.ID, err)
	}
}
