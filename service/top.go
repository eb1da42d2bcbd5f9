package service

import (
	"guardbot/model"
	"guardbot/util"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const gameTopSize = 10

func init() {
	register(commandFunc{Command: cmd("gametop"), Help: "game leaderboard of this chat", Run: (*CommandConfig).gameTopCommand})
}

func (c *BotConfig) addScore(u *tgbotapi.User) {
	if err := c.scores.Incr(c.ctx, c.chatID, model.Admin{UserID: u.ID, Name: userName(u)}, 1); err != nil {
		logrus.Errorf("game_top chat=%v user=%v err=%v", c.chatID, u.ID, err)
	}
}

func (c *CommandConfig) gameTopCommand() error {
	if err := c.requireGroup(); err != nil {
		return err
	}
	top, err := c.scores.Top(c.ctx, c.chatID, gameTopSize)
	if err != nil {
		return err
	}
	if len(top) == 0 {
		return c.reply("Nobody has won a game here yet.")
	}
	text := "<b>Game leaderboard</b>"
	for i, s := range top {
		text = util.StrBuilder(text, "\n", util.NumToStr(i+1), ". ",
			util.Escape(util.TruncateName(s.Name, 32)), " - ", util.NumToStr(s.Score))
	}
	return c.reply(text)
}
