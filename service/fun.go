package service

import (
	"context"
	"errors"
	"guardbot/client"
	"guardbot/util"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const (
	calcMaxLen   = 100
	calcAllowed  = "0123456789+-*/%^(). "
	rollMaxSides = 1000000
)

type MemeSource interface {
	RandomMeme(ctx context.Context) (client.Meme, error)
}

var slapTemplates = []string{
	"%s slaps %s around a bit with a large trout.",
	"%s throws a rubber chicken at %s.",
	"%s hits %s with a keyboard.",
	"%s pokes %s with a stick.",
	"%s drops a piano on %s.",
}

func init() {
	register(commandFunc{Command: cmd("calc"), Help: "evaluate an arithmetic expression", Run: (*CommandConfig).calcCommand})
	register(commandFunc{Command: cmd("slap"), Help: "slap the replied user", Run: (*CommandConfig).slapCommand})
	register(commandFunc{Command: cmd("roll"), Help: "roll a die, optionally with N sides", Run: (*CommandConfig).rollCommand})
	register(commandFunc{Command: cmd("toss"), Help: "toss a coin", Run: (*CommandConfig).tossCommand})
	register(commandFunc{Command: cmd("meme"), Help: "a random meme", Run: (*CommandConfig).memeCommand})
}

// calc evaluates plain arithmetic; anything else is rejected before parsing.
func calc(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", userErr("Give me something to calculate.")
	}
	if len(input) > calcMaxLen {
		return "", userErr("That expression is too long.")
	}
	if strings.IndexFunc(input, func(r rune) bool {
		return !strings.ContainsRune(calcAllowed, r)
	}) >= 0 {
		return "", userErr("Only numbers and + - * / % ^ ( ) are allowed.")
	}
	out, err := expr.Eval(input, nil)
	if err != nil {
		return "", userErr("I can't evaluate that.")
	}
	switch v := out.(type) {
	case int:
		return util.NumToStr(v), nil
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return "", userErr("The result is not a number.")
		}
		return strconv.FormatFloat(v, 'g', 12, 64), nil
	}
	return "", userErr("I can't evaluate that.")
}

func (c *CommandConfig) calcCommand() error {
	res, err := calc(c.commandArg)
	if err != nil {
		return err
	}
	return c.reply(util.StrBuilder("<code>", util.Escape(strings.TrimSpace(c.commandArg)), " = ", res, "</code>"))
}

func (c *CommandConfig) slapCommand() error {
	from := c.from()
	target := from
	actor := &tgbotapi.User{ID: c.self.ID, FirstName: c.self.FirstName}
	if reply := c.update.Message.ReplyToMessage; reply != nil && reply.From != nil {
		target = reply.From
		actor = from
	}
	tpl := slapTemplates[randInt(len(slapTemplates))]
	return c.reply(strings.Replace(strings.Replace(tpl, "%s", mention(actor), 1), "%s", mention(target), 1))
}

func (c *CommandConfig) rollCommand() error {
	sides := 6
	if arg := c.arg(0); arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 2 || n > rollMaxSides {
			return userErr(util.StrBuilder("Pick a number of sides between 2 and ", util.NumToStr(rollMaxSides), "."))
		}
		sides = n
	}
	return c.reply(util.StrBuilder("🎲 ", util.NumToStr(randInt(sides)+1)))
}

func (c *CommandConfig) tossCommand() error {
	if randInt(2) == 0 {
		return c.reply("🪙 Heads")
	}
	return c.reply("🪙 Tails")
}

func (c *CommandConfig) memeCommand() error {
	if c.memes == nil {
		return userErr("Memes are not configured.")
	}
	var (
		meme client.Meme
		err  error
	)
	for i := 0; i < 3; i++ {
		meme, err = c.memes.RandomMeme(c.ctx)
		if !errors.Is(err, client.ErrNSFW) {
			break
		}
	}
	if errors.Is(err, client.ErrNSFW) {
		return userErr("No safe meme right now, try again.")
	}
	if err != nil {
		logrus.Warnf("meme err=%v", err)
		return userErr("The meme source is not answering, try again later.")
	}
	photo := tgbotapi.NewPhoto(c.chatID, tgbotapi.FileURL(meme.URL))
	photo.Caption = util.Escape(meme.Title)
	photo.ParseMode = tgbotapi.ModeHTML
	photo.ReplyToMessageID = c.update.Message.MessageID
	if _, err := c.send(photo); err != nil {
		return err
	}
	return nil
}
