package service

import (
	"context"
	"guardbot/util"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const tagAllBatch = 5

// tagAllInterval spaces out tag-all batches to stay under the flood limit.
var tagAllInterval = 2 * time.Second

type tagJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func init() {
	register(commandFunc{Command: cmd("tagall"), Help: "mention every member I have seen, with an optional text", Run: (*CommandConfig).tagAllCommand})
}

func (c *CommandConfig) tagAllCommand() error {
	if err := c.requireAdmin(); err != nil {
		return err
	}
	members, err := c.members.List(c.ctx, c.chatID)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return userErr("I haven't seen any members here yet.")
	}
	ctx, cancel := context.WithCancel(context.Background())
	job := &tagJob{cancel: cancel, done: make(chan struct{})}
	if _, running := c.tagging.LoadOrStore(c.chatID, job); running {
		cancel()
		return userErr("A tag-all is already running here.")
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Cancel", callbackData(cbTagAll, cbCancel)),
	))
	text := util.StrBuilder("Tagging ", util.NumToStr(len(members)), " members.")
	if err := c.replyWithMarkup(text, markup); err != nil {
		c.tagging.Delete(c.chatID)
		cancel()
		return err
	}

	note := util.Escape(c.commandArg)
	bc := c.Bot.NewBotConfig(ctx, c.update)
	go func() {
		defer close(job.done)
		defer c.tagging.CompareAndDelete(bc.chatID, job)
		defer cancel()
		for i := 0; i < len(members); i += tagAllBatch {
			if i > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(tagAllInterval):
				}
			}
			if bc.isCloseWork() {
				logrus.Infof("tagall chat=%v canceled at=%v", bc.chatID, i)
				return
			}
			end := i + tagAllBatch
			if end > len(members) {
				end = len(members)
			}
			mentions := make([]string, 0, end-i)
			for _, m := range members[i:end] {
				mentions = append(mentions, util.Mention(m.UserID, m.Name))
			}
			text := strings.Join(mentions, " ")
			if note != "" {
				text = util.StrBuilder(note, "\n", text)
			}
			if err := bc.reply(text); err != nil {
				bc.handleError("tagall", err)
				return
			}
		}
		logrus.Infof("tagall chat=%v members=%v", bc.chatID, len(members))
	}()
	return nil
}

func (c *CallBack) tagAllCancel() error {
	if !c.isAdmin(c.update.CallbackQuery.From.ID) {
		return c.answer("Only admins can cancel this.")
	}
	v, ok := c.tagging.LoadAndDelete(c.chatID)
	if !ok {
		return c.answer("Nothing to cancel.")
	}
	v.(*tagJob).cancel()
	if err := c.answer("Canceled."); err != nil {
		logrus.Warnf("answer_callback err=%v", err)
	}
	return c.editText("Tag-all canceled.", nil)
}
