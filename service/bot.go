package service

import (
	"context"
	"guardbot/cache"
	"guardbot/client"
	"guardbot/config"
	"guardbot/filter"
	"guardbot/model"
	"guardbot/telegram"
	"guardbot/util"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Options struct {
	API      telegram.API
	Self     tgbotapi.User
	Config   *config.Config
	Staff    *config.Staff
	Admins   *cache.Admins
	Members  cache.Members
	Scores   cache.Scores
	Settings client.SettingsStore
	Memes    MemeSource
}

// Bot holds the process-wide dependencies shared by every handler.
type Bot struct {
	api      telegram.API
	self     tgbotapi.User
	conf     *config.Config
	staff    *config.Staff
	admins   *cache.Admins
	members  cache.Members
	scores   cache.Scores
	settings client.SettingsStore
	memes    MemeSource
	filter   *filter.Filter
	games    *gameStore
	tagging  sync.Map
	started  time.Time
	// settingsMu serializes read-modify-write of chat settings inside this process.
	settingsMu sync.Mutex
}

func New(opts Options) *Bot {
	b := &Bot{
		api:      opts.API,
		self:     opts.Self,
		conf:     opts.Config,
		staff:    opts.Staff,
		admins:   opts.Admins,
		members:  opts.Members,
		scores:   opts.Scores,
		settings: opts.Settings,
		memes:    opts.Memes,
		games:    newGameStore(),
		started:  time.Now(),
	}
	if b.conf == nil {
		b.conf = config.Default()
	}
	if b.members == nil {
		b.members = cache.NewMemoryMembers()
	}
	if b.scores == nil {
		b.scores = cache.NewMemoryScores()
	}
	if b.settings == nil {
		b.settings = client.NewMemorySettings()
	}
	var admins filter.AdminChecker
	if b.admins != nil {
		admins = b.admins
	}
	b.filter = filter.New(b.conf.CommandPrefixes, b.self.UserName, b.staff, admins, b.settings, b.api)
	for _, c := range commandsFunc {
		b.filter.Register(c.Command)
	}
	return b
}

func (b *Bot) Filter() *filter.Filter {
	return b.filter
}

type BotConfig struct {
	*Bot
	ctx           context.Context
	update        tgbotapi.Update
	chatID        int64
	messageConfig tgbotapi.MessageConfig
	botMessageID  int
}

func (b *Bot) NewBotConfig(ctx context.Context, update tgbotapi.Update) *BotConfig {
	c := &BotConfig{
		Bot:    b,
		ctx:    ctx,
		update: update,
	}
	var replyTo int
	switch {
	case update.Message != nil:
		c.chatID = update.Message.Chat.ID
		replyTo = update.Message.MessageID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		c.chatID = update.CallbackQuery.Message.Chat.ID
	case update.ChatJoinRequest != nil:
		c.chatID = update.ChatJoinRequest.Chat.ID
	}
	c.messageConfig = tgbotapi.MessageConfig{
		BaseChat: tgbotapi.BaseChat{
			ChatID:           c.chatID,
			ReplyToMessageID: replyTo,
		},
		ParseMode:             tgbotapi.ModeHTML,
		DisableWebPagePreview: true,
	}
	return c
}

func (c *BotConfig) isCloseWork() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

// send delivers chattable, retrying once after a flood wait.
func (c *BotConfig) send(chattable tgbotapi.Chattable) (tgbotapi.Message, error) {
	var msg tgbotapi.Message
	err := telegram.FloodRetry(c.ctx, func() error {
		var err error
		msg, err = c.api.Send(chattable)
		return err
	})
	return msg, err
}

func (c *BotConfig) sendMessage() error {
	msg := c.messageConfig
	req, err := c.send(msg)
	if err != nil {
		// the triggering message may already be gone
		if msg.ReplyToMessageID != 0 && telegram.Classify(err) == telegram.KindUnknown {
			msg.ReplyToMessageID = 0
			req, err = c.send(msg)
		}
		if err != nil {
			return errors.Wrap(err, "send message")
		}
	}
	c.botMessageID = req.MessageID
	logrus.Debugf("send_msg:%v", util.LogMarshal(msg))
	return nil
}

func (c *BotConfig) reply(text string) error {
	c.messageConfig.Text = text
	c.messageConfig.ReplyMarkup = nil
	return c.sendMessage()
}

func (c *BotConfig) replyWithMarkup(text string, markup tgbotapi.InlineKeyboardMarkup) error {
	c.messageConfig.Text = text
	c.messageConfig.ReplyMarkup = markup
	return c.sendMessage()
}

func (c *BotConfig) request(chattable tgbotapi.Chattable) error {
	return telegram.FloodRetry(c.ctx, func() error {
		_, err := c.api.Request(chattable)
		return err
	})
}

func (c *BotConfig) from() *tgbotapi.User {
	switch {
	case c.update.Message != nil:
		return c.update.Message.From
	case c.update.CallbackQuery != nil:
		return c.update.CallbackQuery.From
	case c.update.ChatJoinRequest != nil:
		return &c.update.ChatJoinRequest.From
	}
	return nil
}

func (c *BotConfig) isPrivate() bool {
	return c.update.Message != nil && c.update.Message.Chat.IsPrivate()
}

// isAdmin counts support staff and anonymous admins as chat admins.
func (c *BotConfig) isAdmin(userID int64) bool {
	if c.staff.IsSupport(userID) {
		return true
	}
	if msg := c.update.Message; msg != nil && msg.From != nil && msg.From.ID == userID &&
		msg.SenderChat != nil && msg.SenderChat.ID == msg.Chat.ID {
		return true
	}
	if c.admins == nil {
		return false
	}
	ok, err := c.admins.IsAdmin(c.ctx, c.chatID, userID)
	if err != nil {
		logrus.Errorf("is_admin chat=%v user=%v err=%v", c.chatID, userID, err)
		return false
	}
	return ok
}

// handleError turns a handler error into a chat reply. Nothing here is fatal.
func (c *BotConfig) handleError(name string, err error) {
	if err == nil {
		return
	}
	kind := telegram.Classify(err)
	switch kind {
	case telegram.KindPermission, telegram.KindFlood:
		logrus.Warnf("handler=%s chat=%v kind=%v err=%v", name, c.chatID, kind, err)
	default:
		var ue *userError
		if errors.As(err, &ue) {
			logrus.Infof("handler=%s chat=%v user_error=%v", name, c.chatID, ue.msg)
			_ = c.reply(util.Escape(ue.msg))
			return
		}
		logrus.Errorf("handler=%s chat=%v err=%+v", name, c.chatID, errors.WithStack(err))
	}
	if c.chatID == 0 {
		return
	}
	if sendErr := c.reply(util.Escape(telegram.UserMessage(err, c.conf.SupportChat))); sendErr != nil {
		logrus.Errorf("handler=%s report error failed: %v", name, sendErr)
	}
}

// userError is a validation failure shown verbatim to the user.
type userError struct {
	msg string
}

func (e *userError) Error() string {
	return e.msg
}

func userErr(msg string) error {
	return &userError{msg: msg}
}

func (c *BotConfig) getSettings() (*model.ChatSettings, error) {
	s, err := c.settings.GetSettings(c.ctx, c.chatID)
	return s, errors.Wrap(err, "get settings")
}

// updateSettings applies fn to the chat settings and saves them when fn reports a change.
func (c *BotConfig) updateSettings(fn func(s *model.ChatSettings) bool) error {
	c.settingsMu.Lock()
	defer c.settingsMu.Unlock()
	s, err := c.settings.GetSettings(c.ctx, c.chatID)
	if err != nil {
		return errors.Wrap(err, "get settings")
	}
	if !fn(s) {
		return nil
	}
	return errors.Wrap(c.settings.SaveSettings(c.ctx, s), "save settings")
}

func (b *Bot) Config() *config.Config {
	return b.conf
}
