package app

import (
	"context"
	"guardbot/cache"
	"guardbot/client"
	"guardbot/config"
	"guardbot/controller"
	"guardbot/db"
	"guardbot/service"
	"guardbot/telegram"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const (
	updateTimeout     = 10 * time.Second
	groupHandlerTTL   = 600 * time.Second
	privateHandlerTTL = 60 * time.Second
	chatQueueSize     = 10
)

func RunBot(ctx context.Context, conf *config.Config) error {
	bot, err := tgbotapi.NewBotAPI(conf.BotToken)
	if err != nil {
		return err
	}
	bot.Debug = false
	logrus.Infof("bot=%v", bot.Self.UserName)

	b, closeFn, err := newService(conf, bot)
	if err != nil {
		return err
	}
	defer closeFn()

	var updates Client
	switch conf.UpdatesType {
	case "webhook":
		logrus.Info("updates_type=webhook")
		updates = NewWebhook(bot, conf.Webhook)
	default:
		logrus.Info("updates_type=polling")
		updates = NewPolling(bot)
	}
	ch, err := updates.Channel(ctx)
	if err != nil {
		return err
	}
	newDispatcher(b).run(ctx, ch)
	return nil
}

// newService wires the stores. Without redis the caches live in memory.
func newService(conf *config.Config, bot *tgbotapi.BotAPI) (*service.Bot, func(), error) {
	var (
		store    cache.Store
		cooldown cache.Cooldown
		members  cache.Members
		scores   cache.Scores
		closers  []func()
	)
	if conf.RedisHost != "" {
		rdb, err := db.NewRedis(conf.RedisHost)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = rdb.Close() })
		store = cache.NewRedisStore(rdb)
		cooldown = cache.NewRedisCooldown(rdb)
		members = cache.NewRedisMembers(rdb)
		scores = cache.NewRedisScores(rdb)
	} else {
		logrus.Warn("redis_host is empty, caches are kept in memory")
		store = cache.NewMemoryStore()
		cooldown = cache.NewMemoryCooldown()
		members = cache.NewMemoryMembers()
		scores = cache.NewMemoryScores()
	}

	settings, err := client.NewSettingsStore(conf.Store.Provider, conf.Store.URL)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := settings.Close(ctx); err != nil {
			logrus.Error(err)
		}
	})

	var memes service.MemeSource
	if conf.MemeAPI != "" {
		memes = client.NewMemeAPI(conf.MemeAPI, &http.Client{Timeout: 5 * time.Second})
	}

	b := service.New(service.Options{
		API:      bot,
		Self:     bot.Self,
		Config:   conf,
		Staff:    config.NewStaff(conf.Staff),
		Admins:   cache.NewAdmins(store, telegram.NewAdminFetcher(bot), cooldown, conf.CooldownWindow()),
		Members:  members,
		Scores:   scores,
		Settings: settings,
		Memes:    memes,
	})
	closeFn := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return b, closeFn, nil
}

type chatChannel chan tgbotapi.Update

// dispatcher fans updates out to one goroutine per chat so a chat's updates
// are handled in order while chats run in parallel.
type dispatcher struct {
	bot    *service.Bot
	mu     sync.Mutex
	chats  map[int64]chatChannel
	wg     sync.WaitGroup
	handle func(ctx context.Context, update tgbotapi.Update)
}

func newDispatcher(bot *service.Bot) *dispatcher {
	d := &dispatcher{bot: bot, chats: make(map[int64]chatChannel)}
	d.handle = func(ctx context.Context, update tgbotapi.Update) {
		controller.Controller(ctx, d.bot, update)
	}
	return d
}

func (d *dispatcher) run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer d.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			d.dispatch(ctx, update)
		}
	}
}

// dispatch sends under the lock so a handler never exits with queued updates.
func (d *dispatcher) dispatch(ctx context.Context, update tgbotapi.Update) {
	chat := controller.ChatOf(update)
	if chat == nil {
		// inline queries carry no chat and need no ordering
		if update.InlineQuery != nil {
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				uctx, cancel := context.WithTimeout(ctx, updateTimeout)
				defer cancel()
				d.handle(uctx, update)
			}()
		}
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.chats[chat.ID]
	if !ok {
		logrus.Infof("new chat_handler=%v", chat.ID)
		ch = make(chatChannel, chatQueueSize)
		d.chats[chat.ID] = ch
		ttl := groupHandlerTTL
		if chat.IsPrivate() {
			ttl = privateHandlerTTL
		}
		d.wg.Add(1)
		go d.chatHandler(ctx, chat.ID, ch, ttl)
	}
	select {
	case ch <- update:
	case <-ctx.Done():
	}
}

func (d *dispatcher) chatHandler(ctx context.Context, chatID int64, ch chatChannel, ttl time.Duration) {
	defer d.wg.Done()
	timer := time.NewTimer(ttl)
	defer timer.Stop()
	for {
		select {
		case update := <-ch:
			uctx, cancel := context.WithTimeout(ctx, updateTimeout)
			d.handle(uctx, update)
			cancel()
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(ttl)
		case <-timer.C:
			if d.tryClose(chatID, ch) {
				logrus.Infof("close chat_handler=%v", chatID)
				return
			}
			timer.Reset(ttl)
		case <-ctx.Done():
			return
		}
	}
}

// tryClose unregisters an idle handler. It gives up while dispatch holds the
// lock, since dispatch may be waiting on this handler to read.
func (d *dispatcher) tryClose(chatID int64, ch chatChannel) bool {
	if !d.mu.TryLock() {
		return false
	}
	defer d.mu.Unlock()
	if len(ch) > 0 {
		return false
	}
	delete(d.chats, chatID)
	return true
}
