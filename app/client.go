package app

import (
	"context"
	"errors"
	"guardbot/config"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

var allowedUpdates = []string{"message", "callback_query", "chat_join_request", "inline_query"}

type Client interface {
	Channel(ctx context.Context) (tgbotapi.UpdatesChannel, error)
}

type Polling struct {
	bot *tgbotapi.BotAPI
}

func NewPolling(bot *tgbotapi.BotAPI) *Polling {
	return &Polling{bot: bot}
}

type Webhook struct {
	bot  *tgbotapi.BotAPI
	conf config.Webhook
}

func NewWebhook(bot *tgbotapi.BotAPI, conf config.Webhook) *Webhook {
	return &Webhook{bot: bot, conf: conf}
}

func (c Polling) Channel(ctx context.Context) (tgbotapi.UpdatesChannel, error) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = allowedUpdates
	updates := c.bot.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		c.bot.StopReceivingUpdates()
	}()
	return updates, nil
}

func (c Webhook) Channel(ctx context.Context) (tgbotapi.UpdatesChannel, error) {
	info, err := c.setWebhook()
	if err != nil {
		return nil, err
	}
	logrus.Infof("webhook=%s", info)
	mux := http.NewServeMux()
	updates := make(chan tgbotapi.Update, c.bot.Buffer)
	mux.HandleFunc("/"+c.conf.Token, func(w http.ResponseWriter, r *http.Request) {
		update, err := c.bot.HandleUpdate(r)
		if err != nil {
			logrus.Warnf("webhook update err=%v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		select {
		case updates <- *update:
		case <-r.Context().Done():
		}
	})
	srv := &http.Server{
		Addr:              c.conf.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Error(err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return updates, nil
}
