package telegram

import (
	"context"
	"guardbot/model"
	"guardbot/util"

	"github.com/bitly/go-simplejson"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type AdminFetcher struct {
	api API
}

func NewAdminFetcher(api API) *AdminFetcher {
	return &AdminFetcher{api: api}
}

// FetchAdmins lists chat administrators, bots excluded, in the order Telegram returns them.
// A flood-wait error is retried once.
func (f *AdminFetcher) FetchAdmins(ctx context.Context, chatID int64) ([]model.Admin, error) {
	var admins []model.Admin
	err := FloodRetry(ctx, func() error {
		req, err := f.api.Request(tgbotapi.ChatAdministratorsConfig{
			ChatConfig: tgbotapi.ChatConfig{
				ChatID: chatID,
			},
		})
		if err != nil {
			return err
		}
		admins, err = parseAdmins(req.Result)
		return err
	})
	if err != nil {
		return nil, err
	}
	return admins, nil
}

func parseAdmins(raw []byte) ([]model.Admin, error) {
	resJson, err := simplejson.NewJson(raw)
	if err != nil {
		return nil, err
	}
	members := resJson.MustArray()
	admins := make([]model.Admin, 0, len(members))
	for i := range members {
		user := resJson.GetIndex(i).Get("user")
		if user.Get("is_bot").MustBool() {
			continue
		}
		id := user.Get("id").MustInt64()
		if id == 0 {
			continue
		}
		name := util.FullName(user.Get("first_name").MustString(), user.Get("last_name").MustString())
		if resJson.GetIndex(i).Get("is_anonymous").MustBool() {
			if title := resJson.GetIndex(i).Get("custom_title").MustString(); title != "" {
				name = title
			}
		}
		admins = append(admins, model.Admin{UserID: id, Name: name})
	}
	return admins, nil
}
