package client

import (
	"context"
	"encoding/json"
	"guardbot/model"
	"guardbot/util"
	"time"

	"github.com/olivere/elastic/v7"
)

type EsClient struct {
	*elastic.Client
	name string
}

func newEsClient(url string) (*EsClient, error) {
	es, err := elastic.NewClient(elastic.SetURL(url), elastic.SetSniff(false))
	if err != nil {
		return nil, err
	}
	return &EsClient{Client: es, name: model.SettingsIndexName}, nil
}

func (e *EsClient) GetSettings(ctx context.Context, chatID int64) (*model.ChatSettings, error) {
	res, err := e.Get().Index(e.name).Id(util.NumToStr(chatID)).Do(ctx)
	if elastic.IsNotFound(err) {
		return model.NewChatSettings(chatID), nil
	}
	if err != nil {
		return nil, err
	}
	settings := model.NewChatSettings(chatID)
	if err := json.Unmarshal(res.Source, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (e *EsClient) SaveSettings(ctx context.Context, settings *model.ChatSettings) error {
	settings.UpdateTime = time.Now().UTC()
	_, err := e.Index().Index(e.name).Id(util.NumToStr(settings.ChatID)).BodyJson(settings).Refresh("true").Do(ctx)
	return err
}

func (e *EsClient) Close(context.Context) error {
	e.Client.Stop()
	return nil
}
