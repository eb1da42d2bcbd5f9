package client

import (
	"context"
	"errors"
	"guardbot/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoClient struct {
	*mongo.Client
	coll *mongo.Collection
}

func newMongoClient(url string) (*MongoClient, error) {
	opt := options.Client().ApplyURI(url).
		SetMinPoolSize(5).SetMaxPoolSize(100)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	db, err := mongo.Connect(ctx, opt)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx, nil); err != nil {
		return nil, err
	}
	coll := db.Database(settingsDatabaseName).Collection(model.SettingsIndexName)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "chat_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return &MongoClient{Client: db, coll: coll}, nil
}

func (m *MongoClient) GetSettings(ctx context.Context, chatID int64) (*model.ChatSettings, error) {
	settings := model.NewChatSettings(chatID)
	err := m.coll.FindOne(ctx, bson.D{{Key: "chat_id", Value: chatID}}).Decode(settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.NewChatSettings(chatID), nil
	}
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (m *MongoClient) SaveSettings(ctx context.Context, settings *model.ChatSettings) error {
	settings.UpdateTime = time.Now().UTC()
	_, err := m.coll.ReplaceOne(ctx,
		bson.D{{Key: "chat_id", Value: settings.ChatID}},
		settings,
		options.Replace().SetUpsert(true))
	return err
}

func (m *MongoClient) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
