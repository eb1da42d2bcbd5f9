package client

import (
	"context"
	"encoding/json"
	"errors"
	"guardbot/model"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const mysqlTimeLayout = "2006-01-02 15:04:05"

type MysqlClient struct {
	*gorm.DB
}

func newMysqlClient(url string) (*MysqlClient, error) {
	db, err := gorm.Open(mysql.Open(url), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Second * 600)
	if err := db.AutoMigrate(&model.MysqlChatSettings{}); err != nil {
		return nil, err
	}
	return &MysqlClient{DB: db}, nil
}

func (m *MysqlClient) GetSettings(ctx context.Context, chatID int64) (*model.ChatSettings, error) {
	var row model.MysqlChatSettings
	err := m.WithContext(ctx).Where("chat_id = ?", chatID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.NewChatSettings(chatID), nil
	}
	if err != nil {
		return nil, err
	}
	return fromMysqlRow(row)
}

func (m *MysqlClient) SaveSettings(ctx context.Context, settings *model.ChatSettings) error {
	settings.UpdateTime = time.Now().UTC()
	row, err := toMysqlRow(settings)
	if err != nil {
		return err
	}
	return m.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (m *MysqlClient) Close(context.Context) error {
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toMysqlRow(s *model.ChatSettings) (model.MysqlChatSettings, error) {
	disabled, err := json.Marshal(s.Disabled)
	if err != nil {
		return model.MysqlChatSettings{}, err
	}
	afk, err := json.Marshal(s.AFK)
	if err != nil {
		return model.MysqlChatSettings{}, err
	}
	return model.MysqlChatSettings{
		ChatID:         s.ChatID,
		Disabled:       string(disabled),
		DisabledAction: string(s.DisabledAction),
		JoinMode:       string(s.JoinMode),
		AFK:            string(afk),
		UpdateTime:     s.UpdateTime.Format(mysqlTimeLayout),
	}, nil
}

func fromMysqlRow(row model.MysqlChatSettings) (*model.ChatSettings, error) {
	s := model.NewChatSettings(row.ChatID)
	if row.Disabled != "" {
		if err := json.Unmarshal([]byte(row.Disabled), &s.Disabled); err != nil {
			return nil, err
		}
	}
	if row.AFK != "" {
		if err := json.Unmarshal([]byte(row.AFK), &s.AFK); err != nil {
			return nil, err
		}
	}
	if row.DisabledAction != "" {
		s.DisabledAction = model.DisabledAction(row.DisabledAction)
	}
	if row.JoinMode != "" {
		s.JoinMode = model.JoinMode(row.JoinMode)
	}
	s.UpdateTime, _ = time.Parse(mysqlTimeLayout, row.UpdateTime)
	return s, nil
}
