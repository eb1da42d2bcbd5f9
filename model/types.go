package model

import (
	"strings"
	"time"
)

const SettingsIndexName = "chat_settings"

type Admin struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

type DisabledAction string

const (
	DisabledIgnore DisabledAction = "ignore"
	DisabledDelete DisabledAction = "delete"
)

type JoinMode string

const (
	JoinOff    JoinMode = "off"
	JoinAuto   JoinMode = "auto"
	JoinManual JoinMode = "manual"
)

func ParseJoinMode(s string) (JoinMode, bool) {
	switch m := JoinMode(s); m {
	case JoinOff, JoinAuto, JoinManual:
		return m, true
	}
	return "", false
}

type AFK struct {
	UserID   int64     `json:"user_id" bson:"user_id"`
	Name     string    `json:"name" bson:"name"`
	UserName string    `json:"username,omitempty" bson:"username,omitempty"`
	Reason   string    `json:"reason,omitempty" bson:"reason,omitempty"`
	Since    time.Time `json:"since" bson:"since"`
}

// ChatSettings is the persisted per-chat record.
type ChatSettings struct {
	ChatID         int64          `json:"chat_id" bson:"chat_id"`
	Disabled       []string       `json:"disabled,omitempty" bson:"disabled,omitempty"`
	DisabledAction DisabledAction `json:"disabled_action,omitempty" bson:"disabled_action,omitempty"`
	JoinMode       JoinMode       `json:"join_mode,omitempty" bson:"join_mode,omitempty"`
	AFK            []AFK          `json:"afk,omitempty" bson:"afk,omitempty"`
	UpdateTime     time.Time      `json:"update_time" bson:"update_time"`
}

func NewChatSettings(chatID int64) *ChatSettings {
	return &ChatSettings{
		ChatID:         chatID,
		DisabledAction: DisabledIgnore,
		JoinMode:       JoinOff,
	}
}

func (s *ChatSettings) IsDisabled(command string) bool {
	for _, c := range s.Disabled {
		if c == command {
			return true
		}
	}
	return false
}

func (s *ChatSettings) Disable(command string) bool {
	if s.IsDisabled(command) {
		return false
	}
	s.Disabled = append(s.Disabled, command)
	return true
}

func (s *ChatSettings) Enable(command string) bool {
	for i, c := range s.Disabled {
		if c == command {
			s.Disabled = append(s.Disabled[:i], s.Disabled[i+1:]...)
			return true
		}
	}
	return false
}

func (s *ChatSettings) GetAFK(userID int64) (AFK, bool) {
	for _, a := range s.AFK {
		if a.UserID == userID {
			return a, true
		}
	}
	return AFK{}, false
}

// AFKByUserName matches a username without the leading @, ignoring case.
func (s *ChatSettings) AFKByUserName(userName string) (AFK, bool) {
	userName = strings.TrimPrefix(userName, "@")
	if userName == "" {
		return AFK{}, false
	}
	for _, a := range s.AFK {
		if strings.EqualFold(a.UserName, userName) {
			return a, true
		}
	}
	return AFK{}, false
}

func (s *ChatSettings) SetAFK(afk AFK) {
	s.ClearAFK(afk.UserID)
	s.AFK = append(s.AFK, afk)
}

func (s *ChatSettings) ClearAFK(userID int64) bool {
	for i, a := range s.AFK {
		if a.UserID == userID {
			s.AFK = append(s.AFK[:i], s.AFK[i+1:]...)
			return true
		}
	}
	return false
}

// MysqlChatSettings is the row shape of ChatSettings; list fields are JSON encoded.
type MysqlChatSettings struct {
	ChatID         int64 `gorm:"primaryKey;autoIncrement:false"`
	Disabled       string
	DisabledAction string
	JoinMode       string
	AFK            string `gorm:"column:afk"`
	UpdateTime     string
}

func (MysqlChatSettings) TableName() string {
	return SettingsIndexName
}
