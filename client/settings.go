package client

import (
	"context"
	"fmt"
	"guardbot/model"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

const settingsDatabaseName = "guardbot"

// SettingsStore persists per-chat settings: disabled commands, join mode and AFK records.
type SettingsStore interface {
	// GetSettings returns defaults for chats without a record.
	GetSettings(ctx context.Context, chatID int64) (*model.ChatSettings, error)
	SaveSettings(ctx context.Context, settings *model.ChatSettings) error
	Close(ctx context.Context) error
}

var (
	settingsProvider   = make(map[string]func(string) (SettingsStore, error))
	settingsProviderMu sync.RWMutex
)

func RegisterSettingsProvider(name string, fn func(url string) (SettingsStore, error)) {
	settingsProviderMu.Lock()
	defer settingsProviderMu.Unlock()
	settingsProvider[name] = fn
}

func SettingsProviders() []string {
	settingsProviderMu.RLock()
	defer settingsProviderMu.RUnlock()
	var names []string
	for name := range settingsProvider {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewSettingsStore opens the named provider; an empty name keeps settings in memory.
func NewSettingsStore(provider, url string) (SettingsStore, error) {
	if provider == "" {
		logrus.Warn("settings_provider=memory settings are lost on restart")
		return NewMemorySettings(), nil
	}
	settingsProviderMu.RLock()
	fn, ok := settingsProvider[provider]
	settingsProviderMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown settings provider %q", provider)
	}
	store, err := fn(url)
	if err != nil {
		return nil, fmt.Errorf("open %s settings store: %w", provider, err)
	}
	logrus.Infof("settings_provider=%v", provider)
	return store, nil
}

func init() {
	RegisterSettingsProvider("mongo", func(url string) (SettingsStore, error) {
		return newMongoClient(url)
	})
	RegisterSettingsProvider("mysql", func(url string) (SettingsStore, error) {
		return newMysqlClient(url)
	})
	RegisterSettingsProvider("es", func(url string) (SettingsStore, error) {
		return newEsClient(url)
	})
}

type MemorySettings struct {
	mu    sync.RWMutex
	chats map[int64]model.ChatSettings
}

func NewMemorySettings() *MemorySettings {
	return &MemorySettings{chats: make(map[int64]model.ChatSettings)}
}

func (m *MemorySettings) GetSettings(_ context.Context, chatID int64) (*model.ChatSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.chats[chatID]
	if !ok {
		return model.NewChatSettings(chatID), nil
	}
	s.Disabled = append([]string(nil), s.Disabled...)
	s.AFK = append([]model.AFK(nil), s.AFK...)
	return &s, nil
}

func (m *MemorySettings) SaveSettings(_ context.Context, settings *model.ChatSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *settings
	s.Disabled = append([]string(nil), settings.Disabled...)
	s.AFK = append([]model.AFK(nil), settings.AFK...)
	m.chats[settings.ChatID] = s
	return nil
}

func (m *MemorySettings) Close(context.Context) error {
	return nil
}
