package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"guardbot/util"
	"os"
	"path"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

const EnvConfigPath = "BOT_CONFIG"

type Whitelist struct {
	GroupsId       []int64  `json:"groups_id,omitempty"`
	GroupsUsername []string `json:"groups_username,omitempty"`
}

type Modules struct {
	EnableCommand  bool `json:"enable_command"`
	EnableAFK      bool `json:"enable_afk"`
	EnableAutoJoin bool `json:"enable_auto_join"`
	EnableGames    bool `json:"enable_games"`
}

type Webhook struct {
	Endpoint   string `json:"endpoint"`
	CertFile   string `json:"cert_file"`
	ListenAddr string `json:"listen_addr"`
	Token      string `json:"token"`
}

type Store struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
}

type StaffIDs struct {
	Owner int64   `json:"owner"`
	Devs  []int64 `json:"devs"`
	Sudo  []int64 `json:"sudo"`
	Users []int64 `json:"whitelist"`
}

type Config struct {
	Whitelist          Whitelist `json:"whitelist"`
	DisableWhitelist   bool      `json:"disable_whitelist"`
	RedisHost          string    `json:"redis_host"`
	BotToken           string    `json:"bot_token"`
	LogLevel           uint8     `json:"log_level"`
	CommandPrefixes    []string  `json:"command_prefixes"`
	AdminCacheCooldown uint      `json:"admin_cache_cooldown"`
	Staff              StaffIDs  `json:"staff"`
	Modules            Modules   `json:"modules"`
	UpdatesType        string    `json:"updates_type"`
	Webhook            Webhook   `json:"webhook"`
	Store              Store     `json:"store"`
	SupportChat        string    `json:"support_chat"`
	MemeAPI            string    `json:"meme_api"`
}

func Default() *Config {
	return &Config{
		DisableWhitelist:   true,
		LogLevel:           2,
		CommandPrefixes:    []string{"/", "!"},
		AdminCacheCooldown: 600,
		Modules: Modules{
			EnableCommand:  true,
			EnableAFK:      true,
			EnableAutoJoin: true,
			EnableGames:    true,
		},
		UpdatesType: "polling",
		MemeAPI:     "https://meme-api.com/gimme",
	}
}

// Load reads the JSON config file at p on top of Default. An empty p falls back to $BOT_CONFIG.
func Load(p string) (*Config, error) {
	if p == "" {
		p = os.Getenv(EnvConfigPath)
	}
	if p == "" {
		return nil, fmt.Errorf("config path is empty, set %s", EnvConfigPath)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Config, error) {
	conf := Default()
	if err := json.Unmarshal(b, conf); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return conf, nil
}

func (c *Config) Validate() error {
	if c.BotToken == "" {
		return errors.New("bot_token is required")
	}
	if len(c.CommandPrefixes) == 0 {
		return errors.New("command_prefixes must contain at least one prefix")
	}
	for _, p := range c.CommandPrefixes {
		if p == "" {
			return errors.New("command_prefixes must not contain empty prefixes")
		}
	}
	switch c.Store.Provider {
	case "", "mongo", "mysql", "es":
	default:
		return fmt.Errorf("unknown store provider %q", c.Store.Provider)
	}
	switch c.UpdatesType {
	case "polling", "webhook":
	default:
		return fmt.Errorf("unknown updates_type %q", c.UpdatesType)
	}
	return nil
}

func (c *Config) CooldownWindow() time.Duration {
	return time.Duration(c.AdminCacheCooldown) * time.Second
}

func (c *Config) InWhitelist(chatUserName string, chatID int64) bool {
	if c.DisableWhitelist {
		return true
	}
	if len(chatUserName) > 1 {
		for _, name := range c.Whitelist.GroupsUsername {
			if name == chatUserName {
				return true
			}
		}
	}
	for _, id := range c.Whitelist.GroupsId {
		if id == chatID {
			return true
		}
	}
	return false
}

func SetupLog(level uint8) {
	switch {
	case level >= 3:
		logrus.SetLevel(logrus.DebugLevel)
	case level == 2:
		logrus.SetLevel(logrus.InfoLevel)
	default:
		logrus.SetLevel(logrus.ErrorLevel)
	}
	logrus.SetReportCaller(true)
	logrus.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		CallerPrettyfier: func(frame *runtime.Frame) (function string, file string) {
			fileName := path.Base(frame.File)
			return frame.Function, fileName
		},
	})
}

// Redacted is the loggable form of the config.
func (c Config) Redacted() string {
	c.BotToken = "***"
	c.Webhook.Token = "***"
	c.Store.URL = "***"
	return util.LogMarshal(c)
}
