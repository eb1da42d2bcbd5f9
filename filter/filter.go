package filter

import (
	"context"
	"guardbot/config"
	"guardbot/model"
	"guardbot/telegram"
	"sort"
	"strings"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mattn/go-shellwords"
	"github.com/sirupsen/logrus"
)

type Command struct {
	Name string
	// Role is the minimum support-staff tier allowed to run the command.
	Role config.Role
	// NoDisable commands ignore the chat's disabled list.
	NoDisable bool
}

type Match struct {
	Command string
	Prefix  string
	RawArgs string
	Args    []string
}

func (m *Match) Arg(i int) string {
	if i < len(m.Args) {
		return m.Args[i]
	}
	return ""
}

type SettingsGetter interface {
	GetSettings(ctx context.Context, chatID int64) (*model.ChatSettings, error)
}

type AdminChecker interface {
	IsAdmin(ctx context.Context, chatID, userID int64) (bool, error)
}

type Filter struct {
	prefixes    []string
	botUserName string
	commands    map[string]Command
	staff       *config.Staff
	admins      AdminChecker
	settings    SettingsGetter
	api         telegram.API
}

func New(prefixes []string, botUserName string, staff *config.Staff, admins AdminChecker, settings SettingsGetter, api telegram.API) *Filter {
	p := append([]string(nil), prefixes...)
	// longest first so "!!" wins over "!"
	sort.SliceStable(p, func(i, j int) bool { return len(p[i]) > len(p[j]) })
	return &Filter{
		prefixes:    p,
		botUserName: botUserName,
		commands:    make(map[string]Command),
		staff:       staff,
		admins:      admins,
		settings:    settings,
		api:         api,
	}
}

func (f *Filter) Register(cmds ...Command) {
	for _, cmd := range cmds {
		cmd.Name = strings.ToLower(cmd.Name)
		f.commands[cmd.Name] = cmd
	}
}

// Disableable lists the registered commands a chat admin may turn off.
func (f *Filter) Disableable() []string {
	var names []string
	for name, cmd := range f.commands {
		if !cmd.NoDisable && cmd.Role == config.RoleNone {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Parse splits text into a lower-cased command name and its raw argument string.
// A "@username" suffix must name this bot.
func Parse(text string, prefixes []string, botUserName string) (prefix, name, rawArgs string, ok bool) {
	text = strings.TrimLeftFunc(text, unicode.IsSpace)
	token := text
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		token, rawArgs = text[:i], strings.TrimSpace(text[i:])
	}
	for _, p := range prefixes {
		if !strings.HasPrefix(token, p) {
			continue
		}
		name = token[len(p):]
		if at := strings.IndexByte(name, '@'); at >= 0 {
			if !strings.EqualFold(name[at+1:], botUserName) {
				return "", "", "", false
			}
			name = name[:at]
		}
		if name == "" {
			return "", "", "", false
		}
		return p, strings.ToLower(name), rawArgs, true
	}
	return "", "", "", false
}

// SplitArgs tokenizes with shell quoting, falling back to whitespace on malformed input.
func SplitArgs(raw string) []string {
	if raw == "" {
		return nil
	}
	p := shellwords.NewParser()
	args, err := p.Parse(raw)
	// Position is -1 only when the whole line was consumed; shell operators stop the parser early.
	if err != nil || p.Position != -1 {
		logrus.Debugf("split_args fallback raw=%q err=%v", raw, err)
		return strings.Fields(raw)
	}
	return args
}

// Check reports whether msg invokes a registered command the sender may run here.
// A disabled command used by a non-admin is dropped, and deleted when the chat
// asks for it.
func (f *Filter) Check(ctx context.Context, msg *tgbotapi.Message) (*Match, bool) {
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return nil, false
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	prefix, name, rawArgs, ok := Parse(text, f.prefixes, f.botUserName)
	if !ok {
		return nil, false
	}
	cmd, ok := f.commands[name]
	if !ok {
		return nil, false
	}
	if !f.staff.Has(msg.From.ID, cmd.Role) {
		logrus.Debugf("command_denied user=%v command=%s role=%v", msg.From.ID, name, cmd.Role)
		return nil, false
	}
	if !cmd.NoDisable && !msg.Chat.IsPrivate() && !f.allowDisabled(ctx, msg, name) {
		return nil, false
	}
	return &Match{
		Command: name,
		Prefix:  prefix,
		RawArgs: rawArgs,
		Args:    SplitArgs(rawArgs),
	}, true
}

func (f *Filter) allowDisabled(ctx context.Context, msg *tgbotapi.Message, name string) bool {
	if f.settings == nil {
		return true
	}
	settings, err := f.settings.GetSettings(ctx, msg.Chat.ID)
	if err != nil {
		logrus.Errorf("get_settings chat=%v err=%v", msg.Chat.ID, err)
		return true
	}
	if !settings.IsDisabled(name) {
		return true
	}
	if f.isPrivileged(ctx, msg) {
		return true
	}
	logrus.Infof("disabled_command chat=%v user=%v command=%s action=%s", msg.Chat.ID, msg.From.ID, name, settings.DisabledAction)
	if settings.DisabledAction == model.DisabledDelete {
		err := telegram.FloodRetry(ctx, func() error {
			_, err := f.api.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID))
			return err
		})
		if err != nil {
			logrus.Warnf("delete_disabled chat=%v msg=%v err=%v", msg.Chat.ID, msg.MessageID, err)
		}
	}
	return false
}

func (f *Filter) isPrivileged(ctx context.Context, msg *tgbotapi.Message) bool {
	if f.staff.IsSupport(msg.From.ID) {
		return true
	}
	// anonymous admins post as the chat itself
	if msg.SenderChat != nil && msg.SenderChat.ID == msg.Chat.ID {
		return true
	}
	if f.admins == nil {
		return false
	}
	ok, err := f.admins.IsAdmin(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil {
		logrus.Errorf("is_admin chat=%v user=%v err=%v", msg.Chat.ID, msg.From.ID, err)
		return false
	}
	return ok
}
