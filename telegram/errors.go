package telegram

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Kind uint8

const (
	KindNone Kind = iota
	KindPermission
	KindFlood
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindPermission:
		return "permission"
	case KindFlood:
		return "flood"
	default:
		return "unknown"
	}
}

var permissionHints = []string{
	"not enough rights",
	"chat_admin_required",
	"need administrator rights",
	"can't demote",
	"can't promote",
	"can't remove chat owner",
	"user is an administrator of the chat",
	"method is available only for supergroups",
	"bot is not a member",
	"bot was kicked",
	"have no rights",
	"right_forbidden",
	"user_admin_invalid",
}

// Classify sorts a Bot API error into permission, flood or unknown.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	var tgErr *tgbotapi.Error
	if !errors.As(err, &tgErr) {
		return KindUnknown
	}
	if tgErr.Code == 429 || tgErr.RetryAfter > 0 {
		return KindFlood
	}
	if tgErr.Code == 403 {
		return KindPermission
	}
	msg := strings.ToLower(tgErr.Message)
	for _, hint := range permissionHints {
		if strings.Contains(msg, hint) {
			return KindPermission
		}
	}
	return KindUnknown
}

// RetryAfter returns the server-specified flood wait, zero when err is not a flood error.
func RetryAfter(err error) time.Duration {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.RetryAfter > 0 {
		return time.Duration(tgErr.RetryAfter) * time.Second
	}
	return 0
}

// UserMessage renders err the way it is shown in chat.
func UserMessage(err error, supportChat string) string {
	switch Classify(err) {
	case KindNone:
		return ""
	case KindPermission:
		return "I don't have enough rights to do that here."
	case KindFlood:
		if wait := RetryAfter(err); wait > 0 {
			return fmt.Sprintf("Telegram is rate limiting me, try again in %d seconds.", int(wait.Seconds()))
		}
		return "Telegram is rate limiting me, try again later."
	}
	msg := "Something went wrong while handling this command."
	if supportChat != "" {
		return msg + " Please report this in @" + strings.TrimPrefix(supportChat, "@") + "."
	}
	return msg + " Please report this to the bot owner."
}
