package service

import (
	"strconv"
	"strings"
)

// callbackData joins callback tokens; Telegram caps the result at 64 bytes.
func callbackData(parts ...string) string {
	return strings.Join(parts, "_")
}

func parseCallbackData(data string) []string {
	return strings.Split(data, "_")
}

func parseChatID(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}
