package util

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"

	"github.com/rivo/uniseg"
)

const maxNameWidth = 32

func LogMarshal(v any) string {
	s, _ := json.Marshal(v)
	return string(s)
}

func LogMarshalFn(v ...any) func() []any {
	return func() []any {
		res := make([]any, len(v))
		for i, s := range v {
			res[i] = LogMarshal(s)
		}
		return res
	}
}

func NumToStr[T int | float64 | int64 | uint64](num T) string {
	switch reflect.TypeOf(num).Kind() {
	case reflect.Int:
		return strconv.Itoa(int(num))
	case reflect.Int64:
		return strconv.FormatInt(int64(num), 10)
	case reflect.Float64:
		return strconv.FormatFloat(float64(num), 'f', -1, 64)
	case reflect.Uint64:
		return strconv.FormatUint(uint64(num), 10)
	}
	return ""
}

func StrBuilder(args ...string) string {
	var builder strings.Builder
	for _, i := range args {
		builder.WriteString(i)
	}
	return builder.String()
}

// TruncateName cuts a display name to max grapheme clusters so emoji and
// combining sequences are never split.
func TruncateName(name string, max int) string {
	if uniseg.GraphemeClusterCount(name) <= max {
		return name
	}
	var builder strings.Builder
	gr := uniseg.NewGraphemes(name)
	for n := 0; n < max-1 && gr.Next(); n++ {
		builder.WriteString(gr.Str())
	}
	builder.WriteString("…")
	return builder.String()
}

func FullName(first, last string) string {
	return strings.TrimSpace(StrBuilder(first, " ", last))
}

// Mention renders an HTML text mention.
func Mention(userID int64, name string) string {
	if strings.TrimSpace(name) == "" {
		name = NumToStr(userID)
	}
	return StrBuilder(`<a href="tg://user?id=`, NumToStr(userID), `">`,
		Escape(TruncateName(name, maxNameWidth)), "</a>")
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Escape escapes the characters Telegram's HTML parse mode reserves.
func Escape(s string) string {
	return htmlEscaper.Replace(s)
}
